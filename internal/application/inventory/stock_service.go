package inventory

import (
	"context"
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockService handles direct ledger commands and ledger/journal queries.
type StockService struct {
	txScope TransactionScope
	logger  *zap.Logger
}

// NewStockService creates a new StockService
func NewStockService(txScope TransactionScope, logger *zap.Logger) *StockService {
	return &StockService{txScope: txScope, logger: logger}
}

// AdjustStock applies a signed on-hand change at one key. Positive deltas are journaled
// as RECEIPT, negative deltas as ADJUSTMENT.
func (s *StockService) AdjustStock(ctx context.Context, tenantID uuid.UUID, req AdjustStockRequest) (*MovementResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	if req.Delta.IsZero() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "delta cannot be zero")
	}
	key := req.Key(tenantID)
	movementType := inventory.MovementTypeAdjustment
	if req.Delta.IsPositive() {
		movementType = inventory.MovementTypeReceipt
	}
	refType := req.ReferenceType
	if refType == "" {
		refType = inventory.ReferenceTypeManual
	}

	var movement *inventory.StockMovement
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		journal := NewJournal(repos, NewLedger(repos))
		m, err := journal.Post(ctx, key, req.Delta, movementType, inventory.MovementDetails{
			UnitCost:     req.UnitCost,
			Reference:    inventory.Reference{Type: refType, Number: req.ReferenceNumber},
			Reason:       req.Reason,
			LotNumber:    req.LotNumber,
			SerialNumber: req.SerialNumber,
			CreatedBy:    req.CreatedBy,
		})
		movement = m
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock adjusted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("key", key.String()),
		zap.String("delta", req.Delta.String()),
		zap.String("movement_id", movement.ID.String()),
	)
	resp := ToMovementResponse(movement)
	return &resp, nil
}

// MoveStock relocates on-hand stock. Both legs and both ledger changes commit together.
func (s *StockService) MoveStock(ctx context.Context, tenantID uuid.UUID, req MoveStockRequest) (*MoveStockResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	if !req.Quantity.IsPositive() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "move quantity must be positive")
	}
	source := req.Key(tenantID)
	destination := source.AtLocation(req.DestinationLocationID)
	if req.DestinationWarehouseID != nil {
		destination = source.AtWarehouse(*req.DestinationWarehouseID, req.DestinationLocationID)
	}
	if source == destination {
		return nil, shared.NewValidationError("SAME_LOCATION", "source and destination must differ")
	}

	var resp MoveStockResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		ledger := NewLedger(repos)
		journal := NewJournal(repos, ledger)

		src, err := ledger.Read(ctx, source)
		if err != nil {
			return err
		}
		if src.Available().LessThan(req.Quantity) {
			return insufficientStock(source, src.Available(), req.Quantity)
		}
		unitCost := src.UnitCost
		ref := inventory.Reference{Type: inventory.ReferenceTypeManual}

		out, err := inventory.NewStockMovement(source, req.Quantity.Neg(), inventory.MovementTypeTransferOut, inventory.MovementDetails{
			CounterLocationID: destination.LocationID, UnitCost: unitCost, Reference: ref, Reason: req.Reason, CreatedBy: req.CreatedBy,
		})
		if err != nil {
			return err
		}
		in, err := inventory.NewStockMovement(destination, req.Quantity, inventory.MovementTypeTransferIn, inventory.MovementDetails{
			CounterLocationID: source.LocationID, UnitCost: unitCost, Reference: ref, Reason: req.Reason, CreatedBy: req.CreatedBy,
		})
		if err != nil {
			return err
		}

		stocks, err := ledger.ApplyDeltas(ctx, []LedgerDelta{
			{Key: source, Quantity: req.Quantity.Neg()},
			{Key: destination, Quantity: req.Quantity, UnitCost: unitCost},
		})
		if err != nil {
			return err
		}
		for _, m := range []*inventory.StockMovement{out, in} {
			if _, err := journal.Record(ctx, m); err != nil {
				return err
			}
		}
		for _, st := range stocks {
			if st.Key() == source {
				resp.Source = ToStockResponse(st)
			} else {
				resp.Destination = ToStockResponse(st)
			}
		}
		resp.Outbound = ToMovementResponse(out)
		resp.Inbound = ToMovementResponse(in)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock moved",
		zap.String("tenant_id", tenantID.String()),
		zap.String("from", source.String()),
		zap.String("to", destination.String()),
		zap.String("quantity", req.Quantity.String()),
	)
	return &resp, nil
}

// ReverseMovement compensates a journal entry and applies the inverse ledger change.
func (s *StockService) ReverseMovement(ctx context.Context, tenantID uuid.UUID, req ReverseMovementRequest) (*MovementResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	var reversal *inventory.StockMovement
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		journal := NewJournal(repos, NewLedger(repos))
		m, err := journal.Reverse(ctx, tenantID, req.MovementID, req.Reason, req.CreatedBy)
		reversal = m
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Movement reversed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("movement_id", req.MovementID.String()),
		zap.String("reversal_id", reversal.ID.String()),
	)
	resp := ToMovementResponse(reversal)
	return &resp, nil
}

// VerifyConsistency compares a ledger row with the sum of its journal.
func (s *StockService) VerifyConsistency(ctx context.Context, tenantID uuid.UUID, key StockKeyRequest) (*ConsistencyReport, error) {
	if err := validateCommand(key); err != nil {
		return nil, err
	}
	var report *ConsistencyReport
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := NewLedger(repos).VerifyConsistency(ctx, key.Key(tenantID))
		report = r
		return err
	})
	if err != nil {
		return nil, err
	}
	if !report.Consistent {
		s.logger.Warn("Ledger and journal disagree",
			zap.String("key", report.Key.String()),
			zap.String("ledger", report.LedgerQuantity.String()),
			zap.String("journal", report.JournalQuantity.String()),
		)
	}
	return report, nil
}

// GetStock returns the ledger row for a key. An unused key reads as zero.
func (s *StockService) GetStock(ctx context.Context, tenantID uuid.UUID, key StockKeyRequest) (*StockResponse, error) {
	if err := validateCommand(key); err != nil {
		return nil, err
	}
	var resp StockResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		stock, err := NewLedger(repos).Read(ctx, key.Key(tenantID))
		if err != nil {
			return err
		}
		resp = ToStockResponse(stock)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListStock returns ledger rows in a product/warehouse/location scope.
func (s *StockService) ListStock(ctx context.Context, tenantID uuid.UUID, f StockListFilter) (*shared.Paginated[StockResponse], error) {
	if err := validateCommand(f); err != nil {
		return nil, err
	}
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: f.OrderBy, OrderDir: f.OrderDir}.Normalize()
	scope := inventory.StockScope{
		ProductID:   f.ProductID,
		VariantID:   f.VariantID,
		WarehouseID: f.WarehouseID,
		LocationID:  f.LocationID,
		NonZeroOnly: f.NonZeroOnly,
	}

	var page shared.Paginated[StockResponse]
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, total, err := repos.StockRepo().FindByScope(ctx, tenantID, scope, filter)
		if err != nil {
			return err
		}
		items := make([]StockResponse, len(rows))
		for i := range rows {
			items[i] = ToStockResponse(&rows[i])
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetStockLevel sums on-hand and available for a product, optionally within one warehouse.
func (s *StockService) GetStockLevel(ctx context.Context, tenantID, productID uuid.UUID, warehouseID *uuid.UUID) (inventory.StockLevel, error) {
	var level inventory.StockLevel
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		l, err := repos.StockRepo().SumLevel(ctx, tenantID, productID, warehouseID)
		level = l
		return err
	})
	return level, err
}

// GetMovement returns one journal entry.
func (s *StockService) GetMovement(ctx context.Context, tenantID, movementID uuid.UUID) (*MovementResponse, error) {
	var resp MovementResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		m, err := repos.MovementRepo().FindByID(ctx, tenantID, movementID)
		if err != nil {
			return err
		}
		resp = ToMovementResponse(m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListMovements returns journal history, newest first.
func (s *StockService) ListMovements(ctx context.Context, tenantID uuid.UUID, f MovementListFilter) (*shared.Paginated[MovementResponse], error) {
	if err := validateCommand(f); err != nil {
		return nil, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, shared.NewValidationError("INVALID_RANGE", "end of range is before its start")
	}
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "occurred_at", OrderDir: "desc"}.Normalize()

	var page shared.Paginated[MovementResponse]
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, total, err := repos.MovementRepo().FindHistory(ctx, tenantID, f.domain(), filter)
		if err != nil {
			return err
		}
		items := make([]MovementResponse, len(rows))
		for i := range rows {
			items[i] = ToMovementResponse(&rows[i])
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// movementDelta is a convenience for callers that only change on-hand quantity.
func movementDelta(key inventory.StockKey, quantity, unitCost decimal.Decimal) LedgerDelta {
	return LedgerDelta{Key: key, Quantity: quantity, UnitCost: unitCost}
}

func since(start time.Time) zap.Field {
	return zap.Duration("duration", time.Since(start))
}

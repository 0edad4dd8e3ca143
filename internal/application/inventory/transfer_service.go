package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransferService drives inter-warehouse transfers through approve, ship and receive.
type TransferService struct {
	txScope TransactionScope
	logger  *zap.Logger
}

// NewTransferService creates a new TransferService
func NewTransferService(txScope TransactionScope, logger *zap.Logger) *TransferService {
	return &TransferService{txScope: txScope, logger: logger}
}

// CreateTransfer opens a Draft transfer.
func (s *TransferService) CreateTransfer(ctx context.Context, tenantID uuid.UUID, req CreateTransferRequest) (*TransferResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	number := req.TransferNumber
	if number == "" {
		number = inventory.GenerateTransferNumber(time.Now())
	}
	t, err := inventory.NewStockTransfer(tenantID, number, req.SourceWarehouseID, req.DestinationWarehouseID, req.Notes)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		t.SetCreatedBy(*req.CreatedBy)
	}
	for _, item := range req.Items {
		if _, err := t.AddItem(item.spec()); err != nil {
			return nil, err
		}
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.TransferRepo().ExistsByNumber(ctx, tenantID, number)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewConflictError("ALREADY_EXISTS", fmt.Sprintf("transfer number %s already exists", number))
		}
		if err := repos.TransferRepo().Create(ctx, t); err != nil {
			return err
		}
		recordEvents(repos, t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transfer created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transfer_number", number),
		zap.Int("items", len(t.Items)),
	)
	resp := ToTransferResponse(t)
	return &resp, nil
}

// AddTransferItem appends a line to a Draft transfer.
func (s *TransferService) AddTransferItem(ctx context.Context, tenantID, transferID uuid.UUID, req AddTransferItemRequest) (*TransferResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, tenantID, transferID, func(_ TransactionalRepositories, t *inventory.StockTransfer) error {
		_, err := t.AddItem(req.spec())
		return err
	})
}

// UpdateTransferItemQuantity changes the requested quantity of a Draft line.
func (s *TransferService) UpdateTransferItemQuantity(ctx context.Context, tenantID, transferID, itemID uuid.UUID, quantity decimal.Decimal) (*TransferResponse, error) {
	return s.mutate(ctx, tenantID, transferID, func(_ TransactionalRepositories, t *inventory.StockTransfer) error {
		return t.UpdateItemQuantity(itemID, quantity)
	})
}

// RemoveTransferItem drops a line from a Draft transfer.
func (s *TransferService) RemoveTransferItem(ctx context.Context, tenantID, transferID, itemID uuid.UUID) (*TransferResponse, error) {
	return s.mutate(ctx, tenantID, transferID, func(_ TransactionalRepositories, t *inventory.StockTransfer) error {
		return t.RemoveItem(itemID)
	})
}

// SubmitTransfer sends a Draft transfer for approval.
func (s *TransferService) SubmitTransfer(ctx context.Context, tenantID, transferID uuid.UUID) (*TransferResponse, error) {
	return s.mutate(ctx, tenantID, transferID, func(_ TransactionalRepositories, t *inventory.StockTransfer) error {
		return t.Submit()
	})
}

// ApproveTransfer checks that the source can cover every requested key and approves.
// Nothing is reserved.
func (s *TransferService) ApproveTransfer(ctx context.Context, tenantID, transferID, approvedBy uuid.UUID) (*TransferResponse, error) {
	return s.mutate(ctx, tenantID, transferID, func(repos TransactionalRepositories, t *inventory.StockTransfer) error {
		if t.Status != inventory.TransferStatusSubmitted {
			return shared.NewInvalidTransitionError("transfer", string(t.Status), "approve")
		}
		ledger := NewLedger(repos)
		for key, qty := range t.RequestedBySourceKey() {
			if err := ledger.RequireAvailable(ctx, key, qty); err != nil {
				return err
			}
		}
		return t.Approve(approvedBy)
	})
}

// ShipTransfer takes shipped stock out of the source warehouse and journals one
// TRANSFER_OUT per shipped item. Any failure rolls back the whole step.
func (s *TransferService) ShipTransfer(ctx context.Context, tenantID, transferID uuid.UUID, req ShipTransferRequest) (*TransferResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	lines := make([]inventory.ShipLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = inventory.ShipLine{ItemID: l.ItemID, Quantity: l.Quantity}
	}

	return s.mutate(ctx, tenantID, transferID, func(repos TransactionalRepositories, t *inventory.StockTransfer) error {
		if err := t.Ship(lines); err != nil {
			return err
		}
		ledger := NewLedger(repos)
		journal := NewJournal(repos, ledger)

		needed := make(map[inventory.StockKey]decimal.Decimal)
		for i := range t.Items {
			if t.Items[i].ShippedQuantity.IsPositive() {
				k := t.SourceKey(&t.Items[i])
				needed[k] = needed[k].Add(t.Items[i].ShippedQuantity)
			}
		}
		for key, qty := range needed {
			if err := ledger.RequireAvailable(ctx, key, qty); err != nil {
				return err
			}
		}

		movements := make([]*inventory.StockMovement, 0, len(t.Items))
		deltas := make([]LedgerDelta, 0, len(t.Items))
		for i := range t.Items {
			item := &t.Items[i]
			if !item.ShippedQuantity.IsPositive() {
				continue
			}
			key := t.SourceKey(item)
			cost, err := s.itemCost(ctx, ledger, key, item)
			if err != nil {
				return err
			}
			item.UnitCost = cost
			m, err := inventory.NewStockMovement(key, item.ShippedQuantity.Neg(), inventory.MovementTypeTransferOut, inventory.MovementDetails{
				UnitCost:     cost,
				Reference:    inventory.Reference{Type: inventory.ReferenceTypeTransfer, Number: t.TransferNumber, ID: t.ID},
				Reason:       "transfer shipped",
				LotNumber:    item.LotNumber,
				SerialNumber: item.SerialNumber,
				CreatedBy:    req.ShippedBy,
			})
			if err != nil {
				return err
			}
			movements = append(movements, m)
			deltas = append(deltas, movementDelta(key, item.ShippedQuantity.Neg(), decimal.Zero))
		}
		if _, err := ledger.ApplyDeltas(ctx, deltas); err != nil {
			return err
		}
		for _, m := range movements {
			if _, err := journal.Record(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReceiveTransfer books received stock into the destination warehouse and journals one
// TRANSFER_IN per item with a positive received quantity. Damaged units are reported
// on the event but never become usable stock.
func (s *TransferService) ReceiveTransfer(ctx context.Context, tenantID, transferID uuid.UUID, req ReceiveTransferRequest) (*TransferResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	lines := make([]inventory.ReceiveLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = inventory.ReceiveLine{ItemID: l.ItemID, Received: l.Received, Damaged: l.Damaged}
	}

	resp, err := s.mutate(ctx, tenantID, transferID, func(repos TransactionalRepositories, t *inventory.StockTransfer) error {
		if err := t.Receive(lines); err != nil {
			return err
		}
		ledger := NewLedger(repos)
		journal := NewJournal(repos, ledger)

		movements := make([]*inventory.StockMovement, 0, len(t.Items))
		deltas := make([]LedgerDelta, 0, len(t.Items))
		for i := range t.Items {
			item := &t.Items[i]
			if !item.ReceivedQuantity.IsPositive() {
				continue
			}
			key := t.DestinationKey(item)
			m, err := inventory.NewStockMovement(key, item.ReceivedQuantity, inventory.MovementTypeTransferIn, inventory.MovementDetails{
				UnitCost:     item.UnitCost,
				Reference:    inventory.Reference{Type: inventory.ReferenceTypeTransfer, Number: t.TransferNumber, ID: t.ID},
				Reason:       "transfer received",
				LotNumber:    item.LotNumber,
				SerialNumber: item.SerialNumber,
				CreatedBy:    req.ReceivedBy,
			})
			if err != nil {
				return err
			}
			movements = append(movements, m)
			deltas = append(deltas, movementDelta(key, item.ReceivedQuantity, item.UnitCost))
		}
		if _, err := ledger.ApplyDeltas(ctx, deltas); err != nil {
			return err
		}
		for _, m := range movements {
			if _, err := journal.Record(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if resp.TotalDamaged.IsPositive() {
		s.logger.Warn("Transfer received with damaged goods",
			zap.String("tenant_id", tenantID.String()),
			zap.String("transfer_number", resp.TransferNumber),
			zap.String("damaged", resp.TotalDamaged.String()),
		)
	}
	return resp, nil
}

// RejectTransfer declines a transfer that has not shipped. Nothing is released because
// nothing was reserved.
func (s *TransferService) RejectTransfer(ctx context.Context, tenantID, transferID uuid.UUID, reason string) (*TransferResponse, error) {
	return s.mutate(ctx, tenantID, transferID, func(_ TransactionalRepositories, t *inventory.StockTransfer) error {
		return t.Reject(reason)
	})
}

// CancelTransfer abandons a transfer that has not shipped.
func (s *TransferService) CancelTransfer(ctx context.Context, tenantID, transferID uuid.UUID, reason string) (*TransferResponse, error) {
	return s.mutate(ctx, tenantID, transferID, func(_ TransactionalRepositories, t *inventory.StockTransfer) error {
		return t.Cancel(reason)
	})
}

// GetTransfer returns a transfer by ID.
func (s *TransferService) GetTransfer(ctx context.Context, tenantID, transferID uuid.UUID) (*TransferResponse, error) {
	var resp TransferResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.TransferRepo().FindByID(ctx, tenantID, transferID)
		if err != nil {
			return err
		}
		resp = ToTransferResponse(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTransferByNumber returns a transfer by its number.
func (s *TransferService) GetTransferByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*TransferResponse, error) {
	var resp TransferResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.TransferRepo().FindByNumber(ctx, tenantID, number)
		if err != nil {
			return err
		}
		resp = ToTransferResponse(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTransfers returns transfers touching a warehouse, filtered by status.
func (s *TransferService) ListTransfers(ctx context.Context, tenantID uuid.UUID, f TransferListFilter) (*shared.Paginated[TransferResponse], error) {
	if err := validateCommand(f); err != nil {
		return nil, err
	}
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "created_at"}.Normalize()
	tf := inventory.TransferFilter{WarehouseID: f.WarehouseID}
	for _, st := range f.Statuses {
		tf.Status = append(tf.Status, inventory.TransferStatus(st))
	}

	var page shared.Paginated[TransferResponse]
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, total, err := repos.TransferRepo().FindAll(ctx, tenantID, tf, filter)
		if err != nil {
			return err
		}
		items := make([]TransferResponse, len(rows))
		for i := range rows {
			items[i] = ToTransferResponse(&rows[i])
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// mutate loads a transfer, applies fn and saves it in one transaction.
func (s *TransferService) mutate(ctx context.Context, tenantID, transferID uuid.UUID,
	fn func(repos TransactionalRepositories, t *inventory.StockTransfer) error) (*TransferResponse, error) {
	var (
		resp TransferResponse
		from inventory.TransferStatus
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.TransferRepo().FindByID(ctx, tenantID, transferID)
		if err != nil {
			return err
		}
		from = t.Status
		if err := fn(repos, t); err != nil {
			return err
		}
		if err := repos.TransferRepo().Save(ctx, t); err != nil {
			return err
		}
		recordEvents(repos, t)
		resp = ToTransferResponse(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if string(from) != resp.Status {
		s.logger.Info("Transfer status changed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("transfer_number", resp.TransferNumber),
			zap.String("from", string(from)),
			zap.String("to", resp.Status),
		)
	}
	return &resp, nil
}

// itemCost prefers the cost on the transfer line and falls back to the source row's average.
func (s *TransferService) itemCost(ctx context.Context, ledger *Ledger, key inventory.StockKey, item *inventory.StockTransferItem) (decimal.Decimal, error) {
	if item.UnitCost.IsPositive() {
		return item.UnitCost, nil
	}
	stock, err := ledger.Read(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	return stock.UnitCost, nil
}

package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdjustmentService handles inventory adjustment commands and queries.
type AdjustmentService struct {
	txScope TransactionScope
	logger  *zap.Logger
}

// NewAdjustmentService creates a new AdjustmentService
func NewAdjustmentService(txScope TransactionScope, logger *zap.Logger) *AdjustmentService {
	return &AdjustmentService{txScope: txScope, logger: logger}
}

// CreateInventoryAdjustment opens a Draft adjustment, optionally with items.
func (s *AdjustmentService) CreateInventoryAdjustment(ctx context.Context, tenantID uuid.UUID, req CreateAdjustmentRequest) (*AdjustmentResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	adjType := inventory.AdjustmentType(req.AdjustmentType)
	if adjType == inventory.AdjustmentTypeCountVariance {
		return nil, shared.NewValidationError("INVALID_ADJUSTMENT_TYPE", "count variance adjustments are created by approving a stock count")
	}
	number := req.AdjustmentNumber
	if number == "" {
		number = inventory.GenerateAdjustmentNumber(time.Now())
	}
	adj, err := inventory.NewInventoryAdjustment(tenantID, number, req.WarehouseID, adjType, req.Reason)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		adj.SetCreatedBy(*req.CreatedBy)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.AdjustmentRepo().ExistsByNumber(ctx, tenantID, number)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewConflictError("ALREADY_EXISTS", fmt.Sprintf("adjustment number %s already exists", number))
		}
		ledger := NewLedger(repos)
		for _, item := range req.Items {
			if err := addAdjustmentItem(ctx, ledger, adj, item); err != nil {
				return err
			}
		}
		if err := repos.AdjustmentRepo().Create(ctx, adj); err != nil {
			return err
		}
		recordEvents(repos, adj)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Adjustment created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("adjustment_number", number),
		zap.String("type", req.AdjustmentType),
	)
	resp := ToAdjustmentResponse(adj)
	return &resp, nil
}

// AddAdjustmentItem appends a line to a Draft adjustment. The system quantity and unit
// cost default to the current ledger row.
func (s *AdjustmentService) AddAdjustmentItem(ctx context.Context, tenantID, adjustmentID uuid.UUID, req AddAdjustmentItemRequest) (*AdjustmentResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, tenantID, adjustmentID, func(repos TransactionalRepositories, adj *inventory.InventoryAdjustment) error {
		return addAdjustmentItem(ctx, NewLedger(repos), adj, req)
	})
}

// SubmitAdjustment sends a Draft adjustment for approval.
func (s *AdjustmentService) SubmitAdjustment(ctx context.Context, tenantID, adjustmentID uuid.UUID) (*AdjustmentResponse, error) {
	return s.mutate(ctx, tenantID, adjustmentID, func(_ TransactionalRepositories, adj *inventory.InventoryAdjustment) error {
		return adj.Submit()
	})
}

// ApproveAdjustment accepts a Submitted adjustment and applies each variance to the
// ledger with one ADJUSTMENT movement per item.
func (s *AdjustmentService) ApproveAdjustment(ctx context.Context, tenantID, adjustmentID, approvedBy uuid.UUID) (*AdjustmentResponse, error) {
	return s.mutate(ctx, tenantID, adjustmentID, func(repos TransactionalRepositories, adj *inventory.InventoryAdjustment) error {
		if err := adj.Approve(approvedBy); err != nil {
			return err
		}
		by := &approvedBy
		if approvedBy == uuid.Nil {
			by = nil
		}
		return postAdjustment(ctx, repos, adj, inventory.MovementTypeAdjustment, inventory.Reference{
			Type: inventory.ReferenceTypeAdjustment, Number: adj.AdjustmentNumber, ID: adj.ID,
		}, by)
	})
}

// RejectAdjustment declines a Submitted adjustment.
func (s *AdjustmentService) RejectAdjustment(ctx context.Context, tenantID, adjustmentID uuid.UUID, reason string) (*AdjustmentResponse, error) {
	return s.mutate(ctx, tenantID, adjustmentID, func(_ TransactionalRepositories, adj *inventory.InventoryAdjustment) error {
		return adj.Reject(reason)
	})
}

// GetAdjustment returns an adjustment by ID.
func (s *AdjustmentService) GetAdjustment(ctx context.Context, tenantID, adjustmentID uuid.UUID) (*AdjustmentResponse, error) {
	var resp AdjustmentResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		adj, err := repos.AdjustmentRepo().FindByID(ctx, tenantID, adjustmentID)
		if err != nil {
			return err
		}
		resp = ToAdjustmentResponse(adj)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAdjustmentByNumber returns an adjustment by its number.
func (s *AdjustmentService) GetAdjustmentByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*AdjustmentResponse, error) {
	var resp AdjustmentResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		adj, err := repos.AdjustmentRepo().FindByNumber(ctx, tenantID, number)
		if err != nil {
			return err
		}
		resp = ToAdjustmentResponse(adj)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAdjustments returns adjustments filtered by warehouse and status.
func (s *AdjustmentService) ListAdjustments(ctx context.Context, tenantID uuid.UUID, f AdjustmentListFilter) (*shared.Paginated[AdjustmentResponse], error) {
	if err := validateCommand(f); err != nil {
		return nil, err
	}
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "created_at"}.Normalize()
	statuses := make([]inventory.AdjustmentStatus, 0, len(f.Statuses))
	for _, st := range f.Statuses {
		statuses = append(statuses, inventory.AdjustmentStatus(st))
	}

	var page shared.Paginated[AdjustmentResponse]
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, total, err := repos.AdjustmentRepo().FindAll(ctx, tenantID, f.WarehouseID, statuses, filter)
		if err != nil {
			return err
		}
		items := make([]AdjustmentResponse, len(rows))
		for i := range rows {
			items[i] = ToAdjustmentResponse(&rows[i])
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *AdjustmentService) mutate(ctx context.Context, tenantID, adjustmentID uuid.UUID,
	fn func(repos TransactionalRepositories, adj *inventory.InventoryAdjustment) error) (*AdjustmentResponse, error) {
	var resp AdjustmentResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		adj, err := repos.AdjustmentRepo().FindByID(ctx, tenantID, adjustmentID)
		if err != nil {
			return err
		}
		if err := fn(repos, adj); err != nil {
			return err
		}
		if err := repos.AdjustmentRepo().Save(ctx, adj); err != nil {
			return err
		}
		recordEvents(repos, adj)
		resp = ToAdjustmentResponse(adj)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Adjustment updated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("adjustment_number", resp.AdjustmentNumber),
		zap.String("status", resp.Status),
	)
	return &resp, nil
}

func addAdjustmentItem(ctx context.Context, ledger *Ledger, adj *inventory.InventoryAdjustment, req AddAdjustmentItemRequest) error {
	key := inventory.StockKey{TenantID: adj.TenantID, ProductID: req.ProductID, VariantID: req.VariantID,
		WarehouseID: adj.WarehouseID, LocationID: req.LocationID}
	stock, err := ledger.Read(ctx, key)
	if err != nil {
		return err
	}
	spec := inventory.AdjustmentItemSpec{
		ProductID:      req.ProductID,
		VariantID:      req.VariantID,
		LocationID:     req.LocationID,
		SystemQuantity: stock.Quantity,
		ActualQuantity: req.ActualQuantity,
		UnitCost:       stock.UnitCost,
		LotNumber:      req.LotNumber,
		Notes:          req.Notes,
	}
	if req.SystemQuantity != nil {
		spec.SystemQuantity = *req.SystemQuantity
	}
	if req.UnitCost != nil {
		spec.UnitCost = *req.UnitCost
	}
	_, err = adj.AddItem(spec)
	return err
}

// postAdjustment applies every non-zero item variance to the ledger in canonical key order
// and journals one movement per item.
func postAdjustment(ctx context.Context, repos TransactionalRepositories, adj *inventory.InventoryAdjustment,
	movementType inventory.MovementType, ref inventory.Reference, by *uuid.UUID) error {
	ledger := NewLedger(repos)
	journal := NewJournal(repos, ledger)

	deltas := make([]LedgerDelta, 0, len(adj.Items))
	movements := make([]*inventory.StockMovement, 0, len(adj.Items))
	for i := range adj.Items {
		item := &adj.Items[i]
		variance := item.Variance()
		if variance.IsZero() {
			continue
		}
		key := adj.ItemKey(item)
		m, err := inventory.NewStockMovement(key, variance, movementType, inventory.MovementDetails{
			UnitCost:  item.UnitCost,
			Reference: ref,
			Reason:    adj.Reason,
			LotNumber: item.LotNumber,
			CreatedBy: by,
		})
		if err != nil {
			return err
		}
		deltas = append(deltas, movementDelta(key, variance, item.UnitCost))
		movements = append(movements, m)
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
}

// findAdjustmentForCount returns the adjustment produced by a count, or nil.
func findAdjustmentForCount(ctx context.Context, repos TransactionalRepositories, tenantID, countID uuid.UUID) (*inventory.InventoryAdjustment, error) {
	adj, err := repos.AdjustmentRepo().FindByStockCount(ctx, tenantID, countID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return adj, err
}

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

// StockCountService provides application services for physical counts
type StockCountService struct {
	txScope TransactionScope
	logger  *zap.Logger
}

// NewStockCountService creates a new StockCountService
func NewStockCountService(txScope TransactionScope, logger *zap.Logger) *StockCountService {
	return &StockCountService{txScope: txScope, logger: logger}
}

// ===================== Commands =====================

// CreateStockCount opens a Draft count.
func (s *StockCountService) CreateStockCount(ctx context.Context, tenantID uuid.UUID, req CreateStockCountRequest) (*StockCountResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	number := req.CountNumber
	if number == "" {
		number = inventory.GenerateCountNumber(time.Now())
	}
	count, err := inventory.NewStockCount(tenantID, number, req.WarehouseID, req.LocationID, req.IncludeAllStock, req.Notes)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		count.SetCreatedBy(*req.CreatedBy)
	}
	for _, it := range req.Items {
		if _, err := count.AddItem(it.ProductID, it.VariantID, it.LocationID); err != nil {
			return nil, err
		}
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.StockCountRepo().ExistsByNumber(ctx, tenantID, number)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewConflictError("ALREADY_EXISTS", fmt.Sprintf("count number %s already exists", number))
		}
		if err := repos.StockCountRepo().Create(ctx, count); err != nil {
			return err
		}
		recordEvents(repos, count)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock count created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("count_number", number),
		zap.String("warehouse_id", req.WarehouseID.String()),
	)
	resp := ToStockCountResponse(count)
	return &resp, nil
}

// AddCountItem adds a product to a Draft count.
func (s *StockCountService) AddCountItem(ctx context.Context, tenantID, countID uuid.UUID, req StockCountItemRequest) (*StockCountResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, tenantID, countID, func(_ TransactionalRepositories, c *inventory.StockCount) error {
		_, err := c.AddItem(req.ProductID, req.VariantID, req.LocationID)
		return err
	})
}

// StartCount snapshots the ledger quantity of every item and opens counting.
// With IncludeAllStock, every non-zero ledger row in scope is added first.
func (s *StockCountService) StartCount(ctx context.Context, tenantID, countID uuid.UUID) (*StockCountResponse, error) {
	return s.mutate(ctx, tenantID, countID, func(repos TransactionalRepositories, c *inventory.StockCount) error {
		if c.Status != inventory.StockCountStatusDraft {
			return shared.NewInvalidTransitionError("stock count", string(c.Status), "start")
		}
		if c.IncludeAllStock {
			if err := s.addStockInScope(ctx, repos, c); err != nil {
				return err
			}
		}

		ledger := NewLedger(repos)
		snapshots := make(map[inventory.StockKey]inventory.Snapshot, len(c.Items))
		for i := range c.Items {
			key := c.ItemKey(&c.Items[i])
			stock, err := ledger.Read(ctx, key)
			if err != nil {
				return err
			}
			snapshots[key] = inventory.Snapshot{Quantity: stock.Quantity, UnitCost: stock.UnitCost}
		}
		return c.Start(func(key inventory.StockKey) (inventory.Snapshot, bool) {
			snap, ok := snapshots[key]
			return snap, ok
		})
	})
}

// RecordCountItem enters the counted quantity of one item. Re-counting overwrites.
func (s *StockCountService) RecordCountItem(ctx context.Context, tenantID, countID uuid.UUID, req RecordCountItemRequest) (*StockCountResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, tenantID, countID, func(_ TransactionalRepositories, c *inventory.StockCount) error {
		return c.RecordCount(req.ItemID, req.CountedQuantity, req.CountedBy, req.Notes)
	})
}

// RecordCountItems enters several counts at once.
func (s *StockCountService) RecordCountItems(ctx context.Context, tenantID, countID uuid.UUID, reqs []RecordCountItemRequest) (*StockCountResponse, error) {
	for _, req := range reqs {
		if err := validateCommand(req); err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, tenantID, countID, func(_ TransactionalRepositories, c *inventory.StockCount) error {
		for _, req := range reqs {
			if err := c.RecordCount(req.ItemID, req.CountedQuantity, req.CountedBy, req.Notes); err != nil {
				return err
			}
		}
		return nil
	})
}

// CompleteCount closes counting. Every item must be counted.
func (s *StockCountService) CompleteCount(ctx context.Context, tenantID, countID uuid.UUID) (*StockCountResponse, error) {
	return s.mutate(ctx, tenantID, countID, func(_ TransactionalRepositories, c *inventory.StockCount) error {
		return c.Complete()
	})
}

// ApproveCount turns the variances of a Completed count into an Approved COUNT_VARIANCE
// adjustment and applies each one to the ledger with a COUNT_CORRECTION movement.
func (s *StockCountService) ApproveCount(ctx context.Context, tenantID, countID, approvedBy uuid.UUID) (*StockCountResponse, error) {
	return s.mutate(ctx, tenantID, countID, func(repos TransactionalRepositories, c *inventory.StockCount) error {
		adj, err := inventory.NewCountAdjustment(c, approvedBy)
		if err != nil {
			return err
		}
		adjID := adj.ID
		if err := c.Approve(approvedBy, &adjID); err != nil {
			return err
		}
		existing, err := findAdjustmentForCount(ctx, repos, tenantID, c.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return shared.NewConflictError("ALREADY_ADJUSTED",
				fmt.Sprintf("stock count %s already produced adjustment %s", c.CountNumber, existing.AdjustmentNumber))
		}
		if err := repos.AdjustmentRepo().Create(ctx, adj); err != nil {
			return err
		}
		by := &approvedBy
		if approvedBy == uuid.Nil {
			by = nil
		}
		if err := postAdjustment(ctx, repos, adj, inventory.MovementTypeCountCorrection, inventory.Reference{
			Type: inventory.ReferenceTypeStockCount, Number: c.CountNumber, ID: c.ID,
		}, by); err != nil {
			return err
		}
		recordEvents(repos, adj)
		return nil
	})
}

// CancelCount abandons a Draft or InProgress count.
func (s *StockCountService) CancelCount(ctx context.Context, tenantID, countID uuid.UUID, reason string) (*StockCountResponse, error) {
	return s.mutate(ctx, tenantID, countID, func(_ TransactionalRepositories, c *inventory.StockCount) error {
		return c.Cancel(reason)
	})
}

// ===================== Queries =====================

// GetStockCount returns a count by ID.
func (s *StockCountService) GetStockCount(ctx context.Context, tenantID, countID uuid.UUID) (*StockCountResponse, error) {
	var resp StockCountResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.StockCountRepo().FindByID(ctx, tenantID, countID)
		if err != nil {
			return err
		}
		resp = ToStockCountResponse(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetStockCountByNumber returns a count by its number.
func (s *StockCountService) GetStockCountByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*StockCountResponse, error) {
	var resp StockCountResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.StockCountRepo().FindByNumber(ctx, tenantID, number)
		if err != nil {
			return err
		}
		resp = ToStockCountResponse(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListStockCounts returns counts filtered by warehouse and status.
func (s *StockCountService) ListStockCounts(ctx context.Context, tenantID uuid.UUID, f StockCountListFilter) (*shared.Paginated[StockCountResponse], error) {
	if err := validateCommand(f); err != nil {
		return nil, err
	}
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "created_at"}.Normalize()
	statuses := make([]inventory.StockCountStatus, 0, len(f.Statuses))
	for _, st := range f.Statuses {
		statuses = append(statuses, inventory.StockCountStatus(st))
	}

	var page shared.Paginated[StockCountResponse]
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, total, err := repos.StockCountRepo().FindAll(ctx, tenantID, f.WarehouseID, statuses, filter)
		if err != nil {
			return err
		}
		items := make([]StockCountResponse, len(rows))
		for i := range rows {
			items[i] = ToStockCountResponse(&rows[i])
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ===================== Helpers =====================

func (s *StockCountService) mutate(ctx context.Context, tenantID, countID uuid.UUID,
	fn func(repos TransactionalRepositories, c *inventory.StockCount) error) (*StockCountResponse, error) {
	var (
		resp StockCountResponse
		from inventory.StockCountStatus
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.StockCountRepo().FindByID(ctx, tenantID, countID)
		if err != nil {
			return err
		}
		from = c.Status
		if err := fn(repos, c); err != nil {
			return err
		}
		if err := repos.StockCountRepo().Save(ctx, c); err != nil {
			return err
		}
		recordEvents(repos, c)
		resp = ToStockCountResponse(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if string(from) != resp.Status {
		s.logger.Info("Stock count status changed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("count_number", resp.CountNumber),
			zap.String("from", string(from)),
			zap.String("to", resp.Status),
		)
	}
	return &resp, nil
}

// addStockInScope adds every non-zero ledger row of the count's warehouse (and location,
// when scoped) that is not already an item.
func (s *StockCountService) addStockInScope(ctx context.Context, repos TransactionalRepositories, c *inventory.StockCount) error {
	warehouseID := c.WarehouseID
	scope := inventory.StockScope{WarehouseID: &warehouseID, NonZeroOnly: true}
	if c.LocationID != uuid.Nil {
		locationID := c.LocationID
		scope.LocationID = &locationID
	}
	filter := shared.Filter{Page: 1, PageSize: shared.MaxPageSize, OrderBy: "product_id", OrderDir: "asc"}.Normalize()
	for {
		rows, total, err := repos.StockRepo().FindByScope(ctx, c.TenantID, scope, filter)
		if err != nil {
			return err
		}
		for _, row := range rows {
			_, err := c.AddItem(row.ProductID, row.VariantID, row.LocationID)
			if err != nil && !errors.Is(err, shared.ErrConflict) {
				return err
			}
		}
		if int64(filter.Offset()+len(rows)) >= total || len(rows) == 0 {
			return nil
		}
		filter.Page++
	}
}

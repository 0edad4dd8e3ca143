package inventory

import (
	"context"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockScope narrows ledger queries. Nil fields do not filter.
type StockScope struct {
	ProductID   *uuid.UUID
	VariantID   *uuid.UUID
	WarehouseID *uuid.UUID
	LocationID  *uuid.UUID
	NonZeroOnly bool
}

// StockRepository persists ledger rows.
type StockRepository interface {
	// FindByKey returns the row for key or a NOT_FOUND error.
	FindByKey(ctx context.Context, key StockKey) (*Stock, error)
	// GetOrCreate returns the row for key, inserting an empty one if absent.
	GetOrCreate(ctx context.Context, key StockKey) (*Stock, error)
	// SaveWithLock updates the row only if its stored version equals the expected version.
	SaveWithLock(ctx context.Context, stock *Stock) error
	FindByScope(ctx context.Context, tenantID uuid.UUID, scope StockScope, filter shared.Filter) ([]Stock, int64, error)
	// SumLevel aggregates on-hand and available over all variants and locations of a product,
	// and over all warehouses when warehouseID is nil.
	SumLevel(ctx context.Context, tenantID, productID uuid.UUID, warehouseID *uuid.UUID) (StockLevel, error)
}

// MovementRepository persists the append-only journal.
type MovementRepository interface {
	Create(ctx context.Context, movement *StockMovement) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*StockMovement, error)
	// FindReversalOf returns the movement that reversed id, or nil.
	FindReversalOf(ctx context.Context, tenantID, id uuid.UUID) (*StockMovement, error)
	// SumForKey adds up signed quantities of every movement that affected key.
	SumForKey(ctx context.Context, key StockKey) (decimal.Decimal, error)
	FindHistory(ctx context.Context, tenantID uuid.UUID, mf MovementFilter, filter shared.Filter) ([]StockMovement, int64, error)
}

// ReservationFilter narrows reservation lists.
type ReservationFilter struct {
	ProductID       *uuid.UUID
	WarehouseID     *uuid.UUID
	Status          []ReservationStatus
	ReferenceNumber string
}

// ReservationRepository persists reservations.
type ReservationRepository interface {
	Create(ctx context.Context, r *StockReservation) error
	Save(ctx context.Context, r *StockReservation) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*StockReservation, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*StockReservation, error)
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, rf ReservationFilter, filter shared.Filter) ([]StockReservation, int64, error)
	// FindDue lists Active reservations of every tenant whose expiry is at or before now.
	FindDue(ctx context.Context, now time.Time, limit int) ([]StockReservation, error)
}

// TransferFilter narrows transfer lists.
type TransferFilter struct {
	WarehouseID *uuid.UUID
	Status      []TransferStatus
}

// TransferRepository persists transfers together with their items.
type TransferRepository interface {
	Create(ctx context.Context, t *StockTransfer) error
	Save(ctx context.Context, t *StockTransfer) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*StockTransfer, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*StockTransfer, error)
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, tf TransferFilter, filter shared.Filter) ([]StockTransfer, int64, error)
}

// StockCountRepository persists counts together with their items.
type StockCountRepository interface {
	Create(ctx context.Context, c *StockCount) error
	Save(ctx context.Context, c *StockCount) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*StockCount, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*StockCount, error)
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, warehouseID *uuid.UUID, status []StockCountStatus, filter shared.Filter) ([]StockCount, int64, error)
}

// AdjustmentRepository persists adjustments together with their items.
type AdjustmentRepository interface {
	Create(ctx context.Context, a *InventoryAdjustment) error
	Save(ctx context.Context, a *InventoryAdjustment) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*InventoryAdjustment, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*InventoryAdjustment, error)
	FindByStockCount(ctx context.Context, tenantID, stockCountID uuid.UUID) (*InventoryAdjustment, error)
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, warehouseID *uuid.UUID, status []AdjustmentStatus, filter shared.Filter) ([]InventoryAdjustment, int64, error)
}

// LotBatchRepository persists lots.
type LotBatchRepository interface {
	Create(ctx context.Context, l *LotBatch) error
	Save(ctx context.Context, l *LotBatch) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*LotBatch, error)
	FindByNumber(ctx context.Context, tenantID, productID uuid.UUID, lotNumber string) (*LotBatch, error)
	ExistsByNumber(ctx context.Context, tenantID, productID uuid.UUID, lotNumber string) (bool, error)
	// FindExpiring lists non-consumed lots whose expiry falls in [from, until).
	FindExpiring(ctx context.Context, tenantID uuid.UUID, from, until time.Time) ([]LotBatch, error)
	// FindExpired lists non-consumed lots whose expiry is at or before now.
	FindExpired(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]LotBatch, error)
}

// SerialNumberRepository persists serialized units.
type SerialNumberRepository interface {
	Create(ctx context.Context, s *SerialNumber) error
	Save(ctx context.Context, s *SerialNumber) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*SerialNumber, error)
	FindBySerial(ctx context.Context, tenantID, productID uuid.UUID, serial string) (*SerialNumber, error)
	ExistsBySerial(ctx context.Context, tenantID, productID uuid.UUID, serial string) (bool, error)
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, status []SerialStatus, filter shared.Filter) ([]SerialNumber, int64, error)
}

// ReorderRuleRepository persists reorder rules.
type ReorderRuleRepository interface {
	Create(ctx context.Context, r *ReorderRule) error
	Save(ctx context.Context, r *ReorderRule) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ReorderRule, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, status []ReorderRuleStatus, filter shared.Filter) ([]ReorderRule, int64, error)
	// FindActiveForProduct lists Active rules scoped to the product whose warehouse scope
	// is nil or equal to warehouseID, highest priority first.
	FindActiveForProduct(ctx context.Context, tenantID, productID, warehouseID uuid.UUID) ([]ReorderRule, error)
	// FindScheduledDue lists Active scheduled rules of every tenant due at now.
	FindScheduledDue(ctx context.Context, now time.Time, limit int) ([]ReorderRule, error)
}

// SuggestionFilter narrows suggestion lists.
type SuggestionFilter struct {
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
	Status      []SuggestionStatus
}

// ReorderSuggestionRepository persists suggestions.
type ReorderSuggestionRepository interface {
	// Create inserts a suggestion. A second Pending suggestion for the same
	// tenant, product and warehouse fails with a CONFLICT error.
	Create(ctx context.Context, s *ReorderSuggestion) error
	Save(ctx context.Context, s *ReorderSuggestion) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ReorderSuggestion, error)
	// FindPendingForScope returns the Pending suggestion for the scope, or nil.
	FindPendingForScope(ctx context.Context, tenantID, productID uuid.UUID, warehouseID *uuid.UUID) (*ReorderSuggestion, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, sf SuggestionFilter, filter shared.Filter) ([]ReorderSuggestion, int64, error)
	// FindDue lists Pending suggestions of every tenant whose expiry is at or before now.
	FindDue(ctx context.Context, now time.Time, limit int) ([]ReorderSuggestion, error)
}

// ProductDirectory resolves category and supplier scopes to product IDs.
// It is provided by the catalog that owns product master data.
type ProductDirectory interface {
	ProductsInCategory(ctx context.Context, tenantID, categoryID uuid.UUID) ([]uuid.UUID, error)
	ProductsBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID) ([]uuid.UUID, error)
}

package inventory

import (
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateReorderRuleRequest creates an Active rule. Exactly one trigger applies: the
// percentage trigger when TriggerBelowPercentage is set, the quantity trigger otherwise.
type CreateReorderRuleRequest struct {
	Name                   string           `json:"name" validate:"required,max=200"`
	Description            string           `json:"description" validate:"max=1000"`
	ProductID              *uuid.UUID       `json:"product_id"`
	CategoryID             *uuid.UUID       `json:"category_id"`
	WarehouseID            *uuid.UUID       `json:"warehouse_id"`
	SupplierID             *uuid.UUID       `json:"supplier_id"`
	TriggerBelowQuantity   decimal.Decimal  `json:"trigger_below_quantity"`
	TriggerBelowPercentage *decimal.Decimal `json:"trigger_below_percentage"`
	FixedReorderQuantity   decimal.Decimal  `json:"fixed_reorder_quantity"`
	ReorderUpToQuantity    decimal.Decimal  `json:"reorder_up_to_quantity"`
	MinimumOrderQuantity   decimal.Decimal  `json:"minimum_order_quantity"`
	MaximumOrderQuantity   *decimal.Decimal `json:"maximum_order_quantity"`
	PackSize               decimal.Decimal  `json:"pack_size"`
	EstimatedUnitCost      decimal.Decimal  `json:"estimated_unit_cost"`
	SuggestionValidity     time.Duration    `json:"suggestion_validity"`
	IsScheduled            bool             `json:"is_scheduled"`
	ScheduleInterval       time.Duration    `json:"schedule_interval"`
	Priority               int              `json:"priority" validate:"gte=0"`
	CreatedBy              *uuid.UUID       `json:"created_by"`
}

func (r CreateReorderRuleRequest) spec() inventory.ReorderRuleSpec {
	return inventory.ReorderRuleSpec{
		Name:                   r.Name,
		Description:            r.Description,
		ProductID:              r.ProductID,
		CategoryID:             r.CategoryID,
		WarehouseID:            r.WarehouseID,
		SupplierID:             r.SupplierID,
		TriggerBelowQuantity:   r.TriggerBelowQuantity,
		TriggerBelowPercentage: r.TriggerBelowPercentage,
		FixedReorderQuantity:   r.FixedReorderQuantity,
		ReorderUpToQuantity:    r.ReorderUpToQuantity,
		MinimumOrderQuantity:   r.MinimumOrderQuantity,
		MaximumOrderQuantity:   r.MaximumOrderQuantity,
		PackSize:               r.PackSize,
		EstimatedUnitCost:      r.EstimatedUnitCost,
		SuggestionValidity:     r.SuggestionValidity,
		IsScheduled:            r.IsScheduled,
		ScheduleInterval:       r.ScheduleInterval,
		Priority:               r.Priority,
	}
}

// ReorderRuleResponse represents a rule in responses
type ReorderRuleResponse struct {
	ID                     uuid.UUID        `json:"id"`
	TenantID               uuid.UUID        `json:"tenant_id"`
	Name                   string           `json:"name"`
	Description            string           `json:"description,omitempty"`
	ProductID              *uuid.UUID       `json:"product_id,omitempty"`
	CategoryID             *uuid.UUID       `json:"category_id,omitempty"`
	WarehouseID            *uuid.UUID       `json:"warehouse_id,omitempty"`
	SupplierID             *uuid.UUID       `json:"supplier_id,omitempty"`
	TriggerBelowQuantity   decimal.Decimal  `json:"trigger_below_quantity"`
	TriggerBelowPercentage *decimal.Decimal `json:"trigger_below_percentage,omitempty"`
	TriggerPoint           decimal.Decimal  `json:"trigger_point"`
	FixedReorderQuantity   decimal.Decimal  `json:"fixed_reorder_quantity"`
	ReorderUpToQuantity    decimal.Decimal  `json:"reorder_up_to_quantity"`
	MinimumOrderQuantity   decimal.Decimal  `json:"minimum_order_quantity"`
	MaximumOrderQuantity   *decimal.Decimal `json:"maximum_order_quantity,omitempty"`
	PackSize               decimal.Decimal  `json:"pack_size"`
	EstimatedUnitCost      decimal.Decimal  `json:"estimated_unit_cost"`
	SuggestionValidity     time.Duration    `json:"suggestion_validity"`
	IsScheduled            bool             `json:"is_scheduled"`
	ScheduleInterval       time.Duration    `json:"schedule_interval"`
	NextScheduledRun       *time.Time       `json:"next_scheduled_run,omitempty"`
	Priority               int              `json:"priority"`
	Status                 string           `json:"status"`
	LastExecutedAt         *time.Time       `json:"last_executed_at,omitempty"`
	ExecutionCount         int              `json:"execution_count"`
	CreatedAt              time.Time        `json:"created_at"`
	Version                int              `json:"version"`
}

// ToReorderRuleResponse converts a domain ReorderRule to a response
func ToReorderRuleResponse(r *inventory.ReorderRule) ReorderRuleResponse {
	return ReorderRuleResponse{
		ID:                     r.ID,
		TenantID:               r.TenantID,
		Name:                   r.Name,
		Description:            r.Description,
		ProductID:              r.ProductID,
		CategoryID:             r.CategoryID,
		WarehouseID:            r.WarehouseID,
		SupplierID:             r.SupplierID,
		TriggerBelowQuantity:   r.TriggerBelowQuantity,
		TriggerBelowPercentage: r.TriggerBelowPercentage,
		TriggerPoint:           r.TriggerPoint(),
		FixedReorderQuantity:   r.FixedReorderQuantity,
		ReorderUpToQuantity:    r.ReorderUpToQuantity,
		MinimumOrderQuantity:   r.MinimumOrderQuantity,
		MaximumOrderQuantity:   r.MaximumOrderQuantity,
		PackSize:               r.PackSize,
		EstimatedUnitCost:      r.EstimatedUnitCost,
		SuggestionValidity:     r.SuggestionValidity,
		IsScheduled:            r.IsScheduled,
		ScheduleInterval:       r.ScheduleInterval,
		NextScheduledRun:       r.NextScheduledRun,
		Priority:               r.Priority,
		Status:                 string(r.Status),
		LastExecutedAt:         r.LastExecutedAt,
		ExecutionCount:         r.ExecutionCount,
		CreatedAt:              r.CreatedAt,
		Version:                r.Version,
	}
}

// ReorderRuleListFilter represents filter options for rule lists
type ReorderRuleListFilter struct {
	Statuses []string `json:"statuses" validate:"dive,oneof=ACTIVE PAUSED DISABLED"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}

// SuggestionResponse represents a reorder suggestion in responses
type SuggestionResponse struct {
	ID                  uuid.UUID       `json:"id"`
	TenantID            uuid.UUID       `json:"tenant_id"`
	ProductID           uuid.UUID       `json:"product_id"`
	WarehouseID         *uuid.UUID      `json:"warehouse_id,omitempty"`
	CurrentStock        decimal.Decimal `json:"current_stock"`
	AvailableStock      decimal.Decimal `json:"available_stock"`
	MinStockLevel       decimal.Decimal `json:"min_stock_level"`
	ReorderLevel        decimal.Decimal `json:"reorder_level"`
	SuggestedQuantity   decimal.Decimal `json:"suggested_quantity"`
	EstimatedCost       decimal.Decimal `json:"estimated_cost"`
	SuggestedSupplierID *uuid.UUID      `json:"suggested_supplier_id,omitempty"`
	TriggeredByRuleID   *uuid.UUID      `json:"triggered_by_rule_id,omitempty"`
	TriggerReason       string          `json:"trigger_reason"`
	Status              string          `json:"status"`
	StatusReason        string          `json:"status_reason,omitempty"`
	ExpiresAt           time.Time       `json:"expires_at"`
	ProcessedAt         *time.Time      `json:"processed_at,omitempty"`
	ProcessedBy         *uuid.UUID      `json:"processed_by,omitempty"`
	PurchaseOrderID     *uuid.UUID      `json:"purchase_order_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	Version             int             `json:"version"`
}

// ToSuggestionResponse converts a domain ReorderSuggestion to a response
func ToSuggestionResponse(s *inventory.ReorderSuggestion) SuggestionResponse {
	return SuggestionResponse{
		ID:                  s.ID,
		TenantID:            s.TenantID,
		ProductID:           s.ProductID,
		WarehouseID:         s.WarehouseID,
		CurrentStock:        s.CurrentStock,
		AvailableStock:      s.AvailableStock,
		MinStockLevel:       s.MinStockLevel,
		ReorderLevel:        s.ReorderLevel,
		SuggestedQuantity:   s.SuggestedQuantity,
		EstimatedCost:       s.EstimatedCost,
		SuggestedSupplierID: s.SuggestedSupplierID,
		TriggeredByRuleID:   s.TriggeredByRuleID,
		TriggerReason:       s.TriggerReason,
		Status:              string(s.Status),
		StatusReason:        s.StatusReason,
		ExpiresAt:           s.ExpiresAt,
		ProcessedAt:         s.ProcessedAt,
		ProcessedBy:         s.ProcessedBy,
		PurchaseOrderID:     s.PurchaseOrderID,
		CreatedAt:           s.CreatedAt,
		Version:             s.Version,
	}
}

// SuggestionListFilter represents filter options for suggestion lists
type SuggestionListFilter struct {
	ProductID   *uuid.UUID `json:"product_id"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
}

// MarkOrderedRequest links a suggestion to the purchase order raised for it.
type MarkOrderedRequest struct {
	PurchaseOrderID uuid.UUID  `json:"purchase_order_id" validate:"required"`
	ProcessedBy     *uuid.UUID `json:"processed_by"`
}

// EvaluationResult summarizes one rule evaluation
type EvaluationResult struct {
	RuleID       uuid.UUID            `json:"rule_id"`
	Targets      int                  `json:"targets"`
	Created      []SuggestionResponse `json:"created"`
	Suppressed   int                  `json:"suppressed"`
	NotTriggered int                  `json:"not_triggered"`
	Expired      int                  `json:"expired"`
	EvaluatedAt  time.Time            `json:"evaluated_at"`
}

// Evaluated reports whether any target was checked against the ledger rather than held
// back by a pending suggestion.
func (r *EvaluationResult) Evaluated() bool {
	return len(r.Created)+r.NotTriggered > 0
}

// RuleSweepResult contains statistics about one scheduled-rule sweep
type RuleSweepResult struct {
	Processed   int       `json:"processed"`
	Suggestions int       `json:"suggestions"`
	Failed      int       `json:"failed"`
	ProcessedAt time.Time `json:"processed_at"`
}

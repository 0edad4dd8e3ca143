package models

import (
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReorderRuleModel is the persistence model for the ReorderRule aggregate.
// Durations are stored in whole seconds.
type ReorderRuleModel struct {
	TenantAggregateModel
	Name                   string           `gorm:"type:varchar(200);not null"`
	Description            string           `gorm:"type:varchar(1000)"`
	ProductID              *uuid.UUID       `gorm:"type:uuid;index"`
	CategoryID             *uuid.UUID       `gorm:"type:uuid"`
	WarehouseID            *uuid.UUID       `gorm:"type:uuid"`
	SupplierID             *uuid.UUID       `gorm:"type:uuid"`
	TriggerBelowQuantity   decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	TriggerBelowPercentage *decimal.Decimal `gorm:"type:decimal(9,4)"`
	FixedReorderQuantity   decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	ReorderUpToQuantity    decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	MinimumOrderQuantity   decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	MaximumOrderQuantity   *decimal.Decimal `gorm:"type:decimal(18,4)"`
	PackSize               decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	EstimatedUnitCost      decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	SuggestionValiditySecs int64            `gorm:"column:suggestion_validity_seconds;not null"`
	IsScheduled            bool             `gorm:"not null;default:false"`
	ScheduleIntervalSecs   int64            `gorm:"column:schedule_interval_seconds;not null;default:0"`
	NextScheduledRun       *time.Time       `gorm:"index"`
	Priority               int              `gorm:"not null;default:0"`
	Status                 string           `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	LastExecutedAt         *time.Time
	ExecutionCount         int              `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ReorderRuleModel) TableName() string {
	return "reorder_rules"
}

// ToDomain converts the persistence model to a domain ReorderRule
func (m *ReorderRuleModel) ToDomain() *inventory.ReorderRule {
	return &inventory.ReorderRule{
		TenantAggregateRoot:    m.ToDomainTenantAggregateRoot(),
		Name:                   m.Name,
		Description:            m.Description,
		ProductID:              m.ProductID,
		CategoryID:             m.CategoryID,
		WarehouseID:            m.WarehouseID,
		SupplierID:             m.SupplierID,
		TriggerBelowQuantity:   m.TriggerBelowQuantity,
		TriggerBelowPercentage: m.TriggerBelowPercentage,
		FixedReorderQuantity:   m.FixedReorderQuantity,
		ReorderUpToQuantity:    m.ReorderUpToQuantity,
		MinimumOrderQuantity:   m.MinimumOrderQuantity,
		MaximumOrderQuantity:   m.MaximumOrderQuantity,
		PackSize:               m.PackSize,
		EstimatedUnitCost:      m.EstimatedUnitCost,
		SuggestionValidity:     time.Duration(m.SuggestionValiditySecs) * time.Second,
		IsScheduled:            m.IsScheduled,
		ScheduleInterval:       time.Duration(m.ScheduleIntervalSecs) * time.Second,
		NextScheduledRun:       m.NextScheduledRun,
		Priority:               m.Priority,
		Status:                 inventory.ReorderRuleStatus(m.Status),
		LastExecutedAt:         m.LastExecutedAt,
		ExecutionCount:         m.ExecutionCount,
	}
}

// ReorderRuleModelFromDomain creates a new persistence model from a domain ReorderRule
func ReorderRuleModelFromDomain(r *inventory.ReorderRule) *ReorderRuleModel {
	m := &ReorderRuleModel{
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
		SuggestionValiditySecs: int64(r.SuggestionValidity / time.Second),
		IsScheduled:            r.IsScheduled,
		ScheduleIntervalSecs:   int64(r.ScheduleInterval / time.Second),
		NextScheduledRun:       r.NextScheduledRun,
		Priority:               r.Priority,
		Status:                 string(r.Status),
		LastExecutedAt:         r.LastExecutedAt,
		ExecutionCount:         r.ExecutionCount,
	}
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	return m
}

// ReorderSuggestionModel is the persistence model for the ReorderSuggestion aggregate.
// WarehouseScope mirrors WarehouseID with the zero UUID standing for "all warehouses",
// so the partial unique index over Pending rows also covers unscoped suggestions.
type ReorderSuggestionModel struct {
	TenantAggregateModel
	ProductID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_suggestion_pending_scope,priority:2,where:status = 'PENDING'"`
	WarehouseID         *uuid.UUID      `gorm:"type:uuid"`
	WarehouseScope      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_suggestion_pending_scope,priority:3"`
	CurrentStock        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AvailableStock      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	MinStockLevel       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReorderLevel        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SuggestedQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	EstimatedCost       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SuggestedSupplierID *uuid.UUID      `gorm:"type:uuid"`
	TriggeredByRuleID   *uuid.UUID      `gorm:"type:uuid;index"`
	TriggerReason       string          `gorm:"type:varchar(500)"`
	Status              string          `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	StatusReason        string          `gorm:"type:varchar(500)"`
	ExpiresAt           time.Time       `gorm:"not null;index"`
	ProcessedAt         *time.Time
	ProcessedBy         *uuid.UUID      `gorm:"type:uuid"`
	PurchaseOrderID     *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ReorderSuggestionModel) TableName() string {
	return "reorder_suggestions"
}

// ToDomain converts the persistence model to a domain ReorderSuggestion
func (m *ReorderSuggestionModel) ToDomain() *inventory.ReorderSuggestion {
	return &inventory.ReorderSuggestion{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		ProductID:           m.ProductID,
		WarehouseID:         m.WarehouseID,
		CurrentStock:        m.CurrentStock,
		AvailableStock:      m.AvailableStock,
		MinStockLevel:       m.MinStockLevel,
		ReorderLevel:        m.ReorderLevel,
		SuggestedQuantity:   m.SuggestedQuantity,
		EstimatedCost:       m.EstimatedCost,
		SuggestedSupplierID: m.SuggestedSupplierID,
		TriggeredByRuleID:   m.TriggeredByRuleID,
		TriggerReason:       m.TriggerReason,
		Status:              inventory.SuggestionStatus(m.Status),
		StatusReason:        m.StatusReason,
		ExpiresAt:           m.ExpiresAt,
		ProcessedAt:         m.ProcessedAt,
		ProcessedBy:         m.ProcessedBy,
		PurchaseOrderID:     m.PurchaseOrderID,
	}
}

// ReorderSuggestionModelFromDomain creates a new persistence model from a domain ReorderSuggestion
func ReorderSuggestionModelFromDomain(s *inventory.ReorderSuggestion) *ReorderSuggestionModel {
	m := &ReorderSuggestionModel{
		ProductID:           s.ProductID,
		WarehouseID:         s.WarehouseID,
		WarehouseScope:      idOrNil(s.WarehouseID),
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
	}
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	return m
}

package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeReorderRule       = "ReorderRule"
	AggregateTypeReorderSuggestion = "ReorderSuggestion"
)

// DefaultSuggestionValidity is how long a suggestion stays Pending before it expires.
const DefaultSuggestionValidity = 7 * 24 * time.Hour

// ReorderRuleStatus is the lifecycle state of a rule.
type ReorderRuleStatus string

const (
	ReorderRuleStatusActive   ReorderRuleStatus = "ACTIVE"
	ReorderRuleStatusPaused   ReorderRuleStatus = "PAUSED"
	ReorderRuleStatusDisabled ReorderRuleStatus = "DISABLED"
)

// ReorderRule is a replenishment policy evaluated against available stock.
type ReorderRule struct {
	shared.TenantAggregateRoot
	Name                   string
	Description            string
	ProductID              *uuid.UUID
	CategoryID             *uuid.UUID
	WarehouseID            *uuid.UUID
	SupplierID             *uuid.UUID
	TriggerBelowQuantity   decimal.Decimal
	TriggerBelowPercentage *decimal.Decimal
	FixedReorderQuantity   decimal.Decimal
	ReorderUpToQuantity    decimal.Decimal
	MinimumOrderQuantity   decimal.Decimal
	MaximumOrderQuantity   *decimal.Decimal
	PackSize               decimal.Decimal
	EstimatedUnitCost      decimal.Decimal
	SuggestionValidity     time.Duration
	IsScheduled            bool
	ScheduleInterval       time.Duration
	NextScheduledRun       *time.Time
	Priority               int
	Status                 ReorderRuleStatus
	LastExecutedAt         *time.Time
	ExecutionCount         int
}

// ReorderRuleSpec describes a rule to create.
type ReorderRuleSpec struct {
	Name                   string
	Description            string
	ProductID              *uuid.UUID
	CategoryID             *uuid.UUID
	WarehouseID            *uuid.UUID
	SupplierID             *uuid.UUID
	TriggerBelowQuantity   decimal.Decimal
	TriggerBelowPercentage *decimal.Decimal
	FixedReorderQuantity   decimal.Decimal
	ReorderUpToQuantity    decimal.Decimal
	MinimumOrderQuantity   decimal.Decimal
	MaximumOrderQuantity   *decimal.Decimal
	PackSize               decimal.Decimal
	EstimatedUnitCost      decimal.Decimal
	SuggestionValidity     time.Duration
	IsScheduled            bool
	ScheduleInterval       time.Duration
	Priority               int
}

// NewReorderRule validates spec and creates an Active rule.
func NewReorderRule(tenantID uuid.UUID, spec ReorderRuleSpec, now time.Time) (*ReorderRule, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, shared.NewValidationError("INVALID_NAME", "rule name is required")
	}
	if spec.ProductID == nil && spec.CategoryID == nil && spec.SupplierID == nil {
		return nil, shared.NewValidationError("INVALID_SCOPE", "rule needs a product, category or supplier scope")
	}
	if spec.TriggerBelowPercentage != nil {
		p := *spec.TriggerBelowPercentage
		if !p.IsPositive() || p.GreaterThan(decimal.NewFromInt(100)) {
			return nil, shared.NewValidationError("INVALID_TRIGGER", "trigger percentage must be in (0, 100]")
		}
		if !spec.ReorderUpToQuantity.IsPositive() {
			return nil, shared.NewValidationError("INVALID_TRIGGER", "percentage trigger needs a reorder-up-to quantity")
		}
	} else if !spec.TriggerBelowQuantity.IsPositive() {
		return nil, shared.NewValidationError("INVALID_TRIGGER", "trigger quantity must be positive")
	}
	for name, q := range map[string]decimal.Decimal{
		"fixed reorder quantity": spec.FixedReorderQuantity,
		"reorder up-to quantity": spec.ReorderUpToQuantity,
		"minimum order quantity": spec.MinimumOrderQuantity,
		"pack size":              spec.PackSize,
		"estimated unit cost":    spec.EstimatedUnitCost,
	} {
		if q.IsNegative() {
			return nil, shared.NewValidationError("INVALID_QUANTITY", name+" cannot be negative")
		}
	}
	if spec.FixedReorderQuantity.IsZero() && spec.ReorderUpToQuantity.IsZero() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "rule needs a fixed or reorder-up-to quantity")
	}
	if spec.MaximumOrderQuantity != nil && spec.MaximumOrderQuantity.LessThan(spec.MinimumOrderQuantity) {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "maximum order quantity is below the minimum")
	}
	if spec.IsScheduled && spec.ScheduleInterval <= 0 {
		return nil, shared.NewValidationError("INVALID_SCHEDULE", "scheduled rules need a positive interval")
	}

	validity := spec.SuggestionValidity
	if validity <= 0 {
		validity = DefaultSuggestionValidity
	}
	rule := &ReorderRule{
		TenantAggregateRoot:    shared.NewTenantAggregateRoot(tenantID),
		Name:                   strings.TrimSpace(spec.Name),
		Description:            spec.Description,
		ProductID:              spec.ProductID,
		CategoryID:             spec.CategoryID,
		WarehouseID:            spec.WarehouseID,
		SupplierID:             spec.SupplierID,
		TriggerBelowQuantity:   spec.TriggerBelowQuantity,
		TriggerBelowPercentage: spec.TriggerBelowPercentage,
		FixedReorderQuantity:   spec.FixedReorderQuantity,
		ReorderUpToQuantity:    spec.ReorderUpToQuantity,
		MinimumOrderQuantity:   spec.MinimumOrderQuantity,
		MaximumOrderQuantity:   spec.MaximumOrderQuantity,
		PackSize:               spec.PackSize,
		EstimatedUnitCost:      spec.EstimatedUnitCost,
		SuggestionValidity:     validity,
		IsScheduled:            spec.IsScheduled,
		ScheduleInterval:       spec.ScheduleInterval,
		Priority:               spec.Priority,
		Status:                 ReorderRuleStatusActive,
	}
	if rule.IsScheduled {
		next := now.UTC().Add(rule.ScheduleInterval)
		rule.NextScheduledRun = &next
	}
	return rule, nil
}

// TriggerPoint is the available quantity below which the rule fires.
func (r *ReorderRule) TriggerPoint() decimal.Decimal {
	if r.TriggerBelowPercentage != nil {
		return r.ReorderUpToQuantity.Mul(*r.TriggerBelowPercentage).Div(decimal.NewFromInt(100))
	}
	return r.TriggerBelowQuantity
}

// IsTriggered reports whether available is below the trigger point.
func (r *ReorderRule) IsTriggered(available decimal.Decimal) bool {
	return available.LessThan(r.TriggerPoint())
}

// SuggestedQuantity computes max(fixed, upTo - available), rounded up to the pack size
// and clamped to [min, max]. A non-positive result means nothing to order.
func (r *ReorderRule) SuggestedQuantity(available decimal.Decimal) decimal.Decimal {
	qty := decimal.Max(r.FixedReorderQuantity, r.ReorderUpToQuantity.Sub(available))
	if !qty.IsPositive() {
		return decimal.Zero
	}
	if r.PackSize.IsPositive() {
		qty = qty.Div(r.PackSize).Ceil().Mul(r.PackSize)
	}
	if qty.LessThan(r.MinimumOrderQuantity) {
		qty = r.MinimumOrderQuantity
	}
	if r.MaximumOrderQuantity != nil && r.MaximumOrderQuantity.IsPositive() && qty.GreaterThan(*r.MaximumOrderQuantity) {
		qty = *r.MaximumOrderQuantity
	}
	return qty
}

// CanEvaluate returns a validation error unless the rule is Active.
func (r *ReorderRule) CanEvaluate() error {
	if r.Status != ReorderRuleStatusActive {
		return shared.NewInvalidTransitionError("reorder rule", string(r.Status), "evaluate")
	}
	return nil
}

// MarkExecuted stamps an evaluation that checked at least one target and advances the
// schedule.
func (r *ReorderRule) MarkExecuted(now time.Time) {
	at := now.UTC()
	r.LastExecutedAt = &at
	r.ExecutionCount++
	r.AdvanceSchedule(now)
}

// AdvanceSchedule moves NextScheduledRun past now without counting an execution. A run
// whose every target was held back by a pending suggestion still needs its schedule
// moved, or the due-rule sweep would pick it up again immediately.
func (r *ReorderRule) AdvanceSchedule(now time.Time) {
	if r.IsScheduled && r.ScheduleInterval > 0 {
		next := now.UTC().Add(r.ScheduleInterval)
		r.NextScheduledRun = &next
	}
	r.IncrementVersion()
}

func (r *ReorderRule) setStatus(target ReorderRuleStatus, action string, from ...ReorderRuleStatus) error {
	for _, s := range from {
		if r.Status == s {
			r.Status = target
			r.IncrementVersion()
			return nil
		}
	}
	return shared.NewInvalidTransitionError("reorder rule", string(r.Status), action)
}

// Pause suspends an Active rule.
func (r *ReorderRule) Pause() error {
	return r.setStatus(ReorderRuleStatusPaused, "pause", ReorderRuleStatusActive)
}

// Activate resumes a Paused or Disabled rule.
func (r *ReorderRule) Activate() error {
	return r.setStatus(ReorderRuleStatusActive, "activate", ReorderRuleStatusPaused, ReorderRuleStatusDisabled)
}

// Disable switches off an Active or Paused rule.
func (r *ReorderRule) Disable() error {
	return r.setStatus(ReorderRuleStatusDisabled, "disable", ReorderRuleStatusActive, ReorderRuleStatusPaused)
}

// SuggestionStatus is the lifecycle state of a suggestion.
type SuggestionStatus string

const (
	SuggestionStatusPending  SuggestionStatus = "PENDING"
	SuggestionStatusApproved SuggestionStatus = "APPROVED"
	SuggestionStatusRejected SuggestionStatus = "REJECTED"
	SuggestionStatusExpired  SuggestionStatus = "EXPIRED"
	SuggestionStatusOrdered  SuggestionStatus = "ORDERED"
)

var suggestionTransitions = map[SuggestionStatus][]SuggestionStatus{
	SuggestionStatusApproved: {SuggestionStatusPending},
	SuggestionStatusRejected: {SuggestionStatusPending},
	SuggestionStatusExpired:  {SuggestionStatusPending},
	SuggestionStatusOrdered:  {SuggestionStatusPending, SuggestionStatusApproved},
}

// IsPurchasable reports whether downstream purchasing may reference a suggestion in this state.
func (s SuggestionStatus) IsPurchasable() bool {
	return s == SuggestionStatusApproved || s == SuggestionStatusOrdered
}

// ReorderSuggestion is a time-boxed replenishment proposal produced by a rule.
type ReorderSuggestion struct {
	shared.TenantAggregateRoot
	ProductID           uuid.UUID
	WarehouseID         *uuid.UUID
	CurrentStock        decimal.Decimal
	AvailableStock      decimal.Decimal
	MinStockLevel       decimal.Decimal
	ReorderLevel        decimal.Decimal
	SuggestedQuantity   decimal.Decimal
	EstimatedCost       decimal.Decimal
	SuggestedSupplierID *uuid.UUID
	TriggeredByRuleID   *uuid.UUID
	TriggerReason       string
	Status              SuggestionStatus
	StatusReason        string
	ExpiresAt           time.Time
	ProcessedAt         *time.Time
	ProcessedBy         *uuid.UUID
	PurchaseOrderID     *uuid.UUID
}

// StockLevel is the aggregated ledger state for one evaluation target.
type StockLevel struct {
	OnHand    decimal.Decimal
	Available decimal.Decimal
}

// NewReorderSuggestion builds a Pending suggestion for the target, or returns nil when
// the rule does not fire or computes nothing to order.
func NewReorderSuggestion(rule *ReorderRule, productID uuid.UUID, warehouseID *uuid.UUID, level StockLevel, now time.Time) *ReorderSuggestion {
	if !rule.IsTriggered(level.Available) {
		return nil
	}
	qty := rule.SuggestedQuantity(level.Available)
	if !qty.IsPositive() {
		return nil
	}
	ruleID := rule.ID
	s := &ReorderSuggestion{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(rule.TenantID),
		ProductID:           productID,
		WarehouseID:         warehouseID,
		CurrentStock:        level.OnHand,
		AvailableStock:      level.Available,
		MinStockLevel:       rule.MinimumOrderQuantity,
		ReorderLevel:        rule.TriggerPoint(),
		SuggestedQuantity:   qty,
		EstimatedCost:       qty.Mul(rule.EstimatedUnitCost),
		SuggestedSupplierID: rule.SupplierID,
		TriggeredByRuleID:   &ruleID,
		TriggerReason:       fmt.Sprintf("rule %q: available %s below %s", rule.Name, level.Available, rule.TriggerPoint()),
		Status:              SuggestionStatusPending,
		ExpiresAt:           now.UTC().Add(rule.SuggestionValidity),
	}
	s.AddDomainEvent(NewSuggestionStatusChangedEvent(s, ""))
	return s
}

// IsExpiredAt reports whether a Pending suggestion is past its expiry.
func (s *ReorderSuggestion) IsExpiredAt(now time.Time) bool {
	return s.Status == SuggestionStatusPending && !s.ExpiresAt.After(now)
}

func (s *ReorderSuggestion) moveTo(target SuggestionStatus, action, reason string, by *uuid.UUID) error {
	allowed := false
	for _, from := range suggestionTransitions[target] {
		if from == s.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		return shared.NewInvalidTransitionError("reorder suggestion", string(s.Status), action)
	}
	from := s.Status
	now := time.Now().UTC()
	s.Status = target
	s.StatusReason = reason
	s.ProcessedAt = &now
	s.ProcessedBy = by
	s.IncrementVersion()
	s.AddDomainEvent(NewSuggestionStatusChangedEvent(s, from))
	return nil
}

// Approve accepts a Pending, unexpired suggestion.
func (s *ReorderSuggestion) Approve(by *uuid.UUID, now time.Time) error {
	if s.IsExpiredAt(now) {
		return shared.NewValidationError("SUGGESTION_EXPIRED", "suggestion has expired")
	}
	return s.moveTo(SuggestionStatusApproved, "approve", "", by)
}

// Reject declines a Pending suggestion.
func (s *ReorderSuggestion) Reject(reason string, by *uuid.UUID) error {
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("REASON_REQUIRED", "rejection reason is required")
	}
	return s.moveTo(SuggestionStatusRejected, "reject", reason, by)
}

// Expire marks a due Pending suggestion Expired.
func (s *ReorderSuggestion) Expire(now time.Time) error {
	if s.Status == SuggestionStatusPending && s.ExpiresAt.After(now) {
		return shared.NewValidationError("NOT_DUE", "suggestion has not expired yet")
	}
	return s.moveTo(SuggestionStatusExpired, "expire", "validity elapsed", nil)
}

// MarkOrdered links the purchase order raised for a Pending or Approved suggestion.
func (s *ReorderSuggestion) MarkOrdered(purchaseOrderID uuid.UUID, by *uuid.UUID) error {
	if purchaseOrderID == uuid.Nil {
		return shared.NewValidationError("INVALID_PURCHASE_ORDER", "purchase order ID is required")
	}
	if err := s.moveTo(SuggestionStatusOrdered, "order", "", by); err != nil {
		return err
	}
	s.PurchaseOrderID = &purchaseOrderID
	return nil
}

package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReorderService evaluates replenishment rules and manages the suggestions they produce.
type ReorderService struct {
	txScope   TransactionScope
	directory inventory.ProductDirectory
	logger    *zap.Logger
	clock     func() time.Time
	validity  time.Duration
}

// NewReorderService creates a new ReorderService. directory may be nil, in which case
// category and supplier scoped rules cannot be evaluated.
func NewReorderService(txScope TransactionScope, directory inventory.ProductDirectory, logger *zap.Logger) *ReorderService {
	return &ReorderService{
		txScope:   txScope,
		directory: directory,
		logger:    logger,
		clock:     time.Now,
	}
}

// SetDefaultValidity sets the suggestion validity for rules created without one.
// Zero keeps the domain default.
func (s *ReorderService) SetDefaultValidity(d time.Duration) {
	s.validity = d
}

// SetClock replaces the time source.
func (s *ReorderService) SetClock(clock func() time.Time) {
	s.clock = clock
}

// ===================== Rules =====================

// CreateReorderRule creates an Active rule.
func (s *ReorderService) CreateReorderRule(ctx context.Context, tenantID uuid.UUID, req CreateReorderRuleRequest) (*ReorderRuleResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	spec := req.spec()
	if spec.SuggestionValidity <= 0 && s.validity > 0 {
		spec.SuggestionValidity = s.validity
	}
	rule, err := inventory.NewReorderRule(tenantID, spec, s.clock())
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		rule.SetCreatedBy(*req.CreatedBy)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.ReorderRuleRepo().Create(ctx, rule)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reorder rule created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("rule_id", rule.ID.String()),
		zap.String("name", rule.Name),
		zap.String("trigger_point", rule.TriggerPoint().String()),
	)
	resp := ToReorderRuleResponse(rule)
	return &resp, nil
}

// ActivateRule resumes a Paused or Disabled rule.
func (s *ReorderService) ActivateRule(ctx context.Context, tenantID, ruleID uuid.UUID) (*ReorderRuleResponse, error) {
	return s.mutateRule(ctx, tenantID, ruleID, (*inventory.ReorderRule).Activate)
}

// PauseRule suspends an Active rule.
func (s *ReorderService) PauseRule(ctx context.Context, tenantID, ruleID uuid.UUID) (*ReorderRuleResponse, error) {
	return s.mutateRule(ctx, tenantID, ruleID, (*inventory.ReorderRule).Pause)
}

// DisableRule switches a rule off.
func (s *ReorderService) DisableRule(ctx context.Context, tenantID, ruleID uuid.UUID) (*ReorderRuleResponse, error) {
	return s.mutateRule(ctx, tenantID, ruleID, (*inventory.ReorderRule).Disable)
}

// GetRule returns a rule by ID.
func (s *ReorderService) GetRule(ctx context.Context, tenantID, ruleID uuid.UUID) (*ReorderRuleResponse, error) {
	var resp ReorderRuleResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReorderRuleRepo().FindByID(ctx, tenantID, ruleID)
		if err != nil {
			return err
		}
		resp = ToReorderRuleResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRules returns rules filtered by status, highest priority first.
func (s *ReorderService) ListRules(ctx context.Context, tenantID uuid.UUID, f ReorderRuleListFilter) (*shared.Paginated[ReorderRuleResponse], error) {
	if err := validateCommand(f); err != nil {
		return nil, err
	}
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "priority"}.Normalize()
	statuses := make([]inventory.ReorderRuleStatus, 0, len(f.Statuses))
	for _, st := range f.Statuses {
		statuses = append(statuses, inventory.ReorderRuleStatus(st))
	}

	var page shared.Paginated[ReorderRuleResponse]
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, total, err := repos.ReorderRuleRepo().FindAll(ctx, tenantID, statuses, filter)
		if err != nil {
			return err
		}
		items := make([]ReorderRuleResponse, len(rows))
		for i := range rows {
			items[i] = ToReorderRuleResponse(&rows[i])
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *ReorderService) mutateRule(ctx context.Context, tenantID, ruleID uuid.UUID, fn func(*inventory.ReorderRule) error) (*ReorderRuleResponse, error) {
	var resp ReorderRuleResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReorderRuleRepo().FindByID(ctx, tenantID, ruleID)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
		if err := repos.ReorderRuleRepo().Save(ctx, r); err != nil {
			return err
		}
		resp = ToReorderRuleResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Reorder rule status changed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("rule_id", ruleID.String()),
		zap.String("status", resp.Status),
	)
	return &resp, nil
}

// ===================== Evaluation =====================

// EvaluateReorderRule checks every target of the rule against the ledger and creates a
// Pending suggestion where available stock is below the trigger point. A target that
// already has an unexpired Pending suggestion is skipped.
func (s *ReorderService) EvaluateReorderRule(ctx context.Context, tenantID, ruleID uuid.UUID) (*EvaluationResult, error) {
	now := s.clock().UTC()
	result := &EvaluationResult{RuleID: ruleID, EvaluatedAt: now, Created: []SuggestionResponse{}}

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rule, err := repos.ReorderRuleRepo().FindByID(ctx, tenantID, ruleID)
		if err != nil {
			return err
		}
		if err := rule.CanEvaluate(); err != nil {
			return err
		}
		products, err := s.resolveTargets(ctx, rule)
		if err != nil {
			return err
		}
		result.Targets = len(products)

		for _, productID := range products {
			if err := s.evaluateTarget(ctx, repos, rule, productID, now, result); err != nil {
				return err
			}
		}

		if result.Evaluated() {
			rule.MarkExecuted(now)
		} else {
			rule.AdvanceSchedule(now)
		}
		return repos.ReorderRuleRepo().Save(ctx, rule)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reorder rule evaluated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("rule_id", ruleID.String()),
		zap.Int("targets", result.Targets),
		zap.Int("created", len(result.Created)),
		zap.Int("suppressed", result.Suppressed),
		zap.Int("not_triggered", result.NotTriggered),
	)
	return result, nil
}

func (s *ReorderService) resolveTargets(ctx context.Context, rule *inventory.ReorderRule) ([]uuid.UUID, error) {
	switch {
	case rule.ProductID != nil:
		return []uuid.UUID{*rule.ProductID}, nil
	case s.directory == nil:
		return nil, shared.NewValidationError("NO_PRODUCT_DIRECTORY",
			"category and supplier scoped rules need a product directory")
	case rule.CategoryID != nil:
		return s.directory.ProductsInCategory(ctx, rule.TenantID, *rule.CategoryID)
	case rule.SupplierID != nil:
		return s.directory.ProductsBySupplier(ctx, rule.TenantID, *rule.SupplierID)
	}
	return nil, shared.NewValidationError("INVALID_SCOPE", "rule has no product, category or supplier scope")
}

func (s *ReorderService) evaluateTarget(ctx context.Context, repos TransactionalRepositories, rule *inventory.ReorderRule,
	productID uuid.UUID, now time.Time, result *EvaluationResult) error {
	pending, err := repos.SuggestionRepo().FindPendingForScope(ctx, rule.TenantID, productID, rule.WarehouseID)
	if err != nil {
		return err
	}
	if pending != nil {
		if !pending.IsExpiredAt(now) {
			result.Suppressed++
			return nil
		}
		if err := pending.Expire(now); err != nil {
			return err
		}
		if err := repos.SuggestionRepo().Save(ctx, pending); err != nil {
			return err
		}
		recordEvents(repos, pending)
		result.Expired++
	}

	level, err := repos.StockRepo().SumLevel(ctx, rule.TenantID, productID, rule.WarehouseID)
	if err != nil {
		return err
	}
	suggestion := inventory.NewReorderSuggestion(rule, productID, rule.WarehouseID, level, now)
	if suggestion == nil {
		result.NotTriggered++
		return nil
	}
	if err := repos.SuggestionRepo().Create(ctx, suggestion); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			result.Suppressed++
			return nil
		}
		return err
	}
	recordEvents(repos, suggestion)
	result.Created = append(result.Created, ToSuggestionResponse(suggestion))
	return nil
}

// EvaluateForStock evaluates every Active rule scoped to the product whose warehouse scope
// matches. It returns the number of suggestions created.
func (s *ReorderService) EvaluateForStock(ctx context.Context, tenantID, productID, warehouseID uuid.UUID) (int, error) {
	var rules []inventory.ReorderRule
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, err := repos.ReorderRuleRepo().FindActiveForProduct(ctx, tenantID, productID, warehouseID)
		rules = rows
		return err
	})
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range rules {
		res, err := s.EvaluateReorderRule(ctx, tenantID, rules[i].ID)
		if err != nil {
			return created, err
		}
		created += len(res.Created)
	}
	return created, nil
}

// EvaluateDue evaluates scheduled rules whose next run is due, each in its own transaction.
func (s *ReorderService) EvaluateDue(ctx context.Context, limit int) (*RuleSweepResult, error) {
	start := time.Now()
	now := s.clock().UTC()
	if limit <= 0 {
		limit = DefaultSweepBatchSize
	}
	result := &RuleSweepResult{ProcessedAt: now}

	var due []inventory.ReorderRule
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, err := repos.ReorderRuleRepo().FindScheduledDue(ctx, now, limit)
		due = rows
		return err
	})
	if err != nil {
		s.logger.Error("Failed to find due reorder rules", zap.Error(err))
		return nil, err
	}

	for i := range due {
		if ctx.Err() != nil {
			break
		}
		rule := &due[i]
		result.Processed++
		res, err := s.EvaluateReorderRule(ctx, rule.TenantID, rule.ID)
		if err != nil {
			result.Failed++
			s.logger.Warn("Failed to evaluate scheduled reorder rule",
				zap.String("tenant_id", rule.TenantID.String()),
				zap.String("rule_id", rule.ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Suggestions += len(res.Created)
	}

	if result.Processed > 0 {
		s.logger.Info("Completed scheduled reorder sweep",
			zap.Int("processed", result.Processed),
			zap.Int("suggestions", result.Suggestions),
			zap.Int("failed", result.Failed),
			since(start),
		)
	}
	return result, nil
}

// ===================== Suggestions =====================

// ApproveSuggestion accepts a Pending, unexpired suggestion.
func (s *ReorderService) ApproveSuggestion(ctx context.Context, tenantID, suggestionID uuid.UUID, by *uuid.UUID) (*SuggestionResponse, error) {
	now := s.clock().UTC()
	return s.mutateSuggestion(ctx, tenantID, suggestionID, func(sg *inventory.ReorderSuggestion) error {
		return sg.Approve(by, now)
	})
}

// RejectSuggestion declines a Pending suggestion.
func (s *ReorderService) RejectSuggestion(ctx context.Context, tenantID, suggestionID uuid.UUID, reason string, by *uuid.UUID) (*SuggestionResponse, error) {
	return s.mutateSuggestion(ctx, tenantID, suggestionID, func(sg *inventory.ReorderSuggestion) error {
		return sg.Reject(reason, by)
	})
}

// MarkSuggestionOrdered records the purchase order raised for a suggestion.
func (s *ReorderService) MarkSuggestionOrdered(ctx context.Context, tenantID, suggestionID uuid.UUID, req MarkOrderedRequest) (*SuggestionResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	return s.mutateSuggestion(ctx, tenantID, suggestionID, func(sg *inventory.ReorderSuggestion) error {
		return sg.MarkOrdered(req.PurchaseOrderID, req.ProcessedBy)
	})
}

// ExpireSuggestion marks a due Pending suggestion Expired. Suggestions that already left
// Pending are returned unchanged.
func (s *ReorderService) ExpireSuggestion(ctx context.Context, tenantID, suggestionID uuid.UUID) (*SuggestionResponse, error) {
	now := s.clock().UTC()
	return s.mutateSuggestion(ctx, tenantID, suggestionID, func(sg *inventory.ReorderSuggestion) error {
		if sg.Status != inventory.SuggestionStatusPending {
			return errUnchanged
		}
		return sg.Expire(now)
	})
}

// GetSuggestion returns a suggestion by ID.
func (s *ReorderService) GetSuggestion(ctx context.Context, tenantID, suggestionID uuid.UUID) (*SuggestionResponse, error) {
	var resp SuggestionResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sg, err := repos.SuggestionRepo().FindByID(ctx, tenantID, suggestionID)
		if err != nil {
			return err
		}
		resp = ToSuggestionResponse(sg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPendingSuggestions returns Pending suggestions.
func (s *ReorderService) ListPendingSuggestions(ctx context.Context, tenantID uuid.UUID, f SuggestionListFilter) (*shared.Paginated[SuggestionResponse], error) {
	return s.listSuggestions(ctx, tenantID, f, inventory.SuggestionStatusPending)
}

// ListPurchasable returns the suggestions downstream purchasing may reference: Approved
// and Ordered.
func (s *ReorderService) ListPurchasable(ctx context.Context, tenantID uuid.UUID, f SuggestionListFilter) (*shared.Paginated[SuggestionResponse], error) {
	return s.listSuggestions(ctx, tenantID, f, inventory.SuggestionStatusApproved, inventory.SuggestionStatusOrdered)
}

func (s *ReorderService) listSuggestions(ctx context.Context, tenantID uuid.UUID, f SuggestionListFilter,
	statuses ...inventory.SuggestionStatus) (*shared.Paginated[SuggestionResponse], error) {
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "created_at"}.Normalize()
	sf := inventory.SuggestionFilter{ProductID: f.ProductID, WarehouseID: f.WarehouseID, Status: statuses}

	var page shared.Paginated[SuggestionResponse]
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, total, err := repos.SuggestionRepo().FindAll(ctx, tenantID, sf, filter)
		if err != nil {
			return err
		}
		items := make([]SuggestionResponse, len(rows))
		for i := range rows {
			items[i] = ToSuggestionResponse(&rows[i])
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// errUnchanged makes mutateSuggestion return the current state without saving.
var errUnchanged = errors.New("unchanged")

func (s *ReorderService) mutateSuggestion(ctx context.Context, tenantID, suggestionID uuid.UUID,
	fn func(*inventory.ReorderSuggestion) error) (*SuggestionResponse, error) {
	var (
		resp    SuggestionResponse
		changed bool
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sg, err := repos.SuggestionRepo().FindByID(ctx, tenantID, suggestionID)
		if err != nil {
			return err
		}
		resp = ToSuggestionResponse(sg)
		if err := fn(sg); err != nil {
			if errors.Is(err, errUnchanged) {
				return nil
			}
			return err
		}
		if err := repos.SuggestionRepo().Save(ctx, sg); err != nil {
			return err
		}
		recordEvents(repos, sg)
		resp = ToSuggestionResponse(sg)
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("Reorder suggestion status changed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("suggestion_id", suggestionID.String()),
			zap.String("status", resp.Status),
		)
	}
	return &resp, nil
}

// SuggestionExpiryService expires due Pending suggestions across tenants.
type SuggestionExpiryService struct {
	txScope     TransactionScope
	suggestions *ReorderService
	logger      *zap.Logger
}

// NewSuggestionExpiryService creates a new SuggestionExpiryService
func NewSuggestionExpiryService(txScope TransactionScope, suggestions *ReorderService, logger *zap.Logger) *SuggestionExpiryService {
	return &SuggestionExpiryService{txScope: txScope, suggestions: suggestions, logger: logger}
}

// ExpireDue expires each due Pending suggestion in its own transaction.
func (s *SuggestionExpiryService) ExpireDue(ctx context.Context, limit int) (*ExpirySweepResult, error) {
	start := time.Now()
	now := s.suggestions.clock().UTC()
	if limit <= 0 {
		limit = DefaultSweepBatchSize
	}
	result := &ExpirySweepResult{ProcessedAt: now}

	var due []inventory.ReorderSuggestion
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, err := repos.SuggestionRepo().FindDue(ctx, now, limit)
		due = rows
		return err
	})
	if err != nil {
		s.logger.Error("Failed to find due suggestions", zap.Error(err))
		return nil, err
	}

	for i := range due {
		if ctx.Err() != nil {
			break
		}
		sg := &due[i]
		result.Processed++
		resp, err := s.suggestions.ExpireSuggestion(ctx, sg.TenantID, sg.ID)
		if err != nil {
			result.Failed++
			s.logger.Warn("Failed to expire suggestion",
				zap.String("tenant_id", sg.TenantID.String()),
				zap.String("suggestion_id", sg.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if resp.Status == string(inventory.SuggestionStatusExpired) {
			result.Expired++
		}
	}

	if result.Processed > 0 {
		s.logger.Info("Completed suggestion expiry sweep",
			zap.Int("processed", result.Processed),
			zap.Int("expired", result.Expired),
			zap.Int("failed", result.Failed),
			since(start),
		)
	}
	return result, nil
}

package inventory

import (
	"context"
	"fmt"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReorderEvaluator evaluates the Active rules that cover one product in one warehouse.
type ReorderEvaluator interface {
	EvaluateForStock(ctx context.Context, tenantID, productID, warehouseID uuid.UUID) (int, error)
}

// ReorderTriggerHandler handles StockChanged events
// and evaluates reorder rules when available stock drops
type ReorderTriggerHandler struct {
	evaluator ReorderEvaluator
	logger    *zap.Logger
}

// NewReorderTriggerHandler creates a new handler for stock changed events
func NewReorderTriggerHandler(evaluator ReorderEvaluator, logger *zap.Logger) *ReorderTriggerHandler {
	return &ReorderTriggerHandler{
		evaluator: evaluator,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ReorderTriggerHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockChanged}
}

// Handle evaluates reorder rules for the changed stock row. Changes that did not reduce
// availability are ignored.
func (h *ReorderTriggerHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*inventory.StockChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventTypeStockChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockChanged, event.EventType())
	}

	// available moves by quantity delta minus reserved delta
	if !changed.QuantityDelta.Sub(changed.ReservedDelta).IsNegative() {
		return nil
	}

	created, err := h.evaluator.EvaluateForStock(ctx, event.TenantID(), changed.ProductID, changed.WarehouseID)
	if err != nil {
		if shared.KindOf(err) == shared.KindValidation {
			// rule was paused or disabled after it was loaded
			h.logger.Warn("reorder evaluation skipped",
				zap.String("tenant_id", event.TenantID().String()),
				zap.String("product_id", changed.ProductID.String()),
				zap.Error(err),
			)
			return nil
		}
		return fmt.Errorf("evaluate reorder rules for product %s: %w", changed.ProductID, err)
	}

	if created > 0 {
		h.logger.Info("reorder suggestions created from stock change",
			zap.String("tenant_id", event.TenantID().String()),
			zap.String("product_id", changed.ProductID.String()),
			zap.String("warehouse_id", changed.WarehouseID.String()),
			zap.String("available", changed.Available.String()),
			zap.Int("created", created),
		)
	}
	return nil
}

// Ensure ReorderTriggerHandler implements shared.EventHandler
var _ shared.EventHandler = (*ReorderTriggerHandler)(nil)

// Ensure ReorderService implements ReorderEvaluator
var _ ReorderEvaluator = (*ReorderService)(nil)

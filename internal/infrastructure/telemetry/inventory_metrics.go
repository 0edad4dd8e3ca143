package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics component is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter is nil")

// WarehouseQuantity is a per-warehouse aggregate reported by InventoryMetricsProvider.
type WarehouseQuantity struct {
	TenantID    uuid.UUID
	WarehouseID uuid.UUID
	Quantity    decimal.Decimal
}

// TenantCount is a per-tenant count reported by InventoryMetricsProvider.
type TenantCount struct {
	TenantID uuid.UUID
	Count    int64
}

// InventoryMetricsProvider reads the aggregates behind the snapshot gauges.
type InventoryMetricsProvider interface {
	ReservedByWarehouse(ctx context.Context) ([]WarehouseQuantity, error)
	PendingSuggestions(ctx context.Context) ([]TenantCount, error)
}

// InventoryMetrics holds the stock engine's instruments. Counters are fed by
// MetricsEventHandler from the event bus; gauges by Snapshot.
type InventoryMetrics struct {
	logger   *zap.Logger
	provider InventoryMetricsProvider

	events       *Counter
	movements    *Counter
	reservations *Counter
	transfers    *Counter
	adjustments  *Counter
	suggestions  *Counter
	sweeps       *Histogram
	swept        *Counter
	deliveries   *Counter

	reserved       *FloatGauge
	pendingReorder *Gauge
	outbox         *Gauge
}

// NewInventoryMetrics registers the instruments on meter. provider may be nil, in which
// case Snapshot only records the outbox gauge.
func NewInventoryMetrics(meter metric.Meter, provider InventoryMetricsProvider, logger *zap.Logger) (*InventoryMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &InventoryMetrics{logger: logger, provider: provider}

	counters := []struct {
		dst        **Counter
		name, desc string
		unit       string
	}{
		{&m.events, "stock_events_total", "Domain events delivered by the outbox", "{events}"},
		{&m.movements, "stock_movements_total", "Journal entries recorded", "{movements}"},
		{&m.reservations, "stock_reservations_total", "Reservation lifecycle transitions", "{reservations}"},
		{&m.transfers, "stock_transfer_transitions_total", "Transfer status transitions", "{transitions}"},
		{&m.adjustments, "stock_adjustment_transitions_total", "Adjustment status transitions", "{transitions}"},
		{&m.suggestions, "stock_reorder_suggestions_total", "Reorder suggestion status transitions", "{suggestions}"},
		{&m.swept, "stock_sweep_items_total", "Items handled by background sweeps", "{items}"},
		{&m.deliveries, "stock_event_deliveries_total", "Event deliveries per consumer and outcome", "{deliveries}"},
	}
	var err error
	for _, c := range counters {
		if *c.dst, err = NewCounter(meter, c.name, c.desc, c.unit); err != nil {
			return nil, err
		}
	}

	if m.sweeps, err = NewHistogram(meter, HistogramOpts{
		Name:        "stock_sweep_duration_seconds",
		Description: "Duration of background sweeps",
		Unit:        "s",
		Boundaries:  SweepDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.reserved, err = NewFloatGauge(meter, "stock_reserved_quantity", "Quantity currently held by reservations", "{units}"); err != nil {
		return nil, err
	}
	if m.pendingReorder, err = NewGauge(meter, "stock_reorder_suggestions_pending", "Pending reorder suggestions", "{suggestions}"); err != nil {
		return nil, err
	}
	if m.outbox, err = NewGauge(meter, "stock_outbox_entries", "Outbox entries by delivery status", "{entries}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordEvent counts a delivered event and the transition it describes.
func (m *InventoryMetrics) RecordEvent(ctx context.Context, event shared.DomainEvent) {
	tenant := AttrTenantID.String(event.TenantID().String())
	m.events.Inc(ctx, tenant, AttrEventType.String(event.EventType()))

	switch e := event.(type) {
	case *inventory.StockMovementRecordedEvent:
		m.movements.Inc(ctx, tenant,
			AttrWarehouseID.String(e.WarehouseID.String()),
			AttrMovementType.String(string(e.MovementType)),
		)
	case *inventory.ReservationEvent:
		m.reservations.Inc(ctx, tenant, AttrOutcome.String(e.EventType()))
	case *inventory.TransferStatusChangedEvent:
		m.transfers.Inc(ctx, tenant, AttrStatus.String(string(e.ToStatus)))
	case *inventory.AdjustmentStatusChangedEvent:
		m.adjustments.Inc(ctx, tenant,
			AttrStatus.String(string(e.ToStatus)),
			attribute.String("adjustment_type", string(e.AdjustmentType)),
		)
	case *inventory.SuggestionStatusChangedEvent:
		m.suggestions.Inc(ctx, tenant, AttrStatus.String(string(e.ToStatus)))
	}
}

// RecordDelivery counts what an idempotent consumer did with one delivery.
func (m *InventoryMetrics) RecordDelivery(ctx context.Context, consumer, eventType, outcome string) {
	m.deliveries.Inc(ctx,
		attribute.String("consumer", consumer),
		AttrEventType.String(eventType),
		AttrOutcome.String(outcome),
	)
}

// RecordSweep records one run of a background job.
func (m *InventoryMetrics) RecordSweep(ctx context.Context, job string, d time.Duration, processed int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.sweeps.RecordDuration(ctx, d, AttrJob.String(job), AttrOutcome.String(outcome))
	if processed > 0 {
		m.swept.Add(ctx, int64(processed), AttrJob.String(job))
	}
}

// RecordOutbox records outbox entry counts keyed by status.
func (m *InventoryMetrics) RecordOutbox(ctx context.Context, counts map[shared.OutboxStatus]int64) {
	for _, status := range []shared.OutboxStatus{
		shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusSent,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	} {
		m.outbox.Record(ctx, counts[status], AttrStatus.String(string(status)))
	}
}

// Snapshot refreshes the reserved quantity and pending suggestion gauges.
func (m *InventoryMetrics) Snapshot(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}

	reserved, err := m.provider.ReservedByWarehouse(ctx)
	if err != nil {
		return err
	}
	for _, r := range reserved {
		m.reserved.Record(ctx, r.Quantity.InexactFloat64(),
			AttrTenantID.String(r.TenantID.String()),
			AttrWarehouseID.String(r.WarehouseID.String()),
		)
	}

	pending, err := m.provider.PendingSuggestions(ctx)
	if err != nil {
		return err
	}
	for _, p := range pending {
		m.pendingReorder.Record(ctx, p.Count, AttrTenantID.String(p.TenantID.String()))
	}

	m.logger.Debug("Inventory metrics snapshot recorded",
		zap.Int("warehouses", len(reserved)),
		zap.Int("tenants_with_pending", len(pending)),
	)
	return nil
}

// MetricsEventHandler feeds InventoryMetrics from the event bus. It subscribes to every
// event type and never fails delivery.
type MetricsEventHandler struct {
	metrics *InventoryMetrics
}

// NewMetricsEventHandler creates a bus handler for m.
func NewMetricsEventHandler(m *InventoryMetrics) *MetricsEventHandler {
	return &MetricsEventHandler{metrics: m}
}

// EventTypes returns nil, which subscribes the handler to all events.
func (h *MetricsEventHandler) EventTypes() []string {
	return nil
}

// Handle implements shared.EventHandler.
func (h *MetricsEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.metrics.RecordEvent(ctx, event)
	return nil
}

var _ shared.EventHandler = (*MetricsEventHandler)(nil)

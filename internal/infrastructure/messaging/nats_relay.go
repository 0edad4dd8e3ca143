// Package messaging relays committed stock events to NATS JetStream.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Message headers set on every relayed event.
const (
	HeaderEventType     = "Stock-Event-Type"
	HeaderAggregateType = "Stock-Aggregate-Type"
	HeaderAggregateID   = "Stock-Aggregate-ID"
	HeaderTenantID      = "Stock-Tenant-ID"
	HeaderOccurredAt    = "Stock-Occurred-At"
)

// ErrRelayNotConfigured is returned when the relay has no JetStream handle
var ErrRelayNotConfigured = errors.New("nats relay is not configured")

// RelayConfig holds the JetStream relay settings
type RelayConfig struct {
	URL             string
	Stream          string
	SubjectPrefix   string
	PublishWait     time.Duration
	DuplicateWindow time.Duration
	MaxAge          time.Duration
}

// DefaultRelayConfig returns the default relay configuration
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		URL:             nats.DefaultURL,
		Stream:          "STOCK_EVENTS",
		SubjectPrefix:   "stock",
		PublishWait:     5 * time.Second,
		DuplicateWindow: 2 * time.Minute,
		MaxAge:          7 * 24 * time.Hour,
	}
}

func (c RelayConfig) withDefaults() RelayConfig {
	d := DefaultRelayConfig()
	if c.URL == "" {
		c.URL = d.URL
	}
	if c.Stream == "" {
		c.Stream = d.Stream
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = d.SubjectPrefix
	}
	if c.PublishWait <= 0 {
		c.PublishWait = d.PublishWait
	}
	if c.DuplicateWindow <= 0 {
		c.DuplicateWindow = d.DuplicateWindow
	}
	if c.MaxAge <= 0 {
		c.MaxAge = d.MaxAge
	}
	return c
}

// EventEncoder turns a domain event into a message payload
type EventEncoder interface {
	Serialize(event shared.DomainEvent) ([]byte, error)
}

// StreamPublisher is the part of jetstream.JetStream the relay uses
type StreamPublisher interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSRelay publishes every event it handles to <prefix>.<tenant>.<event_type>.
// The event id is the JetStream message id, so redeliveries from the outbox
// inside the duplicate window are dropped by the server.
type NATSRelay struct {
	config  RelayConfig
	js      StreamPublisher
	encoder EventEncoder
	logger  *zap.Logger
	conn    *nats.Conn
}

// NewNATSRelay creates a relay over an existing JetStream handle
func NewNATSRelay(config RelayConfig, js StreamPublisher, encoder EventEncoder, logger *zap.Logger) *NATSRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSRelay{
		config:  config.withDefaults(),
		js:      js,
		encoder: encoder,
		logger:  logger.With(zap.String("component", "nats_relay")),
	}
}

// Connect dials NATS, ensures the stream exists and returns a ready relay
func Connect(ctx context.Context, config RelayConfig, encoder EventEncoder, logger *zap.Logger) (*NATSRelay, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()

	nc, err := nats.Connect(config.URL,
		nats.Name("stockcore-relay"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("NATS error", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	relay := NewNATSRelay(config, js, encoder, logger)
	relay.conn = nc
	if err := relay.EnsureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return relay, nil
}

// EnsureStream creates or updates the stream that captures <prefix>.>
func (r *NATSRelay) EnsureStream(ctx context.Context) error {
	if r.js == nil {
		return ErrRelayNotConfigured
	}
	_, err := r.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       r.config.Stream,
		Subjects:   []string{r.config.SubjectPrefix + ".>"},
		Retention:  jetstream.LimitsPolicy,
		Storage:    jetstream.FileStorage,
		MaxAge:     r.config.MaxAge,
		Duplicates: r.config.DuplicateWindow,
		Replicas:   1,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", r.config.Stream, err)
	}
	r.logger.Info("JetStream stream ready",
		zap.String("stream", r.config.Stream),
		zap.String("subjects", r.config.SubjectPrefix+".>"),
	)
	return nil
}

// Subject returns the subject an event is published on
func (r *NATSRelay) Subject(event shared.DomainEvent) string {
	return strings.Join([]string{
		r.config.SubjectPrefix,
		event.TenantID().String(),
		event.EventType(),
	}, ".")
}

// EventTypes returns nil so the relay receives every event
func (r *NATSRelay) EventTypes() []string {
	return nil
}

// Handle publishes the event to JetStream and waits for the ack
func (r *NATSRelay) Handle(ctx context.Context, event shared.DomainEvent) error {
	if r.js == nil {
		return ErrRelayNotConfigured
	}

	ctx, span := telemetry.StartSpan(ctx, "nats.publish",
		telemetry.WithSpanKind(trace.SpanKindProducer),
		telemetry.WithEvent(event),
	)
	defer span.End()

	data, err := r.encoder.Serialize(event)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("serialize event %s: %w", event.EventID(), err)
	}

	msg := nats.NewMsg(r.Subject(event))
	msg.Data = data
	msg.Header.Set(HeaderEventType, event.EventType())
	msg.Header.Set(HeaderAggregateType, event.AggregateType())
	msg.Header.Set(HeaderAggregateID, event.AggregateID().String())
	msg.Header.Set(HeaderTenantID, event.TenantID().String())
	msg.Header.Set(HeaderOccurredAt, event.OccurredAt().UTC().Format(time.RFC3339Nano))

	pubCtx, cancel := context.WithTimeout(ctx, r.config.PublishWait)
	defer cancel()

	ack, err := r.js.PublishMsg(pubCtx, msg, jetstream.WithMsgID(event.EventID().String()))
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}

	if ack != nil && ack.Duplicate {
		r.logger.Debug("JetStream dropped duplicate event",
			zap.String("event_id", event.EventID().String()),
			zap.String("subject", msg.Subject),
		)
	}
	telemetry.SetOK(span)
	return nil
}

// Ping reports whether the NATS connection is up
func (r *NATSRelay) Ping() error {
	if r.conn == nil {
		return ErrRelayNotConfigured
	}
	if !r.conn.IsConnected() {
		return fmt.Errorf("nats connection status: %s", r.conn.Status())
	}
	return nil
}

// Close drains the connection opened by Connect
func (r *NATSRelay) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Drain()
}

var _ shared.EventHandler = (*NATSRelay)(nil)

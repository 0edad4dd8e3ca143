package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type testStockEvent struct {
	shared.BaseDomainEvent
	Quantity string `json:"quantity"`
}

func newTestStockEvent(tenantID uuid.UUID) *testStockEvent {
	return &testStockEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StockChanged", "InventoryItem", uuid.New(), tenantID),
		Quantity:        "5",
	}
}

type jsonEncoder struct{}

func (jsonEncoder) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

type fakeJetStream struct {
	streams   []jetstream.StreamConfig
	published []*nats.Msg
	msgIDs    map[string]bool
	err       error
}

func newFakeJetStream() *fakeJetStream {
	return &fakeJetStream{msgIDs: make(map[string]bool)}
}

func (f *fakeJetStream) CreateOrUpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.streams = append(f.streams, cfg)
	return nil, f.err
}

func (f *fakeJetStream) PublishMsg(_ context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.published = append(f.published, msg)
	id := msg.Header.Get(HeaderEventType) + "/" + msg.Subject + "/" + string(msg.Data)
	dup := f.msgIDs[id]
	f.msgIDs[id] = true
	return &jetstream.PubAck{Stream: "STOCK_EVENTS", Sequence: uint64(len(f.published)), Duplicate: dup}, nil
}

func TestRelayConfig_Defaults(t *testing.T) {
	cfg := RelayConfig{}.withDefaults()
	assert.Equal(t, DefaultRelayConfig(), cfg)

	custom := RelayConfig{Stream: "S", SubjectPrefix: "p"}.withDefaults()
	assert.Equal(t, "S", custom.Stream)
	assert.Equal(t, "p", custom.SubjectPrefix)
	assert.Equal(t, 2*time.Minute, custom.DuplicateWindow)
}

func TestNATSRelay_EnsureStream(t *testing.T) {
	js := newFakeJetStream()
	relay := NewNATSRelay(RelayConfig{}, js, jsonEncoder{}, nil)

	require.NoError(t, relay.EnsureStream(context.Background()))
	require.Len(t, js.streams, 1)
	assert.Equal(t, "STOCK_EVENTS", js.streams[0].Name)
	assert.Equal(t, []string{"stock.>"}, js.streams[0].Subjects)
	assert.Equal(t, 2*time.Minute, js.streams[0].Duplicates)

	js.err = errors.New("no jetstream")
	assert.ErrorIs(t, relay.EnsureStream(context.Background()), js.err)
}

func TestNATSRelay_Handle(t *testing.T) {
	js := newFakeJetStream()
	relay := NewNATSRelay(RelayConfig{}, js, jsonEncoder{}, nil)
	tenantID := uuid.New()
	event := newTestStockEvent(tenantID)

	assert.Nil(t, relay.EventTypes())
	require.NoError(t, relay.Handle(context.Background(), event))

	require.Len(t, js.published, 1)
	msg := js.published[0]
	assert.Equal(t, "stock."+tenantID.String()+".StockChanged", msg.Subject)
	assert.Equal(t, "StockChanged", msg.Header.Get(HeaderEventType))
	assert.Equal(t, "InventoryItem", msg.Header.Get(HeaderAggregateType))
	assert.Equal(t, event.AggregateID().String(), msg.Header.Get(HeaderAggregateID))
	assert.Equal(t, tenantID.String(), msg.Header.Get(HeaderTenantID))
	assert.NotEmpty(t, msg.Header.Get(HeaderOccurredAt))

	var decoded testStockEvent
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, event.EventID(), decoded.EventID())
	assert.Equal(t, "5", decoded.Quantity)
}

func TestNATSRelay_HandleErrors(t *testing.T) {
	t.Run("publish failure", func(t *testing.T) {
		js := newFakeJetStream()
		js.err = errors.New("timeout")
		relay := NewNATSRelay(RelayConfig{}, js, jsonEncoder{}, nil)
		err := relay.Handle(context.Background(), newTestStockEvent(uuid.New()))
		assert.ErrorIs(t, err, js.err)
	})

	t.Run("not configured", func(t *testing.T) {
		relay := NewNATSRelay(RelayConfig{}, nil, jsonEncoder{}, nil)
		assert.ErrorIs(t, relay.Handle(context.Background(), newTestStockEvent(uuid.New())), ErrRelayNotConfigured)
		assert.ErrorIs(t, relay.EnsureStream(context.Background()), ErrRelayNotConfigured)
		assert.ErrorIs(t, relay.Ping(), ErrRelayNotConfigured)
		assert.NoError(t, relay.Close())
	})
}

func TestNATSRelay_JetStreamIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			Cmd:          []string{"-js"},
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.PortEndpoint(ctx, "4222/tcp", "nats")
	require.NoError(t, err)

	relay, err := Connect(ctx, RelayConfig{URL: endpoint}, jsonEncoder{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = relay.Close() })
	require.NoError(t, relay.Ping())

	event := newTestStockEvent(uuid.New())
	require.NoError(t, relay.Handle(ctx, event))
	// same event id inside the duplicate window is dropped by the server
	require.NoError(t, relay.Handle(ctx, event))

	js, err := jetstream.New(relay.conn)
	require.NoError(t, err)
	stream, err := js.Stream(ctx, "STOCK_EVENTS")
	require.NoError(t, err)
	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: relay.Subject(event),
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	require.NoError(t, err)
	msg, err := consumer.Next(jetstream.FetchMaxWait(5 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, event.EventType(), msg.Headers().Get(HeaderEventType))
	require.NoError(t, msg.Ack())
}

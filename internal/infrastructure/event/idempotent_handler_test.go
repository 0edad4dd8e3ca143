package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Unmark(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type outcomeLog struct {
	mu       sync.Mutex
	outcomes []string
}

func (l *outcomeLog) RecordDelivery(_ context.Context, consumer, _ string, outcome string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outcomes = append(l.outcomes, consumer+"/"+outcome)
}

func (l *outcomeLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.outcomes...)
}

func TestIdempotentHandler_FirstDeliveryRunsHandler(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := newTestHandler(inventory.EventTypeStockChanged)
	outcomes := &outcomeLog{}
	h := NewIdempotentHandler(inner, store, zap.NewNop(), WithHandlerName("reorder"), WithDeliveryRecorder(outcomes))
	event := newTestEvent(inventory.EventTypeStockChanged, uuid.New())
	key := "reorder:" + event.EventID().String()

	store.On("MarkProcessed", mock.Anything, key, 24*time.Hour).Return(true, nil).Once()

	require.NoError(t, h.Handle(context.Background(), event))
	assert.Len(t, inner.getHandled(), 1)
	assert.Equal(t, []string{inventory.EventTypeStockChanged}, h.EventTypes())
	assert.Equal(t, []string{"reorder/" + DeliveryHandled}, outcomes.all())
	store.AssertExpectations(t)
}

func TestIdempotentHandler_DuplicateIsSkipped(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := newTestHandler()
	outcomes := &outcomeLog{}
	h := NewIdempotentHandler(inner, store, zap.NewNop(), WithHandlerName("reorder"), WithDeliveryRecorder(outcomes))
	event := newTestEvent(inventory.EventTypeStockChanged, uuid.New())

	store.On("MarkProcessed", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(false, nil).Once()

	require.NoError(t, h.Handle(context.Background(), event))
	assert.Empty(t, inner.getHandled())
	assert.Equal(t, []string{"reorder/" + DeliveryDuplicate}, outcomes.all())
	store.AssertExpectations(t)
}

func TestIdempotentHandler_FailureUnmarksKey(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := newTestHandler()
	inner.setError(errors.New("evaluation failed"))
	outcomes := &outcomeLog{}
	h := NewIdempotentHandler(inner, store, zap.NewNop(), WithHandlerName("reorder"), WithDeliveryRecorder(outcomes))
	event := newTestEvent(inventory.EventTypeStockChanged, uuid.New())
	key := "reorder:" + event.EventID().String()

	store.On("MarkProcessed", mock.Anything, key, mock.Anything).Return(true, nil).Once()
	store.On("Unmark", mock.Anything, key).Return(nil).Once()

	err := h.Handle(context.Background(), event)
	require.Error(t, err)
	assert.Equal(t, []string{"reorder/" + DeliveryFailed}, outcomes.all())
	store.AssertExpectations(t)
}

func TestIdempotentHandler_StoreErrorProcessesAnyway(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := newTestHandler()
	h := NewIdempotentHandler(inner, store, zap.NewNop())

	store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down")).Once()

	require.NoError(t, h.Handle(context.Background(), newTestEvent(inventory.EventTypeStockChanged, uuid.New())))
	assert.Len(t, inner.getHandled(), 1)
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := newTestHandler()
	h := NewIdempotentHandler(inner, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))

	require.NoError(t, h.Handle(context.Background(), newTestEvent(inventory.EventTypeStockChanged, uuid.New())))
	assert.Len(t, inner.getHandled(), 1)
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotentHandler_HandlersShareStore(t *testing.T) {
	store := newMemoryStore(t)

	trigger := newTestHandler()
	relay := newTestHandler()
	outcomes := &outcomeLog{}
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(NewIdempotentHandler(trigger, store, zap.NewNop(), WithHandlerName("trigger"), WithDeliveryRecorder(outcomes)))
	bus.Subscribe(NewIdempotentHandler(relay, store, zap.NewNop(), WithHandlerName("relay"), WithDeliveryRecorder(outcomes)))

	event := newTestEvent(inventory.EventTypeStockChanged, uuid.New())
	require.NoError(t, bus.Publish(context.Background(), event))
	// an outbox redelivery of the same event
	require.NoError(t, bus.Publish(context.Background(), event))

	assert.Len(t, trigger.getHandled(), 1)
	assert.Len(t, relay.getHandled(), 1, "keys are scoped per handler")
	assert.ElementsMatch(t, []string{
		"trigger/" + DeliveryHandled, "relay/" + DeliveryHandled,
		"trigger/" + DeliveryDuplicate, "relay/" + DeliveryDuplicate,
	}, outcomes.all())
}

func TestIdempotentHandler_RetryAfterFailure(t *testing.T) {
	store := newMemoryStore(t)

	inner := newTestHandler()
	inner.setError(errors.New("transient"))
	h := NewIdempotentHandler(inner, store, zap.NewNop())
	event := newTestEvent(inventory.EventTypeStockChanged, uuid.New())

	require.Error(t, h.Handle(context.Background(), event))
	inner.setError(nil)
	require.NoError(t, h.Handle(context.Background(), event))
	assert.Len(t, inner.getHandled(), 2, "a failed attempt does not burn the key")

	require.NoError(t, h.Handle(context.Background(), event))
	assert.Len(t, inner.getHandled(), 2)
}

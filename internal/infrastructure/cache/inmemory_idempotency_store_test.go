package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*InMemoryIdempotencyStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newInMemoryIdempotencyStore(clock.Now, time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	t.Run("marks new event as processed", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "event-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("returns false for already processed event", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "event-2", time.Hour)
		require.NoError(t, err)

		isNew, err := store.MarkProcessed(ctx, "event-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("allows reprocessing after expiration", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "event-3", time.Minute)
		require.NoError(t, err)

		clock.Advance(time.Minute)

		isNew, err := store.MarkProcessed(ctx, "event-3", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, _ = store.MarkProcessed(ctx, "known", time.Minute)
	processed, _ = store.IsProcessed(ctx, "known")
	assert.True(t, processed)

	clock.Advance(2 * time.Minute)
	processed, _ = store.IsProcessed(ctx, "known")
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_Unmark(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "handler:event", time.Hour)
	require.NoError(t, store.Unmark(ctx, "handler:event"))

	isNew, err := store.MarkProcessed(ctx, "handler:event", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	assert.NoError(t, store.Unmark(ctx, "never-marked"))
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "short-1", time.Second)
	_, _ = store.MarkProcessed(ctx, "short-2", time.Second)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)
	assert.Equal(t, 3, store.Size())

	clock.Advance(time.Minute)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
	processed, _ := store.IsProcessed(ctx, "long")
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	const workers = 100

	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(ctx, "concurrent-event", time.Hour)
			results <- err == nil && isNew
		}()
	}
	wg.Wait()
	close(results)

	newCount := 0
	for isNew := range results {
		if isNew {
			newCount++
		}
	}
	assert.Equal(t, 1, newCount, "exactly one goroutine should mark as new")
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

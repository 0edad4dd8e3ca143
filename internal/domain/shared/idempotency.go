package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event deliveries a consumer already handled. Keys
// are opaque to the store; callers prefix them per consumer.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It reports false when key was already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Unmark releases key so a failed delivery can be retried.
	Unmark(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig controls deduplication of event deliveries. TTL must outlive the
// outbox retry window, or a late redelivery is handled twice.
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{Enabled: true, TTL: 24 * time.Hour}
}

package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys of operations that already ran, such as a
// reminder sent to a house on a given day or a proof submission.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets a key so the operation may run again, used when the
	// guarded operation failed after the key was marked
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

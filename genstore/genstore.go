// Package genstore keeps a generation counter per cache key.
//
// querycache snapshots a key's generation before running a factory and
// bumps it on every removal. A write whose snapshot no longer matches is
// skipped, and an entry framed with an old generation is rejected on read,
// so a value computed before an invalidation never outlives it.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
// Use Local for in-process gens, or Redis for distributed gens.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, storageKey string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, storageKey string) (uint64, error)
	// BumpMany increments several generations at once.
	BumpMany(ctx context.Context, storageKeys []string) error
	// Cleanup prunes old metadata if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}

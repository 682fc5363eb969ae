// Package tagindex maintains the reverse mapping from tag to the keys tagged
// with it, used for grouped invalidation.
//
// Every implementation keeps a forward mapping (key -> tags) next to the
// reverse one (tag -> keys) and updates both as one unit per key, so
// rewriting or removing a key never leaves dangling tag references.
package tagindex

import (
	"context"
	"time"
)

type Index interface {
	// Associate replaces the tags of key with tags. Empty tags clears every
	// association of key. ttl is the lifetime of the cache entry the key
	// refers to (<= 0 => no expiry); implementations may use it to prune.
	Associate(ctx context.Context, key string, tags []string, ttl time.Duration) error

	// KeysForTag returns the keys currently tagged with tag, sorted.
	// Unknown tags yield an empty result.
	KeysForTag(ctx context.Context, tag string) ([]string, error)

	// RemoveTag atomically detaches and returns every key of tag and clears
	// the tag's entry.
	RemoveTag(ctx context.Context, tag string) ([]string, error)

	// Close releases resources (no-op ok).
	Close(ctx context.Context) error
}

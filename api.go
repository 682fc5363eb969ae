package querycache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/querycache/codec"
	gen "github.com/unkn0wn-root/querycache/genstore"
	pr "github.com/unkn0wn-root/querycache/provider"
	"github.com/unkn0wn-root/querycache/tagindex"
)

type SetCostFunc func(storageKey string, raw []byte) int64

// Factory produces the value for a missed key. It runs at most once per
// GetOrCreate call and never on a hit.
type Factory[T any] func(ctx context.Context) (T, error)

// QueryService is a typed view of a Cache. Go methods cannot carry type
// parameters, so GetOrCreate on *Cache is a package function and For binds T.
type QueryService[T any] interface {
	GetOrCreate(ctx context.Context, key string, factory Factory[T], settings Settings, tags ...string) (T, error)
	Remove(ctx context.Context, key string) error
	RemoveByTag(ctx context.Context, tag string) error
	RemoveByTags(ctx context.Context, tags []string) error
}

// Options configure a Cache.
// Only Namespace and Provider are required; others have sensible defaults.
type Options struct {
	// Required
	Namespace string // logical namespace to avoid collisions. e.g. "user", "report"
	Provider  pr.Provider

	Serializer codec.Serializer // nil => codec.JSON{}

	// TagIndex backs RemoveByTag(s). nil => Provider when it implements
	// tagindex.Index, otherwise tags are unsupported.
	TagIndex    tagindex.Index
	RequireTags bool // New fails with ErrUnsupported when no index is available

	GenStore     gen.GenStore // nil => no stale-write guard
	SingleFlight bool         // coalesce concurrent misses of one key in-process

	Logger         Logger        // if nil, NopLogger is used
	Hooks          Hooks         // if nil, NopHooks is used
	DefaultTTL     time.Duration // Settings.Expiration == 0 => this; 0 => 10m
	ComputeSetCost SetCostFunc   // default 1
	Disabled       bool          // GetOrCreate always calls the factory; removals are no-ops
}

func New(opts Options) (*Cache, error) {
	return newCache(opts)
}

// For returns a QueryService[T] bound to c.
func For[T any](c *Cache) QueryService[T] { return typed[T]{c: c} }

type typed[T any] struct{ c *Cache }

func (s typed[T]) GetOrCreate(ctx context.Context, key string, factory Factory[T], settings Settings, tags ...string) (T, error) {
	return GetOrCreate(ctx, s.c, key, factory, settings, tags...)
}

func (s typed[T]) Remove(ctx context.Context, key string) error { return s.c.Remove(ctx, key) }

func (s typed[T]) RemoveByTag(ctx context.Context, tag string) error {
	return s.c.RemoveByTag(ctx, tag)
}

func (s typed[T]) RemoveByTags(ctx context.Context, tags []string) error {
	return s.c.RemoveByTags(ctx, tags)
}

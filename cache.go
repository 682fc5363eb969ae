package querycache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/querycache/codec"
	gen "github.com/unkn0wn-root/querycache/genstore"
	"github.com/unkn0wn-root/querycache/internal/util"
	"github.com/unkn0wn-root/querycache/internal/wire"
	pr "github.com/unkn0wn-root/querycache/provider"
	"github.com/unkn0wn-root/querycache/tagindex"
)

const defaultTTL = 10 * time.Minute

type Cache struct {
	ns             string
	provider       pr.Provider
	serializer     codec.Serializer
	tags           tagindex.Index // nil => tag removal unsupported
	tagsOwned      bool           // index is separate from the provider and closed with it
	gen            gen.GenStore   // nil => no stale-write guard
	sf             *singleflight.Group
	log            Logger
	hooks          Hooks
	enabled        bool
	defaultTTL     time.Duration
	computeSetCost SetCostFunc
	now            func() time.Time
	closed         atomic.Bool
}

func newCache(opts Options) (*Cache, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("querycache: provider is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("querycache: namespace is required")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("%w: negative default TTL %v", ErrInvalidSettings, opts.DefaultTTL)
	}

	c := &Cache{
		ns:       opts.Namespace,
		provider: opts.Provider,
		gen:      opts.GenStore,
		enabled:  !opts.Disabled,
		now:      time.Now,
	}

	// defaults
	c.serializer = coalesce[codec.Serializer](opts.Serializer, codec.JSON{})
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.defaultTTL = coalesce[time.Duration](opts.DefaultTTL, defaultTTL)

	if opts.ComputeSetCost != nil {
		c.computeSetCost = opts.ComputeSetCost
	} else {
		c.computeSetCost = func(string, []byte) int64 { return 1 }
	}

	switch {
	case opts.TagIndex != nil:
		c.tags = opts.TagIndex
		c.tagsOwned = true
	default:
		if idx, ok := opts.Provider.(tagindex.Index); ok {
			c.tags = idx
		}
	}
	if opts.RequireTags && c.tags == nil {
		return nil, fmt.Errorf("querycache: provider %T has no tag index: %w", opts.Provider, ErrUnsupported)
	}

	if opts.SingleFlight {
		c.sf = &singleflight.Group{}
	}
	return c, nil
}

func (c *Cache) Enabled() bool { return c.enabled }

// SupportsTags reports whether RemoveByTag(s) are available.
func (c *Cache) SupportsTags() bool { return c.tags != nil }

// Close releases the gen store, the tag index and the provider. The cache
// must not be used afterwards; operations return ErrClosed.
func (c *Cache) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	// Close gen store and index first (best effort)
	if c.gen != nil {
		if err := c.gen.Close(ctx); err != nil {
			c.log.Warn("gen store close error", Fields{"err": err})
		}
	}
	if c.tagsOwned {
		if err := c.tags.Close(ctx); err != nil {
			c.log.Warn("tag index close error", Fields{"err": err})
		}
	}
	return c.provider.Close(ctx)
}

// GetOrCreate returns the cached value of key, or calls factory, caches its
// result under settings and tags, and returns it.
//
// A failed lookup, an undecodable entry and a factory error are all returned
// as errors; none of them is cached. With Options.SingleFlight concurrent
// misses of one key share a single factory call; each waiter still honors
// its own ctx.
func GetOrCreate[T any](ctx context.Context, c *Cache, key string, factory Factory[T], settings Settings, tags ...string) (T, error) {
	var zero T
	if key == "" {
		return zero, ErrEmptyKey
	}
	if factory == nil {
		return zero, ErrNilFactory
	}
	if err := settings.Validate(); err != nil {
		return zero, err
	}
	if c.closed.Load() {
		return zero, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if !c.enabled {
		return factory(ctx)
	}

	sk := c.storageKey(key)
	if v, ok, err := lookup[T](ctx, c, key, sk); err != nil || ok {
		return v, err
	}
	if c.sf == nil {
		return create(ctx, c, key, sk, factory, settings, tags)
	}

	// The shared call outlives any single caller: cancelling one waiter
	// (the first one included) must not fail the others.
	shared := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(sk, func() (any, error) {
		// a waiter may have lost the race with the previous leader's write
		if v, ok, err := lookup[T](shared, c, key, sk); err != nil || ok {
			return v, err
		}
		return create(shared, c, key, sk, factory, settings, tags)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Val == nil {
			return zero, nil
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, &SerializationError{Key: key, Op: "decode",
				Err: fmt.Errorf("in-flight value is %T, want %T", res.Val, zero)}
		}
		return v, nil
	}
}

// lookup reads and validates the entry of sk. (zero, false, nil) is a miss.
func lookup[T any](ctx context.Context, c *Cache, key, sk string) (T, bool, error) {
	var zero T
	raw, ok, err := c.provider.Get(ctx, sk)
	if err != nil {
		return zero, false, &BackendError{Op: "get", Key: key, Err: err}
	}
	if !ok {
		return zero, false, nil
	}

	e, err := wire.Decode(raw)
	if err != nil {
		c.hooks.DecodeError(sk, err)
		return zero, false, &SerializationError{Key: key, Op: "decode", Err: err}
	}
	if e.Expired(c.now()) {
		c.selfHeal(ctx, sk, "expired")
		return zero, false, nil
	}
	if c.gen != nil {
		cur, err := c.gen.Snapshot(ctx, sk)
		if err != nil {
			c.hooks.GenStoreError("snapshot", err)
			return zero, false, &BackendError{Op: "gen", Key: key, Err: err}
		}
		if cur != e.Gen {
			c.selfHeal(ctx, sk, "gen_mismatch")
			return zero, false, nil
		}
	}

	v, err := codec.For[T](c.serializer).Decode(e.Payload)
	if err != nil {
		c.hooks.DecodeError(sk, err)
		return zero, false, &SerializationError{Key: key, Op: "decode", Err: err}
	}
	c.hooks.Hit(sk)
	return v, true, nil
}

func create[T any](ctx context.Context, c *Cache, key, sk string, factory Factory[T], settings Settings, tags []string) (T, error) {
	var zero T
	c.hooks.Miss(sk)

	var obs uint64
	if c.gen != nil {
		g, err := c.gen.Snapshot(ctx, sk)
		if err != nil {
			c.hooks.GenStoreError("snapshot", err)
			return zero, &BackendError{Op: "gen", Key: key, Err: err}
		}
		obs = g
	}

	v, err := factory(ctx)
	if err != nil {
		c.hooks.FactoryError(sk, err)
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	failure := isFailure(v)
	settings.Expiration = coalesce(settings.Expiration, c.defaultTTL)
	ttl := EntryTTL(settings, failure)

	payload, err := codec.For[T](c.serializer).Encode(v)
	if err != nil {
		return zero, &SerializationError{Key: key, Op: "encode", Err: err}
	}

	if c.gen != nil {
		cur, err := c.gen.Snapshot(ctx, sk)
		if err != nil {
			c.hooks.GenStoreError("snapshot", err)
		}
		if err != nil || cur != obs {
			c.hooks.StaleWriteSkipped(sk)
			c.log.Debug("write skipped (gen moved)", Fields{"key": sk, "obs": obs})
			return v, nil
		}
	}

	// Associate before Set: a concurrent RemoveByTag either sees the key
	// (and bumps its gen) or runs before the write lands.
	if c.tags != nil {
		if err := c.tags.Associate(ctx, sk, c.scopeTags(tags), ttl); err != nil {
			c.hooks.TagIndexError("associate", err)
			return zero, &BackendError{Op: "tag", Key: key, Err: err}
		}
	} else if len(tags) > 0 {
		c.log.Debug("tags ignored (no tag index)", Fields{"key": sk, "tags": len(tags)})
	}

	raw := wire.Encode(wire.Entry{
		Gen:       obs,
		WrittenAt: c.now(),
		TTL:       ttl,
		Failure:   failure,
		Payload:   payload,
	})
	ok, err := c.provider.Set(ctx, sk, raw, c.computeSetCost(sk, raw), ttl)
	if err != nil {
		c.untag(ctx, sk)
		return zero, &BackendError{Op: "set", Key: key, Err: err}
	}
	if !ok {
		c.untag(ctx, sk)
		c.hooks.ProviderSetRejected(sk)
		c.log.Debug("write rejected by provider (pressure)", Fields{"key": sk})
	}
	return v, nil
}

// Remove deletes key and its tag associations. Removing a missing key is not
// an error.
func (c *Cache) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.enabled {
		return nil
	}
	return c.removeKeys(ctx, []string{c.storageKey(key)})
}

// RemoveByTag removes every entry tagged with tag.
func (c *Cache) RemoveByTag(ctx context.Context, tag string) error {
	return c.RemoveByTags(ctx, []string{tag})
}

// RemoveByTags removes every entry tagged with any of tags. A key carrying
// several of the tags is deleted once.
func (c *Cache) RemoveByTags(ctx context.Context, tags []string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.tags == nil {
		return ErrUnsupported
	}
	tags = util.UniqSorted(tags)
	if !c.enabled || len(tags) == 0 {
		return nil
	}

	var errs []error
	seen := make(map[string]struct{})
	var keys []string
	for _, t := range tags {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ks, err := c.tags.RemoveTag(ctx, c.scopeTag(t))
		if err != nil {
			c.hooks.TagIndexError("untag", err)
			errs = append(errs, &BackendError{Op: "remove_tag", Key: t, Err: err})
			continue
		}
		for _, k := range ks {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		errs = append(errs, c.removeKeys(ctx, keys))
	}
	c.log.Debug("removed by tags", Fields{"tags": len(tags), "keys": len(keys)})
	return errors.Join(errs...)
}

// removeKeys bumps generations, deletes entries and clears their tags.
// With a gen store a failed delete is tolerated once the bump succeeded:
// the old entry can no longer be read.
func (c *Cache) removeKeys(ctx context.Context, sks []string) error {
	var bumpErr error
	if c.gen != nil {
		if bumpErr = c.gen.BumpMany(ctx, sks); bumpErr != nil {
			c.hooks.GenStoreError("bump", bumpErr)
			c.log.Error("gen bump error", Fields{"keys": len(sks), "err": bumpErr})
		}
	}

	var errs []error
	for _, sk := range sks {
		var re RemoveError
		if err := c.provider.Del(ctx, sk); err != nil {
			if c.gen == nil || bumpErr != nil {
				re.DelErr = &BackendError{Op: "del", Key: sk, Err: err}
				re.BumpErr = bumpErr
			} else {
				c.log.Warn("delete failed after gen bump", Fields{"key": sk, "err": err})
			}
		}
		if c.tags != nil {
			if err := c.tags.Associate(ctx, sk, nil, 0); err != nil {
				c.hooks.TagIndexError("untag", err)
				re.UntagErr = &BackendError{Op: "untag", Key: sk, Err: err}
			}
		}
		if re.DelErr != nil || re.UntagErr != nil {
			re.Key = sk
			errs = append(errs, &re)
		}
	}
	return errors.Join(errs...)
}

// untag drops the associations of a key whose write did not land.
func (c *Cache) untag(ctx context.Context, sk string) {
	if c.tags == nil {
		return
	}
	if err := c.tags.Associate(ctx, sk, nil, 0); err != nil {
		c.hooks.TagIndexError("untag", err)
		c.log.Debug("untag after failed write", Fields{"key": sk, "err": err})
	}
}

func (c *Cache) selfHeal(ctx context.Context, sk, reason string) {
	c.hooks.SelfHeal(sk, reason)
	if err := c.provider.Del(ctx, sk); err != nil {
		c.log.Debug("self-heal delete failed", Fields{"key": sk, "reason": reason, "err": err})
	}
}

func (c *Cache) storageKey(userKey string) string {
	// isolate by namespace
	return "q:" + c.ns + ":" + userKey
}

func (c *Cache) scopeTag(tag string) string { return c.ns + ":" + tag }

func (c *Cache) scopeTags(tags []string) []string {
	tags = util.UniqSorted(tags)
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = c.scopeTag(t)
	}
	return out
}

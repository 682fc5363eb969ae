package tagindex

import (
	"context"
	"sort"
	"sync"
	"time"
)

type localKey struct {
	tags      map[string]struct{}
	expiresAt time.Time // zero => no expiry
}

// Local keeps the index in-process. Suitable for in-process providers
// (ristretto, bigcache) or single-replica deployments.
// Optional cleanup loop drops keys whose entries have expired.
type Local struct {
	mu     sync.RWMutex
	byTag  map[string]map[string]struct{}
	byKey  map[string]localKey
	now    func() time.Time
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ Index = (*Local)(nil)

// NewLocal creates an in-process index. cleanupInterval <= 0 disables the
// background sweep; expired keys are still hidden from lookups.
func NewLocal(cleanupInterval time.Duration) *Local {
	s := &Local{
		byTag: make(map[string]map[string]struct{}),
		byKey: make(map[string]localKey),
		now:   time.Now,
	}
	if cleanupInterval > 0 {
		s.ticker = time.NewTicker(cleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Cleanup()
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Local) Associate(_ context.Context, key string, tags []string, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.detachLocked(key)
	if len(tags) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		set[t] = struct{}{}
		keys := s.byTag[t]
		if keys == nil {
			keys = make(map[string]struct{})
			s.byTag[t] = keys
		}
		keys[key] = struct{}{}
	}
	if len(set) > 0 {
		s.byKey[key] = localKey{tags: set, expiresAt: exp}
	}
	return nil
}

func (s *Local) KeysForTag(_ context.Context, tag string) ([]string, error) {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.byTag[tag]
	out := make([]string, 0, len(keys))
	for k := range keys {
		if s.expiredLocked(k, now) {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Local) RemoveTag(_ context.Context, tag string) ([]string, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.byTag[tag]
	delete(s.byTag, tag)

	out := make([]string, 0, len(keys))
	for k := range keys {
		e, ok := s.byKey[k]
		if ok {
			delete(e.tags, tag)
			if len(e.tags) == 0 {
				delete(s.byKey, k)
			}
		}
		if ok && !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Cleanup drops every key whose entry has expired.
func (s *Local) Cleanup() {
	now := s.now()
	s.mu.Lock()
	for k := range s.byKey {
		if s.expiredLocked(k, now) {
			s.detachLocked(k)
		}
	}
	s.mu.Unlock()
}

// Len returns the number of tracked keys and tags.
func (s *Local) Len() (keys, tags int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey), len(s.byTag)
}

func (s *Local) Close(_ context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop()
			s.wg.Wait()
		}
	})
	return nil
}

func (s *Local) expiredLocked(key string, now time.Time) bool {
	e, ok := s.byKey[key]
	return ok && !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func (s *Local) detachLocked(key string) {
	e, ok := s.byKey[key]
	if !ok {
		return
	}
	for t := range e.tags {
		keys := s.byTag[t]
		delete(keys, key)
		if len(keys) == 0 {
			delete(s.byTag, t)
		}
	}
	delete(s.byKey, key)
}

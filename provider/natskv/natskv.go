// Package natskv stores entries in a NATS JetStream key-value bucket.
//
// TTL is a bucket-level setting in JetStream KV; per-entry TTL is enforced by
// querycache's own framing. Configure the bucket TTL (if any) to be at least the
// longest expiration you cache with.
package natskv

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	pr "github.com/unkn0wn-root/querycache/provider"
)

var ErrNilBucket = errors.New("natskv provider: nil bucket")

type Provider struct {
	kv     jetstream.KeyValue
	prefix string
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	Bucket jetstream.KeyValue
	// Prefix is prepended to encoded keys, e.g. "qc." to share a bucket.
	// Must itself be a valid KV key fragment.
	Prefix string
}

func New(cfg Config) (*Provider, error) {
	if cfg.Bucket == nil {
		return nil, ErrNilBucket
	}
	return &Provider{kv: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// KV keys are restricted to [-/_=.a-zA-Z0-9]; cache keys are not.
func (p *Provider) key(k string) string {
	return p.prefix + base64.RawURLEncoding.EncodeToString([]byte(k))
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := p.kv.Get(ctx, p.key(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value(), true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	if _, err := p.kv.Put(ctx, p.key(key), value); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(ctx context.Context, key string) error {
	err := p.kv.Delete(ctx, p.key(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Close is a no-op; the caller owns the NATS connection.
func (p *Provider) Close(context.Context) error { return nil }

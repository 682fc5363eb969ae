// Package sqlite stores entries in an embedded SQLite database.
//
// Besides the provider contract it implements tagindex.Index on the same
// database, so tag associations live next to the entries they describe and
// are rewritten in one transaction. querycache picks the index up
// automatically when no explicit TagIndex is configured.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	pr "github.com/unkn0wn-root/querycache/provider"
	"github.com/unkn0wn-root/querycache/tagindex"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_expires_at ON entries(expires_at);
CREATE TABLE IF NOT EXISTS entry_tags (
	tag TEXT NOT NULL,
	key TEXT NOT NULL,
	PRIMARY KEY (tag, key)
);
CREATE INDEX IF NOT EXISTS idx_entry_tags_key ON entry_tags(key);
`

type Provider struct {
	db     *sql.DB
	now    func() time.Time
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var (
	_ pr.Provider    = (*Provider)(nil)
	_ tagindex.Index = (*Provider)(nil)
)

type Config struct {
	// Path of the database file. Empty or ":memory:" uses an in-memory database.
	Path string
	// ExpiryCheck is the interval of the background sweep deleting expired
	// entries and their tags. 0 => 1m; negative disables the sweep.
	ExpiryCheck time.Duration
}

// New opens (and migrates) the database. The sweep goroutine stops when ctx
// is cancelled or Close is called.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}

	childCtx, cancel := context.WithCancel(ctx)
	p := &Provider{db: db, now: time.Now, cancel: cancel}

	interval := cfg.ExpiryCheck
	if interval == 0 {
		interval = time.Minute
	}
	if interval > 0 {
		p.wg.Add(1)
		go p.run(childCtx, interval)
	}
	return p, nil
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	var expiresAt int64
	err := p.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM entries WHERE key = ?`, key,
	).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expiresAt > 0 && expiresAt <= p.now().UnixNano() {
		// lazily delete expired entry
		_ = p.Del(ctx, key)
		return nil, false, nil
	}
	return data, true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = p.now().Add(ttl).UnixNano()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	if err != nil {
		return false, err
	}
	return true, nil
}

// Del removes the entry and its tag rows in one transaction.
func (p *Provider) Del(ctx context.Context, key string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE key = ?`, key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		return err
	}
	return tx.Commit()
}

// Associate replaces the tags of key in one transaction. ttl is ignored:
// tag rows are swept together with their expired entries.
func (p *Provider) Associate(ctx context.Context, key string, tags []string, _ time.Duration) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE key = ?`, key); err != nil {
		return err
	}
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO entry_tags (tag, key) VALUES (?, ?)`, t, key,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Provider) KeysForTag(ctx context.Context, tag string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT key FROM entry_tags WHERE tag = ? ORDER BY key`, tag)
	if err != nil {
		return nil, err
	}
	return scanKeys(rows)
}

func (p *Provider) RemoveTag(ctx context.Context, tag string) ([]string, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT key FROM entry_tags WHERE tag = ?`, tag)
	if err != nil {
		return nil, err
	}
	keys, err := scanKeys(rows)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE tag = ?`, tag); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Sweep deletes expired entries and their tag rows. Tag rows of a key with
// no entry yet are kept: querycache associates tags before the write lands.
func (p *Provider) Sweep(ctx context.Context) error {
	now := p.now().UnixNano()
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entry_tags WHERE key IN (
			SELECT key FROM entries WHERE expires_at > 0 AND expires_at <= ?
		)`, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entries WHERE expires_at > 0 AND expires_at <= ?`, now); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Provider) Close(_ context.Context) error {
	var dbErr error
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
		dbErr = p.db.Close()
	})
	return dbErr
}

func (p *Provider) run(ctx context.Context, every time.Duration) {
	defer p.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.Sweep(ctx)
		}
	}
}

func scanKeys(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

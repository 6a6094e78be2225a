// Package store is the durable log — C1 in the component table. It
// owns the only parameterized-SQL surface in the process (spec §3's
// FK and ordering invariants live here) over a pgxpool, grounded on
// the teacher's pgxpool usage in pgxdemo.go and expanded into a real
// schema and query set.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultMinConns and DefaultMaxConns are spec §5's "bounded connection
// pool (min 5, max 20)".
const (
	DefaultMinConns = 5
	DefaultMaxConns = 20
)

// DefaultQueryTimeout is spec §5's "Log query default 5 s".
const DefaultQueryTimeout = 5 * time.Second

// Config bounds the pool and the per-query deadline every Store method
// applies; zero fields fall back to the spec defaults.
type Config struct {
	MinConns     int32
	MaxConns     int32
	QueryTimeout time.Duration
}

type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// New parses databaseURL into a pool config bounded by cfg's
// min/max connections, connects, and verifies it with a ping.
func New(ctx context.Context, databaseURL string, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	} else {
		poolCfg.MinConns = DefaultMinConns
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	} else {
		poolCfg.MaxConns = DefaultMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Store{pool: pool, timeout: timeout}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// withTimeout bounds one store call with the configured query
// deadline, per spec §5 ("Log query default 5 s ... All timeouts are
// configurable").
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Schema is the DDL the store expects. It is not applied automatically
// — a real deployment runs migrations out of band — but it's kept next
// to the store as the single source of truth for column names and
// constraints the queries below rely on.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	username      VARCHAR(50) UNIQUE NOT NULL,
	email         VARCHAR(255) UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	role          VARCHAR(16) NOT NULL DEFAULT 'user',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	token_hash TEXT PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	expires_at TIMESTAMPTZ NOT NULL,
	revoked_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS direct_messages (
	id           UUID PRIMARY KEY,
	sender_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	recipient_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	content      TEXT NOT NULL,
	type         VARCHAR(16) NOT NULL DEFAULT 'text',
	created_at   TIMESTAMPTZ NOT NULL,
	delivered_at TIMESTAMPTZ,
	read_at      TIMESTAMPTZ,
	CHECK (delivered_at IS NULL OR delivered_at >= created_at),
	CHECK (read_at IS NULL OR delivered_at IS NOT NULL AND read_at >= delivered_at)
);
CREATE INDEX IF NOT EXISTS idx_dm_conversation ON direct_messages (least(sender_id, recipient_id), greatest(sender_id, recipient_id), created_at);

CREATE TABLE IF NOT EXISTS groups (
	id         UUID PRIMARY KEY,
	name       VARCHAR(100) NOT NULL,
	creator_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id  UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	user_id   UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	role      VARCHAR(16) NOT NULL DEFAULT 'member',
	joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS group_messages (
	id         UUID PRIMARY KEY,
	group_id   UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	sender_id  UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	content    TEXT NOT NULL,
	type       VARCHAR(16) NOT NULL DEFAULT 'text',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_group_messages_group ON group_messages (group_id, created_at);

CREATE TABLE IF NOT EXISTS group_message_reads (
	message_id UUID NOT NULL REFERENCES group_messages(id) ON DELETE CASCADE,
	user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	read_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (message_id, user_id)
);
`

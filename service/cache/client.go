// Package cache is the presence, offline-queue and reset-token store
// described in spec §2 as C2. It is a thin, explicitly-constructed
// wrapper over go-redis, grounded on the teacher's
// service/storage/redis/redis.go client but built as a value the
// caller owns and passes down, instead of a package-level singleton
// (spec's Design Note 9 lifecycle rule).
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int

	// PresenceTTL and ResetTokenTTL default to PresenceTTL/ResetTokenTTL
	// (the package constants) when zero.
	PresenceTTL   time.Duration
	ResetTokenTTL time.Duration
}

type Store struct {
	rdb *redis.Client

	presenceTTL   time.Duration
	resetTokenTTL time.Duration
}

// New dials Redis and verifies connectivity before returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}

	presenceTTL := cfg.PresenceTTL
	if presenceTTL <= 0 {
		presenceTTL = PresenceTTL
	}
	resetTokenTTL := cfg.ResetTokenTTL
	if resetTokenTTL <= 0 {
		resetTokenTTL = ResetTokenTTL
	}
	return &Store{rdb: rdb, presenceTTL: presenceTTL, resetTokenTTL: resetTokenTTL}, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

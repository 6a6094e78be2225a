package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// PresenceTTL is the default heartbeat lease from spec §3's presence key
// definition: a 60-second lease, set on register and renewed by each
// heartbeat ping. Config.PresenceTTL overrides it.
const PresenceTTL = 60 * time.Second

func presenceKey(userID string) string { return "user:online:" + userID }

// SetOnline marks userID online for the configured presence TTL. The
// registry calls this on every Register, and the router's ping handler
// calls it on each heartbeat to renew the lease.
func (s *Store) SetOnline(ctx context.Context, userID string) error {
	if err := s.rdb.Set(ctx, presenceKey(userID), "1", s.presenceTTL).Err(); err != nil {
		return errors.Wrap(err, "cache: set online")
	}
	return nil
}

// ClearOnline removes the presence key, called when a user's socket set
// becomes empty (spec §4.3's unregister contract).
func (s *Store) ClearOnline(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, presenceKey(userID)).Err(); err != nil {
		return errors.Wrap(err, "cache: clear online")
	}
	return nil
}

// IsOnline is the O(1) cache-backed liveness check C6 consults before
// choosing to fan out live or enqueue offline.
func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	_, err := s.rdb.Get(ctx, presenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "cache: lookup online")
	}
	return true, nil
}

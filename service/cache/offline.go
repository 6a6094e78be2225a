package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// OfflineQueueTTL bounds how long an undelivered message waits in a
// recipient's queue before it's only reachable via the durable log
// (spec §3's "bounded offline queue").
const OfflineQueueTTL = 7 * 24 * time.Hour

// QueueEntry is what actually sits in the offline queue: a pointer to
// the durable row, not the message body, so C7 replay always reads the
// current, authoritative content from the log store.
type QueueEntry struct {
	MessageID string `json:"message_id"`
	Kind      string `json:"kind"` // "direct" or "group"
}

func offlineKey(userID string) string { return "user:offline:" + userID }

// drainScript atomically reads and clears a user's offline queue so a
// concurrent Enqueue can never be lost between the read and the delete.
var drainScript = redis.NewScript(`
local vals = redis.call('LRANGE', KEYS[1], 0, -1)
redis.call('DEL', KEYS[1])
return vals
`)

// Enqueue appends entry to userID's offline queue and refreshes its TTL.
func (s *Store) Enqueue(ctx context.Context, userID string, entry QueueEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "cache: marshal queue entry")
	}
	key := offlineKey(userID)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, b)
	pipe.Expire(ctx, key, OfflineQueueTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "cache: enqueue offline")
	}
	return nil
}

// DrainQueue atomically returns and clears every entry queued for
// userID, in enqueue order — the fetch-all/clear step of C7's offline
// replay (spec §4.4).
func (s *Store) DrainQueue(ctx context.Context, userID string) ([]QueueEntry, error) {
	res, err := drainScript.Run(ctx, s.rdb, []string{offlineKey(userID)}).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "cache: drain offline queue")
	}
	out := make([]QueueEntry, 0, len(res))
	for _, v := range res {
		var e QueueEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

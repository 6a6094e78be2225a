// Package ids generates the two identifier shapes this service needs:
// UUIDs for durable entities (users, messages, tokens — spec §3 requires
// an opaque 128-bit identifier) and a compact, sortable snowflake for
// ephemeral in-process connection handles, where a UUID's randomness
// buys nothing and its size costs more per registry lookup.
package ids

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// New returns a fresh UUIDv4 string, used for user, message and token
// primary keys.
func New() string {
	return uuid.NewString()
}

type generator struct {
	mu       sync.Mutex
	epochMS  int64
	nodeID   int64 // 0~1023
	seq      int64 // 0~4095
	lastTSMS int64
}

var (
	connGen  *generator
	initOnce sync.Once
)

func initConnGen() {
	initOnce.Do(func() {
		connGen = &generator{
			epochMS: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
			nodeID:  1,
		}
	})
}

// SetNodeID configures the node component of generated connection ids.
// Call once during startup if running more than one gateway process
// sharing a log store (still a single logical registry per spec's
// Non-goals — the node id only keeps generated ids distinct on disk).
func SetNodeID(nodeID int64) {
	initConnGen()
	if nodeID < 0 || nodeID > 1023 {
		nodeID = 1
	}
	connGen.nodeID = nodeID
}

// NewConnID returns a k-sortable int64 identifier for a socket
// connection, cheap to use as a map/slice key in the registry's hot
// path.
func NewConnID() int64 {
	initConnGen()
	return connGen.next()
}

// NewConnIDString is NewConnID formatted for logging or JSON fields
// that expect a string.
func NewConnIDString() string {
	return strconv.FormatInt(NewConnID(), 10)
}

func (g *generator) next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		now := time.Now().UnixMilli()
		if now < g.lastTSMS {
			time.Sleep(time.Duration(g.lastTSMS-now) * time.Millisecond)
			continue
		}
		if now == g.lastTSMS {
			g.seq = (g.seq + 1) & 0xFFF
			if g.seq == 0 {
				for now <= g.lastTSMS {
					now = time.Now().UnixMilli()
				}
			}
		} else {
			g.seq = 0
		}
		g.lastTSMS = now

		ts := (now - g.epochMS) & ((1 << 41) - 1)
		return (ts << 22) | (g.nodeID << 12) | g.seq
	}
}

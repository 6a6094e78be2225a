// Package registry is the Connection Registry (C5): an in-process map
// from user id to the set of live sockets that user currently has open
// on this node. It enforces the per-user connection cap and keeps the
// cache's presence key in sync, but never routes across nodes — the
// spec's Non-goals keep this a single-process registry.
package registry

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MaxConnectionsPerUser is the default cap from spec §4.3.
const MaxConnectionsPerUser = 5

// PolicyViolationCloseCode is the websocket close code used to evict
// the oldest connection when a user is already at the cap (spec §6:
// 1013, "overloaded").
const PolicyViolationCloseCode = 1013

// Socket is the minimal capability the registry needs from a live
// connection: an identity for logging and a way to force-close it.
type Socket interface {
	ID() string
	Close(code int, reason string) error
}

// Presence is the subset of the cache store the registry needs to keep
// in sync with its in-process view. *cache.Store satisfies this
// directly; tests substitute a fake so cap/eviction logic doesn't
// require a live Redis.
type Presence interface {
	SetOnline(ctx context.Context, userID string) error
	ClearOnline(ctx context.Context, userID string) error
}

type Registry struct {
	mu       sync.RWMutex
	byUser   map[string][]Socket
	presence Presence
	log      *zap.Logger
	maxConn  int
}

// New builds a registry enforcing maxConn connections per user; pass 0
// to use MaxConnectionsPerUser.
func New(presence Presence, log *zap.Logger, maxConn int) *Registry {
	if maxConn <= 0 {
		maxConn = MaxConnectionsPerUser
	}
	return &Registry{
		byUser:   make(map[string][]Socket),
		presence: presence,
		log:      log,
		maxConn:  maxConn,
	}
}

// Register admits sock for userID, evicting the oldest connection first
// if the user is already at the cap, and marks the user online.
func (r *Registry) Register(ctx context.Context, userID string, sock Socket) {
	var evicted Socket

	r.mu.Lock()
	list := r.byUser[userID]
	if len(list) >= r.maxConn {
		evicted, list = list[0], list[1:]
	}
	r.byUser[userID] = append(list, sock)
	r.mu.Unlock()

	if evicted != nil {
		r.log.Info("evicting oldest connection over cap",
			zap.String("user_id", userID), zap.String("conn_id", evicted.ID()))
		if err := evicted.Close(PolicyViolationCloseCode, "POLICY_VIOLATION"); err != nil {
			r.log.Warn("close evicted connection", zap.Error(err))
		}
	}

	if err := r.presence.SetOnline(ctx, userID); err != nil {
		r.log.Warn("set presence online", zap.String("user_id", userID), zap.Error(err))
	}
}

// Unregister removes sock from userID's set. If the set becomes empty
// it clears the presence key, per spec §4.3.
func (r *Registry) Unregister(ctx context.Context, userID string, sock Socket) {
	r.mu.Lock()
	list := r.byUser[userID]
	for i, s := range list {
		if s.ID() == sock.ID() {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	empty := len(list) == 0
	if empty {
		delete(r.byUser, userID)
	} else {
		r.byUser[userID] = list
	}
	r.mu.Unlock()

	if empty {
		if err := r.presence.ClearOnline(ctx, userID); err != nil {
			r.log.Warn("clear presence online", zap.String("user_id", userID), zap.Error(err))
		}
	}
}

// SocketsFor returns a snapshot of userID's live sockets, safe to
// range over while other goroutines register/unregister concurrently.
func (r *Registry) SocketsFor(userID string) []Socket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Socket, len(r.byUser[userID]))
	copy(out, r.byUser[userID])
	return out
}

// IsLocallyOnline is a cheap membership test against the in-process
// map, distinct from the cache's presence key (which is the
// TTL-bounded, cross-restart-safe view C6 actually decides delivery on).
func (r *Registry) IsLocallyOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// All returns a snapshot of every socket currently registered, across
// every user, for graceful-shutdown draining.
func (r *Registry) All() []Socket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Socket
	for _, list := range r.byUser {
		out = append(out, list...)
	}
	return out
}

// CloseAll force-closes every live socket with closeCode/reason. The
// caller (main's SIGINT/SIGTERM handler) uses this to drain hijacked
// websocket connections before or alongside http.Server.Shutdown, which
// never sees them once gorilla/websocket has taken over the net.Conn.
func (r *Registry) CloseAll(closeCode int, reason string) {
	for _, sock := range r.All() {
		if err := sock.Close(closeCode, reason); err != nil {
			r.log.Warn("close connection during shutdown",
				zap.String("conn_id", sock.ID()), zap.Error(err))
		}
	}
}

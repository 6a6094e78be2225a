package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"chatserver/module/chat/model"
	"chatserver/service/cache"
	"chatserver/service/registry"
	"chatserver/tools/errs"
)

// Handler is one frame type's business logic, dispatched by the
// Router. The shape mirrors the teacher's Dispatcher/Handler split
// (service/chat/dispatcher.go and service/chat/types.go in the
// original, there keyed by a protobuf enum) generalized to the
// string-typed JSON frames this wire protocol uses.
type Handler interface {
	Handle(ctx context.Context, r *Router, conn *Connection, payload json.RawMessage)
}

// Store is the subset of the durable log the handlers and offline
// replay actually call. *store.Store satisfies it directly; tests
// substitute a fake so handler logic doesn't require a live Postgres.
type Store interface {
	GetUserByID(ctx context.Context, id string) (model.User, error)
	CreateDirectMessage(ctx context.Context, m model.DirectMessage) error
	GetDirectMessage(ctx context.Context, messageID string) (model.DirectMessage, error)
	GetDirectMessagesByID(ctx context.Context, messageIDs []string) ([]model.DirectMessage, error)
	MarkRead(ctx context.Context, messageID, recipientID string, at time.Time) (bool, error)
	MarkDeliveredBatch(ctx context.Context, messageIDs []string, at time.Time) error
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	MembersOf(ctx context.Context, groupID string) ([]string, error)
	CreateGroupMessage(ctx context.Context, m model.GroupMessage) error
	GetGroupMessage(ctx context.Context, messageID string) (model.GroupMessage, error)
	GetGroupMessagesByID(ctx context.Context, messageIDs []string) ([]model.GroupMessage, error)
	MarkGroupRead(ctx context.Context, messageID, userID string, at time.Time) (bool, error)
}

// Cache is the subset of the presence/offline-queue cache the handlers
// and offline replay call. *cache.Store satisfies it directly.
type Cache interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
	SetOnline(ctx context.Context, userID string) error
	Enqueue(ctx context.Context, userID string, entry cache.QueueEntry) error
	DrainQueue(ctx context.Context, userID string) ([]cache.QueueEntry, error)
}

// Router is the Message Router (C6): one dispatcher shared by every
// connection, holding the handler table and the dependencies handlers
// need (log store, cache, registry).
type Router struct {
	store    Store
	cache    Cache
	registry *registry.Registry
	log      *zap.Logger

	handlers map[string]Handler
	typing   *typingLimiter
}

func NewRouter(st Store, ch Cache, reg *registry.Registry, log *zap.Logger) *Router {
	r := &Router{
		store:    st,
		cache:    ch,
		registry: reg,
		log:      log,
		typing:   newTypingLimiter(),
	}
	r.handlers = map[string]Handler{
		TypeMessageSend:      sendMessageHandler{},
		TypeMessageGroupSend: groupSendHandler{},
		TypeMessageRead:      readReceiptHandler{},
		TypeTyping:           typingHandler{},
		TypePing:             pingHandler{},
	}
	return r
}

// Dispatch parses one raw frame and hands it to the matching handler.
// A frame that isn't valid JSON, or whose type is unknown, produces an
// error frame and leaves the connection open — the router never closes
// a socket over a malformed frame (spec §4.4).
func (r *Router) Dispatch(ctx context.Context, conn *Connection, raw []byte) {
	var envelope InboundFrame
	if err := json.Unmarshal(raw, &envelope); err != nil {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.ParseError), Message: "malformed frame"})
		return
	}

	h, ok := r.handlers[envelope.Type]
	if !ok {
		conn.Send(ErrorOut{Type: TypeError, Code: string(errs.InvalidMessageType), Message: "unrecognized frame type: " + envelope.Type})
		return
	}
	h.Handle(ctx, r, conn, raw)
}

// typingLimiter enforces spec §4.4's "at most one typing event per 1s
// per (sender, target) pair", dropping excess silently.
type typingLimiter struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func newTypingLimiter() *typingLimiter {
	return &typingLimiter{last: make(map[string]time.Time)}
}

func (t *typingLimiter) allow(sender, target string) bool {
	key := sender + "|" + target
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.last[key]; ok && now.Sub(last) < time.Second {
		return false
	}
	t.last[key] = now
	return true
}

package chat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"chatserver/tools/errs"
)

func newTestConnection(userID, username string) *Connection {
	return &Connection{
		id:        "test-conn",
		userID:    userID,
		username:  username,
		expiresAt: time.Now().Add(time.Hour),
		out:       make(chan []byte, outboundBuffer),
		log:       zap.NewNop(),
		closed:    make(chan struct{}),
	}
}

func decodeErrorFrame(t *testing.T, raw []byte) ErrorOut {
	t.Helper()
	var out ErrorOut
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode error frame: %v", err)
	}
	return out
}

func TestDispatchRejectsMalformedFrameWithoutClosing(t *testing.T) {
	r := &Router{log: zap.NewNop(), handlers: map[string]Handler{}, typing: newTypingLimiter()}
	conn := newTestConnection("user-1", "alice")

	r.Dispatch(context.Background(), conn, []byte(`not json`))

	select {
	case raw := <-conn.out:
		frame := decodeErrorFrame(t, raw)
		if frame.Code != string(errs.ParseError) {
			t.Errorf("want code %s, got %s", errs.ParseError, frame.Code)
		}
	default:
		t.Fatal("expected an error frame to be enqueued")
	}
	select {
	case <-conn.closed:
		t.Fatal("dispatch must not close the connection on a malformed frame")
	default:
	}
}

func TestDispatchRejectsUnknownFrameType(t *testing.T) {
	r := &Router{log: zap.NewNop(), handlers: map[string]Handler{}, typing: newTypingLimiter()}
	conn := newTestConnection("user-1", "alice")

	r.Dispatch(context.Background(), conn, []byte(`{"type":"not.a.real.type"}`))

	select {
	case raw := <-conn.out:
		frame := decodeErrorFrame(t, raw)
		if frame.Code != string(errs.InvalidMessageType) {
			t.Errorf("want code %s, got %s", errs.InvalidMessageType, frame.Code)
		}
	default:
		t.Fatal("expected an error frame to be enqueued")
	}
}

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	called := false
	fake := handlerFunc(func(ctx context.Context, r *Router, conn *Connection, payload json.RawMessage) {
		called = true
	})
	r := &Router{
		log:      zap.NewNop(),
		handlers: map[string]Handler{"custom.type": fake},
		typing:   newTypingLimiter(),
	}
	conn := newTestConnection("user-1", "alice")

	r.Dispatch(context.Background(), conn, []byte(`{"type":"custom.type"}`))

	if !called {
		t.Error("expected the registered handler to be invoked")
	}
}

type handlerFunc func(ctx context.Context, r *Router, conn *Connection, payload json.RawMessage)

func (f handlerFunc) Handle(ctx context.Context, r *Router, conn *Connection, payload json.RawMessage) {
	f(ctx, r, conn, payload)
}

func TestTypingLimiterAllowsFirstThenRateLimits(t *testing.T) {
	tl := newTypingLimiter()

	if !tl.allow("user-1", "user-2") {
		t.Fatal("expected first typing event to be allowed")
	}
	if tl.allow("user-1", "user-2") {
		t.Error("expected second immediate typing event to be rate limited")
	}
	if !tl.allow("user-1", "user-3") {
		t.Error("expected a different (sender, target) pair to be independently allowed")
	}
}

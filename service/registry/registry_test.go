package registry

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type fakeSocket struct {
	id     string
	mu     sync.Mutex
	closed bool
	code   int
	reason string
}

func (f *fakeSocket) ID() string { return f.id }

func (f *fakeSocket) Close(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.code = code
	f.reason = reason
	return nil
}

func (f *fakeSocket) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakePresence struct {
	mu     sync.Mutex
	online map[string]bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{online: make(map[string]bool)}
}

func (f *fakePresence) SetOnline(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[userID] = true
	return nil
}

func (f *fakePresence) ClearOnline(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.online, userID)
	return nil
}

func (f *fakePresence) isOnline(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[userID]
}

func TestRegisterMarksUserOnline(t *testing.T) {
	presence := newFakePresence()
	reg := New(presence, zap.NewNop(), 5)

	sock := &fakeSocket{id: "conn-1"}
	reg.Register(context.Background(), "user-1", sock)

	if !presence.isOnline("user-1") {
		t.Error("expected user to be marked online after Register")
	}
	if !reg.IsLocallyOnline("user-1") {
		t.Error("expected IsLocallyOnline to be true after Register")
	}
}

func TestUnregisterClearsPresenceWhenSetEmpty(t *testing.T) {
	presence := newFakePresence()
	reg := New(presence, zap.NewNop(), 5)

	sock := &fakeSocket{id: "conn-1"}
	reg.Register(context.Background(), "user-1", sock)
	reg.Unregister(context.Background(), "user-1", sock)

	if presence.isOnline("user-1") {
		t.Error("expected presence to be cleared once the last socket unregisters")
	}
	if reg.IsLocallyOnline("user-1") {
		t.Error("expected IsLocallyOnline to be false after last socket unregisters")
	}
}

func TestUnregisterKeepsPresenceWhileOtherSocketsRemain(t *testing.T) {
	presence := newFakePresence()
	reg := New(presence, zap.NewNop(), 5)

	a := &fakeSocket{id: "conn-a"}
	b := &fakeSocket{id: "conn-b"}
	reg.Register(context.Background(), "user-1", a)
	reg.Register(context.Background(), "user-1", b)

	reg.Unregister(context.Background(), "user-1", a)

	if !presence.isOnline("user-1") {
		t.Error("expected presence to remain while a socket is still registered")
	}
	sockets := reg.SocketsFor("user-1")
	if len(sockets) != 1 || sockets[0].ID() != "conn-b" {
		t.Errorf("expected only conn-b to remain, got %+v", sockets)
	}
}

func TestRegisterEvictsOldestOverCap(t *testing.T) {
	presence := newFakePresence()
	reg := New(presence, zap.NewNop(), 3)

	var socks []*fakeSocket
	for i := 0; i < 3; i++ {
		s := &fakeSocket{id: string(rune('a' + i))}
		socks = append(socks, s)
		reg.Register(context.Background(), "user-1", s)
	}

	// user is now at cap; one more registration should evict the oldest.
	newest := &fakeSocket{id: "newcomer"}
	reg.Register(context.Background(), "user-1", newest)

	if !socks[0].isClosed() {
		t.Error("expected the oldest connection to be evicted")
	}
	if socks[0].code != PolicyViolationCloseCode {
		t.Errorf("expected close code %d, got %d", PolicyViolationCloseCode, socks[0].code)
	}
	for _, s := range socks[1:] {
		if s.isClosed() {
			t.Errorf("did not expect %s to be evicted", s.id)
		}
	}

	remaining := reg.SocketsFor("user-1")
	if len(remaining) != 3 {
		t.Fatalf("expected exactly 3 sockets after eviction, got %d", len(remaining))
	}
	if remaining[len(remaining)-1].ID() != "newcomer" {
		t.Errorf("expected newest connection to be present, got %+v", remaining)
	}
}

func TestNewDefaultsMaxConnWhenNonPositive(t *testing.T) {
	reg := New(newFakePresence(), zap.NewNop(), 0)
	if reg.maxConn != MaxConnectionsPerUser {
		t.Errorf("want default maxConn %d, got %d", MaxConnectionsPerUser, reg.maxConn)
	}
}

func TestCloseAllClosesEverySocketAcrossUsers(t *testing.T) {
	presence := newFakePresence()
	reg := New(presence, zap.NewNop(), 5)

	a := &fakeSocket{id: "conn-a"}
	b := &fakeSocket{id: "conn-b"}
	c := &fakeSocket{id: "conn-c"}
	reg.Register(context.Background(), "user-1", a)
	reg.Register(context.Background(), "user-1", b)
	reg.Register(context.Background(), "user-2", c)

	if len(reg.All()) != 3 {
		t.Fatalf("expected All to return 3 sockets, got %d", len(reg.All()))
	}

	reg.CloseAll(1001, "server shutting down")

	for _, s := range []*fakeSocket{a, b, c} {
		if !s.isClosed() {
			t.Errorf("expected %s to be closed by CloseAll", s.id)
		}
		if s.reason != "server shutting down" {
			t.Errorf("expected close reason to propagate, got %q", s.reason)
		}
	}
}

func TestSocketsForReturnsSnapshotCopy(t *testing.T) {
	reg := New(newFakePresence(), zap.NewNop(), 5)
	reg.Register(context.Background(), "user-1", &fakeSocket{id: "conn-1"})

	snapshot := reg.SocketsFor("user-1")
	snapshot[0] = &fakeSocket{id: "mutated"}

	original := reg.SocketsFor("user-1")
	if original[0].ID() != "conn-1" {
		t.Error("expected SocketsFor to return an independent copy")
	}
}

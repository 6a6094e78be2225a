package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatserver/tools/ids"
)

const (
	outboundBuffer = 256
	writeWait      = 10 * time.Second

	// defaultIdleTimeout is used when Server isn't given a
	// CHAT_SOCKET_IDLE_TIMEOUT override.
	defaultIdleTimeout = 90 * time.Second
	readLimit          = 64 * 1024

	// AuthExpiredCloseCode is spec §6's 4001: authentication failed or
	// expired. The client must re-authenticate rather than reconnect.
	AuthExpiredCloseCode = 4001
)

// Connection wraps one gorilla/websocket socket with the reader/writer
// split spec §5 requires: a single reader goroutine and a single writer
// goroutine draining a bounded outbound channel, so concurrent
// dispatcher sends never race on the wire.
type Connection struct {
	id        string
	userID    string
	username  string
	expiresAt time.Time
	conn      *websocket.Conn
	out       chan []byte
	log       *zap.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

func newConnection(conn *websocket.Conn, userID, username string, expiresAt time.Time, log *zap.Logger) *Connection {
	return &Connection{
		id:        ids.NewConnIDString(),
		userID:    userID,
		username:  username,
		expiresAt: expiresAt,
		conn:      conn,
		out:       make(chan []byte, outboundBuffer),
		log:       log,
		closed:    make(chan struct{}),
	}
}

func (c *Connection) ID() string { return c.id }

// Send enqueues a frame for the writer goroutine. If the outbound
// channel is full the connection is a slow client per spec §5's
// backpressure rule: close it and let the caller unregister.
func (c *Connection) Send(frame any) {
	b, err := json.Marshal(frame)
	if err != nil {
		c.log.Error("marshal outbound frame", zap.Error(err))
		return
	}
	select {
	case c.out <- b:
	default:
		c.log.Warn("outbound channel full, dropping slow client", zap.String("conn_id", c.id))
		_ = c.Close(websocket.CloseTryAgainLater, "backpressure")
	}
}

// Close is idempotent and satisfies registry.Socket.
func (c *Connection) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// writePump drains the outbound channel until the connection closes.
func (c *Connection) writePump() {
	for {
		select {
		case <-c.closed:
			return
		case b, ok := <-c.out:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				_ = c.Close(websocket.CloseInternalServerErr, "write failed")
				return
			}
		}
	}
}

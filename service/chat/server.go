package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatserver/service/registry"
	"chatserver/service/token"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server owns the websocket handshake and the per-connection
// reader/writer lifecycle. It is the transport half of C6; Router is
// the business-logic half.
type Server struct {
	router      *Router
	registry    *registry.Registry
	tokens      *token.Service
	log         *zap.Logger
	idleTimeout time.Duration
}

// NewServer builds a Server; idleTimeout of 0 falls back to
// defaultIdleTimeout.
func NewServer(router *Router, reg *registry.Registry, tokens *token.Service, log *zap.Logger, idleTimeout time.Duration) *Server {
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}
	return &Server{router: router, registry: reg, tokens: tokens, log: log, idleTimeout: idleTimeout}
}

// Handle is the gin handler mounted at /ws. Auth happens before the
// upgrade: an invalid token gets HTTP 401, never an accepted socket
// (spec §6's handshake contract).
func (s *Server) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	claims, err := s.tokens.VerifyAccess(rawToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"code": "AUTH_INVALID", "message": "invalid or missing token"}})
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := newConnection(wsConn, claims.UserID, claims.Username, time.Unix(claims.ExpireAt, 0), s.log)
	ctx := c.Request.Context()

	s.registry.Register(ctx, conn.userID, conn)
	go conn.writePump()
	s.replay(ctx, conn)

	s.readLoop(ctx, conn)

	s.registry.Unregister(context.Background(), conn.userID, conn)
	_ = conn.Close(websocket.CloseNormalClosure, "")
}

func (s *Server) readLoop(ctx context.Context, conn *Connection) {
	conn.conn.SetReadLimit(readLimit)
	_ = conn.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
	conn.conn.SetPongHandler(func(string) error {
		_ = conn.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		return nil
	})

	for {
		_, raw, err := conn.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))

		if time.Now().After(conn.expiresAt) {
			_ = conn.Close(AuthExpiredCloseCode, "access token expired")
			return
		}
		s.router.Dispatch(ctx, conn, raw)
	}
}

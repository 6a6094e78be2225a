package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Origin rejects any request (REST or websocket handshake) whose Origin
// header is set and isn't in allowed; requests without an Origin header
// pass. An empty allowed list means "accept any origin" (the
// teacher's original behavior, useful for local development).
func Origin(allowed []string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		allowedSet[o] = struct{}{}
	}
	return func(c *gin.Context) {
		if len(allowedSet) == 0 {
			c.Next()
			return
		}
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		if _, ok := allowedSet[origin]; !ok {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

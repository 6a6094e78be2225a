package middleware

import (
	"github.com/gin-gonic/gin"

	midsec "chatserver/middleware/security"
	"chatserver/service/token"
)

// RouteOpt controls whether a route requires a verified access token.
type RouteOpt struct {
	IsAuth bool
}

// POST registers a POST route, wrapping it with the bearer-auth
// middleware when opt.IsAuth is set.
func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, tk *token.Service, opt RouteOpt) {
	if opt.IsAuth {
		r.POST(path, midsec.Middleware(tk), handler)
		return
	}
	r.POST(path, handler)
}

// GET registers a GET route, wrapping it with the bearer-auth
// middleware when opt.IsAuth is set.
func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, tk *token.Service, opt RouteOpt) {
	if opt.IsAuth {
		r.GET(path, midsec.Middleware(tk), handler)
		return
	}
	r.GET(path, handler)
}

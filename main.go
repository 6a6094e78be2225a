package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatserver/config"
	"chatserver/logger"
	"chatserver/middleware"
	"chatserver/service/auth"
	"chatserver/service/cache"
	"chatserver/service/chat"
	"chatserver/service/registry"
	"chatserver/service/rest"
	"chatserver/service/store"
	"chatserver/service/token"
	"chatserver/tools/ids"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Debug)
	defer log.Sync()

	ids.SetNodeID(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.New(ctx, cfg.DatabaseURL, store.Config{
		MinConns:     int32(cfg.DBMinConns),
		MaxConns:     int32(cfg.DBMaxConns),
		QueryTimeout: cfg.DBQueryTimeout,
	})
	if err != nil {
		log.Fatal("connect to durable log store", zap.Error(err))
	}
	defer st.Close()

	ch, err := cache.New(ctx, cache.Config{
		Addr:          cfg.RedisAddr,
		Password:      cfg.RedisPassword,
		DB:            cfg.RedisDB,
		PoolSize:      20,
		PresenceTTL:   cfg.HeartbeatTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
	})
	if err != nil {
		log.Fatal("connect to cache", zap.Error(err))
	}
	defer ch.Close()

	tokens := token.New(st, ch, cfg.JWTSecret, token.Config{AccessTTL: cfg.AccessTokenTTL, RefreshTTL: cfg.RefreshTokenTTL})
	authSvc := auth.New(st, tokens, nil)
	reg := registry.New(ch, log, cfg.MaxConnectionsPerUser)
	router := chat.NewRouter(st, ch, reg, log)
	chatServer := chat.NewServer(router, reg, tokens, log, cfg.SocketIdleTimeout)

	engine := buildEngine(cfg, log, tokens, authSvc, st, chatServer)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	go func() {
		log.Info("listening", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	waitForShutdown(log, srv, reg)
}

func buildEngine(cfg config.Config, log *zap.Logger, tokens *token.Service, authSvc *auth.Service, st *store.Store, chatServer *chat.Server) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	mgr := middleware.NewManager()
	mgr.Add(middleware.Origin(cfg.AllowedOrigins))
	engine.Use(mgr.Use())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandlers := rest.NewAuthHandlers(authSvc)
	authGroup := engine.Group("/auth")
	middleware.POST(authGroup, "/signup", authHandlers.Signup, tokens, middleware.RouteOpt{})
	middleware.POST(authGroup, "/login", authHandlers.Login, tokens, middleware.RouteOpt{})
	middleware.POST(authGroup, "/logout", authHandlers.Logout, tokens, middleware.RouteOpt{})
	middleware.POST(authGroup, "/refresh", authHandlers.Refresh, tokens, middleware.RouteOpt{})
	middleware.POST(authGroup, "/reset/request", authHandlers.RequestReset, tokens, middleware.RouteOpt{})
	middleware.POST(authGroup, "/reset/confirm", authHandlers.ConfirmReset, tokens, middleware.RouteOpt{})

	middleware.GET(engine, "/session/check", authHandlers.SessionCheck, tokens, middleware.RouteOpt{})
	middleware.GET(engine, "/users/lookup", authHandlers.LookupUser, tokens, middleware.RouteOpt{IsAuth: true})

	queryHandlers := rest.NewQueryHandlers(st)
	middleware.GET(engine, "/conversations", queryHandlers.Conversations, tokens, middleware.RouteOpt{IsAuth: true})
	middleware.GET(engine, "/conversation/:peer", queryHandlers.Conversation, tokens, middleware.RouteOpt{IsAuth: true})
	middleware.POST(engine, "/messages/:id/read", queryHandlers.MarkRead, tokens, middleware.RouteOpt{IsAuth: true})
	middleware.GET(engine, "/groups/my", queryHandlers.MyGroups, tokens, middleware.RouteOpt{IsAuth: true})
	middleware.GET(engine, "/groups/:id/messages", queryHandlers.GroupMessages, tokens, middleware.RouteOpt{IsAuth: true})
	middleware.POST(engine, "/groups", queryHandlers.CreateGroup, tokens, middleware.RouteOpt{IsAuth: true})
	middleware.POST(engine, "/groups/:id/members", queryHandlers.AddGroupMember, tokens, middleware.RouteOpt{IsAuth: true})

	engine.GET("/ws", chatServer.Handle)

	return engine
}

func waitForShutdown(log *zap.Logger, srv *http.Server, reg *registry.Registry) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	// gorilla/websocket hijacks the net.Conn on upgrade, so srv.Shutdown
	// never sees those sockets; drain the registry directly first.
	reg.CloseAll(websocket.CloseGoingAway, "server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

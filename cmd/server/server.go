package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/messagely/internal/cache"
	"github.com/thereayou/messagely/internal/config"
	"github.com/thereayou/messagely/internal/database"
	"github.com/thereayou/messagely/internal/handlers"
	"github.com/thereayou/messagely/internal/logging"
	"github.com/thereayou/messagely/internal/middleware"
	"github.com/thereayou/messagely/internal/services"
	ws "github.com/thereayou/messagely/internal/websocket"
	"github.com/thereayou/messagely/pkg/auth"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Router     *gin.Engine
	Store      services.CredentialStore
	Redis      *redis.Client
	Hub        *ws.Hub
	JWTManager *auth.JWTManager

	cfg     *config.Config
	log     logging.Logger
	closers []func() error
}

// NewServer wires the store, cache, hasher, token manager, services, hub and
// router described by cfg.
func NewServer(ctx context.Context, cfg *config.Config, log logging.Logger) (*Server, error) {
	s := &Server{cfg: cfg, log: log}

	store, err := s.openStore(ctx)
	if err != nil {
		return nil, err
	}
	s.Store = store

	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Redis = rdb
		s.closers = append(s.closers, rdb.Close)
	} else {
		log.Info(ctx, "REDIS_URL not set, user list cache disabled")
	}

	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost, cfg.HashConcurrency)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	jwtMgr, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.JWTManager = jwtMgr

	s.Hub = ws.NewHub(log)
	go s.Hub.Run()

	userList := cache.NewUserListCache(store, s.Redis, cfg.UserListCacheTTL, log)
	identity := services.NewIdentityManager(store, hasher,
		services.WithUserList(userList),
		services.WithIdentityLogger(log),
	)
	authSvc := services.NewAuthService(identity, jwtMgr, log)
	directory := services.NewMessageDirectory(store,
		services.WithNotifier(s.Hub),
		services.WithDirectoryLogger(log),
	)
	guard := services.NewGuard(jwtMgr)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log.With("module", "http")))
	APIEndpoints(router, Handlers{
		Auth:      handlers.NewAuthHandler(authSvc, log),
		Users:     handlers.NewUserHandler(identity, directory, log),
		Messages:  handlers.NewHTTPMessageHandler(directory, guard, log),
		WebSocket: handlers.NewWebSocketHandler(s.Hub, log),
	}, guard)
	s.Router = router

	return s, nil
}

func (s *Server) openStore(ctx context.Context) (services.CredentialStore, error) {
	switch s.cfg.StoreDriver {
	case config.StoreDriverMemory:
		s.log.Warn(ctx, "using in-memory store, data is lost on exit")
		return database.NewMemoryStore(), nil
	case config.StoreDriverPostgres:
		db, err := database.Connect(ctx, s.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres connect failed: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		return db, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", s.cfg.StoreDriver)
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "server starting", "port", s.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info(context.Background(), "server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.Hub.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close stops the hub and releases the store and redis connections.
func (s *Server) Close() error {
	if s.Hub != nil {
		s.Hub.Stop()
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/eaglebank/accounts/internal/command"
	"github.com/eaglebank/accounts/internal/config"
	"github.com/eaglebank/accounts/internal/database"
	"github.com/eaglebank/accounts/internal/handler"
	"github.com/eaglebank/accounts/internal/query"
	"github.com/eaglebank/accounts/internal/repository"
	"github.com/eaglebank/accounts/shared/events"
	"github.com/eaglebank/accounts/shared/middleware"
	sharedredis "github.com/eaglebank/accounts/shared/redis"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
)

// Server owns every long-lived collaborator of the service. It is built once
// at startup and nothing in it is package-level state.
type Server struct {
	cfg        config.Config
	db         *sqlx.DB
	redis      *sharedredis.Client
	router     *gin.Engine
	httpServer *http.Server
}

// New opens the database (and Redis when configured) and wires the CQRS
// services, handlers and middleware into a router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	db, err := database.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	var redisClient *sharedredis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = sharedredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return NewWithDeps(cfg, db, redisClient), nil
}

// NewWithDeps wires the service around already opened connections.
// redisClient may be nil, which disables the view cache and event publishing.
func NewWithDeps(cfg config.Config, db *sqlx.DB, redisClient *sharedredis.Client) *Server {
	var (
		rdb       *goredis.Client
		publisher command.EventPublisher = events.NopPublisher{}
	)
	if redisClient != nil {
		rdb = redisClient.Client
		publisher = events.NewPublisher(rdb, int64(cfg.Redis.StreamMaxLen))
	}

	// --- CQRS wiring ---
	writeRepo := repository.NewAccountWriteRepository(db)
	readRepo := repository.NewAccountReadRepository(db, rdb, cfg.Redis.CacheTTL)

	commandSvc := command.NewAccountCommandService(writeRepo, readRepo, publisher)
	querySvc := query.NewAccountQueryService(readRepo)

	accountHandler := handler.NewAccountHandler(commandSvc, querySvc)
	router := NewRouter(cfg, accountHandler)

	return &Server{
		cfg:    cfg,
		db:     db,
		redis:  redisClient,
		router: router,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		},
	}
}

// NewRouter builds the gin engine. Middleware registered with Use also runs
// in gin's 404 and 405 chains, so every response gets the security headers.
func NewRouter(cfg config.Config, accountHandler *handler.AccountHandler) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(
		gin.Recovery(),
		middleware.LoggingMiddleware(),
		middleware.SecurityHeaders(middleware.SecurityConfig{
			HSTSMaxAge: cfg.Security.HSTSMaxAge,
			HSTSAlways: cfg.Security.HSTSAlways,
		}),
		middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: cfg.Security.AllowedOrigins,
		}),
	)
	router.NoRoute(handler.NoRoute)
	router.NoMethod(handler.NoMethod)

	handler.RegisterRoutes(router, accountHandler)
	return router
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Account service starting on port %d", s.cfg.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Close releases Redis and the database.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

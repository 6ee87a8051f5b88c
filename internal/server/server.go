// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It decides:
//   - Which backend (MongoDB or SQLite) the repositories talk to
//   - Which URL patterns map to which handler functions
//   - What middleware runs on which routes
//   - How the server starts, falls back to another port, and stops
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New():
//	  openStore() → repository.Store (mongodb.Store | sqlite.DB)
//	  Store → services → handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired in
// one place (New/setupRoutes) rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/alumni-network/internal/auth"
	"github.com/sakif/alumni-network/internal/config"
	"github.com/sakif/alumni-network/internal/handler"
	"github.com/sakif/alumni-network/internal/middleware"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
	"github.com/sakif/alumni-network/internal/repository/mongodb"
	sqliteRepo "github.com/sakif/alumni-network/internal/repository/sqlite"
	"github.com/sakif/alumni-network/internal/service"
	"github.com/sakif/alumni-network/internal/validation"
)

const (
	connectTimeout  = 10 * time.Second
	seedTimeout     = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store connection and, when configured, the Redis
// client. Both are closed by Close, which Start calls on the way out.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	store  repository.Store
	redis  *redis.Client

	// addr is the address actually bound by Start, after any port fallback.
	addr string
	// ready is closed once the listener is bound.
	ready chan struct{}
}

// New opens the configured backend, seeds it and builds the router.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	v := validation.New()

	store, err := openStore(ctx, cfg, v, logger)
	if err != nil {
		return nil, err
	}

	s, err := NewWithStore(ctx, cfg, store, v, logger)
	if err != nil {
		store.Close(context.Background())
		return nil, err
	}
	return s, nil
}

// NewWithStore wires a server around an already-open store. The server
// takes ownership of store.
func NewWithStore(ctx context.Context, cfg *config.Config, store repository.Store, v *validation.Validator, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		store:  store,
		ready:  make(chan struct{}),
	}

	passwords := auth.NewPasswordService()
	s.seed(ctx, passwords)

	if err := s.setupRoutes(v, passwords); err != nil {
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

// openStore connects to MongoDB or opens the SQLite file.
func openStore(ctx context.Context, cfg *config.Config, v *validation.Validator, logger *slog.Logger) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, v)
		if err != nil {
			return nil, fmt.Errorf("server: connecting to MongoDB: %w", err)
		}
		logger.Info("connected to MongoDB", slog.String("database", cfg.MongoDatabase))
		return store, nil

	case config.DriverSQLite:
		if cfg.DBPath != ":memory:" {
			// os.MkdirAll is `mkdir -p`: it's fine if the directory exists.
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("server: creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath, v)
		if err != nil {
			return nil, fmt.Errorf("server: opening SQLite: %w", err)
		}
		logger.Info("opened SQLite database", slog.String("path", cfg.DBPath))
		return db, nil

	default:
		return nil, fmt.Errorf("server: unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

// seed runs the startup seeder. Failures are logged; the API still
// starts.
func (s *Server) seed(ctx context.Context, passwords *auth.PasswordService) {
	ctx, cancel := context.WithTimeout(ctx, seedTimeout)
	defer cancel()

	seeder := service.NewSeeder(s.store, passwords, service.SeedConfig{
		AdminName:      s.cfg.AdminName,
		AdminEmail:     s.cfg.AdminEmail,
		AdminPassword:  s.cfg.AdminPassword,
		AdminGender:    model.Gender(s.cfg.AdminGender),
		AdminBatchYear: s.cfg.AdminBatchYear,
		Samples:        s.cfg.SeedSamples,
	}, s.logger)

	if err := seeder.Run(ctx); err != nil {
		s.logger.Error("database seeding failed", slog.String("error", err.Error()))
	}
}

// rateLimiter picks the Redis limiter when REDIS_ADDR is set and Redis
// answers, and the in-memory limiter otherwise.
func (s *Server) rateLimiter() middleware.Limiter {
	if s.cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := client.Ping(ctx).Err()
		if err == nil {
			s.redis = client
			s.logger.Info("rate limiting through Redis", slog.String("addr", s.cfg.RedisAddr))
			return middleware.NewRedisLimiter(client, s.cfg.RateLimit, s.cfg.RateWindow)
		}
		s.logger.Warn("Redis unavailable, rate limiting in memory",
			slog.String("addr", s.cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
		client.Close()
	}
	return middleware.NewMemoryLimiter(s.cfg.RateLimit, s.cfg.RateWindow)
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /health                  → liveness (not rate limited)
//	POST   /auth/register           → sign up
//	POST   /auth/login              → sign in
//	GET    /auth/me                 → current user          [auth]
//	GET    /auth/google/login       → Google redirect       (when configured)
//	GET    /auth/google/callback    → Google sign-in        (when configured)
//	GET    /alumni                  → directory
//	PUT    /alumni/profile          → edit own profile      [auth]
//	GET    /events                  → list
//	POST   /events                  → create                [admin]
//	PUT    /events/{id}             → edit                  [admin]
//	DELETE /events/{id}             → delete                [admin]
//	POST   /events/{id}/register    → register              [auth]
//	GET    /news                    → list
//	POST   /news                    → create                [admin]
//	PUT    /news/{id}               → edit                  [admin]
//	DELETE /news/{id}               → delete                [admin]
//
// MIDDLEWARE ORDER MATTERS:
// RequestID → RealIP → Logger → Recoverer → security headers → CORS.
// The logger sits outside Recoverer so recovered panics are logged as 500s.
func (s *Server) setupRoutes(v *validation.Validator, passwords *auth.PasswordService) error {
	tokens, err := auth.NewTokenService(s.cfg.JWTSecret)
	if err != nil {
		return err
	}

	var google *auth.GoogleProvider
	if s.cfg.GoogleEnabled() {
		redirect := s.cfg.GoogleRedirectURL
		if redirect == "" {
			redirect = fmt.Sprintf("http://localhost:%d/auth/google/callback", s.cfg.Port)
		}
		google = auth.NewGoogleProvider(s.cfg.GoogleClientID, s.cfg.GoogleClientSecret, redirect)
	}

	gate := auth.NewGate(tokens, s.store.Users(), s.logger)

	authHandler := handler.NewAuthHandler(
		service.NewAuthService(s.store.Users(), tokens, passwords, v, s.logger), google, s.logger)
	alumniHandler := handler.NewAlumniHandler(service.NewAlumniService(s.store.Users(), s.logger), s.logger)
	eventHandler := handler.NewEventHandler(service.NewEventService(s.store.Events(), s.logger), s.logger)
	newsHandler := handler.NewNewsHandler(service.NewNewsService(s.store.News(), s.logger), s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.SecurityHeaders)
	s.router.Use(middleware.CORS(s.cfg.CORSOrigins))

	s.router.Get("/health", healthHandler.HandleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.rateLimiter(), s.logger))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.With(gate.RequireAuth).Get("/me", authHandler.HandleMe)
			if google != nil {
				r.Get("/google/login", authHandler.HandleGoogleLogin)
				r.Get("/google/callback", authHandler.HandleGoogleCallback)
			}
		})

		r.Route("/alumni", func(r chi.Router) {
			r.Get("/", alumniHandler.HandleList)
			r.With(gate.RequireAuth).Put("/profile", alumniHandler.HandleUpdateProfile)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.HandleList)
			r.With(gate.RequireAuth).Post("/{id}/register", eventHandler.HandleRegister)

			r.Group(func(r chi.Router) {
				r.Use(gate.RequireAdmin)
				r.Post("/", eventHandler.HandleCreate)
				r.Put("/{id}", eventHandler.HandleUpdate)
				r.Delete("/{id}", eventHandler.HandleDelete)
			})
		})

		r.Route("/news", func(r chi.Router) {
			r.Get("/", newsHandler.HandleList)

			r.Group(func(r chi.Router) {
				r.Use(gate.RequireAdmin)
				r.Post("/", newsHandler.HandleCreate)
				r.Put("/{id}", newsHandler.HandleUpdate)
				r.Delete("/{id}", newsHandler.HandleDelete)
			})
		})
	})

	return nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the bound address once Ready is closed.
func (s *Server) Addr() string {
	return s.addr
}

// Ready is closed once Start has bound its listener.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to 30s for in-flight requests to finish
//  3. Close the store and the Redis client
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	ln, err := listen(s.cfg.Port, s.cfg.PortAttempts, s.logger)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	close(s.ready)

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", s.addr),
			slog.String("database", s.cfg.DBDriver),
		)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close releases the store and the Redis client.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
		s.redis = nil
	}
	if s.store != nil {
		errs = append(errs, s.store.Close(ctx))
		s.store = nil
	}
	return errors.Join(errs...)
}

// listen binds port, moving to the next port while the current one is in
// use, for at most attempts ports. Any other listen error is returned
// immediately. Port 0 asks the OS for a free port.
func listen(port, attempts int, logger *slog.Logger) (net.Listener, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		addr := fmt.Sprintf(":%d", port+i)
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) || port == 0 {
			return nil, fmt.Errorf("server: listening on %s: %w", addr, err)
		}
		logger.Warn("port in use, trying the next one", slog.Int("port", port+i))
		lastErr = err
	}
	return nil, fmt.Errorf("server: no free port in %d..%d: %w", port, port+attempts-1, lastErr)
}

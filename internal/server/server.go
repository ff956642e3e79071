// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "start the server")
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config and passes it here. New() then assembles the chain:
//
//	sqlite.DB → AccountService/SessionService/OAuthService/MessageService/TagService
//	          → AuthHandler/UserHandler/MessageHandler/TagHandler → routes
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/config"
	"github.com/sakif/microblog/internal/handler"
	"github.com/sakif/microblog/internal/middleware"
	sqliteRepo "github.com/sakif/microblog/internal/repository/sqlite"
	"github.com/sakif/microblog/internal/service"
)

// sessionPruneInterval is how often expired session rows are swept.
// A session row only matters while its JWT is still valid, so sweeping
// hourly keeps the table small without any correctness impact.
const sessionPruneInterval = time.Hour

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). When the server shuts down,
// we must close this connection to flush any pending writes and release the
// file lock. This is handled in Start() during graceful shutdown.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *service.SessionService
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
// This is where the entire dependency chain is assembled:
//  1. Create the database connection (sqlite.New)
//  2. Create the auth building blocks (password hasher, token codec, provider)
//  3. Create the service layer with the repository interfaces
//  4. Create the handlers with the services
//  5. Wire handlers to routes
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not the concrete sqlite.DB)
// - Handlers get services (not the repositories or DB)
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package. Import aliases are common in Go when
// package names would otherwise collide or be unclear.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	codec, err := auth.NewTokenCodec(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token codec: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes(codec)
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /auth/signup               → Create an account (and sign in)
//	POST   /auth/login                → Sign in with username + password
//	POST   /auth/logout               → End the current session
//	GET    /auth/me                   → The signed-in user (or 401)
//	GET    /auth/github/login         → Start the OAuth dance (if configured)
//	GET    /auth/github/callback      → Finish the OAuth dance
//	GET    /api/users                 → List users
//	GET    /api/users/{id}            → Get one user
//	GET    /api/users/{id}/messages   → One user's messages
//	PUT    /api/users/{id}            → Edit profile       (owner only)
//	PUT    /api/users/{id}/password   → Change password    (owner only)
//	DELETE /api/users/{id}            → Delete account     (owner only)
//	GET    /api/messages              → List messages
//	GET    /api/messages/{id}         → Get one message
//	POST   /api/messages              → Post a message     (signed in)
//	PUT    /api/messages/{id}         → Edit a message     (owner only)
//	DELETE /api/messages/{id}         → Delete a message   (owner only)
//	GET    /api/tags                  → List tags
//	GET    /api/tags/{id}             → Get one tag
//	POST   /api/tags                  → Create a tag       (signed in)
//	PUT    /api/tags/{id}             → Rename a tag       (signed in)
//	DELETE /api/tags/{id}             → Delete a tag       (signed in)
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. RequestLogger — logs each request with timing info
// 5. WithCurrentUser — resolves the session cookie into a user (never blocks)
//
// Note that RequireUser only guards whether ANY user is signed in; the
// ownership decisions live in the services, next to the data they protect.
func (s *Server) setupRoutes(codec *auth.TokenCodec) {
	// === Services ===
	passwords := auth.NewPasswordHasher()
	accountService := service.NewAccountService(s.db, passwords, s.logger)
	s.sessions = service.NewSessionService(s.db, s.db, codec, s.logger)
	oauthService := service.NewOAuthService(s.db, passwords, s.sessions, s.logger)
	messageService := service.NewMessageService(s.db, s.db, s.logger)
	tagService := service.NewTagService(s.db, s.logger)

	// The provider stays nil when no OAuth app is configured; the OAuth
	// routes are simply not mounted in that case.
	var provider auth.Provider
	if s.config.OAuthConfigured() {
		provider = auth.NewGitHubProvider(
			s.config.OAuthClientID,
			s.config.OAuthClientSecret,
			s.config.OAuthCallbackURL,
		)
	}

	// === Handlers ===
	authHandler := handler.NewAuthHandler(accountService, s.sessions, oauthService, provider, s.logger)
	userHandler := handler.NewUserHandler(accountService, s.logger)
	messageHandler := handler.NewMessageHandler(messageService, s.logger)
	tagHandler := handler.NewTagHandler(tagService, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	s.router.Use(middleware.RequestLogger(s.logger))

	// Resolve the session cookie on every request. Anonymous requests pass
	// through with no user attached; enforcement happens further in.
	s.router.Use(auth.WithCurrentUser(s.sessions))

	// === Auth Routes ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.With(auth.RequireUser).Get("/me", authHandler.HandleMe)

		if provider != nil {
			r.Get("/github/login", authHandler.HandleOAuthLogin)
			r.Get("/github/callback", authHandler.HandleOAuthCallback)
		}
	})

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		// Reads are public.
		r.Get("/users", userHandler.HandleList)
		r.Get("/users/{id}", userHandler.HandleGet)
		r.Get("/users/{id}/messages", messageHandler.HandleListByUser)
		r.Get("/messages", messageHandler.HandleList)
		r.Get("/messages/{id}", messageHandler.HandleGet)
		r.Get("/tags", tagHandler.HandleList)
		r.Get("/tags/{id}", tagHandler.HandleGet)

		// Writes need a signed-in user. RequireUser gives anonymous callers
		// a clean 401 up front; the per-resource ownership checks still run
		// inside the services.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser)

			r.Put("/users/{id}", userHandler.HandleUpdate)
			r.Put("/users/{id}/password", userHandler.HandleUpdatePassword)
			r.Delete("/users/{id}", userHandler.HandleDelete)

			r.Post("/messages", messageHandler.HandleCreate)
			r.Put("/messages/{id}", messageHandler.HandleUpdate)
			r.Delete("/messages/{id}", messageHandler.HandleDelete)

			r.Post("/tags", tagHandler.HandleCreate)
			r.Put("/tags/{id}", tagHandler.HandleUpdate)
			r.Delete("/tags/{id}", tagHandler.HandleDelete)
		})
	})
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
//
// If we skip step 3, the database file might be left in an inconsistent state.
// The `defer s.db.Close()` ensures this happens even if something panics.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Sweep expired session rows in the background until shutdown.
	pruneCtx, stopPrune := context.WithCancel(context.Background())
	defer stopPrune()
	go s.pruneSessions(pruneCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("oauth", s.config.OAuthConfigured()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// pruneSessions periodically deletes expired session rows.
func (s *Server) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sessions.PruneExpired(ctx); err != nil {
				s.logger.Error("pruning expired sessions", slog.String("error", err.Error()))
			}
		}
	}
}

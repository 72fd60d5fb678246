// Package server assembles the application: it wires repositories into
// services, services into handlers, and handlers into the chi router.
//
// This is the composition root — the only place that knows about every
// layer. main.go just loads config and calls New/Start.
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

	"github.com/codeboxhq/codebox/internal/auth"
	"github.com/codeboxhq/codebox/internal/config"
	"github.com/codeboxhq/codebox/internal/handler"
	"github.com/codeboxhq/codebox/internal/meta"
	"github.com/codeboxhq/codebox/internal/middleware"
	sqliteRepo "github.com/codeboxhq/codebox/internal/repository/sqlite"
	"github.com/codeboxhq/codebox/internal/service"
)

// Server owns the router and the resources that need closing on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires the full dependency graph.
//
// Each layer receives only what it needs: services get repository
// interfaces (not the concrete sqlite.DB), handlers get services. The
// sqlite import is aliased to keep it distinct from the driver package.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes builds every service and handler and binds the route table.
//
// Middleware order matters: RequestID and RealIP run first so the logger
// and the rate limiter see the right values; Recoverer turns panics into
// 500s instead of killing the process.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	// GitHub OAuth is optional — the handler serves 404 on its routes when
	// the credentials are not configured.
	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.BaseURL+"/auth/github/callback",
		)
	}

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	snippetService := service.NewSnippetService(s.db, s.db, s.logger)
	queryService := service.NewQueryService(s.db, s.db, s.db, s.logger)
	interactionService := service.NewInteractionService(s.db, s.db, s.db, s.logger)
	notificationService := service.NewNotificationService(s.db)
	profileService := service.NewProfileService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, queryService, s.logger)
	queryHandler := handler.NewQueryHandler(queryService, profileService, s.logger)
	interactionHandler := handler.NewInteractionHandler(interactionService, queryService, s.logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, s.logger)
	profileHandler := handler.NewProfileHandler(profileService, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
	})

	s.router.Route("/api", func(r chi.Router) {
		// Public reads. Trending must be registered before {slug} so chi
		// doesn't treat "trending" as a slug.
		r.Get("/snippets", queryHandler.HandleSearch)
		r.Get("/snippets/trending", queryHandler.HandleTrending)
		r.Get("/snippets/{slug}", queryHandler.HandleGetBySlug)
		r.Post("/snippets/{id}/view", interactionHandler.HandleRecordView)
		r.Get("/tags/popular", queryHandler.HandlePopularTags)
		r.Get("/users/{username}", queryHandler.HandleProfile)

		// Authenticated routes.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.HandleMe)
			r.Put("/profile", profileHandler.HandleUpdate)

			r.Post("/snippets", snippetHandler.HandleCreate)
			r.Put("/snippets/{id}", snippetHandler.HandleUpdate)
			r.Delete("/snippets/{id}", snippetHandler.HandleDelete)
			r.Get("/snippets/{id}/edit", snippetHandler.HandleGetForEdit)
			r.Get("/dashboard/snippets", snippetHandler.HandleListMine)
			r.Get("/dashboard/stats", snippetHandler.HandleStats)

			r.Post("/snippets/{id}/like", interactionHandler.HandleToggleLike)
			r.Post("/snippets/{id}/bookmark", interactionHandler.HandleToggleBookmark)
			r.Get("/snippets/{id}/interaction", interactionHandler.HandleInteractionState)
			r.Get("/bookmarks", interactionHandler.HandleBookmarks)

			r.Get("/notifications", notificationHandler.HandleList)
			r.Get("/notifications/unread-count", notificationHandler.HandleUnreadCount)
			r.Put("/notifications/read-all", notificationHandler.HandleMarkAllRead)
			r.Put("/notifications/{id}/read", notificationHandler.HandleMarkRead)
			r.Delete("/notifications/{id}", notificationHandler.HandleDelete)
		})
	})

	// The metadata generator needs a Gemini key. The route stays registered
	// either way so an unconfigured server answers with a clear 500 instead
	// of a misleading 404.
	var generator *meta.Generator
	if s.config.GeminiAPIKey != "" {
		client, err := meta.NewClient(context.Background(), s.config.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("creating Gemini client: %w", err)
		}
		generator = meta.NewGenerator(client, s.logger)
	} else {
		s.logger.Warn("GEMINI_API_KEY not set, metadata generation disabled")
	}
	limiter := meta.NewLimiter(meta.DefaultRateLimit, meta.DefaultRateWindow)
	metaHandler := handler.NewMetaHandler(generator, limiter, s.logger)
	s.router.With(requireAuth).Post("/api/generate-meta", metaHandler.HandleGenerate)

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests for up
// to 30 seconds, close the database (flushes the WAL and releases the
// file lock).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", s.config.DBPath),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Router exposes the assembled handler, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Online courses portal server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/online-courses/internal/api"
	"github.com/ashureev/online-courses/internal/auth"
	"github.com/ashureev/online-courses/internal/authform"
	"github.com/ashureev/online-courses/internal/chat"
	"github.com/ashureev/online-courses/internal/config"
	"github.com/ashureev/online-courses/internal/gate"
	"github.com/ashureev/online-courses/internal/identity"
	"github.com/ashureev/online-courses/internal/middleware"
	"github.com/ashureev/online-courses/internal/pages"
	"github.com/ashureev/online-courses/internal/store"
	"github.com/ashureev/online-courses/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})).With("instance", cfg.InstanceName)
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "auth_backend", cfg.Auth.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize the auth collaborator.
	var (
		provider auth.Provider
		db       api.Pinger
	)
	switch cfg.Auth.Backend {
	case config.AuthBackendGoTrue:
		gotrue := auth.NewGoTrue(cfg.Auth.URL, cfg.Auth.AnonKey, cfg.Auth.Timeout, nil)
		auth.StartTTLWorker(ctx, gotrue, cfg.Session.SweepInterval)
		provider = gotrue
		slog.Info("Using hosted auth backend", "url", cfg.Auth.URL)
	default:
		repo, err := openStore(ctx, cfg)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()

		if err := repo.Ping(ctx); err != nil {
			slog.Error("Database health check failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Database connected", "driver", cfg.DB.Driver)

		local := auth.NewLocal(repo, nil, cfg.Session.TTL)
		auth.StartTTLWorker(ctx, local, cfg.Session.SweepInterval)
		provider = local
		db = repo
	}

	// Initialize services.
	cookies := identity.NewCookies([]byte(cfg.Session.Secret), cfg.IsDevelopment())
	chats := chat.NewRegistry(chat.PlaceholderResponder{})
	chats.StartSweeper(ctx, cfg.Chat.ViewTTL, cfg.Chat.ViewTTL/4)

	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.AuthRequests, cfg.RateLimit.AuthWindow)
	authLimiter.StartEviction(ctx)

	render, err := pages.NewRenderer()
	if err != nil {
		slog.Error("Failed to parse page templates", "error", err)
		os.Exit(1)
	}

	// Initialize handlers.
	pageHandler := pages.NewHandler(provider, cookies, authform.NewSubmitter(provider), chats, render, cfg.BaseURL)
	courseHandler := api.NewCourseHandler()
	healthHandler := api.NewHealthHandler(db, cfg.Auth.Backend, cfg.InstanceName)
	watcher := gate.NewWatcher(provider, cookies, chats, cfg.BaseURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))

	// Public routes.
	healthHandler.RegisterHealth(r)
	r.Handle("/static/*", http.StripPrefix("/static/", web.StaticHandler()))

	// JSON API.
	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS([]string{cfg.BaseURL}))
		courseHandler.RegisterRoutes(r, gate.RequireFunc(provider, cookies, api.Unauthorized))
	})

	// Pages.
	pageHandler.RegisterRoutes(r, middleware.Limit(authLimiter, identity.IPFromRequest))

	// WebSocket endpoint.
	r.Get("/ws/session", watcher.ServeHTTP)

	// Create server.
	// Session sockets stay open for as long as a page is mounted, so there is
	// no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// openStore opens the repository selected by DB_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	if cfg.DB.Driver == config.DBDriverPostgres {
		return store.NewPostgres(ctx, cfg.DB.DatabaseURL)
	}
	return store.NewSQLite(cfg.DB.Path)
}

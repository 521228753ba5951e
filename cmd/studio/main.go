// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/studio-go/internal/auth"
	"github.com/olegiv/studio-go/internal/cache"
	"github.com/olegiv/studio-go/internal/config"
	"github.com/olegiv/studio-go/internal/content"
	"github.com/olegiv/studio-go/internal/handler"
	"github.com/olegiv/studio-go/internal/handler/api"
	"github.com/olegiv/studio-go/internal/logging"
	"github.com/olegiv/studio-go/internal/mail"
	"github.com/olegiv/studio-go/internal/middleware"
	"github.com/olegiv/studio-go/internal/pages"
	"github.com/olegiv/studio-go/internal/render"
	"github.com/olegiv/studio-go/internal/scheduler"
	"github.com/olegiv/studio-go/internal/session"
	"github.com/olegiv/studio-go/internal/store"
	"github.com/olegiv/studio-go/internal/toast"
	"github.com/olegiv/studio-go/internal/util"
	"github.com/olegiv/studio-go/internal/version"
	"github.com/olegiv/studio-go/web"
)

// sessionLookupTTL bounds how long a resolved auth session is served from cache.
const sessionLookupTTL = 30 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "studio - TV studio rental site\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STUDIO_SESSION_SECRET      Cookie session key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STUDIO_AUTH_SECRET         Access token signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STUDIO_BASE_URL            Public site URL (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STUDIO_EMAILJS_SERVICE_ID  EmailJS service (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STUDIO_EMAILJS_TEMPLATE_ID EmailJS template (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STUDIO_EMAILJS_PUBLIC_KEY  EmailJS public key (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STUDIO_DB_PATH             SQLite database path (default: ./data/studio.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STUDIO_SERVER_PORT         Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STUDIO_ENV                 Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STUDIO_REDIS_URL           Redis URL for the session cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STUDIO_ADMIN_EMAIL         Seed admin email (optional, with STUDIO_ADMIN_PASSWORD)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("studio %s\n", version.Get())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	isDev := cfg.IsDevelopment()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Mirror WARN and ERROR logs into the events table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)

	ctx := context.Background()

	if cfg.SeedAdmin() {
		hash, err := auth.HashPassword(cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("hashing admin password: %w", err)
		}
		if err := store.SeedAdmin(ctx, db, cfg.AdminEmail, hash); err != nil {
			return fmt.Errorf("seeding admin: %w", err)
		}
	}

	lookupCache := newLookupCache(ctx, cfg)
	defer func() { _ = lookupCache.Close() }()

	authService := auth.NewService(db, lookupCache, auth.Config{
		Secret:   []byte(cfg.AuthSecret),
		TTL:      cfg.AccessTokenTTL,
		CacheTTL: sessionLookupTTL,
	}, logger)

	sessions := session.NewStore(authService, authService, session.StoreConfig{
		RoleTimeout:     cfg.RoleLookupTimeout,
		RefreshInterval: cfg.SessionRefreshInterval,
	}, logger)
	sessions.Start()
	defer sessions.Stop()

	registry, err := pages.Load()
	if err != nil {
		return fmt.Errorf("loading pages: %w", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS: web.TemplatesFS(),
		Nav:         handler.Nav(registry),
		IsDev:       isDev,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return err
	}

	sessionManager := session.NewManager(db, isDev)
	toasts := toast.NewHub(cfg.ToastDuration)
	defer toasts.Close()

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	formLimiter := middleware.NewRateLimiter(1, 5)
	apiLimiter := middleware.NewRateLimiter(10, 20)

	repo := content.NewStoreRepository(db)

	router := handler.NewRouter(handler.RouterConfig{
		Pages:  handler.NewPageHandler(registry, repo, renderer, toasts, mailer, logger),
		Auth:   handler.NewAuthHandler(sessions, sessionManager, renderer, toasts, loginProtection),
		Health: handler.NewHealthHandler(db, dataDir, sessions, toasts, version.Get()),
		SEO:    handler.NewSEOHandler(registry, repo, cfg.BaseURL, cfg.IsDevelopment(), logger),
		API: api.NewHandler(api.Config{
			Pages:           registry,
			Content:         repo,
			Sessions:        sessions,
			Passwords:       authService,
			SessionManager:  sessionManager,
			Toasts:          toasts,
			LoginProtection: loginProtection,
			Logger:          logger,
		}),
		Registry:        registry,
		SessionManager:  sessionManager,
		Sessions:        sessions,
		LoginProtection: loginProtection,
		PublicLimiter:   formLimiter,
		APILimiter:      apiLimiter,
		CSRF:            middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), isDev, cfg.BaseURL)),
		CORSOrigins:     cfg.CORSOrigins,
		StaticFS:        web.StaticFS(),
		IsDev:           isDev,
		AccessLog:       true,
		AwaitTimeout:    cfg.RoleLookupTimeout,
	})

	sched := scheduler.New(logger)
	if err := scheduler.AddHousekeeping(sched, scheduler.Housekeeping{
		Toasts:       toasts,
		AuthSessions: authService,
		Limiters:     []scheduler.LimiterPruner{formLimiter, apiLimiter, loginProtection},
	}, logger); err != nil {
		return fmt.Errorf("scheduling housekeeping: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", version.Get().Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// newLookupCache returns the Redis cache when configured and reachable, the
// memory cache otherwise.
func newLookupCache(ctx context.Context, cfg *config.Config) cache.Cache {
	opts := cache.Options{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		TTL:             sessionLookupTTL,
		CleanupInterval: time.Minute,
	}
	if cfg.UseRedisCache() {
		c, err := cache.NewRedisCache(ctx, opts)
		if err == nil {
			slog.Info("session cache initialized", "backend", "redis")
			return c
		}
		slog.Warn("session cache initialized", "backend", "memory", "note", "Redis unavailable, using fallback", "error", err)
	} else {
		slog.Info("session cache initialized", "backend", "memory")
	}
	return cache.NewMemoryCache(opts)
}

// newMailer builds the EmailJS client. Outside development the endpoint must
// be a public https URL and connections to private addresses are refused.
func newMailer(cfg *config.Config, logger *slog.Logger) (*mail.Client, error) {
	mcfg := mail.Config{
		Endpoint:   cfg.EmailJSEndpoint,
		ServiceID:  cfg.EmailJSServiceID,
		TemplateID: cfg.EmailJSTemplateID,
		PublicKey:  cfg.EmailJSPublicKey,
		PrivateKey: cfg.EmailJSPrivateKey,
	}
	if cfg.IsDevelopment() {
		return mail.NewClient(mcfg, nil, logger), nil
	}
	if err := util.ValidateOutboundURL(cfg.EmailJSEndpoint, false); err != nil {
		return nil, fmt.Errorf("invalid STUDIO_EMAILJS_ENDPOINT: %w", err)
	}
	return mail.NewClient(mcfg, util.NewOutboundClient(mail.RequestTimeout), logger), nil
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/olegiv/studio-go/internal/handler/api"
	"github.com/olegiv/studio-go/internal/middleware"
	"github.com/olegiv/studio-go/internal/pages"
	"github.com/olegiv/studio-go/internal/seo"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Pages           *PageHandler
	Auth            *AuthHandler
	API             *api.Handler
	Health          *HealthHandler
	SEO             *SEOHandler
	Registry        *pages.Registry
	SessionManager  *scs.SessionManager
	Sessions        middleware.SessionResolver
	LoginProtection *middleware.LoginProtection
	PublicLimiter   *middleware.RateLimiter
	APILimiter      *middleware.RateLimiter
	// CSRF protects form and cookie-authenticated API posts. Nil disables it.
	CSRF           func(http.Handler) http.Handler
	CORSOrigins    []string
	StaticFS       fs.FS
	IsDev          bool
	AccessLog      bool
	AwaitTimeout   time.Duration
	RequestTimeout time.Duration
}

// NewRouter builds the site router.
func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	csrf := cfg.CSRF
	if csrf == nil {
		csrf = func(next http.Handler) http.Handler { return next }
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.AccessLog {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(chimw.RedirectSlashes)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDev)))
	r.Use(middleware.RequestPath)

	// Health checks carry no cookie session.
	if cfg.Health != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.LoadSession(nil, cfg.Sessions, cfg.AwaitTimeout))
			r.Get(RouteHealth, cfg.Health.Health)
			r.Get(RouteHealth+"/live", cfg.Health.Liveness)
			r.Get(RouteHealth+"/ready", cfg.Health.Readiness)
		})
	}

	if cfg.SEO != nil {
		r.Get(RouteRobots, cfg.SEO.Robots)
		r.Get(seo.SitemapPath, cfg.SEO.Sitemap)
	}

	if cfg.StaticFS != nil {
		r.With(middleware.StaticCache(31536000, cfg.IsDev)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(cfg.StaticFS)))
	}

	r.Group(func(r chi.Router) {
		r.Use(cfg.SessionManager.LoadAndSave)
		r.Use(middleware.VisitorID(cfg.SessionManager))
		r.Use(middleware.LoadSession(cfg.SessionManager, cfg.Sessions, cfg.AwaitTimeout))

		// Public pages and forms
		r.Group(func(r chi.Router) {
			if cfg.PublicLimiter != nil {
				r.Use(cfg.PublicLimiter.HTMLMiddleware())
			}
			r.Use(csrf)

			for _, p := range cfg.Registry.All() {
				r.Get(p.Path, cfg.Pages.Page(p))
			}
			r.Post(RouteContact, cfg.Pages.Contact)
			r.Post(RouteToastDismiss, cfg.Pages.DismissToast)

			r.Get(RouteLogin, cfg.Auth.LoginForm)
			if cfg.LoginProtection != nil {
				r.With(cfg.LoginProtection.Middleware()).Post(RouteLogin, cfg.Auth.Login)
			} else {
				r.Post(RouteLogin, cfg.Auth.Login)
			}
			r.Post(RouteLogout, cfg.Auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(RouteLogin))
				r.Get(RouteEdit, cfg.Pages.EditForm)
				r.Post(RouteEdit, cfg.Pages.EditSubmit)
			})
		})

		if cfg.API != nil {
			r.Route("/api/v1", func(r chi.Router) {
				r.Use(cors.Handler(cors.Options{
					AllowedOrigins:   cfg.CORSOrigins,
					AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
					AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
					AllowCredentials: true,
					MaxAge:           300,
				}))
				if cfg.APILimiter != nil {
					r.Use(cfg.APILimiter.Middleware())
				}
				r.Use(middleware.SkipCSRFForBearer)
				r.Use(csrf)

				h := cfg.API
				r.Get("/status", h.Status)
				r.Get("/content/{section}", h.GetSection)
				r.With(middleware.RequireAdminAPI()).Put("/content/{section}/{key}", h.PutContent)
				r.Get("/session", h.GetSession)
				if cfg.LoginProtection != nil {
					r.With(cfg.LoginProtection.Middleware()).Post("/auth/login", h.Login)
				} else {
					r.Post("/auth/login", h.Login)
				}
				r.Post("/auth/logout", h.Logout)
				r.With(middleware.RequireSessionAPI()).Put("/auth/user", h.UpdateUser)
				r.Get("/toasts", h.ListToasts)
				r.Delete("/toasts/{id}", h.DismissToast)
			})
		}

		r.NotFound(cfg.Pages.NotFound)
	})

	return r
}

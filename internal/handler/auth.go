// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/studio-go/internal/auth"
	"github.com/olegiv/studio-go/internal/middleware"
	"github.com/olegiv/studio-go/internal/render"
	"github.com/olegiv/studio-go/internal/session"
	"github.com/olegiv/studio-go/internal/toast"
)

// Sessions signs visitors in and out.
type Sessions interface {
	Login(ctx context.Context, email, password, userAgent string) (session.Session, string, error)
	Logout(ctx context.Context, accessToken string) error
}

// AuthHandler handles the admin login form and logout.
type AuthHandler struct {
	sessions        Sessions
	sessionManager  *scs.SessionManager
	renderer        *render.Renderer
	toasts          *toast.Hub
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(sessions Sessions, sm *scs.SessionManager, renderer *render.Renderer, hub *toast.Hub, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		sessions:        sessions,
		sessionManager:  sm,
		renderer:        renderer,
		toasts:          hub,
		loginProtection: lp,
	}
}

// loginFormData is the data of the auth/login template.
type loginFormData struct {
	Email string
	Error string
}

// LoginForm renders the login page. Signed-in visitors go back home.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetSession(r).Authenticated() {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginFormData{})
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginFormData) {
	td := templateData(h.toasts, r, "Area Riservata", data)
	if err := h.renderer.RenderStatus(w, r, status, "auth/login", td); err != nil {
		logAndInternalError(w, "failed to render login page", "error", err)
	}
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrError(w, r) {
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	data := loginFormData{Email: email}

	if email == "" || password == "" {
		data.Error = msgLoginFailed
		h.renderLogin(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	clientIP := middleware.GetClientIP(r)

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			slog.Warn("login attempt on locked account", "category", "auth", "email", email, "ip", clientIP)
			data.Error = fmt.Sprintf("Troppi tentativi. Riprova tra %s.", formatDuration(remaining))
			h.renderLogin(w, r, http.StatusTooManyRequests, data)
			return
		}
	}

	sess, token, err := h.sessions.Login(r.Context(), email, password, r.UserAgent())
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Error("login failed", "category", "auth", "error", err)
			data.Error = msgLoginError
			h.renderLogin(w, r, http.StatusServiceUnavailable, data)
			return
		}

		slog.Warn("login failed: invalid credentials", "category", "auth", "email", email, "ip", clientIP)
		data.Error = msgLoginFailed
		if h.loginProtection != nil {
			if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
				slog.Warn("account locked due to failed attempts", "category", "auth", "email", email, "duration", lockDuration.String())
				data.Error = fmt.Sprintf("Troppi tentativi. Riprova tra %s.", formatDuration(lockDuration))
				h.renderLogin(w, r, http.StatusTooManyRequests, data)
				return
			}
			if remaining := h.loginProtection.RemainingAttempts(email); remaining <= 3 && remaining > 0 {
				data.Error = fmt.Sprintf("%s Tentativi rimasti: %d.", msgLoginFailed, remaining)
			}
		}
		h.renderLogin(w, r, http.StatusUnauthorized, data)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), session.KeyAccessToken, token)

	slog.Info("user logged in", "category", "auth", "user_id", sess.UserID, "role", sess.Role, "loading", sess.IsLoading)
	if l := layerFor(h.toasts, r); l != nil {
		l.Success(msgLoggedIn)
	}
	http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
}

// Logout signs the visitor out. The visitor id survives so pending toasts
// stay visible.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r)
	token := middleware.GetAccessToken(r)
	if token == "" {
		token = h.sessionManager.GetString(r.Context(), session.KeyAccessToken)
	}

	if err := h.sessions.Logout(r.Context(), token); err != nil {
		slog.Error("backend sign-out failed", "category", "auth", "error", err)
	}
	h.sessionManager.Remove(r.Context(), session.KeyAccessToken)
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		slog.Error("session renewal error", "error", err)
	}

	if sess.Authenticated() {
		slog.Info("user logged out", "category", "auth", "user_id", sess.UserID)
		if l := layerFor(h.toasts, r); l != nil {
			l.Success(msgLoggedOut)
		}
	}
	http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
}

// formatDuration formats a duration into a human-readable Italian string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d secondi", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minuto"
		}
		return fmt.Sprintf("%d minuti", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 ora"
	}
	return fmt.Sprintf("%d ore", hours)
}

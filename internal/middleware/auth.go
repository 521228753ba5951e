// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for session loading,
// authorization, and request context handling.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"github.com/olegiv/studio-go/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys.
const (
	ContextKeySession     ContextKey = "session"
	ContextKeyAccessToken ContextKey = "access_token"
	ContextKeyVisitorID   ContextKey = "visitor_id"
	ContextKeyRequestPath ContextKey = "request_path"
)

// DefaultAwaitTimeout bounds how long a request waits for a first role
// lookup before rendering with the session still loading.
const DefaultAwaitTimeout = 2 * time.Second

// SessionResolver resolves access tokens to sessions.
type SessionResolver interface {
	Session(ctx context.Context, accessToken string) session.Session
	Await(ctx context.Context, sessionID string) session.Session
}

// LoadSession resolves the caller's session and stores it in the request
// context. The access token comes from an "Authorization: Bearer" header or
// from the cookie session. A cookie token that no longer resolves is
// removed from the cookie session.
func LoadSession(sm *scs.SessionManager, resolver SessionResolver, awaitTimeout time.Duration) func(http.Handler) http.Handler {
	if awaitTimeout <= 0 {
		awaitTimeout = DefaultAwaitTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := bearerToken(r), false
			if token == "" && sm != nil {
				token, fromCookie = sm.GetString(r.Context(), session.KeyAccessToken), true
			}

			sess := session.Anonymous()
			if token != "" {
				sess = resolver.Session(r.Context(), token)
				if sess.IsLoading {
					ctx, cancel := context.WithTimeout(r.Context(), awaitTimeout)
					sess = resolver.Await(ctx, sess.ID)
					cancel()
				}
				if !sess.Authenticated() {
					if fromCookie {
						sm.Remove(r.Context(), session.KeyAccessToken)
					}
					token = ""
				}
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, sess)
			ctx = context.WithValue(ctx, ContextKeyAccessToken, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetSession returns the session loaded by LoadSession. Without one it
// returns an anonymous session.
func GetSession(r *http.Request) session.Session {
	sess, ok := r.Context().Value(ContextKeySession).(session.Session)
	if !ok {
		return session.Anonymous()
	}
	return sess
}

// GetAccessToken returns the caller's valid access token, if any.
func GetAccessToken(r *http.Request) string {
	token, _ := r.Context().Value(ContextKeyAccessToken).(string)
	return token
}

// VisitorID assigns every cookie session a stable random visitor id and
// stores it in the request context. It must run inside sm.LoadAndSave.
func VisitorID(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := sm.GetString(r.Context(), session.KeyVisitorID)
			if id == "" {
				id = uuid.NewString()
				sm.Put(r.Context(), session.KeyVisitorID, id)
			}
			ctx := context.WithValue(r.Context(), ContextKeyVisitorID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetVisitorID returns the visitor id set by VisitorID.
func GetVisitorID(r *http.Request) string {
	id, _ := r.Context().Value(ContextKeyVisitorID).(string)
	return id
}

// RequestPath creates middleware that stores the request path in the context.
// This is used by the logging handler to include the URL in error logs.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, ok := ctx.Value(ContextKeyRequestPath).(string)
	if !ok {
		return ""
	}
	return path
}

// RequireAdmin allows only admin sessions. Anonymous visitors are sent to
// loginPath; signed-in users without the admin role get 403.
func RequireAdmin(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r)
			if !sess.Authenticated() {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			if !sess.IsAdmin() {
				logAccessDenied(r, sess)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminAPI is RequireAdmin for JSON routes: 401 without a session,
// 403 without the admin role.
func RequireAdminAPI() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r)
			if !sess.Authenticated() {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}
			if !sess.IsAdmin() {
				logAccessDenied(r, sess)
				WriteAPIError(w, http.StatusForbidden, "forbidden", "Admin role required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSessionAPI allows any signed-in caller.
func RequireSessionAPI() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !GetSession(r).Authenticated() {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func logAccessDenied(r *http.Request, sess session.Session) {
	slog.Warn("access denied",
		"category", "auth",
		"status", http.StatusForbidden,
		"method", r.Method,
		"path", r.URL.Path,
		"user_id", sess.UserID,
		"role", sess.Role,
		"loading", sess.IsLoading,
		"remote_addr", r.RemoteAddr,
	)
}

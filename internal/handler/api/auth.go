// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/olegiv/studio-go/internal/auth"
	"github.com/olegiv/studio-go/internal/middleware"
	"github.com/olegiv/studio-go/internal/session"
)

// GetSession handles GET /api/v1/session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, middleware.GetSession(r))
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the access token of a new session.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	Session     session.Session `json:"session"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	fieldErrors := map[string]string{}
	if req.Email == "" {
		fieldErrors["email"] = "email is required"
	}
	if req.Password == "" {
		fieldErrors["password"] = "password is required"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(req.Email); locked {
			w.Header().Set("Retry-After", strconv.Itoa(int(remaining.Seconds())+1))
			WriteError(w, http.StatusTooManyRequests, "account_locked", "Too many failed attempts", nil)
			return
		}
	}

	sess, token, err := h.sessions.Login(r.Context(), req.Email, req.Password, r.UserAgent())
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Warn("api login failed: invalid credentials",
				"category", "auth", "email", req.Email, "ip", middleware.GetClientIP(r))
			if h.loginProtection != nil {
				h.loginProtection.RecordFailedAttempt(req.Email)
			}
			WriteUnauthorized(w, string(auth.CodeInvalidCredentials), "Invalid email or password")
			return
		}
		h.logger.Error("api login failed", "category", "auth", "error", err)
		WriteError(w, http.StatusServiceUnavailable, "auth_unavailable", "Sign-in is not available", nil)
		return
	}
	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(req.Email)
	}

	h.logger.Info("user logged in", "category", "auth", "user_id", sess.UserID, "via", "api")
	WriteSuccess(w, LoginResponse{AccessToken: token, TokenType: "Bearer", Session: sess})
}

// Logout handles POST /api/v1/auth/logout. It signs out the caller's
// token, bearer or cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetAccessToken(r)
	if err := h.sessions.Logout(r.Context(), token); err != nil {
		h.logger.Error("backend sign-out failed", "category", "auth", "error", err)
		WriteError(w, http.StatusBadGateway, "auth_unavailable", "Sign-out failed", nil)
		return
	}
	if h.sessionManager != nil {
		h.sessionManager.Remove(r.Context(), session.KeyAccessToken)
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateUserRequest is the body of PUT /api/v1/auth/user.
type UpdateUserRequest struct {
	Password string `json:"password"`
}

// UpdateUser handles PUT /api/v1/auth/user (signed-in callers).
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.passwords.UpdatePassword(r.Context(), middleware.GetAccessToken(r), req.Password)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, auth.ErrWeakPassword):
		WriteValidationError(w, map[string]string{
			"password": "password must be at least " + strconv.Itoa(auth.MinPasswordLength) + " characters",
		})
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrSessionExpired):
		var aerr *auth.Error
		_ = errors.As(err, &aerr)
		WriteUnauthorized(w, string(aerr.Code), "Session is no longer valid")
	default:
		h.logger.Error("password update failed", "category", "auth", "error", err)
		WriteInternalError(w, "Password could not be updated")
	}
}

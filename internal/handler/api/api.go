// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON API handlers under /api/v1.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/studio-go/internal/content"
	"github.com/olegiv/studio-go/internal/middleware"
	"github.com/olegiv/studio-go/internal/pages"
	"github.com/olegiv/studio-go/internal/session"
	"github.com/olegiv/studio-go/internal/toast"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// Sessions signs callers in and out.
type Sessions interface {
	Login(ctx context.Context, email, password, userAgent string) (session.Session, string, error)
	Logout(ctx context.Context, accessToken string) error
}

// PasswordChanger updates the password of the token's user.
type PasswordChanger interface {
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	pages           *pages.Registry
	repo            content.Repository
	sessions        Sessions
	passwords       PasswordChanger
	sessionManager  *scs.SessionManager
	toasts          *toast.Hub
	loginProtection *middleware.LoginProtection
	logger          *slog.Logger
}

// Config carries the Handler dependencies. SessionManager, Toasts and
// LoginProtection may be nil.
type Config struct {
	Pages           *pages.Registry
	Content         content.Repository
	Sessions        Sessions
	Passwords       PasswordChanger
	SessionManager  *scs.SessionManager
	Toasts          *toast.Hub
	LoginProtection *middleware.LoginProtection
	Logger          *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		pages:           cfg.Pages,
		repo:            cfg.Content,
		sessions:        cfg.Sessions,
		passwords:       cfg.Passwords,
		sessionManager:  cfg.SessionManager,
		toasts:          cfg.Toasts,
		loginProtection: cfg.LoginProtection,
		logger:          logger,
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any `json:"data,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, code, message string) {
	WriteError(w, http.StatusUnauthorized, code, message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields and
// oversized bodies. On failure a 400 has been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "Request body too large", nil)
			return false
		}
		WriteBadRequest(w, "Invalid JSON body", map[string]string{"body": err.Error()})
		return false
	}
	return true
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{
		Status:  "ok",
		Version: "v1",
	})
}

// layer returns the caller's toast layer, or nil without a visitor id.
func (h *Handler) layer(r *http.Request) *toast.Layer {
	id := middleware.GetVisitorID(r)
	if h.toasts == nil || id == "" {
		return nil
	}
	return h.toasts.For(id)
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strings"
)

// redirectBack redirects to target after a POST. Only local paths are
// followed; anything else falls back to fallback.
func redirectBack(w http.ResponseWriter, r *http.Request, target, fallback string) {
	http.Redirect(w, r, safeReturn(target, fallback), http.StatusSeeOther)
}

// safeReturn returns target when it is a local absolute path.
func safeReturn(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	if strings.ContainsAny(target, "\r\n") {
		return fallback
	}
	return target
}

// parseFormOrError parses the request form and answers 400 on failure.
// Returns true if parsing succeeded, false if it failed (response written).
func parseFormOrError(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		slog.Debug("invalid form", "error", err, "path", r.URL.Path)
		http.Error(w, msgInvalidForm, http.StatusBadRequest)
		return false
	}
	return true
}

// logAndHTTPError logs an error and writes an HTTP error response.
func logAndHTTPError(w http.ResponseWriter, message string, statusCode int, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	http.Error(w, message, statusCode)
}

// logAndInternalError logs an error and writes a 500 Internal Server Error response.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	logAndHTTPError(w, "Internal Server Error", http.StatusInternalServerError, logMsg, args...)
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/studio-go/internal/toast"
)

// ListToasts handles GET /api/v1/toasts.
func (h *Handler) ListToasts(w http.ResponseWriter, r *http.Request) {
	toasts := []toast.Toast{}
	if l := h.layer(r); l != nil {
		toasts = append(toasts, l.Toasts()...)
	}
	WriteSuccess(w, toasts)
}

// DismissToast handles DELETE /api/v1/toasts/{id}.
func (h *Handler) DismissToast(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteBadRequest(w, "Invalid toast ID", nil)
		return
	}
	l := h.layer(r)
	if l == nil || !l.Dismiss(id) {
		WriteNotFound(w, "Toast not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

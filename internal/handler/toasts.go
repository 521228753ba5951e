// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// DismissToast handles POST /toasts/{id}/dismiss and redirects back.
func (h *PageHandler) DismissToast(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrError(w, r) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid toast ID", http.StatusBadRequest)
		return
	}
	if l := h.layer(r); l != nil {
		l.Dismiss(id)
	}
	redirectBack(w, r, r.PostFormValue("return"), RouteRoot)
}

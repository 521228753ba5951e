// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/studio-go/internal/content"
	"github.com/olegiv/studio-go/internal/model"
)

// SectionResponse is the stored content of one section.
type SectionResponse struct {
	Section string              `json:"section"`
	Items   []model.ContentItem `json:"items"`
}

// GetSection handles GET /api/v1/content/{section}. It returns stored
// items only; defaults are not included.
func (h *Handler) GetSection(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	if _, ok := h.pages.BySection(section); !ok {
		WriteNotFound(w, "Section not found")
		return
	}

	items, err := h.repo.FetchSection(r.Context(), section)
	if err != nil {
		h.logger.Error("content fetch failed", "category", "content", "section", section, "error", err)
		WriteError(w, http.StatusBadGateway, "persistence_error", "Content unavailable", nil)
		return
	}
	if items == nil {
		items = []model.ContentItem{}
	}
	WriteSuccess(w, SectionResponse{Section: section, Items: items})
}

// PutContentRequest is the body of PUT /api/v1/content/{section}/{key}.
// Value is a JSON string for text types, or an array or object stored as
// json. Type defaults to the page's declared type for the key.
type PutContentRequest struct {
	Value json.RawMessage `json:"value"`
	Type  string          `json:"type,omitempty"`
}

// PutContent handles PUT /api/v1/content/{section}/{key} (admin only).
func (h *Handler) PutContent(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	key := chi.URLParam(r, "key")
	page, ok := h.pages.BySection(section)
	if !ok {
		WriteNotFound(w, "Section not found")
		return
	}

	var req PutContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(bytes.TrimSpace(req.Value)) == 0 {
		WriteValidationError(w, map[string]string{"value": "value is required"})
		return
	}

	value, isString := rawValue(req.Value)

	typ := page.Types[key]
	if req.Type != "" {
		t, err := model.ParseValueType(req.Type)
		if err != nil {
			WriteValidationError(w, map[string]string{"type": err.Error()})
			return
		}
		typ = t
	}
	if typ == "" {
		typ = model.TypeText
		if !isString {
			typ = model.TypeJSON
		}
	}
	if typ != model.TypeJSON && !isString {
		WriteValidationError(w, map[string]string{"value": "value must be a string for type " + string(typ)})
		return
	}

	err := h.repo.Upsert(r.Context(), section, key, value, typ)
	if err != nil {
		var pe *content.PersistenceError
		if errors.As(err, &pe) && pe.Kind == content.KindValidation {
			WriteValidationError(w, map[string]string{"value": pe.Err.Error()})
			return
		}
		h.logger.Error("content save failed", "category", "content", "section", section, "key", key, "error", err)
		WriteError(w, http.StatusBadGateway, "persistence_error", "Content could not be saved", nil)
		return
	}

	h.logger.Info("content saved", "category", "content", "section", section, "key", key, "via", "api")
	WriteSuccess(w, model.ContentItem{Section: section, Key: key, Value: value, Type: typ, UpdatedAt: time.Now().UTC()})
}

// rawValue returns the text to store for raw and whether raw was a JSON
// string.
func rawValue(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(bytes.TrimSpace(raw)), false
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/olegiv/studio-go/internal/content"
	"github.com/olegiv/studio-go/internal/editor"
	"github.com/olegiv/studio-go/internal/model"
	"github.com/olegiv/studio-go/internal/pages"
)

// editRequest addresses one value of a page, as sent by an edit link.
type editRequest struct {
	Section string
	Key     string
	Index   int
	IsItem  bool
	Field   string
	Return  string
}

func parseEditRequest(v url.Values) (editRequest, bool) {
	req := editRequest{
		Section: v.Get("section"),
		Key:     v.Get("key"),
		Field:   v.Get("field"),
		Return:  v.Get("return"),
	}
	if req.Section == "" || req.Key == "" {
		return req, false
	}
	if s := v.Get("index"); s != "" {
		i, err := strconv.Atoi(s)
		if err != nil || i < 0 {
			return req, false
		}
		req.Index, req.IsItem = i, true
	} else if req.Field != "" {
		return req, false
	}
	return req, true
}

// editFormData is the data of the admin/edit template.
type editFormData struct {
	Target     model.EditTarget
	Value      string
	Message    string
	Return     string
	IsListItem bool
}

// editTarget resolves req against the mounted binding, labelled from the page
// definition.
func editTarget(page *pages.Page, b *content.Binding, req editRequest) (model.EditTarget, bool) {
	if req.IsItem {
		input := model.InputText
		if l, ok := page.Lists[req.Key]; ok && req.Field != "" {
			if f, ok := l.Field(req.Field); ok {
				input = f.Input
			}
		}
		return b.EditListItem(req.Key, req.Index, req.Field, page.ItemLabel(req.Key, req.Index, req.Field), input)
	}

	label, input := req.Key, model.InputText
	if f, ok := page.Fields[req.Key]; ok {
		label, input = f.Label, f.Input
	} else if l, ok := page.Lists[req.Key]; ok {
		label, input = l.Label, model.InputJSON
	}
	return b.EditField(req.Key, label, input)
}

// openEdit mounts the page addressed by req and resolves the edit target.
// On failure the response has been written.
func (h *PageHandler) openEdit(w http.ResponseWriter, r *http.Request, req editRequest) (*pages.Page, *content.Binding, model.EditTarget, bool) {
	page, ok := h.pages.BySection(req.Section)
	if !ok {
		h.NotFound(w, r)
		return nil, nil, model.EditTarget{}, false
	}
	b := h.mount(r, page)
	target, ok := editTarget(page, b, req)
	if !ok {
		b.Close()
		if !b.IsEditor() {
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return nil, nil, model.EditTarget{}, false
		}
		http.Error(w, msgEditUnavailable, http.StatusNotFound)
		return nil, nil, model.EditTarget{}, false
	}
	return page, b, target, true
}

// EditForm handles GET /admin/edit and shows the editor pre-filled with the
// current value.
func (h *PageHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	req, ok := parseEditRequest(r.URL.Query())
	if !ok {
		http.Error(w, msgEditUnavailable, http.StatusBadRequest)
		return
	}
	page, b, target, ok := h.openEdit(w, r, req)
	if !ok {
		return
	}
	defer b.Close()

	modal := editor.New(func(ctx context.Context, _ string) error { return nil }, nil)
	modal.Open(target.Current, target.Label, target.Input)
	h.renderEdit(w, r, http.StatusOK, page, target, modal.State(), req.Return)
}

// EditSubmit handles POST /admin/edit. Unparsable JSON is answered with 422
// and a failed write with 502, both keeping the edited value in the form.
// A successful save redirects back to the page.
func (h *PageHandler) EditSubmit(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrError(w, r) {
		return
	}
	req, ok := parseEditRequest(r.PostForm)
	if !ok {
		http.Error(w, msgEditUnavailable, http.StatusBadRequest)
		return
	}
	page, b, target, ok := h.openEdit(w, r, req)
	if !ok {
		return
	}
	defer b.Close()

	modal := editor.New(func(ctx context.Context, value string) error {
		return b.Save(ctx, target, value)
	}, nil)
	modal.Open(target.Current, target.Label, target.Input)
	modal.SetValue(r.PostFormValue("value"))

	err := modal.Confirm(r.Context())
	if err == nil {
		redirectBack(w, r, req.Return, page.Path)
		return
	}

	var verr *editor.ValidationError
	var perr *content.PersistenceError
	switch {
	case errors.As(err, &verr):
		h.renderEdit(w, r, http.StatusUnprocessableEntity, page, target, modal.State(), req.Return)
	case errors.As(err, &perr):
		status := http.StatusBadGateway
		if perr.Kind == content.KindValidation {
			status = http.StatusUnprocessableEntity
		}
		h.renderEdit(w, r, status, page, target, modal.State(), req.Return)
	case errors.Is(err, content.ErrNotEditor):
		http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
	default:
		var cverr *content.ValidationError
		if errors.As(err, &cverr) {
			h.renderEdit(w, r, http.StatusUnprocessableEntity, page, target, modal.State(), req.Return)
			return
		}
		logAndInternalError(w, "edit failed", "error", err, "section", req.Section, "key", req.Key)
	}
}

func (h *PageHandler) renderEdit(w http.ResponseWriter, r *http.Request, status int, page *pages.Page, target model.EditTarget, st editor.State, ret string) {
	data := editFormData{
		Target:     target,
		Value:      st.Value,
		Message:    st.Message,
		Return:     safeReturn(ret, page.Path),
		IsListItem: target.Kind != model.EditScalar,
	}
	if data.Message == "" && st.Err != nil {
		data.Message = st.Err.Error()
	}
	td := templateData(h.toasts, r, "Modifica "+target.Label, data)
	if err := h.renderer.RenderStatus(w, r, status, "admin/edit", td); err != nil {
		logAndInternalError(w, "failed to render edit form", "error", err)
	}
}

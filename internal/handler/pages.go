// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers of the public site: pages,
// the edit form, login, the contact form, toasts and health checks.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/studio-go/internal/content"
	"github.com/olegiv/studio-go/internal/mail"
	"github.com/olegiv/studio-go/internal/middleware"
	"github.com/olegiv/studio-go/internal/model"
	"github.com/olegiv/studio-go/internal/pages"
	"github.com/olegiv/studio-go/internal/render"
	"github.com/olegiv/studio-go/internal/toast"
)

// PageHandler renders the site pages and handles the forms posted from
// them.
type PageHandler struct {
	pages    *pages.Registry
	repo     content.Repository
	renderer *render.Renderer
	toasts   *toast.Hub
	sender   mail.Sender
	logger   *slog.Logger
}

// NewPageHandler creates a new PageHandler. sender may be nil, in which case
// contact requests fail with a toast.
func NewPageHandler(reg *pages.Registry, repo content.Repository, renderer *render.Renderer, hub *toast.Hub, sender mail.Sender, logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{
		pages:    reg,
		repo:     repo,
		renderer: renderer,
		toasts:   hub,
		sender:   sender,
		logger:   logger,
	}
}

// layer returns the visitor's toast layer, or nil without a visitor id.
func (h *PageHandler) layer(r *http.Request) *toast.Layer {
	return layerFor(h.toasts, r)
}

func layerFor(hub *toast.Hub, r *http.Request) *toast.Layer {
	id := middleware.GetVisitorID(r)
	if hub == nil || id == "" {
		return nil
	}
	return hub.For(id)
}

// templateData fills the parts of render.TemplateData every page needs.
func templateData(hub *toast.Hub, r *http.Request, title string, data any) render.TemplateData {
	td := render.TemplateData{
		Title:   title,
		Data:    data,
		Session: middleware.GetSession(r),
	}
	if l := layerFor(hub, r); l != nil {
		td.Toasts = l.Toasts()
	}
	return td
}

// mount creates and loads the content binding of page for this request.
// The caller must Close it.
func (h *PageHandler) mount(r *http.Request, page *pages.Page) *content.Binding {
	opts := []content.Option{
		content.WithEditor(middleware.GetSession(r).IsAdmin()),
		content.WithTypes(page.Types),
		content.WithLogger(h.logger),
	}
	if l := h.layer(r); l != nil {
		opts = append(opts, content.WithNotifier(l))
	}
	b := content.NewBinding(page.Section, page.Defaults(), h.repo, opts...)
	// Fetch failures are logged by the binding; the page renders defaults.
	_ = b.Load(r.Context())
	return b
}

// view builds the render view of a mounted binding.
func view(page *pages.Page, b *content.Binding) *render.View {
	c := b.Content()
	types := make(map[string]model.ValueType, len(c))
	for key := range c {
		types[key] = b.TypeOf(key)
	}
	return &render.View{
		Page:    page,
		Content: c,
		Types:   types,
		Editor:  b.IsEditor(),
	}
}

// Page returns the handler rendering page.
func (h *PageHandler) Page(page *pages.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var data any
		if page.Name == "contact" {
			data = newContactForm()
		}
		h.renderPage(w, r, page, http.StatusOK, data)
	}
}

// renderPage mounts page's content and renders its template.
func (h *PageHandler) renderPage(w http.ResponseWriter, r *http.Request, page *pages.Page, status int, data any) {
	b := h.mount(r, page)
	defer b.Close()

	td := templateData(h.toasts, r, page.Title, data)
	td.View = view(page, b)
	if err := h.renderer.RenderStatus(w, r, status, "pages/"+page.Template, td); err != nil {
		logAndInternalError(w, "failed to render page", "error", err, "page", page.Name)
	}
}

// NotFound renders the 404 page.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	td := templateData(h.toasts, r, "Pagina non trovata", nil)
	if err := h.renderer.RenderStatus(w, r, http.StatusNotFound, "errors/not_found", td); err != nil {
		slog.Error("failed to render 404 page", "error", err)
		http.NotFound(w, r)
	}
}

// Nav builds the site navigation from the registry, in page order.
func Nav(reg *pages.Registry) []render.NavItem {
	var items []render.NavItem
	for _, p := range reg.All() {
		label := p.NavLabel
		if label == "" {
			label = p.Title
		}
		items = append(items, render.NavItem{Label: label, Path: p.Path})
	}
	return items
}

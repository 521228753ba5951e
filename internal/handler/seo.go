// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/studio-go/internal/content"
	"github.com/olegiv/studio-go/internal/pages"
	"github.com/olegiv/studio-go/internal/seo"
)

// SEOHandler serves robots.txt and sitemap.xml.
type SEOHandler struct {
	registry    *pages.Registry
	repo        content.Repository
	baseURL     string
	disallowAll bool
	logger      *slog.Logger
}

// NewSEOHandler creates an SEO handler. disallowAll closes the site to
// crawlers.
func NewSEOHandler(reg *pages.Registry, repo content.Repository, baseURL string, disallowAll bool, logger *slog.Logger) *SEOHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SEOHandler{registry: reg, repo: repo, baseURL: baseURL, disallowAll: disallowAll, logger: logger}
}

// Robots serves robots.txt.
func (h *SEOHandler) Robots(w http.ResponseWriter, _ *http.Request) {
	body := seo.BuildRobots(seo.RobotsConfig{SiteURL: h.baseURL, DisallowAll: h.disallowAll})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(body))
}

// Sitemap serves sitemap.xml. A page whose section cannot be read is listed
// without lastmod.
func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	all := h.registry.All()
	entries := make([]seo.SitemapPage, 0, len(all))
	for _, p := range all {
		entry := seo.SitemapPage{Path: p.Path}
		items, err := h.repo.FetchSection(r.Context(), p.Section)
		if err != nil {
			h.logger.Warn("sitemap section fetch failed", "category", "content", "section", p.Section, "error", err)
		}
		for _, it := range items {
			if it.UpdatedAt.After(entry.UpdatedAt) {
				entry.UpdatedAt = it.UpdatedAt
			}
		}
		entries = append(entries, entry)
	}

	data, err := seo.GenerateSitemap(h.baseURL, entries)
	if err != nil {
		h.logger.Error("sitemap generation failed", "category", "system", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render executes the site's HTML templates.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/olegiv/studio-go/internal/session"
	"github.com/olegiv/studio-go/internal/toast"
)

// blankLinesRegex matches runs of blank lines left behind by template actions.
var blankLinesRegex = regexp.MustCompile(`(\r?\n[ \t]*)+\r?\n`)

// Renderer handles template rendering with caching.
type Renderer struct {
	templates map[string]*template.Template
	raw       map[string]bool
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	nav       []NavItem
	isDev     bool
}

// NavItem is one entry of the site navigation.
type NavItem struct {
	Label string
	Path  string
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS fs.FS
	Nav         []NavItem
	IsDev       bool
}

// templateGroup is a template directory and the layouts its pages extend.
type templateGroup struct {
	dir     string
	layouts []string
	// raw disables blank line compaction, for forms whose fields carry
	// user text.
	raw bool
}

var templateGroups = []templateGroup{
	{dir: "pages", layouts: []string{"layouts/base.html"}},
	{dir: "admin", layouts: []string{"layouts/base.html", "layouts/admin.html"}, raw: true},
	{dir: "auth", layouts: []string{"layouts/base.html"}},
	{dir: "errors", layouts: []string{"layouts/base.html"}},
}

// New creates a new Renderer with parsed templates.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		raw:       make(map[string]bool),
		md:        goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:    bluemonday.UGCPolicy(),
		nav:       cfg.Nav,
		isDev:     cfg.IsDev,
	}

	if err := r.parseTemplates(cfg.TemplatesFS); err != nil {
		return nil, err
	}

	return r, nil
}

// parseTemplates parses every template group against its layouts and the
// shared partials.
func (r *Renderer) parseTemplates(templatesFS fs.FS) error {
	partials, err := getTemplateFiles(templatesFS, "partials")
	if err != nil {
		return fmt.Errorf("getting partials: %w", err)
	}

	for _, g := range templateGroups {
		files, err := getTemplateFiles(templatesFS, g.dir)
		if err != nil {
			return fmt.Errorf("getting %s templates: %w", g.dir, err)
		}

		for _, tmplPath := range files {
			name := g.dir + "/" + strings.TrimSuffix(path.Base(tmplPath), ".html")

			parse := append([]string{}, g.layouts...)
			parse = append(parse, partials...)
			parse = append(parse, tmplPath)

			tmpl, err := template.New("").Funcs(r.TemplateFuncs()).ParseFS(templatesFS, parse...)
			if err != nil {
				return fmt.Errorf("parsing template %s: %w", name, err)
			}
			r.templates[name] = tmpl
			r.raw[name] = g.raw
		}
	}
	return nil
}

// getTemplateFiles returns all .html files in a directory.
func getTemplateFiles(templatesFS fs.FS, dir string) ([]string, error) {
	var files []string

	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		// A missing group directory is not an error.
		return files, nil
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// Has reports whether a template called name was parsed.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title       string
	Data        any
	View        *View
	Session     session.Session
	Toasts      []toast.Toast
	Nav         []NavItem
	CurrentPath string
	CurrentYear int
	IsDev       bool
}

// Render renders a template with status 200.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	return r.RenderStatus(w, req, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status code.
func (r *Renderer) RenderStatus(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	data.CurrentYear = time.Now().Year()
	data.Nav = r.nav
	data.IsDev = r.isDev
	if data.CurrentPath == "" {
		data.CurrentPath = req.URL.Path
	}

	// Render to buffer first to catch errors
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	out := buf.Bytes()
	if !r.raw[name] {
		out = blankLinesRegex.ReplaceAll(out, []byte("\n"))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(out); err != nil {
		slog.Debug("writing response", "error", err, "template", name)
	}
	return nil
}

// Markdown converts richtext to sanitized HTML.
func (r *Renderer) Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes()))
}

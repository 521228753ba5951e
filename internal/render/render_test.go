// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/studio-go/internal/model"
	"github.com/olegiv/studio-go/internal/pages"
	"github.com/olegiv/studio-go/internal/session"
	"github.com/olegiv/studio-go/internal/toast"
	"github.com/olegiv/studio-go/web"
)

func TestBlankLinesRegex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no blank lines",
			input:    "line1\nline2\nline3",
			expected: "line1\nline2\nline3",
		},
		{
			name:     "one blank line (two newlines)",
			input:    "line1\n\nline2",
			expected: "line1\nline2",
		},
		{
			name:     "two blank lines (three newlines)",
			input:    "line1\n\n\nline2",
			expected: "line1\nline2",
		},
		{
			name:     "multiple blank lines",
			input:    "line1\n\n\n\n\nline2",
			expected: "line1\nline2",
		},
		{
			name:     "blank lines with spaces",
			input:    "line1\n  \n\t\nline2",
			expected: "line1\nline2",
		},
		{
			name:     "windows line endings",
			input:    "line1\r\n\r\n\r\nline2",
			expected: "line1\nline2",
		},
		{
			name:     "mixed line endings",
			input:    "line1\n\r\n\nline2",
			expected: "line1\nline2",
		},
		{
			name:     "blank lines at start",
			input:    "\n\n\nline1\nline2",
			expected: "\nline1\nline2",
		},
		{
			name:     "blank lines at end",
			input:    "line1\nline2\n\n\n",
			expected: "line1\nline2\n",
		},
		{
			name:     "multiple sections with blank lines",
			input:    "a\n\n\nb\n\n\nc",
			expected: "a\nb\nc",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "only newlines",
			input:    "\n\n\n\n",
			expected: "\n",
		},
		{
			name:     "html with blank lines",
			input:    "<div>\n\n\n<p>text</p>\n\n\n</div>",
			expected: "<div>\n<p>text</p>\n</div>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(blankLinesRegex.ReplaceAll([]byte(tt.input), []byte("\n")))
			if got != tt.expected {
				t.Errorf("blankLinesRegex.ReplaceAll(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTemplateFuncsPresent(t *testing.T) {
	funcs := (&Renderer{}).TemplateFuncs()

	names := []string{
		"lower", "upper", "truncate", "add", "sub", "seq",
		"formatDate", "formatDateTime", "toJSON", "prettyJSON", "dict",
		"field", "fieldList", "content", "markdown", "toastClass",
	}
	for _, name := range names {
		if _, ok := funcs[name]; !ok {
			t.Errorf("TemplateFuncs missing function: %s", name)
		}
	}
}

func TestFormatDate(t *testing.T) {
	tm := time.Date(2025, time.March, 15, 9, 5, 0, 0, time.UTC)
	if got := formatDate(tm); got != "15 marzo 2025" {
		t.Errorf("formatDate() = %q", got)
	}
	if got := formatDateTime(tm); got != "15 marzo 2025, 09:05" {
		t.Errorf("formatDateTime() = %q", got)
	}
}

func TestPrettyJSON(t *testing.T) {
	if got := prettyJSON(`{"a":"x & y"}`); got != "{\n  \"a\": \"x & y\"\n}" {
		t.Errorf("prettyJSON() = %q", got)
	}
	if got := prettyJSON("not json"); got != "not json" {
		t.Errorf("prettyJSON(invalid) = %q", got)
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(Config{
		TemplatesFS: web.TemplatesFS(),
		Nav:         []NavItem{{Label: "Chi Siamo", Path: "/chi-siamo"}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNew_ParsesAllGroups(t *testing.T) {
	r := newTestRenderer(t)
	for _, name := range []string{
		"pages/home", "pages/about", "pages/services", "pages/gallery", "pages/contact",
		"admin/edit", "auth/login", "errors/not_found", "errors/error",
	} {
		if !r.Has(name) {
			t.Errorf("template %s not parsed", name)
		}
	}
}

func TestMarkdownSanitizes(t *testing.T) {
	r := newTestRenderer(t)
	got := string(r.Markdown("**bold** <script>alert(1)</script>"))
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("Markdown() = %q, want bold", got)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("Markdown() kept script: %q", got)
	}
}

func TestContent(t *testing.T) {
	r := newTestRenderer(t)
	v := &View{
		Content: model.Content{
			"plain": model.Scalar("a <b>"),
			"area":  model.Scalar("one\ntwo"),
			"rich":  model.Scalar("*em*"),
		},
		Types: map[string]model.ValueType{
			"area": model.TypeTextarea,
			"rich": model.TypeRichtext,
		},
	}

	if got := r.content(v, "plain"); got != "a &lt;b&gt;" {
		t.Errorf("plain = %q", got)
	}
	if got := r.content(v, "area"); got != "one<br>two" {
		t.Errorf("area = %q", got)
	}
	if got := string(r.content(v, "rich")); !strings.Contains(got, "<em>em</em>") {
		t.Errorf("rich = %q", got)
	}
	if got := r.content(nil, "plain"); got != "" {
		t.Errorf("nil view = %q", got)
	}
}

func aboutView(t *testing.T, editor bool) *View {
	t.Helper()
	reg, err := pages.Load()
	if err != nil {
		t.Fatalf("pages.Load: %v", err)
	}
	p, _ := reg.ByName("about")
	return &View{Page: p, Content: p.Defaults(), Types: p.Types, Editor: editor}
}

func TestViewEditURLs(t *testing.T) {
	v := aboutView(t, true)
	if got := v.EditURL("page_title"); got != "/admin/edit?key=page_title&return=%2Fchi-siamo&section=about" {
		t.Errorf("EditURL = %q", got)
	}
	if got := v.ItemEditURL("philosophy_list", 1, "text"); got != "/admin/edit?field=text&index=1&key=philosophy_list&return=%2Fchi-siamo&section=about" {
		t.Errorf("ItemEditURL = %q", got)
	}

	anon := aboutView(t, false)
	if anon.EditURL("page_title") != "" || anon.ItemEditURL("philosophy_list", 0, "title") != "" {
		t.Error("non-editor view produced edit URLs")
	}
}

func renderAbout(t *testing.T, editor bool, sess session.Session) string {
	t.Helper()
	r := newTestRenderer(t)
	req := httptest.NewRequest(http.MethodGet, "/chi-siamo", nil)
	w := httptest.NewRecorder()

	err := r.Render(w, req, "pages/about", TemplateData{
		Title:   "Chi Siamo",
		View:    aboutView(t, editor),
		Session: sess,
		Toasts:  []toast.Toast{{ID: 7, Message: "Contenuto salvato.", Severity: toast.Success, Duration: 5 * time.Second}},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
	return w.Body.String()
}

func TestRender_AnonymousHasNoAffordances(t *testing.T) {
	body := renderAbout(t, false, session.Anonymous())

	for _, want := range []string{"Chi Siamo", "Innovazione", "Contenuto salvato.", `data-duration="5000"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "edit-link") || strings.Contains(body, "Admin Mode") {
		t.Error("anonymous render contains edit affordances")
	}
}

func TestRender_AdminHasAffordances(t *testing.T) {
	admin := session.Session{ID: "s", UserID: "u", Email: "a@example.com", Role: session.RoleAdmin}
	body := renderAbout(t, true, admin)

	if !strings.Contains(body, "edit-link") {
		t.Error("admin render has no edit links")
	}
	if !strings.Contains(body, "Admin Mode") {
		t.Error("admin badge missing")
	}
	if !strings.Contains(body, "/admin/edit?field=title&amp;index=0&amp;key=philosophy_list") {
		t.Error("list item edit link missing")
	}
}

func TestRenderStatus(t *testing.T) {
	r := newTestRenderer(t)
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	w := httptest.NewRecorder()

	if err := r.RenderStatus(w, req, http.StatusNotFound, "errors/not_found", TemplateData{}); err != nil {
		t.Fatalf("RenderStatus: %v", err)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	if err := r.Render(w, req, "pages/nope", TemplateData{}); err == nil {
		t.Error("expected error for unknown template")
	}
}

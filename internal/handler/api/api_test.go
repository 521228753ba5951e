// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/olegiv/studio-go/internal/model"
	"github.com/olegiv/studio-go/internal/session"
	"github.com/olegiv/studio-go/internal/toast"
)

var asAdmin = map[string]string{"X-Test-Session": "admin", "X-Test-Token": "admin-token"}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSON(w, http.StatusOK, map[string]string{"key": "<b>&</b>"})

	assertStatusCode(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "<b>&</b>") {
		t.Errorf("body should not be HTML-escaped: %s", w.Body.String())
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteValidationError(w, map[string]string{"value": "bad"})

	assertStatusCode(t, w, http.StatusUnprocessableEntity)
	resp := assertErrorResponse(t, w, "validation_error")
	if resp.Error.Details["value"] != "bad" {
		t.Errorf("details = %v", resp.Error.Details)
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/v1/status", "", nil)
	assertStatusCode(t, w, http.StatusOK)

	var got StatusResponse
	decodeData(t, w, &got)
	if got.Status != "ok" || got.Version != "v1" {
		t.Errorf("status = %+v", got)
	}
}

func TestGetSection(t *testing.T) {
	env := newTestEnv(t)
	env.repo.items["about/page_title"] = model.ContentItem{Section: "about", Key: "page_title", Value: "Chi Siamo Oggi", Type: model.TypeText}
	env.repo.items["services/page_title"] = model.ContentItem{Section: "services", Key: "page_title", Value: "Servizi", Type: model.TypeText}

	w := env.do(http.MethodGet, "/api/v1/content/about", "", nil)
	assertStatusCode(t, w, http.StatusOK)

	var got SectionResponse
	decodeData(t, w, &got)
	if got.Section != "about" || len(got.Items) != 1 || got.Items[0].Value != "Chi Siamo Oggi" {
		t.Errorf("section = %+v", got)
	}
}

func TestGetSection_EmptyIsList(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/v1/content/gallery", "", nil)
	assertStatusCode(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGetSection_Errors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/content/nope", "", nil)
	assertStatusCode(t, w, http.StatusNotFound)
	assertErrorResponse(t, w, "not_found")

	env.repo.fail = errBackendDown
	w = env.do(http.MethodGet, "/api/v1/content/about", "", nil)
	assertStatusCode(t, w, http.StatusBadGateway)
	assertErrorResponse(t, w, "persistence_error")
}

func TestPutContent_RequiresAdmin(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		status  int
		code    string
	}{
		{"anonymous", nil, http.StatusUnauthorized, "unauthorized"},
		{"standard user", map[string]string{"X-Test-Session": "user"}, http.StatusForbidden, "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			w := env.do(http.MethodPut, "/api/v1/content/about/page_title", `{"value":"x"}`, tt.headers)
			assertStatusCode(t, w, tt.status)
			assertErrorResponse(t, w, tt.code)
			if env.repo.upserts != 0 {
				t.Errorf("repository called %d times", env.repo.upserts)
			}
		})
	}
}

func TestPutContent_Scalar(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPut, "/api/v1/content/about/page_title", `{"value":"Chi Siamo Oggi"}`, asAdmin)
	assertStatusCode(t, w, http.StatusOK)

	got := env.repo.items["about/page_title"]
	if got.Value != "Chi Siamo Oggi" || got.Type != model.TypeText {
		t.Errorf("stored = %+v", got)
	}

	// The same upsert again leaves the same state.
	w = env.do(http.MethodPut, "/api/v1/content/about/page_title", `{"value":"Chi Siamo Oggi"}`, asAdmin)
	assertStatusCode(t, w, http.StatusOK)
	if len(env.repo.items) != 1 {
		t.Errorf("items = %d, want 1", len(env.repo.items))
	}
}

func TestPutContent_JSONList(t *testing.T) {
	env := newTestEnv(t)

	body := `{"value":[{"title":"A","text":"B","color":"blue"}]}`
	w := env.do(http.MethodPut, "/api/v1/content/about/philosophy_list", body, asAdmin)
	assertStatusCode(t, w, http.StatusOK)

	got := env.repo.items["about/philosophy_list"]
	if got.Type != model.TypeJSON || got.Value != `[{"title":"A","text":"B","color":"blue"}]` {
		t.Errorf("stored = %+v", got)
	}
}

func TestPutContent_Validation(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"missing value", "/api/v1/content/about/page_title", `{}`},
		{"unknown type", "/api/v1/content/about/page_title", `{"value":"x","type":"html"}`},
		{"object for text", "/api/v1/content/about/page_title", `{"value":{"a":1}}`},
		{"json type with scalar", "/api/v1/content/about/philosophy_list", `{"value":"not a list"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			w := env.do(http.MethodPut, tt.path, tt.body, asAdmin)
			assertStatusCode(t, w, http.StatusUnprocessableEntity)
			assertErrorResponse(t, w, "validation_error")
			if len(env.repo.items) != 0 {
				t.Errorf("stored %v", env.repo.items)
			}
		})
	}
}

func TestPutContent_BadJSONBody(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPut, "/api/v1/content/about/page_title", `{"value":`, asAdmin)
	assertStatusCode(t, w, http.StatusBadRequest)

	w = env.do(http.MethodPut, "/api/v1/content/about/page_title", `{"value":"x","extra":1}`, asAdmin)
	assertStatusCode(t, w, http.StatusBadRequest)
}

func TestPutContent_TransportError(t *testing.T) {
	env := newTestEnv(t)
	env.repo.fail = errBackendDown

	w := env.do(http.MethodPut, "/api/v1/content/about/page_title", `{"value":"x"}`, asAdmin)
	assertStatusCode(t, w, http.StatusBadGateway)
	assertErrorResponse(t, w, "persistence_error")
}

func TestGetSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/session", "", nil)
	assertStatusCode(t, w, http.StatusOK)
	var anon session.Session
	decodeData(t, w, &anon)
	if anon.Authenticated() || anon.Role != session.RoleStandard {
		t.Errorf("anonymous session = %+v", anon)
	}

	w = env.do(http.MethodGet, "/api/v1/session", "", asAdmin)
	var admin session.Session
	decodeData(t, w, &admin)
	if !admin.IsAdmin() {
		t.Errorf("admin session = %+v", admin)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/auth/login", `{"email":"admin@example.com","password":"correct-horse"}`, nil)
	assertStatusCode(t, w, http.StatusOK)

	var got LoginResponse
	decodeData(t, w, &got)
	if got.AccessToken != "admin-token" || got.TokenType != "Bearer" || !got.Session.IsAdmin() {
		t.Errorf("login = %+v", got)
	}
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/auth/login", `{"email":"admin@example.com","password":"wrong"}`, nil)
	assertStatusCode(t, w, http.StatusUnauthorized)
	assertErrorResponse(t, w, "invalid_credentials")

	w = env.do(http.MethodPost, "/api/v1/auth/login", `{"email":"","password":""}`, nil)
	assertStatusCode(t, w, http.StatusUnprocessableEntity)

	env.sessions.failNext = errBackendDown
	w = env.do(http.MethodPost, "/api/v1/auth/login", `{"email":"admin@example.com","password":"correct-horse"}`, nil)
	assertStatusCode(t, w, http.StatusServiceUnavailable)
}

func TestLogin_Lockout(t *testing.T) {
	env := newTestEnv(t)
	body := `{"email":"victim@example.com","password":"wrong"}`

	var w *httptest.ResponseRecorder
	for i := 0; i < 10; i++ {
		w = env.do(http.MethodPost, "/api/v1/auth/login", body, nil)
		if w.Code == http.StatusTooManyRequests {
			break
		}
	}
	assertStatusCode(t, w, http.StatusTooManyRequests)
	assertErrorResponse(t, w, "account_locked")
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/auth/logout", "", asAdmin)
	assertStatusCode(t, w, http.StatusNoContent)
	if len(env.sessions.loggedOut) != 1 || env.sessions.loggedOut[0] != "admin-token" {
		t.Errorf("logged out = %v", env.sessions.loggedOut)
	}
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPut, "/api/v1/auth/user", `{"password":"new-secret-1"}`, asAdmin)
	assertStatusCode(t, w, http.StatusNoContent)
	if env.passwords.changed["admin-token"] != "new-secret-1" {
		t.Errorf("changed = %v", env.passwords.changed)
	}

	w = env.do(http.MethodPut, "/api/v1/auth/user", `{"password":"short"}`, asAdmin)
	assertStatusCode(t, w, http.StatusUnprocessableEntity)

	w = env.do(http.MethodPut, "/api/v1/auth/user", `{"password":"new-secret-1"}`, nil)
	assertStatusCode(t, w, http.StatusUnauthorized)
}

func TestToasts(t *testing.T) {
	env := newTestEnv(t)
	visitor := map[string]string{"X-Test-Visitor": "visitor-1"}

	layer := env.toasts.For("visitor-1")
	first := layer.Show("Contenuto salvato.", toast.Success)
	layer.ShowFor("Errore salvataggio.", toast.Error, 0)

	w := env.do(http.MethodGet, "/api/v1/toasts", "", visitor)
	assertStatusCode(t, w, http.StatusOK)
	var got []toast.Toast
	decodeData(t, w, &got)
	if len(got) != 2 || got[0].Message != "Contenuto salvato." || !got[1].Persistent() {
		t.Fatalf("toasts = %+v", got)
	}

	w = env.do(http.MethodDelete, "/api/v1/toasts/"+strconv.FormatInt(first, 10), "", visitor)
	assertStatusCode(t, w, http.StatusNoContent)
	if n := len(layer.Toasts()); n != 1 {
		t.Errorf("toasts after dismiss = %d", n)
	}

	w = env.do(http.MethodDelete, "/api/v1/toasts/"+strconv.FormatInt(first, 10), "", visitor)
	assertStatusCode(t, w, http.StatusNotFound)

	w = env.do(http.MethodDelete, "/api/v1/toasts/abc", "", visitor)
	assertStatusCode(t, w, http.StatusBadRequest)

	// Another visitor sees none of them.
	w = env.do(http.MethodGet, "/api/v1/toasts", "", map[string]string{"X-Test-Visitor": "visitor-2"})
	var other []toast.Toast
	decodeData(t, w, &other)
	if len(other) != 0 {
		t.Errorf("other visitor toasts = %+v", other)
	}
}

func TestRawValue(t *testing.T) {
	tests := []struct {
		raw      string
		want     string
		isString bool
	}{
		{`"hello"`, "hello", true},
		{`"a\nb"`, "a\nb", true},
		{` [1, 2] `, "[1, 2]", false},
		{`{"a":1}`, `{"a":1}`, false},
	}
	for _, tt := range tests {
		got, isString := rawValue(json.RawMessage(tt.raw))
		if got != tt.want || isString != tt.isString {
			t.Errorf("rawValue(%s) = %q, %v; want %q, %v", tt.raw, got, isString, tt.want, tt.isString)
		}
	}
}

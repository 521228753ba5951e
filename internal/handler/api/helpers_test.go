// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/studio-go/internal/auth"
	"github.com/olegiv/studio-go/internal/content"
	"github.com/olegiv/studio-go/internal/middleware"
	"github.com/olegiv/studio-go/internal/model"
	"github.com/olegiv/studio-go/internal/pages"
	"github.com/olegiv/studio-go/internal/session"
	"github.com/olegiv/studio-go/internal/toast"
)

var (
	adminSession = session.Session{ID: "s1", UserID: "u1", Email: "admin@example.com", Role: session.RoleAdmin}
	userSession  = session.Session{ID: "s2", UserID: "u2", Email: "user@example.com", Role: session.RoleStandard}
)

type fakeRepo struct {
	mu      sync.Mutex
	items   map[string]model.ContentItem
	fail    error
	upserts int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[string]model.ContentItem{}}
}

func (f *fakeRepo) FetchSection(_ context.Context, section string) ([]model.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, &content.PersistenceError{Kind: content.KindTransport, Section: section, Err: f.fail}
	}
	var out []model.ContentItem
	for _, it := range f.items {
		if it.Section == section {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeRepo) Upsert(_ context.Context, section, key, value string, typ model.ValueType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if err := content.ValidateItem(section, key, value, typ); err != nil {
		return err
	}
	if f.fail != nil {
		return &content.PersistenceError{Kind: content.KindTransport, Section: section, Key: key, Err: f.fail}
	}
	f.items[section+"/"+key] = model.ContentItem{Section: section, Key: key, Value: value, Type: typ}
	return nil
}

type fakeSessions struct {
	mu        sync.Mutex
	loggedOut []string
	failNext  error
}

func (f *fakeSessions) Login(_ context.Context, email, password, _ string) (session.Session, string, error) {
	if f.failNext != nil {
		return session.Anonymous(), "", f.failNext
	}
	if email == "admin@example.com" && password == "correct-horse" {
		return adminSession, "admin-token", nil
	}
	return session.Anonymous(), "", auth.ErrInvalidCredentials
}

func (f *fakeSessions) Logout(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

type fakePasswords struct {
	changed map[string]string
}

func (f *fakePasswords) UpdatePassword(_ context.Context, token, pw string) error {
	if token == "" {
		return auth.ErrInvalidToken
	}
	if len(pw) < auth.MinPasswordLength {
		return auth.ErrWeakPassword
	}
	f.changed[token] = pw
	return nil
}

type testEnv struct {
	handler   *Handler
	repo      *fakeRepo
	sessions  *fakeSessions
	passwords *fakePasswords
	toasts    *toast.Hub
	router    chi.Router
}

// newTestEnv builds the API router. Each request carries the session, token
// and visitor id given in the X-Test-* headers.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	reg, err := pages.Load()
	if err != nil {
		t.Fatalf("pages.Load: %v", err)
	}
	env := &testEnv{
		repo:      newFakeRepo(),
		sessions:  &fakeSessions{},
		passwords: &fakePasswords{changed: map[string]string{}},
		toasts:    toast.NewHub(time.Minute),
	}
	t.Cleanup(env.toasts.Close)

	lp := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	env.handler = NewHandler(Config{
		Pages:           reg,
		Content:         env.repo,
		Sessions:        env.sessions,
		Passwords:       env.passwords,
		Toasts:          env.toasts,
		LoginProtection: lp,
	})

	r := chi.NewRouter()
	r.Use(testContext)
	h := env.handler
	r.Get("/api/v1/status", h.Status)
	r.Get("/api/v1/content/{section}", h.GetSection)
	r.With(middleware.RequireAdminAPI()).Put("/api/v1/content/{section}/{key}", h.PutContent)
	r.Get("/api/v1/session", h.GetSession)
	r.Post("/api/v1/auth/login", h.Login)
	r.Post("/api/v1/auth/logout", h.Logout)
	r.With(middleware.RequireSessionAPI()).Put("/api/v1/auth/user", h.UpdateUser)
	r.Get("/api/v1/toasts", h.ListToasts)
	r.Delete("/api/v1/toasts/{id}", h.DismissToast)
	env.router = r
	return env
}

func testContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.Anonymous()
		switch r.Header.Get("X-Test-Session") {
		case "admin":
			sess = adminSession
		case "user":
			sess = userSession
		}
		ctx := context.WithValue(r.Context(), middleware.ContextKeySession, sess)
		ctx = context.WithValue(ctx, middleware.ContextKeyAccessToken, r.Header.Get("X-Test-Token"))
		ctx = context.WithValue(ctx, middleware.ContextKeyVisitorID, r.Header.Get("X-Test-Visitor"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (e *testEnv) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// assertStatusCode checks that the response has the expected status code.
func assertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("expected status %d, got %d (body %s)", expected, w.Code, w.Body.String())
	}
}

// assertErrorResponse unmarshals and validates an error response.
func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error.Code != expectedCode {
		t.Errorf("expected code '%s', got %s", expectedCode, resp.Error.Code)
	}
	return resp
}

// decodeData unmarshals the data field of a success response into dst.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if err := json.Unmarshal(resp.Data, dst); err != nil {
		t.Fatalf("failed to unmarshal data: %v", err)
	}
}

var errBackendDown = errors.New("backend down")

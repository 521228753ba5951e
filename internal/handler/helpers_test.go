// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/olegiv/studio-go/internal/auth"
	"github.com/olegiv/studio-go/internal/cache"
	"github.com/olegiv/studio-go/internal/content"
	"github.com/olegiv/studio-go/internal/mail"
	"github.com/olegiv/studio-go/internal/middleware"
	"github.com/olegiv/studio-go/internal/model"
	"github.com/olegiv/studio-go/internal/pages"
	"github.com/olegiv/studio-go/internal/render"
	"github.com/olegiv/studio-go/internal/session"
	"github.com/olegiv/studio-go/internal/store"
	"github.com/olegiv/studio-go/internal/toast"
	"github.com/olegiv/studio-go/internal/version"
	"github.com/olegiv/studio-go/web"

	_ "github.com/mattn/go-sqlite3"
)

const (
	testAdminEmail    = "admin@example.com"
	testUserEmail     = "user@example.com"
	testPassword      = "correct-horse-battery"
	testWrongPassword = "wrong-password"
)

var errBackendDown = errors.New("backend down")

// spyRepo wraps the SQLite repository, counting writes and failing them on
// demand.
type spyRepo struct {
	content.Repository

	mu        sync.Mutex
	upserts   int
	fail      error
	failFetch error
}

func (s *spyRepo) FetchSection(ctx context.Context, section string) ([]model.ContentItem, error) {
	s.mu.Lock()
	fail := s.failFetch
	s.mu.Unlock()
	if fail != nil {
		return nil, &content.PersistenceError{Kind: content.KindTransport, Section: section, Err: fail}
	}
	return s.Repository.FetchSection(ctx, section)
}

func (s *spyRepo) Upsert(ctx context.Context, section, key, value string, typ model.ValueType) error {
	s.mu.Lock()
	s.upserts++
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		return &content.PersistenceError{Kind: content.KindTransport, Section: section, Key: key, Err: fail}
	}
	return s.Repository.Upsert(ctx, section, key, value, typ)
}

func (s *spyRepo) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

func (s *spyRepo) setFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

type fakeSender struct {
	mu   sync.Mutex
	sent []mail.Request
	fail error
}

func (f *fakeSender) Send(_ context.Context, req mail.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return f.fail
}

func (f *fakeSender) requests() []mail.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mail.Request(nil), f.sent...)
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// testSite is the whole site served over HTTP with a real database, auth
// backend and session store.
type testSite struct {
	server   *httptest.Server
	db       *sql.DB
	store    *content.StoreRepository
	repo     *spyRepo
	sender   *fakeSender
	toasts   *toast.Hub
	auth     *auth.Service
	sessions *session.Store
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := sql.Open("sqlite3", filepath.Join(dir, "studio.db")+"?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db, dir
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	logger := testLogger()
	db, dataDir := testDB(t)

	svc := auth.NewService(db, cache.NewMemoryCache(cache.Options{TTL: time.Minute}), auth.Config{
		Secret: []byte("test-secret-test-secret-test-secret"),
		TTL:    time.Hour,
	}, logger)
	ctx := context.Background()
	if _, err := svc.CreateUser(ctx, testAdminEmail, testPassword, store.RoleAdmin); err != nil {
		t.Fatalf("CreateUser admin: %v", err)
	}
	if _, err := svc.CreateUser(ctx, testUserEmail, testPassword, store.RoleStandard); err != nil {
		t.Fatalf("CreateUser user: %v", err)
	}

	sessions := session.NewStore(svc, svc, session.DefaultStoreConfig(), logger)
	sessions.Start()
	t.Cleanup(sessions.Stop)

	reg, err := pages.Load()
	if err != nil {
		t.Fatalf("pages.Load: %v", err)
	}
	renderer, err := render.New(render.Config{TemplatesFS: web.TemplatesFS(), Nav: Nav(reg), IsDev: true})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	hub := toast.NewHub(time.Minute)
	t.Cleanup(hub.Close)

	lp := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	storeRepo := content.NewStoreRepository(db)
	site := &testSite{
		db:       db,
		store:    storeRepo,
		repo:     &spyRepo{Repository: storeRepo},
		sender:   &fakeSender{},
		toasts:   hub,
		auth:     svc,
		sessions: sessions,
	}

	sm := session.NewManager(db, true)
	router := NewRouter(RouterConfig{
		Pages:           NewPageHandler(reg, site.repo, renderer, hub, site.sender, logger),
		Auth:            NewAuthHandler(sessions, sm, renderer, hub, lp),
		Health:          NewHealthHandler(db, dataDir, sessions, hub, version.Info{Version: "v1.0.0-test"}),
		SEO:             NewSEOHandler(reg, site.repo, "https://studio.example.com", false, logger),
		Registry:        reg,
		SessionManager:  sm,
		Sessions:        sessions,
		LoginProtection: lp,
		StaticFS:        web.StaticFS(),
		IsDev:           true,
		AwaitTimeout:    2 * time.Second,
	})

	site.server = httptest.NewServer(router)
	t.Cleanup(site.server.Close)
	return site
}

// client returns a visitor with its own cookie jar. Redirects are not
// followed.
func (s *testSite) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: 10 * time.Second,
	}
}

// login signs c in and fails the test unless it succeeds.
func (s *testSite) login(t *testing.T, c *http.Client, email string) {
	t.Helper()
	resp := s.postForm(t, c, RouteLogin, url.Values{"email": {email}, "password": {testPassword}})
	if resp.status != http.StatusSeeOther {
		t.Fatalf("login status = %d, want %d; body:\n%s", resp.status, http.StatusSeeOther, resp.body)
	}
}

type testResponse struct {
	status   int
	body     string
	location string
	header   http.Header
}

func readResponse(t *testing.T, resp *http.Response) testResponse {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return testResponse{
		status:   resp.StatusCode,
		body:     string(b),
		location: resp.Header.Get("Location"),
		header:   resp.Header,
	}
}

func (s *testSite) get(t *testing.T, c *http.Client, path string) testResponse {
	t.Helper()
	resp, err := c.Get(s.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return readResponse(t, resp)
}

func (s *testSite) postForm(t *testing.T, c *http.Client, path string, form url.Values) testResponse {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.server.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return readResponse(t, resp)
}

func assertStatus(t *testing.T, got testResponse, want int) {
	t.Helper()
	if got.status != want {
		t.Fatalf("status = %d, want %d; body:\n%s", got.status, want, got.body)
	}
}

func assertContains(t *testing.T, body, want string) {
	t.Helper()
	if !strings.Contains(body, want) {
		t.Errorf("body does not contain %q", want)
	}
}

func assertNotContains(t *testing.T, body, unwanted string) {
	t.Helper()
	if strings.Contains(body, unwanted) {
		t.Errorf("body unexpectedly contains %q", unwanted)
	}
}

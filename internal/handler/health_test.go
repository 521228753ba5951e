// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func (s *testSite) getBearer(t *testing.T, path, token string) testResponse {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.server.URL+path, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return readResponse(t, resp)
}

func (s *testSite) token(t *testing.T, email string) string {
	t.Helper()
	_, token, err := s.sessions.Login(context.Background(), email, testPassword, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return token
}

func TestHealth_Public(t *testing.T) {
	site := newTestSite(t)

	resp := site.getBearer(t, RouteHealth, "")
	assertStatus(t, resp, http.StatusOK)

	var body map[string]any
	if err := json.Unmarshal([]byte(resp.body), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if _, ok := body["version"]; ok {
		t.Error("anonymous response includes version")
	}
}

func TestHealth_Authenticated(t *testing.T) {
	site := newTestSite(t)

	resp := site.getBearer(t, RouteHealth, site.token(t, testUserEmail))
	assertStatus(t, resp, http.StatusOK)
	var user HealthStatus
	if err := json.Unmarshal([]byte(resp.body), &user); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if user.Version != "v1.0.0-test" {
		t.Errorf("version = %q", user.Version)
	}
	if user.Checks != nil {
		t.Error("standard user sees checks")
	}

	resp = site.getBearer(t, RouteHealth+"?verbose=true", site.token(t, testAdminEmail))
	assertStatus(t, resp, http.StatusOK)
	var admin HealthStatus
	if err := json.Unmarshal([]byte(resp.body), &admin); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if admin.Checks["database"].Status != "healthy" {
		t.Errorf("database check = %+v", admin.Checks["database"])
	}
	if admin.Counters["sessions"] != 2 {
		t.Errorf("sessions counter = %d, want 2", admin.Counters["sessions"])
	}
	if admin.System == nil || admin.System.GoVersion == "" {
		t.Error("verbose response lacks system info")
	}
}

func TestHealth_LiveAndReady(t *testing.T) {
	site := newTestSite(t)

	resp := site.getBearer(t, RouteHealth+"/live", "")
	assertStatus(t, resp, http.StatusOK)
	assertContains(t, resp.body, "alive")

	resp = site.getBearer(t, RouteHealth+"/ready", "")
	assertStatus(t, resp, http.StatusOK)
	assertContains(t, resp.body, "ready")

	_ = site.db.Close()
	resp = site.getBearer(t, RouteHealth+"/ready", "")
	assertStatus(t, resp, http.StatusServiceUnavailable)
	assertNotContains(t, resp.body, "message")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

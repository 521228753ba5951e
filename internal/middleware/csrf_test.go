// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var testCSRFKey = []byte("12345678901234567890123456789012")

func TestDefaultCSRFConfig(t *testing.T) {
	tests := []struct {
		name    string
		isDev   bool
		baseURL string
		want    []string
	}{
		{"production", false, "https://studio.example.com", []string{"studio.example.com"}},
		{"production with port", false, "https://studio.example.com:8443/", []string{"studio.example.com:8443"}},
		{"development", true, "http://localhost:8080", []string{"localhost:8080", "localhost:8080", "127.0.0.1:8080"}},
		{"bad base url", false, "::", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultCSRFConfig(testCSRFKey, tt.isDev, tt.baseURL)
			if len(cfg.AuthKey) != 32 {
				t.Errorf("expected 32-byte AuthKey, got %d bytes", len(cfg.AuthKey))
			}
			if strings.Join(cfg.TrustedOrigins, ",") != strings.Join(tt.want, ",") {
				t.Errorf("TrustedOrigins = %v, want %v", cfg.TrustedOrigins, tt.want)
			}
			for _, origin := range cfg.TrustedOrigins {
				if strings.HasPrefix(origin, "http") {
					t.Errorf("TrustedOrigin should be host:port, not full URL: %s", origin)
				}
			}
		})
	}
}

func csrfTestHandler() http.Handler {
	cfg := DefaultCSRFConfig(testCSRFKey, false, "https://studio.example.com")
	return CSRF(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRF_SameOriginAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin/edit", nil)
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	rec := httptest.NewRecorder()

	csrfTestHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestCSRF_CrossSiteRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin/edit", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()

	csrfTestHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestCSRF_SafeMethodAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/edit", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rec := httptest.NewRecorder()

	csrfTestHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestSkipCSRFForBearer(t *testing.T) {
	handler := SkipCSRFForBearer(csrfTestHandler())

	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{"bearer token skips check", "Bearer abc", http.StatusOK},
		{"no token is checked", "", http.StatusForbidden},
		{"basic auth is checked", "Basic abc", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/v1/content/about/page_title", nil)
			req.Header.Set("Sec-Fetch-Site", "cross-site")
			req.Header.Set("Origin", "https://evil.example")
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

const (
	testSessionSecret = "test-Session-secret-32-bytes-long!"
	testAuthSecret    = "test-Auth-secret-32-bytes-long!!!!"
)

// setRequired sets every required variable and clears the optional ones
// the tests look at.
func setRequired(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if k, _, _ := strings.Cut(kv, "="); strings.HasPrefix(k, "STUDIO_") {
			t.Setenv(k, "")
			_ = os.Unsetenv(k)
		}
	}
	t.Setenv("STUDIO_SESSION_SECRET", testSessionSecret)
	t.Setenv("STUDIO_AUTH_SECRET", testAuthSecret)
	t.Setenv("STUDIO_BASE_URL", "https://studio.example.com")
	t.Setenv("STUDIO_EMAILJS_SERVICE_ID", "service_test")
	t.Setenv("STUDIO_EMAILJS_TEMPLATE_ID", "template_test")
	t.Setenv("STUDIO_EMAILJS_PUBLIC_KEY", "public_test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/studio.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr() = %q", cfg.ServerAddr())
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false by default")
	}
	if cfg.CachePrefix != "studio:" {
		t.Errorf("CachePrefix = %q", cfg.CachePrefix)
	}
	if cfg.AccessTokenTTL != time.Hour {
		t.Errorf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if cfg.SessionRefreshInterval != 50*time.Minute {
		t.Errorf("SessionRefreshInterval = %v", cfg.SessionRefreshInterval)
	}
	if cfg.RoleLookupTimeout != 10*time.Second {
		t.Errorf("RoleLookupTimeout = %v", cfg.RoleLookupTimeout)
	}
	if cfg.ToastDuration != 5*time.Second {
		t.Errorf("ToastDuration = %v", cfg.ToastDuration)
	}
	if !strings.HasPrefix(cfg.EmailJSEndpoint, "https://api.emailjs.com/") {
		t.Errorf("EmailJSEndpoint = %q", cfg.EmailJSEndpoint)
	}
	if cfg.UseRedisCache() || cfg.SeedAdmin() {
		t.Error("optional features enabled by default")
	}
	if len(cfg.CORSOrigins) != 0 {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("STUDIO_DB_PATH", "/srv/studio.db")
	t.Setenv("STUDIO_SERVER_HOST", "0.0.0.0")
	t.Setenv("STUDIO_SERVER_PORT", "3000")
	t.Setenv("STUDIO_ENV", "production")
	t.Setenv("STUDIO_LOG_LEVEL", "debug")
	t.Setenv("STUDIO_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("STUDIO_ROLE_LOOKUP_TIMEOUT", "3s")
	t.Setenv("STUDIO_TOAST_DURATION", "0s")
	t.Setenv("STUDIO_ADMIN_EMAIL", "admin@example.com")
	t.Setenv("STUDIO_ADMIN_PASSWORD", "correct-horse-battery")
	t.Setenv("STUDIO_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "/srv/studio.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q", cfg.ServerAddr())
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true in production")
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v", cfg.SlogLevel())
	}
	if !cfg.UseRedisCache() {
		t.Error("UseRedisCache() = false")
	}
	if cfg.RoleLookupTimeout != 3*time.Second {
		t.Errorf("RoleLookupTimeout = %v", cfg.RoleLookupTimeout)
	}
	if cfg.ToastDuration != 0 {
		t.Errorf("ToastDuration = %v, want 0 (persistent toasts)", cfg.ToastDuration)
	}
	if !cfg.SeedAdmin() {
		t.Error("SeedAdmin() = false")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, key := range []string{
		"STUDIO_SESSION_SECRET",
		"STUDIO_AUTH_SECRET",
		"STUDIO_BASE_URL",
		"STUDIO_EMAILJS_SERVICE_ID",
		"STUDIO_EMAILJS_TEMPLATE_ID",
		"STUDIO_EMAILJS_PUBLIC_KEY",
	} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			_ = os.Unsetenv(key)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() succeeded without " + key)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("error %q does not name %s", err, key)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"short session secret", "STUDIO_SESSION_SECRET", "too-short", "at least 32 bytes"},
		{"short auth secret", "STUDIO_AUTH_SECRET", "too-short", "STUDIO_AUTH_SECRET"},
		{"weak secret", "STUDIO_SESSION_SECRET", "change-me-to-32-byte-secret-key!", "known default"},
		{"shared secret", "STUDIO_AUTH_SECRET", testSessionSecret, "must differ"},
		{"relative base url", "STUDIO_BASE_URL", "/studio", "STUDIO_BASE_URL"},
		{"ftp base url", "STUDIO_BASE_URL", "ftp://studio.example.com", "STUDIO_BASE_URL"},
		{"port out of range", "STUDIO_SERVER_PORT", "70000", "out of range"},
		{"zero token ttl", "STUDIO_ACCESS_TOKEN_TTL", "0s", "STUDIO_ACCESS_TOKEN_TTL"},
		{"bad duration", "STUDIO_ROLE_LOOKUP_TIMEOUT", "soon", "RoleLookupTimeout"},
		{"admin email alone", "STUDIO_ADMIN_EMAIL", "admin@example.com", "set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() succeeded")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := (Config{LogLevel: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"abcdefghABCDEFGH", false},
		{"abcABC123", true},
		{"abc123!!!", true},
		{"ABC123$$$", true},
	}
	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.in); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

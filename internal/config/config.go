// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the server configuration from STUDIO_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"STUDIO_DB_PATH" envDefault:"./data/studio.db"`
	SessionSecret string `env:"STUDIO_SESSION_SECRET,required"`
	AuthSecret    string `env:"STUDIO_AUTH_SECRET,required"`
	BaseURL       string `env:"STUDIO_BASE_URL,required"`
	ServerHost    string `env:"STUDIO_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"STUDIO_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"STUDIO_ENV" envDefault:"development"`
	LogLevel      string `env:"STUDIO_LOG_LEVEL" envDefault:"info"`

	// Cache configuration
	RedisURL    string `env:"STUDIO_REDIS_URL"`                         // Optional Redis URL for the session lookup cache
	CachePrefix string `env:"STUDIO_CACHE_PREFIX" envDefault:"studio:"` // Redis key prefix

	// Outbound email (EmailJS REST API)
	EmailJSEndpoint   string `env:"STUDIO_EMAILJS_ENDPOINT" envDefault:"https://api.emailjs.com/api/v1.0/email/send"`
	EmailJSServiceID  string `env:"STUDIO_EMAILJS_SERVICE_ID,required"`
	EmailJSTemplateID string `env:"STUDIO_EMAILJS_TEMPLATE_ID,required"`
	EmailJSPublicKey  string `env:"STUDIO_EMAILJS_PUBLIC_KEY,required"`
	EmailJSPrivateKey string `env:"STUDIO_EMAILJS_PRIVATE_KEY"`

	// Sessions and roles
	AccessTokenTTL         time.Duration `env:"STUDIO_ACCESS_TOKEN_TTL" envDefault:"1h"`
	SessionRefreshInterval time.Duration `env:"STUDIO_SESSION_REFRESH_INTERVAL" envDefault:"50m"`
	RoleLookupTimeout      time.Duration `env:"STUDIO_ROLE_LOOKUP_TIMEOUT" envDefault:"10s"`
	ToastDuration          time.Duration `env:"STUDIO_TOAST_DURATION" envDefault:"5s"`

	// Seeding configuration
	AdminEmail    string `env:"STUDIO_ADMIN_EMAIL"`
	AdminPassword string `env:"STUDIO_ADMIN_PASSWORD"`

	CORSOrigins []string `env:"STUDIO_CORS_ORIGINS" envSeparator:","`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// SeedAdmin returns true if an initial admin account is configured.
func (c Config) SeedAdmin() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MinSecretLength is the minimum length of the session and auth secrets.
const MinSecretLength = 32

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, checkSecret("STUDIO_SESSION_SECRET", c.SessionSecret))
	errs = append(errs, checkSecret("STUDIO_AUTH_SECRET", c.AuthSecret))
	if c.SessionSecret != "" && c.SessionSecret == c.AuthSecret {
		errs = append(errs, errors.New("STUDIO_AUTH_SECRET must differ from STUDIO_SESSION_SECRET"))
	}

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("STUDIO_BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL))
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("STUDIO_SERVER_PORT out of range: %d", c.ServerPort))
	}

	for name, d := range map[string]time.Duration{
		"STUDIO_ACCESS_TOKEN_TTL":         c.AccessTokenTTL,
		"STUDIO_SESSION_REFRESH_INTERVAL": c.SessionRefreshInterval,
		"STUDIO_ROLE_LOOKUP_TIMEOUT":      c.RoleLookupTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.SessionRefreshInterval >= c.AccessTokenTTL && c.AccessTokenTTL > 0 {
		slog.Warn("STUDIO_SESSION_REFRESH_INTERVAL is not shorter than STUDIO_ACCESS_TOKEN_TTL; sessions may expire between refreshes")
	}

	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("STUDIO_ADMIN_EMAIL and STUDIO_ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

func checkSecret(name, secret string) error {
	if len(secret) < MinSecretLength {
		return fmt.Errorf("%s must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			name, MinSecretLength, len(secret))
	}
	for _, weak := range knownWeakSecrets {
		if secret == weak {
			return fmt.Errorf("%s is a known default value and must not be used; "+
				"generate a secure secret with: openssl rand -base64 32", name)
		}
	}
	if !hasMinimumEntropy(secret) {
		slog.Warn(name + " has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}

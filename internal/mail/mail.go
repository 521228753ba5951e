// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mail sends contact requests through an EmailJS-compatible REST
// endpoint.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client defaults.
const (
	DefaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"
	RequestTimeout  = 15 * time.Second
	MaxResponseLen  = 4 * 1024
	UserAgent       = "studio-go/1.0"
)

// Services offered in the contact form.
var Services = []string{
	"Noleggio Studio",
	"Regia Mobile",
	"Live Streaming",
	"Post Produzione",
	"Altro",
}

// ValidService reports whether s is one of Services.
func ValidService(s string) bool {
	for _, v := range Services {
		if v == s {
			return true
		}
	}
	return false
}

// ErrNotConfigured is returned by Send when the client lacks credentials.
var ErrNotConfigured = errors.New("mail: not configured")

// Request is one contact form submission.
type Request struct {
	Name    string
	Surname string
	Email   string
	Phone   string
	Service string
	Message string
}

// FullName joins name and surname.
func (r Request) FullName() string {
	return strings.TrimSpace(r.Name + " " + r.Surname)
}

// Sender delivers contact requests.
type Sender interface {
	Send(ctx context.Context, req Request) error
}

// Config holds EmailJS credentials.
type Config struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mail: endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Client is an EmailJS REST client. It makes exactly one attempt per Send.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a Client. A nil httpClient selects one with
// RequestTimeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: RequestTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

type templateParams struct {
	FromName    string `json:"from_name"`
	FromEmail   string `json:"from_email"`
	Phone       string `json:"phone"`
	RequestType string `json:"request_type"`
	Message     string `json:"message"`
}

type payload struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	AccessToken    string         `json:"accessToken,omitempty"`
	TemplateParams templateParams `json:"template_params"`
}

// Send posts req to the endpoint.
func (c *Client) Send(ctx context.Context, req Request) error {
	if c.cfg.ServiceID == "" || c.cfg.TemplateID == "" || c.cfg.PublicKey == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(payload{
		ServiceID:   c.cfg.ServiceID,
		TemplateID:  c.cfg.TemplateID,
		UserID:      c.cfg.PublicKey,
		AccessToken: c.cfg.PrivateKey,
		TemplateParams: templateParams{
			FromName:    req.FullName(),
			FromEmail:   req.Email,
			Phone:       req.Phone,
			RequestType: req.Service,
			Message:     req.Message,
		},
	})
	if err != nil {
		return fmt.Errorf("encoding mail payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating mail request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", UserAgent)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	c.logger.Info("contact request sent",
		"category", "mail",
		"service", req.Service,
		"duration", time.Since(start))
	return nil
}

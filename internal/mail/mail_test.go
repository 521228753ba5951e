// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:   endpoint,
		ServiceID:  "service_x",
		TemplateID: "template_y",
		PublicKey:  "pub",
	}
}

func TestSend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil, nil)
	err := c.Send(context.Background(), Request{
		Name:    "Mario",
		Surname: "Rossi",
		Email:   "mario@example.com",
		Phone:   "123",
		Service: "Live Streaming",
		Message: "Ciao",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got["service_id"] != "service_x" || got["template_id"] != "template_y" || got["user_id"] != "pub" {
		t.Errorf("credentials = %v", got)
	}
	if _, ok := got["accessToken"]; ok {
		t.Error("accessToken should be omitted without a private key")
	}
	params, _ := got["template_params"].(map[string]any)
	want := map[string]string{
		"from_name":    "Mario Rossi",
		"from_email":   "mario@example.com",
		"phone":        "123",
		"request_type": "Live Streaming",
		"message":      "Ciao",
	}
	for k, v := range want {
		if params[k] != v {
			t.Errorf("template_params[%s] = %v, want %s", k, params[k], v)
		}
	}
}

func TestSend_PrivateKey(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.PrivateKey = "secret"
	if err := NewClient(cfg, nil, nil).Send(context.Background(), Request{Email: "a@b.c"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["accessToken"] != "secret" {
		t.Errorf("accessToken = %v", got["accessToken"])
	}
}

func TestSend_Non2xxSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad template", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewClient(testConfig(srv.URL), nil, nil).Send(context.Background(), Request{})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusBadRequest || se.Body != "bad template" {
		t.Errorf("StatusError = %+v", se)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestSend_NotConfigured(t *testing.T) {
	c := NewClient(Config{}, nil, nil)
	if err := c.Send(context.Background(), Request{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestSend_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	if err := NewClient(testConfig(url), nil, nil).Send(context.Background(), Request{}); err == nil {
		t.Error("expected error")
	}
}

func TestValidService(t *testing.T) {
	for _, s := range Services {
		if !ValidService(s) {
			t.Errorf("ValidService(%q) = false", s)
		}
	}
	if ValidService("Catering") {
		t.Error("unknown service accepted")
	}
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"testing"
)

func validContact() url.Values {
	return url.Values{
		"name":    {"Mario"},
		"surname": {"Rossi"},
		"email":   {"mario.rossi@example.com"},
		"phone":   {"+39 333 1234567"},
		"service": {"Live Streaming"},
		"message": {"Vorrei un preventivo per una diretta."},
	}
}

var toastIDRegex = regexp.MustCompile(`data-toast-id="(\d+)"`)

func TestContact_Success(t *testing.T) {
	site := newTestSite(t)
	c := site.client(t)
	// The visit assigns the visitor id the toast layer is keyed by.
	site.get(t, c, RouteContact)

	resp := site.postForm(t, c, RouteContact, validContact())
	assertStatus(t, resp, http.StatusSeeOther)
	if resp.location != RouteContact {
		t.Errorf("Location = %q, want %q", resp.location, RouteContact)
	}
	if n := site.sender.count(); n != 1 {
		t.Fatalf("sent = %d, want 1", n)
	}
	got := site.sender.requests()[0]
	if got.Name != "Mario" || got.Surname != "Rossi" || got.Service != "Live Streaming" {
		t.Errorf("sent request = %+v", got)
	}

	page := site.get(t, c, RouteContact)
	assertContains(t, page.body, msgContactSent)
}

func TestContact_SendFailure(t *testing.T) {
	site := newTestSite(t)
	site.sender.fail = errBackendDown
	c := site.client(t)
	site.get(t, c, RouteContact)

	resp := site.postForm(t, c, RouteContact, validContact())
	assertStatus(t, resp, http.StatusSeeOther)
	if n := site.sender.count(); n != 1 {
		t.Errorf("sent = %d, want 1", n)
	}

	page := site.get(t, c, RouteContact)
	assertContains(t, page.body, msgContactFailed)
	assertNotContains(t, page.body, msgContactSent)
}

func TestContact_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(url.Values)
		want   string
	}{
		{"missing name", func(v url.Values) { v.Del("name") }, msgFieldRequired},
		{"blank surname", func(v url.Values) { v.Set("surname", "   ") }, msgFieldRequired},
		{"invalid email", func(v url.Values) { v.Set("email", "not-an-email") }, msgInvalidEmail},
		{"unknown service", func(v url.Values) { v.Set("service", "Catering") }, msgInvalidService},
		{"missing message", func(v url.Values) { v.Del("message") }, msgFieldRequired},
		{"message too long", func(v url.Values) { v.Set("message", strings.Repeat("a", maxMessageLen+1)) }, msgMessageTooLong},
	}

	site := newTestSite(t)
	c := site.client(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validContact()
			tt.mutate(form)
			resp := site.postForm(t, c, RouteContact, form)
			assertStatus(t, resp, http.StatusUnprocessableEntity)
			assertContains(t, resp.body, tt.want)
		})
	}
	if n := site.sender.count(); n != 0 {
		t.Errorf("sent = %d, want 0", n)
	}
}

func TestContact_KeepsInputOnValidationError(t *testing.T) {
	site := newTestSite(t)
	form := validContact()
	form.Set("email", "broken")

	resp := site.postForm(t, site.client(t), RouteContact, form)
	assertStatus(t, resp, http.StatusUnprocessableEntity)
	assertContains(t, resp.body, `value="Mario"`)
	assertContains(t, resp.body, "Vorrei un preventivo per una diretta.")
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a@example.com", true},
		{"mario.rossi@studio.it", true},
		{"", false},
		{"plain", false},
		{"Mario <mario@example.com>", false},
		{"a@", false},
	}
	for _, tt := range tests {
		if got := validEmail(tt.in); got != tt.want {
			t.Errorf("validEmail(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDismissToast(t *testing.T) {
	site := newTestSite(t)
	c := site.client(t)
	site.get(t, c, RouteContact)
	site.postForm(t, c, RouteContact, validContact())

	page := site.get(t, c, RouteContact)
	m := toastIDRegex.FindStringSubmatch(page.body)
	if m == nil {
		t.Fatal("no toast rendered")
	}

	resp := site.postForm(t, c, "/toasts/"+m[1]+"/dismiss", url.Values{"return": {RouteContact}})
	assertStatus(t, resp, http.StatusSeeOther)
	if resp.location != RouteContact {
		t.Errorf("Location = %q, want %q", resp.location, RouteContact)
	}

	page = site.get(t, c, RouteContact)
	assertNotContains(t, page.body, msgContactSent)

	resp = site.postForm(t, c, "/toasts/abc/dismiss", nil)
	assertStatus(t, resp, http.StatusBadRequest)
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	netmail "net/mail"
	"strings"
	"unicode/utf8"

	"github.com/olegiv/studio-go/internal/mail"
)

// maxMessageLen bounds the contact message in characters.
const maxMessageLen = 5000

// contactForm is the data of the contact page form.
type contactForm struct {
	Name     string
	Surname  string
	Email    string
	Phone    string
	Service  string
	Message  string
	Errors   map[string]string
	Services []string
}

func newContactForm() *contactForm {
	return &contactForm{
		Service:  mail.Services[0],
		Errors:   map[string]string{},
		Services: mail.Services,
	}
}

// contactFormFromRequest reads the posted fields and validates them.
func contactFormFromRequest(r *http.Request) *contactForm {
	f := newContactForm()
	f.Name = strings.TrimSpace(r.PostFormValue("name"))
	f.Surname = strings.TrimSpace(r.PostFormValue("surname"))
	f.Email = strings.TrimSpace(r.PostFormValue("email"))
	f.Phone = strings.TrimSpace(r.PostFormValue("phone"))
	f.Service = strings.TrimSpace(r.PostFormValue("service"))
	f.Message = strings.TrimSpace(r.PostFormValue("message"))

	if f.Name == "" {
		f.Errors["name"] = msgFieldRequired
	}
	if f.Surname == "" {
		f.Errors["surname"] = msgFieldRequired
	}
	switch {
	case f.Email == "":
		f.Errors["email"] = msgFieldRequired
	case !validEmail(f.Email):
		f.Errors["email"] = msgInvalidEmail
	}
	if !mail.ValidService(f.Service) {
		f.Errors["service"] = msgInvalidService
	}
	switch {
	case f.Message == "":
		f.Errors["message"] = msgFieldRequired
	case utf8.RuneCountInString(f.Message) > maxMessageLen:
		f.Errors["message"] = msgMessageTooLong
	}
	return f
}

func validEmail(s string) bool {
	addr, err := netmail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func (f *contactForm) request() mail.Request {
	return mail.Request{
		Name:    f.Name,
		Surname: f.Surname,
		Email:   f.Email,
		Phone:   f.Phone,
		Service: f.Service,
		Message: f.Message,
	}
}

// Contact handles POST /contatti. Invalid submissions re-render the form
// with 422; valid ones are sent once and the outcome is shown as a toast.
func (h *PageHandler) Contact(w http.ResponseWriter, r *http.Request) {
	page, ok := h.pages.ByName("contact")
	if !ok {
		h.NotFound(w, r)
		return
	}
	if !parseFormOrError(w, r) {
		return
	}

	form := contactFormFromRequest(r)
	if len(form.Errors) > 0 {
		h.renderPage(w, r, page, http.StatusUnprocessableEntity, form)
		return
	}

	layer := h.layer(r)
	var err error
	if h.sender == nil {
		err = mail.ErrNotConfigured
	} else {
		err = h.sender.Send(r.Context(), form.request())
	}
	if err != nil {
		h.logger.Error("contact request failed",
			"category", "mail", "error", err, "service", form.Service)
		if layer != nil {
			layer.Error(msgContactFailed)
		}
	} else {
		h.logger.Info("contact request sent", "category", "mail", "service", form.Service)
		if layer != nil {
			layer.Success(msgContactSent)
		}
	}
	http.Redirect(w, r, page.Path, http.StatusSeeOther)
}

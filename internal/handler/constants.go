// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteLogin is the admin login route.
	RouteLogin = "/admin/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteEdit is the edit form route.
	RouteEdit = "/admin/edit"
	// RouteContact is the contact page route.
	RouteContact = "/contatti"
	// RouteToastDismiss dismisses one toast.
	RouteToastDismiss = "/toasts/{id}/dismiss"
	// RouteHealth is the health check route.
	RouteHealth = "/health"

	// RouteRobots serves robots.txt.
	RouteRobots = "/robots.txt"
)

// Messages shown to visitors.
const (
	msgLoginFailed     = "Email o password non validi."
	msgLoginError      = "Accesso non disponibile. Riprova più tardi."
	msgLoggedIn        = "Accesso effettuato."
	msgLoggedOut       = "Sei uscito dall'area riservata."
	msgContactSent     = "Grazie per la tua richiesta! Ti contatteremo presto per il preventivo."
	msgContactFailed   = "Invio non riuscito. Riprova più tardi o contattaci telefonicamente."
	msgInvalidForm     = "Dati del modulo non validi."
	msgFieldRequired   = "Campo obbligatorio."
	msgInvalidEmail    = "Indirizzo email non valido."
	msgInvalidService  = "Seleziona un servizio."
	msgMessageTooLong  = "Il messaggio è troppo lungo."
	msgEditUnavailable = "Elemento non modificabile."
)

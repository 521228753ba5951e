// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"github.com/mileusna/useragent"
)

// deviceLabel turns a User-Agent header into a short label such as
// "Firefox on Linux (desktop)".
func deviceLabel(uaString string) string {
	if uaString == "" {
		return ""
	}
	ua := useragent.Parse(uaString)

	browser := ua.Name
	if browser == "" {
		browser = "Unknown"
	}
	os := ua.OS
	if os == "" {
		os = "Unknown"
	}

	var kind string
	switch {
	case ua.Mobile:
		kind = "mobile"
	case ua.Tablet:
		kind = "tablet"
	case ua.Bot:
		kind = "bot"
	default:
		kind = "desktop"
	}
	return browser + " on " + os + " (" + kind + ")"
}

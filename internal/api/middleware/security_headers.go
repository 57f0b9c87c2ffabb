// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"strings"
)

// DefaultCSP admits the A-Frame and three.js bundles from their CDNs and
// inline data: images used by QR codes.
const DefaultCSP = "default-src 'self'; " +
	"script-src 'self' https://aframe.io https://cdn.jsdelivr.net; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data: blob:; " +
	"media-src 'self' blob:; " +
	"connect-src 'self'; " +
	"frame-ancestors 'none'"

// SecurityHeaders adds hardening headers to every response. HSTS is only
// sent on TLS or when a proxy reports https.
func SecurityHeaders(csp string) func(http.Handler) http.Handler {
	if csp == "" {
		csp = DefaultCSP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
				h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			}
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			// the viewer reads device orientation for look-around
			h.Set("Permissions-Policy", "accelerometer=(self), gyroscope=(self), magnetometer=(self), xr-spatial-tracking=(self)")
			next.ServeHTTP(w, r)
		})
	}
}

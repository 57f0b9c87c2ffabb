// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package auth authenticates the admin: a password login issues a signed
// session cookie, and a static API token authorises scripted access.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// APITokenHeader is the legacy header accepted besides Authorization: Bearer.
const APITokenHeader = "X-API-Token"

// ExtractAPIToken retrieves an API token from the request.
// Order: Authorization: Bearer, then X-API-Token.
func ExtractAPIToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.Header.Get(APITokenHeader))
}

// AuthorizeToken returns true if got matches expected using constant-time comparison.
// Empty tokens are always treated as unauthorized.
func AuthorizeToken(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// CheckPassword compares a submitted password in constant time. Both sides
// are hashed first so the comparison does not leak the expected length.
func CheckPassword(got, expected string) bool {
	if expected == "" {
		return false
	}
	g := sha256.Sum256([]byte(got))
	e := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(g[:], e[:]) == 1
}

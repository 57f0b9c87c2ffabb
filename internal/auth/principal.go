// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"context"
	"net/http"
)

// Method names how a principal authenticated.
type Method string

const (
	MethodSession Method = "session"
	MethodToken   Method = "token"
)

// Principal represents the authenticated admin.
type Principal struct {
	// ID is the session id for cookie logins and "api-token" for token access.
	ID     string
	Method Method
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by the auth middleware, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// Authenticator resolves the admin principal of a request.
type Authenticator struct {
	sessions *Sessions
	// apiToken is read per request so that a config reload takes effect.
	apiToken func() string
}

func NewAuthenticator(sessions *Sessions, apiToken func() string) *Authenticator {
	if apiToken == nil {
		apiToken = func() string { return "" }
	}
	return &Authenticator{sessions: sessions, apiToken: apiToken}
}

// Sessions exposes the session signer used for login.
func (a *Authenticator) Sessions() *Sessions { return a.sessions }

// Authenticate checks the session cookie first, then the API token.
func (a *Authenticator) Authenticate(r *http.Request) (*Principal, error) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if claims, err := a.sessions.Verify(c.Value); err == nil {
			return &Principal{ID: claims.ID, Method: MethodSession}, nil
		}
	}
	if AuthorizeToken(ExtractAPIToken(r), a.apiToken()) {
		return &Principal{ID: "api-token", Method: MethodToken}, nil
	}
	return nil, ErrUnauthorized
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"strings"

	"github.com/ManuGH/panoview/internal/auth"
	"github.com/ManuGH/panoview/internal/log"
	"github.com/ManuGH/panoview/internal/metrics"
)

const (
	loginPath = "/admin/login"
	adminPath = "/admin"
)

// requirePage redirects unauthenticated browsers to the login form.
func (s *Server) requirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.authn.Authenticate(r)
		if err != nil {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// requireAPI answers 401 JSON to unauthenticated API calls.
func (s *Server) requireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.authn.Authenticate(r)
		if err != nil {
			s.audit.AuthMissing(r)
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// secureRequest reports whether the client reached us over TLS.
func secureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

type loginPage struct {
	Failed bool
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authn.Authenticate(r); err == nil {
		http.Redirect(w, r, adminPath, http.StatusFound)
		return
	}
	s.render(w, r, "login.html", loginPage{Failed: r.URL.Query().Get("error") != ""})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, loginPath+"?error=1", http.StatusSeeOther)
		return
	}

	if !auth.CheckPassword(r.PostForm.Get("password"), s.cfg.Get().Admin.Password) {
		metrics.RecordAdminLogin(metrics.OutcomeFailure)
		s.audit.AuthFailure(r, "invalid_password")
		logger.Warn().
			Str(log.FieldEvent, log.EventAdminLogin).
			Str(log.FieldReason, "invalid_password").
			Str(log.FieldRemoteAddr, r.RemoteAddr).
			Msg("admin login failed")
		http.Redirect(w, r, loginPath+"?error=1", http.StatusSeeOther)
		return
	}

	token, expires, err := s.sessions.Issue()
	if err != nil {
		metrics.RecordAdminLogin(metrics.OutcomeFailure)
		logger.Error().Err(err).Msg("failed to issue admin session")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	auth.SetCookie(w, token, expires, secureRequest(r))
	metrics.RecordAdminLogin(metrics.OutcomeSuccess)
	s.audit.AuthSuccess(r)
	logger.Info().
		Str(log.FieldEvent, log.EventAdminLogin).
		Str(log.FieldRemoteAddr, r.RemoteAddr).
		Time("expires", expires).
		Msg("admin logged in")
	http.Redirect(w, r, adminPath, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w, secureRequest(r))
	s.audit.Logout(r)
	log.FromContext(r.Context()).Info().
		Str(log.FieldEvent, log.EventAdminLogout).
		Msg("admin logged out")
	http.Redirect(w, r, loginPath, http.StatusFound)
}

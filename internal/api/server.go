// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the viewer pages, video assets, the admin panel and
// its JSON API.
package api

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/ManuGH/panoview/internal/analytics"
	"github.com/ManuGH/panoview/internal/audit"
	"github.com/ManuGH/panoview/internal/auth"
	"github.com/ManuGH/panoview/internal/cache"
	"github.com/ManuGH/panoview/internal/config"
	"github.com/ManuGH/panoview/internal/health"
	"github.com/ManuGH/panoview/internal/library"
	"github.com/ManuGH/panoview/internal/log"
)

// ConfigSource yields the active configuration. *config.Holder implements it.
type ConfigSource interface {
	Get() config.AppConfig
}

// Deps are the collaborators of a Server.
type Deps struct {
	Config    ConfigSource
	Library   *library.Library
	Analytics analytics.Store
	Health    *health.Manager
	Sessions  *auth.Sessions
	// Audit defaults to the "audit" component logger.
	Audit *audit.Logger
	// QRCache memoizes QR codes per viewer link. Nil disables caching.
	QRCache cache.Cache
}

// Server owns the HTTP handlers.
type Server struct {
	cfg      ConfigSource
	lib      *library.Library
	store    analytics.Store
	health   *health.Manager
	sessions *auth.Sessions
	authn    *auth.Authenticator
	audit    *audit.Logger
	qrCache  cache.Cache
	pages    *template.Template
	web      fs.FS
	now      func() time.Time

	handlerOnce sync.Once
	handler     http.Handler
}

// New validates deps and parses the embedded page templates.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("api: config source is required")
	case deps.Library == nil:
		return nil, errors.New("api: library is required")
	case deps.Analytics == nil:
		return nil, errors.New("api: analytics store is required")
	case deps.Sessions == nil:
		return nil, errors.New("api: sessions are required")
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	al := deps.Audit
	if al == nil {
		al = audit.NewLogger()
	}
	qc := deps.QRCache
	if qc == nil {
		qc = cache.NewNoOpCache()
	}
	hm := deps.Health
	if hm == nil {
		hm = health.NewManager(deps.Config.Get().Version)
	}

	s := &Server{
		cfg:      deps.Config,
		lib:      deps.Library,
		store:    deps.Analytics,
		health:   hm,
		sessions: deps.Sessions,
		audit:    al,
		qrCache:  qc,
		pages:    pages,
		web:      webFS(),
		now:      time.Now,
	}
	s.authn = auth.NewAuthenticator(deps.Sessions, func() string {
		return s.cfg.Get().Admin.APIToken
	})
	return s, nil
}

// Handler returns the routed handler with the middleware stack applied.
// Listener-level settings (CORS, rate limits) are read once here.
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		s.handler = s.routes()
	})
	return s.handler
}

// staticFS prefers an operator-supplied static directory over the
// embedded assets.
func (s *Server) staticFS() fs.FS {
	dir := s.cfg.Get().Media.StaticDir
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
		logger := log.WithComponent("api")
		logger.Warn().Str("dir", dir).Msg("static dir unavailable, using embedded assets")
	}
	sub, err := fs.Sub(s.web, "static")
	if err != nil {
		// embedded tree is fixed at build time
		panic(err)
	}
	return sub
}

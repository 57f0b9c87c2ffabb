// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/panoview/internal/api/middleware"
)

// TracingService names server spans.
const TracingService = "panoview-http"

func (s *Server) routes() http.Handler {
	cfg := s.cfg.Get()

	tracing := ""
	if cfg.Tracing.Enabled {
		tracing = TracingService
	}
	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CSP:            middleware.DefaultCSP,
		EnableMetrics:  true,
		TracingService: tracing,
		EnableLogging:  true,
		EnableCompress: true,
	})

	rl := cfg.RateLimit
	limit := func(perMinute int) func(http.Handler) http.Handler {
		if !rl.Enabled {
			return middleware.PerMinute(0, nil)
		}
		return middleware.RateLimit(middleware.RateLimitConfig{
			RequestLimit: perMinute,
			WindowSize:   time.Minute,
			Whitelist:    rl.Whitelist,
			OnLimit:      s.audit.RateLimitExceeded,
		})
	}
	loginLimit := limit(rl.LoginPerMinute)
	uploadLimit := limit(rl.UploadPerMinute)
	apiLimit := limit(rl.APIPerMinute)
	csrf := middleware.CSRFProtection(cfg.CORS.AllowedOrigins)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Get("/openapi.yaml", handleOpenAPI)

	r.Get("/", s.handleLanding)
	r.Get("/viewer.html", s.handleViewer)
	r.Handle("/static/*", s.staticHandler())
	r.Handle("/assets/*", s.assetHandler())

	r.Route("/admin", func(r chi.Router) {
		r.Use(csrf)
		r.Get("/login", s.handleLoginPage)
		r.With(loginLimit).Post("/login", s.handleLogin)
		r.Get("/logout", s.handleLogout)
		r.With(s.requirePage).Get("/", s.handleAdminPage)

		r.Route("/api", func(r chi.Router) {
			r.Use(apiLimit, s.requireAPI)
			r.Get("/videos", s.handleListVideos)
			r.Delete("/videos/{filename}", s.handleDeleteVideo)
			r.Get("/qr/{filename}", s.handleQR)
			r.Get("/logs", s.handleLogs)
			r.Get("/config", s.handleConfig)
		})
	})

	r.With(csrf, uploadLimit, s.requireAPI).Post("/upload", s.handleUpload)

	r.Group(func(r chi.Router) {
		r.Use(apiLimit)
		r.With(s.requireAPI).Get("/analytics", s.handleTotalViews)
		r.With(s.requireAPI).Get("/analytics/{filename}", s.handleVideoStats)
		r.Post("/track-view/{filename}", s.handleTrackView)
	})

	return r
}

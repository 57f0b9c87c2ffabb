// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/panoview/internal/config"
)

// ServerConfig holds listener addresses and HTTP server limits.
type ServerConfig struct {
	ListenAddr string
	// TLSListenAddr serves the API over HTTPS when Deps.TLSConfig is set.
	TLSListenAddr string
	// MetricsAddr serves Deps.MetricsHandler. Empty disables the listener.
	MetricsAddr string

	ReadHeaderTimeout time.Duration
	// ReadTimeout and WriteTimeout stay zero by default: uploads and
	// ranged video responses run for minutes.
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// ServerConfigFor derives listener settings from the application config.
func ServerConfigFor(cfg config.AppConfig) ServerConfig {
	sc := ServerConfig{
		ListenAddr:        cfg.ListenAddr,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ShutdownTimeout:   15 * time.Second,
	}
	if cfg.TLS.Enabled {
		sc.TLSListenAddr = cfg.TLS.ListenAddr
	}
	if cfg.Metrics.Enabled {
		sc.MetricsAddr = cfg.Metrics.ListenAddr
	}
	return sc
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// APIHandler serves the public site, assets and admin API.
	APIHandler http.Handler

	// MetricsHandler is the HTTP handler for Prometheus metrics (if enabled)
	MetricsHandler http.Handler

	// TLSConfig enables the HTTPS listener.
	TLSConfig *tls.Config
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	return nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon provides the core daemon bootstrapping and lifecycle management.
package daemon

import (
	"context"
	cryptotls "crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/panoview/internal/analytics"
	"github.com/ManuGH/panoview/internal/api"
	"github.com/ManuGH/panoview/internal/audit"
	"github.com/ManuGH/panoview/internal/auth"
	"github.com/ManuGH/panoview/internal/cache"
	"github.com/ManuGH/panoview/internal/config"
	"github.com/ManuGH/panoview/internal/health"
	"github.com/ManuGH/panoview/internal/library"
	"github.com/ManuGH/panoview/internal/log"
	"github.com/ManuGH/panoview/internal/telemetry"
	"github.com/ManuGH/panoview/internal/tls"
)

// Container holds the wired runtime graph.
type Container struct {
	Config    config.AppConfig
	Holder    *config.Holder
	Server    *api.Server
	Manager   Manager
	App       *App
	Library   *library.Library
	Analytics analytics.Store
	Health    *health.Manager
}

// Wire builds every runtime dependency from the holder's current config.
// Resources opened before a failure are released before Wire returns.
func Wire(ctx context.Context, holder *config.Holder) (_ *Container, err error) {
	if holder == nil {
		return nil, errors.New("config holder is required")
	}
	cfg := holder.Get()
	logger := log.WithComponent("daemon")

	var cleanups []func(context.Context) error
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanups) - 1; i >= 0; i-- {
			_ = cleanups[i](context.WithoutCancel(ctx))
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	lib, err := library.New(library.Config{
		Dir:               cfg.Media.VideoDir,
		AllowedExtensions: cfg.Media.AllowedExtensions,
	})
	if err != nil {
		return nil, fmt.Errorf("open video library: %w", err)
	}
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, err
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SamplingRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	cleanups = append(cleanups, tp.Shutdown)

	store, err := analytics.Open(ctx, analytics.Config{
		Backend: cfg.Analytics.Backend,
		Path:    cfg.Analytics.Path,
		Redis: analytics.RedisConfig{
			Addr:     cfg.Analytics.Redis.Addr,
			Password: cfg.Analytics.Redis.Password,
			DB:       cfg.Analytics.Redis.DB,
		},
	})
	if err != nil {
		return nil, err
	}
	closeStore := func(context.Context) error { return store.Close() }
	cleanups = append(cleanups, closeStore)

	sessions, err := auth.NewSessions(cfg.Admin.SessionSecret, cfg.Admin.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("init sessions: %w", err)
	}

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewDirChecker("video_dir", cfg.Media.VideoDir))
	hm.RegisterChecker(health.NewPingChecker("analytics", store.Ping))

	qrCache := cache.NewMemoryCache(time.Minute)
	stopCache := func(context.Context) error { qrCache.Stop(); return nil }
	cleanups = append(cleanups, stopCache)

	srv, err := api.New(api.Deps{
		Config:    holder,
		Library:   lib,
		Analytics: store,
		Health:    hm,
		Sessions:  sessions,
		Audit:     audit.NewLogger(),
		QRCache:   qrCache,
	})
	if err != nil {
		return nil, fmt.Errorf("init api: %w", err)
	}

	deps := Deps{
		Logger:     logger,
		APIHandler: srv.Handler(),
	}
	if cfg.TLS.Enabled {
		deps.TLSConfig, err = serverTLS(cfg, logger)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Metrics.Enabled {
		deps.MetricsHandler = metricsHandler()
	}

	mgr, err := NewManager(ServerConfigFor(cfg), deps)
	if err != nil {
		return nil, err
	}
	// LIFO: the store closes before the tracer flushes.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("analytics", closeStore)
	mgr.RegisterShutdownHook("qr_cache", stopCache)

	return &Container{
		Config:    cfg,
		Holder:    holder,
		Server:    srv,
		Manager:   mgr,
		App:       NewApp(logger, mgr, holder),
		Library:   lib,
		Analytics: store,
		Health:    hm,
	}, nil
}

func serverTLS(cfg config.AppConfig, logger zerolog.Logger) (*cryptotls.Config, error) {
	if cfg.TLS.AutoGenerate {
		if err := tls.EnsureCertificates(tls.Options{
			CertPath:          cfg.TLS.CertFile,
			KeyPath:           cfg.TLS.KeyFile,
			Hosts:             cfg.TLS.Hosts,
			IncludeNetworkIPs: true,
			Logger:            logger,
		}); err != nil {
			return nil, fmt.Errorf("provision TLS certificates: %w", err)
		}
	}
	tlsCfg, err := tls.ServerConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load TLS certificates: %w", err)
	}
	return tlsCfg, nil
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

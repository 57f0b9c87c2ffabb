// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/panoview/internal/config"
	"github.com/ManuGH/panoview/internal/daemon"
	xglog "github.com/ManuGH/panoview/internal/log"
	"github.com/ManuGH/panoview/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "storage":
			os.Exit(runStorageCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	envFile := flag.String("env-file", ".env", "KEY=VALUE file loaded before the environment is read")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until config is loaded.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "panoview",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Fatal().Err(err).Str(xglog.FieldEvent, "config.env_failed").Msg("failed to load environment file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := resolveConfigPath(*configPath)
	loader := config.NewLoader(effectiveConfigPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Service: cfg.Log.Service,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")

	if effectiveConfigPath != "" {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "file").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	logStartup(cfg)

	c, err := daemon.Wire(ctx, config.NewHolder(cfg, loader))
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "startup.wire_failed").
			Msg("startup failed, verify configuration and permissions")
	}

	if err := c.App.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "manager.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("server exiting")
}

// resolveConfigPath picks the config file: the explicit flag, then
// PANOVIEW_CONFIG, then the XDG search path. "" means env-only configuration.
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(config.EnvPrefix + "CONFIG")); p != "" {
		return p
	}
	return config.DefaultConfigFile()
}

func logStartup(cfg config.AppConfig) {
	logger := xglog.WithComponent("daemon")
	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.ListenAddr).
		Msg("starting panoview")

	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	logger.Info().Msgf("→ Videos: %s", cfg.Media.VideoDir)
	logger.Info().Msgf("→ Analytics: %s", cfg.Analytics.Backend)
	if cfg.PublicURL != "" {
		logger.Info().Msgf("→ Public URL: %s", config.MaskURL(cfg.PublicURL))
	}
	if cfg.Admin.APIToken != "" {
		logger.Info().Msg("→ API token: configured")
	} else {
		logger.Info().Msg("→ API token: not configured (session login only)")
	}
	if cfg.TLS.Enabled {
		logger.Info().Msgf("→ TLS: %s (cert: %s)", cfg.TLS.ListenAddr, cfg.TLS.CertFile)
	}
	if cfg.Metrics.Enabled {
		logger.Info().Msgf("→ Metrics: %s", cfg.Metrics.ListenAddr)
	}
}

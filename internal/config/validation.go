// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/panoview/internal/validate"
)

// Validate checks cfg and reports every failing field at once. Missing data,
// asset and video directories are created.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("ListenAddr", cfg.ListenAddr)
	if strings.TrimSpace(cfg.PublicURL) != "" {
		v.URL("PublicURL", cfg.PublicURL, []string{"http", "https"})
	}
	v.OneOf("Log.Level", strings.ToLower(cfg.Log.Level), validate.LogLevels)

	v.Directory("DataDir", cfg.DataDir, false)
	v.Directory("Media.AssetsDir", cfg.Media.AssetsDir, false)
	v.Directory("Media.VideoDir", cfg.Media.VideoDir, false)
	if cfg.Media.StaticDir != "" {
		v.Directory("Media.StaticDir", cfg.Media.StaticDir, true)
	}
	v.Positive("Media.MaxUploadBytes", cfg.Media.MaxUploadBytes)
	if len(cfg.Media.AllowedExtensions) == 0 {
		v.AddError("Media.AllowedExtensions", "at least one extension is required", nil)
	}
	for _, ext := range cfg.Media.AllowedExtensions {
		v.Extension("Media.AllowedExtensions", ext)
	}

	v.NotEmpty("Admin.Password", cfg.Admin.Password)
	v.MinLength("Admin.SessionSecret", cfg.Admin.SessionSecret, 32)
	v.DurationRange("Admin.SessionTTL", cfg.Admin.SessionTTL, time.Minute, 30*24*time.Hour)

	v.OneOf("Analytics.Backend", cfg.Analytics.Backend,
		[]string{BackendJSON, BackendSQLite, BackendRedis, BackendBadger})
	if cfg.Analytics.Backend == BackendRedis {
		v.NotEmpty("Analytics.Redis.Addr", cfg.Analytics.Redis.Addr)
		v.Range("Analytics.Redis.DB", cfg.Analytics.Redis.DB, 0, 15)
	} else {
		v.NotEmpty("Analytics.Path", cfg.Analytics.Path)
	}

	if cfg.TLS.Enabled {
		v.ListenAddr("TLS.ListenAddr", cfg.TLS.ListenAddr)
		if cfg.TLS.ListenAddr == cfg.ListenAddr {
			v.AddError("TLS.ListenAddr", "must differ from ListenAddr", cfg.TLS.ListenAddr)
		}
		if !cfg.TLS.AutoGenerate {
			v.FileReadable("TLS.CertFile", cfg.TLS.CertFile)
			v.FileReadable("TLS.KeyFile", cfg.TLS.KeyFile)
		}
	}

	if cfg.Metrics.Enabled {
		v.ListenAddr("Metrics.ListenAddr", cfg.Metrics.ListenAddr)
		if cfg.Metrics.ListenAddr == cfg.ListenAddr {
			v.AddError("Metrics.ListenAddr", "must differ from ListenAddr", cfg.Metrics.ListenAddr)
		}
	}

	if cfg.Tracing.Enabled {
		v.OneOf("Tracing.Exporter", cfg.Tracing.Exporter, []string{ExporterGRPC, ExporterHTTP})
		v.NotEmpty("Tracing.Endpoint", cfg.Tracing.Endpoint)
		v.Custom("Tracing.SampleRate", cfg.Tracing.SampleRate, func(val any) error {
			if r := val.(float64); r < 0 || r > 1 {
				return fmt.Errorf("sample rate must be within [0,1], got %v", r)
			}
			return nil
		})
	}

	v.NonNegative("RateLimit.LoginPerMinute", cfg.RateLimit.LoginPerMinute)
	v.NonNegative("RateLimit.UploadPerMinute", cfg.RateLimit.UploadPerMinute)
	v.NonNegative("RateLimit.APIPerMinute", cfg.RateLimit.APIPerMinute)
	for _, entry := range cfg.RateLimit.Whitelist {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		v.CIDROrIP("RateLimit.Whitelist", entry)
	}

	v.DurationRange("Playback.GracePeriod", cfg.Playback.GracePeriod, 100*time.Millisecond, time.Minute)

	return v.Err()
}

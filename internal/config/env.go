// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/panoview/internal/log"
	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "PANOVIEW_"

// lookupEnv reads key and converts it with parse. Unset or blank values yield
// defaultValue; unparsable values are logged and also yield defaultValue.
func lookupEnv[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		logger.Debug().
			Str("key", key).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}

	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		logger.Warn().
			Err(err).
			Str("key", key).
			Str("value", redactEnv(key, raw)).
			Msg("invalid environment variable, using default")
		return defaultValue
	}

	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitiveKey(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", raw)
	}
	ev.Msg("using environment variable")
	return v
}

func redactEnv(key, raw string) string {
	if isSensitiveKey(key) {
		return "***"
	}
	return raw
}

// ParseString reads a string from environment variable or returns default value.
func ParseString(key, defaultValue string) string {
	return lookupEnv(key, defaultValue, func(s string) (string, error) { return s, nil })
}

// ParseInt reads an integer from environment variable or returns default value.
func ParseInt(key string, defaultValue int) int {
	return lookupEnv(key, defaultValue, strconv.Atoi)
}

// ParseInt64 reads a 64-bit integer. A binary size suffix (K, M, G) is accepted.
func ParseInt64(key string, defaultValue int64) int64 {
	return lookupEnv(key, defaultValue, parseSize)
}

// ParseDuration reads a duration in Go duration format (e.g. "5s").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return lookupEnv(key, defaultValue, time.ParseDuration)
}

// ParseBool accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return lookupEnv(key, defaultValue, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		}
		return false, fmt.Errorf("invalid boolean %q", s)
	})
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return lookupEnv(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ParseStringList reads a comma separated list. Blank entries are dropped.
func ParseStringList(key string, defaultValue []string) []string {
	return lookupEnv(key, defaultValue, func(s string) ([]string, error) {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	})
}

func parseSize(s string) (int64, error) {
	mult := int64(1)
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		mult = 1 << 10
	case "M":
		mult = 1 << 20
	case "G":
		mult = 1 << 30
	}
	if mult != 1 {
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	logger := log.WithComponent("config")
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		logger.Info().Str("path", p).Msg("loaded environment file")
	}
	return nil
}

// applyEnv overlays PANOVIEW_* variables onto cfg.
func applyEnv(cfg *AppConfig) {
	cfg.ListenAddr = ParseString(EnvPrefix+"LISTEN_ADDR", cfg.ListenAddr)
	cfg.PublicURL = ParseString(EnvPrefix+"PUBLIC_URL", cfg.PublicURL)

	// LOG_LEVEL and LOG_SERVICE are honoured for container conventions.
	cfg.Log.Level = ParseString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Level = ParseString(EnvPrefix+"LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = ParseString("LOG_SERVICE", cfg.Log.Service)

	cfg.Media.AssetsDir = ParseString(EnvPrefix+"ASSETS_DIR", cfg.Media.AssetsDir)
	cfg.Media.VideoDir = ParseString(EnvPrefix+"VIDEO_DIR", cfg.Media.VideoDir)
	cfg.Media.StaticDir = ParseString(EnvPrefix+"STATIC_DIR", cfg.Media.StaticDir)
	cfg.Media.MaxUploadBytes = ParseInt64(EnvPrefix+"MAX_UPLOAD_BYTES", cfg.Media.MaxUploadBytes)
	cfg.Media.AllowedExtensions = ParseStringList(EnvPrefix+"ALLOWED_EXTENSIONS", cfg.Media.AllowedExtensions)

	cfg.Admin.Password = ParseString(EnvPrefix+"ADMIN_PASSWORD", cfg.Admin.Password)
	cfg.Admin.APIToken = ParseString(EnvPrefix+"API_TOKEN", cfg.Admin.APIToken)
	cfg.Admin.SessionSecret = ParseString(EnvPrefix+"SESSION_SECRET", cfg.Admin.SessionSecret)
	cfg.Admin.SessionTTL = ParseDuration(EnvPrefix+"SESSION_TTL", cfg.Admin.SessionTTL)

	cfg.Analytics.Backend = ParseString(EnvPrefix+"ANALYTICS_BACKEND", cfg.Analytics.Backend)
	cfg.Analytics.Path = ParseString(EnvPrefix+"ANALYTICS_PATH", cfg.Analytics.Path)
	cfg.Analytics.Redis.Addr = ParseString(EnvPrefix+"REDIS_ADDR", cfg.Analytics.Redis.Addr)
	cfg.Analytics.Redis.Password = ParseString(EnvPrefix+"REDIS_PASSWORD", cfg.Analytics.Redis.Password)
	cfg.Analytics.Redis.DB = ParseInt(EnvPrefix+"REDIS_DB", cfg.Analytics.Redis.DB)

	cfg.TLS.Enabled = ParseBool(EnvPrefix+"TLS_ENABLED", cfg.TLS.Enabled)
	cfg.TLS.ListenAddr = ParseString(EnvPrefix+"TLS_LISTEN_ADDR", cfg.TLS.ListenAddr)
	cfg.TLS.CertFile = ParseString(EnvPrefix+"TLS_CERT", cfg.TLS.CertFile)
	cfg.TLS.KeyFile = ParseString(EnvPrefix+"TLS_KEY", cfg.TLS.KeyFile)
	cfg.TLS.AutoGenerate = ParseBool(EnvPrefix+"TLS_AUTOGENERATE", cfg.TLS.AutoGenerate)
	cfg.TLS.Hosts = ParseStringList(EnvPrefix+"TLS_HOSTS", cfg.TLS.Hosts)

	cfg.Metrics.Enabled = ParseBool(EnvPrefix+"METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.ListenAddr = ParseString(EnvPrefix+"METRICS_LISTEN_ADDR", cfg.Metrics.ListenAddr)

	cfg.Tracing.Enabled = ParseBool(EnvPrefix+"TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = ParseString(EnvPrefix+"TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = ParseString(EnvPrefix+"TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.Insecure = ParseBool(EnvPrefix+"TRACING_INSECURE", cfg.Tracing.Insecure)
	cfg.Tracing.SampleRate = ParseFloat(EnvPrefix+"TRACING_SAMPLE_RATE", cfg.Tracing.SampleRate)

	cfg.CORS.AllowedOrigins = ParseStringList(EnvPrefix+"CORS_ORIGINS", cfg.CORS.AllowedOrigins)

	cfg.RateLimit.Enabled = ParseBool(EnvPrefix+"RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.LoginPerMinute = ParseInt(EnvPrefix+"RATELIMIT_LOGIN", cfg.RateLimit.LoginPerMinute)
	cfg.RateLimit.UploadPerMinute = ParseInt(EnvPrefix+"RATELIMIT_UPLOAD", cfg.RateLimit.UploadPerMinute)
	cfg.RateLimit.APIPerMinute = ParseInt(EnvPrefix+"RATELIMIT_API", cfg.RateLimit.APIPerMinute)
	cfg.RateLimit.Whitelist = ParseStringList(EnvPrefix+"RATELIMIT_WHITELIST", cfg.RateLimit.Whitelist)

	cfg.Playback.GracePeriod = ParseDuration(EnvPrefix+"GRACE_PERIOD", cfg.Playback.GracePeriod)
	cfg.Playback.KeepMuted = ParseBool(EnvPrefix+"KEEP_MUTED", cfg.Playback.KeepMuted)
}

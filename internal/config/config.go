// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads, validates and hot-reloads the panoview configuration.
//
// Precedence is defaults, then the YAML file, then PANOVIEW_* environment
// variables. Paths left empty are derived from the data directory.
package config

import "time"

// Analytics backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Tracing exporters.
const (
	ExporterGRPC = "grpc"
	ExporterHTTP = "http"
)

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	ListenAddr string          `yaml:"listenAddr"`
	PublicURL  string          `yaml:"publicUrl"`
	DataDir    string          `yaml:"dataDir"`
	Log        LogConfig       `yaml:"log"`
	Media      MediaConfig     `yaml:"media"`
	Admin      AdminConfig     `yaml:"admin"`
	Analytics  AnalyticsConfig `yaml:"analytics"`
	TLS        TLSConfig       `yaml:"tls"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Tracing    TracingConfig   `yaml:"tracing"`
	CORS       CORSConfig      `yaml:"cors"`
	RateLimit  RateLimitConfig `yaml:"rateLimit"`
	Playback   PlaybackConfig  `yaml:"playback"`

	// Version is stamped by the loader from the build.
	Version string `yaml:"-"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// MediaConfig locates uploaded videos and the static viewer bundle.
type MediaConfig struct {
	// AssetsDir is served under /assets/. Defaults to <dataDir>/assets.
	AssetsDir string `yaml:"assetsDir"`
	// VideoDir holds uploads. Defaults to <assetsDir>/videos.
	VideoDir string `yaml:"videoDir"`
	// StaticDir overrides the embedded viewer bundle served under /static/.
	StaticDir         string   `yaml:"staticDir"`
	MaxUploadBytes    int64    `yaml:"maxUploadBytes"`
	AllowedExtensions []string `yaml:"allowedExtensions"`
}

type AdminConfig struct {
	Password      string        `yaml:"password"`
	APIToken      string        `yaml:"apiToken"`
	SessionSecret string        `yaml:"sessionSecret"`
	SessionTTL    time.Duration `yaml:"sessionTTL"`

	// PasswordGenerated reports that Password was not configured and was
	// generated at load time.
	PasswordGenerated bool `yaml:"-"`
}

type AnalyticsConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TLSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
	CertFile   string `yaml:"certFile"`
	KeyFile    string `yaml:"keyFile"`
	// AutoGenerate creates a self-signed pair at CertFile/KeyFile when missing.
	AutoGenerate bool     `yaml:"autoGenerate"`
	Hosts        []string `yaml:"hosts"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
}

type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Exporter   string  `yaml:"exporter"`
	Endpoint   string  `yaml:"endpoint"`
	Insecure   bool    `yaml:"insecure"`
	SampleRate float64 `yaml:"sampleRate"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// RateLimitConfig sets per-client request budgets per minute. Zero disables a bucket.
type RateLimitConfig struct {
	Enabled         bool     `yaml:"enabled"`
	LoginPerMinute  int      `yaml:"loginPerMinute"`
	UploadPerMinute int      `yaml:"uploadPerMinute"`
	APIPerMinute    int      `yaml:"apiPerMinute"`
	Whitelist       []string `yaml:"whitelist"`
}

// PlaybackConfig carries defaults handed to headless playback sessions.
type PlaybackConfig struct {
	GracePeriod time.Duration `yaml:"gracePeriod"`
	KeepMuted   bool          `yaml:"keepMuted"`
}

// Defaults returns the baseline configuration rooted at dataDir.
func Defaults(dataDir string) AppConfig {
	return AppConfig{
		ListenAddr: ":3000",
		DataDir:    dataDir,
		Log: LogConfig{
			Level:   "info",
			Service: "panoview",
		},
		Media: MediaConfig{
			MaxUploadBytes:    4 << 30,
			AllowedExtensions: []string{".mp4", ".webm", ".mov", ".m4v"},
		},
		Admin: AdminConfig{
			SessionTTL: 24 * time.Hour,
		},
		Analytics: AnalyticsConfig{
			Backend: BackendJSON,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		TLS: TLSConfig{
			ListenAddr:   ":8443",
			AutoGenerate: true,
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9090",
		},
		Tracing: TracingConfig{
			Exporter:   ExporterGRPC,
			Endpoint:   "localhost:4317",
			SampleRate: 1.0,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			LoginPerMinute:  10,
			UploadPerMinute: 20,
			APIPerMinute:    300,
		},
		Playback: PlaybackConfig{
			GracePeriod: 3 * time.Second,
		},
	}
}

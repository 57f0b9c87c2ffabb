// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package analytics counts video views per UTC day.
//
// Four interchangeable backends implement Store: a JSON file, SQLite,
// Redis and Badger. Open selects one from configuration.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/panoview/internal/log"
	"github.com/ManuGH/panoview/internal/metrics"
)

// Backend names.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// DayLayout formats the keys of Stats.DailyViews.
const DayLayout = "2006-01-02"

var (
	ErrUnknownBackend = errors.New("unknown analytics backend")
	ErrInvalidVideo   = errors.New("invalid video name")
	ErrClosed         = errors.New("analytics store closed")
)

// Stats are the counters of one video.
type Stats struct {
	Video      string           `json:"video"`
	TotalViews int64            `json:"totalViews"`
	DailyViews map[string]int64 `json:"dailyViews"`
}

// Store persists view counters.
type Store interface {
	// Track counts one view of video on the UTC day of at.
	Track(ctx context.Context, video string, at time.Time) error
	// Stats returns the counters of video. Unknown videos have zero views.
	Stats(ctx context.Context, video string) (Stats, error)
	// Total returns the number of views across all videos.
	Total(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// RedisConfig addresses the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config selects and locates a backend.
type Config struct {
	Backend string
	Path    string
	Redis   RedisConfig
}

// Day returns the UTC calendar day of t.
func Day(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

func checkVideo(video string) error {
	if video == "" {
		return ErrInvalidVideo
	}
	return nil
}

func emptyStats(video string) Stats {
	return Stats{Video: video, DailyViews: map[string]int64{}}
}

// Open constructs the configured backend wrapped with error metrics. The
// Redis backend is additionally guarded by a circuit breaker.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendJSON, "":
		s, err = OpenJSON(cfg.Path)
	case BackendSQLite:
		s, err = OpenSQLite(ctx, cfg.Path)
	case BackendRedis:
		var rs *RedisStore
		rs, err = OpenRedis(ctx, cfg.Redis)
		if err == nil {
			s = newGuarded(rs, BackendRedis, breakerThreshold, breakerReset)
		}
	case BackendBadger:
		s, err = OpenBadger(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s analytics: %w", cfg.Backend, err)
	}
	backend := cfg.Backend
	if backend == "" {
		backend = BackendJSON
	}
	logger := log.WithComponent("analytics")
	logger.Info().
		Str("backend", backend).
		Str("path", cfg.Path).
		Msg("analytics store opened")
	return &instrumented{Store: s, backend: backend}, nil
}

// instrumented counts backend failures.
type instrumented struct {
	Store
	backend string
}

func (i *instrumented) observe(op string, err error) error {
	if err != nil && !errors.Is(err, ErrInvalidVideo) {
		metrics.RecordAnalyticsError(i.backend, op)
	}
	return err
}

func (i *instrumented) Track(ctx context.Context, video string, at time.Time) error {
	return i.observe("track", i.Store.Track(ctx, video, at))
}

func (i *instrumented) Stats(ctx context.Context, video string) (Stats, error) {
	st, err := i.Store.Stats(ctx, video)
	return st, i.observe("stats", err)
}

func (i *instrumented) Total(ctx context.Context) (int64, error) {
	n, err := i.Store.Total(ctx)
	return n, i.observe("total", err)
}

func (i *instrumented) Ping(ctx context.Context) error {
	return i.observe("ping", i.Store.Ping(ctx))
}

// Backend reports the backend name of a store returned by Open.
func Backend(s Store) string {
	if i, ok := s.(*instrumented); ok {
		return i.backend
	}
	return ""
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/panoview/internal/log"
	"github.com/ManuGH/panoview/internal/metrics"
)

const defaultDebounce = 500 * time.Millisecond

// Holder keeps the active configuration and swaps it atomically on reload.
// A reload that fails to load or validate leaves the current config in place.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	epoch   uint64

	loader   *Loader
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	debounce time.Duration

	reloadMu        sync.RWMutex
	reloadListeners []chan<- AppConfig
}

// NewHolder creates a holder seeded with initial.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current:  initial,
		loader:   loader,
		logger:   xglog.WithComponent("config"),
		debounce: defaultDebounce,
	}
}

// Get returns the current configuration.
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Epoch counts successful swaps since construction.
func (h *Holder) Epoch() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.epoch
}

// Reload loads and validates a new configuration and swaps it in.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.reload_failed").
			Msg("configuration reload rejected, keeping current config")
		metrics.RecordConfigReload(metrics.OutcomeFailure)
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.epoch++
	h.mu.Unlock()

	h.logChanges(oldCfg, newCfg)
	h.notifyListeners(newCfg)
	metrics.RecordConfigReload(metrics.OutcomeSuccess)

	h.logger.Info().
		Str(xglog.FieldEvent, xglog.EventConfigReloaded).
		Msg("configuration reloaded successfully")
	return nil
}

// StartWatcher watches the config file for changes until ctx is done.
// The parent directory is watched so that editors replacing the file by
// rename are noticed. Without a config file this is a no-op.
func (h *Holder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().
			Str(xglog.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (environment-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.watcher = watcher

	h.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Str("path", path).
		Msg("watching config file for changes")

	go h.watchLoop(ctx, watcher, filepath.Clean(path))
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().
				Str(xglog.FieldEvent, "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(h.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				_ = h.Reload(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Stop closes the watcher if one is running.
func (h *Holder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}

// RegisterListener registers a channel that receives every successfully
// reloaded config. Sends never block; a full channel misses the update.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

func (h *Holder) notifyListeners(newCfg AppConfig) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().
				Str(xglog.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(old, newCfg AppConfig) {
	if old.Log.Level != newCfg.Log.Level {
		h.logger.Info().Str("old", old.Log.Level).Str("new", newCfg.Log.Level).Msg("config changed: Log.Level")
	}
	if old.PublicURL != newCfg.PublicURL {
		h.logger.Info().Str("old", MaskURL(old.PublicURL)).Str("new", MaskURL(newCfg.PublicURL)).Msg("config changed: PublicURL")
	}
	if !slices.Equal(old.CORS.AllowedOrigins, newCfg.CORS.AllowedOrigins) {
		h.logger.Info().Strs("old", old.CORS.AllowedOrigins).Strs("new", newCfg.CORS.AllowedOrigins).Msg("config changed: CORS.AllowedOrigins")
	}
	if old.Playback.GracePeriod != newCfg.Playback.GracePeriod {
		h.logger.Info().Dur("old", old.Playback.GracePeriod).Dur("new", newCfg.Playback.GracePeriod).Msg("config changed: Playback.GracePeriod")
	}
	if old.Admin.Password != newCfg.Admin.Password {
		h.logger.Info().Msg("config changed: Admin.Password")
	}

	// These are bound at startup.
	restart := map[string]bool{
		"ListenAddr":        old.ListenAddr != newCfg.ListenAddr,
		"Analytics.Backend": old.Analytics.Backend != newCfg.Analytics.Backend,
		"Analytics.Path":    old.Analytics.Path != newCfg.Analytics.Path,
		"TLS":               old.TLS.Enabled != newCfg.TLS.Enabled || old.TLS.ListenAddr != newCfg.TLS.ListenAddr,
		"Metrics":           old.Metrics != newCfg.Metrics,
		"RateLimit":         !rateLimitEqual(old.RateLimit, newCfg.RateLimit),
	}
	for _, key := range []string{"ListenAddr", "Analytics.Backend", "Analytics.Path", "TLS", "Metrics", "RateLimit"} {
		if restart[key] {
			h.logger.Warn().Str("field", key).Msg("config change takes effect after restart")
		}
	}
}

func rateLimitEqual(a, b RateLimitConfig) bool {
	return a.Enabled == b.Enabled &&
		a.LoginPerMinute == b.LoginPerMinute &&
		a.UploadPerMinute == b.UploadPerMinute &&
		a.APIPerMinute == b.APIPerMinute &&
		slices.Equal(a.Whitelist, b.Whitelist)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHolderForTest(t *testing.T, doc map[string]any) (*Holder, string) {
	t.Helper()
	dir := isolate(t)
	path := writeConfig(t, dir, doc)
	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(cfg, loader)
	h.debounce = 20 * time.Millisecond
	return h, path
}

func TestHolder_ReloadSwapsAndNotifies(t *testing.T) {
	h, path := newHolderForTest(t, map[string]any{"publicUrl": "http://old.example"})
	require.Equal(t, "http://old.example", h.Get().PublicURL)

	updates := make(chan AppConfig, 1)
	h.RegisterListener(updates)

	writeConfig(t, filepath.Dir(path), map[string]any{"publicUrl": "http://new.example"})
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, "http://new.example", h.Get().PublicURL)
	assert.Equal(t, uint64(1), h.Epoch())
	select {
	case got := <-updates:
		assert.Equal(t, "http://new.example", got.PublicURL)
	default:
		t.Fatal("listener was not notified")
	}
}

func TestHolder_InvalidReloadKeepsCurrent(t *testing.T) {
	h, path := newHolderForTest(t, map[string]any{"listenAddr": ":3001"})

	writeConfig(t, filepath.Dir(path), map[string]any{"listenAddr": ":3001", "bogus": true})
	err := h.Reload(context.Background())
	require.ErrorIs(t, err, ErrUnknownConfigField)

	assert.Equal(t, ":3001", h.Get().ListenAddr)
	assert.Zero(t, h.Epoch())
}

func TestHolder_FullListenerDoesNotBlock(t *testing.T) {
	h, _ := newHolderForTest(t, map[string]any{})
	full := make(chan AppConfig)
	h.RegisterListener(full)

	done := make(chan struct{})
	go func() {
		_ = h.Reload(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload blocked on listener")
	}
}

func TestHolder_WatcherReloadsOnWrite(t *testing.T) {
	h, path := newHolderForTest(t, map[string]any{"playback": map[string]any{"gracePeriod": "3s"}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartWatcher(ctx))
	defer h.Stop()

	// replace via rename, the way editors save
	tmp := filepath.Join(filepath.Dir(path), "config.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("playback:\n  gracePeriod: 5s\n"), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool {
		return h.Get().Playback.GracePeriod == 5*time.Second
	}, 3*time.Second, 20*time.Millisecond)
}

func TestHolder_WatcherDisabledWithoutFile(t *testing.T) {
	isolate(t)
	loader := NewLoader("", "test")
	cfg, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(cfg, loader)
	require.NoError(t, h.StartWatcher(context.Background()))
	assert.Nil(t, h.watcher)
}

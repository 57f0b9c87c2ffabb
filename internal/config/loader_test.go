// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/panoview/internal/validate"
	"github.com/oasdiff/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig marshals doc as YAML into dir/config.yaml.
func writeConfig(t *testing.T, dir string, doc map[string]any) string {
	t.Helper()
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvPrefix+"DATA_DIR", dir)
	for _, k := range []string{"ADMIN_PASSWORD", "SESSION_SECRET", "LISTEN_ADDR", "ANALYTICS_BACKEND", "GRACE_PERIOD"} {
		t.Setenv(EnvPrefix+k, "")
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	l := NewLoader("", "v1.2.3")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.ListenAddr)
	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "assets"), cfg.Media.AssetsDir)
	assert.Equal(t, filepath.Join(dir, "assets", "videos"), cfg.Media.VideoDir)
	assert.Equal(t, filepath.Join(dir, "analytics.json"), cfg.Analytics.Path)
	assert.Equal(t, 3*time.Second, cfg.Playback.GracePeriod)
	assert.DirExists(t, cfg.Media.VideoDir)

	assert.True(t, cfg.Admin.PasswordGenerated)
	assert.Len(t, cfg.Admin.Password, 24)
	assert.Len(t, cfg.Admin.SessionSecret, 64)
	assert.FileExists(t, filepath.Join(dir, sessionSecretFile))

	again, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.Admin.Password, again.Admin.Password, "generated password is stable per loader")
	assert.Equal(t, cfg.Admin.SessionSecret, again.Admin.SessionSecret, "session secret is persisted")
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, map[string]any{
		"listenAddr": ":4000",
		"admin": map[string]any{
			"password":   "from-file",
			"sessionTTL": "2h",
		},
		"analytics": map[string]any{"backend": "sqlite"},
		"media": map[string]any{
			"allowedExtensions": []string{".MP4", " .webm"},
		},
	})
	t.Setenv(EnvPrefix+"LISTEN_ADDR", ":5000")

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.ListenAddr, "environment wins over file")
	assert.Equal(t, "from-file", cfg.Admin.Password)
	assert.False(t, cfg.Admin.PasswordGenerated)
	assert.Equal(t, 2*time.Hour, cfg.Admin.SessionTTL)
	assert.Equal(t, filepath.Join(dir, "analytics.db"), cfg.Analytics.Path)
	assert.Equal(t, []string{".mp4", ".webm"}, cfg.Media.AllowedExtensions)
	// untouched defaults survive a partial file
	assert.Equal(t, 10, cfg.RateLimit.LoginPerMinute)
}

func TestLoad_ExpandsEnvInFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv("PANO_TEST_TOKEN", "tok-123")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("admin:\n  apiToken: ${PANO_TEST_TOKEN}\n"), 0o600))

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", cfg.Admin.APIToken)
}

func TestLoad_StrictFile(t *testing.T) {
	dir := isolate(t)

	t.Run("unknown field", func(t *testing.T) {
		path := writeConfig(t, dir, map[string]any{"listenAdress": ":3000"})
		_, err := NewLoader(path, "test").Load()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownConfigField), "got %v", err)
	})

	t.Run("multiple documents", func(t *testing.T) {
		path := filepath.Join(dir, "multi.yaml")
		require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":3000\"\n---\nlistenAddr: \":4000\"\n"), 0o600))
		_, err := NewLoader(path, "test").Load()
		assert.ErrorIs(t, err, ErrMultipleDocuments)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		_, err := NewLoader(path, "test").Load()
		assert.NoError(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader(filepath.Join(dir, "absent.yaml"), "test").Load()
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestLoad_ReportsEveryInvalidField(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPrefix+"ANALYTICS_BACKEND", "mongo")
	t.Setenv(EnvPrefix+"GRACE_PERIOD", "10ms")
	t.Setenv(EnvPrefix+"LISTEN_ADDR", "nope")

	_, err := NewLoader("", "test").Load()
	require.Error(t, err)

	var verr validate.ValidationError
	require.True(t, errors.As(err, &verr))
	fields := verr.Fields()
	assert.Contains(t, fields, "ListenAddr")
	assert.Contains(t, fields, "Analytics.Backend")
	assert.Contains(t, fields, "Playback.GracePeriod")
}

func TestValidate_ListenerConflicts(t *testing.T) {
	dir := t.TempDir()
	cfg := Defaults(dir)
	cfg.Admin.Password = "pw"
	cfg.Admin.SessionSecret = "0123456789abcdef0123456789abcdef"
	cfg.derivePaths()
	require.NoError(t, Validate(cfg))

	cfg.Metrics.Enabled = true
	cfg.Metrics.ListenAddr = cfg.ListenAddr
	cfg.TLS.Enabled = true
	cfg.TLS.AutoGenerate = false
	cfg.Tracing.Enabled = true
	cfg.Tracing.SampleRate = 1.5

	var verr validate.ValidationError
	require.True(t, errors.As(Validate(cfg), &verr))
	assert.ElementsMatch(t,
		[]string{"Metrics.ListenAddr", "TLS.CertFile", "TLS.KeyFile", "Tracing.SampleRate"},
		verr.Fields())
}

func TestWriteFile_RoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Defaults(dir)
	cfg.ListenAddr = ":3100"
	cfg.Admin.Password = "pw"
	path := filepath.Join(dir, "written.yaml")
	require.NoError(t, WriteFile(path, cfg))

	loaded, err := NewLoader(path, "test").Load()
	require.NoError(t, err)
	assert.Equal(t, ":3100", loaded.ListenAddr)
	assert.Equal(t, "pw", loaded.Admin.Password)
}

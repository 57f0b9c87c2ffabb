// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	const key = "PANOVIEW_TEST_BOOL"
	cases := map[string]bool{"true": true, "YES": true, "1": true, "on": true, "false": false, "No": false, "0": false}
	for raw, want := range cases {
		t.Setenv(key, raw)
		assert.Equal(t, want, ParseBool(key, !want), raw)
	}

	t.Setenv(key, "maybe")
	assert.True(t, ParseBool(key, true), "invalid value falls back to default")
	t.Setenv(key, "")
	assert.False(t, ParseBool(key, false))
}

func TestParseNumbers(t *testing.T) {
	t.Setenv("PANOVIEW_TEST_INT", "42")
	assert.Equal(t, 42, ParseInt("PANOVIEW_TEST_INT", 1))
	t.Setenv("PANOVIEW_TEST_INT", "forty")
	assert.Equal(t, 1, ParseInt("PANOVIEW_TEST_INT", 1))

	t.Setenv("PANOVIEW_TEST_F", "0.25")
	assert.InDelta(t, 0.25, ParseFloat("PANOVIEW_TEST_F", 1), 1e-9)

	t.Setenv("PANOVIEW_TEST_D", "750ms")
	assert.Equal(t, 750*time.Millisecond, ParseDuration("PANOVIEW_TEST_D", time.Second))
	t.Setenv("PANOVIEW_TEST_D", "soon")
	assert.Equal(t, time.Second, ParseDuration("PANOVIEW_TEST_D", time.Second))
}

func TestParseInt64_Sizes(t *testing.T) {
	const key = "PANOVIEW_TEST_SIZE"
	cases := map[string]int64{
		"512": 512,
		"4K":  4 << 10,
		"10m": 10 << 20,
		"2G":  2 << 30,
	}
	for raw, want := range cases {
		t.Setenv(key, raw)
		assert.Equal(t, want, ParseInt64(key, 0), raw)
	}
	t.Setenv(key, "G")
	assert.Equal(t, int64(7), ParseInt64(key, 7))
}

func TestParseStringList(t *testing.T) {
	const key = "PANOVIEW_TEST_LIST"
	t.Setenv(key, " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, ParseStringList(key, nil))

	t.Setenv(key, "")
	assert.Equal(t, []string{"*"}, ParseStringList(key, []string{"*"}))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PANOVIEW_TEST_DOT=from-file\nPANOVIEW_TEST_KEEP=from-file\n"), 0o600))

	// register cleanup, then make sure the first key is unset
	t.Setenv("PANOVIEW_TEST_DOT", "x")
	require.NoError(t, os.Unsetenv("PANOVIEW_TEST_DOT"))
	t.Setenv("PANOVIEW_TEST_KEEP", "from-env")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))

	assert.Equal(t, "from-file", os.Getenv("PANOVIEW_TEST_DOT"))
	assert.Equal(t, "from-env", os.Getenv("PANOVIEW_TEST_KEEP"), "existing variables are not overridden")
}

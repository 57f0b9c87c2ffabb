// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecrets_AppConfig(t *testing.T) {
	cfg := Defaults("/data")
	cfg.Admin.Password = "hunter2"
	cfg.Admin.SessionSecret = "s3cr3t"
	cfg.Admin.PasswordGenerated = true
	cfg.Analytics.Redis.Password = "redispw"

	out, ok := MaskSecrets(cfg).(map[string]any)
	if !assert.True(t, ok) {
		return
	}
	admin := out["Admin"].(map[string]any)
	assert.Equal(t, "***", admin["Password"])
	assert.Equal(t, "***", admin["SessionSecret"])
	assert.Equal(t, "", admin["APIToken"], "unset secrets stay visibly empty")
	assert.Equal(t, true, admin["PasswordGenerated"])

	redis := out["Analytics"].(map[string]any)["Redis"].(map[string]any)
	assert.Equal(t, "***", redis["Password"])
	assert.Equal(t, "localhost:6379", redis["Addr"])

	assert.Equal(t, ":3000", out["ListenAddr"])
}

func TestMaskSecrets_Maps(t *testing.T) {
	in := map[string]any{
		"api_key": "abc",
		"nested":  map[string]any{"token": "t", "name": "n"},
		"list":    []any{map[string]any{"secret": "x"}},
	}
	out := MaskSecrets(in).(map[string]any)
	assert.Equal(t, "***", out["api_key"])
	assert.Equal(t, map[string]any{"token": "***", "name": "n"}, out["nested"])
	assert.Equal(t, []any{map[string]any{"secret": "***"}}, out["list"])
	assert.Nil(t, MaskSecrets(nil))
}

func TestMaskURL(t *testing.T) {
	assert.Equal(t, "redis://***@cache:6379/0", MaskURL("redis://user:pw@cache:6379/0"))
	assert.Equal(t, "https://pano.example", MaskURL("https://pano.example"))
	assert.Equal(t, "", MaskURL(""))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const appName = "panoview"

// DefaultDataDir resolves the data directory: PANOVIEW_DATA_DIR when set,
// otherwise $XDG_DATA_HOME/panoview.
func DefaultDataDir() string {
	if v := strings.TrimSpace(ParseString(EnvPrefix+"DATA_DIR", "")); v != "" {
		return v
	}
	return filepath.Join(xdg.DataHome, appName)
}

// DefaultConfigFile returns the first existing panoview config.yaml in the XDG
// config search path, or "" when none exists.
func DefaultConfigFile() string {
	p, err := xdg.SearchConfigFile(filepath.Join(appName, "config.yaml"))
	if err != nil {
		return ""
	}
	return p
}

// derivePaths fills path fields left empty from DataDir.
func (c *AppConfig) derivePaths() {
	if c.Media.AssetsDir == "" {
		c.Media.AssetsDir = filepath.Join(c.DataDir, "assets")
	}
	if c.Media.VideoDir == "" {
		c.Media.VideoDir = filepath.Join(c.Media.AssetsDir, "videos")
	}
	if c.Analytics.Path == "" {
		switch c.Analytics.Backend {
		case BackendJSON:
			c.Analytics.Path = filepath.Join(c.DataDir, "analytics.json")
		case BackendSQLite:
			c.Analytics.Path = filepath.Join(c.DataDir, "analytics.db")
		case BackendBadger:
			c.Analytics.Path = filepath.Join(c.DataDir, "analytics.badger")
		}
	}
	if c.TLS.CertFile == "" {
		c.TLS.CertFile = filepath.Join(c.DataDir, "tls", "cert.pem")
	}
	if c.TLS.KeyFile == "" {
		c.TLS.KeyFile = filepath.Join(c.DataDir, "tls", "key.pem")
	}
	for i, ext := range c.Media.AllowedExtensions {
		c.Media.AllowedExtensions[i] = strings.ToLower(strings.TrimSpace(ext))
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ManuGH/panoview/internal/log"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Loader builds an AppConfig from defaults, an optional YAML file and the environment.
type Loader struct {
	configPath string
	version    string

	// generated admin password, reused across reloads
	mu            sync.Mutex
	generatedPass string
}

// NewLoader creates a loader. An empty configPath means environment-only configuration.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Path returns the config file path, or "" when none is used.
func (l *Loader) Path() string {
	return l.configPath
}

// Load assembles and validates the configuration.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults(DefaultDataDir())

	if l.configPath != "" {
		if err := l.loadFile(&cfg); err != nil {
			return AppConfig{}, err
		}
	}

	applyEnv(&cfg)
	cfg.derivePaths()
	cfg.Version = l.version

	publicURL, err := NormalizePublicURL(cfg.PublicURL)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid configuration: PublicURL: %w", err)
	}
	cfg.PublicURL = publicURL

	if err := l.ensureAdminSecrets(&cfg); err != nil {
		return AppConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFile decodes the YAML file strictly over cfg.
func (l *Loader) loadFile(cfg *AppConfig) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", l.configPath, err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %s: %v", ErrUnknownConfigField, l.configPath, err)
		}
		return fmt.Errorf("parse config file %s: %w", l.configPath, err)
	}

	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: %w", l.configPath, ErrMultipleDocuments)
	}
	return nil
}

func (l *Loader) ensureAdminSecrets(cfg *AppConfig) error {
	if cfg.Admin.Password == "" {
		l.mu.Lock()
		if l.generatedPass == "" {
			pw, err := randomToken(12)
			if err != nil {
				l.mu.Unlock()
				return fmt.Errorf("generate admin password: %w", err)
			}
			l.generatedPass = pw
			logger := log.WithComponent("config")
			logger.Warn().
				Str("password", pw).
				Msg("no admin password configured, generated one for this run (set PANOVIEW_ADMIN_PASSWORD)")
		}
		cfg.Admin.Password = l.generatedPass
		cfg.Admin.PasswordGenerated = true
		l.mu.Unlock()
	}

	if cfg.Admin.SessionSecret == "" {
		secret, err := loadOrCreateSessionSecret(cfg.DataDir)
		if err != nil {
			return err
		}
		cfg.Admin.SessionSecret = secret
	}
	return nil
}

// WriteFile persists cfg as YAML at path, atomically.
func WriteFile(path string, cfg AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

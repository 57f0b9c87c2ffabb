// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

const sessionSecretFile = "session.key"

// randomToken returns n random bytes hex encoded.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// loadOrCreateSessionSecret keeps the session signing key stable across
// restarts so that admin cookies survive a daemon restart.
func loadOrCreateSessionSecret(dataDir string) (string, error) {
	path := filepath.Join(dataDir, sessionSecretFile)

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if s := strings.TrimSpace(string(raw)); len(s) >= 32 {
			return s, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read session secret: %w", err)
	}

	secret, err := randomToken(32)
	if err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	if err := renameio.WriteFile(path, []byte(secret+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write session secret: %w", err)
	}
	return secret, nil
}

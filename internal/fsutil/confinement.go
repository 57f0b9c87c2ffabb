// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsutil confines user-supplied names to a root directory.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsafePath is returned for names that could leave the root directory.
	ErrUnsafePath = errors.New("unsafe path")
	// ErrNotRegular is returned when a path is not a regular file.
	ErrNotRegular = errors.New("not a regular file")
)

// ConfineRelPath joins root and relTarget and ensures the result, after
// resolving symlinks, is still underneath root. relTarget must be relative.
func ConfineRelPath(root, relTarget string) (string, error) {
	if strings.Contains(relTarget, "\\") {
		return "", fmt.Errorf("%w: backslash in %q", ErrUnsafePath, relTarget)
	}
	if IsTraversal(relTarget) {
		return "", fmt.Errorf("%w: traversal in %q", ErrUnsafePath, relTarget)
	}

	cleanRel := filepath.Clean(relTarget)
	if filepath.IsAbs(cleanRel) {
		return "", fmt.Errorf("%w: %q is absolute", ErrUnsafePath, relTarget)
	}

	realRoot, err := resolveRoot(root)
	if err != nil {
		return "", err
	}
	return resolveWithin(realRoot, filepath.Join(realRoot, cleanRel))
}

// ConfineName confines a single path element (no separators) to root.
func ConfineName(root, name string) (string, error) {
	if name == "" || name == "." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: invalid name %q", ErrUnsafePath, name)
	}
	return ConfineRelPath(root, name)
}

func resolveRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root path: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", err
		}
		realRoot = absRoot
	}
	return realRoot, nil
}

// resolveWithin resolves fullPath (or its parent when it does not exist yet)
// and checks that it stays inside realRoot.
func resolveWithin(realRoot, fullPath string) (string, error) {
	var realPath string
	if _, err := os.Lstat(fullPath); err == nil {
		rp, err := filepath.EvalSymlinks(fullPath)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", fullPath, err)
		}
		realPath = rp
	} else {
		dir := filepath.Dir(fullPath)
		rp, err := filepath.EvalSymlinks(dir)
		switch {
		case err == nil:
			realPath = filepath.Join(rp, filepath.Base(fullPath))
		case os.IsNotExist(err):
			realPath = fullPath
		default:
			return "", fmt.Errorf("resolve parent %s: %w", dir, err)
		}
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil {
		return "", fmt.Errorf("rel computation failed: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes root", ErrUnsafePath, realPath)
	}
	return realPath, nil
}

// IsRegularFile checks if path exists and is a regular file.
func IsRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	return nil
}

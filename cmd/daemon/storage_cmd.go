// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/panoview/internal/config"
	"github.com/ManuGH/panoview/internal/persistence/sqlite"
	"github.com/ManuGH/panoview/internal/version"
)

func runStorageCLI(args []string) int {
	return storageCLI(context.Background(), args, os.Stdout, os.Stderr)
}

func storageCLI(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printStorageUsage(stdout)
		return 0
	}

	switch args[0] {
	case "verify":
		return runStorageVerify(ctx, args[1:], stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printStorageUsage(stderr)
		return 2
	}
}

func printStorageUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  panoview storage verify [--path PATH] [--mode quick|full]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Flags:")
	_, _ = fmt.Fprintln(w, "  --path string  SQLite analytics database (default: the configured analytics path)")
	_, _ = fmt.Fprintln(w, "  --mode string  Verification mode: quick (default) or full")
}

func runStorageVerify(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("panoview storage verify", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var path, mode, configPath string
	fs.StringVar(&path, "path", "", "Path to the SQLite database file")
	fs.StringVar(&mode, "mode", sqlite.ModeQuick, "Verification mode: quick or full")
	fs.StringVar(&configPath, "config", "", "config file used to locate the analytics database")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != sqlite.ModeQuick && mode != sqlite.ModeFull {
		_, _ = fmt.Fprintf(stderr, "Error: invalid mode %q. Use 'quick' or 'full'.\n", mode)
		return 2
	}

	if path == "" {
		cfg, err := config.NewLoader(resolveConfigPath(configPath), version.Version).Load()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: --path not given and config failed to load: %v\n", err)
			return 2
		}
		if cfg.Analytics.Backend != config.BackendSQLite {
			_, _ = fmt.Fprintf(stderr, "Error: analytics backend is %q, nothing to verify (use --path)\n", cfg.Analytics.Backend)
			return 2
		}
		path = cfg.Analytics.Path
	}
	if _, err := os.Stat(path); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	return doVerify(ctx, path, mode, stdout, stderr)
}

func doVerify(ctx context.Context, path, mode string, stdout, stderr io.Writer) int {
	_, _ = fmt.Fprintf(stderr, "Verifying integrity of %s (mode: %s)...\n", path, mode)

	issues, err := sqlite.VerifyIntegrity(ctx, path, mode)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Verification interrupted by system error: %v\n", err)
		return 1
	}

	if issues != nil {
		_, _ = fmt.Fprintln(stderr, "CORRUPTION DETECTED!")
		for _, issue := range issues {
			_, _ = fmt.Fprintf(stderr, "  - %s\n", issue)
		}
		return 1
	}

	_, _ = fmt.Fprintln(stdout, "Integrity verified: ok")
	return 0
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"

	"github.com/ManuGH/panoview/internal/config"
	"github.com/ManuGH/panoview/internal/log"
)

// PerformStartupChecks fails fast when the data or video directory cannot be written.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	for _, c := range []Checker{
		NewDirChecker("data_dir", cfg.DataDir),
		NewDirChecker("video_dir", cfg.Media.VideoDir),
	} {
		if res := c.Check(ctx); res.Status != StatusHealthy {
			return fmt.Errorf("%s check failed: %s %s", c.Name(), res.Error, res.Message)
		}
	}
	if cfg.Admin.PasswordGenerated {
		logger.Warn().Msg("admin password is generated per run; configure one to keep it stable")
	}
	logger.Info().Msg("all startup checks passed")
	return nil
}

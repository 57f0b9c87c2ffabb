// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/ManuGH/panoview/internal/config"
	"github.com/ManuGH/panoview/internal/log"
)

type logsResponse struct {
	Entries []log.LogEntry    `json:"entries"`
	Buffer  log.BufferMetrics `json:"buffer"`
}

// handleLogs returns the recent request, video, admin and config events.
func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	entries := log.GetRecentLogs()
	if entries == nil {
		entries = []log.LogEntry{}
	}
	writeJSON(w, http.StatusOK, logsResponse{Entries: entries, Buffer: log.GetBufferMetrics()})
}

// handleConfig returns the active configuration with secrets masked.
func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, config.MaskSecrets(s.cfg.Get()))
}

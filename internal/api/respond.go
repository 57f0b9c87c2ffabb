// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/panoview/internal/library"
	"github.com/ManuGH/panoview/internal/log"
)

// errorResponse is the body of every JSON error.
type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.L().Warn().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "Authentication required")
}

// writeLibraryError maps library sentinels to statuses.
func writeLibraryError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		writeError(w, http.StatusNotFound, "Video not found")
	case errors.Is(err, library.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "Invalid video name")
	case errors.Is(err, library.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, "Unsupported video type")
	case errors.Is(err, library.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "Video exceeds upload limit")
	case errors.Is(err, library.ErrEmpty):
		writeError(w, http.StatusBadRequest, "No file uploaded.")
	default:
		log.FromContext(r.Context()).Error().Err(err).Msg(fallback)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

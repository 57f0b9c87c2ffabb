// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/panoview/internal/audit"
	"github.com/ManuGH/panoview/internal/library"
	"github.com/ManuGH/panoview/internal/log"
	"github.com/ManuGH/panoview/internal/metrics"
	"github.com/ManuGH/panoview/internal/qr"
	"github.com/ManuGH/panoview/internal/telemetry"
)

// uploadField is the multipart field carrying the video.
const uploadField = "video"

// qrTTL bounds how long a generated QR code is reused.
const qrTTL = 10 * time.Minute

// multipartOverhead covers boundaries and part headers on top of the file.
const multipartOverhead = 1 << 20

type uploadResponse struct {
	VideoURL string `json:"videoUrl"`
	QRCode   string `json:"qrCode"`
}

type qrResponse struct {
	QRCode string `json:"qrCode"`
}

// handleUpload streams the "video" part straight into the library.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Get().Media.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		metrics.RecordUpload(metrics.OutcomeFailure, 0)
		writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.RecordUpload(metrics.OutcomeFailure, 0)
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "Video exceeds upload limit")
				return
			}
			writeError(w, http.StatusBadRequest, "Malformed upload")
			return
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		video, err := s.lib.Save(r.Context(), part.FileName(), part, limit)
		_ = part.Close()
		if err != nil {
			outcome := metrics.OutcomeFailure
			if errors.Is(err, library.ErrUnsupportedType) || errors.Is(err, library.ErrTooLarge) {
				outcome = metrics.OutcomeDenied
			}
			metrics.RecordUpload(outcome, 0)
			result := audit.ResultFailure
			if outcome == metrics.OutcomeDenied {
				result = audit.ResultDenied
			}
			s.audit.VideoUploaded(r, part.FileName(), 0, result)
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "Video exceeds upload limit")
				return
			}
			writeLibraryError(w, r, err, "Unable to store video")
			return
		}

		metrics.RecordUpload(metrics.OutcomeSuccess, video.Size)
		s.audit.VideoUploaded(r, video.Filename, video.Size, audit.ResultSuccess)
		s.qrCache.Clear()
		trace.SpanFromContext(r.Context()).SetAttributes(telemetry.VideoAttributes(video.Filename, video.Size)...)

		link := s.viewerURL(r, video.Filename)
		code, err := s.qrCode(link)
		if err != nil {
			log.FromContext(r.Context()).Error().Err(err).Msg("qr for upload")
			writeError(w, http.StatusInternalServerError, "Error generating QR code")
			return
		}
		writeJSON(w, http.StatusOK, uploadResponse{VideoURL: link, QRCode: code})
		return
	}

	metrics.RecordUpload(metrics.OutcomeFailure, 0)
	writeError(w, http.StatusBadRequest, "No file uploaded.")
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.lib.List(r.Context())
	if err != nil {
		log.FromContext(r.Context()).Error().Err(err).Msg("list videos")
		writeError(w, http.StatusInternalServerError, "Unable to read videos directory")
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	name, err := videoParam(r)
	if err != nil {
		metrics.RecordDelete(metrics.OutcomeDenied)
		writeError(w, http.StatusBadRequest, "Invalid video name")
		return
	}
	if err := s.lib.Delete(r.Context(), name); err != nil {
		metrics.RecordDelete(metrics.OutcomeFailure)
		s.audit.VideoDeleted(r, name, audit.ResultFailure)
		writeLibraryError(w, r, err, "Unable to delete video")
		return
	}
	metrics.RecordDelete(metrics.OutcomeSuccess)
	s.audit.VideoDeleted(r, name, audit.ResultSuccess)
	s.qrCache.Clear()
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	name, err := videoParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid video name")
		return
	}
	if _, err := s.lib.Stat(r.Context(), name); err != nil {
		writeLibraryError(w, r, err, "Unable to read video")
		return
	}
	code, err := s.qrCode(s.viewerURL(r, name))
	if err != nil {
		log.FromContext(r.Context()).Error().Err(err).Msg("qr for video")
		writeError(w, http.StatusInternalServerError, "Error generating QR code")
		return
	}
	writeJSON(w, http.StatusOK, qrResponse{QRCode: code})
}

// qrCode returns the QR data URL of link, reusing a cached rendering.
func (s *Server) qrCode(link string) (string, error) {
	if v, ok := s.qrCache.Get(link); ok {
		if code, ok := v.(string); ok {
			return code, nil
		}
	}
	code, err := qr.DataURL(link, qr.DefaultSize)
	if err != nil {
		return "", err
	}
	s.qrCache.Set(link, code, qrTTL)
	return code, nil
}

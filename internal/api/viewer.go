// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/panoview/internal/fsutil"
	"github.com/ManuGH/panoview/internal/library"
	"github.com/ManuGH/panoview/internal/log"
	"github.com/ManuGH/panoview/internal/metrics"
	"github.com/ManuGH/panoview/internal/telemetry"
)

var errBadVideoParam = errors.New("invalid video parameter")

// videoParam binds the {filename} path parameter the way generated
// OpenAPI servers do, then rejects anything that is not a bare file name.
func videoParam(r *http.Request) (string, error) {
	var name string
	err := runtime.BindStyledParameterWithOptions("simple", "filename", chi.URLParam(r, "filename"), &name,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return "", errBadVideoParam
	}
	name = fsutil.NormalizeName(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || fsutil.IsTraversal(name) {
		return "", errBadVideoParam
	}
	return name, nil
}

// viewerURL is the shareable link for a video: the configured public URL,
// or the scheme and host the request arrived on.
func (s *Server) viewerURL(r *http.Request, video string) string {
	base := strings.TrimSuffix(s.cfg.Get().PublicURL, "/")
	if base == "" {
		scheme := "http"
		if secureRequest(r) {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/viewer.html?video=" + url.QueryEscape(video)
}

type landingPage struct {
	Videos []library.Video
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	videos, err := s.lib.List(r.Context())
	if err != nil {
		log.FromContext(r.Context()).Error().Err(err).Msg("list videos for landing page")
		videos = nil
	}
	s.render(w, r, "landing.html", landingPage{Videos: videos})
}

type viewerPage struct {
	Video       library.Video
	GracePeriod int64
	KeepMuted   bool
}

// handleViewer renders the 360° viewer for ?video= and counts a view.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("video")
	if name == "" {
		http.Error(w, "Video parameter is required", http.StatusBadRequest)
		return
	}
	video, err := s.lib.Stat(r.Context(), name)
	if err != nil {
		http.Error(w, "Video not found", http.StatusNotFound)
		return
	}

	s.countView(r, video.Filename)

	cfg := s.cfg.Get()
	s.render(w, r, "viewer.html", viewerPage{
		Video:       video,
		GracePeriod: cfg.Playback.GracePeriod.Milliseconds(),
		KeepMuted:   cfg.Playback.KeepMuted,
	})
}

// countView records a view. Analytics failures never block playback.
func (s *Server) countView(r *http.Request, video string) {
	ctx := r.Context()
	trace.SpanFromContext(ctx).SetAttributes(telemetry.VideoAttributes(video, -1)...)

	if err := s.store.Track(ctx, video, s.now()); err != nil {
		log.FromContext(ctx).Warn().Err(err).Str(log.FieldVideo, video).Msg("failed to track view")
		return
	}
	metrics.RecordView()
	log.FromContext(ctx).Info().
		Str(log.FieldEvent, log.EventVideoViewed).
		Str(log.FieldVideo, video).
		Msg("video viewed")
}

type trackResponse struct {
	Success    bool  `json:"success"`
	TotalViews int64 `json:"totalViews"`
}

func (s *Server) handleTrackView(w http.ResponseWriter, r *http.Request) {
	name, err := videoParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid video name")
		return
	}
	if _, err := s.lib.Stat(r.Context(), name); err != nil {
		writeLibraryError(w, r, err, "Unable to track view")
		return
	}
	if err := s.store.Track(r.Context(), name, s.now()); err != nil {
		log.FromContext(r.Context()).Error().Err(err).Str(log.FieldVideo, name).Msg("track view")
		writeError(w, http.StatusInternalServerError, "Unable to track view")
		return
	}
	metrics.RecordView()

	st, err := s.store.Stats(r.Context(), name)
	if err != nil {
		log.FromContext(r.Context()).Error().Err(err).Str(log.FieldVideo, name).Msg("read stats after track")
		writeError(w, http.StatusInternalServerError, "Unable to read analytics")
		return
	}
	writeJSON(w, http.StatusOK, trackResponse{Success: true, TotalViews: st.TotalViews})
}

type totalResponse struct {
	TotalViews int64 `json:"totalViews"`
}

func (s *Server) handleTotalViews(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.Total(r.Context())
	if err != nil {
		log.FromContext(r.Context()).Error().Err(err).Msg("read total views")
		writeError(w, http.StatusInternalServerError, "Unable to read analytics")
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{TotalViews: total})
}

func (s *Server) handleVideoStats(w http.ResponseWriter, r *http.Request) {
	name, err := videoParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid video name")
		return
	}
	st, err := s.store.Stats(r.Context(), name)
	if err != nil {
		log.FromContext(r.Context()).Error().Err(err).Str(log.FieldVideo, name).Msg("read video stats")
		writeError(w, http.StatusInternalServerError, "Unable to read analytics")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

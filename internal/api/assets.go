// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/ManuGH/panoview/internal/fsutil"
	"github.com/ManuGH/panoview/internal/log"
	"github.com/ManuGH/panoview/internal/metrics"
)

// Cache lifetimes of the two public trees.
const (
	staticCacheControl = "public, max-age=86400"
	assetCacheControl  = "public, max-age=3600"
)

// File request results for metrics and logs.
const (
	fileAllowed      = "allowed"
	fileNotModified  = "not_modified"
	fileNotFound     = "not_found"
	fileDeniedEscape = "path_escape"
	fileDeniedDir    = "directory_listing"
	fileDeniedMethod = "method_not_allowed"
	fileError        = "internal_error"
)

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

func denyFile(w http.ResponseWriter, r *http.Request, result string, code int) {
	metrics.RecordFileRequest(result)
	log.FromContext(r.Context()).Warn().
		Str(log.FieldEvent, "file_req.denied").
		Str(log.FieldPath, r.URL.Path).
		Str(log.FieldReason, result).
		Msg("file request denied")
	http.Error(w, http.StatusText(code), code)
}

// assetHandler serves files under the assets directory with traversal and
// symlink-escape checks, weak ETags and range support.
func (s *Server) assetHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			denyFile(w, r, fileDeniedMethod, http.StatusMethodNotAllowed)
			return
		}

		rel := strings.TrimPrefix(r.URL.Path, "/assets/")
		if fsutil.IsTraversal(rel) || fsutil.IsTraversal(r.URL.RawPath) {
			denyFile(w, r, fileDeniedEscape, http.StatusForbidden)
			return
		}
		if rel == "" || strings.HasSuffix(rel, "/") {
			denyFile(w, r, fileDeniedDir, http.StatusForbidden)
			return
		}

		root := s.cfg.Get().Media.AssetsDir
		full, err := fsutil.ConfineRelPath(root, rel)
		switch {
		case errors.Is(err, fsutil.ErrUnsafePath):
			denyFile(w, r, fileDeniedEscape, http.StatusForbidden)
			return
		case errors.Is(err, os.ErrNotExist):
			metrics.RecordFileRequest(fileNotFound)
			http.NotFound(w, r)
			return
		case err != nil:
			log.FromContext(r.Context()).Error().Err(err).Str(log.FieldPath, r.URL.Path).Msg("resolve asset")
			metrics.RecordFileRequest(fileError)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// #nosec G304 -- full is confined to the assets directory
		f, err := os.Open(full)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				metrics.RecordFileRequest(fileNotFound)
				http.NotFound(w, r)
				return
			}
			metrics.RecordFileRequest(fileError)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			metrics.RecordFileRequest(fileError)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if info.IsDir() {
			denyFile(w, r, fileDeniedDir, http.StatusForbidden)
			return
		}

		etag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
		h := w.Header()
		h.Set("ETag", etag)
		h.Set("Cache-Control", assetCacheControl)
		if ct, ok := videoContentTypes[strings.ToLower(path.Ext(info.Name()))]; ok {
			h.Set("Content-Type", ct)
		}

		if r.Header.Get("If-None-Match") == etag {
			metrics.RecordFileRequest(fileNotModified)
			w.WriteHeader(http.StatusNotModified)
			return
		}

		metrics.RecordFileRequest(fileAllowed)
		// ServeContent handles Range, If-Range and sets Accept-Ranges.
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// staticHandler serves the viewer scripts and styles without directory listings.
func (s *Server) staticHandler() http.Handler {
	fsys := s.staticFS()
	files := http.StripPrefix("/static/", http.FileServer(http.FS(fsys)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rel := strings.TrimPrefix(r.URL.Path, "/static/")
		if fsutil.IsTraversal(rel) {
			denyFile(w, r, fileDeniedEscape, http.StatusForbidden)
			return
		}
		if rel == "" || strings.HasSuffix(rel, "/") {
			denyFile(w, r, fileDeniedDir, http.StatusForbidden)
			return
		}
		if info, err := fs.Stat(fsys, rel); err != nil || info.IsDir() {
			metrics.RecordFileRequest(fileNotFound)
			http.NotFound(w, r)
			return
		}
		metrics.RecordFileRequest(fileAllowed)
		w.Header().Set("Cache-Control", staticCacheControl)
		files.ServeHTTP(w, r)
	})
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/ManuGH/panoview/internal/log"
)

//go:embed all:web
var webAssets embed.FS

//go:embed openapi.yaml
var openAPISpec []byte

// OpenAPISpec returns the embedded API description.
func OpenAPISpec() []byte { return openAPISpec }

func handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openAPISpec)
}

func webFS() fs.FS {
	sub, err := fs.Sub(webAssets, "web")
	if err != nil {
		panic(err)
	}
	return sub
}

func parsePages() (*template.Template, error) {
	t, err := template.ParseFS(webAssets, "web/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("api: parse templates: %w", err)
	}
	return t, nil
}

// render executes a page into a buffer so template errors still produce a
// clean 500 instead of a truncated page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).Error().Err(err).Str("template", name).Msg("render failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

type adminPage struct {
	Version   string
	MaxUpload int64
	Accept    string
}

func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg.Get()
	accept := ""
	for i, ext := range cfg.Media.AllowedExtensions {
		if i > 0 {
			accept += ","
		}
		accept += ext
	}
	s.render(w, r, "admin.html", adminPage{
		Version:   cfg.Version,
		MaxUpload: cfg.Media.MaxUploadBytes,
		Accept:    accept,
	})
}

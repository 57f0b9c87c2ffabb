// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetRangeRequest(t *testing.T) {
	env := newTestEnv(t)
	env.addVideo(t, "clip.mp4", []byte("0123456789"))

	req := httptest.NewRequest(http.MethodGet, "/assets/videos/clip.mp4", nil)
	req.Header.Set("Range", "bytes=2-5")
	req.Header.Set("Origin", "https://viewer.example")
	rec := env.do(req)

	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "2345", rec.Body.String())
	assert.Equal(t, "bytes 2-5/10", rec.Header().Get("Content-Range"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Range")
}

func TestAssetETag(t *testing.T) {
	env := newTestEnv(t)
	env.addVideo(t, "clip.webm", []byte("abc"))

	rec := env.get("/assets/videos/clip.webm")
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "video/webm", rec.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodGet, "/assets/videos/clip.webm", nil)
	req.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, env.do(req).Code)
}

func TestAssetDenials(t *testing.T) {
	env := newTestEnv(t)
	outside := filepath.Join(filepath.Dir(env.cfg.Media.AssetsDir), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o600))
	require.NoError(t, os.Symlink(outside, filepath.Join(env.cfg.Media.VideoDir, "link.mp4")))

	cases := map[string]int{
		"/assets/videos/":                http.StatusForbidden,
		"/assets/videos":                 http.StatusForbidden,
		"/assets/videos/missing.mp4":     http.StatusNotFound,
		"/assets/..%2fsecret.txt":        http.StatusForbidden,
		"/assets/videos/%252e%252e/x":    http.StatusForbidden,
		"/assets/videos/link.mp4":        http.StatusForbidden,
		"/assets/videos/clip.mp4%00.txt": http.StatusForbidden,
	}
	for path, want := range cases {
		rec := env.get(path)
		assert.Equal(t, want, rec.Code, path)
	}

	rec := env.do(httptest.NewRequest(http.MethodPost, "/assets/videos/clip.mp4", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/static/js/viewer.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "dispatch")

	assert.Equal(t, http.StatusForbidden, env.get("/static/").Code)
	assert.Equal(t, http.StatusForbidden, env.get("/static/js/").Code)
	assert.Equal(t, http.StatusNotFound, env.get("/static/js/nope.js").Code)
	assert.Equal(t, http.StatusNotFound, env.get("/static/js").Code)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/panoview/internal/analytics"
	"github.com/ManuGH/panoview/internal/audit"
	"github.com/ManuGH/panoview/internal/auth"
	"github.com/ManuGH/panoview/internal/cache"
	"github.com/ManuGH/panoview/internal/config"
	"github.com/ManuGH/panoview/internal/health"
	"github.com/ManuGH/panoview/internal/library"
)

const (
	testPassword = "correct horse battery staple"
	testToken    = "test-api-token"
)

type staticConfig struct{ cfg config.AppConfig }

func (s staticConfig) Get() config.AppConfig { return s.cfg }

type testEnv struct {
	srv      *Server
	handler  http.Handler
	cfg      config.AppConfig
	lib      *library.Library
	store    analytics.Store
	auditLog *bytes.Buffer
	qrCache  *cache.MemoryCache
}

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults(dir)
	cfg.Media.AssetsDir = filepath.Join(dir, "assets")
	cfg.Media.VideoDir = filepath.Join(cfg.Media.AssetsDir, "videos")
	cfg.Media.MaxUploadBytes = 1 << 20
	cfg.Admin.Password = testPassword
	cfg.Admin.APIToken = testToken
	cfg.Admin.SessionSecret = "0123456789abcdef0123456789abcdef"
	cfg.Analytics.Path = filepath.Join(dir, "analytics.json")
	cfg.Version = "test"
	return cfg
}

func newTestEnv(t *testing.T, mutate ...func(*config.AppConfig)) *testEnv {
	t.Helper()
	cfg := testConfig(t)
	for _, m := range mutate {
		m(&cfg)
	}

	lib, err := library.New(library.Config{Dir: cfg.Media.VideoDir, AllowedExtensions: cfg.Media.AllowedExtensions})
	require.NoError(t, err)
	store, err := analytics.Open(context.Background(), analytics.Config{Backend: analytics.BackendJSON, Path: cfg.Analytics.Path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	sessions, err := auth.NewSessions(cfg.Admin.SessionSecret, cfg.Admin.SessionTTL)
	require.NoError(t, err)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewDirChecker("video_dir", cfg.Media.VideoDir))
	hm.RegisterChecker(health.NewPingChecker("analytics", store.Ping))

	auditLog := &bytes.Buffer{}
	qrCache := cache.NewMemoryCache(0)
	t.Cleanup(qrCache.Stop)

	srv, err := New(Deps{
		Config:    staticConfig{cfg},
		Library:   lib,
		Analytics: store,
		Health:    hm,
		Sessions:  sessions,
		Audit:     audit.NewLoggerWith(zerolog.New(auditLog)),
		QRCache:   qrCache,
	})
	require.NoError(t, err)
	srv.now = func() time.Time { return time.Date(2025, 5, 4, 12, 0, 0, 0, time.UTC) }

	return &testEnv{
		srv:      srv,
		handler:  srv.Handler(),
		cfg:      cfg,
		lib:      lib,
		store:    store,
		auditLog: auditLog,
		qrCache:  qrCache,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func withToken(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

// addVideo writes a video file directly into the library directory.
func (e *testEnv) addVideo(t *testing.T, name string, body []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.cfg.Media.VideoDir, name), body, 0o600))
}

func multipartBody(t *testing.T, field, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	body, ct := multipartBody(t, field, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	return req
}

// login returns the session cookie for the admin password.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewBufferString("password="+url.QueryEscape(testPassword)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := e.do(req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

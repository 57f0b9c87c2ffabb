// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package audit

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/panoview/internal/auth"
	"github.com/ManuGH/panoview/internal/log"
)

func newTestLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLoggerWith(zerolog.New(&buf))
	l.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return l, &buf
}

func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLog_Fields(t *testing.T) {
	l, buf := newTestLogger()
	l.Log(Event{
		Type:      EventConfigReload,
		Actor:     "system",
		Action:    "reloaded configuration",
		Resource:  "config.yaml",
		Result:    ResultSuccess,
		RequestID: "req-123",
		Details:   map[string]string{"changes": "3"},
	})

	got := entries(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "audit.config.reload", got[0][log.FieldEvent])
	assert.Equal(t, "audit", got[0]["log_type"])
	assert.Equal(t, "system", got[0]["actor"])
	assert.Equal(t, "req-123", got[0][log.FieldRequestID])
	assert.Equal(t, "3", got[0]["changes"])
	assert.Contains(t, got[0]["timestamp"], "2025-03-01T12:00:00")
	assert.NotContains(t, got[0], log.FieldUserAgent)
}

func TestLogRequest_UsesPrincipal(t *testing.T) {
	l, buf := newTestLogger()

	r := httptest.NewRequest("DELETE", "/admin/api/videos/a.mp4", nil)
	r.RemoteAddr = "10.0.0.5:4242"
	r.Header.Set("User-Agent", "curl/8")
	ctx := auth.WithPrincipal(r.Context(), &auth.Principal{ID: "api-token", Method: auth.MethodToken})
	ctx = log.ContextWithRequestID(ctx, "req-9")
	l.VideoDeleted(r.WithContext(ctx), "a.mp4", ResultSuccess)

	got := entries(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "token:api-token", got[0]["actor"])
	assert.Equal(t, "/admin/api/videos/a.mp4", got[0]["resource"])
	assert.Equal(t, "10.0.0.5:4242", got[0][log.FieldRemoteAddr])
	assert.Equal(t, "curl/8", got[0][log.FieldUserAgent])
	assert.Equal(t, "req-9", got[0][log.FieldRequestID])
	assert.Equal(t, "a.mp4", got[0][log.FieldVideo])
}

func TestLogRequest_AnonymousActor(t *testing.T) {
	l, buf := newTestLogger()

	r := httptest.NewRequest("POST", "/admin/login", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	l.AuthFailure(r, "invalid_password")
	l.RateLimitExceeded(r)

	got := entries(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "192.0.2.1:1234", got[0]["actor"])
	assert.Equal(t, ResultFailure, got[0]["result"])
	assert.Equal(t, "invalid_password", got[0][log.FieldReason])
	assert.Equal(t, "audit.api.ratelimit", got[1][log.FieldEvent])
	assert.Equal(t, ResultDenied, got[1]["result"])
}

func TestVideoUploaded_SizeOnlyOnSuccess(t *testing.T) {
	l, buf := newTestLogger()
	r := httptest.NewRequest("POST", "/upload", nil)

	l.VideoUploaded(r, "clip.mp4", 2048, ResultSuccess)
	l.VideoUploaded(r, "clip.exe", 0, ResultDenied)

	got := entries(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "2048", got[0][log.FieldBytes])
	assert.NotContains(t, got[1], log.FieldBytes)
}

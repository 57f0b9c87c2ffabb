// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package audit records security-relevant admin actions following the
// WHO/WHAT/WHEN pattern. Entries land in the admin log buffer.
package audit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/panoview/internal/auth"
	"github.com/ManuGH/panoview/internal/log"
)

// EventType names an audit event.
type EventType string

const (
	EventConfigReload EventType = "config.reload"

	EventAuthSuccess EventType = "auth.success"
	EventAuthFailure EventType = "auth.failure"
	EventAuthMissing EventType = "auth.missing"
	EventLogout      EventType = "auth.logout"

	EventVideoUpload EventType = "video.upload"
	EventVideoDelete EventType = "video.delete"

	EventRateLimit EventType = "api.ratelimit"
)

// Results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDenied  = "denied"
)

// Event is one audit record.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	Actor      string // principal id, client address or "system"
	Action     string
	Resource   string
	Result     string
	RemoteAddr string
	UserAgent  string
	RequestID  string
	Details    map[string]string
}

// Logger writes audit events.
type Logger struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewLogger creates an audit logger on the "audit" component.
func NewLogger() *Logger {
	return NewLoggerWith(log.WithComponent("audit"))
}

// NewLoggerWith writes through base.
func NewLoggerWith(base zerolog.Logger) *Logger {
	return &Logger{
		logger: base.With().Str("log_type", "audit").Logger(),
		now:    time.Now,
	}
}

func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}

	e := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str(log.FieldEvent, "audit."+string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)

	if event.RemoteAddr != "" {
		e.Str(log.FieldRemoteAddr, event.RemoteAddr)
	}
	if event.UserAgent != "" {
		e.Str(log.FieldUserAgent, event.UserAgent)
	}
	if event.RequestID != "" {
		e.Str(log.FieldRequestID, event.RequestID)
	}
	for key, value := range event.Details {
		e.Str(key, value)
	}
	e.Msg("audit event")
}

// LogRequest fills request metadata and the actor from r before logging.
func (l *Logger) LogRequest(r *http.Request, event Event) {
	if event.RemoteAddr == "" {
		event.RemoteAddr = r.RemoteAddr
	}
	if event.UserAgent == "" {
		event.UserAgent = r.UserAgent()
	}
	if event.RequestID == "" {
		event.RequestID = log.RequestIDFromContext(r.Context())
	}
	if event.Actor == "" {
		event.Actor = actor(r.Context(), event.RemoteAddr)
	}
	if event.Resource == "" {
		event.Resource = r.URL.Path
	}
	l.Log(event)
}

func actor(ctx context.Context, fallback string) string {
	if p := auth.PrincipalFromContext(ctx); p != nil {
		return string(p.Method) + ":" + p.ID
	}
	return fallback
}

// ConfigReload records a configuration reload.
func (l *Logger) ConfigReload(actor, result string, details map[string]string) {
	l.Log(Event{
		Type:     EventConfigReload,
		Actor:    actor,
		Action:   "reloaded configuration",
		Resource: "config",
		Result:   result,
		Details:  details,
	})
}

func (l *Logger) AuthSuccess(r *http.Request) {
	l.LogRequest(r, Event{
		Type:   EventAuthSuccess,
		Action: "admin login",
		Result: ResultSuccess,
	})
}

func (l *Logger) AuthFailure(r *http.Request, reason string) {
	l.LogRequest(r, Event{
		Type:    EventAuthFailure,
		Action:  "admin login",
		Result:  ResultFailure,
		Details: map[string]string{log.FieldReason: reason},
	})
}

// AuthMissing records an unauthenticated call to a protected endpoint.
func (l *Logger) AuthMissing(r *http.Request) {
	l.LogRequest(r, Event{
		Type:   EventAuthMissing,
		Action: r.Method + " without credentials",
		Result: ResultDenied,
	})
}

func (l *Logger) Logout(r *http.Request) {
	l.LogRequest(r, Event{
		Type:   EventLogout,
		Action: "admin logout",
		Result: ResultSuccess,
	})
}

// VideoUploaded records an upload attempt. size is zero on failure.
func (l *Logger) VideoUploaded(r *http.Request, video string, size int64, result string) {
	details := map[string]string{log.FieldVideo: video}
	if size > 0 {
		details[log.FieldBytes] = strconv.FormatInt(size, 10)
	}
	l.LogRequest(r, Event{
		Type:    EventVideoUpload,
		Action:  "upload video",
		Result:  result,
		Details: details,
	})
}

func (l *Logger) VideoDeleted(r *http.Request, video, result string) {
	l.LogRequest(r, Event{
		Type:    EventVideoDelete,
		Action:  "delete video",
		Result:  result,
		Details: map[string]string{log.FieldVideo: video},
	})
}

// RateLimitExceeded has the signature of a rate limiter callback.
func (l *Logger) RateLimitExceeded(r *http.Request) {
	l.LogRequest(r, Event{
		Type:   EventRateLimit,
		Action: "rate limit exceeded",
		Result: ResultDenied,
	})
}

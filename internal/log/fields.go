// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID     = "session_id"
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldTraceID       = "trace_id"
	FieldSpanID        = "span_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldReason    = "reason"
	FieldNote      = "note"

	// Media fields
	FieldVideo           = "video"
	FieldConnectionClass = "connection_class"
	FieldBytes           = "bytes"

	// State fields
	FieldState    = "state"
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// HTTP fields
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
	FieldUserAgent  = "user_agent"
)

// Event names for entries kept in the recent-logs buffer.
const (
	EventRequestHandled = "request.handled"
	EventVideoUploaded  = "video.uploaded"
	EventVideoDeleted   = "video.deleted"
	EventVideoViewed    = "video.viewed"
	EventAdminLogin     = "admin.login"
	EventAdminLogout    = "admin.logout"
	EventConfigReloaded = "config.reloaded"
)

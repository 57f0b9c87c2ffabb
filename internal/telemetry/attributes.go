// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used across spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	VideoKey      = "panoview.video"
	VideoSizeKey  = "panoview.video.size"
	AnalyticsKey  = "panoview.analytics.backend"
	PlaybackFrom  = "panoview.playback.from"
	PlaybackTo    = "panoview.playback.to"
	PlaybackEvent = "panoview.playback.event"
	PlaybackNote  = "panoview.playback.note"
	PlaybackClass = "panoview.playback.class"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// VideoAttributes describes a library item. A negative size is omitted.
func VideoAttributes(name string, size int64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(VideoKey, name)}
	if size >= 0 {
		attrs = append(attrs, attribute.Int64(VideoSizeKey, size))
	}
	return attrs
}

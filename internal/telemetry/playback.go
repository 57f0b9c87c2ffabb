// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const meterName = "panoview.playback"

// Transition is one observed playback state change.
type Transition struct {
	Video string
	From  string
	To    string
	Event string
	Note  string
	Class string
}

// EmitTransition adds a span event to the span in ctx and counts the
// transition on the global meter provider. Providers are looked up on each
// call so tests can swap them.
func EmitTransition(ctx context.Context, tr Transition) {
	meter := otel.GetMeterProvider().Meter(meterName)
	if counter, err := meter.Int64Counter("panoview_playback_transitions",
		metric.WithDescription("Playback state machine transitions")); err == nil {
		counter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("from", tr.From),
			attribute.String("to", tr.To),
			attribute.String("event", tr.Event),
		))
	}

	attrs := []attribute.KeyValue{
		attribute.String(VideoKey, tr.Video),
		attribute.String(PlaybackFrom, tr.From),
		attribute.String(PlaybackTo, tr.To),
		attribute.String(PlaybackEvent, tr.Event),
	}
	if tr.Note != "" {
		attrs = append(attrs, attribute.String(PlaybackNote, tr.Note))
	}
	if tr.Class != "" {
		attrs = append(attrs, attribute.String(PlaybackClass, tr.Class))
	}
	trace.SpanFromContext(ctx).AddEvent("playback.transition", trace.WithAttributes(attrs...))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	playbackTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoview_playback_transitions_total",
		Help: "Playback state machine transitions",
	}, []string{"from", "to", "event"})

	playbackTimeToPlay = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "panoview_playback_time_to_play_seconds",
		Help:    "Time from first gesture to playing, by connection class",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21},
	}, []string{"class"})

	playbackDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoview_playback_degraded_total",
		Help: "Sessions that started through the recovery path instead of readiness",
	}, []string{"class"})

	playbackOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoview_playback_sessions_total",
		Help: "Finished playback sessions by final state",
	}, []string{"final_state"})
)

// RecordPlaybackTransition counts one state change.
func RecordPlaybackTransition(from, to, event string) {
	playbackTransitions.WithLabelValues(from, to, event).Inc()
}

// RecordTimeToPlay observes gesture-to-playing latency.
func RecordTimeToPlay(class string, d time.Duration) {
	playbackTimeToPlay.WithLabelValues(class).Observe(d.Seconds())
}

func RecordDegradedStart(class string) {
	playbackDegraded.WithLabelValues(class).Inc()
}

func RecordSessionOutcome(finalState string) {
	playbackOutcomes.WithLabelValues(finalState).Inc()
}

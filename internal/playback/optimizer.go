// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import "time"

// PreloadHint is the advisory prefetch level passed to the media element.
type PreloadHint string

const (
	PreloadNone     PreloadHint = "none"
	PreloadMetadata PreloadHint = "metadata"
	PreloadAuto     PreloadHint = "auto"
)

const (
	optimalBufferFraction = 0.10
	maxOptimalBuffer      = 30 * time.Second
)

// TimeRange is a buffered span of the media timeline.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

// BufferPlan is the result of one optimizer evaluation.
type BufferPlan struct {
	Ahead   time.Duration
	Optimal time.Duration
	Hint    PreloadHint
	Changed bool
}

// BufferOptimizer toggles the preload hint from the buffered-ahead duration.
type BufferOptimizer struct {
	multiplier float64
	last       PreloadHint
}

func NewBufferOptimizer(p Policy) *BufferOptimizer {
	return &BufferOptimizer{multiplier: p.BufferMultiplier}
}

// OptimalBuffer is min(duration*10%, 30s) scaled by multiplier.
func OptimalBuffer(duration time.Duration, multiplier float64) time.Duration {
	base := time.Duration(float64(duration) * optimalBufferFraction)
	if base > maxOptimalBuffer {
		base = maxOptimalBuffer
	}
	if base < 0 {
		base = 0
	}
	return time.Duration(float64(base) * multiplier)
}

// BufferedAhead measures from position to the end of the last buffered range.
func BufferedAhead(position time.Duration, ranges []TimeRange) time.Duration {
	if len(ranges) == 0 {
		return 0
	}
	ahead := ranges[len(ranges)-1].End - position
	if ahead < 0 {
		return 0
	}
	return ahead
}

// Evaluate computes the hint for the current playback position.
func (o *BufferOptimizer) Evaluate(position, duration time.Duration, ranges []TimeRange) BufferPlan {
	plan := BufferPlan{
		Ahead:   BufferedAhead(position, ranges),
		Optimal: OptimalBuffer(duration, o.multiplier),
		Hint:    PreloadMetadata,
	}
	if plan.Ahead < plan.Optimal {
		plan.Hint = PreloadAuto
	}
	plan.Changed = plan.Hint != o.last
	o.last = plan.Hint
	return plan
}

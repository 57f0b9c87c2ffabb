// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"sync"
	"time"
)

// DefaultGracePeriod bounds how long the sequencer waits for a can-start signal.
const DefaultGracePeriod = 3 * time.Second

// LoadOutcome is how a gesture-triggered load resolved.
type LoadOutcome int

const (
	OutcomePending LoadOutcome = iota
	OutcomeReady
	OutcomeTimeout
	OutcomeFailed
)

func (o LoadOutcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// LoadSequencer races a can-start signal against a fixed grace timer.
// Exactly one outcome is produced per session.
type LoadSequencer struct {
	media Media
	clock Clock
	grace time.Duration

	mu        sync.Mutex
	begun     bool
	cancelled bool
	outcome   LoadOutcome
	timer     Timer
	token     uint64
}

func NewLoadSequencer(media Media, clock Clock, grace time.Duration) *LoadSequencer {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &LoadSequencer{media: media, clock: clock, grace: grace}
}

// Begin reloads and force-mutes the media, then arms the grace timer.
// onGrace receives the arm token when the timer expires. Only the first
// call has any effect.
func (q *LoadSequencer) Begin(onGrace func(token uint64)) bool {
	q.mu.Lock()
	if q.begun {
		q.mu.Unlock()
		return false
	}
	q.begun = true
	q.token++
	token := q.token
	q.mu.Unlock()

	q.media.SetMuted(true)
	q.media.Load()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancelled || q.outcome != OutcomePending {
		return true
	}
	q.timer = q.clock.AfterFunc(q.grace, func() { onGrace(token) })
	return true
}

// Resolve feeds a signal to the race. It reports the outcome the first time
// a valid signal arrives and false for every later or stale signal.
func (q *LoadSequencer) Resolve(ev Event) (LoadOutcome, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.begun || q.cancelled || q.outcome != OutcomePending {
		return q.outcome, false
	}
	switch ev.Kind {
	case EvCanStart:
		q.outcome = OutcomeReady
	case EvGraceElapsed:
		if ev.Token != q.token {
			return OutcomePending, false
		}
		q.outcome = OutcomeTimeout
	case EvError:
		q.outcome = OutcomeFailed
	default:
		return OutcomePending, false
	}
	q.stopLocked()
	return q.outcome, true
}

// Pending reports whether Begin ran and no outcome has been produced.
func (q *LoadSequencer) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.begun && !q.cancelled && q.outcome == OutcomePending
}

// Outcome returns the resolved outcome, or OutcomePending.
func (q *LoadSequencer) Outcome() LoadOutcome {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outcome
}

// Cancel stops the grace timer. A cancelled sequencer never resolves.
func (q *LoadSequencer) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.begun = true
	q.cancelled = true
	q.stopLocked()
}

func (q *LoadSequencer) stopLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"sync"
	"time"
)

// RecoveryValve bounds the wait for the fully-buffered signal with a
// one-shot timer. Each Arm issues a new token; fires carrying an older
// token are ignored.
type RecoveryValve struct {
	clock   Clock
	timeout time.Duration

	mu    sync.Mutex
	armed bool
	timer Timer
	token uint64
}

func NewRecoveryValve(clock Clock, timeout time.Duration) *RecoveryValve {
	return &RecoveryValve{clock: clock, timeout: timeout}
}

// Arm starts the timer. onFire receives the arm token. Arming an armed
// valve is a no-op.
func (v *RecoveryValve) Arm(onFire func(token uint64)) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.armed {
		return false
	}
	v.armed = true
	v.token++
	token := v.token
	v.timer = v.clock.AfterFunc(v.timeout, func() { onFire(token) })
	return true
}

// Armed reports whether the timer is pending.
func (v *RecoveryValve) Armed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.armed
}

// Cancel disarms the valve. It reports whether a pending timer was cancelled.
func (v *RecoveryValve) Cancel() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.armed {
		return false
	}
	v.armed = false
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	return true
}

// Claim consumes a fire. It returns true only when the valve is still armed
// by the arm that produced token and the media is not fully buffered; the
// valve is disarmed either way once the current arm's fire is observed.
func (v *RecoveryValve) Claim(token uint64, fullyBuffered bool) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.armed || token != v.token {
		return false
	}
	v.armed = false
	v.timer = nil
	return !fullyBuffered
}

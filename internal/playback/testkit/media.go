// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package testkit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/panoview/internal/playback"
)

// ErrAutoplayBlocked mimics a platform rejecting a play request.
var ErrAutoplayBlocked = errors.New("autoplay blocked")

// FakeMedia records calls and lets tests emit media events.
type FakeMedia struct {
	mu       sync.Mutex
	sink     func(playback.Event)
	src      string
	muted    bool
	seeking  bool
	position time.Duration
	duration time.Duration
	buffered []playback.TimeRange
	preloads []playback.PreloadHint

	// PlayErr, when set, is returned by every Play call.
	PlayErr error
	// PlayHook runs after a successful Play, outside the fake's lock.
	PlayHook func()

	loads  int
	plays  int
	pauses int
}

func NewFakeMedia(src string, duration time.Duration) *FakeMedia {
	return &FakeMedia{src: src, duration: duration}
}

func (m *FakeMedia) OnEvent(sink func(playback.Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// Emit delivers an event to the registered sink, if any.
func (m *FakeMedia) Emit(kind playback.EventKind) {
	m.EmitEvent(playback.Event{Kind: kind})
}

func (m *FakeMedia) EmitEvent(ev playback.Event) {
	m.mu.Lock()
	sink := m.sink
	m.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

func (m *FakeMedia) Load() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
}

func (m *FakeMedia) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
}

func (m *FakeMedia) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

func (m *FakeMedia) Play(ctx context.Context) error {
	m.mu.Lock()
	m.plays++
	err := m.PlayErr
	hook := m.PlayHook
	m.mu.Unlock()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return err
	}
	if hook != nil {
		hook()
	}
	return nil
}

// SetPlayErr changes the result of later Play calls.
func (m *FakeMedia) SetPlayErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlayErr = err
}

func (m *FakeMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
}

func (m *FakeMedia) CurrentTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *FakeMedia) Seek(position time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = position
}

func (m *FakeMedia) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *FakeMedia) Buffered() []playback.TimeRange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]playback.TimeRange, len(m.buffered))
	copy(out, m.buffered)
	return out
}

func (m *FakeMedia) Seeking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seeking
}

func (m *FakeMedia) SetPreload(hint playback.PreloadHint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preloads = append(m.preloads, hint)
}

func (m *FakeMedia) Source() string { return m.src }

// SetBuffered replaces the buffered ranges.
func (m *FakeMedia) SetBuffered(ranges ...playback.TimeRange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffered = ranges
}

// SetSeeking sets the value reported by Seeking.
func (m *FakeMedia) SetSeeking(seeking bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeking = seeking
}

func (m *FakeMedia) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

func (m *FakeMedia) Plays() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays
}

// Preloads returns every hint set so far.
func (m *FakeMedia) Preloads() []playback.PreloadHint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]playback.PreloadHint, len(m.preloads))
	copy(out, m.preloads)
	return out
}

// HasSink reports whether a session is subscribed.
func (m *FakeMedia) HasSink() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sink != nil
}

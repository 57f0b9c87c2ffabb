// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package testkit

import (
	"sync"
	"time"

	"github.com/ManuGH/panoview/internal/playback"
)

// FakeSurface records attach calls.
type FakeSurface struct {
	mu      sync.Mutex
	source  string
	attachs int
	// AttachErr, when set, is returned by Attach and nothing is attached.
	AttachErr error
}

func (s *FakeSurface) Attach(source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachs++
	if s.AttachErr != nil {
		return s.AttachErr
	}
	s.source = source
	return nil
}

func (s *FakeSurface) HasSource() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source != ""
}

func (s *FakeSurface) Attaches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachs
}

// Overlay tracks visibility and the last reported progress.
type Overlay struct {
	mu       sync.Mutex
	visible  bool
	shows    int
	progress []playback.LoadProgress
}

func (o *Overlay) Show() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visible = true
	o.shows++
}

func (o *Overlay) Hide() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visible = false
}

func (o *Overlay) SetProgress(p playback.LoadProgress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, p)
}

func (o *Overlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

func (o *Overlay) Shows() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.shows
}

// LastProgress returns the most recent progress report.
func (o *Overlay) LastProgress() (playback.LoadProgress, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.progress) == 0 {
		return playback.LoadProgress{}, false
	}
	return o.progress[len(o.progress)-1], true
}

// ErrorBanner records surfaced errors.
type ErrorBanner struct {
	mu   sync.Mutex
	errs []error
}

func (b *ErrorBanner) ShowError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs = append(b.errs, err)
}

func (b *ErrorBanner) Errors() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]error, len(b.errs))
	copy(out, b.errs)
	return out
}

// Controls counts play/pause resets.
type Controls struct {
	mu     sync.Mutex
	resets int
}

func (c *Controls) ResetPlayPause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
}

func (c *Controls) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

// Rig bundles a complete set of fakes.
type Rig struct {
	Clock     *FakeClock
	Media     *FakeMedia
	Surface   *FakeSurface
	Loading   *Overlay
	Buffering *Overlay
	Prompt    *Overlay
	Errors    *ErrorBanner
	Controls  *Controls
}

// Overlays returns the rig's UI collaborators.
func (r *Rig) Overlays() playback.Overlays {
	return playback.Overlays{
		Loading:     r.Loading,
		Buffering:   r.Buffering,
		StartPrompt: r.Prompt,
		Errors:      r.Errors,
		Controls:    r.Controls,
	}
}

// NewRig builds fakes for a media of the given duration.
func NewRig(src string, duration time.Duration) *Rig {
	return &Rig{
		Clock:     NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Media:     NewFakeMedia(src, duration),
		Surface:   &FakeSurface{},
		Loading:   &Overlay{},
		Buffering: &Overlay{},
		Prompt:    &Overlay{},
		Errors:    &ErrorBanner{},
		Controls:  &Controls{},
	}
}

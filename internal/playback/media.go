// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"context"
	"time"
)

// Media is the media resource owned by a session.
type Media interface {
	// Load reinitialises the source and starts fetching.
	Load()
	SetMuted(muted bool)
	Muted() bool
	// Play requests playback start. It may be rejected.
	Play(ctx context.Context) error
	Pause()
	CurrentTime() time.Duration
	Seek(position time.Duration)
	Duration() time.Duration
	Buffered() []TimeRange
	Seeking() bool
	SetPreload(hint PreloadHint)
	// Source is the reference attached to the render surface.
	Source() string
	// OnEvent registers the single event sink. nil detaches it.
	OnEvent(sink func(Event))
}

// Surface is the render target the media is attached to.
type Surface interface {
	Attach(source string) error
	HasSource() bool
}

// Overlay is a piece of UI chrome the session shows and hides.
type Overlay interface {
	Show()
	Hide()
}

// LoadStage names what the loading indicator should say.
type LoadStage string

const (
	StagePreparing    LoadStage = "preparing"
	StageInitializing LoadStage = "initializing"
	StageMetadata     LoadStage = "metadata"
	StageBuffering    LoadStage = "buffering"
	StageOptimizing   LoadStage = "optimizing"
)

// LoadProgress is reported to loading indicators that support it.
type LoadProgress struct {
	Stage    LoadStage
	Percent  float64
	Buffered time.Duration
}

// ProgressReporter is implemented by loading overlays that render progress.
type ProgressReporter interface {
	SetProgress(p LoadProgress)
}

// ErrorReporter surfaces a fatal playback failure to the viewer.
type ErrorReporter interface {
	ShowError(err error)
}

// PlaybackControls is the play/pause affordance.
type PlaybackControls interface {
	ResetPlayPause()
}

// Overlays groups the UI collaborators. Nil members are ignored.
type Overlays struct {
	Loading     Overlay
	Buffering   Overlay
	StartPrompt Overlay
	Errors      ErrorReporter
	Controls    PlaybackControls
}

type noopOverlay struct{}

func (noopOverlay) Show() {}
func (noopOverlay) Hide() {}

type noopErrors struct{}

func (noopErrors) ShowError(error) {}

type noopControls struct{}

func (noopControls) ResetPlayPause() {}

func (o Overlays) withDefaults() Overlays {
	if o.Loading == nil {
		o.Loading = noopOverlay{}
	}
	if o.Buffering == nil {
		o.Buffering = noopOverlay{}
	}
	if o.StartPrompt == nil {
		o.StartPrompt = noopOverlay{}
	}
	if o.Errors == nil {
		o.Errors = noopErrors{}
	}
	if o.Controls == nil {
		o.Controls = noopControls{}
	}
	return o
}

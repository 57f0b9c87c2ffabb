// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

// State is the playback state of a viewer session.
type State string

const (
	StateIdle            State = "idle"
	StateAwaitingGesture State = "awaiting_gesture"
	StateLoading         State = "loading"
	StateBuffering       State = "buffering"
	StateReady           State = "ready"
	StatePlaying         State = "playing"
	StateWaiting         State = "waiting"
	StateSeeking         State = "seeking"
	StateEnded           State = "ended"
	StateError           State = "error"
)

var allStates = []State{
	StateIdle,
	StateAwaitingGesture,
	StateLoading,
	StateBuffering,
	StateReady,
	StatePlaying,
	StateWaiting,
	StateSeeking,
	StateEnded,
	StateError,
}

// IsTerminal reports whether no further transitions leave s.
func (s State) IsTerminal() bool {
	return s == StateEnded || s == StateError
}

// attached reports whether media is expected to be on the render surface.
func (s State) attached() bool {
	switch s {
	case StateBuffering, StatePlaying, StateWaiting, StateSeeking:
		return true
	default:
		return false
	}
}

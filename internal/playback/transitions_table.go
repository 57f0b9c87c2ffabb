// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import "time"

// Transition is a single edge in the playback state machine. From == To
// marks an in-place effect (the event applies side effects but keeps the state).
type Transition struct {
	From  State
	To    State
	Event EventKind
	At    time.Time
	Note  string
}

// Decision records whether an event is accepted in a state and why it is absorbed.
type Decision struct {
	Allowed bool
	Reason  string
}

var transitionsTable = []Transition{
	// Gesture-gated start
	{From: StateIdle, To: StateAwaitingGesture, Event: EvStart},
	{From: StateAwaitingGesture, To: StateLoading, Event: EvGesture},

	// Load sequencer outcomes
	{From: StateLoading, To: StateBuffering, Event: EvCanStart},
	{From: StateLoading, To: StateBuffering, Event: EvGraceElapsed},

	// Buffering completion and degraded start
	{From: StateBuffering, To: StateReady, Event: EvCanPlayThrough},
	{From: StateBuffering, To: StatePlaying, Event: EvRecoveryFired},
	{From: StateLoading, To: StatePlaying, Event: EvRecoveryFired},

	// Start after a rejected play attempt, or media starting on its own
	{From: StateReady, To: StatePlaying, Event: EvGesture},
	{From: StateBuffering, To: StatePlaying, Event: EvGesture},
	{From: StateReady, To: StatePlaying, Event: EvPlaying},
	{From: StateBuffering, To: StatePlaying, Event: EvPlaying},

	// Stall and seek
	{From: StatePlaying, To: StateWaiting, Event: EvWaiting},
	{From: StateWaiting, To: StatePlaying, Event: EvPlaying},
	{From: StatePlaying, To: StateSeeking, Event: EvSeeking},
	{From: StateWaiting, To: StateSeeking, Event: EvSeeking},
	{From: StatePlaying, To: StatePlaying, Event: EvSeeked},
	{From: StateWaiting, To: StatePlaying, Event: EvSeeked},
	{From: StateSeeking, To: StatePlaying, Event: EvSeeked},
	{From: StateSeeking, To: StatePlaying, Event: EvPlaying},

	// End of media
	{From: StatePlaying, To: StateEnded, Event: EvEnded},
	{From: StateWaiting, To: StateEnded, Event: EvEnded},
	{From: StateSeeking, To: StateEnded, Event: EvEnded},

	// Fatal media error
	{From: StateIdle, To: StateError, Event: EvError},
	{From: StateAwaitingGesture, To: StateError, Event: EvError},
	{From: StateLoading, To: StateError, Event: EvError},
	{From: StateBuffering, To: StateError, Event: EvError},
	{From: StateReady, To: StateError, Event: EvError},
	{From: StatePlaying, To: StateError, Event: EvError},
	{From: StateWaiting, To: StateError, Event: EvError},
	{From: StateSeeking, To: StateError, Event: EvError},
}

// inPlaceEffects lists events that are accepted without leaving the state.
var inPlaceEffects = map[EventKind][]State{
	EvCanPlayThrough:   {StateIdle, StateAwaitingGesture, StateLoading, StatePlaying, StateWaiting, StateSeeking},
	EvAbort:            {StateAwaitingGesture, StateLoading, StateBuffering, StateReady, StatePlaying, StateWaiting, StateSeeking},
	EvLoadStart:        {StateAwaitingGesture, StateLoading, StateBuffering, StateReady, StatePlaying, StateWaiting, StateSeeking},
	EvMetadata:         {StateAwaitingGesture, StateLoading, StateBuffering, StateReady, StatePlaying, StateWaiting, StateSeeking},
	EvProgress:         {StateAwaitingGesture, StateLoading, StateBuffering, StateReady, StatePlaying, StateWaiting, StateSeeking},
	EvTimeUpdate:       {StateBuffering, StatePlaying, StateWaiting, StateSeeking},
	EvConnectionChange: {StateBuffering, StatePlaying, StateWaiting, StateSeeking},
}

// TransitionFor returns the allowed edge for a given state+event.
func TransitionFor(from State, ev EventKind) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	for _, st := range inPlaceEffects[ev] {
		if st == from {
			return Transition{From: from, To: from, Event: ev}, true
		}
	}
	return Transition{}, false
}

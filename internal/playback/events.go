// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import "fmt"

// EventKind is an input to the playback state machine. Media notifications,
// user gestures and timer expirations all share this space.
type EventKind int

const (
	EvUnknown EventKind = iota
	EvStart
	EvGesture
	EvCanStart       // media: enough data to begin playback
	EvGraceElapsed   // load sequencer grace timer
	EvCanPlayThrough // media: playable to the end without stalling
	EvRecoveryFired  // recovery valve timer
	EvWaiting
	EvPlaying
	EvSeeking
	EvSeeked
	EvEnded
	EvError
	EvAbort
	EvLoadStart
	EvMetadata
	EvProgress
	EvTimeUpdate
	EvConnectionChange
)

var allEvents = []EventKind{
	EvStart,
	EvGesture,
	EvCanStart,
	EvGraceElapsed,
	EvCanPlayThrough,
	EvRecoveryFired,
	EvWaiting,
	EvPlaying,
	EvSeeking,
	EvSeeked,
	EvEnded,
	EvError,
	EvAbort,
	EvLoadStart,
	EvMetadata,
	EvProgress,
	EvTimeUpdate,
	EvConnectionChange,
}

var eventNames = map[EventKind]string{
	EvUnknown:          "unknown",
	EvStart:            "start",
	EvGesture:          "gesture",
	EvCanStart:         "canplay",
	EvGraceElapsed:     "grace_elapsed",
	EvCanPlayThrough:   "canplaythrough",
	EvRecoveryFired:    "recovery_fired",
	EvWaiting:          "waiting",
	EvPlaying:          "playing",
	EvSeeking:          "seeking",
	EvSeeked:           "seeked",
	EvEnded:            "ended",
	EvError:            "error",
	EvAbort:            "abort",
	EvLoadStart:        "loadstart",
	EvMetadata:         "loadedmetadata",
	EvProgress:         "progress",
	EvTimeUpdate:       "timeupdate",
	EvConnectionChange: "connection_change",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// ParseEventKind maps a media event name to its kind.
func ParseEventKind(name string) (EventKind, bool) {
	for kind, n := range eventNames {
		if n == name && kind != EvUnknown {
			return kind, true
		}
	}
	return EvUnknown, false
}

// Event is a single input delivered to Session.Dispatch.
type Event struct {
	Kind EventKind
	// Token identifies the timer arm that produced a timer event. Events
	// carrying a token from a cancelled or superseded arm are ignored.
	Token uint64
	// Err is the media error for EvError.
	Err error
}

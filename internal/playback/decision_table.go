// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

const (
	ForbiddenTerminalAbsorbing = "terminal_absorbing"
	ForbiddenOutOfOrder        = "out_of_order"
	ForbiddenAlreadyInState    = "already_in_state"
	ForbiddenAlreadyGestured   = "already_gestured"
	ForbiddenRequiresGesture   = "requires_gesture"
	ForbiddenStaleTimer        = "stale_timer"
	ForbiddenRequiresPlayback  = "requires_playback"
	ForbiddenSeekInProgress    = "seek_in_progress"
)

// Guard reasons reported when an allowed event is absorbed by a runtime check.
const (
	GuardSequencerResolved = "sequencer_resolved"
	GuardFullyBuffered     = "fully_buffered"
	GuardRecoveryDisarmed  = "recovery_disarmed"
	GuardNoPendingRetry    = "no_pending_retry"
	GuardDuplicateSignal   = "duplicate_signal"
	GuardMediaSeeking      = "media_seeking"
	GuardPlayRejected      = "play_rejected"
	GuardSessionClosed     = "session_closed"
)

func allowed() Decision        { return Decision{Allowed: true} }
func forbid(r string) Decision { return Decision{Allowed: false, Reason: r} }

// decisionTable defines an explicit decision for every State×Event combination.
var decisionTable = map[State]map[EventKind]Decision{
	StateIdle: {
		EvStart:            allowed(),
		EvGesture:          forbid(ForbiddenOutOfOrder),
		EvCanStart:         forbid(ForbiddenOutOfOrder),
		EvGraceElapsed:     forbid(ForbiddenStaleTimer),
		EvCanPlayThrough:   allowed(),
		EvRecoveryFired:    forbid(ForbiddenStaleTimer),
		EvWaiting:          forbid(ForbiddenRequiresGesture),
		EvPlaying:          forbid(ForbiddenRequiresGesture),
		EvSeeking:          forbid(ForbiddenRequiresPlayback),
		EvSeeked:           forbid(ForbiddenRequiresPlayback),
		EvEnded:            forbid(ForbiddenRequiresPlayback),
		EvError:            allowed(),
		EvAbort:            forbid(ForbiddenOutOfOrder),
		EvLoadStart:        forbid(ForbiddenOutOfOrder),
		EvMetadata:         forbid(ForbiddenOutOfOrder),
		EvProgress:         forbid(ForbiddenOutOfOrder),
		EvTimeUpdate:       forbid(ForbiddenRequiresPlayback),
		EvConnectionChange: forbid(ForbiddenRequiresPlayback),
	},
	StateAwaitingGesture: {
		EvStart:            forbid(ForbiddenAlreadyInState),
		EvGesture:          allowed(),
		EvCanStart:         forbid(ForbiddenRequiresGesture),
		EvGraceElapsed:     forbid(ForbiddenStaleTimer),
		EvCanPlayThrough:   allowed(),
		EvRecoveryFired:    forbid(ForbiddenStaleTimer),
		EvWaiting:          forbid(ForbiddenRequiresGesture),
		EvPlaying:          forbid(ForbiddenRequiresGesture),
		EvSeeking:          forbid(ForbiddenRequiresPlayback),
		EvSeeked:           forbid(ForbiddenRequiresPlayback),
		EvEnded:            forbid(ForbiddenRequiresPlayback),
		EvError:            allowed(),
		EvAbort:            allowed(),
		EvLoadStart:        allowed(),
		EvMetadata:         allowed(),
		EvProgress:         allowed(),
		EvTimeUpdate:       forbid(ForbiddenRequiresPlayback),
		EvConnectionChange: forbid(ForbiddenRequiresPlayback),
	},
	StateLoading: {
		EvStart:            forbid(ForbiddenOutOfOrder),
		EvGesture:          forbid(ForbiddenAlreadyGestured),
		EvCanStart:         allowed(),
		EvGraceElapsed:     allowed(),
		EvCanPlayThrough:   allowed(),
		EvRecoveryFired:    allowed(),
		EvWaiting:          forbid(ForbiddenOutOfOrder),
		EvPlaying:          forbid(ForbiddenOutOfOrder),
		EvSeeking:          forbid(ForbiddenRequiresPlayback),
		EvSeeked:           forbid(ForbiddenRequiresPlayback),
		EvEnded:            forbid(ForbiddenRequiresPlayback),
		EvError:            allowed(),
		EvAbort:            allowed(),
		EvLoadStart:        allowed(),
		EvMetadata:         allowed(),
		EvProgress:         allowed(),
		EvTimeUpdate:       forbid(ForbiddenRequiresPlayback),
		EvConnectionChange: forbid(ForbiddenRequiresPlayback),
	},
	StateBuffering: {
		EvStart:            forbid(ForbiddenOutOfOrder),
		EvGesture:          allowed(),
		EvCanStart:         forbid(ForbiddenAlreadyInState),
		EvGraceElapsed:     forbid(ForbiddenStaleTimer),
		EvCanPlayThrough:   allowed(),
		EvRecoveryFired:    allowed(),
		EvWaiting:          forbid(ForbiddenAlreadyInState),
		EvPlaying:          allowed(),
		EvSeeking:          forbid(ForbiddenRequiresPlayback),
		EvSeeked:           forbid(ForbiddenRequiresPlayback),
		EvEnded:            forbid(ForbiddenRequiresPlayback),
		EvError:            allowed(),
		EvAbort:            allowed(),
		EvLoadStart:        allowed(),
		EvMetadata:         allowed(),
		EvProgress:         allowed(),
		EvTimeUpdate:       allowed(),
		EvConnectionChange: allowed(),
	},
	StateReady: {
		EvStart:            forbid(ForbiddenOutOfOrder),
		EvGesture:          allowed(),
		EvCanStart:         forbid(ForbiddenAlreadyInState),
		EvGraceElapsed:     forbid(ForbiddenStaleTimer),
		EvCanPlayThrough:   forbid(ForbiddenAlreadyInState),
		EvRecoveryFired:    forbid(ForbiddenStaleTimer),
		EvWaiting:          forbid(ForbiddenOutOfOrder),
		EvPlaying:          allowed(),
		EvSeeking:          forbid(ForbiddenRequiresPlayback),
		EvSeeked:           forbid(ForbiddenRequiresPlayback),
		EvEnded:            forbid(ForbiddenRequiresPlayback),
		EvError:            allowed(),
		EvAbort:            allowed(),
		EvLoadStart:        allowed(),
		EvMetadata:         allowed(),
		EvProgress:         allowed(),
		EvTimeUpdate:       forbid(ForbiddenRequiresPlayback),
		EvConnectionChange: forbid(ForbiddenRequiresPlayback),
	},
	StatePlaying: {
		EvStart:            forbid(ForbiddenOutOfOrder),
		EvGesture:          forbid(ForbiddenAlreadyGestured),
		EvCanStart:         forbid(ForbiddenAlreadyInState),
		EvGraceElapsed:     forbid(ForbiddenStaleTimer),
		EvCanPlayThrough:   allowed(),
		EvRecoveryFired:    forbid(ForbiddenStaleTimer),
		EvWaiting:          allowed(),
		EvPlaying:          forbid(ForbiddenAlreadyInState),
		EvSeeking:          allowed(),
		EvSeeked:           allowed(),
		EvEnded:            allowed(),
		EvError:            allowed(),
		EvAbort:            allowed(),
		EvLoadStart:        allowed(),
		EvMetadata:         allowed(),
		EvProgress:         allowed(),
		EvTimeUpdate:       allowed(),
		EvConnectionChange: allowed(),
	},
	StateWaiting: {
		EvStart:            forbid(ForbiddenOutOfOrder),
		EvGesture:          forbid(ForbiddenAlreadyGestured),
		EvCanStart:         forbid(ForbiddenAlreadyInState),
		EvGraceElapsed:     forbid(ForbiddenStaleTimer),
		EvCanPlayThrough:   allowed(),
		EvRecoveryFired:    forbid(ForbiddenStaleTimer),
		EvWaiting:          forbid(ForbiddenAlreadyInState),
		EvPlaying:          allowed(),
		EvSeeking:          allowed(),
		EvSeeked:           allowed(),
		EvEnded:            allowed(),
		EvError:            allowed(),
		EvAbort:            allowed(),
		EvLoadStart:        allowed(),
		EvMetadata:         allowed(),
		EvProgress:         allowed(),
		EvTimeUpdate:       allowed(),
		EvConnectionChange: allowed(),
	},
	StateSeeking: {
		EvStart:            forbid(ForbiddenOutOfOrder),
		EvGesture:          forbid(ForbiddenAlreadyGestured),
		EvCanStart:         forbid(ForbiddenAlreadyInState),
		EvGraceElapsed:     forbid(ForbiddenStaleTimer),
		EvCanPlayThrough:   allowed(),
		EvRecoveryFired:    forbid(ForbiddenStaleTimer),
		EvWaiting:          forbid(ForbiddenSeekInProgress),
		EvPlaying:          allowed(),
		EvSeeking:          forbid(ForbiddenAlreadyInState),
		EvSeeked:           allowed(),
		EvEnded:            allowed(),
		EvError:            allowed(),
		EvAbort:            allowed(),
		EvLoadStart:        allowed(),
		EvMetadata:         allowed(),
		EvProgress:         allowed(),
		EvTimeUpdate:       allowed(),
		EvConnectionChange: allowed(),
	},
	StateEnded: terminalRow(),
	StateError: terminalRow(),
}

func terminalRow() map[EventKind]Decision {
	row := make(map[EventKind]Decision, len(allEvents))
	for _, ev := range allEvents {
		row[ev] = forbid(ForbiddenTerminalAbsorbing)
	}
	return row
}

// DecisionFor returns the decision for a given state+event.
func DecisionFor(state State, ev EventKind) (Decision, bool) {
	row, ok := decisionTable[state]
	if !ok {
		return Decision{}, false
	}
	d, ok := row[ev]
	return d, ok
}

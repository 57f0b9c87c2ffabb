// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package playback implements the adaptive, timeout-guarded playback
// controller of a single viewer session.
//
// A Session owns one media resource. Every input (media notification, user
// gesture, timer expiration) is queued and applied in arrival order by a
// single dispatcher; an event raised by a collaborator while a transition is
// being applied runs after that transition completes.
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/panoview/internal/log"
)

var (
	ErrNoMedia   = errors.New("playback: media is required")
	ErrNoSurface = errors.New("playback: surface is required")
	ErrNoGesture = errors.New("playback: play requires a user gesture")
	ErrMedia     = errors.New("playback: media error")
)

// Options configures a Session.
type Options struct {
	VideoID  string
	Media    Media
	Surface  Surface
	Overlays Overlays
	Hints    HintProvider
	Clock    Clock
	// GracePeriod overrides DefaultGracePeriod for the load sequencer.
	GracePeriod time.Duration
	// KeepMuted leaves the media muted after a gestured start.
	KeepMuted bool
	Logger    *zerolog.Logger
	// OnTransition is called on the dispatcher after every applied
	// transition. It must not block or call Close.
	OnTransition func(Transition)
}

// Snapshot is a point-in-time copy of the session fields.
type Snapshot struct {
	ID              string          `json:"id"`
	VideoID         string          `json:"video"`
	Class           ConnectionClass `json:"connection_class"`
	Policy          Policy          `json:"policy"`
	State           State           `json:"state"`
	HasUserGestured bool            `json:"has_user_gestured"`
	RecoveryArmed   bool            `json:"recovery_armed"`
	FullyBuffered   bool            `json:"fully_buffered"`
	Degraded        bool            `json:"degraded"`
	LoadOutcome     string          `json:"load_outcome"`
	Preload         PreloadHint     `json:"preload,omitempty"`
}

// Session is one page view of one video.
type Session struct {
	id      string
	videoID string
	class   ConnectionClass
	policy  Policy

	media        Media
	surface      Surface
	ui           Overlays
	clock        Clock
	seq          *LoadSequencer
	valve        *RecoveryValve
	optimizer    *BufferOptimizer
	keepMuted    bool
	logger       zerolog.Logger
	onTransition func(Transition)

	ctx    context.Context
	cancel context.CancelFunc

	// Written only by the dispatcher; guarded for readers on other goroutines.
	mu              sync.Mutex
	state           State
	hasUserGestured bool
	fullyBuffered   bool
	degraded        bool
	playRejected    bool
	preload         PreloadHint
	history         []Transition
	failure         error

	qmu      sync.Mutex
	queue    []Event
	draining bool
	closed   bool
}

// NewSession probes the connection, derives the policy and wires the
// components. The session starts in StateIdle; call Start to show the
// gesture prompt.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.Media == nil {
		return nil, ErrNoMedia
	}
	if opts.Surface == nil {
		return nil, ErrNoSurface
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}
	class := ProbeConnection(opts.Hints)
	policy := PolicyFor(class)

	id := uuid.NewString()
	var logger zerolog.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	} else {
		logger = log.WithComponentFromContext(ctx, "playback")
	}
	logger = logger.With().
		Str(log.FieldSessionID, id).
		Str(log.FieldVideo, opts.VideoID).
		Str(log.FieldConnectionClass, string(class)).
		Logger()

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:           id,
		videoID:      opts.VideoID,
		class:        class,
		policy:       policy,
		media:        opts.Media,
		surface:      opts.Surface,
		ui:           opts.Overlays.withDefaults(),
		clock:        clock,
		seq:          NewLoadSequencer(opts.Media, clock, opts.GracePeriod),
		valve:        NewRecoveryValve(clock, policy.CriticalTimeout),
		optimizer:    NewBufferOptimizer(policy),
		keepMuted:    opts.KeepMuted,
		logger:       logger,
		onTransition: opts.OnTransition,
		ctx:          sctx,
		cancel:       cancel,
		state:        StateIdle,
	}
	s.media.OnEvent(s.Dispatch)

	logger.Debug().
		Float64("buffer_multiplier", policy.BufferMultiplier).
		Dur("critical_timeout", policy.CriticalTimeout).
		Msg("playback session created")
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Start moves the session from Idle to AwaitingGesture.
func (s *Session) Start() { s.Dispatch(Event{Kind: EvStart}) }

// Gesture delivers a user interaction that requests playback.
func (s *Session) Gesture() { s.Dispatch(Event{Kind: EvGesture}) }

// Dispatch queues ev and, unless another caller is already draining the
// queue, applies queued events in order until it is empty.
func (s *Session) Dispatch(ev Event) {
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	if s.draining {
		s.qmu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 && !s.closed {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()
		s.apply(next)
		s.qmu.Lock()
	}
	s.queue = nil
	s.draining = false
	closed := s.closed
	s.qmu.Unlock()

	if closed {
		// Close may have raced an in-flight transition that re-armed a timer.
		s.stopTimers()
	}
}

// Close tears the session down: timers are cancelled, the media sink is
// detached and every later event is ignored. It is safe to call more than once.
func (s *Session) Close() {
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	s.qmu.Unlock()

	s.stopTimers()
	s.media.OnEvent(nil)
	s.cancel()
	s.logger.Debug().Str(log.FieldState, string(s.State())).Msg("playback session closed")
}

// State returns the current playback state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns the applied state changes in order.
func (s *Session) History() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transition, len(s.history))
	copy(out, s.history)
	return out
}

// Err returns the fatal media error once the session is in StateError.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Snapshot returns a copy of the session fields.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		ID:              s.id,
		VideoID:         s.videoID,
		Class:           s.class,
		Policy:          s.policy,
		State:           s.state,
		HasUserGestured: s.hasUserGestured,
		FullyBuffered:   s.fullyBuffered,
		Degraded:        s.degraded,
		Preload:         s.preload,
	}
	s.mu.Unlock()
	snap.RecoveryArmed = s.valve.Armed()
	snap.LoadOutcome = s.seq.Outcome().String()
	return snap
}

func (s *Session) isClosed() bool {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return s.closed
}

func (s *Session) apply(ev Event) {
	decision, ok := DecisionFor(s.state, ev.Kind)
	if !ok {
		s.absorb(ev, ForbiddenOutOfOrder)
		return
	}
	if !decision.Allowed {
		s.absorb(ev, decision.Reason)
		return
	}

	switch ev.Kind {
	case EvStart:
		s.transition(StateAwaitingGesture, ev.Kind, "")
		s.ui.StartPrompt.Show()
	case EvGesture:
		s.onGesture(ev)
	case EvCanStart, EvGraceElapsed:
		s.onLoadSignal(ev)
	case EvCanPlayThrough:
		s.onCanPlayThrough(ev)
	case EvRecoveryFired:
		s.onRecoveryFired(ev)
	case EvWaiting:
		s.onWaiting(ev)
	case EvPlaying:
		s.onPlaying(ev)
	case EvSeeking:
		s.transition(StateSeeking, ev.Kind, "")
	case EvSeeked:
		s.transition(StatePlaying, ev.Kind, "")
		s.ui.Buffering.Hide()
	case EvEnded:
		s.stopTimers()
		s.ui.Buffering.Hide()
		s.ui.Controls.ResetPlayPause()
		s.transition(StateEnded, ev.Kind, "")
	case EvError:
		s.onError(ev)
	case EvAbort:
		s.logger.Debug().Str(log.FieldState, string(s.state)).Msg("media fetch aborted")
	case EvLoadStart, EvMetadata, EvProgress:
		s.reportProgress(ev.Kind)
	case EvTimeUpdate, EvConnectionChange:
		s.optimize()
	}
}

func (s *Session) onGesture(ev Event) {
	if s.state == StateAwaitingGesture {
		s.mu.Lock()
		s.hasUserGestured = true
		s.mu.Unlock()

		s.ui.StartPrompt.Hide()
		s.ui.Loading.Show()
		s.setProgress(LoadProgress{Stage: StagePreparing})
		s.transition(StateLoading, ev.Kind, "")
		s.seq.Begin(func(token uint64) {
			s.Dispatch(Event{Kind: EvGraceElapsed, Token: token})
		})
		s.valve.Arm(func(token uint64) {
			s.Dispatch(Event{Kind: EvRecoveryFired, Token: token})
		})
		return
	}

	// Ready or Buffering: only a rejected start is retried on a new gesture.
	if !s.playRejected {
		s.absorb(ev, GuardNoPendingRetry)
		return
	}
	s.ui.StartPrompt.Hide()
	s.startPlayback(ev.Kind, "retry")
}

func (s *Session) onLoadSignal(ev Event) {
	outcome, ok := s.seq.Resolve(ev)
	if !ok {
		s.absorb(ev, GuardSequencerResolved)
		return
	}
	s.attach()
	s.setProgress(LoadProgress{Stage: StageOptimizing})
	s.transition(StateBuffering, ev.Kind, outcome.String())
	if s.fullyBuffered {
		s.enterReady(EvCanPlayThrough)
	}
}

func (s *Session) onCanPlayThrough(ev Event) {
	first := !s.fullyBuffered
	if first {
		s.mu.Lock()
		s.fullyBuffered = true
		s.mu.Unlock()
		if s.valve.Cancel() {
			s.logger.Debug().Msg("recovery timer cancelled: fully buffered")
		}
	}
	if s.state == StateBuffering {
		s.enterReady(ev.Kind)
		return
	}
	if !first {
		s.absorb(ev, GuardDuplicateSignal)
	}
}

func (s *Session) enterReady(kind EventKind) {
	s.ui.Loading.Hide()
	s.transition(StateReady, kind, "")
	if s.hasUserGestured {
		s.startPlayback(kind, "autoplay")
	}
}

func (s *Session) onRecoveryFired(ev Event) {
	if !s.valve.Claim(ev.Token, s.fullyBuffered) {
		reason := GuardRecoveryDisarmed
		if s.fullyBuffered {
			reason = GuardFullyBuffered
		}
		s.absorb(ev, reason)
		return
	}

	if s.state == StateLoading {
		s.seq.Cancel()
	}
	s.mu.Lock()
	s.degraded = true
	s.mu.Unlock()
	s.logger.Warn().
		Dur("critical_timeout", s.policy.CriticalTimeout).
		Msg("media not fully buffered in time, starting degraded playback")

	if !s.surface.HasSource() {
		if err := s.surface.Attach(s.media.Source()); err != nil {
			s.logger.Debug().Err(err).Msg("forced attach failed")
		}
	}
	if s.startPlayback(ev.Kind, "degraded") {
		return
	}
	if s.state == StateLoading {
		s.transition(StateBuffering, ev.Kind, "degraded_rejected")
	}
}

// startPlayback attempts play and moves to Playing on success. On rejection
// the state is kept and the gesture prompt is shown again.
func (s *Session) startPlayback(kind EventKind, note string) bool {
	if !s.attemptPlay() {
		s.ui.StartPrompt.Show()
		return false
	}
	s.ui.Loading.Hide()
	s.ui.Buffering.Hide()
	s.transition(StatePlaying, kind, note)
	return true
}

func (s *Session) attemptPlay() bool {
	if !s.hasUserGestured {
		s.logger.Warn().Err(ErrNoGesture).Msg("play suppressed")
		return false
	}
	if s.isClosed() {
		return false
	}
	if err := s.media.Play(s.ctx); err != nil {
		s.playRejected = true
		s.logger.Info().Err(err).Str(log.FieldState, string(s.state)).Msg("playback start rejected, waiting for gesture")
		return false
	}
	s.playRejected = false
	if !s.keepMuted && s.media.Muted() {
		s.media.SetMuted(false)
	}
	return true
}

func (s *Session) onWaiting(ev Event) {
	if s.media.Seeking() {
		s.absorb(ev, GuardMediaSeeking)
		return
	}
	s.ui.Buffering.Show()
	s.transition(StateWaiting, ev.Kind, "")
}

func (s *Session) onPlaying(ev Event) {
	if s.state == StateReady || s.state == StateBuffering {
		s.playRejected = false
		s.ui.StartPrompt.Hide()
		s.valve.Cancel()
	}
	s.ui.Loading.Hide()
	s.ui.Buffering.Hide()
	s.transition(StatePlaying, ev.Kind, "")
}

func (s *Session) onError(ev Event) {
	note := ""
	if _, ok := s.seq.Resolve(ev); ok {
		note = OutcomeFailed.String()
	}
	s.stopTimers()

	err := ev.Err
	if err == nil {
		err = ErrMedia
	}
	s.mu.Lock()
	s.failure = err
	s.mu.Unlock()

	s.ui.Loading.Hide()
	s.ui.Buffering.Hide()
	s.ui.StartPrompt.Hide()
	s.ui.Errors.ShowError(err)
	s.logger.Error().Err(err).Str(log.FieldState, string(s.state)).Msg("media error")
	s.transition(StateError, ev.Kind, note)
}

func (s *Session) reportProgress(kind EventKind) {
	stage := StageBuffering
	switch kind {
	case EvLoadStart:
		stage = StageInitializing
	case EvMetadata:
		stage = StageMetadata
	}
	p := LoadProgress{Stage: stage}
	if ranges := s.media.Buffered(); len(ranges) > 0 {
		p.Buffered = ranges[len(ranges)-1].End
		if d := s.media.Duration(); d > 0 {
			p.Percent = float64(p.Buffered) / float64(d) * 100
			if p.Percent > 100 {
				p.Percent = 100
			}
		}
	}
	s.setProgress(p)
}

func (s *Session) setProgress(p LoadProgress) {
	if r, ok := s.ui.Loading.(ProgressReporter); ok {
		r.SetProgress(p)
	}
}

func (s *Session) optimize() {
	plan := s.optimizer.Evaluate(s.media.CurrentTime(), s.media.Duration(), s.media.Buffered())
	s.media.SetPreload(plan.Hint)
	s.mu.Lock()
	s.preload = plan.Hint
	s.mu.Unlock()
	if plan.Changed {
		s.logger.Debug().
			Dur("buffered_ahead", plan.Ahead).
			Dur("optimal_buffer", plan.Optimal).
			Str("preload", string(plan.Hint)).
			Msg("preload hint changed")
	}
}

func (s *Session) attach() {
	if s.surface.HasSource() {
		return
	}
	if err := s.surface.Attach(s.media.Source()); err != nil {
		s.logger.Warn().Err(err).Msg("attach to render surface failed")
	}
}

func (s *Session) stopTimers() {
	s.seq.Cancel()
	s.valve.Cancel()
}

func (s *Session) transition(to State, kind EventKind, note string) {
	tr := Transition{From: s.state, To: to, Event: kind, At: s.clock.Now(), Note: note}

	s.mu.Lock()
	s.state = to
	if tr.From != tr.To {
		s.history = append(s.history, tr)
	}
	s.mu.Unlock()

	if tr.From != tr.To {
		evt := s.logger.Info()
		if to == StateError {
			evt = s.logger.Warn()
		}
		evt.Str(log.FieldOldState, string(tr.From)).
			Str(log.FieldNewState, string(tr.To)).
			Str(log.FieldEvent, kind.String()).
			Str(log.FieldNote, note).
			Msg("playback state changed")
	}
	if s.onTransition != nil {
		s.onTransition(tr)
	}
}

func (s *Session) absorb(ev Event, reason string) {
	s.logger.Debug().
		Str(log.FieldEvent, ev.Kind.String()).
		Str(log.FieldState, string(s.state)).
		Str(log.FieldReason, reason).
		Msg("event absorbed")
}

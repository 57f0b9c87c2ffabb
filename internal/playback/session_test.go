// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/panoview/internal/playback"
	"github.com/ManuGH/panoview/internal/playback/testkit"
)

const clipDuration = 200 * time.Second

func newSession(t *testing.T, rig *testkit.Rig, hint string) *playback.Session {
	t.Helper()
	logger := zerolog.Nop()
	s, err := playback.NewSession(context.Background(), playback.Options{
		VideoID:  "1700000000000-123.mp4",
		Media:    rig.Media,
		Surface:  rig.Surface,
		Overlays: rig.Overlays(),
		Hints:    playback.StaticHint(hint),
		Clock:    rig.Clock,
		Logger:   &logger,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func states(history []playback.Transition) []playback.State {
	if len(history) == 0 {
		return nil
	}
	out := []playback.State{history[0].From}
	for _, tr := range history {
		out = append(out, tr.To)
	}
	return out
}

// toPlaying drives a fresh session through the happy path.
func toPlaying(t *testing.T, s *playback.Session, rig *testkit.Rig) {
	t.Helper()
	s.Start()
	s.Gesture()
	rig.Media.Emit(playback.EvCanStart)
	rig.Media.Emit(playback.EvCanPlayThrough)
	require.Equal(t, playback.StatePlaying, s.State())
}

func TestNewSession_RequiresCollaborators(t *testing.T) {
	_, err := playback.NewSession(context.Background(), playback.Options{Surface: &testkit.FakeSurface{}})
	assert.ErrorIs(t, err, playback.ErrNoMedia)
	_, err = playback.NewSession(context.Background(), playback.Options{Media: testkit.NewFakeMedia("a", 0)})
	assert.ErrorIs(t, err, playback.ErrNoSurface)
}

func TestSession_FastNetworkHappyPath(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "4g")

	snap := s.Snapshot()
	assert.Equal(t, playback.ConnectionFast, snap.Class)
	assert.Equal(t, playback.Policy{BufferMultiplier: 1.5, CriticalTimeout: 10 * time.Second}, snap.Policy)
	assert.Equal(t, playback.StateIdle, snap.State)

	s.Start()
	assert.True(t, rig.Prompt.Visible())
	s.Gesture()
	assert.True(t, rig.Loading.Visible())
	assert.False(t, rig.Prompt.Visible())
	assert.True(t, s.Snapshot().RecoveryArmed)

	rig.Clock.Advance(500 * time.Millisecond)
	rig.Media.Emit(playback.EvCanStart)
	assert.Equal(t, playback.StateBuffering, s.State())
	assert.Equal(t, 1, rig.Surface.Attaches())

	rig.Media.Emit(playback.EvCanPlayThrough)

	want := []playback.State{
		playback.StateIdle,
		playback.StateAwaitingGesture,
		playback.StateLoading,
		playback.StateBuffering,
		playback.StateReady,
		playback.StatePlaying,
	}
	if diff := cmp.Diff(want, states(s.History())); diff != "" {
		t.Fatalf("state sequence mismatch (-want +got):\n%s", diff)
	}

	snap = s.Snapshot()
	assert.True(t, snap.FullyBuffered)
	assert.False(t, snap.RecoveryArmed, "recovery must be disarmed before it fires")
	assert.False(t, snap.Degraded)
	assert.Equal(t, "ready", snap.LoadOutcome)
	assert.Equal(t, 0, rig.Clock.Pending())
	assert.False(t, rig.Loading.Visible())
	assert.False(t, rig.Media.Muted(), "gestured start unmutes")

	rig.Clock.Advance(time.Minute)
	assert.Equal(t, playback.StatePlaying, s.State())
	assert.Equal(t, 1, rig.Media.Plays())
	assert.Equal(t, 1, rig.Surface.Attaches())
}

func TestSession_SlowNetworkDegradedFallback(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "2g")
	assert.Equal(t, playback.Policy{BufferMultiplier: 0.8, CriticalTimeout: 30 * time.Second}, s.Snapshot().Policy)

	s.Start()
	s.Gesture()

	rig.Clock.Advance(playback.DefaultGracePeriod)
	assert.Equal(t, playback.StateBuffering, s.State(), "grace timeout proceeds optimistically")
	assert.Equal(t, "timeout", s.Snapshot().LoadOutcome)

	rig.Clock.Advance(30*time.Second - playback.DefaultGracePeriod - time.Millisecond)
	assert.Equal(t, playback.StateBuffering, s.State())
	assert.Equal(t, 0, rig.Media.Plays())

	rig.Clock.Advance(time.Millisecond)
	snap := s.Snapshot()
	assert.Equal(t, playback.StatePlaying, snap.State)
	assert.False(t, snap.FullyBuffered)
	assert.True(t, snap.Degraded)
	assert.False(t, snap.RecoveryArmed)
	assert.Equal(t, 1, rig.Media.Plays())
	assert.True(t, rig.Surface.HasSource())
	assert.Empty(t, rig.Errors.Errors(), "degraded playback is not surfaced")

	history := s.History()
	last := history[len(history)-1]
	assert.Equal(t, playback.StateBuffering, last.From)
	assert.Equal(t, playback.EvRecoveryFired, last.Event)
	assert.Equal(t, "degraded", last.Note)
}

func TestSession_RecoveryIgnoresAttachFailure(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	rig.Surface.AttachErr = errors.New("webgl context lost")
	s := newSession(t, rig, "")

	s.Start()
	s.Gesture()
	rig.Clock.Advance(15 * time.Second)

	assert.Equal(t, playback.StatePlaying, s.State())
	assert.Empty(t, rig.Errors.Errors())
}

func TestSession_RecoveryPlayRejectedStaysBuffering(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	rig.Media.SetPlayErr(testkit.ErrAutoplayBlocked)
	s := newSession(t, rig, "3g")

	s.Start()
	s.Gesture()
	rig.Clock.Advance(20 * time.Second)

	assert.Equal(t, playback.StateBuffering, s.State())
	assert.True(t, rig.Prompt.Visible(), "rejected start asks for a gesture")
	assert.Empty(t, rig.Errors.Errors())

	rig.Media.SetPlayErr(nil)
	s.Gesture()
	assert.Equal(t, playback.StatePlaying, s.State())
	assert.False(t, rig.Prompt.Visible())
}

func TestSession_NoPlayWithoutGesture(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "4g")
	s.Start()

	for _, kind := range []playback.EventKind{
		playback.EvCanStart,
		playback.EvCanPlayThrough,
		playback.EvPlaying,
		playback.EvWaiting,
		playback.EvSeeked,
		playback.EvTimeUpdate,
		playback.EvProgress,
	} {
		rig.Media.Emit(kind)
	}
	s.Dispatch(playback.Event{Kind: playback.EvRecoveryFired, Token: 1})
	s.Dispatch(playback.Event{Kind: playback.EvGraceElapsed, Token: 1})
	rig.Clock.Advance(time.Hour)

	snap := s.Snapshot()
	assert.False(t, snap.HasUserGestured)
	assert.Equal(t, playback.StateAwaitingGesture, snap.State)
	assert.True(t, snap.FullyBuffered, "signal is remembered for later")
	assert.Equal(t, 0, rig.Media.Plays())
}

func TestSession_NoPlayWithoutGesture_RandomOrderings(t *testing.T) {
	kinds := []playback.EventKind{
		playback.EvStart,
		playback.EvCanStart,
		playback.EvGraceElapsed,
		playback.EvCanPlayThrough,
		playback.EvRecoveryFired,
		playback.EvWaiting,
		playback.EvPlaying,
		playback.EvSeeking,
		playback.EvSeeked,
		playback.EvAbort,
		playback.EvLoadStart,
		playback.EvMetadata,
		playback.EvProgress,
		playback.EvTimeUpdate,
		playback.EvConnectionChange,
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		rig := testkit.NewRig("clip.mp4", clipDuration)
		s := newSession(t, rig, "")
		for j := 0; j < 30; j++ {
			s.Dispatch(playback.Event{Kind: kinds[rng.Intn(len(kinds))], Token: uint64(rng.Intn(3))})
			rig.Clock.Advance(time.Duration(rng.Intn(5000)) * time.Millisecond)
		}
		require.Equal(t, 0, rig.Media.Plays(), "iteration %d", i)
		require.False(t, s.Snapshot().HasUserGestured)
		s.Close()
	}
}

func TestSession_RecoveryNeverActsAfterFullyBuffered(t *testing.T) {
	tests := []struct {
		name string
		at   time.Duration
	}{
		{"during loading", 0},
		{"before grace", 500 * time.Millisecond},
		{"at grace", playback.DefaultGracePeriod},
		{"just before critical timeout", 10*time.Second - time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
			s := newSession(t, rig, "4g")
			s.Start()
			s.Gesture()

			rig.Clock.Advance(tt.at)
			rig.Media.Emit(playback.EvCanPlayThrough)
			assert.False(t, s.Snapshot().RecoveryArmed)

			rig.Clock.Advance(time.Minute)
			snap := s.Snapshot()
			assert.Equal(t, playback.StatePlaying, snap.State)
			assert.False(t, snap.Degraded)
			assert.Equal(t, 1, rig.Media.Plays())
			assert.Equal(t, 1, rig.Surface.Attaches())
		})
	}
}

func TestSession_ReadyWinsTieWithQueuedRecoveryFire(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "4g")
	s.Start()
	s.Gesture()
	rig.Clock.Advance(playback.DefaultGracePeriod)
	require.Equal(t, playback.StateBuffering, s.State())

	// Both become eligible together; the ready signal is observed first.
	rig.Media.Emit(playback.EvCanPlayThrough)
	s.Dispatch(playback.Event{Kind: playback.EvRecoveryFired, Token: 1})

	assert.Equal(t, playback.StatePlaying, s.State())
	assert.False(t, s.Snapshot().Degraded)
	assert.Equal(t, 1, rig.Media.Plays())
}

func TestSession_FullyReadyIsIdempotent(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
		rig.Media.SetPlayErr(testkit.ErrAutoplayBlocked)
		s := newSession(t, rig, "4g")
		s.Start()
		s.Gesture()
		rig.Media.Emit(playback.EvCanStart)
		rig.Media.Emit(playback.EvCanPlayThrough)
		require.Equal(t, playback.StateReady, s.State())

		before, hist, plays := s.Snapshot(), s.History(), rig.Media.Plays()
		rig.Media.Emit(playback.EvCanPlayThrough)
		assert.Equal(t, before, s.Snapshot())
		assert.Equal(t, hist, s.History())
		assert.Equal(t, plays, rig.Media.Plays())
	})
	t.Run("playing", func(t *testing.T) {
		rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
		s := newSession(t, rig, "4g")
		toPlaying(t, s, rig)

		before, hist := s.Snapshot(), s.History()
		rig.Media.Emit(playback.EvCanPlayThrough)
		assert.Equal(t, before, s.Snapshot())
		assert.Equal(t, hist, s.History())
		assert.Equal(t, 1, rig.Media.Plays())
	})
}

func TestSession_PlayRejectedWaitsForGesture(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	rig.Media.SetPlayErr(testkit.ErrAutoplayBlocked)
	s := newSession(t, rig, "4g")
	s.Start()
	s.Gesture()
	rig.Media.Emit(playback.EvCanStart)
	rig.Media.Emit(playback.EvCanPlayThrough)

	assert.Equal(t, playback.StateReady, s.State())
	assert.True(t, rig.Prompt.Visible())
	assert.Empty(t, rig.Errors.Errors(), "rejection is recovered locally")

	rig.Media.SetPlayErr(nil)
	s.Gesture()
	assert.Equal(t, playback.StatePlaying, s.State())
	assert.Equal(t, 2, rig.Media.Plays())

	// A gesture with nothing to retry changes nothing.
	s.Gesture()
	assert.Equal(t, 2, rig.Media.Plays())
}

func TestSession_StallAndResume(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "4g")
	toPlaying(t, s, rig)

	rig.Media.Emit(playback.EvWaiting)
	assert.Equal(t, playback.StateWaiting, s.State())
	assert.True(t, rig.Buffering.Visible())

	rig.Media.Emit(playback.EvPlaying)
	assert.Equal(t, playback.StatePlaying, s.State())
	assert.False(t, rig.Buffering.Visible())

	// Back-to-back delivery applies both transitions.
	rig.Media.Emit(playback.EvWaiting)
	rig.Media.Emit(playback.EvPlaying)
	assert.Equal(t, 2, rig.Buffering.Shows())
	assert.Equal(t, playback.StatePlaying, s.State())
}

func TestSession_SeekDoesNotShowBufferingIndicator(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "4g")
	toPlaying(t, s, rig)

	rig.Media.SetSeeking(true)
	rig.Media.Emit(playback.EvWaiting)
	assert.Equal(t, playback.StatePlaying, s.State(), "stall caused by a seek is absorbed")
	assert.False(t, rig.Buffering.Visible())

	rig.Media.Emit(playback.EvSeeking)
	assert.Equal(t, playback.StateSeeking, s.State())
	rig.Media.Emit(playback.EvWaiting)
	assert.Equal(t, playback.StateSeeking, s.State())

	rig.Media.SetSeeking(false)
	rig.Media.Emit(playback.EvSeeked)
	assert.Equal(t, playback.StatePlaying, s.State())
	assert.False(t, rig.Buffering.Visible())
}

func TestSession_SeekedHidesIndicatorFromWaiting(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "4g")
	toPlaying(t, s, rig)

	rig.Media.Emit(playback.EvWaiting)
	require.True(t, rig.Buffering.Visible())
	rig.Media.Emit(playback.EvSeeked)
	assert.Equal(t, playback.StatePlaying, s.State())
	assert.False(t, rig.Buffering.Visible())
}

func TestSession_EndedIsTerminal(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "4g")
	toPlaying(t, s, rig)

	rig.Media.Emit(playback.EvEnded)
	assert.Equal(t, playback.StateEnded, s.State())
	assert.Equal(t, 1, rig.Controls.Resets())

	hist := s.History()
	rig.Media.Emit(playback.EvPlaying)
	rig.Media.Emit(playback.EvError)
	s.Gesture()
	assert.Equal(t, playback.StateEnded, s.State())
	assert.Equal(t, hist, s.History())
}

func TestSession_FatalErrorDuringLoad(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "4g")
	s.Start()
	s.Gesture()
	require.Equal(t, playback.StateLoading, s.State())
	require.Equal(t, 2, rig.Clock.Pending(), "grace and recovery timers armed")

	mediaErr := errors.New("MEDIA_ERR_SRC_NOT_SUPPORTED")
	rig.Media.EmitEvent(playback.Event{Kind: playback.EvError, Err: mediaErr})

	snap := s.Snapshot()
	assert.Equal(t, playback.StateError, snap.State)
	assert.Equal(t, "failed", snap.LoadOutcome)
	assert.False(t, snap.RecoveryArmed)
	assert.Equal(t, 0, rig.Clock.Pending(), "all timers cancelled")
	assert.ErrorIs(t, s.Err(), mediaErr)
	assert.Equal(t, []error{mediaErr}, rig.Errors.Errors())
	assert.False(t, rig.Loading.Visible())
	assert.False(t, rig.Buffering.Visible())
	assert.False(t, rig.Prompt.Visible())

	hist := s.History()
	for _, kind := range []playback.EventKind{playback.EvCanStart, playback.EvCanPlayThrough, playback.EvPlaying, playback.EvWaiting} {
		rig.Media.Emit(kind)
	}
	s.Gesture()
	rig.Clock.Advance(time.Minute)
	assert.Equal(t, playback.StateError, s.State())
	assert.Equal(t, hist, s.History(), "no further transitions accepted")
	assert.Equal(t, 0, rig.Media.Plays())
}

func TestSession_ErrorWhilePlayingUsesDefaultError(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "4g")
	toPlaying(t, s, rig)
	rig.Media.Emit(playback.EvWaiting)

	rig.Media.Emit(playback.EvError)
	assert.Equal(t, playback.StateError, s.State())
	assert.ErrorIs(t, s.Err(), playback.ErrMedia)
	assert.False(t, rig.Buffering.Visible())
}

func TestSession_CloseCancelsTimers(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "2g")
	s.Start()
	s.Gesture()
	require.Equal(t, 2, rig.Clock.Pending())

	s.Close()
	assert.Equal(t, 0, rig.Clock.Pending())
	assert.False(t, rig.Media.HasSink(), "media listener detached")

	rig.Clock.Advance(time.Hour)
	s.Dispatch(playback.Event{Kind: playback.EvCanPlayThrough})
	assert.Equal(t, playback.StateLoading, s.State())
	assert.Equal(t, 0, rig.Media.Plays())
	s.Close()
}

// strayClock never cancels: Stop reports success but callbacks stay
// available, modelling a timer that already fired when Stop ran.
type strayClock struct {
	mu  sync.Mutex
	fns []func()
}

func (c *strayClock) Now() time.Time { return time.Unix(0, 0) }

func (c *strayClock) AfterFunc(_ time.Duration, f func()) playback.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, f)
	return strayTimer{}
}

func (c *strayClock) fireAll() {
	c.mu.Lock()
	fns := append([]func(){}, c.fns...)
	c.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

type strayTimer struct{}

func (strayTimer) Stop() bool { return true }

func TestSession_LateTimerCallbacksAfterCloseAreNoops(t *testing.T) {
	clock := &strayClock{}
	media := testkit.NewFakeMedia("clip.mp4", clipDuration)
	logger := zerolog.Nop()
	s, err := playback.NewSession(context.Background(), playback.Options{
		Media:   media,
		Surface: &testkit.FakeSurface{},
		Clock:   clock,
		Logger:  &logger,
	})
	require.NoError(t, err)
	s.Start()
	s.Gesture()
	s.Close()

	clock.fireAll()
	assert.Equal(t, playback.StateLoading, s.State())
	assert.Equal(t, 0, media.Plays())
}

func TestSession_StaleTimerTokensIgnoredAfterCancel(t *testing.T) {
	clock := &strayClock{}
	rig := testkit.NewRig("clip.mp4", clipDuration)
	logger := zerolog.Nop()
	s, err := playback.NewSession(context.Background(), playback.Options{
		Media:   rig.Media,
		Surface: rig.Surface,
		Clock:   clock,
		Logger:  &logger,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	s.Start()
	s.Gesture()
	rig.Media.Emit(playback.EvCanStart)
	rig.Media.Emit(playback.EvCanPlayThrough)
	require.Equal(t, playback.StatePlaying, s.State())

	// Both timers were cancelled; their callbacks arriving late change nothing.
	clock.fireAll()
	assert.Equal(t, playback.StatePlaying, s.State())
	assert.False(t, s.Snapshot().Degraded)
	assert.Equal(t, 1, rig.Media.Plays())
}

func TestSession_ReentrantEventsAppliedInOrder(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "4g")
	rig.Media.PlayHook = func() {
		rig.Media.Emit(playback.EvPlaying)
		rig.Media.Emit(playback.EvWaiting)
	}
	toPlayingOrWaiting := func() {
		s.Start()
		s.Gesture()
		rig.Media.Emit(playback.EvCanStart)
		rig.Media.Emit(playback.EvCanPlayThrough)
	}
	toPlayingOrWaiting()

	want := []playback.State{
		playback.StateIdle,
		playback.StateAwaitingGesture,
		playback.StateLoading,
		playback.StateBuffering,
		playback.StateReady,
		playback.StatePlaying,
		playback.StateWaiting,
	}
	if diff := cmp.Diff(want, states(s.History())); diff != "" {
		t.Fatalf("state sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_OptimizerRunsOnTimeUpdate(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "")
	toPlaying(t, s, rig)

	rig.Media.SetBuffered(playback.TimeRange{Start: 0, End: 20 * time.Second})
	rig.Media.Emit(playback.EvTimeUpdate)
	assert.Equal(t, playback.PreloadAuto, s.Snapshot().Preload)

	rig.Media.SetBuffered(playback.TimeRange{Start: 0, End: 25 * time.Second})
	rig.Media.Emit(playback.EvTimeUpdate)
	rig.Media.Emit(playback.EvConnectionChange)
	assert.Equal(t, playback.PreloadMetadata, s.Snapshot().Preload)
	assert.Equal(t, []playback.PreloadHint{playback.PreloadAuto, playback.PreloadMetadata, playback.PreloadMetadata}, rig.Media.Preloads())
}

func TestSession_OptimizerIdleBeforeAttach(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "")
	s.Start()
	s.Gesture()
	rig.Media.Emit(playback.EvTimeUpdate)
	assert.Empty(t, rig.Media.Preloads())
}

func TestSession_LoadingProgress(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "")
	s.Start()
	s.Gesture()

	p, ok := rig.Loading.LastProgress()
	require.True(t, ok)
	assert.Equal(t, playback.StagePreparing, p.Stage)

	rig.Media.Emit(playback.EvLoadStart)
	p, _ = rig.Loading.LastProgress()
	assert.Equal(t, playback.StageInitializing, p.Stage)

	rig.Media.SetBuffered(playback.TimeRange{Start: 0, End: 50 * time.Second})
	rig.Media.Emit(playback.EvProgress)
	p, _ = rig.Loading.LastProgress()
	assert.Equal(t, playback.StageBuffering, p.Stage)
	assert.InDelta(t, 25.0, p.Percent, 0.001)
	assert.Equal(t, 50*time.Second, p.Buffered)
}

func TestSession_OnTransitionObserver(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	var seen []playback.State
	logger := zerolog.Nop()
	s, err := playback.NewSession(context.Background(), playback.Options{
		Media:        rig.Media,
		Surface:      rig.Surface,
		Clock:        rig.Clock,
		Logger:       &logger,
		OnTransition: func(tr playback.Transition) { seen = append(seen, tr.To) },
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	s.Start()
	s.Gesture()
	assert.Equal(t, []playback.State{playback.StateAwaitingGesture, playback.StateLoading}, seen)
}

func TestSession_RealClockNoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	media := testkit.NewFakeMedia("clip.mp4", clipDuration)
	logger := zerolog.Nop()
	s, err := playback.NewSession(context.Background(), playback.Options{
		Media:       media,
		Surface:     &testkit.FakeSurface{},
		GracePeriod: 20 * time.Millisecond,
		Logger:      &logger,
	})
	require.NoError(t, err)

	s.Start()
	s.Gesture()
	require.Eventually(t, func() bool {
		return s.State() == playback.StateBuffering
	}, time.Second, 5*time.Millisecond, "grace timer fires on the real clock")

	s.Close()
	assert.False(t, s.Snapshot().RecoveryArmed)
}

func TestSession_ConcurrentDispatch(t *testing.T) {
	rig := testkit.NewRig("/assets/videos/clip.mp4", clipDuration)
	s := newSession(t, rig, "4g")
	toPlaying(t, s, rig)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rig.Media.Emit(playback.EvTimeUpdate)
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, playback.StatePlaying, s.State())
	assert.Len(t, rig.Media.Preloads(), 800)
}

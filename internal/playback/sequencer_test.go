// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/panoview/internal/playback"
	"github.com/ManuGH/panoview/internal/playback/testkit"
)

func newSequencer(t *testing.T) (*playback.LoadSequencer, *testkit.FakeClock, *testkit.FakeMedia, *[]uint64) {
	t.Helper()
	rig := testkit.NewRig("clip.mp4", time.Minute)
	seq := playback.NewLoadSequencer(rig.Media, rig.Clock, 0)
	var fired []uint64
	require.True(t, seq.Begin(func(token uint64) { fired = append(fired, token) }))
	return seq, rig.Clock, rig.Media, &fired
}

func TestLoadSequencer_BeginReloadsAndMutes(t *testing.T) {
	seq, clock, media, _ := newSequencer(t)
	assert.Equal(t, 1, media.Loads())
	assert.True(t, media.Muted())
	assert.True(t, seq.Pending())
	assert.Equal(t, 1, clock.Pending())

	assert.False(t, seq.Begin(func(uint64) {}), "second Begin must be ignored")
	assert.Equal(t, 1, media.Loads())
}

func TestLoadSequencer_ReadyBeatsGrace(t *testing.T) {
	seq, clock, _, fired := newSequencer(t)
	clock.Advance(500 * time.Millisecond)

	outcome, ok := seq.Resolve(playback.Event{Kind: playback.EvCanStart})
	require.True(t, ok)
	assert.Equal(t, playback.OutcomeReady, outcome)
	assert.Equal(t, 0, clock.Pending(), "grace timer must be stopped")

	clock.Advance(10 * time.Second)
	assert.Empty(t, *fired)

	_, ok = seq.Resolve(playback.Event{Kind: playback.EvCanStart})
	assert.False(t, ok, "outcome is single-fire")
}

func TestLoadSequencer_GraceTimeoutIsNotAnError(t *testing.T) {
	seq, clock, _, fired := newSequencer(t)
	clock.Advance(playback.DefaultGracePeriod)
	require.Len(t, *fired, 1)

	outcome, ok := seq.Resolve(playback.Event{Kind: playback.EvGraceElapsed, Token: (*fired)[0]})
	require.True(t, ok)
	assert.Equal(t, playback.OutcomeTimeout, outcome)
	assert.Equal(t, "timeout", seq.Outcome().String())

	_, ok = seq.Resolve(playback.Event{Kind: playback.EvCanStart})
	assert.False(t, ok, "late ready signal must not resolve twice")
}

func TestLoadSequencer_ErrorIsDistinctFailure(t *testing.T) {
	seq, clock, _, _ := newSequencer(t)
	outcome, ok := seq.Resolve(playback.Event{Kind: playback.EvError})
	require.True(t, ok)
	assert.Equal(t, playback.OutcomeFailed, outcome)
	assert.NotEqual(t, playback.OutcomeTimeout, outcome)
	assert.Equal(t, 0, clock.Pending())
}

func TestLoadSequencer_StaleGraceTokenIgnored(t *testing.T) {
	seq, _, _, _ := newSequencer(t)
	_, ok := seq.Resolve(playback.Event{Kind: playback.EvGraceElapsed, Token: 42})
	assert.False(t, ok)
	assert.True(t, seq.Pending())
}

func TestLoadSequencer_CancelStopsTimerAndResolution(t *testing.T) {
	seq, clock, _, fired := newSequencer(t)
	seq.Cancel()
	assert.Equal(t, 0, clock.Pending())
	assert.False(t, seq.Pending())

	clock.Advance(time.Minute)
	assert.Empty(t, *fired)
	_, ok := seq.Resolve(playback.Event{Kind: playback.EvCanStart})
	assert.False(t, ok)
	assert.Equal(t, playback.OutcomePending, seq.Outcome())
}

func TestLoadSequencer_CustomGrace(t *testing.T) {
	rig := testkit.NewRig("clip.mp4", time.Minute)
	seq := playback.NewLoadSequencer(rig.Media, rig.Clock, 5*time.Second)
	fired := 0
	seq.Begin(func(uint64) { fired++ })
	rig.Clock.Advance(3 * time.Second)
	assert.Equal(t, 0, fired)
	rig.Clock.Advance(2 * time.Second)
	assert.Equal(t, 1, fired)
}

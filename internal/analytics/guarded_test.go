// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/panoview/internal/resilience"
)

func TestGuardedRedisTripsAndRecovers(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	rs, err := OpenRedis(ctx, RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })

	g := newGuarded(rs, "redis_test", 2, 50*time.Millisecond)
	require.NoError(t, g.Track(ctx, "a.mp4", time.Now()))

	// Invalid input never trips the breaker.
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, g.Track(ctx, "", time.Now()), ErrInvalidVideo)
	}
	assert.Equal(t, resilience.StateClosed, g.cb.State())

	mr.Close()
	require.Error(t, g.Ping(ctx))
	require.Error(t, g.Ping(ctx))
	assert.Equal(t, resilience.StateOpen, g.cb.State())

	_, err = g.Total(ctx)
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)

	require.NoError(t, mr.Restart())
	require.Eventually(t, func() bool {
		return g.Ping(ctx) == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, resilience.StateClosed, g.cb.State())
}

func TestOpenGuardsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := Open(context.Background(), Config{Backend: BackendRedis, Redis: RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, BackendRedis, Backend(s))
	inner := s.(*instrumented).Store
	_, ok := inner.(*guarded)
	assert.True(t, ok)
}

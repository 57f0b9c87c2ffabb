// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/panoview/internal/resilience"
)

// Breaker settings for remote backends.
const (
	breakerThreshold = 5
	breakerReset     = 30 * time.Second
)

// guarded fails fast while a remote backend is unreachable, so the viewer
// page does not stall on every request during a Redis outage.
type guarded struct {
	Store
	cb *resilience.CircuitBreaker
}

func newGuarded(s Store, name string, threshold int, reset time.Duration) *guarded {
	return &guarded{
		Store: s,
		cb: resilience.NewCircuitBreaker("analytics_"+name, threshold, reset,
			resilience.WithIgnoredErrors(func(err error) bool {
				return errors.Is(err, ErrInvalidVideo) || errors.Is(err, context.Canceled)
			})),
	}
}

func (g *guarded) Track(ctx context.Context, video string, at time.Time) error {
	return g.cb.Execute(func() error { return g.Store.Track(ctx, video, at) })
}

func (g *guarded) Stats(ctx context.Context, video string) (Stats, error) {
	var st Stats
	err := g.cb.Execute(func() error {
		var err error
		st, err = g.Store.Stats(ctx, video)
		return err
	})
	return st, err
}

func (g *guarded) Total(ctx context.Context) (int64, error) {
	var n int64
	err := g.cb.Execute(func() error {
		var err error
		n, err = g.Store.Total(ctx)
		return err
	})
	return n, err
}

func (g *guarded) Ping(ctx context.Context) error {
	return g.cb.Execute(func() error { return g.Store.Ping(ctx) })
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package httpmedia

import (
	"golang.org/x/time/rate"

	"github.com/ManuGH/panoview/internal/playback"
)

// Profile throttles the download to approximate a connection class.
type Profile struct {
	Class playback.ConnectionClass
	// BytesPerSecond is the sustained rate. rate.Inf disables throttling.
	BytesPerSecond rate.Limit
	// Burst is the largest single read in bytes.
	Burst int
}

var profiles = map[playback.ConnectionClass]Profile{
	playback.ConnectionFast:    {Class: playback.ConnectionFast, BytesPerSecond: rate.Inf, Burst: 256 << 10},
	playback.ConnectionMedium:  {Class: playback.ConnectionMedium, BytesPerSecond: 750 << 10, Burst: 64 << 10},
	playback.ConnectionSlow:    {Class: playback.ConnectionSlow, BytesPerSecond: 64 << 10, Burst: 16 << 10},
	playback.ConnectionUnknown: {Class: playback.ConnectionUnknown, BytesPerSecond: 2 << 20, Burst: 64 << 10},
}

// ProfileFor returns the throttle profile of c. Unrecognised classes get the
// unknown row.
func ProfileFor(c playback.ConnectionClass) Profile {
	if p, ok := profiles[c]; ok {
		return p
	}
	return profiles[playback.ConnectionUnknown]
}

func (p Profile) limiter() *rate.Limiter {
	burst := p.Burst
	if burst <= 0 {
		burst = defaultChunkSize
	}
	limit := p.BytesPerSecond
	if limit <= 0 {
		limit = rate.Inf
	}
	return rate.NewLimiter(limit, burst)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import "time"

// Policy holds the loading tunables derived from the connection class.
type Policy struct {
	BufferMultiplier float64
	CriticalTimeout  time.Duration
}

var policyTable = map[ConnectionClass]Policy{
	ConnectionFast:    {BufferMultiplier: 1.5, CriticalTimeout: 10 * time.Second},
	ConnectionMedium:  {BufferMultiplier: 1.0, CriticalTimeout: 20 * time.Second},
	ConnectionSlow:    {BufferMultiplier: 0.8, CriticalTimeout: 30 * time.Second},
	ConnectionUnknown: {BufferMultiplier: 1.2, CriticalTimeout: 15 * time.Second},
}

// PolicyFor returns the policy for c. Unrecognised classes get the unknown row.
func PolicyFor(c ConnectionClass) Policy {
	if p, ok := policyTable[c]; ok {
		return p
	}
	return policyTable[ConnectionUnknown]
}

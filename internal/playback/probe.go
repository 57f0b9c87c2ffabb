// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import "strings"

// ConnectionClass is the coarse network quality observed at session start.
type ConnectionClass string

const (
	ConnectionFast    ConnectionClass = "fast"
	ConnectionMedium  ConnectionClass = "medium"
	ConnectionSlow    ConnectionClass = "slow"
	ConnectionUnknown ConnectionClass = "unknown"
)

// HintProvider exposes an optional effective connection type
// ("4g", "3g", "2g", "slow-2g").
type HintProvider interface {
	EffectiveType() (string, bool)
}

// HintFunc adapts a function to HintProvider.
type HintFunc func() (string, bool)

func (f HintFunc) EffectiveType() (string, bool) { return f() }

// StaticHint is a fixed effective type. The empty string means no hint.
type StaticHint string

func (h StaticHint) EffectiveType() (string, bool) { return string(h), h != "" }

// ProbeConnection classifies the provider's hint. A missing provider or an
// unrecognised hint yields ConnectionUnknown.
func ProbeConnection(p HintProvider) ConnectionClass {
	if p == nil {
		return ConnectionUnknown
	}
	hint, ok := p.EffectiveType()
	if !ok {
		return ConnectionUnknown
	}
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "4g":
		return ConnectionFast
	case "3g":
		return ConnectionMedium
	case "2g", "slow-2g":
		return ConnectionSlow
	default:
		return ConnectionUnknown
	}
}

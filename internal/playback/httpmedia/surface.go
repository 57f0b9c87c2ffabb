// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package httpmedia

import (
	"errors"
	"sync"
)

var ErrEmptySource = errors.New("httpmedia: empty source")

// Surface is a headless render target that records the attached source.
type Surface struct {
	mu      sync.Mutex
	source  string
	attachs int
}

func (s *Surface) Attach(source string) error {
	if source == "" {
		return ErrEmptySource
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = source
	s.attachs++
	return nil
}

func (s *Surface) HasSource() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source != ""
}

// Source returns the attached source and how often Attach succeeded.
func (s *Surface) Source() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source, s.attachs
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
)

// JSONStore keeps {video: {day: count}} in memory and rewrites the whole
// file atomically after every change.
type JSONStore struct {
	mu     sync.Mutex
	path   string
	data   map[string]map[string]int64
	closed bool
}

// OpenJSON loads path, or starts empty when it does not exist.
func OpenJSON(path string) (*JSONStore, error) {
	if path == "" {
		return nil, errors.New("json analytics: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("json analytics: create dir: %w", err)
	}
	s := &JSONStore{path: path, data: map[string]map[string]int64{}}

	// #nosec G304 -- path comes from operator configuration
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("json analytics: read %s: %w", path, err)
	case len(raw) == 0:
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("json analytics: decode %s: %w", path, err)
	}
	if s.data == nil {
		s.data = map[string]map[string]int64{}
	}
	return s, nil
}

func (s *JSONStore) persistLocked() error {
	buf, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(s.path, buf, 0o600)
}

func (s *JSONStore) Track(_ context.Context, video string, at time.Time) error {
	if err := checkVideo(video); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	days := s.data[video]
	if days == nil {
		days = map[string]int64{}
		s.data[video] = days
	}
	day := Day(at)
	days[day]++
	if err := s.persistLocked(); err != nil {
		days[day]--
		return fmt.Errorf("json analytics: persist: %w", err)
	}
	return nil
}

func (s *JSONStore) Stats(_ context.Context, video string) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Stats{}, ErrClosed
	}
	st := emptyStats(video)
	for day, n := range s.data[video] {
		st.DailyViews[day] = n
		st.TotalViews += n
	}
	return st, nil
}

func (s *JSONStore) Total(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	var total int64
	for _, days := range s.data {
		for _, n := range days {
			total += n
		}
	}
	return total, nil
}

func (s *JSONStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

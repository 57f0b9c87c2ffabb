// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	maxRecentLogs   = 200
	maxLineBytes    = 16 * 1024
	maxPartialBytes = 64 * 1024
)

// LogEntry is a parsed log line kept for the admin panel.
type LogEntry struct {
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"time"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// BufferMetrics counts lines the recent-logs buffer refused.
type BufferMetrics struct {
	DroppedPartialOverflow uint64 `json:"dropped_partial_overflow"`
	DroppedTooLargeLines   uint64 `json:"dropped_too_large_lines"`
	DroppedIrrelevant      uint64 `json:"dropped_irrelevant"`
	DroppedMalformed       uint64 `json:"dropped_malformed"`
}

var (
	recentMu  sync.Mutex
	recent    []LogEntry
	bufMetric BufferMetrics
)

var relevantEventPrefixes = []string{"request.", "video.", "admin.", "config."}

// structuredBufferWriter frames zerolog JSON output into lines and keeps the
// relevant ones in a bounded ring.
type structuredBufferWriter struct {
	mu      sync.Mutex
	partial bytes.Buffer
}

func (w *structuredBufferWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	data := p
	for len(data) > 0 {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			if w.partial.Len()+len(data) > maxPartialBytes {
				w.partial.Reset()
				recentMu.Lock()
				bufMetric.DroppedPartialOverflow++
				recentMu.Unlock()
				return len(p), nil
			}
			w.partial.Write(data)
			break
		}
		w.partial.Write(data[:idx])
		line := append([]byte(nil), w.partial.Bytes()...)
		w.partial.Reset()
		data = data[idx+1:]
		ingestLine(line)
	}
	return len(p), nil
}

// WriteLevel lets the writer sit in a zerolog.MultiLevelWriter.
func (w *structuredBufferWriter) WriteLevel(_ zerolog.Level, p []byte) (int, error) {
	return w.Write(p)
}

func ingestLine(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	recentMu.Lock()
	defer recentMu.Unlock()

	if len(line) > maxLineBytes {
		bufMetric.DroppedTooLargeLines++
		return
	}
	var fields map[string]any
	if err := json.Unmarshal(line, &fields); err != nil {
		bufMetric.DroppedMalformed++
		return
	}
	if !isRelevant(fields) {
		bufMetric.DroppedIrrelevant++
		return
	}

	entry := LogEntry{Fields: map[string]any{}}
	for k, v := range fields {
		switch k {
		case zerolog.LevelFieldName:
			entry.Level, _ = v.(string)
		case zerolog.MessageFieldName:
			entry.Message, _ = v.(string)
		case zerolog.TimestampFieldName:
			if s, ok := v.(string); ok {
				entry.Timestamp, _ = time.Parse(time.RFC3339, s)
			}
		default:
			entry.Fields[k] = v
		}
	}
	recent = append(recent, entry)
	if len(recent) > maxRecentLogs {
		recent = recent[len(recent)-maxRecentLogs:]
	}
}

func isRelevant(fields map[string]any) bool {
	if level, _ := fields[zerolog.LevelFieldName].(string); level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil && parsed >= zerolog.WarnLevel {
			return true
		}
	}
	if component, _ := fields[FieldComponent].(string); component == "audit" {
		return true
	}
	event, _ := fields[FieldEvent].(string)
	for _, prefix := range relevantEventPrefixes {
		if strings.HasPrefix(event, prefix) {
			return true
		}
	}
	return false
}

// GetRecentLogs returns a copy of the buffered entries, oldest first.
func GetRecentLogs() []LogEntry {
	recentMu.Lock()
	defer recentMu.Unlock()
	out := make([]LogEntry, len(recent))
	copy(out, recent)
	return out
}

// ClearRecentLogs empties the buffer and resets its counters.
func ClearRecentLogs() {
	recentMu.Lock()
	defer recentMu.Unlock()
	recent = nil
	bufMetric = BufferMetrics{}
}

// GetBufferMetrics returns the drop counters.
func GetBufferMetrics() BufferMetrics {
	recentMu.Lock()
	defer recentMu.Unlock()
	return bufMetric
}

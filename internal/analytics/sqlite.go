// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/panoview/internal/persistence/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS views (
	video TEXT NOT NULL,
	day   TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (video, day)
)`

// SQLiteStore keeps one row per video and day.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("sqlite analytics: create dir: %w", err)
	}
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite analytics: migrate: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path is the database file.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Track(ctx context.Context, video string, at time.Time) error {
	if err := checkVideo(video); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO views (video, day, count) VALUES (?, ?, 1)
		ON CONFLICT (video, day) DO UPDATE SET count = count + 1`,
		video, Day(at))
	if err != nil {
		return fmt.Errorf("sqlite analytics: track: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context, video string) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day, count FROM views WHERE video = ?`, video)
	if err != nil {
		return Stats{}, fmt.Errorf("sqlite analytics: stats: %w", err)
	}
	defer rows.Close()

	st := emptyStats(video)
	for rows.Next() {
		var (
			day string
			n   int64
		)
		if err := rows.Scan(&day, &n); err != nil {
			return Stats{}, fmt.Errorf("sqlite analytics: scan: %w", err)
		}
		st.DailyViews[day] = n
		st.TotalViews += n
	}
	return st, rows.Err()
}

func (s *SQLiteStore) Total(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(count), 0) FROM views`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sqlite analytics: total: %w", err)
	}
	return total, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package library stores uploaded 360° videos in a flat directory and lists them.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ManuGH/panoview/internal/fsutil"
	"github.com/ManuGH/panoview/internal/log"
	"github.com/ManuGH/panoview/internal/metrics"
	"github.com/google/renameio/v2"
)

// URLPrefix is where stored videos are served.
const URLPrefix = "/assets/videos/"

var (
	ErrNotFound        = errors.New("video not found")
	ErrInvalidName     = errors.New("invalid video name")
	ErrUnsupportedType = errors.New("unsupported video type")
	ErrTooLarge        = errors.New("video exceeds upload limit")
	ErrEmpty           = errors.New("empty upload")
)

// Video describes a stored video.
type Video struct {
	Filename string    `json:"filename"`
	URL      string    `json:"url"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modTime"`
}

// Config configures a Library.
type Config struct {
	Dir               string
	AllowedExtensions []string
}

// Library manages the video directory.
type Library struct {
	dir     string
	allowed []string
	now     func() time.Time
	randN   func(n int64) int64
}

// New creates the video directory if needed.
func New(cfg Config) (*Library, error) {
	if cfg.Dir == "" {
		return nil, errors.New("library: video directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("library: create %s: %w", cfg.Dir, err)
	}
	allowed := make([]string, 0, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed = append(allowed, strings.ToLower(ext))
	}
	return &Library{
		dir:     cfg.Dir,
		allowed: allowed,
		now:     time.Now,
		randN:   rand.Int64N,
	}, nil
}

// Dir returns the video directory.
func (l *Library) Dir() string { return l.dir }

func (l *Library) allowedExt(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	return ext, ext != "" && slices.Contains(l.allowed, ext)
}

// resolve validates a stored name and returns its confined path.
func (l *Library) resolve(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if _, ok := l.allowedExt(name); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, name)
	}
	p, err := fsutil.ConfineName(l.dir, name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return p, nil
}

func videoFrom(info os.FileInfo) Video {
	return Video{
		Filename: info.Name(),
		URL:      URLPrefix + path.Base(info.Name()),
		Size:     info.Size(),
		ModTime:  info.ModTime().UTC(),
	}
}

// List returns allowed regular files, newest first.
func (l *Library) List(ctx context.Context) ([]Video, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("library: read dir: %w", err)
	}

	videos := make([]Video, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, ok := l.allowedExt(e.Name()); !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		videos = append(videos, videoFrom(info))
	}

	slices.SortFunc(videos, func(a, b Video) int {
		if c := b.ModTime.Compare(a.ModTime); c != 0 {
			return c
		}
		return strings.Compare(b.Filename, a.Filename)
	})

	var total int64
	for _, v := range videos {
		total += v.Size
	}
	metrics.SetLibrarySize(len(videos), total)
	return videos, nil
}

// Stat describes one stored video.
func (l *Library) Stat(_ context.Context, name string) (Video, error) {
	p, err := l.resolve(name)
	if err != nil {
		return Video{}, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Video{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Video{}, fmt.Errorf("library: stat %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return Video{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return videoFrom(info), nil
}

// Exists reports whether name is a stored video.
func (l *Library) Exists(ctx context.Context, name string) bool {
	_, err := l.Stat(ctx, name)
	return err == nil
}

// Open returns the stored file for serving.
func (l *Library) Open(name string) (*os.File, error) {
	p, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- p is confined to the video directory
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return f, nil
}

// storedName builds "<unix-ms>-<random>" plus the lowercased extension.
func (l *Library) storedName(ext string) string {
	return fmt.Sprintf("%d-%d%s", l.now().UnixMilli(), l.randN(1_000_000_000), ext)
}

// Save stores r under a generated name. originalName only contributes its
// extension. More than limit bytes fails with ErrTooLarge and leaves nothing behind.
func (l *Library) Save(ctx context.Context, originalName string, r io.Reader, limit int64) (Video, error) {
	ext, ok := l.allowedExt(fsutil.NormalizeName(originalName))
	if !ok {
		return Video{}, fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(originalName))
	}

	name := l.storedName(ext)
	target, err := l.resolve(name)
	if err != nil {
		return Video{}, err
	}

	pf, err := renameio.NewPendingFile(target, renameio.WithPermissions(0o640))
	if err != nil {
		return Video{}, fmt.Errorf("library: create pending file: %w", err)
	}
	defer func() { _ = pf.Cleanup() }()

	n, err := io.Copy(pf, io.LimitReader(&ctxReader{ctx: ctx, r: r}, limit+1))
	if err != nil {
		return Video{}, fmt.Errorf("library: write %s: %w", name, err)
	}
	if n > limit {
		return Video{}, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, limit)
	}
	if n == 0 {
		return Video{}, ErrEmpty
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return Video{}, fmt.Errorf("library: commit %s: %w", name, err)
	}

	log.FromContext(ctx).Info().
		Str(log.FieldEvent, log.EventVideoUploaded).
		Str(log.FieldVideo, name).
		Int64(log.FieldBytes, n).
		Msg("video stored")
	return l.Stat(ctx, name)
}

// Delete removes a stored video.
func (l *Library) Delete(ctx context.Context, name string) error {
	p, err := l.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("library: delete %s: %w", name, err)
	}
	log.FromContext(ctx).Info().
		Str(log.FieldEvent, log.EventVideoDeleted).
		Str(log.FieldVideo, name).
		Msg("video deleted")
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

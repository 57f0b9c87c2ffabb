// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := New(Config{
		Dir:               filepath.Join(t.TempDir(), "videos"),
		AllowedExtensions: []string{".mp4", ".WEBM"},
	})
	require.NoError(t, err)
	return lib
}

func writeVideo(t *testing.T, lib *Library, name string, mod time.Time) {
	t.Helper()
	p := filepath.Join(lib.Dir(), name)
	require.NoError(t, os.WriteFile(p, []byte("data-"+name), 0o600))
	require.NoError(t, os.Chtimes(p, mod, mod))
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestListNewestFirstAndFiltered(t *testing.T) {
	lib := newTestLibrary(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	writeVideo(t, lib, "old.mp4", base)
	writeVideo(t, lib, "new.webm", base.Add(time.Hour))
	writeVideo(t, lib, "notes.txt", base.Add(2*time.Hour))
	writeVideo(t, lib, ".hidden.mp4", base.Add(3*time.Hour))
	require.NoError(t, os.Mkdir(filepath.Join(lib.Dir(), "dir.mp4"), 0o750))

	videos, err := lib.List(context.Background())
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "new.webm", videos[0].Filename)
	assert.Equal(t, "/assets/videos/new.webm", videos[0].URL)
	assert.Equal(t, "old.mp4", videos[1].Filename)
	assert.Equal(t, int64(len("data-old.mp4")), videos[1].Size)
}

func TestListEmpty(t *testing.T) {
	lib := newTestLibrary(t)
	videos, err := lib.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, videos)
	assert.NotNil(t, videos)
}

func TestListCancelled(t *testing.T) {
	lib := newTestLibrary(t)
	writeVideo(t, lib, "a.mp4", time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lib.List(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSaveGeneratesName(t *testing.T) {
	lib := newTestLibrary(t)
	lib.now = func() time.Time { return time.UnixMilli(1700000000123) }
	lib.randN = func(int64) int64 { return 42 }

	v, err := lib.Save(context.Background(), "My Trip.MP4", strings.NewReader("payload"), 1024)
	require.NoError(t, err)
	assert.Equal(t, "1700000000123-42.mp4", v.Filename)
	assert.Equal(t, "/assets/videos/1700000000123-42.mp4", v.URL)
	assert.Equal(t, int64(7), v.Size)

	got, err := os.ReadFile(filepath.Join(lib.Dir(), v.Filename))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestSaveRejectsType(t *testing.T) {
	lib := newTestLibrary(t)
	_, err := lib.Save(context.Background(), "evil.exe", strings.NewReader("x"), 10)
	require.ErrorIs(t, err, ErrUnsupportedType)
	_, err = lib.Save(context.Background(), "noext", strings.NewReader("x"), 10)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSaveTooLargeLeavesNothing(t *testing.T) {
	lib := newTestLibrary(t)
	_, err := lib.Save(context.Background(), "big.mp4", strings.NewReader("0123456789"), 5)
	require.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(lib.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveExactLimit(t *testing.T) {
	lib := newTestLibrary(t)
	v, err := lib.Save(context.Background(), "a.mp4", strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Size)
}

func TestSaveEmptyRejected(t *testing.T) {
	lib := newTestLibrary(t)
	_, err := lib.Save(context.Background(), "a.mp4", strings.NewReader(""), 5)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestStatOpenDelete(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()
	writeVideo(t, lib, "clip.mp4", time.Now())

	v, err := lib.Stat(ctx, "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", v.Filename)
	assert.True(t, lib.Exists(ctx, "clip.mp4"))

	f, err := lib.Open("clip.mp4")
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "data-clip.mp4", string(body))

	require.NoError(t, lib.Delete(ctx, "clip.mp4"))
	assert.False(t, lib.Exists(ctx, "clip.mp4"))
	require.ErrorIs(t, lib.Delete(ctx, "clip.mp4"), ErrNotFound)
	_, err = lib.Open("clip.mp4")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNamesConfined(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()
	for _, name := range []string{"../x.mp4", "a/b.mp4", ".mp4", "", "..", `a\b.mp4`} {
		err := lib.Delete(ctx, name)
		assert.Error(t, err, name)
		assert.NotErrorIs(t, err, ErrNotFound, name)
	}
	_, err := lib.Stat(ctx, "clip.txt")
	require.ErrorIs(t, err, ErrUnsupportedType)
}

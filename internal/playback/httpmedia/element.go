// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package httpmedia implements playback.Media on top of a throttled HTTP
// download, so a playback session can be driven without a browser.
package httpmedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/panoview/internal/log"
	"github.com/ManuGH/panoview/internal/playback"
)

const (
	defaultChunkSize      = 32 << 10
	defaultBitrate        = 4_000_000 // bits per second
	defaultStartThreshold = 2 * time.Second
	defaultTickInterval   = 250 * time.Millisecond
	defaultHeaderTimeout  = 10 * time.Second
)

var (
	ErrNoURL      = errors.New("httpmedia: source url is required")
	ErrHTTPStatus = errors.New("httpmedia: unexpected http status")
	ErrClosed     = errors.New("httpmedia: element closed")
	ErrFailed     = errors.New("httpmedia: media failed to load")
)

// Options configures an Element.
type Options struct {
	URL     string
	Client  *http.Client
	Profile Profile
	// Duration is the known media duration. Zero estimates it from
	// Content-Length and Bitrate.
	Duration time.Duration
	// Bitrate in bits per second, used for the duration estimate.
	Bitrate int64
	// StartThreshold is how much media must be buffered before can-start.
	StartThreshold time.Duration
	TickInterval   time.Duration
	ChunkSize      int
	Logger         *zerolog.Logger
}

func normalizeOptions(opts Options) Options {
	if opts.Client == nil {
		opts.Client = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: defaultHeaderTimeout,
				TLSHandshakeTimeout:   5 * time.Second,
			},
		}
	}
	if opts.Profile.Class == "" {
		opts.Profile = ProfileFor(playback.ConnectionUnknown)
	}
	if opts.Bitrate <= 0 {
		opts.Bitrate = defaultBitrate
	}
	if opts.StartThreshold <= 0 {
		opts.StartThreshold = defaultStartThreshold
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	return opts
}

type phase int

const (
	phaseStopped phase = iota
	phaseStarting
	phaseRunning
	phaseStalled
)

// Element is a headless media element. Events are delivered on the download
// and ticker goroutines, never while the element's lock is held.
type Element struct {
	opts    Options
	limiter *rate.Limiter
	chunk   int
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	sink       func(playback.Event)
	muted      bool
	preload    playback.PreloadHint
	seeking    bool
	phase      phase
	position   time.Duration
	duration   time.Duration
	total      int64
	downloaded int64
	started    time.Time
	complete   bool
	failed     bool
	canStart   bool
	canThrough bool
	loadGen    uint64
	loadCancel context.CancelFunc
	ticking    bool
	closed     bool
}

var _ playback.Media = (*Element)(nil)

// New returns an idle element. Nothing is fetched until Load.
func New(opts Options) (*Element, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, ErrNoURL
	}
	opts = normalizeOptions(opts)

	var logger zerolog.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	} else {
		logger = log.WithComponent("httpmedia")
	}

	limiter := opts.Profile.limiter()
	chunk := min(opts.ChunkSize, limiter.Burst())

	ctx, cancel := context.WithCancel(context.Background())
	return &Element{
		opts:     opts,
		limiter:  limiter,
		chunk:    chunk,
		logger:   logger.With().Str("source", opts.URL).Str(log.FieldConnectionClass, string(opts.Profile.Class)).Logger(),
		ctx:      ctx,
		cancel:   cancel,
		duration: opts.Duration,
		total:    -1,
	}, nil
}

// Load restarts the download from the beginning. A download in flight is
// cancelled silently.
func (e *Element) Load() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if e.loadCancel != nil {
		e.loadCancel()
	}
	ctx, cancel := context.WithCancel(e.ctx)
	e.loadCancel = cancel
	e.loadGen++
	gen := e.loadGen

	e.phase = phaseStopped
	e.position = 0
	e.duration = e.opts.Duration
	e.total = -1
	e.downloaded = 0
	e.complete = false
	e.failed = false
	e.canStart = false
	e.canThrough = false

	startTicker := !e.ticking
	e.ticking = true
	e.wg.Add(1)
	if startTicker {
		e.wg.Add(1)
	}
	e.mu.Unlock()

	go e.download(ctx, gen)
	if startTicker {
		go e.tick()
	}
}

func (e *Element) download(ctx context.Context, gen uint64) {
	defer e.wg.Done()

	e.emitFor(gen, playback.EvLoadStart, nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.opts.URL, nil)
	if err != nil {
		e.fail(gen, fmt.Errorf("httpmedia: build request: %w", err))
		return
	}
	resp, err := e.opts.Client.Do(req)
	if err != nil {
		e.interrupted(ctx, gen, fmt.Errorf("httpmedia: fetch: %w", err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.fail(gen, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode))
		return
	}

	e.mu.Lock()
	if gen != e.loadGen {
		e.mu.Unlock()
		return
	}
	e.total = resp.ContentLength
	if e.duration <= 0 && e.total > 0 {
		e.duration = e.estimate(e.total)
	}
	e.started = time.Now()
	duration := e.duration
	e.mu.Unlock()

	e.logger.Debug().
		Int64("content_length", resp.ContentLength).
		Dur("duration", duration).
		Msg("media headers received")
	e.emitFor(gen, playback.EvMetadata, nil)

	buf := make([]byte, e.chunk)
	for {
		if err := e.limiter.WaitN(ctx, len(buf)); err != nil {
			e.interrupted(ctx, gen, fmt.Errorf("httpmedia: throttle: %w", err))
			return
		}
		n, err := resp.Body.Read(buf)
		if n > 0 {
			e.received(gen, int64(n))
		}
		if errors.Is(err, io.EOF) {
			e.finish(gen)
			return
		}
		if err != nil {
			e.interrupted(ctx, gen, fmt.Errorf("httpmedia: read body: %w", err))
			return
		}
	}
}

func (e *Element) received(gen uint64, n int64) {
	e.mu.Lock()
	if gen != e.loadGen {
		e.mu.Unlock()
		return
	}
	e.downloaded += n
	kinds := append([]playback.EventKind{playback.EvProgress}, e.readinessLocked()...)
	sink := e.sink
	e.mu.Unlock()

	deliver(sink, kinds, nil)
}

func (e *Element) finish(gen uint64) {
	e.mu.Lock()
	if gen != e.loadGen {
		e.mu.Unlock()
		return
	}
	e.complete = true
	if e.total <= 0 {
		e.total = e.downloaded
	}
	if e.opts.Duration <= 0 {
		e.duration = e.estimate(e.total)
	}
	kinds := append([]playback.EventKind{playback.EvProgress}, e.readinessLocked()...)
	sink := e.sink
	downloaded := e.downloaded
	e.mu.Unlock()

	e.logger.Debug().Int64(log.FieldBytes, downloaded).Msg("media download complete")
	deliver(sink, kinds, nil)
}

// interrupted reports a transport failure, or an abort when ctx was
// cancelled by Close.
func (e *Element) interrupted(ctx context.Context, gen uint64, err error) {
	if ctx.Err() != nil {
		e.mu.Lock()
		closed := e.closed && gen == e.loadGen && !e.complete
		e.mu.Unlock()
		if closed {
			e.emitFor(gen, playback.EvAbort, nil)
		}
		return
	}
	e.fail(gen, err)
}

func (e *Element) fail(gen uint64, err error) {
	e.mu.Lock()
	if gen != e.loadGen {
		e.mu.Unlock()
		return
	}
	e.failed = true
	e.phase = phaseStopped
	e.mu.Unlock()

	e.logger.Warn().Err(err).Msg("media load failed")
	e.emitFor(gen, playback.EvError, err)
}

// readinessLocked returns the can-start and can-play-through events that
// became due. can-start always precedes can-play-through.
func (e *Element) readinessLocked() []playback.EventKind {
	var out []playback.EventKind
	buffered := e.bufferedLocked()
	through := !e.canThrough && e.canPlayThroughLocked()

	threshold := e.opts.StartThreshold
	if e.duration > 0 && e.duration < threshold {
		threshold = e.duration
	}
	if !e.canStart && (through || e.complete || buffered >= threshold) {
		e.canStart = true
		out = append(out, playback.EvCanStart)
	}
	if through {
		e.canThrough = true
		out = append(out, playback.EvCanPlayThrough)
	}
	return out
}

// canPlayThroughLocked reports whether the rest of the download is expected
// to finish before playback reaches the end.
func (e *Element) canPlayThroughLocked() bool {
	if e.complete {
		return true
	}
	if e.total <= 0 || e.duration <= 0 || e.downloaded == 0 {
		return false
	}
	elapsed := time.Since(e.started)
	if elapsed <= 0 {
		return false
	}
	bytesPerSec := float64(e.downloaded) / elapsed.Seconds()
	remaining := time.Duration(float64(e.total-e.downloaded) / bytesPerSec * float64(time.Second))
	return remaining <= e.duration-e.position
}

func (e *Element) estimate(bytes int64) time.Duration {
	return time.Duration(float64(bytes*8) / float64(e.opts.Bitrate) * float64(time.Second))
}

func (e *Element) bufferedLocked() time.Duration {
	if e.downloaded == 0 {
		return 0
	}
	if e.complete && e.duration > 0 {
		return e.duration
	}
	if e.total > 0 && e.duration > 0 {
		return time.Duration(float64(e.duration) * float64(e.downloaded) / float64(e.total))
	}
	return e.estimate(e.downloaded)
}

func (e *Element) tick() {
	defer e.wg.Done()
	t := time.NewTicker(e.opts.TickInterval)
	defer t.Stop()

	last := time.Now()
	for {
		select {
		case <-e.ctx.Done():
			return
		case now := <-t.C:
			step := now.Sub(last)
			last = now
			e.mu.Lock()
			kinds := e.advanceLocked(step)
			sink := e.sink
			e.mu.Unlock()
			deliver(sink, kinds, nil)
		}
	}
}

// advanceLocked moves the playhead by step and returns the events produced.
func (e *Element) advanceLocked(step time.Duration) []playback.EventKind {
	if e.seeking || e.failed {
		return nil
	}
	buffered := e.bufferedLocked()

	switch e.phase {
	case phaseStopped:
		return nil
	case phaseStarting, phaseStalled:
		if e.position < buffered {
			e.phase = phaseRunning
			return []playback.EventKind{playback.EvPlaying}
		}
		if e.complete {
			e.phase = phaseStopped
			return []playback.EventKind{playback.EvEnded}
		}
		if e.phase == phaseStarting {
			e.phase = phaseStalled
			return []playback.EventKind{playback.EvWaiting}
		}
		return nil
	}

	e.position += step
	if e.position < buffered {
		return []playback.EventKind{playback.EvTimeUpdate}
	}
	e.position = buffered
	if e.complete {
		e.phase = phaseStopped
		return []playback.EventKind{playback.EvTimeUpdate, playback.EvEnded}
	}
	e.phase = phaseStalled
	return []playback.EventKind{playback.EvTimeUpdate, playback.EvWaiting}
}

func (e *Element) emitFor(gen uint64, kind playback.EventKind, err error) {
	e.mu.Lock()
	if gen != e.loadGen {
		e.mu.Unlock()
		return
	}
	sink := e.sink
	e.mu.Unlock()
	deliver(sink, []playback.EventKind{kind}, err)
}

func deliver(sink func(playback.Event), kinds []playback.EventKind, err error) {
	if sink == nil {
		return
	}
	for _, k := range kinds {
		sink(playback.Event{Kind: k, Err: err})
	}
}

func (e *Element) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = muted
}

func (e *Element) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

// Play starts the playhead. The playing event follows on the next tick once
// data ahead of the playhead is buffered.
func (e *Element) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.closed:
		return ErrClosed
	case e.failed:
		return ErrFailed
	}
	if e.complete && e.position >= e.bufferedLocked() {
		e.position = 0
	}
	if e.phase == phaseStopped {
		e.phase = phaseStarting
	}
	return nil
}

func (e *Element) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phase = phaseStopped
}

// Playing reports whether the playhead is advancing.
func (e *Element) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase == phaseRunning
}

func (e *Element) CurrentTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// Seek moves the playhead, emitting seeking then seeked.
func (e *Element) Seek(position time.Duration) {
	e.mu.Lock()
	if position < 0 {
		position = 0
	}
	if e.duration > 0 && position > e.duration {
		position = e.duration
	}
	e.seeking = true
	e.position = position
	if e.phase == phaseRunning {
		e.phase = phaseStarting
	}
	sink := e.sink
	e.mu.Unlock()
	deliver(sink, []playback.EventKind{playback.EvSeeking}, nil)

	e.mu.Lock()
	e.seeking = false
	sink = e.sink
	e.mu.Unlock()
	deliver(sink, []playback.EventKind{playback.EvSeeked}, nil)
}

func (e *Element) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *Element) Buffered() []playback.TimeRange {
	e.mu.Lock()
	defer e.mu.Unlock()
	end := e.bufferedLocked()
	if end <= 0 {
		return nil
	}
	return []playback.TimeRange{{Start: 0, End: end}}
}

func (e *Element) Seeking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seeking
}

func (e *Element) SetPreload(hint playback.PreloadHint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.preload = hint
}

// Preload returns the last hint set by the session.
func (e *Element) Preload() playback.PreloadHint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preload
}

func (e *Element) Source() string { return e.opts.URL }

func (e *Element) OnEvent(sink func(playback.Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = sink
}

// Downloaded returns the bytes received by the current load and whether the
// download completed.
func (e *Element) Downloaded() (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.downloaded, e.complete
}

// Close stops the download and the playback ticker and waits for both. An
// unfinished download emits abort. It is safe to call more than once.
func (e *Element) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.phase = phaseStopped
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
	e.opts.Client.CloseIdleConnections()
}

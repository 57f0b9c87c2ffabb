// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/panoview/internal/metrics"
	"github.com/ManuGH/panoview/internal/playback"
	"github.com/ManuGH/panoview/internal/playback/httpmedia"
	"github.com/ManuGH/panoview/internal/telemetry"
)

// ProbeConfig selects the server, video and simulated network.
type ProbeConfig struct {
	BaseURL       string
	Video         string
	EffectiveType string
	Timeout       time.Duration
	PlayThrough   bool
	Insecure      bool
	Track         bool
	// Client is used for every request, including the media download.
	Client *http.Client
}

type ProbeReport struct {
	Timestamp time.Time       `json:"timestamp"`
	BaseURL   string          `json:"base_url"`
	Video     string          `json:"video"`
	Checks    []CheckResult   `json:"checks"`
	Playback  *PlaybackReport `json:"playback,omitempty"`
}

type CheckResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	LatencyMs int64  `json:"latency_ms"`
	Details   string `json:"details,omitempty"`
	Body      string `json:"body,omitempty"` // captured on failure
}

// PlaybackReport summarises one headless viewer session.
type PlaybackReport struct {
	SessionID         string   `json:"session_id"`
	ConnectionClass   string   `json:"connection_class"`
	BufferMultiplier  float64  `json:"buffer_multiplier"`
	CriticalTimeoutMs int64    `json:"critical_timeout_ms"`
	States            []string `json:"states"`
	TimeToFirstPlayMs int64    `json:"time_to_first_play_ms,omitempty"`
	Degraded          bool     `json:"degraded"`
	LoadOutcome       string   `json:"load_outcome"`
	FinalState        string   `json:"final_state"`
	DownloadedBytes   int64    `json:"downloaded_bytes"`
	DownloadComplete  bool     `json:"download_complete"`
	Error             string   `json:"error,omitempty"`
}

// Passed reports whether every check passed.
func (r ProbeReport) Passed() bool {
	if len(r.Checks) == 0 {
		return false
	}
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// viewerPage is what the probe reads from the rendered viewer.
type viewerPage struct {
	VideoURL  string
	Grace     time.Duration
	KeepMuted bool
}

var (
	reVideoURL  = regexp.MustCompile(`data-video-url="([^"]*)"`)
	reGraceMs   = regexp.MustCompile(`data-grace-ms="(\d+)"`)
	reKeepMuted = regexp.MustCompile(`data-keep-muted="(true|false)"`)
)

func parseViewerPage(body string) (viewerPage, error) {
	m := reVideoURL.FindStringSubmatch(body)
	if m == nil || m[1] == "" {
		return viewerPage{}, errors.New("viewer page has no data-video-url")
	}
	page := viewerPage{VideoURL: html.UnescapeString(m[1])}
	if g := reGraceMs.FindStringSubmatch(body); g != nil {
		ms, _ := strconv.ParseInt(g[1], 10, 64)
		page.Grace = time.Duration(ms) * time.Millisecond
	}
	if k := reKeepMuted.FindStringSubmatch(body); k != nil {
		page.KeepMuted = k[1] == "true"
	}
	return page, nil
}

type prober struct {
	cfg    ProbeConfig
	base   string
	client *http.Client
	report *ProbeReport
}

// Run executes every check in order. Checks after a failed prerequisite are
// skipped; the report is always returned.
func Run(ctx context.Context, cfg ProbeConfig) ProbeReport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	report := ProbeReport{
		Timestamp: time.Now().UTC(),
		BaseURL:   cfg.BaseURL,
		Video:     cfg.Video,
		Checks:    make([]CheckResult, 0, 5),
	}
	p := &prober{cfg: cfg, base: strings.TrimRight(cfg.BaseURL, "/"), client: client, report: &report}

	if !p.runCheck("Server_Health", func() (string, error) {
		return p.expect(ctx, http.MethodGet, "/healthz", nil, http.StatusOK)
	}) {
		return report
	}

	var page viewerPage
	if !p.runCheck("Viewer_Page", func() (string, error) {
		body, err := p.expect(ctx, http.MethodGet, "/viewer.html?video="+url.QueryEscape(cfg.Video), nil, http.StatusOK)
		if err != nil {
			return body, err
		}
		page, err = parseViewerPage(body)
		return "", err
	}) {
		return report
	}

	assetURL := p.resolve(page.VideoURL)
	if !p.runCheck("Asset_Range", func() (string, error) {
		return p.checkRange(ctx, assetURL)
	}) {
		return report
	}

	p.runCheck("Playback", func() (string, error) {
		pr, err := p.playback(ctx, assetURL, page)
		report.Playback = pr
		return "", err
	})

	if cfg.Track {
		p.runCheck("Track_View", func() (string, error) {
			return p.expect(ctx, http.MethodPost, "/track-view/"+url.PathEscape(cfg.Video), nil, http.StatusOK)
		})
	}
	return report
}

func (p *prober) runCheck(name string, fn func() (string, error)) bool {
	start := time.Now()
	body, err := fn()
	res := CheckResult{
		Name:      name,
		Passed:    err == nil,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		res.Details = err.Error()
		res.Body = body
	}
	p.report.Checks = append(p.report.Checks, res)
	return err == nil
}

func (p *prober) resolve(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return p.base + "/" + strings.TrimLeft(ref, "/")
}

func (p *prober) do(ctx context.Context, method, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("net error: %w", err)
	}
	return resp, nil
}

// expect requests path and returns the body, failing on any other status.
func (p *prober) expect(ctx context.Context, method, path string, header http.Header, want int) (string, error) {
	resp, err := p.do(ctx, method, p.base+path, header)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != want {
		return string(body), fmt.Errorf("status %d, want %d", resp.StatusCode, want)
	}
	return string(body), nil
}

// checkRange verifies that the asset honours byte ranges, which headset
// players rely on for seeking.
func (p *prober) checkRange(ctx context.Context, assetURL string) (string, error) {
	resp, err := p.do(ctx, http.MethodGet, assetURL, http.Header{"Range": []string{"bytes=0-1023"}})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusPartialContent {
		return "", fmt.Errorf("status %d, want %d", resp.StatusCode, http.StatusPartialContent)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Range"), "bytes 0-") {
		return "", fmt.Errorf("unexpected Content-Range %q", resp.Header.Get("Content-Range"))
	}
	return "", nil
}

func (p *prober) playback(ctx context.Context, assetURL string, page viewerPage) (*PlaybackReport, error) {
	hints := playback.StaticHint(p.cfg.EffectiveType)
	class := playback.ProbeConnection(hints)

	ctx, span := telemetry.Tracer("viewerprobe").Start(ctx, "viewerprobe.playback",
		trace.WithAttributes(telemetry.VideoAttributes(p.cfg.Video, -1)...))
	defer span.End()

	el, err := httpmedia.New(httpmedia.Options{
		URL:     assetURL,
		Client:  p.cfg.Client,
		Profile: httpmedia.ProfileFor(class),
	})
	if err != nil {
		return nil, err
	}
	defer el.Close()

	var (
		mu        sync.Mutex
		gestureAt time.Time
		firstPlay time.Duration
	)
	changed := make(chan struct{}, 1)
	onTransition := func(tr playback.Transition) {
		metrics.RecordPlaybackTransition(string(tr.From), string(tr.To), tr.Event.String())
		telemetry.EmitTransition(ctx, telemetry.Transition{
			Video: p.cfg.Video,
			From:  string(tr.From),
			To:    string(tr.To),
			Event: tr.Event.String(),
			Note:  tr.Note,
			Class: string(class),
		})
		if tr.To == playback.StatePlaying {
			mu.Lock()
			if firstPlay == 0 && !gestureAt.IsZero() {
				firstPlay = time.Since(gestureAt)
			}
			mu.Unlock()
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	s, err := playback.NewSession(ctx, playback.Options{
		VideoID:      p.cfg.Video,
		Media:        el,
		Surface:      &httpmedia.Surface{},
		Hints:        hints,
		GracePeriod:  page.Grace,
		KeepMuted:    page.KeepMuted,
		OnTransition: onTransition,
	})
	if err != nil {
		return nil, err
	}
	defer s.Close()

	s.Start()
	mu.Lock()
	gestureAt = time.Now()
	mu.Unlock()
	s.Gesture()

	done := func(st playback.State) bool {
		if p.cfg.PlayThrough {
			return st.IsTerminal()
		}
		return st == playback.StatePlaying || st.IsTerminal()
	}
	timedOut := false
	for !done(s.State()) && !timedOut {
		select {
		case <-ctx.Done():
			timedOut = true
		case <-changed:
		}
	}

	snap := s.Snapshot()
	policy := playback.PolicyFor(class)
	report := &PlaybackReport{
		SessionID:         s.ID(),
		ConnectionClass:   string(class),
		BufferMultiplier:  policy.BufferMultiplier,
		CriticalTimeoutMs: policy.CriticalTimeout.Milliseconds(),
		Degraded:          snap.Degraded,
		LoadOutcome:       snap.LoadOutcome,
		FinalState:        string(snap.State),
	}
	if history := s.History(); len(history) > 0 {
		report.States = append(report.States, string(history[0].From))
		for _, tr := range history {
			report.States = append(report.States, string(tr.To))
		}
	}
	report.DownloadedBytes, report.DownloadComplete = el.Downloaded()
	mu.Lock()
	report.TimeToFirstPlayMs = firstPlay.Milliseconds()
	reachedPlay := firstPlay > 0
	mu.Unlock()

	if reachedPlay {
		metrics.RecordTimeToPlay(string(class), firstPlay)
	}
	if snap.Degraded {
		metrics.RecordDegradedStart(string(class))
	}
	metrics.RecordSessionOutcome(string(snap.State))

	var runErr error
	switch {
	case snap.State == playback.StateError:
		runErr = fmt.Errorf("session failed: %w", s.Err())
	case timedOut:
		runErr = fmt.Errorf("deadline exceeded in state %s", snap.State)
	case !reachedPlay && snap.State != playback.StateEnded:
		runErr = fmt.Errorf("session stopped in state %s before playing", snap.State)
	}
	if runErr != nil {
		report.Error = runErr.Error()
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
	}
	return report, runErr
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command viewerprobe loads a video through a running panoview server the
// way a headset browser would: it fetches the viewer page, streams the
// asset under a connection-class throttle and drives a headless playback
// session through the gesture-gated state machine. The JSON report lists
// every check and the observed state history; the exit code is non-zero
// when any check fails.
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ManuGH/panoview/internal/config"
	xglog "github.com/ManuGH/panoview/internal/log"
	"github.com/ManuGH/panoview/internal/telemetry"
	"github.com/ManuGH/panoview/internal/version"
)

func main() {
	cfg := ProbeConfig{}
	flag.StringVar(&cfg.BaseURL, "base-url", "", "server base URL (default $PANOVIEW_BASE_URL or http://localhost:3000)")
	flag.StringVar(&cfg.Video, "video", "", "video filename to probe")
	flag.StringVar(&cfg.EffectiveType, "effective-type", "", "simulated network type: 4g, 3g, 2g or slow-2g (empty = unknown)")
	flag.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "deadline for the whole probe")
	flag.BoolVar(&cfg.PlayThrough, "play-through", false, "wait for the video to end instead of the first frame")
	flag.BoolVar(&cfg.Insecure, "insecure", false, "accept self-signed TLS certificates")
	flag.BoolVar(&cfg.Track, "track", false, "also record a view through /track-view")
	out := flag.String("out", "", "write the JSON report to this file instead of stdout")
	metricsFile := flag.String("metrics-file", "", "write playback metrics in Prometheus text format (node_exporter textfile collector)")
	otlpEndpoint := flag.String("otlp-endpoint", "", "export a trace of the probe to this OTLP/gRPC collector")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	xglog.Configure(xglog.Config{Level: "warn", Output: os.Stderr, Service: "viewerprobe", Version: version.Version})

	if cfg.BaseURL == "" {
		cfg.BaseURL = config.ParseString(config.EnvPrefix+"BASE_URL", "http://localhost:3000")
	}
	if cfg.Video == "" {
		fmt.Fprintln(os.Stderr, "Error: --video is required")
		os.Exit(2)
	}
	if cfg.Insecure {
		cfg.Client = &http.Client{Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in for self-signed LAN certificates
		}}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        *otlpEndpoint != "",
		ServiceName:    "viewerprobe",
		ServiceVersion: version.Version,
		ExporterType:   config.ExporterGRPC,
		Endpoint:       *otlpEndpoint,
		Insecure:       true,
		SamplingRate:   1,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: tracing: %v\n", err)
		os.Exit(1)
	}

	report := Run(ctx, cfg)
	_ = tp.Shutdown(context.WithoutCancel(ctx))

	if err := writeReport(*out, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, prometheus.DefaultGatherer); err != nil {
			fmt.Fprintf(os.Stderr, "Error: metrics: %v\n", err)
			os.Exit(1)
		}
	}
	if !report.Passed() {
		os.Exit(1)
	}
}

func writeReport(path string, report ProbeReport) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

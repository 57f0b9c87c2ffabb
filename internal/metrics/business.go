// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes the Prometheus collectors of the panoview daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoview_uploads_total",
		Help: "Video uploads by outcome",
	}, []string{"outcome"}) // outcome=success|failure|denied

	uploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "panoview_upload_bytes_total",
		Help: "Bytes stored by successful uploads",
	})

	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoview_deletes_total",
		Help: "Video deletions by outcome",
	}, []string{"outcome"})

	libraryVideos = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "panoview_library_videos",
		Help: "Number of videos in the library (last listing)",
	})

	libraryBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "panoview_library_bytes",
		Help: "Total size of the library in bytes (last listing)",
	})

	viewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "panoview_views_total",
		Help: "Views recorded since start",
	})

	AnalyticsErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoview_analytics_errors_total",
		Help: "Analytics store failures by backend and operation",
	}, []string{"backend", "op"})

	adminLogins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoview_admin_logins_total",
		Help: "Admin login attempts by outcome",
	}, []string{"outcome"})

	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoview_config_reloads_total",
		Help: "Configuration reloads by outcome",
	}, []string{"outcome"})

	fileRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoview_file_requests_total",
		Help: "Asset file requests by result",
	}, []string{"result"}) // result=served|not_modified|not_found|path_escape|directory_listing|method_not_allowed|internal_error
)

// RecordUpload counts an upload attempt; size is only added on success.
func RecordUpload(outcome string, size int64) {
	uploadsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess && size > 0 {
		uploadBytes.Add(float64(size))
	}
}

func RecordDelete(outcome string) {
	deletesTotal.WithLabelValues(outcome).Inc()
}

// SetLibrarySize publishes the result of the latest library listing.
func SetLibrarySize(videos int, bytes int64) {
	libraryVideos.Set(float64(videos))
	libraryBytes.Set(float64(bytes))
}

func RecordView() {
	viewsTotal.Inc()
}

func RecordAnalyticsError(backend, op string) {
	AnalyticsErrors.WithLabelValues(backend, op).Inc()
}

func RecordAdminLogin(outcome string) {
	adminLogins.WithLabelValues(outcome).Inc()
}

func RecordConfigReload(outcome string) {
	configReloads.WithLabelValues(outcome).Inc()
}

// RecordFileRequest counts an /assets request by result.
func RecordFileRequest(result string) {
	fileRequests.WithLabelValues(result).Inc()
}

// Package telemetry provides Prometheus metrics for downloads, status polling and auto-sync.
//
// All recording methods are safe on a nil *Metrics, so components constructed
// without metrics record nothing. Metrics are only exposed through a locally
// served /metrics endpoint; nothing is pushed off the device.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meetsync"

// Download results recorded in DownloadsTotal besides lowercased error codes.
const (
	ResultCacheHit   = "cache_hit"
	ResultDownloaded = "downloaded"
)

// Cycle results recorded in SyncCyclesTotal.
const (
	CycleCompleted  = "completed"
	CycleListFailed = "list_failed"
	CycleSkipped    = "skipped"
)

// Metrics holds all Prometheus metrics for the sync core.
type Metrics struct {
	registry *prometheus.Registry

	// Download metrics
	DownloadsTotal       *prometheus.CounterVec
	DownloadBytesTotal   *prometheus.CounterVec
	DownloadSeconds      *prometheus.HistogramVec
	DedupedRequestsTotal prometheus.Counter
	CacheRecoveriesTotal prometheus.Counter

	// Poller metrics
	PollsTotal         *prometheus.CounterVec
	ActivePollSessions prometheus.Gauge

	// Auto-sync metrics
	SyncCyclesTotal        *prometheus.CounterVec
	SyncCycleSeconds       prometheus.Histogram
	SyncConfirmationsTotal prometheus.Counter
	SyncArtifactFailures   *prometheus.CounterVec
}

// New creates the metric set on reg. A nil reg gets a fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		DownloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downloads_total",
				Help:      "Artifact download requests by outcome",
			},
			[]string{"artifact", "result"},
		),
		DownloadBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "download_bytes_total",
				Help:      "Bytes written to the local cache",
			},
			[]string{"artifact"},
		),
		DownloadSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "download_seconds",
				Help:      "Latency of network fetches that reached the backend",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"artifact", "tier"},
		),
		DedupedRequestsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "download_deduplicated_total",
				Help:      "Download calls that joined an in-flight fetch for the same artifact",
			},
		),
		CacheRecoveriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_recoveries_total",
				Help:      "Ledger entries dropped because their file was missing",
			},
		),

		PollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_polls_total",
				Help:      "Status fetches issued by poll sessions",
			},
			[]string{"result"},
		),
		ActivePollSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "poll_sessions_active",
				Help:      "Poll sessions currently running",
			},
		),

		SyncCyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "autosync_cycles_total",
				Help:      "Auto-sync cycles by outcome",
			},
			[]string{"result"},
		),
		SyncCycleSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "autosync_cycle_seconds",
				Help:      "Duration of auto-sync cycles",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		SyncConfirmationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "autosync_confirmations_total",
				Help:      "Meetings confirmed as downloaded to the backend",
			},
		),
		SyncArtifactFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "autosync_artifact_failures_total",
				Help:      "Artifact downloads that failed inside an auto-sync cycle",
			},
			[]string{"artifact", "code"},
		),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// =====================================================
// Download Recording
// =====================================================

// ObserveDownload records the outcome of one Download call.
func (m *Metrics) ObserveDownload(artifact, result string) {
	if m == nil {
		return
	}
	m.DownloadsTotal.WithLabelValues(artifact, result).Inc()
}

// ObserveFetch records a completed network fetch.
func (m *Metrics) ObserveFetch(artifact, tier string, bytes int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DownloadSeconds.WithLabelValues(artifact, tier).Observe(elapsed.Seconds())
	m.DownloadBytesTotal.WithLabelValues(artifact).Add(float64(bytes))
}

// ObserveDeduped records a caller that joined an in-flight fetch.
func (m *Metrics) ObserveDeduped() {
	if m == nil {
		return
	}
	m.DedupedRequestsTotal.Inc()
}

// ObserveCacheRecovery records a missing or altered cached file being dropped.
func (m *Metrics) ObserveCacheRecovery() {
	if m == nil {
		return
	}
	m.CacheRecoveriesTotal.Inc()
}

// =====================================================
// Poller Recording
// =====================================================

// ObservePoll records one status fetch; ok is false when the fetch failed.
func (m *Metrics) ObservePoll(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.PollsTotal.WithLabelValues(result).Inc()
}

// SessionStarted increments the active poll session gauge.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.ActivePollSessions.Inc()
}

// SessionEnded decrements the active poll session gauge.
func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.ActivePollSessions.Dec()
}

// =====================================================
// Auto-Sync Recording
// =====================================================

// ObserveCycle records one auto-sync cycle.
func (m *Metrics) ObserveCycle(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SyncCyclesTotal.WithLabelValues(result).Inc()
	if result != CycleSkipped {
		m.SyncCycleSeconds.Observe(elapsed.Seconds())
	}
}

// ObserveConfirmation records a meeting confirmed to the backend.
func (m *Metrics) ObserveConfirmation() {
	if m == nil {
		return
	}
	m.SyncConfirmationsTotal.Inc()
}

// ObserveArtifactFailure records an artifact that failed inside a cycle.
func (m *Metrics) ObserveArtifactFailure(artifact, code string) {
	if m == nil {
		return
	}
	m.SyncArtifactFailures.WithLabelValues(artifact, code).Inc()
}

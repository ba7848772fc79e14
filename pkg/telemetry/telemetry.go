// Package telemetry exposes scan metrics for Prometheus scraping from a
// private registry, with an optional HTTP exposition server for long-lived
// batch runs.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/privacyscope/privacyscope/pkg/duration"
	"github.com/privacyscope/privacyscope/pkg/scan"
)

// Metrics holds the scan counters and histograms on a private registry so
// nothing leaks into (or collides with) the default global one.
type Metrics struct {
	registry *prometheus.Registry
	server   *http.Server

	scansTotal        *prometheus.CounterVec
	scanFailuresTotal *prometheus.CounterVec
	blockedTotal      prometheus.Counter
	privacyScore      *prometheus.GaugeVec
	scanDuration      *prometheus.HistogramVec
}

// New builds the metric set and registers it.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "privacyscope_scans_total",
				Help: "Total number of scans executed",
			},
			[]string{"profile", "status"},
		),
		scanFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "privacyscope_scan_failures_total",
				Help: "Total number of failed scans by error kind",
			},
			[]string{"kind"},
		),
		blockedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "privacyscope_blocked_requests_total",
				Help: "Total number of requests denied by the strict profile",
			},
		),
		privacyScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "privacyscope_privacy_score",
				Help: "Privacy score of the most recent completed scan per profile",
			},
			[]string{"profile"},
		),
		scanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "privacyscope_scan_duration_seconds",
				Help:    "Scan duration distribution in seconds",
				Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120},
			},
			[]string{"profile"},
		),
	}

	m.registry.MustRegister(
		m.scansTotal,
		m.scanFailuresTotal,
		m.blockedTotal,
		m.privacyScore,
		m.scanDuration,
	)
	return m
}

// ObserveScan records one finished scan. Nil-safe so callers that run
// without metrics can skip the wiring entirely.
func (m *Metrics) ObserveScan(r *scan.Result, err error) {
	if m == nil || r == nil {
		return
	}
	m.scansTotal.WithLabelValues(string(r.Profile), string(r.Status)).Inc()
	if err != nil {
		m.scanFailuresTotal.WithLabelValues(string(scan.KindOf(err))).Inc()
	}
	if r.PrivacyScore != nil {
		m.privacyScore.WithLabelValues(string(r.Profile)).Set(float64(*r.PrivacyScore))
	}
	for _, d := range r.Domains {
		if d.BlockedCount > 0 {
			m.blockedTotal.Add(float64(d.BlockedCount))
		}
	}
	if d := r.FinishedAt.Sub(r.StartedAt); d > 0 {
		m.scanDuration.WithLabelValues(string(r.Profile)).Observe(d.Seconds())
	}
}

// Gather exposes the registry for tests and embedding.
func (m *Metrics) Gather() (prometheus.Gatherer, error) {
	if m == nil {
		return nil, fmt.Errorf("telemetry: metrics not initialized")
	}
	return m.registry, nil
}

// Serve starts the exposition endpoint on the given port. Returns
// immediately; the server runs until Close.
func (m *Metrics) Serve(port int) {
	if m == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	m.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  duration.MetricsShutdown,
		WriteTimeout: 2 * duration.MetricsShutdown,
	}
	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("telemetry: metrics server error: %v", err)
		}
	}()
}

// Close shuts the exposition server down, bounded by the metrics shutdown
// window.
func (m *Metrics) Close() error {
	if m == nil || m.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), duration.MetricsShutdown)
	defer cancel()
	return m.server.Shutdown(ctx)
}

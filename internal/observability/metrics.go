package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scan results used as the "result" label.
const (
	ResultOK            = "ok"
	ResultLimitExceeded = "limit_exceeded"
	ResultError         = "error"
)

// ScanMetrics holds the Prometheus collectors for worker-side traversals.
type ScanMetrics struct {
	registry *prometheus.Registry

	ScansTotal   *prometheus.CounterVec
	ScanDuration prometheus.Histogram
	FilesVisited prometheus.Counter
	FilesFailed  prometheus.Counter
	Edges        prometheus.Counter
	ActiveScans  prometheus.Gauge
}

// NewScanMetrics creates the collectors on a fresh registry.
func NewScanMetrics() *ScanMetrics {
	reg := prometheus.NewRegistry()
	m := &ScanMetrics{
		registry: reg,
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cppig",
			Name:      "scans_total",
			Help:      "Include graph scans by result",
		}, []string{"result"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cppig",
			Name:      "scan_duration_seconds",
			Help:      "Include graph scan duration",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		FilesVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cppig",
			Name:      "files_visited_total",
			Help:      "Files read and scanned for includes",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cppig",
			Name:      "files_failed_total",
			Help:      "Files that could not be read",
		}),
		Edges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cppig",
			Name:      "edges_total",
			Help:      "Include edges emitted",
		}),
		ActiveScans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cppig",
			Name:      "active_scans",
			Help:      "Scans currently running",
		}),
	}
	reg.MustRegister(m.ScansTotal, m.ScanDuration, m.FilesVisited, m.FilesFailed, m.Edges, m.ActiveScans)
	return m
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *ScanMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartScan marks a scan as running and returns the function that records
// its outcome.
func (m *ScanMetrics) StartScan() func(result string, visited, failed, edges int) {
	start := time.Now()
	m.ActiveScans.Inc()
	return func(result string, visited, failed, edges int) {
		m.ActiveScans.Dec()
		m.ScansTotal.WithLabelValues(result).Inc()
		m.ScanDuration.Observe(time.Since(start).Seconds())
		m.FilesVisited.Add(float64(visited))
		m.FilesFailed.Add(float64(failed))
		m.Edges.Add(float64(edges))
	}
}

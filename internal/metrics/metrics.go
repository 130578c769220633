// Package metrics exposes Prometheus collectors for file transfers and link retention.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "file2link"

// Transfer outcomes used as the "result" label.
const (
	ResultOK             = "ok"
	ResultDownloadFailed = "download_failed"
	ResultUploadFailed   = "upload_failed"
	ResultRejected       = "rejected"
	ResultTooLarge       = "too_large"
)

// Metrics holds the collectors on a dedicated registry.
type Metrics struct {
	registry  *prometheus.Registry
	transfers *prometheus.CounterVec
	bytes     prometheus.Counter
	duration  prometheus.Histogram
	purged    prometheus.Counter
}

// New creates the collectors and registers them, plus Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "File transfers by outcome.",
		}, []string{"result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_bytes_total",
			Help:      "Bytes downloaded from Telegram for successful transfers.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Wall time of a successful download and upload.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_purged_total",
			Help:      "Expired link records removed by the cleanup task.",
		}),
	}

	m.registry.MustRegister(
		m.transfers,
		m.bytes,
		m.duration,
		m.purged,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveTransfer records the outcome of one media message.
// Bytes and duration are only recorded for successful transfers.
func (m *Metrics) ObserveTransfer(result string, bytes int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.bytes.Add(float64(bytes))
		m.duration.Observe(elapsed.Seconds())
	}
}

// AddPurged records removed link rows.
func (m *Metrics) AddPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purged.Add(float64(n))
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

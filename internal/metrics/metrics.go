// Package metrics holds the prometheus collectors of a scan run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the scanner.
type Metrics struct {
	registry *prometheus.Registry

	PairsScanned   prometheus.Counter
	PairFailures   *prometheus.CounterVec // labels: reason
	OversoldPairs  prometheus.Gauge
	TrackedPairs   prometheus.Gauge
	RSIFetchDur    prometheus.Histogram
	RunDuration    prometheus.Gauge
	LastRunSuccess prometheus.Gauge
	LastRunTime    prometheus.Gauge
	NotifyFailures prometheus.Counter
}

// New registers the scanner metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PairsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsi_alerts_pairs_scanned_total",
			Help: "Trading pairs whose RSI was evaluated.",
		}),
		PairFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsi_alerts_pair_failures_total",
			Help: "Trading pairs skipped because their RSI could not be evaluated.",
		}, []string{"reason"}),
		OversoldPairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsi_alerts_oversold_pairs",
			Help: "Oversold pairs found by the last run.",
		}),
		TrackedPairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsi_alerts_tracked_pairs",
			Help: "Pairs present in the persisted state.",
		}),
		RSIFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsi_alerts_rsi_fetch_duration_seconds",
			Help:    "Time to fetch closes and compute the RSI of one pair.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsi_alerts_run_duration_seconds",
			Help: "Duration of the last run.",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsi_alerts_last_run_success",
			Help: "1 if the last run persisted its state, 0 otherwise.",
		}),
		LastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsi_alerts_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsi_alerts_notify_failures_total",
			Help: "Alerts that could not be delivered.",
		}),
	}

	reg.MustRegister(
		m.PairsScanned,
		m.PairFailures,
		m.OversoldPairs,
		m.TrackedPairs,
		m.RSIFetchDur,
		m.RunDuration,
		m.LastRunSuccess,
		m.LastRunTime,
		m.NotifyFailures,
	)
	return m
}

// Gatherer exposes the registry, e.g. for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// ObserveRun records the end of a run.
func (m *Metrics) ObserveRun(start, end time.Time, success bool) {
	m.RunDuration.Set(end.Sub(start).Seconds())
	m.LastRunTime.Set(float64(end.Unix()))
	if success {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
}

// WriteTextfile writes all metrics in the text exposition format for the
// node exporter textfile collector. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements the domain Metrics interface using Prometheus.
type Recorder struct {
	messagesIngested *prometheus.CounterVec
	messagesDropped  *prometheus.CounterVec
	windows          *prometheus.CounterVec
	events           *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastScore        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

var (
	once     sync.Once
	recorder *Recorder
)

// New returns the process-wide recorder; collectors are registered once.
func New() *Recorder {
	once.Do(func() {
		recorder = &Recorder{
			messagesIngested: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sentipulse_messages_ingested_total",
					Help: "Messages appended to the store",
				},
				[]string{"origin"},
			),
			messagesDropped: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sentipulse_messages_dropped_total",
					Help: "Messages rejected before reaching the store",
				},
				[]string{"reason"},
			),
			windows: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sentipulse_windows_total",
					Help: "Window aggregation attempts by outcome",
				},
				[]string{"outcome"},
			),
			events: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sentipulse_events_total",
					Help: "Events delivered to sinks by outcome",
				},
				[]string{"event", "sink", "outcome"},
			),
			errorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sentipulse_errors_total",
					Help: "Total number of errors encountered",
				},
				[]string{"type"},
			),
			lastScore: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "sentipulse_aggregated_score",
					Help: "Aggregated sentiment of the latest closed window",
				},
				[]string{"ticker"},
			),
			latency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "sentipulse_operation_duration_seconds",
					Help:    "Duration of operations in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation"},
			),
		}
	})
	return recorder
}

func (r *Recorder) RecordIngested(origin string) {
	r.messagesIngested.WithLabelValues(origin).Inc()
}

func (r *Recorder) RecordDropped(reason string) {
	r.messagesDropped.WithLabelValues(reason).Inc()
}

// RecordWindow counts an aggregation outcome (created, empty, duplicate, failed).
func (r *Recorder) RecordWindow(outcome string) {
	r.windows.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordEvent(event, sink, outcome string) {
	r.events.WithLabelValues(event, sink, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordScore(ticker string, score float64) {
	r.lastScore.WithLabelValues(ticker).Set(score)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

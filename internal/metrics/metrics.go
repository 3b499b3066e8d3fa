// Package metrics exposes bridge activity as Prometheus collectors.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clipbridge"

// Probes read live values owned by other components. Nil probes are skipped.
type Probes struct {
	QueueLength        func() int
	SourceReads        func() uint64
	SourceReadFailures func() uint64
	EventsDropped      func() uint64
}

// Metrics holds the pipeline collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	samples         prometheus.Counter
	parsed          *prometheus.CounterVec
	unparsed        prometheus.Counter
	written         prometheus.Counter
	writeFailures   prometheus.Counter
	writeLatency    prometheus.Histogram
	persistFailures prometheus.Counter
}

// New creates the collectors and registers them, plus any probes, on reg.
func New(reg prometheus.Registerer, probes Probes) (*Metrics, error) {
	m := &Metrics{
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Clipboard values processed by the coordinator.",
		}),
		parsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_parsed_total",
			Help:      "Clipboard values that yielded coordinates, by parser rule.",
		}, []string{"rule"}),
		unparsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_unparsed_total",
			Help:      "Clipboard values with no recognisable coordinates.",
		}),
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waypoints_written_total",
			Help:      "Waypoint lines appended to the destination file.",
		}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_failures_total",
			Help:      "Waypoint appends that failed.",
		}),
		writeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "write_latency_seconds",
			Help:      "Time spent appending one waypoint line.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_persist_failures_total",
			Help:      "Settings document saves that failed.",
		}),
	}

	collectors := []prometheus.Collector{
		m.samples, m.parsed, m.unparsed, m.written,
		m.writeFailures, m.writeLatency, m.persistFailures,
	}

	if probes.QueueLength != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Clipboard values waiting for the coordinator.",
		}, func() float64 { return float64(probes.QueueLength()) }))
	}
	if probes.SourceReads != nil {
		collectors = append(collectors, prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_reads_total",
			Help:      "Clipboard reads attempted by the poller.",
		}, func() float64 { return float64(probes.SourceReads()) }))
	}
	if probes.SourceReadFailures != nil {
		collectors = append(collectors, prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_read_failures_total",
			Help:      "Clipboard reads that failed and were treated as empty.",
		}, func() float64 { return float64(probes.SourceReadFailures()) }))
	}
	if probes.EventsDropped != nil {
		collectors = append(collectors, prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Observer events discarded because a subscriber fell behind.",
		}, func() float64 { return float64(probes.EventsDropped()) }))
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// ObserveSample counts one processed clipboard value. rule is the parser
// rule that matched, empty on a miss.
func (m *Metrics) ObserveSample(rule string) {
	if m == nil {
		return
	}
	m.samples.Inc()
	if rule == "" {
		m.unparsed.Inc()
		return
	}
	m.parsed.WithLabelValues(rule).Inc()
}

// ObserveWrite records one append attempt.
func (m *Metrics) ObserveWrite(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.writeLatency.Observe(d.Seconds())
	if err != nil {
		m.writeFailures.Inc()
		return
	}
	m.written.Inc()
}

// PersistFailed counts one failed settings save.
func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

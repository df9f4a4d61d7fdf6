package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "climate"

// Metrics holds the Prometheus counters, histograms, and gauges for the aggregation run.
type Metrics struct {
	LinesRead       prometheus.Counter
	RecordsAccepted prometheus.Counter
	RecordsRejected *prometheus.CounterVec // labels: reason={line_too_long,malformed,out_of_range,capacity_exceeded}
	Sources         *prometheus.CounterVec // labels: outcome={aggregated,empty,unreadable,failed}
	RegionsTracked  prometheus.Gauge
	Running         prometheus.Gauge

	SourceDuration prometheus.Histogram

	// Report publishing metrics.
	SummariesPublished prometheus.Counter
	PublishErrors      prometheus.Counter

	gatherer prometheus.Gatherer
}

func newMetrics() *Metrics {
	return &Metrics{
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_read_total",
			Help:      "Total lines read from all input sources.",
		}),
		RecordsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_accepted_total",
			Help:      "Total observations applied to the aggregation table.",
		}),
		RecordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_rejected_total",
			Help:      "Lines skipped, by rejection reason.",
		}, []string{"reason"}),
		Sources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sources_total",
			Help:      "Input sources processed, by outcome.",
		}, []string{"outcome"}),
		RegionsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "regions_tracked",
			Help:      "Distinct region codes in the aggregation table.",
		}),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "aggregation_running",
			Help:      "1 while sources are being aggregated, 0 otherwise.",
		}),
		SourceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "Time spent aggregating a single input source.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}),
		SummariesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_published_total",
			Help:      "Region summaries written to the Kafka report topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed report publish attempts.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.LinesRead,
		m.RecordsAccepted,
		m.RecordsRejected,
		m.Sources,
		m.RegionsTracked,
		m.Running,
		m.SourceDuration,
		m.SummariesPublished,
		m.PublishErrors,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	m.gatherer = reg
	return m
}

// Gatherer returns the registry the metrics were registered with.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

// Push sends the current metric values to a Prometheus Pushgateway. Batch runs
// finish before a scraper would see them, so the CLI pushes once at the end.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	err := push.New(gatewayURL, job).
		Gatherer(m.gatherer).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}

// Package metrics provides the Prometheus instruments of the indexer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "poolscope"

// Metrics holds every instrument. A nil *Metrics is valid and records nothing.
type Metrics struct {
	EventsProcessed  *prometheus.CounterVec
	EventErrors      *prometheus.CounterVec
	DecodeErrors     prometheus.Counter
	OracleMisses     prometheus.Counter
	ChainReadErrors  *prometheus.CounterVec
	FanOutLatency    prometheus.Histogram
	PoolsRefreshed   prometheus.Counter
	LastBlock        prometheus.Gauge
	RefreshRunsTotal *prometheus.CounterVec
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_processed_total",
			Help:      "Events applied to the entity store by kind and protocol",
		}, []string{"kind", "protocol"}),
		EventErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "event_errors_total",
			Help:      "Events whose handler returned an error",
		}, []string{"kind"}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "decode_errors_total",
			Help:      "Logs that matched a decoder but failed to decode",
		}),
		OracleMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "oracle_misses_total",
			Help:      "Swaps processed without a USD reference price",
		}),
		ChainReadErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "read_errors_total",
			Help:      "Failed batched chain reads by operation",
		}, []string{"op"}),
		FanOutLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "fanout_seconds",
			Help:      "Latency of the concurrent entity writes of one swap",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		PoolsRefreshed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "pools_refreshed_total",
			Help:      "Daily volume windows refreshed by the scheduler",
		}),
		LastBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "last_block",
			Help:      "Last fully processed block",
		}),
		RefreshRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Refresh runs by status",
		}, []string{"status"}),
	}
}

// NewRegistry returns a private registry with the process and Go collectors installed.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (m *Metrics) Event(kind, protocol string) {
	if m == nil {
		return
	}
	m.EventsProcessed.WithLabelValues(kind, protocol).Inc()
}

func (m *Metrics) EventError(kind string) {
	if m == nil {
		return
	}
	m.EventErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}
	m.DecodeErrors.Inc()
}

func (m *Metrics) OracleMiss() {
	if m == nil {
		return
	}
	m.OracleMisses.Inc()
}

func (m *Metrics) ChainReadError(op string) {
	if m == nil {
		return
	}
	m.ChainReadErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveFanOut(started time.Time) {
	if m == nil {
		return
	}
	m.FanOutLatency.Observe(time.Since(started).Seconds())
}

func (m *Metrics) Refreshed(pools int, err error) {
	if m == nil {
		return
	}
	m.PoolsRefreshed.Add(float64(pools))
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RefreshRunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) Block(number uint64) {
	if m == nil {
		return
	}
	m.LastBlock.Set(float64(number))
}

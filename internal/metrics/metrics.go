// Package metrics holds the Prometheus collectors shared by the bus, the
// render guard and the selection store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crmgrip"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	DataChanged        *prometheus.CounterVec
	Suppressed         prometheus.Counter
	Coalesced          prometheus.Counter
	Passes             prometheus.Counter
	PassDuration       prometheus.Histogram
	SubscriberTimeouts prometheus.Counter
	SubscriberFailures prometheus.Counter
	HookFailures       prometheus.Counter
	SelectionSize      *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
// A nil registerer creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DataChanged: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "data_changed_total",
			Help:      "Data changed signals dispatched, by source.",
		}, []string{"source"}),
		Suppressed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "suppressed_total",
			Help:      "Data changed signals dropped because a render pass was in flight.",
		}),
		Coalesced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "coalesced_total",
			Help:      "Data changed signals merged into an earlier dispatch by the debounce window.",
		}),
		Passes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "passes_total",
			Help:      "Render passes flushed.",
		}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a render pass including after-render hooks.",
			Buckets:   []float64{.001, .005, .016, .05, .1, .25, .5, 1},
		}),
		SubscriberTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "subscriber_timeouts_total",
			Help:      "Render subscribers abandoned after the pass timeout.",
		}),
		SubscriberFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "subscriber_failures_total",
			Help:      "Render subscribers that returned an error or panicked.",
		}),
		HookFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "hook_failures_total",
			Help:      "After-render hooks that panicked.",
		}),
		SelectionSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "size",
			Help:      "Selected ids per scope.",
		}, []string{"scope"}),
	}
}

// ObserveDataChanged counts a dispatched signal under its source label.
func (m *Metrics) ObserveDataChanged(source string, n int) {
	if m == nil {
		return
	}
	if source == "" {
		source = "unknown"
	}
	m.DataChanged.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) ObserveSuppressed() {
	if m == nil {
		return
	}
	m.Suppressed.Inc()
}

func (m *Metrics) ObserveCoalesced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Coalesced.Add(float64(n))
}

// ObservePass records one finished render pass.
func (m *Metrics) ObservePass(seconds float64, timeouts, failures, hookFailures int) {
	if m == nil {
		return
	}
	m.Passes.Inc()
	m.PassDuration.Observe(seconds)
	m.SubscriberTimeouts.Add(float64(timeouts))
	m.SubscriberFailures.Add(float64(failures))
	m.HookFailures.Add(float64(hookFailures))
}

func (m *Metrics) ObserveSelection(scope string, size int) {
	if m == nil {
		return
	}
	m.SelectionSize.WithLabelValues(scope).Set(float64(size))
}

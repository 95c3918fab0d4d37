// Package prommetrics implements security.MetricsSink over
// github.com/prometheus/client_golang, the pack's own metrics-vector
// registration idiom (one CounterVec per metric name, labeled and
// registered lazily on first use).
package prommetrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink registers and increments a prometheus.CounterVec per distinct
// metric name it is asked to increment. Label names are derived from
// the first call's label set and fixed from then on — the kernel's
// own incident labels (severity, invariant) never vary in shape call
// to call, so this never needs reconciliation logic.
type Sink struct {
	reg      prometheus.Registerer
	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
}

// New wraps reg. Passing prometheus.NewRegistry() isolates the
// kernel's counters from the process default registry; passing
// prometheus.DefaultRegisterer exposes them alongside everything else.
func New(reg prometheus.Registerer) *Sink {
	return &Sink{reg: reg, counters: make(map[string]*prometheus.CounterVec)}
}

// Increment implements security.MetricsSink.
func (s *Sink) Increment(metricName string, labels map[string]string) {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)

	cv := s.vecFor(metricName, names)
	cv.With(prometheus.Labels(labels)).Inc()
}

func (s *Sink) vecFor(metricName string, labelNames []string) *prometheus.CounterVec {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cv, ok := s.counters[metricName]; ok {
		return cv
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricName,
		Help: "graph kernel security incident counter",
	}, labelNames)
	s.reg.MustRegister(cv)
	s.counters[metricName] = cv
	return cv
}

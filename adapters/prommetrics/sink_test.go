package prommetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestIncrementRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := New(reg)

	sink.Increment("graph_kernel_token_verification_failures_total", map[string]string{
		"severity":  "critical",
		"invariant": "INV-GK-005",
	})
	sink.Increment("graph_kernel_token_verification_failures_total", map[string]string{
		"severity":  "critical",
		"invariant": "INV-GK-005",
	})

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	var found *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "graph_kernel_token_verification_failures_total" {
			found = f
		}
	}
	if found == nil {
		t.Fatal("expected the counter family to be registered")
	}
	if len(found.Metric) != 1 || found.Metric[0].GetCounter().GetValue() != 2 {
		t.Fatalf("expected a single label combination incremented twice, got %+v", found.Metric)
	}
}

func TestIncrementDistinctMetricNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := New(reg)

	sink.Increment("metric_a", map[string]string{"k": "v"})
	sink.Increment("metric_b", map[string]string{"k": "v"})

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 2 {
		t.Fatalf("expected 2 distinct metric families, got %d", len(families))
	}
}

package security

import "testing"

type recordingSink struct {
	calls []string
}

func (s *recordingSink) Increment(metricName string, labels map[string]string) {
	s.calls = append(s.calls, metricName+":"+labels["severity"])
}

func TestIncidentKindSeverityIsTotal(t *testing.T) {
	kinds := []IncidentKind{
		KindSliceBoundaryViolation, KindUnverifiedEvidenceUsage, KindContentHashMismatch,
		KindTokenVerificationFailed, KindSQLBoundaryBypass, KindPolicyMutation, KindOther,
		IncidentKind("made_up_kind"),
	}
	for _, k := range kinds {
		if k.Severity() == "" {
			t.Fatalf("severity for kind %q must not be empty", k)
		}
		if k.MetricName() == "" {
			t.Fatalf("metric name for kind %q must not be empty", k)
		}
	}
}

func TestNewIncidentDerivesSeverityFromKind(t *testing.T) {
	inc := NewIncident(KindSliceBoundaryViolation, "slicer")
	if inc.Severity != SeverityCritical {
		t.Fatalf("expected critical severity, got %s", inc.Severity)
	}
	if inc.Kind.Invariant() != "INV-GK-001" {
		t.Fatalf("unexpected invariant tag: %s", inc.Kind.Invariant())
	}
	if inc.ID == "" {
		t.Fatal("expected a non-empty incident id")
	}
}

func TestIncidentAcknowledge(t *testing.T) {
	inc := NewIncident(KindPolicyMutation, "registry")
	inc.Acknowledge("operator-1")
	if !inc.Acknowledged || inc.AcknowledgedBy != "operator-1" {
		t.Fatalf("expected acknowledgement recorded, got %+v", inc)
	}
}

func TestRecordReportsToSink(t *testing.T) {
	sink := &recordingSink{}
	inc := NewIncident(KindTokenVerificationFailed, "verifier").WithContext("slice_id", "abc123")
	Record(sink, inc)
	if len(sink.calls) != 1 || sink.calls[0] != "graph_kernel_token_verification_failures_total:critical" {
		t.Fatalf("unexpected sink calls: %v", sink.calls)
	}
}

func TestRecordToleratesNilSink(t *testing.T) {
	inc := NewIncident(KindOther, "test")
	Record(nil, inc) // must not panic
}

func TestSeverityResponseTimeSLA(t *testing.T) {
	if SeverityCritical.ResponseTimeSLA() != 0 {
		t.Fatal("critical severity must have a zero response time SLA")
	}
	if !SeverityCritical.RequiresPage() {
		t.Fatal("critical severity must require a page")
	}
	if SeverityLow.RequiresPage() {
		t.Fatal("low severity must not require a page")
	}
}

// Package security implements the kernel's incident taxonomy and
// quarantine ledger: the canary layer for the invariants the rest of
// the kernel enforces at the type level. Nothing in this package
// blocks a request — it only records what the core already refused.
package security

import (
	"time"

	"github.com/google/uuid"
)

// Severity is the incident-facing criticality of an incident type.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ResponseTimeSLA returns the expected time-to-investigate for a
// severity level.
func (s Severity) ResponseTimeSLA() time.Duration {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return time.Hour
	case SeverityMedium:
		return 4 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// RequiresPage reports whether a severity demands immediate paging.
func (s Severity) RequiresPage() bool {
	return s == SeverityCritical
}

// IncidentKind names the invariant class an Incident instance belongs
// to. Each kind maps to exactly one severity, one invariant tag, and
// one Prometheus metric name — all total functions, with no runtime
// configuration.
type IncidentKind string

const (
	KindSliceBoundaryViolation  IncidentKind = "slice_boundary_violation"
	KindUnverifiedEvidenceUsage IncidentKind = "unverified_evidence_usage"
	KindContentHashMismatch     IncidentKind = "content_hash_mismatch"
	KindTokenVerificationFailed IncidentKind = "token_verification_failure"
	KindSQLBoundaryBypass       IncidentKind = "sql_boundary_bypass"
	KindPolicyMutation          IncidentKind = "policy_mutation"
	KindOther                   IncidentKind = "other"
)

// Severity is a total function from IncidentKind to Severity.
func (k IncidentKind) Severity() Severity {
	switch k {
	case KindSliceBoundaryViolation, KindUnverifiedEvidenceUsage,
		KindTokenVerificationFailed, KindSQLBoundaryBypass:
		return SeverityCritical
	case KindPolicyMutation:
		return SeverityHigh
	case KindContentHashMismatch:
		return SeverityMedium
	default:
		return SeverityMedium
	}
}

// Invariant returns the invariant tag an incident kind responds to.
func (k IncidentKind) Invariant() string {
	switch k {
	case KindSliceBoundaryViolation:
		return "INV-GK-001"
	case KindUnverifiedEvidenceUsage:
		return "INV-GK-003"
	case KindContentHashMismatch:
		return "INV-GK-004"
	case KindTokenVerificationFailed:
		return "INV-GK-005"
	case KindPolicyMutation:
		return "INV-GK-007"
	case KindSQLBoundaryBypass:
		return "INV-GK-008"
	default:
		return "UNKNOWN"
	}
}

// MetricName returns the fixed Prometheus counter name for an
// incident kind.
func (k IncidentKind) MetricName() string {
	switch k {
	case KindSliceBoundaryViolation:
		return "graph_kernel_slice_boundary_violations_total"
	case KindUnverifiedEvidenceUsage:
		return "graph_kernel_unverified_evidence_usage_total"
	case KindContentHashMismatch:
		return "graph_kernel_content_hash_mismatches_total"
	case KindTokenVerificationFailed:
		return "graph_kernel_token_verification_failures_total"
	case KindSQLBoundaryBypass:
		return "graph_kernel_sql_boundary_bypass_total"
	case KindPolicyMutation:
		return "graph_kernel_policy_mutations_total"
	default:
		return "graph_kernel_other_incidents_total"
	}
}

// Incident is a recorded security event: a fixed kind, the severity
// and invariant tag it implies, a source, free-form redacted context,
// and an acknowledgement state.
type Incident struct {
	ID             string
	Timestamp      time.Time
	Kind           IncidentKind
	Severity       Severity
	Source         string
	Context        map[string]string
	Acknowledged   bool
	AcknowledgedAt time.Time
	AcknowledgedBy string
}

// NewIncident constructs an Incident with severity derived from kind.
func NewIncident(kind IncidentKind, source string) *Incident {
	return &Incident{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Severity:  kind.Severity(),
		Source:    source,
	}
}

// WithContext attaches a redacted context field and returns the
// receiver for chaining.
func (i *Incident) WithContext(key, value string) *Incident {
	if i.Context == nil {
		i.Context = make(map[string]string)
	}
	i.Context[key] = value
	return i
}

// Acknowledge marks the incident reviewed.
func (i *Incident) Acknowledge(by string) {
	i.Acknowledged = true
	i.AcknowledgedAt = time.Now().UTC()
	i.AcknowledgedBy = by
}

// MetricsSink is the single-method interface the kernel uses to
// report incidents to an observability backend. The core depends only
// on this interface, never on a concrete metrics client, so it stays
// backend-agnostic; NopSink is the correct default for callers that
// want the kernel silent.
type MetricsSink interface {
	Increment(metricName string, labels map[string]string)
}

// NopSink discards every increment. It is the zero-configuration
// default — a kernel embedder that never wires a real sink still
// behaves correctly, just without observability.
type NopSink struct{}

func (NopSink) Increment(string, map[string]string) {}

// Record reports an incident to sink using the incident's own kind,
// severity, and invariant tag as labels.
func Record(sink MetricsSink, incident *Incident) {
	if sink == nil {
		sink = NopSink{}
	}
	sink.Increment(incident.Kind.MetricName(), map[string]string{
		"severity":  string(incident.Severity),
		"invariant": incident.Kind.Invariant(),
	})
}

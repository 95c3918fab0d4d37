package evidence

import (
	"math"
	"sort"
	"strconv"

	"github.com/Diomandeee/admissibility-kernel/errtax"
	"github.com/Diomandeee/admissibility-kernel/turn"
)

// highSalienceThreshold is the salience a turn must meet to count
// toward DiversityMetrics.HighSalienceCount.
const highSalienceThreshold = 0.7

// DiversityMetrics summarizes the shape of a verified slice: how many
// distinct roles, phases, and sessions its turns span, the spread of
// their salience, and whether the slice contains an actual exchange
// (both a user and an assistant turn). A slice that is large but
// monotone in phase or role is exactly the case sufficiency policy
// exists to catch.
type DiversityMetrics struct {
	TurnCount uint32

	RoleCount    uint32
	PhaseCount   uint32
	SessionCount uint32

	Roles  RoleHistogram
	Phases PhaseHistogram

	SalienceMin    float32
	SalienceMax    float32
	SalienceMean   float32
	SalienceStdDev float32

	HighSalienceCount uint32
	HasExchange       bool
}

// RoleHistogram tallies how many turns of each role a slice contains.
// A fixed field per role, rather than a map, keeps the breakdown out
// of map-iteration-order territory entirely.
type RoleHistogram struct {
	User      uint32
	Assistant uint32
	System    uint32
	Tool      uint32
}

func (h *RoleHistogram) increment(role turn.Role) {
	switch role {
	case turn.RoleUser:
		h.User++
	case turn.RoleAssistant:
		h.Assistant++
	case turn.RoleSystem:
		h.System++
	case turn.RoleTool:
		h.Tool++
	}
}

// distinctCount returns how many of the four roles have a non-zero count.
func (h RoleHistogram) distinctCount() uint32 {
	var n uint32
	for _, c := range []uint32{h.User, h.Assistant, h.System, h.Tool} {
		if c > 0 {
			n++
		}
	}
	return n
}

// PhaseHistogram tallies how many turns of each phase a slice contains.
type PhaseHistogram struct {
	Exploration   uint32
	Debugging     uint32
	Planning      uint32
	Consolidation uint32
	Synthesis     uint32
}

func (h *PhaseHistogram) increment(phase turn.Phase) {
	switch phase {
	case turn.PhaseExploration:
		h.Exploration++
	case turn.PhaseDebugging:
		h.Debugging++
	case turn.PhasePlanning:
		h.Planning++
	case turn.PhaseConsolidation:
		h.Consolidation++
	case turn.PhaseSynthesis:
		h.Synthesis++
	}
}

// distinctCount returns how many of the five phases have a non-zero count.
func (h PhaseHistogram) distinctCount() uint32 {
	var n uint32
	for _, c := range []uint32{h.Exploration, h.Debugging, h.Planning, h.Consolidation, h.Synthesis} {
		if c > 0 {
			n++
		}
	}
	return n
}

// FromBundle derives DiversityMetrics from a verified bundle's turns.
func FromBundle(bundle *AdmissibleEvidenceBundle) DiversityMetrics {
	turns := bundle.Export().Turns

	var roles RoleHistogram
	var phases PhaseHistogram
	sessions := make(map[string]struct{})

	var sum, min, max float32
	var highCount uint32
	if len(turns) > 0 {
		min = turns[0].Salience
		max = turns[0].Salience
	}
	for _, t := range turns {
		phases.increment(t.Phase)
		roles.increment(t.Role)
		sessions[t.SessionID] = struct{}{}
		sum += t.Salience
		if t.Salience < min {
			min = t.Salience
		}
		if t.Salience > max {
			max = t.Salience
		}
		if t.Salience >= highSalienceThreshold {
			highCount++
		}
	}

	var mean, stddev float32
	if len(turns) > 0 {
		mean = sum / float32(len(turns))
		var variance float64
		for _, t := range turns {
			d := float64(t.Salience) - float64(mean)
			variance += d * d
		}
		variance /= float64(len(turns))
		stddev = float32(math.Sqrt(variance))
	}

	hasUser := roles.User > 0
	hasAssistant := roles.Assistant > 0

	return DiversityMetrics{
		TurnCount:         uint32(len(turns)),
		RoleCount:         roles.distinctCount(),
		PhaseCount:        phases.distinctCount(),
		SessionCount:      uint32(len(sessions)),
		Roles:             roles,
		Phases:            phases,
		SalienceMin:       min,
		SalienceMax:       max,
		SalienceMean:      mean,
		SalienceStdDev:    stddev,
		HighSalienceCount: highCount,
		HasExchange:       hasUser && hasAssistant,
	}
}

// ViolationKind names one way a slice can fail a SufficiencyPolicy.
type ViolationKind string

const (
	ViolationInsufficientTurns       ViolationKind = "insufficient_turns"
	ViolationInsufficientRoles       ViolationKind = "insufficient_roles"
	ViolationInsufficientPhases      ViolationKind = "insufficient_phases"
	ViolationInsufficientHighSalience ViolationKind = "insufficient_high_salience"
	ViolationNoExchange              ViolationKind = "no_exchange"
	ViolationLowMeanSalience         ViolationKind = "low_mean_salience"
)

// SufficiencyViolation is one enumerated failure of a sufficiency
// check, carrying the threshold and the value that missed it.
type SufficiencyViolation struct {
	Kind     ViolationKind
	Required float32
	Actual   float32
}

// SufficiencyPolicy gates whether a verified slice carries enough
// context diversity to be admitted for downstream use. It is evaluated
// after admissibility, not instead of it: a slice can be admissible
// (correctly attested) and still insufficient (too thin to be useful).
type SufficiencyPolicy struct {
	MinTurns         uint32
	MinRoles         uint32
	MinPhases        uint32
	MinHighSalience  uint32
	RequireExchange  bool
	MinMeanSalience  float32
}

// DefaultSufficiencyPolicy matches the kernel's default thresholds.
func DefaultSufficiencyPolicy() SufficiencyPolicy {
	return SufficiencyPolicy{
		MinTurns:        3,
		MinRoles:        2,
		MinPhases:       1,
		MinHighSalience: 1,
		RequireExchange: true,
		MinMeanSalience: 0.3,
	}
}

// StrictSufficiencyPolicy is the stricter preset spec.md names.
func StrictSufficiencyPolicy() SufficiencyPolicy {
	return SufficiencyPolicy{
		MinTurns:        5,
		MinRoles:        2,
		MinPhases:       2,
		MinHighSalience: 2,
		RequireExchange: true,
		MinMeanSalience: 0.5,
	}
}

// SufficiencyResult is the outcome of checking a bundle's diversity
// metrics against a policy.
type SufficiencyResult struct {
	IsSufficient bool
	Violations   []SufficiencyViolation
	Metrics      DiversityMetrics
}

// Check evaluates m against p, enumerating every threshold violated
// rather than stopping at the first.
func (p SufficiencyPolicy) Check(m DiversityMetrics) SufficiencyResult {
	var violations []SufficiencyViolation

	if m.TurnCount < p.MinTurns {
		violations = append(violations, SufficiencyViolation{ViolationInsufficientTurns, float32(p.MinTurns), float32(m.TurnCount)})
	}
	if m.RoleCount < p.MinRoles {
		violations = append(violations, SufficiencyViolation{ViolationInsufficientRoles, float32(p.MinRoles), float32(m.RoleCount)})
	}
	if m.PhaseCount < p.MinPhases {
		violations = append(violations, SufficiencyViolation{ViolationInsufficientPhases, float32(p.MinPhases), float32(m.PhaseCount)})
	}
	if m.HighSalienceCount < p.MinHighSalience {
		violations = append(violations, SufficiencyViolation{ViolationInsufficientHighSalience, float32(p.MinHighSalience), float32(m.HighSalienceCount)})
	}
	if p.RequireExchange && !m.HasExchange {
		violations = append(violations, SufficiencyViolation{Kind: ViolationNoExchange})
	}
	if m.SalienceMean < p.MinMeanSalience {
		violations = append(violations, SufficiencyViolation{ViolationLowMeanSalience, p.MinMeanSalience, m.SalienceMean})
	}

	sort.Slice(violations, func(i, j int) bool { return violations[i].Kind < violations[j].Kind })

	return SufficiencyResult{IsSufficient: len(violations) == 0, Violations: violations, Metrics: m}
}

// Evaluate is a convenience wrapper computing metrics from bundle and
// checking them against p in one call.
func (p SufficiencyPolicy) Evaluate(bundle *AdmissibleEvidenceBundle) (DiversityMetrics, error) {
	m := FromBundle(bundle)
	result := p.Check(m)
	if result.IsSufficient {
		return m, nil
	}
	return m, errtax.New(errtax.CodeSufficiencyNotMet, "slice does not meet sufficiency policy").
		WithContext("violation_count", strconv.Itoa(len(result.Violations))).
		WithContext("first_violation", string(result.Violations[0].Kind))
}

// EvidenceBundle is an AdmissibleEvidenceBundle that has additionally
// passed a SufficiencyPolicy under a named policy id, the final gate
// before a slice may be promoted into durable state.
type EvidenceBundle struct {
	bundle   *AdmissibleEvidenceBundle
	policyID string
	metrics  DiversityMetrics
}

// FromAdmissible constructs an EvidenceBundle, failing if bundle does
// not satisfy policy.
func FromAdmissible(bundle *AdmissibleEvidenceBundle, policy SufficiencyPolicy, policyID string) (*EvidenceBundle, error) {
	metrics, err := policy.Evaluate(bundle)
	if err != nil {
		return nil, err
	}
	return &EvidenceBundle{bundle: bundle, policyID: policyID, metrics: metrics}, nil
}

// Bundle returns the underlying admissible bundle.
func (e *EvidenceBundle) Bundle() *AdmissibleEvidenceBundle { return e.bundle }

// PolicyID returns the sufficiency policy id this bundle was evaluated
// under.
func (e *EvidenceBundle) PolicyID() string { return e.policyID }

// Metrics returns the diversity metrics computed during construction.
func (e *EvidenceBundle) Metrics() DiversityMetrics { return e.metrics }

package evidence

import (
	"testing"

	"github.com/Diomandeee/admissibility-kernel/turn"
)

func TestFromBundleCountsDistinctDimensions(t *testing.T) {
	a := mkSnap(1, turn.PhaseSynthesis, 0.9, 100)
	a.Role = turn.RoleUser
	b := mkSnap(2, turn.PhaseSynthesis, 0.4, 200)
	b.Role = turn.RoleAssistant
	c := mkSnap(3, turn.PhaseExploration, 0.1, 300)
	c.Role = turn.RoleAssistant
	bundle := mkBundle(t, []*turn.TurnSnapshot{a, b, c})

	m := FromBundle(bundle)
	if m.TurnCount != 3 {
		t.Fatalf("expected turn count 3, got %d", m.TurnCount)
	}
	if m.PhaseCount != 2 {
		t.Fatalf("expected phase count 2, got %d", m.PhaseCount)
	}
	if m.RoleCount != 2 {
		t.Fatalf("expected role count 2, got %d", m.RoleCount)
	}
	if !m.HasExchange {
		t.Fatal("expected has_exchange true when both user and assistant are present")
	}
	if m.HighSalienceCount != 1 {
		t.Fatalf("expected 1 high-salience turn (>=0.7), got %d", m.HighSalienceCount)
	}
	if m.Roles.User != 1 || m.Roles.Assistant != 2 {
		t.Fatalf("expected role histogram {user:1, assistant:2}, got %+v", m.Roles)
	}
	if m.Phases.Synthesis != 2 || m.Phases.Exploration != 1 {
		t.Fatalf("expected phase histogram {synthesis:2, exploration:1}, got %+v", m.Phases)
	}
}

func TestSufficiencyPolicyRejectsBelowMinTurns(t *testing.T) {
	a := mkSnap(1, turn.PhaseSynthesis, 0.9, 100)
	bundle := mkBundle(t, []*turn.TurnSnapshot{a})

	policy := SufficiencyPolicy{MinTurns: 2}
	_, err := policy.Evaluate(bundle)
	if err == nil {
		t.Fatal("expected sufficiency rejection below min turns")
	}
}

func TestSufficiencyPolicyCheckEnumeratesAllViolations(t *testing.T) {
	a := mkSnap(1, turn.PhaseExploration, 0.1, 100)
	bundle := mkBundle(t, []*turn.TurnSnapshot{a})

	result := DefaultSufficiencyPolicy().Check(FromBundle(bundle))
	if result.IsSufficient {
		t.Fatal("expected a single-turn, low-salience slice to be insufficient")
	}
	if len(result.Violations) < 2 {
		t.Fatalf("expected multiple enumerated violations, got %d", len(result.Violations))
	}
}

func TestFromAdmissibleAcceptsWhenThresholdsMet(t *testing.T) {
	a := mkSnap(1, turn.PhaseSynthesis, 0.9, 100)
	a.Role = turn.RoleUser
	b := mkSnap(2, turn.PhaseConsolidation, 0.8, 200)
	b.Role = turn.RoleAssistant
	c := mkSnap(3, turn.PhaseExploration, 0.8, 300)
	c.Role = turn.RoleAssistant
	bundle := mkBundle(t, []*turn.TurnSnapshot{a, b, c})

	eb, err := FromAdmissible(bundle, DefaultSufficiencyPolicy(), "default-sufficiency-v1")
	if err != nil {
		t.Fatal(err)
	}
	if eb.PolicyID() != "default-sufficiency-v1" {
		t.Fatalf("expected policy id to round-trip, got %s", eb.PolicyID())
	}
	if eb.Metrics().TurnCount != 3 {
		t.Fatalf("expected turn count 3, got %d", eb.Metrics().TurnCount)
	}
}

func TestStrictSufficiencyPolicyIsStricterThanDefault(t *testing.T) {
	strict := StrictSufficiencyPolicy()
	def := DefaultSufficiencyPolicy()
	if strict.MinTurns <= def.MinTurns {
		t.Fatal("expected strict preset to require more turns than default")
	}
	if strict.MinMeanSalience <= def.MinMeanSalience {
		t.Fatal("expected strict preset to require higher mean salience than default")
	}
}

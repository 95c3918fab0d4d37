package evidence

import (
	"errors"
	"testing"

	"github.com/Diomandeee/admissibility-kernel/turn"
)

func mkBundle(t *testing.T, turns []*turn.TurnSnapshot) *AdmissibleEvidenceBundle {
	t.Helper()
	v, _ := NewTokenVerifier(testSecret, 8)
	export, err := NewSliceExport(turns[0].ID, turns, nil, "p1", "hash1", testSecret)
	if err != nil {
		t.Fatal(err)
	}
	bundle, err := FromVerified(export, v, 1700000000)
	if err != nil {
		t.Fatal(err)
	}
	return bundle
}

func TestBoundaryGuardAdmitsInSliceAccess(t *testing.T) {
	a := mkSnap(1, turn.PhaseSynthesis, 0.9, 100)
	b := mkSnap(2, turn.PhaseExploration, 0.4, 200)
	bundle := mkBundle(t, []*turn.TurnSnapshot{a, b})
	guard := NewSliceBoundaryGuard(bundle)

	if err := guard.CheckAccess(a.ID, 1000, "test"); err != nil {
		t.Fatalf("expected a to be admitted, got %v", err)
	}
	if err := guard.CheckAccess(b.ID, 1000, "test"); err != nil {
		t.Fatalf("expected b to be admitted, got %v", err)
	}
	if guard.BoundaryHash == "" {
		t.Fatal("expected a non-empty boundary hash")
	}
	if guard.SliceFingerprint != bundle.Export().SliceID {
		t.Fatalf("expected slice fingerprint to match export slice id")
	}
}

func TestBoundaryGuardRejectsOutOfSliceAccessWithoutPanicking(t *testing.T) {
	a := mkSnap(1, turn.PhaseSynthesis, 0.9, 100)
	outside := mkSnap(9, turn.PhaseExploration, 0.4, 200)
	bundle := mkBundle(t, []*turn.TurnSnapshot{a})
	guard := NewSliceBoundaryGuard(bundle)

	err := guard.CheckAccess(outside.ID, 1700000000, "replay")
	if err == nil {
		t.Fatal("expected out-of-slice access to be rejected")
	}
	var violation *BoundaryViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected a *BoundaryViolation, got %T", err)
	}
	if violation.RequestedID != outside.ID {
		t.Fatalf("expected violation to name the requested id")
	}
	if violation.Timestamp != 1700000000 || violation.Context != "replay" {
		t.Fatalf("expected violation to carry the caller-supplied timestamp and context, got %+v", violation)
	}
}

func TestBoundaryGuardCheckAccessAllStopsAtFirstViolation(t *testing.T) {
	a := mkSnap(1, turn.PhaseSynthesis, 0.9, 100)
	outside := mkSnap(9, turn.PhaseExploration, 0.4, 200)
	bundle := mkBundle(t, []*turn.TurnSnapshot{a})
	guard := NewSliceBoundaryGuard(bundle)

	err := guard.CheckAccessAll([]turn.TurnId{a.ID, outside.ID}, 1700000000, "replay")
	if err == nil {
		t.Fatal("expected violation on the second id")
	}
}

func TestBuildAdmittedIDsQueryParameterizesIDs(t *testing.T) {
	a := mkSnap(1, turn.PhaseSynthesis, 0.9, 100)
	b := mkSnap(2, turn.PhaseExploration, 0.4, 200)
	bundle := mkBundle(t, []*turn.TurnSnapshot{a, b})
	guard := NewSliceBoundaryGuard(bundle)

	query, args := guard.BuildAdmittedIDsQuery("memory_turns")
	if len(args) != 2 {
		t.Fatalf("expected 2 bind args, got %d", len(args))
	}
	if query == "" {
		t.Fatal("expected a non-empty query")
	}
}

func TestBuildAdmittedIDsQueryEmptySlice(t *testing.T) {
	a := mkSnap(1, turn.PhaseSynthesis, 0.9, 100)
	bundle := mkBundle(t, []*turn.TurnSnapshot{a})
	guard := &SliceBoundaryGuard{bundle: bundle, admitted: map[turn.TurnId]struct{}{}}

	_, args := guard.BuildAdmittedIDsQuery("memory_turns")
	if args != nil {
		t.Fatalf("expected no bind args for an empty admitted set, got %v", args)
	}
}

package evidence

import (
	"testing"

	"github.com/Diomandeee/admissibility-kernel/turn"
)

func mkExport(t *testing.T) *SliceExport {
	t.Helper()
	anchor := mkSnap(1, turn.PhaseSynthesis, 0.9, 100)
	export, err := NewSliceExport(anchor.ID, []*turn.TurnSnapshot{anchor}, nil, "p1", "hash1", testSecret)
	if err != nil {
		t.Fatal(err)
	}
	return export
}

func TestFromVerifiedAcceptsValidExport(t *testing.T) {
	v, _ := NewTokenVerifier(testSecret, 8)
	export := mkExport(t)
	bundle, err := FromVerified(export, v, 1700000000)
	if err != nil {
		t.Fatal(err)
	}
	if !bundle.Verified() {
		t.Fatal("expected bundle to report verified")
	}
	if bundle.Export() != export {
		t.Fatal("expected bundle to wrap the same export")
	}
}

func TestFromVerifiedRejectsTamperedToken(t *testing.T) {
	v, _ := NewTokenVerifier(testSecret, 8)
	export := mkExport(t)
	export.AdmissibilityToken = "0000000000000000000000000000000"[:32]
	_, err := FromVerified(export, v, 1700000000)
	if err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestFromVerifiedRejectsWrongSecret(t *testing.T) {
	v, _ := NewTokenVerifier([]byte("a-different-secret-entirely"), 8)
	export := mkExport(t)
	_, err := FromVerified(export, v, 1700000000)
	if err == nil {
		t.Fatal("expected verification under the wrong secret to fail")
	}
}

func TestFromVerifiedRejectsNilExport(t *testing.T) {
	v, _ := NewTokenVerifier(testSecret, 8)
	_, err := FromVerified(nil, v, 1700000000)
	if err == nil {
		t.Fatal("expected nil export to be rejected")
	}
}

package atlas

import (
	"testing"

	"github.com/Diomandeee/admissibility-kernel/evidence"
	"github.com/Diomandeee/admissibility-kernel/turn"
)

func buildTestManifest(t *testing.T, u1, u2 turn.TurnId) *Manifest {
	t.Helper()

	snapInput := SnapshotInput{
		TurnIDs:    []turn.TurnId{u1, u2},
		Edges:      []turn.Edge{{Parent: u1, Child: u2, Type: turn.EdgeReply}},
		Timestamps: []int64{1000, 2000},
	}
	snap := ComputeSnapshot(snapInput, 0)

	entry := SliceRegistryEntry{AnchorTurnID: u1.String(), SliceID: "slice1", TurnCount: 5, EdgeCount: 4, PolicyParamsHash: "params_hash"}
	batchResult := BatchSliceResult{
		SnapshotID:       "test_snapshot",
		AnchorSetHash:    "anchor_hash",
		PolicyID:         "policy_v1",
		PolicyParamsHash: "params_hash",
		Slices:           nil,
		Registry:         NewSliceRegistry([]SliceRegistryEntry{entry}),
	}

	overlapGraph := NewOverlapGraph(nil, 1, 0.0)
	influence := NewInfluenceScores(nil, 0)
	topology := NewPhaseTopologyStats(map[string]float32{}, map[string][]string{}, nil)

	manifest, err := NewBuilder().
		WithSnapshot(snap).
		WithBatchResult(batchResult).
		WithOverlapGraph(overlapGraph).
		WithInfluenceScores(influence).
		WithPhaseTopology(topology).
		Build(1234)
	if err != nil {
		t.Fatal(err)
	}
	return manifest
}

func TestBuilderBuild(t *testing.T) {
	manifest := buildTestManifest(t, turn.NewTurnID(), turn.NewTurnID())
	if manifest.AtlasID == "" {
		t.Fatal("expected a non-empty atlas_id")
	}
	if manifest.Version != SchemaVersion {
		t.Fatalf("expected version %s, got %s", SchemaVersion, manifest.Version)
	}
	if manifest.Stats.AnchorCount != 1 {
		t.Fatalf("expected anchor_count 1, got %d", manifest.Stats.AnchorCount)
	}
}

func TestBuilderRejectsIncompleteManifest(t *testing.T) {
	_, err := NewBuilder().WithSnapshot(GraphSnapshot{}).Build(0)
	if err == nil {
		t.Fatal("expected an error when components are missing")
	}
}

func TestManifestDeterminism(t *testing.T) {
	_ = evidence.SchemaVersion // sanity: evidence and atlas schema versions are independently named
	u1, u2 := turn.NewTurnID(), turn.NewTurnID()
	m1 := buildTestManifest(t, u1, u2)
	m2 := buildTestManifest(t, u1, u2)
	if m1.AtlasID != m2.AtlasID {
		t.Fatalf("expected identical atlas_id from identical inputs, got %s vs %s", m1.AtlasID, m2.AtlasID)
	}
}

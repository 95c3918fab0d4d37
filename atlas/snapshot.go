// Package atlas computes the global structure of a conversation DAG
// through a sequence of bounded, versioned, order-independent passes:
// a snapshot fingerprint of the store, an anchor set, a batch of
// slices, an overlap graph between those slices, turn-influence
// scores, and a phase-topology summary — all fused into one manifest.
// Given the same snapshot_id and policy_id, an Atlas run is
// byte-identical on every invocation.
package atlas

import (
	"context"

	"github.com/Diomandeee/admissibility-kernel/canonical"
	"github.com/Diomandeee/admissibility-kernel/errtax"
	"github.com/Diomandeee/admissibility-kernel/evidence"
	"github.com/Diomandeee/admissibility-kernel/store"
	"github.com/Diomandeee/admissibility-kernel/turn"
)

// GraphSnapshot is a deterministic fingerprint of an entire store's
// state, computed before any other Atlas pass begins. Downstream
// artifacts reference SnapshotID to prove they were computed against a
// specific graph state.
type GraphSnapshot struct {
	SnapshotID    string
	TurnCount     uint64
	EdgeCount     uint64
	MaxTimestamp  int64
	SchemaVersion string
	TurnIDHash    string
	EdgePairHash  string
	ComputedAt    int64 // not part of SnapshotID
}

// SnapshotInput is the raw material GraphSnapshot is computed from.
type SnapshotInput struct {
	TurnIDs    []turn.TurnId
	Edges      []turn.Edge
	Timestamps []int64
}

// ComputeSnapshot computes a GraphSnapshot from input. Turn ids and
// edge pairs are sorted before hashing, so the result is independent
// of the order input.TurnIDs and input.Edges arrived in.
func ComputeSnapshot(input SnapshotInput, computedAt int64) GraphSnapshot {
	turnCount := uint64(len(input.TurnIDs))
	edgeCount := uint64(len(input.Edges))

	var maxTimestamp int64
	for _, ts := range input.Timestamps {
		if ts > maxTimestamp {
			maxTimestamp = ts
		}
	}

	sortedIDs := turn.SortTurnIDs(dedupeTurnIDs(input.TurnIDs))
	idFields := make([]canonical.Field, len(sortedIDs))
	for i, id := range sortedIDs {
		idFields[i] = canonical.Str(id.String())
	}
	turnIDHash := canonical.CanonicalHashHex(canonical.Seq(idFields...))

	sortedEdges := turn.SortEdges(input.Edges)
	edgeFields := make([]canonical.Field, len(sortedEdges))
	for i, e := range sortedEdges {
		edgeFields[i] = canonical.Seq(canonical.Str(e.Parent.String()), canonical.Str(e.Child.String()))
	}
	edgePairHash := canonical.CanonicalHashHex(canonical.Seq(edgeFields...))

	snapshotID := canonical.CanonicalHashHex(
		canonical.Uint64(turnCount),
		canonical.Uint64(edgeCount),
		canonical.Int64(maxTimestamp),
		canonical.Str(evidence.SchemaVersion),
		canonical.Str(turnIDHash),
		canonical.Str(edgePairHash),
	)

	return GraphSnapshot{
		SnapshotID:    snapshotID,
		TurnCount:     turnCount,
		EdgeCount:     edgeCount,
		MaxTimestamp:  maxTimestamp,
		SchemaVersion: evidence.SchemaVersion,
		TurnIDHash:    turnIDHash,
		EdgePairHash:  edgePairHash,
		ComputedAt:    computedAt,
	}
}

// Verify recomputes a snapshot from input and reports whether it
// matches s's SnapshotID. ComputedAt is excluded from the comparison,
// same as from the hash.
func (s GraphSnapshot) Verify(input SnapshotInput) bool {
	recomputed := ComputeSnapshot(input, s.ComputedAt)
	return s.SnapshotID == recomputed.SnapshotID
}

// dedupeTurnIDs returns ids with duplicates removed, order not
// preserved (the caller sorts immediately after).
func dedupeTurnIDs(ids []turn.TurnId) []turn.TurnId {
	seen := make(map[turn.TurnId]struct{}, len(ids))
	out := make([]turn.TurnId, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ComputeSnapshotFromStore fetches every turn and edge from st and
// computes a GraphSnapshot over the whole graph.
func ComputeSnapshotFromStore(ctx context.Context, st store.Store, computedAt int64) (GraphSnapshot, error) {
	turns, err := st.AllTurns(ctx)
	if err != nil {
		return GraphSnapshot{}, errtax.New(errtax.CodeStoreError, "failed to fetch all turns for snapshot").WithCause(err)
	}
	edges, err := st.AllEdges(ctx)
	if err != nil {
		return GraphSnapshot{}, errtax.New(errtax.CodeStoreError, "failed to fetch all edges for snapshot").WithCause(err)
	}

	ids := make([]turn.TurnId, len(turns))
	timestamps := make([]int64, len(turns))
	for i, t := range turns {
		ids[i] = t.ID
		timestamps[i] = t.CreatedAt
	}

	return ComputeSnapshot(SnapshotInput{TurnIDs: ids, Edges: edges, Timestamps: timestamps}, computedAt), nil
}

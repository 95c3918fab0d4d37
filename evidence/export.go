// Package evidence implements slice export and fingerprinting, the
// admissibility token, the cached token verifier, the type-state
// admissible-evidence bundle, the slice-boundary guard, and the
// sufficiency policy over diversity metrics.
package evidence

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"

	"github.com/Diomandeee/admissibility-kernel/canonical"
	"github.com/Diomandeee/admissibility-kernel/errtax"
	"github.com/Diomandeee/admissibility-kernel/turn"
)

// SchemaVersion flows through every hash in the kernel. Bumping it
// invalidates every prior token and fingerprint by construction.
const SchemaVersion = "v1"

// SliceExport is the immutable result of a slicer run: the selected
// turns and edges, the policy that produced them, and the fingerprints
// and token that attest to both selection identity (SliceID) and
// content identity (GraphSnapshotHash).
type SliceExport struct {
	AnchorTurnID turn.TurnId
	Turns        []*turn.TurnSnapshot // sorted ascending by id
	Edges        []turn.Edge          // sorted lexicographically

	PolicyID         string
	PolicyParamsHash string
	SchemaVersion    string

	SliceID             string
	GraphSnapshotHash   string
	AdmissibilityToken  string
}

// turnIDs returns the ascending turn ids of the export.
func (s *SliceExport) turnIDs() []turn.TurnId {
	ids := make([]turn.TurnId, len(s.Turns))
	for i, t := range s.Turns {
		ids[i] = t.ID
	}
	return ids
}

// computeSliceID is the xxh64 hex of the canonical tuple (anchor,
// turn_ids, edges, policy_id, policy_params_hash, schema_version).
// Turn snapshots other than their ids are not hashed here — slice_id
// names selection identity, not content identity.
func computeSliceID(anchor turn.TurnId, ids []turn.TurnId, edges []turn.Edge, policyID, policyParamsHash, schemaVersion string) string {
	idFields := make([]canonical.Field, len(ids))
	for i, id := range ids {
		idFields[i] = canonical.Bytes(id.Bytes())
	}
	edgeFields := make([]canonical.Field, len(edges))
	for i, e := range edges {
		edgeFields[i] = canonical.Seq(
			canonical.Bytes(e.Parent.Bytes()),
			canonical.Bytes(e.Child.Bytes()),
			canonical.Str(string(e.Type)),
		)
	}
	return canonical.CanonicalHashHex(
		canonical.Bytes(anchor.Bytes()),
		canonical.Seq(idFields...),
		canonical.Seq(edgeFields...),
		canonical.Str(policyID),
		canonical.Str(policyParamsHash),
		canonical.Str(schemaVersion),
	)
}

// GraphSnapshotHash computes the content-identity fingerprint of a set
// of turns and edges. Content mode is used when every turn carries a
// content hash; otherwise the stats-mode fallback is used.
func GraphSnapshotHash(turns []*turn.TurnSnapshot, edgeCount int, schemaVersion string) string {
	if allHaveContentHash(turns) {
		return graphSnapshotHashContentMode(turns, edgeCount, schemaVersion)
	}
	return graphSnapshotHashStatsMode(turns, edgeCount, schemaVersion)
}

func allHaveContentHash(turns []*turn.TurnSnapshot) bool {
	for _, t := range turns {
		if t.ContentHash == nil {
			return false
		}
	}
	return true
}

// graphSnapshotHashContentMode folds edge_count || schema_version ||
// ∀ sorted (turn_id bytes || content_hash bytes) through xxh64. Any
// content change in any turn changes the hash. Turns are assumed
// already sorted ascending by id.
func graphSnapshotHashContentMode(turns []*turn.TurnSnapshot, edgeCount int, schemaVersion string) string {
	h := xxhash.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(edgeCount))
	h.Write(buf[:])
	h.Write([]byte(schemaVersion))
	for _, t := range turns {
		h.Write(t.ID.Bytes())
		contentHashBytes, err := hex.DecodeString(*t.ContentHash)
		if err != nil {
			// Malformed stored hash: fold the raw string bytes so the
			// hash still reacts to the corruption instead of panicking.
			h.Write([]byte(*t.ContentHash))
			continue
		}
		h.Write(contentHashBytes)
	}
	sum := h.Sum64()
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], sum)
	return hex.EncodeToString(out[:])
}

// graphSnapshotHashStatsMode is the fallback used when any turn lacks a
// content hash: xxh64 hex of (max_created_at, turn_count, edge_count,
// schema_version).
func graphSnapshotHashStatsMode(turns []*turn.TurnSnapshot, edgeCount int, schemaVersion string) string {
	var maxCreatedAt int64
	for _, t := range turns {
		if t.CreatedAt > maxCreatedAt {
			maxCreatedAt = t.CreatedAt
		}
	}
	return canonical.CanonicalHashHex(
		canonical.Int64(maxCreatedAt),
		canonical.Uint64(uint64(len(turns))),
		canonical.Uint64(uint64(edgeCount)),
		canonical.Str(schemaVersion),
	)
}

// NewSliceExport builds a SliceExport from a selection, computing both
// fingerprints and issuing the admissibility token under secret. turns
// must already be sorted ascending by id and edges lexicographically
// sorted; the slicer guarantees this.
func NewSliceExport(anchor turn.TurnId, turns []*turn.TurnSnapshot, edges []turn.Edge, policyID, policyParamsHash string, secret []byte) (*SliceExport, error) {
	ids := make([]turn.TurnId, len(turns))
	for i, t := range turns {
		ids[i] = t.ID
	}

	sliceID := computeSliceID(anchor, ids, edges, policyID, policyParamsHash, SchemaVersion)
	snapshotHash := GraphSnapshotHash(turns, len(edges), SchemaVersion)

	token, err := IssueToken(secret, TokenFields{
		SliceID:           sliceID,
		AnchorUUID:        anchor.String(),
		PolicyID:          policyID,
		PolicyParamsHash:  policyParamsHash,
		GraphSnapshotHash: snapshotHash,
		SchemaVersion:     SchemaVersion,
	})
	if err != nil {
		return nil, errtax.New(errtax.CodeInternalVerificationFailure, "failed to issue admissibility token").WithCause(err)
	}

	return &SliceExport{
		AnchorTurnID:       anchor,
		Turns:              turns,
		Edges:              edges,
		PolicyID:           policyID,
		PolicyParamsHash:   policyParamsHash,
		SchemaVersion:      SchemaVersion,
		SliceID:            sliceID,
		GraphSnapshotHash:  snapshotHash,
		AdmissibilityToken: token,
	}, nil
}

// TokenFieldsFromExport extracts the bound fields a SliceExport's token
// was issued over, for re-verification.
func (s *SliceExport) TokenFieldsFromExport() TokenFields {
	return TokenFields{
		SliceID:           s.SliceID,
		AnchorUUID:        s.AnchorTurnID.String(),
		PolicyID:          s.PolicyID,
		PolicyParamsHash:  s.PolicyParamsHash,
		GraphSnapshotHash: s.GraphSnapshotHash,
		SchemaVersion:     s.SchemaVersion,
	}
}

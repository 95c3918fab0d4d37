package evidence

import (
	"github.com/Diomandeee/admissibility-kernel/errtax"
	"github.com/Diomandeee/admissibility-kernel/turn"
)

// EmbeddingModelRef names the embedding model whose ranking drove a
// slice's retrieval, so a replay can be checked against the same model
// rather than assumed compatible with whatever model is current.
type EmbeddingModelRef struct {
	ModelID string
	Version string
}

// IsComplete reports whether the reference carries enough identity to
// be useful for a replay comparison.
func (m EmbeddingModelRef) IsComplete() bool {
	return m.ModelID != "" && m.Version != ""
}

// ProvenanceRecord is the replay-sufficient audit trail attached to a
// verified bundle: which model and policy produced it, against which
// graph state, verified when and by which verifier configuration. It
// exists for downstream audit logging and replay, not for
// re-verification — re-verification belongs to FromVerified and
// TokenVerifier alone.
type ProvenanceRecord struct {
	SliceID           string
	AnchorTurnID      turn.TurnId
	PolicyID          string
	PolicyParamsHash  string
	GraphSnapshotHash string
	Model             EmbeddingModelRef
	VerifiedAt        int64 // unix seconds, caller-supplied
	VerifierCacheLen  int
}

// IsComplete reports whether rec carries every field a replay needs:
// the slice and policy identity, the graph state it was computed
// against, and the model that produced it. A record that fails this
// cannot be trusted to reproduce the slice it describes.
func (rec ProvenanceRecord) IsComplete() bool {
	return rec.SliceID != "" &&
		rec.PolicyID != "" &&
		rec.PolicyParamsHash != "" &&
		rec.GraphSnapshotHash != "" &&
		rec.Model.IsComplete()
}

// NewProvenanceRecord derives a ProvenanceRecord from a verified
// bundle and the model that produced it. verifiedAt is supplied by the
// caller (via a clock) rather than read from the system clock here,
// keeping this package free of direct time-source dependencies. It
// rejects an incomplete record rather than returning one silently
// unfit for replay.
func NewProvenanceRecord(bundle *AdmissibleEvidenceBundle, v *TokenVerifier, verifiedAt int64, model EmbeddingModelRef) (ProvenanceRecord, error) {
	export := bundle.Export()
	rec := ProvenanceRecord{
		SliceID:           export.SliceID,
		AnchorTurnID:      export.AnchorTurnID,
		PolicyID:          export.PolicyID,
		PolicyParamsHash:  export.PolicyParamsHash,
		GraphSnapshotHash: export.GraphSnapshotHash,
		Model:             model,
		VerifiedAt:        verifiedAt,
		VerifierCacheLen:  v.Len(),
	}
	if !rec.IsComplete() {
		return ProvenanceRecord{}, errtax.New(errtax.CodeIncompleteProvenance, "provenance record is missing fields required to replay its slice").
			WithContext("slice_id", rec.SliceID)
	}
	return rec, nil
}

package atlas

import (
	"github.com/Diomandeee/admissibility-kernel/canonical"
	"github.com/Diomandeee/admissibility-kernel/turn"
)

// AnchorSet is the sorted, deduplicated set of anchor turns a batch
// Atlas run slices, tagged with the selection policy that produced it.
type AnchorSet struct {
	Anchors         []turn.TurnId
	SelectionPolicy string
	AnchorSetHash   string
}

// NewAnchorSet sorts and deduplicates anchors, then hashes the sorted
// uuid strings together with selectionPolicy.
func NewAnchorSet(anchors []turn.TurnId, selectionPolicy string) AnchorSet {
	sorted := turn.SortTurnIDs(dedupeTurnIDs(anchors))

	fields := make([]canonical.Field, len(sorted))
	for i, id := range sorted {
		fields[i] = canonical.Str(id.String())
	}
	hash := canonical.CanonicalHashHex(canonical.Seq(fields...), canonical.Str(selectionPolicy))

	return AnchorSet{Anchors: sorted, SelectionPolicy: selectionPolicy, AnchorSetHash: hash}
}

// Len returns the number of anchors in the set.
func (a AnchorSet) Len() int { return len(a.Anchors) }

// IsEmpty reports whether the set has no anchors.
func (a AnchorSet) IsEmpty() bool { return len(a.Anchors) == 0 }

package atlas

import (
	"context"
	"sort"

	"github.com/Diomandeee/admissibility-kernel/canonical"
	"github.com/Diomandeee/admissibility-kernel/evidence"
	"github.com/Diomandeee/admissibility-kernel/policy"
	"github.com/Diomandeee/admissibility-kernel/slicer"
	"github.com/Diomandeee/admissibility-kernel/turn"
)

// SliceRegistryEntry is one slice's metadata within a batch run.
type SliceRegistryEntry struct {
	AnchorTurnID     string
	SliceID          string
	TurnCount        uint64
	EdgeCount        uint64
	PolicyParamsHash string
}

func (e SliceRegistryEntry) canonicalField() canonical.Field {
	return canonical.Seq(
		canonical.Str(e.AnchorTurnID),
		canonical.Str(e.SliceID),
		canonical.Uint64(e.TurnCount),
		canonical.Uint64(e.EdgeCount),
		canonical.Str(e.PolicyParamsHash),
	)
}

// SliceRegistry is the content-addressed index of every slice produced
// by one batch Atlas run, in the order the anchors were sliced.
type SliceRegistry struct {
	Entries      []SliceRegistryEntry
	RegistryHash string
}

// NewSliceRegistry builds a registry from entries, preserving their
// given order (batch order, not sorted) and hashing them as given —
// the registry hash is therefore sensitive to anchor order, matching
// the batch slicer's own order-preserving contract.
func NewSliceRegistry(entries []SliceRegistryEntry) SliceRegistry {
	fields := make([]canonical.Field, len(entries))
	for i, e := range entries {
		fields[i] = e.canonicalField()
	}
	return SliceRegistry{Entries: entries, RegistryHash: canonical.CanonicalHashHex(canonical.Seq(fields...))}
}

// GetByAnchor returns the entry for anchorID, or nil if absent.
func (r SliceRegistry) GetByAnchor(anchorID string) *SliceRegistryEntry {
	for i := range r.Entries {
		if r.Entries[i].AnchorTurnID == anchorID {
			return &r.Entries[i]
		}
	}
	return nil
}

// GetBySliceID returns the entry for sliceID, or nil if absent.
func (r SliceRegistry) GetBySliceID(sliceID string) *SliceRegistryEntry {
	for i := range r.Entries {
		if r.Entries[i].SliceID == sliceID {
			return &r.Entries[i]
		}
	}
	return nil
}

// BatchSliceResult is the outcome of slicing every anchor in an
// AnchorSet against one policy.
type BatchSliceResult struct {
	SnapshotID       string
	AnchorSetHash    string
	PolicyID         string
	PolicyParamsHash string
	Slices           []*evidence.SliceExport
	Registry         SliceRegistry
}

// BatchSlicer runs one Slicer across many anchors, producing a
// BatchSliceResult whose slice order mirrors the anchor order given —
// so a caller's own trace of anchors lines up with result.Slices.
type BatchSlicer struct {
	sl  *slicer.Slicer
	pol policy.SlicePolicyV1
}

// NewBatchSlicer constructs a BatchSlicer over sl using pol for every
// anchor.
func NewBatchSlicer(sl *slicer.Slicer, pol policy.SlicePolicyV1) *BatchSlicer {
	return &BatchSlicer{sl: sl, pol: pol}
}

// SliceAll slices every anchor in anchors, in order, returning a
// BatchSliceResult stamped with snapshotID and anchorSetHash. A
// failure on any one anchor aborts the whole batch: partial results
// are never returned, since a caller relying on the registry hash
// needs every anchor accounted for. This is deliberately stricter than
// slicer.Slicer's own BatchSlice, which tolerates per-anchor failures
// — a registry's hash has no meaning over a partial anchor set.
func (b *BatchSlicer) SliceAll(ctx context.Context, anchors []turn.TurnId, snapshotID, anchorSetHash string, verifiedAt int64) (*BatchSliceResult, error) {
	policyParamsHash := b.pol.ParamsHash()

	slices := make([]*evidence.SliceExport, 0, len(anchors))
	entries := make([]SliceRegistryEntry, 0, len(anchors))

	for _, anchor := range anchors {
		bundle, err := b.sl.Slice(ctx, anchor, b.pol, verifiedAt)
		if err != nil {
			return nil, err
		}
		export := bundle.Export()

		entries = append(entries, SliceRegistryEntry{
			AnchorTurnID:     anchor.String(),
			SliceID:          export.SliceID,
			TurnCount:        uint64(len(export.Turns)),
			EdgeCount:        uint64(len(export.Edges)),
			PolicyParamsHash: policyParamsHash,
		})
		slices = append(slices, export)
	}

	return &BatchSliceResult{
		SnapshotID:       snapshotID,
		AnchorSetHash:    anchorSetHash,
		PolicyID:         b.pol.Version,
		PolicyParamsHash: policyParamsHash,
		Slices:           slices,
		Registry:         NewSliceRegistry(entries),
	}, nil
}

// BuildTurnSliceIndex maps each turn id that appears in any slice of
// result to the sorted list of slice ids it appears in.
func BuildTurnSliceIndex(result *BatchSliceResult) map[string][]string {
	index := make(map[string][]string)
	for _, slice := range result.Slices {
		for _, t := range slice.Turns {
			id := t.ID.String()
			index[id] = append(index[id], slice.SliceID)
		}
	}
	for id := range index {
		sort.Strings(index[id])
	}
	return index
}

package atlas

import (
	"sort"

	"github.com/Diomandeee/admissibility-kernel/canonical"
	"github.com/Diomandeee/admissibility-kernel/evidence"
)

// OverlapEdge records the shared-turn overlap between two slices.
// SliceA and SliceB are always in canonical (lexicographically
// ascending) order, independent of which slice was compared first.
type OverlapEdge struct {
	SliceA      string
	SliceB      string
	SharedTurns int
	Jaccard     float32
}

// NewOverlapEdge constructs an OverlapEdge, canonicalizing sliceA <
// sliceB.
func NewOverlapEdge(sliceA, sliceB string, shared int, jaccard float32) OverlapEdge {
	if sliceA > sliceB {
		sliceA, sliceB = sliceB, sliceA
	}
	return OverlapEdge{SliceA: sliceA, SliceB: sliceB, SharedTurns: shared, Jaccard: jaccard}
}

func (e OverlapEdge) canonicalField() canonical.Field {
	return canonical.Seq(
		canonical.Str(e.SliceA),
		canonical.Str(e.SliceB),
		canonical.Uint64(uint64(e.SharedTurns)),
		canonical.Int64(canonical.QuantizeFloat32(e.Jaccard)),
	)
}

// OverlapGraph is the complete set of above-threshold overlap edges
// between the slices of one batch run.
type OverlapGraph struct {
	Edges      []OverlapEdge
	SliceCount int
	GraphHash  string
	MinJaccard float32
}

// NewOverlapGraph builds an OverlapGraph from edges (already filtered
// and sorted by the caller — see OverlapAnalyzer.Compute).
func NewOverlapGraph(edges []OverlapEdge, sliceCount int, minJaccard float32) OverlapGraph {
	fields := make([]canonical.Field, len(edges))
	for i, e := range edges {
		fields[i] = e.canonicalField()
	}
	return OverlapGraph{
		Edges:      edges,
		SliceCount: sliceCount,
		GraphHash:  canonical.CanonicalHashHex(canonical.Seq(fields...)),
		MinJaccard: minJaccard,
	}
}

// EdgesForSlice returns every edge touching sliceID.
func (g OverlapGraph) EdgesForSlice(sliceID string) []OverlapEdge {
	var out []OverlapEdge
	for _, e := range g.Edges {
		if e.SliceA == sliceID || e.SliceB == sliceID {
			out = append(out, e)
		}
	}
	return out
}

// Neighbors returns the slice ids adjacent to sliceID in the overlap
// graph.
func (g OverlapGraph) Neighbors(sliceID string) []string {
	var out []string
	for _, e := range g.EdgesForSlice(sliceID) {
		if e.SliceA == sliceID {
			out = append(out, e.SliceB)
		} else {
			out = append(out, e.SliceA)
		}
	}
	return out
}

// HubDegree pairs a slice id with its degree in the overlap graph.
type HubDegree struct {
	SliceID string
	Degree  int
}

// HubSlices returns every slice whose overlap-graph degree is at least
// minDegree, sorted by degree descending (ties broken by slice id
// ascending, via the stable sort over a degree-ascending base order).
func (g OverlapGraph) HubSlices(minDegree int) []HubDegree {
	degrees := make(map[string]int)
	for _, e := range g.Edges {
		degrees[e.SliceA]++
		degrees[e.SliceB]++
	}

	ids := make([]string, 0, len(degrees))
	for id := range degrees {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	hubs := make([]HubDegree, 0, len(ids))
	for _, id := range ids {
		if d := degrees[id]; d >= minDegree {
			hubs = append(hubs, HubDegree{SliceID: id, Degree: d})
		}
	}
	sort.SliceStable(hubs, func(i, j int) bool { return hubs[i].Degree > hubs[j].Degree })
	return hubs
}

// OverlapAnalyzer computes an OverlapGraph from a set of slices,
// filtering edges below MinJaccard.
type OverlapAnalyzer struct {
	MinJaccard float32
}

// NewOverlapAnalyzer returns an analyzer that includes every
// non-zero-shared overlap.
func NewOverlapAnalyzer() OverlapAnalyzer {
	return OverlapAnalyzer{MinJaccard: 0.0}
}

// WithMinJaccard returns an analyzer filtering edges below minJaccard.
func WithMinJaccard(minJaccard float32) OverlapAnalyzer {
	return OverlapAnalyzer{MinJaccard: minJaccard}
}

// Compute builds the overlap graph over slices: every unordered pair
// whose turn-id sets share at least one turn and whose Jaccard meets
// MinJaccard becomes an edge, sorted lexicographically by (slice_a,
// slice_b) before hashing.
func (a OverlapAnalyzer) Compute(slices []*evidence.SliceExport) OverlapGraph {
	type sliceTurns struct {
		id    string
		turns map[string]struct{}
	}
	sets := make([]sliceTurns, len(slices))
	for i, s := range slices {
		set := make(map[string]struct{}, len(s.Turns))
		for _, t := range s.Turns {
			set[t.ID.String()] = struct{}{}
		}
		sets[i] = sliceTurns{id: s.SliceID, turns: set}
	}

	var edges []OverlapEdge
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			shared := 0
			for id := range sets[i].turns {
				if _, ok := sets[j].turns[id]; ok {
					shared++
				}
			}
			if shared == 0 {
				continue
			}
			unionSize := len(sets[i].turns) + len(sets[j].turns) - shared
			jaccard := float32(shared) / float32(unionSize)
			if jaccard < a.MinJaccard {
				continue
			}
			edges = append(edges, NewOverlapEdge(sets[i].id, sets[j].id, shared, jaccard))
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SliceA != edges[j].SliceA {
			return edges[i].SliceA < edges[j].SliceA
		}
		return edges[i].SliceB < edges[j].SliceB
	})

	return NewOverlapGraph(edges, len(slices), a.MinJaccard)
}

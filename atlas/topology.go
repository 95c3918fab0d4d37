package atlas

import (
	"sort"

	"github.com/Diomandeee/admissibility-kernel/canonical"
	"github.com/Diomandeee/admissibility-kernel/evidence"
	"github.com/Diomandeee/admissibility-kernel/turn"
)

// PhaseTopologyStats summarizes how phases relate in the overlap
// space: the mean overlap between slices whose anchors differ in
// phase, the most-connected slices per phase, and the turns that
// bridge multiple phases.
type PhaseTopologyStats struct {
	PhasePairOverlaps map[string]float32 // key: alphabetically joined "phase1_phase2"
	PhaseCentroids    map[string][]string // phase -> top-N slice ids by degree
	CrossPhaseBridges []BridgeTurn
	StatsHash         string
}

// NewPhaseTopologyStats hashes pairOverlaps, centroids, and bridges as
// a unit. Map keys are walked in sorted order so the hash never
// depends on Go's randomized map iteration.
func NewPhaseTopologyStats(pairOverlaps map[string]float32, centroids map[string][]string, bridges []BridgeTurn) PhaseTopologyStats {
	pairKeys := sortedKeys(pairOverlaps)
	pairFields := make([]canonical.Field, len(pairKeys))
	for i, k := range pairKeys {
		pairFields[i] = canonical.Seq(canonical.Str(k), canonical.Int64(canonical.QuantizeFloat32(pairOverlaps[k])))
	}

	centroidKeys := make([]string, 0, len(centroids))
	for k := range centroids {
		centroidKeys = append(centroidKeys, k)
	}
	sort.Strings(centroidKeys)
	centroidFields := make([]canonical.Field, len(centroidKeys))
	for i, k := range centroidKeys {
		ids := centroids[k]
		idFields := make([]canonical.Field, len(ids))
		for j, id := range ids {
			idFields[j] = canonical.Str(id)
		}
		centroidFields[i] = canonical.Seq(canonical.Str(k), canonical.Seq(idFields...))
	}

	bridgeFields := make([]canonical.Field, len(bridges))
	for i, b := range bridges {
		phaseFields := make([]canonical.Field, len(b.BridgedPhases))
		for j, p := range b.BridgedPhases {
			phaseFields[j] = canonical.Str(string(p))
		}
		bridgeFields[i] = canonical.Seq(
			canonical.Str(b.TurnID),
			canonical.Seq(phaseFields...),
			canonical.Uint64(uint64(b.TotalAppearances)),
		)
	}

	hash := canonical.CanonicalHashHex(
		canonical.Seq(pairFields...),
		canonical.Seq(centroidFields...),
		canonical.Seq(bridgeFields...),
	)

	return PhaseTopologyStats{
		PhasePairOverlaps: pairOverlaps,
		PhaseCentroids:    centroids,
		CrossPhaseBridges: bridges,
		StatsHash:         hash,
	}
}

func sortedKeys(m map[string]float32) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// phasePairKey builds the alphabetically-ordered "phase1_phase2" key
// for an unordered pair of differing phases.
func phasePairKey(a, b turn.Phase) string {
	as, bs := string(a), string(b)
	if as < bs {
		return as + "_" + bs
	}
	return bs + "_" + as
}

// ComputePhaseTopology derives PhaseTopologyStats from slices and the
// overlap edges computed over them. maxCentroidsPerPhase bounds how
// many representative slice ids each phase's centroid list carries.
func ComputePhaseTopology(slices []*evidence.SliceExport, overlapEdges []OverlapEdge, maxCentroidsPerPhase int) PhaseTopologyStats {
	slicePhase := make(map[string]turn.Phase, len(slices))
	for _, s := range slices {
		slicePhase[s.SliceID] = anchorPhase(s)
	}

	type pairAccum struct {
		sum   float32
		count int
	}
	pairSums := make(map[string]*pairAccum)
	for _, e := range overlapEdges {
		phaseA, okA := slicePhase[e.SliceA]
		phaseB, okB := slicePhase[e.SliceB]
		if !okA || !okB || phaseA == phaseB {
			continue
		}
		key := phasePairKey(phaseA, phaseB)
		a, ok := pairSums[key]
		if !ok {
			a = &pairAccum{}
			pairSums[key] = a
		}
		a.sum += e.Jaccard
		a.count++
	}
	pairOverlaps := make(map[string]float32, len(pairSums))
	for k, a := range pairSums {
		pairOverlaps[k] = a.sum / float32(a.count)
	}

	connectivity := make(map[string]map[string]int) // phase -> slice id -> degree
	bump := func(phase turn.Phase, sliceID string) {
		byPhase, ok := connectivity[string(phase)]
		if !ok {
			byPhase = make(map[string]int)
			connectivity[string(phase)] = byPhase
		}
		byPhase[sliceID]++
	}
	for _, e := range overlapEdges {
		if p, ok := slicePhase[e.SliceA]; ok {
			bump(p, e.SliceA)
		}
		if p, ok := slicePhase[e.SliceB]; ok {
			bump(p, e.SliceB)
		}
	}

	centroids := make(map[string][]string, len(connectivity))
	for phase, bySlice := range connectivity {
		ids := make([]string, 0, len(bySlice))
		for id := range bySlice {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			if bySlice[ids[i]] != bySlice[ids[j]] {
				return bySlice[ids[i]] > bySlice[ids[j]]
			}
			return ids[i] < ids[j]
		})
		if maxCentroidsPerPhase < len(ids) {
			ids = ids[:maxCentroidsPerPhase]
		}
		centroids[phase] = ids
	}

	influence := ComputeInfluence(slices)
	bridges := ExtractBridges(influence)

	return NewPhaseTopologyStats(pairOverlaps, centroids, bridges)
}

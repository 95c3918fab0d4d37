package atlas

import (
	"sort"

	"github.com/Diomandeee/admissibility-kernel/canonical"
	"github.com/Diomandeee/admissibility-kernel/evidence"
	"github.com/Diomandeee/admissibility-kernel/turn"
)

// PhaseCounts tallies how many slices of each phase a turn appeared
// in — attributed to the anchor's phase of the slice, not the turn's
// own phase, since the anchor's phase is what names the slice's
// intent.
type PhaseCounts struct {
	Exploration   uint32
	Debugging     uint32
	Planning      uint32
	Consolidation uint32
	Synthesis     uint32
}

// Increment bumps the count for phase. Unknown phases are silently
// ignored — they cannot occur for a well-formed TurnSnapshot.
func (c *PhaseCounts) Increment(phase turn.Phase) {
	switch phase {
	case turn.PhaseExploration:
		c.Exploration++
	case turn.PhaseDebugging:
		c.Debugging++
	case turn.PhasePlanning:
		c.Planning++
	case turn.PhaseConsolidation:
		c.Consolidation++
	case turn.PhaseSynthesis:
		c.Synthesis++
	}
}

// Total returns the sum of every phase count.
func (c PhaseCounts) Total() uint32 {
	return c.Exploration + c.Debugging + c.Planning + c.Consolidation + c.Synthesis
}

// IsCrossPhase reports whether at least two distinct phases have a
// non-zero count.
func (c PhaseCounts) IsCrossPhase() bool {
	nonZero := 0
	for _, n := range []uint32{c.Exploration, c.Debugging, c.Planning, c.Consolidation, c.Synthesis} {
		if n > 0 {
			nonZero++
		}
	}
	return nonZero > 1
}

// DominantPhase returns the phase with the highest count, or ("", false)
// if every count is zero.
func (c PhaseCounts) DominantPhase() (turn.Phase, bool) {
	type entry struct {
		phase turn.Phase
		count uint32
	}
	entries := []entry{
		{turn.PhaseExploration, c.Exploration},
		{turn.PhaseDebugging, c.Debugging},
		{turn.PhasePlanning, c.Planning},
		{turn.PhaseConsolidation, c.Consolidation},
		{turn.PhaseSynthesis, c.Synthesis},
	}
	var best entry
	found := false
	for _, e := range entries {
		if e.count == 0 {
			continue
		}
		if !found || e.count > best.count {
			best = e
			found = true
		}
	}
	return best.phase, found
}

func (c PhaseCounts) canonicalField() canonical.Field {
	return canonical.Seq(
		canonical.Uint64(uint64(c.Exploration)),
		canonical.Uint64(uint64(c.Debugging)),
		canonical.Uint64(uint64(c.Planning)),
		canonical.Uint64(uint64(c.Consolidation)),
		canonical.Uint64(uint64(c.Synthesis)),
	)
}

// phaseOrder lists every phase in a fixed order, used wherever a
// per-phase set needs to be walked deterministically.
var phaseOrder = []turn.Phase{
	turn.PhaseExploration,
	turn.PhaseDebugging,
	turn.PhasePlanning,
	turn.PhaseConsolidation,
	turn.PhaseSynthesis,
}

func (c PhaseCounts) countFor(p turn.Phase) uint32 {
	switch p {
	case turn.PhaseExploration:
		return c.Exploration
	case turn.PhaseDebugging:
		return c.Debugging
	case turn.PhasePlanning:
		return c.Planning
	case turn.PhaseConsolidation:
		return c.Consolidation
	case turn.PhaseSynthesis:
		return c.Synthesis
	default:
		return 0
	}
}

// TurnInfluence is one turn's global centrality, approximated by how
// often it appears across a batch run's slices.
type TurnInfluence struct {
	TurnID            string
	SliceCount        uint32
	SliceFraction     float32
	PhaseDistribution PhaseCounts
	IsBridge          bool
}

func (t TurnInfluence) canonicalField() canonical.Field {
	return canonical.Seq(
		canonical.Str(t.TurnID),
		canonical.Uint64(uint64(t.SliceCount)),
		canonical.Int64(canonical.QuantizeFloat32(t.SliceFraction)),
		t.PhaseDistribution.canonicalField(),
		canonical.Bool(t.IsBridge),
	)
}

// InfluenceScores is the full set of per-turn influence scores for one
// batch run, sorted by turn id.
type InfluenceScores struct {
	Scores      []TurnInfluence
	TotalSlices int
	ScoresHash  string
}

// NewInfluenceScores sorts scores by turn id and hashes them.
func NewInfluenceScores(scores []TurnInfluence, totalSlices int) InfluenceScores {
	sorted := make([]TurnInfluence, len(scores))
	copy(sorted, scores)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TurnID < sorted[j].TurnID })

	fields := make([]canonical.Field, len(sorted))
	for i, s := range sorted {
		fields[i] = s.canonicalField()
	}

	return InfluenceScores{
		Scores:      sorted,
		TotalSlices: totalSlices,
		ScoresHash:  canonical.CanonicalHashHex(canonical.Seq(fields...)),
	}
}

// Get returns the influence score for turnID, or nil if absent.
func (s InfluenceScores) Get(turnID string) *TurnInfluence {
	for i := range s.Scores {
		if s.Scores[i].TurnID == turnID {
			return &s.Scores[i]
		}
	}
	return nil
}

// TopInfluential returns the n turns with the highest slice count.
func (s InfluenceScores) TopInfluential(n int) []TurnInfluence {
	sorted := make([]TurnInfluence, len(s.Scores))
	copy(sorted, s.Scores)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SliceCount > sorted[j].SliceCount })
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// BridgeTurns returns every turn whose phase distribution is
// cross-phase.
func (s InfluenceScores) BridgeTurns() []TurnInfluence {
	var out []TurnInfluence
	for _, t := range s.Scores {
		if t.IsBridge {
			out = append(out, t)
		}
	}
	return out
}

// WithMinSlices returns every turn appearing in at least min slices.
func (s InfluenceScores) WithMinSlices(min uint32) []TurnInfluence {
	var out []TurnInfluence
	for _, t := range s.Scores {
		if t.SliceCount >= min {
			out = append(out, t)
		}
	}
	return out
}

// anchorPhase returns the phase of slice's own anchor turn, defaulting
// to PhaseExploration if the anchor is (unexpectedly) not among the
// slice's own turns.
func anchorPhase(slice *evidence.SliceExport) turn.Phase {
	for _, t := range slice.Turns {
		if t.ID == slice.AnchorTurnID {
			return t.Phase
		}
	}
	return turn.PhaseExploration
}

// ComputeInfluence computes per-turn influence scores over slices: for
// each turn, how many slices it appears in, and a phase distribution
// attributed to the anchor's phase of each containing slice.
func ComputeInfluence(slices []*evidence.SliceExport) InfluenceScores {
	type accum struct {
		count  uint32
		phases PhaseCounts
	}
	data := make(map[string]*accum)

	for _, slice := range slices {
		phase := anchorPhase(slice)
		for _, t := range slice.Turns {
			id := t.ID.String()
			a, ok := data[id]
			if !ok {
				a = &accum{}
				data[id] = a
			}
			a.count++
			a.phases.Increment(phase)
		}
	}

	totalSlices := len(slices)
	scores := make([]TurnInfluence, 0, len(data))
	for id, a := range data {
		var fraction float32
		if totalSlices > 0 {
			fraction = float32(a.count) / float32(totalSlices)
		}
		scores = append(scores, TurnInfluence{
			TurnID:            id,
			SliceCount:        a.count,
			SliceFraction:     fraction,
			PhaseDistribution: a.phases,
			IsBridge:          a.phases.IsCrossPhase(),
		})
	}

	return NewInfluenceScores(scores, totalSlices)
}

// BridgeTurn names the phases one turn bridges across a batch run.
type BridgeTurn struct {
	TurnID           string
	BridgedPhases    []turn.Phase
	TotalAppearances uint32
}

// ExtractBridges converts every bridge turn in scores into a
// BridgeTurn, listing its bridged phases in phaseOrder.
func ExtractBridges(scores InfluenceScores) []BridgeTurn {
	bridges := scores.BridgeTurns()
	out := make([]BridgeTurn, 0, len(bridges))
	for _, t := range bridges {
		var phases []turn.Phase
		for _, p := range phaseOrder {
			if t.PhaseDistribution.countFor(p) > 0 {
				phases = append(phases, p)
			}
		}
		out = append(out, BridgeTurn{TurnID: t.TurnID, BridgedPhases: phases, TotalAppearances: t.SliceCount})
	}
	return out
}

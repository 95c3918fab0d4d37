// Package policy defines the slicer's configuration object
// (SlicePolicyV1) and its content-addressed identity (the quantized
// params hash).
package policy

import (
	"github.com/Diomandeee/admissibility-kernel/canonical"
	"github.com/Diomandeee/admissibility-kernel/turn"
)

// PhaseWeights assigns an expansion-priority weight to each phase.
type PhaseWeights struct {
	Synthesis     float32
	Planning      float32
	Consolidation float32
	Debugging     float32
	Exploration   float32
}

// For returns the weight configured for phase p, or 0 for an unknown
// phase.
func (w PhaseWeights) For(p turn.Phase) float32 {
	switch p {
	case turn.PhaseSynthesis:
		return w.Synthesis
	case turn.PhasePlanning:
		return w.Planning
	case turn.PhaseConsolidation:
		return w.Consolidation
	case turn.PhaseDebugging:
		return w.Debugging
	case turn.PhaseExploration:
		return w.Exploration
	default:
		return 0
	}
}

// DefaultPhaseWeights returns weights that prefer higher-importance
// phases, matching Phase's own low-to-high importance ordering.
func DefaultPhaseWeights() PhaseWeights {
	return PhaseWeights{
		Synthesis:     1.0,
		Planning:      0.8,
		Consolidation: 0.7,
		Debugging:     0.6,
		Exploration:   0.5,
	}
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// SlicePolicyV1 is the slicer's configuration: bounds, weights, and
// decay. It is configuration, not per-request state, and is identified
// by its content-addressed params hash rather than by object identity.
type SlicePolicyV1 struct {
	Version   string // policy id
	MaxNodes  uint32
	MaxRadius uint32

	PhaseWeights PhaseWeights

	SalienceWeight float32 // clamped to [0,1]
	DistanceDecay  float32 // clamped to [0,1]

	IncludeSiblings    bool
	MaxSiblingsPerNode uint32
}

// NewSlicePolicyV1 constructs a policy, clamping SalienceWeight and
// DistanceDecay to [0,1].
func NewSlicePolicyV1(version string, maxNodes, maxRadius uint32, weights PhaseWeights, salienceWeight, distanceDecay float32, includeSiblings bool, maxSiblingsPerNode uint32) SlicePolicyV1 {
	return SlicePolicyV1{
		Version:            version,
		MaxNodes:            maxNodes,
		MaxRadius:           maxRadius,
		PhaseWeights:        weights,
		SalienceWeight:      clamp01(salienceWeight),
		DistanceDecay:       clamp01(distanceDecay),
		IncludeSiblings:     includeSiblings,
		MaxSiblingsPerNode:  maxSiblingsPerNode,
	}
}

// Default returns a reasonable default policy.
func Default() SlicePolicyV1 {
	return NewSlicePolicyV1("default-v1", 50, 3, DefaultPhaseWeights(), 0.5, 0.7, true, 3)
}

// ParamsHash is the xxh64 hex of the policy after quantizing every f32
// field by round(x*1e6) to i64, removing float-serialization drift
// across languages and library versions.
func (p SlicePolicyV1) ParamsHash() string {
	return canonical.CanonicalHashHex(
		canonical.Str(p.Version),
		canonical.Uint64(uint64(p.MaxNodes)),
		canonical.Uint64(uint64(p.MaxRadius)),
		canonical.Int64(canonical.QuantizeFloat32(p.PhaseWeights.Synthesis)),
		canonical.Int64(canonical.QuantizeFloat32(p.PhaseWeights.Planning)),
		canonical.Int64(canonical.QuantizeFloat32(p.PhaseWeights.Consolidation)),
		canonical.Int64(canonical.QuantizeFloat32(p.PhaseWeights.Debugging)),
		canonical.Int64(canonical.QuantizeFloat32(p.PhaseWeights.Exploration)),
		canonical.Int64(canonical.QuantizeFloat32(p.SalienceWeight)),
		canonical.Int64(canonical.QuantizeFloat32(p.DistanceDecay)),
		canonical.Bool(p.IncludeSiblings),
		canonical.Uint64(uint64(p.MaxSiblingsPerNode)),
	)
}

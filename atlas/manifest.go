package atlas

import (
	"github.com/Diomandeee/admissibility-kernel/canonical"
	"github.com/Diomandeee/admissibility-kernel/errtax"
)

// SchemaVersion is the Atlas pipeline's own schema tag, distinct from
// evidence.SchemaVersion (which versions slice export/token shape):
// Atlas artifacts can gain a new derived pass without invalidating
// every slice's admissibility token.
const SchemaVersion = "atlas_v1"

// ArtifactPaths names where each Atlas artifact is written, for a
// caller that persists a run's output to a filesystem or object store.
// The kernel never writes these itself; it only names the convention.
type ArtifactPaths struct {
	Snapshot      string
	Anchors       string
	SlicesDir     string
	SliceRegistry string
	OverlapGraph  string
	TurnInfluence string
	PhaseTopology string
}

// DefaultArtifactPaths returns the conventional relative paths for one
// Atlas run's artifacts.
func DefaultArtifactPaths() ArtifactPaths {
	return ArtifactPaths{
		Snapshot:      "graph_snapshot_v1.json",
		Anchors:       "anchors_v1.jsonl",
		SlicesDir:     "slices_v1/",
		SliceRegistry: "slice_registry_v1.jsonl",
		OverlapGraph:  "overlap_graph_v1.json",
		TurnInfluence: "turn_influence_v1.jsonl",
		PhaseTopology: "phase_topology_v1.json",
	}
}

// Stats summarizes one Atlas run's scale.
type Stats struct {
	TurnCount        uint64
	EdgeCount        uint64
	AnchorCount      int
	SliceCount       int
	OverlapEdgeCount int
	BridgeTurnCount  int
}

// Manifest is the complete, immutable descriptor of one Atlas run: the
// fused identity of every component artifact plus enough summary
// information for a caller to decide whether to read the rest.
type Manifest struct {
	AtlasID       string
	Version       string
	SnapshotID    string
	AnchorSetHash string
	RegistryHash  string
	OverlapHash   string
	InfluenceHash string
	TopologyHash  string
	ComputedAt    int64 // not part of AtlasID
	ArtifactPaths ArtifactPaths
	Stats         Stats
}

// Builder assembles a Manifest from the outputs of every Atlas pass.
// Every component must be set before Build; the zero value of each
// field (empty hash, nil slice) is never a legitimate Atlas output, so
// a missing component is treated as a caller error rather than
// silently hashed as empty.
type Builder struct {
	snapshot      *GraphSnapshot
	batchResult   *BatchSliceResult
	overlapGraph  *OverlapGraph
	influence     *InfluenceScores
	phaseTopology *PhaseTopologyStats
	artifactPaths ArtifactPaths
}

// NewBuilder returns a Builder with the default artifact paths.
func NewBuilder() *Builder {
	return &Builder{artifactPaths: DefaultArtifactPaths()}
}

// WithArtifactPaths overrides the default artifact paths and returns
// the receiver for chaining.
func (b *Builder) WithArtifactPaths(paths ArtifactPaths) *Builder {
	b.artifactPaths = paths
	return b
}

// WithSnapshot sets the graph snapshot and returns the receiver.
func (b *Builder) WithSnapshot(s GraphSnapshot) *Builder {
	b.snapshot = &s
	return b
}

// WithBatchResult sets the batch slice result and returns the receiver.
func (b *Builder) WithBatchResult(r BatchSliceResult) *Builder {
	b.batchResult = &r
	return b
}

// WithOverlapGraph sets the overlap graph and returns the receiver.
func (b *Builder) WithOverlapGraph(g OverlapGraph) *Builder {
	b.overlapGraph = &g
	return b
}

// WithInfluenceScores sets the influence scores and returns the
// receiver.
func (b *Builder) WithInfluenceScores(s InfluenceScores) *Builder {
	b.influence = &s
	return b
}

// WithPhaseTopology sets the phase topology stats and returns the
// receiver.
func (b *Builder) WithPhaseTopology(t PhaseTopologyStats) *Builder {
	b.phaseTopology = &t
	return b
}

// Build assembles the Manifest, computing atlas_id from every
// component hash. computedAt is caller-supplied (excluded from
// atlas_id) so the manifest stays reproducible without a system clock
// dependency inside this package.
func (b *Builder) Build(computedAt int64) (*Manifest, error) {
	if b.snapshot == nil || b.batchResult == nil || b.overlapGraph == nil || b.influence == nil || b.phaseTopology == nil {
		return nil, errtax.New(errtax.CodeIncompleteProvenance, "atlas manifest is missing a required component")
	}

	atlasID := canonical.CanonicalHashHex(
		canonical.Str(b.snapshot.SnapshotID),
		canonical.Str(b.batchResult.AnchorSetHash),
		canonical.Str(b.batchResult.Registry.RegistryHash),
		canonical.Str(b.overlapGraph.GraphHash),
		canonical.Str(b.influence.ScoresHash),
		canonical.Str(b.phaseTopology.StatsHash),
	)

	return &Manifest{
		AtlasID:       atlasID,
		Version:       SchemaVersion,
		SnapshotID:    b.snapshot.SnapshotID,
		AnchorSetHash: b.batchResult.AnchorSetHash,
		RegistryHash:  b.batchResult.Registry.RegistryHash,
		OverlapHash:   b.overlapGraph.GraphHash,
		InfluenceHash: b.influence.ScoresHash,
		TopologyHash:  b.phaseTopology.StatsHash,
		ComputedAt:    computedAt,
		ArtifactPaths: b.artifactPaths,
		Stats: Stats{
			TurnCount:        b.snapshot.TurnCount,
			EdgeCount:        b.snapshot.EdgeCount,
			AnchorCount:      len(b.batchResult.Registry.Entries),
			SliceCount:       len(b.batchResult.Slices),
			OverlapEdgeCount: len(b.overlapGraph.Edges),
			BridgeTurnCount:  len(b.phaseTopology.CrossPhaseBridges),
		},
	}, nil
}

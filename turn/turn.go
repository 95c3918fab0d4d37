// Package turn defines the core entities of a conversation DAG: turn
// identity, turn snapshots, and the edges that connect them.
package turn

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	"github.com/Diomandeee/admissibility-kernel/canonical"
)

// TurnId is a 128-bit UUID identifying one conversation turn. It is
// totally ordered by byte value and immutable once constructed.
type TurnId uuid.UUID

// NewTurnID generates a fresh random TurnId.
func NewTurnID() TurnId {
	return TurnId(uuid.New())
}

// ParseTurnID parses a canonical UUID string into a TurnId.
func ParseTurnID(s string) (TurnId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TurnId{}, err
	}
	return TurnId(u), nil
}

// String returns the canonical UUID string form.
func (t TurnId) String() string {
	return uuid.UUID(t).String()
}

// Bytes returns the 16 raw bytes of the id.
func (t TurnId) Bytes() []byte {
	b := uuid.UUID(t)
	return b[:]
}

// Compare orders two TurnIds by raw byte value, giving a total order
// usable for deterministic sorting and tie-breaking.
func Compare(a, b TurnId) int {
	return bytes.Compare(a.Bytes(), b.Bytes())
}

// Less reports whether a sorts before b.
func Less(a, b TurnId) bool {
	return Compare(a, b) < 0
}

// SortTurnIDs returns a new, ascending-sorted copy of ids.
func SortTurnIDs(ids []TurnId) []TurnId {
	out := make([]TurnId, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// Role is the speaker role of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Phase is the trajectory label of a turn, ordered by importance from
// low to high.
type Phase string

const (
	PhaseExploration   Phase = "exploration"
	PhaseDebugging     Phase = "debugging"
	PhasePlanning      Phase = "planning"
	PhaseConsolidation Phase = "consolidation"
	PhaseSynthesis     Phase = "synthesis"
)

// phaseRank gives Phase its low-to-high importance ordering.
var phaseRank = map[Phase]int{
	PhaseExploration:   0,
	PhaseDebugging:     1,
	PhasePlanning:      2,
	PhaseConsolidation: 3,
	PhaseSynthesis:     4,
}

// Rank returns the phase's importance rank (higher is more important).
// Unknown phases rank below every named phase.
func (p Phase) Rank() int {
	if r, ok := phaseRank[p]; ok {
		return r
	}
	return -1
}

// clamp01 clamps x into [0, 1].
func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// TurnSnapshot is one conversation turn as observed at a point in time.
type TurnSnapshot struct {
	ID        TurnId
	SessionID string
	Role      Role
	Phase     Phase

	Salience float32 // clamped to [0,1] on construction

	TrajectoryDepth        uint32
	TrajectorySiblingOrder uint32
	TrajectoryHomogeneity  float32 // clamped to [0,1]
	TrajectoryTemporal     float32 // clamped to [0,1]
	TrajectoryComplexity   float32

	CreatedAt int64 // unix seconds

	// ContentHash is the lowercase-hex SHA-256 of the turn's canonical
	// content. Absence is tolerated only for legacy data.
	ContentHash *string
}

// NewTurnSnapshot constructs a TurnSnapshot, clamping salience and the
// two [0,1] trajectory fields to their valid ranges.
func NewTurnSnapshot(id TurnId, sessionID string, role Role, phase Phase, salience float32, createdAt int64) *TurnSnapshot {
	return &TurnSnapshot{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Phase:     phase,
		Salience:  clamp01(salience),
		CreatedAt: createdAt,
	}
}

// WithTrajectory sets the trajectory fields, clamping homogeneity and
// temporal to [0,1], and returns the receiver for chaining.
func (t *TurnSnapshot) WithTrajectory(depth, siblingOrder uint32, homogeneity, temporal, complexity float32) *TurnSnapshot {
	t.TrajectoryDepth = depth
	t.TrajectorySiblingOrder = siblingOrder
	t.TrajectoryHomogeneity = clamp01(homogeneity)
	t.TrajectoryTemporal = clamp01(temporal)
	t.TrajectoryComplexity = complexity
	return t
}

// WithContentHash attaches a content hash and returns the receiver.
func (t *TurnSnapshot) WithContentHash(hash string) *TurnSnapshot {
	t.ContentHash = &hash
	return t
}

// ValidateContentHash checks the snapshot's stored content hash (if
// any) against the given current text, using canonical.ValidateContentHash.
func (t *TurnSnapshot) ValidateContentHash(text string) canonical.ContentHashValidation {
	return canonical.ValidateContentHash(text, t.ContentHash)
}

// EdgeType classifies the relationship an Edge represents.
type EdgeType string

const (
	EdgeReply     EdgeType = "reply"
	EdgeBranch    EdgeType = "branch"
	EdgeReference EdgeType = "reference"
	EdgeDefault   EdgeType = "default"
)

// Edge connects a parent turn to a child turn. Self-loops are not
// permitted; multi-edges with differing EdgeType between the same pair
// are permitted and preserved.
type Edge struct {
	Parent TurnId
	Child  TurnId
	Type   EdgeType
}

// CompareEdges orders two edges lexicographically by (parent, child,
// edge_type), matching the spec's canonical edge ordering.
func CompareEdges(a, b Edge) int {
	if c := Compare(a.Parent, b.Parent); c != 0 {
		return c
	}
	if c := Compare(a.Child, b.Child); c != 0 {
		return c
	}
	switch {
	case a.Type < b.Type:
		return -1
	case a.Type > b.Type:
		return 1
	default:
		return 0
	}
}

// SortEdges returns a new, lexicographically sorted copy of edges.
func SortEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	sort.Slice(out, func(i, j int) bool { return CompareEdges(out[i], out[j]) < 0 })
	return out
}

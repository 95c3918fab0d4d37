// Package slicer implements the core context-slicing algorithm: a
// bounded, priority-driven neighborhood expansion around an anchor
// turn, producing a verified AdmissibleEvidenceBundle.
package slicer

import (
	"container/heap"
	"context"
	"math"
	"sort"

	"github.com/Diomandeee/admissibility-kernel/errtax"
	"github.com/Diomandeee/admissibility-kernel/evidence"
	"github.com/Diomandeee/admissibility-kernel/klog"
	"github.com/Diomandeee/admissibility-kernel/policy"
	"github.com/Diomandeee/admissibility-kernel/store"
	"github.com/Diomandeee/admissibility-kernel/turn"

	"go.uber.org/zap"
)

// candidate is one entry on the expansion frontier: a turn reachable
// from the anchor at a known distance, not yet committed to the
// selection.
type candidate struct {
	snapshot *turn.TurnSnapshot
	distance uint32
	priority float64
}

// priorityOf computes priority(c, d) = (phase_weight[c.phase] +
// c.salience * salience_weight) * distance_decay^d.
func priorityOf(snap *turn.TurnSnapshot, distance uint32, weights policy.PhaseWeights, salienceWeight, distanceDecay float32) float64 {
	base := float64(weights.For(snap.Phase)) + float64(snap.Salience)*float64(salienceWeight)
	decay := math.Pow(float64(distanceDecay), float64(distance))
	return base * decay
}

// frontier is a max-heap of candidates ordered by (priority desc,
// distance asc, id asc) — a strict total order on distinct turns, so
// extraction order never depends on insertion order or map iteration.
type frontier []candidate

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	a, b := f[i], f[j]
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	return turn.Less(a.snapshot.ID, b.snapshot.ID)
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(candidate)) }

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// SecretSource supplies the HMAC secret used to issue and verify
// admissibility tokens. Implementations keep the raw secret out of any
// struct that gets logged, hashed, or serialized.
type SecretSource interface {
	Secret() []byte
}

// Slicer runs the priority-frontier expansion algorithm against a
// store, producing an AdmissibleEvidenceBundle for an anchor and
// policy.
type Slicer struct {
	store    store.Store
	secret   SecretSource
	verifier *evidence.TokenVerifier
	log      *klog.Logger
}

// New constructs a Slicer over store, using secret to issue and verify
// admissibility tokens. verifierCacheSize <= 0 disables token-verdict
// caching.
func New(st store.Store, secret SecretSource, verifierCacheSize int, log *klog.Logger) (*Slicer, error) {
	if log == nil {
		log = klog.Nop()
	}
	v, err := evidence.NewTokenVerifier(secret.Secret(), verifierCacheSize)
	if err != nil {
		return nil, err
	}
	return &Slicer{store: st, secret: secret, verifier: v, log: log.Component("slicer")}, nil
}

// Slice runs the bounded neighborhood expansion around anchor under
// pol, returning a verified AdmissibleEvidenceBundle. verifiedAt is the
// caller-supplied timestamp (unix seconds) stamped onto the resulting
// bundle.
func (s *Slicer) Slice(ctx context.Context, anchor turn.TurnId, pol policy.SlicePolicyV1, verifiedAt int64) (*evidence.AdmissibleEvidenceBundle, error) {
	anchorSnap, err := s.store.GetTurn(ctx, anchor)
	if err != nil {
		return nil, errtax.New(errtax.CodeStoreError, "failed to fetch anchor turn").WithCause(err)
	}
	if anchorSnap == nil {
		return nil, errtax.New(errtax.CodeAnchorNotFound, "anchor turn not found").
			WithContext("anchor", anchor.String())
	}

	visited := map[turn.TurnId]struct{}{anchor: {}}
	fr := &frontier{}
	heap.Init(fr)
	heap.Push(fr, candidate{
		snapshot: anchorSnap,
		distance: 0,
		priority: priorityOf(anchorSnap, 0, pol.PhaseWeights, pol.SalienceWeight, pol.DistanceDecay),
	})

	selected := make([]*turn.TurnSnapshot, 0, pol.MaxNodes)

	for fr.Len() > 0 && uint32(len(selected)) < pol.MaxNodes {
		c := heap.Pop(fr).(candidate)

		if c.distance > pol.MaxRadius {
			continue
		}
		selected = append(selected, c.snapshot)

		if c.distance+1 > pol.MaxRadius {
			continue
		}

		if err := s.pushNeighbors(ctx, c, pol, visited, fr); err != nil {
			return nil, err
		}
	}

	s.log.Debug("slice expansion complete",
		zap.String("anchor", anchor.String()),
		zap.Int("selected", len(selected)),
	)

	return s.buildBundle(ctx, anchor, selected, pol, verifiedAt)
}

// BatchSlice runs Slice independently over every anchor in anchors,
// collecting per-anchor errors rather than aborting the whole batch: a
// single bad anchor never prevents the others from producing a
// bundle. This is the tolerant counterpart to an atlas.BatchSlicer's
// abort-whole SliceAll, which exists for a different contract — a
// registry hash that needs every anchor accounted for.
func (s *Slicer) BatchSlice(ctx context.Context, anchors []turn.TurnId, pol policy.SlicePolicyV1, verifiedAt int64) ([]*evidence.AdmissibleEvidenceBundle, map[string]error) {
	bundles := make([]*evidence.AdmissibleEvidenceBundle, 0, len(anchors))
	failures := make(map[string]error)

	for _, anchor := range anchors {
		bundle, err := s.Slice(ctx, anchor, pol, verifiedAt)
		if err != nil {
			failures[anchor.String()] = err
			continue
		}
		bundles = append(bundles, bundle)
	}

	return bundles, failures
}

// pushNeighbors expands c: parents and children go onto the frontier
// at distance d+1, and (if enabled) unvisited siblings go on at the
// same distance d.
func (s *Slicer) pushNeighbors(ctx context.Context, c candidate, pol policy.SlicePolicyV1, visited map[turn.TurnId]struct{}, fr *frontier) error {
	neighborIDs := make([]turn.TurnId, 0, 8)

	parents, err := s.store.GetParents(ctx, c.snapshot.ID)
	if err != nil {
		return errtax.New(errtax.CodeStoreError, "failed to fetch parents").WithCause(err)
	}
	children, err := s.store.GetChildren(ctx, c.snapshot.ID)
	if err != nil {
		return errtax.New(errtax.CodeStoreError, "failed to fetch children").WithCause(err)
	}
	neighborIDs = append(neighborIDs, parents...)
	neighborIDs = append(neighborIDs, children...)

	for _, id := range neighborIDs {
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}
		snap, err := s.store.GetTurn(ctx, id)
		if err != nil {
			return errtax.New(errtax.CodeStoreError, "failed to fetch neighbor turn").WithCause(err)
		}
		if snap == nil {
			continue
		}
		d := c.distance + 1
		heap.Push(fr, candidate{
			snapshot: snap,
			distance: d,
			priority: priorityOf(snap, d, pol.PhaseWeights, pol.SalienceWeight, pol.DistanceDecay),
		})
	}

	if !pol.IncludeSiblings || pol.MaxSiblingsPerNode == 0 {
		return nil
	}
	siblings, err := s.store.GetSiblings(ctx, c.snapshot.ID, int(pol.MaxSiblingsPerNode))
	if err != nil {
		return errtax.New(errtax.CodeStoreError, "failed to fetch siblings").WithCause(err)
	}
	for _, id := range siblings {
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}
		snap, err := s.store.GetTurn(ctx, id)
		if err != nil {
			return errtax.New(errtax.CodeStoreError, "failed to fetch sibling turn").WithCause(err)
		}
		if snap == nil {
			continue
		}
		heap.Push(fr, candidate{
			snapshot: snap,
			distance: c.distance,
			priority: priorityOf(snap, c.distance, pol.PhaseWeights, pol.SalienceWeight, pol.DistanceDecay),
		})
	}
	return nil
}

// buildBundle fetches the induced edge set over the selection, builds
// the SliceExport, verifies its own just-issued token, and wraps the
// result as an AdmissibleEvidenceBundle. Verification failure here
// names an internal inconsistency, never a caller error.
func (s *Slicer) buildBundle(ctx context.Context, anchor turn.TurnId, selected []*turn.TurnSnapshot, pol policy.SlicePolicyV1, verifiedAt int64) (*evidence.AdmissibleEvidenceBundle, error) {
	sortedTurns := make([]*turn.TurnSnapshot, len(selected))
	copy(sortedTurns, selected)
	sortTurnsByID(sortedTurns)

	ids := make([]turn.TurnId, len(sortedTurns))
	for i, t := range sortedTurns {
		ids[i] = t.ID
	}

	edges, err := s.store.GetEdges(ctx, ids)
	if err != nil {
		return nil, errtax.New(errtax.CodeStoreError, "failed to fetch induced edges").WithCause(err)
	}

	export, err := evidence.NewSliceExport(anchor, sortedTurns, edges, pol.Version, pol.ParamsHash(), s.secret.Secret())
	if err != nil {
		return nil, err
	}

	bundle, err := evidence.FromVerified(export, s.verifier, verifiedAt)
	if err != nil {
		return nil, errtax.New(errtax.CodeInternalVerificationFailure, "freshly issued token failed self-verification").WithCause(err)
	}
	return bundle, nil
}

// sortTurnsByID sorts turns ascending by id in place.
func sortTurnsByID(turns []*turn.TurnSnapshot) {
	sort.Slice(turns, func(i, j int) bool { return turn.Less(turns[i].ID, turns[j].ID) })
}

// Package memstore is an in-memory store.Store implementation, the
// conforming backend used by tests and small deployments. It mirrors
// the teacher's in-process trust/CAS bookkeeping pattern: a mutex-
// guarded map plus derived adjacency indexes kept in sync on write.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/Diomandeee/admissibility-kernel/turn"
)

// Store is an in-memory, concurrency-safe graph store.
type Store struct {
	mu sync.RWMutex

	turns    map[turn.TurnId]*turn.TurnSnapshot
	children map[turn.TurnId][]turn.TurnId // parent -> children, insertion order
	parents  map[turn.TurnId][]turn.TurnId // child -> parents, insertion order
	edges    []turn.Edge
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		turns:    make(map[turn.TurnId]*turn.TurnSnapshot),
		children: make(map[turn.TurnId][]turn.TurnId),
		parents:  make(map[turn.TurnId][]turn.TurnId),
	}
}

// PutTurn inserts or replaces a turn snapshot.
func (s *Store) PutTurn(snap *turn.TurnSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	s.turns[snap.ID] = &cp
}

// PutEdge inserts an edge and updates the adjacency indexes. Self-loops
// are rejected silently (the contract forbids them; callers constructing
// a fixture should not attempt one).
func (s *Store) PutEdge(e turn.Edge) {
	if e.Parent == e.Child {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = append(s.edges, e)
	s.children[e.Parent] = append(s.children[e.Parent], e.Child)
	s.parents[e.Child] = append(s.parents[e.Child], e.Parent)
}

func (s *Store) GetTurn(_ context.Context, id turn.TurnId) (*turn.TurnSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.turns[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *Store) GetTurns(_ context.Context, ids []turn.TurnId) ([]*turn.TurnSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*turn.TurnSnapshot, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.turns[id]; ok {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) GetParents(_ context.Context, id turn.TurnId) ([]turn.TurnId, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return dedupeSorted(s.parents[id]), nil
}

func (s *Store) GetChildren(_ context.Context, id turn.TurnId) ([]turn.TurnId, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return dedupeSorted(s.children[id]), nil
}

// GetSiblings returns up to limit ids of turns that share at least one
// parent with id (excluding id itself), sorted by (salience desc, id
// asc), deduplicated across shared parents.
func (s *Store) GetSiblings(_ context.Context, id turn.TurnId, limit int) ([]turn.TurnId, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[turn.TurnId]bool{id: true}
	var candidates []turn.TurnId
	for _, p := range s.parents[id] {
		for _, c := range s.children[p] {
			if seen[c] {
				continue
			}
			seen[c] = true
			candidates = append(candidates, c)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		si, sj := s.salienceOf(candidates[i]), s.salienceOf(candidates[j])
		if si != sj {
			return si > sj
		}
		return turn.Less(candidates[i], candidates[j])
	})

	if limit >= 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (s *Store) salienceOf(id turn.TurnId) float32 {
	if t, ok := s.turns[id]; ok {
		return t.Salience
	}
	return 0
}

// GetEdges returns every edge whose both endpoints are in ids.
func (s *Store) GetEdges(_ context.Context, ids []turn.TurnId) ([]turn.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inSet := make(map[turn.TurnId]bool, len(ids))
	for _, id := range ids {
		inSet[id] = true
	}
	var out []turn.Edge
	for _, e := range s.edges {
		if inSet[e.Parent] && inSet[e.Child] {
			out = append(out, e)
		}
	}
	return turn.SortEdges(out), nil
}

func (s *Store) AllTurns(_ context.Context) ([]*turn.TurnSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*turn.TurnSnapshot, 0, len(s.turns))
	for _, t := range s.turns {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) AllEdges(_ context.Context) ([]turn.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]turn.Edge, len(s.edges))
	copy(out, s.edges)
	return out, nil
}

// dedupeSorted returns an ascending-sorted, deduplicated copy of ids.
func dedupeSorted(ids []turn.TurnId) []turn.TurnId {
	if len(ids) == 0 {
		return nil
	}
	sorted := turn.SortTurnIDs(ids)
	out := sorted[:1]
	for _, id := range sorted[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

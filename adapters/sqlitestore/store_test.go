package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Diomandeee/admissibility-kernel/turn"
)

func mkTurn(t *testing.T, s *Store, n byte, salience float32, phase turn.Phase) turn.TurnId {
	t.Helper()
	id := turn.TurnId{}
	id[15] = n
	snap := turn.NewTurnSnapshot(id, "s1", turn.RoleUser, phase, salience, int64(n))
	if err := s.PutTurn(context.Background(), snap); err != nil {
		t.Fatal(err)
	}
	return id
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kernel.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetTurn(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := mkTurn(t, s, 1, 0.75, turn.PhaseSynthesis)

	got, err := s.GetTurn(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != id || got.Phase != turn.PhaseSynthesis {
		t.Fatalf("unexpected turn: %+v", got)
	}
}

func TestGetTurnMissingReturnsNilNil(t *testing.T) {
	s := openTestStore(t)
	missing := turn.NewTurnID()
	got, err := s.GetTurn(context.Background(), missing)
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil) for a missing turn, got (%+v, %v)", got, err)
	}
}

func TestParentsAndChildren(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mkTurn(t, s, 1, 0.5, turn.PhaseExploration)
	b := mkTurn(t, s, 2, 0.5, turn.PhaseExploration)
	if err := s.PutEdge(ctx, turn.Edge{Parent: a, Child: b, Type: turn.EdgeReply}); err != nil {
		t.Fatal(err)
	}

	children, err := s.GetChildren(ctx, a)
	if err != nil || len(children) != 1 || children[0] != b {
		t.Fatalf("expected [b], got %v, err %v", children, err)
	}
	parents, err := s.GetParents(ctx, b)
	if err != nil || len(parents) != 1 || parents[0] != a {
		t.Fatalf("expected [a], got %v, err %v", parents, err)
	}
}

func TestGetSiblingsOrderedBySalienceThenID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	root := mkTurn(t, s, 1, 0.1, turn.PhaseExploration)
	lo := mkTurn(t, s, 2, 0.2, turn.PhaseExploration)
	hi := mkTurn(t, s, 3, 0.9, turn.PhaseExploration)
	mid := mkTurn(t, s, 4, 0.9, turn.PhaseExploration)

	for _, c := range []turn.TurnId{lo, hi, mid} {
		if err := s.PutEdge(ctx, turn.Edge{Parent: root, Child: c, Type: turn.EdgeReply}); err != nil {
			t.Fatal(err)
		}
	}

	sibs, err := s.GetSiblings(ctx, lo, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sibs) != 2 || sibs[0] != hi || sibs[1] != mid {
		t.Fatalf("expected [hi, mid] order, got %v", sibs)
	}
}

func TestGetEdgesBoundaryFiltering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mkTurn(t, s, 1, 0.5, turn.PhaseExploration)
	b := mkTurn(t, s, 2, 0.5, turn.PhaseExploration)
	c := mkTurn(t, s, 3, 0.5, turn.PhaseExploration)
	if err := s.PutEdge(ctx, turn.Edge{Parent: a, Child: b, Type: turn.EdgeReply}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutEdge(ctx, turn.Edge{Parent: b, Child: c, Type: turn.EdgeReply}); err != nil {
		t.Fatal(err)
	}

	edges, err := s.GetEdges(ctx, []turn.TurnId{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].Parent != a || edges[0].Child != b {
		t.Fatalf("expected only the a->b edge within the boundary, got %v", edges)
	}
}

func TestAllTurnsAndAllEdges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mkTurn(t, s, 1, 0.5, turn.PhaseExploration)
	b := mkTurn(t, s, 2, 0.5, turn.PhaseExploration)
	if err := s.PutEdge(ctx, turn.Edge{Parent: a, Child: b, Type: turn.EdgeReply}); err != nil {
		t.Fatal(err)
	}

	turns, err := s.AllTurns(ctx)
	if err != nil || len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d, err %v", len(turns), err)
	}
	edges, err := s.AllEdges(ctx)
	if err != nil || len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d, err %v", len(edges), err)
	}
}

func TestPutTurnUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := mkTurn(t, s, 1, 0.1, turn.PhaseExploration)

	updated := turn.NewTurnSnapshot(id, "s1", turn.RoleUser, turn.PhaseSynthesis, 0.9, 100)
	if err := s.PutTurn(ctx, updated); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetTurn(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Phase != turn.PhaseSynthesis || got.Salience != 0.9 {
		t.Fatalf("expected upsert to overwrite fields, got %+v", got)
	}
}

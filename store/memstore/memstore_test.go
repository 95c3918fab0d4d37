package memstore

import (
	"context"
	"testing"

	"github.com/Diomandeee/admissibility-kernel/turn"
)

func mkTurn(s *Store, n byte, salience float32, phase turn.Phase) turn.TurnId {
	id := turn.TurnId{}
	id[15] = n
	snap := turn.NewTurnSnapshot(id, "s1", turn.RoleUser, phase, salience, int64(n))
	s.PutTurn(snap)
	return id
}

func TestGetParentsAndChildren(t *testing.T) {
	s := New()
	a := mkTurn(s, 1, 0.5, turn.PhaseExploration)
	b := mkTurn(s, 2, 0.5, turn.PhaseExploration)
	s.PutEdge(turn.Edge{Parent: a, Child: b, Type: turn.EdgeReply})

	ctx := context.Background()
	children, _ := s.GetChildren(ctx, a)
	if len(children) != 1 || children[0] != b {
		t.Fatalf("expected [b], got %v", children)
	}
	parents, _ := s.GetParents(ctx, b)
	if len(parents) != 1 || parents[0] != a {
		t.Fatalf("expected [a], got %v", parents)
	}
}

func TestGetSiblingsOrderedBySalienceThenID(t *testing.T) {
	s := New()
	root := mkTurn(s, 1, 0.1, turn.PhaseExploration)
	lo := mkTurn(s, 2, 0.2, turn.PhaseExploration)
	hi := mkTurn(s, 3, 0.9, turn.PhaseExploration)
	mid := mkTurn(s, 4, 0.9, turn.PhaseExploration) // ties hi on salience, breaks by id

	s.PutEdge(turn.Edge{Parent: root, Child: lo, Type: turn.EdgeReply})
	s.PutEdge(turn.Edge{Parent: root, Child: hi, Type: turn.EdgeReply})
	s.PutEdge(turn.Edge{Parent: root, Child: mid, Type: turn.EdgeReply})

	ctx := context.Background()
	sibs, err := s.GetSiblings(ctx, lo, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sibs) != 2 {
		t.Fatalf("expected 2 siblings, got %d: %v", len(sibs), sibs)
	}
	// hi and mid tie at 0.9 salience; hi has smaller id bytes so sorts first.
	if sibs[0] != hi || sibs[1] != mid {
		t.Fatalf("expected [hi, mid] order, got %v", sibs)
	}
}

func TestGetSiblingsRespectsLimit(t *testing.T) {
	s := New()
	root := mkTurn(s, 1, 0.1, turn.PhaseExploration)
	for n := byte(2); n < 10; n++ {
		c := mkTurn(s, n, float32(n)/10, turn.PhaseExploration)
		s.PutEdge(turn.Edge{Parent: root, Child: c, Type: turn.EdgeReply})
	}
	sibs, err := s.GetSiblings(context.Background(), mkTurn(s, 2, 0.2, turn.PhaseExploration), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(sibs) != 3 {
		t.Fatalf("expected limit of 3, got %d", len(sibs))
	}
}

func TestGetEdgesOnlyBothEndpointsInSet(t *testing.T) {
	s := New()
	a := mkTurn(s, 1, 0.5, turn.PhaseExploration)
	b := mkTurn(s, 2, 0.5, turn.PhaseExploration)
	c := mkTurn(s, 3, 0.5, turn.PhaseExploration)
	s.PutEdge(turn.Edge{Parent: a, Child: b, Type: turn.EdgeReply})
	s.PutEdge(turn.Edge{Parent: b, Child: c, Type: turn.EdgeReply})

	edges, err := s.GetEdges(context.Background(), []turn.TurnId{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].Parent != a || edges[0].Child != b {
		t.Fatalf("expected only a->b edge, got %v", edges)
	}
}

func TestSelfLoopRejected(t *testing.T) {
	s := New()
	a := mkTurn(s, 1, 0.5, turn.PhaseExploration)
	s.PutEdge(turn.Edge{Parent: a, Child: a, Type: turn.EdgeReply})
	edges, _ := s.AllEdges(context.Background())
	if len(edges) != 0 {
		t.Fatalf("expected self-loop rejected, got %v", edges)
	}
}

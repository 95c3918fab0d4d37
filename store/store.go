// Package store defines the graph store contract the slicer and Atlas
// pipeline consume. Any conforming backend — in-memory (package
// memstore, for tests and small deployments) or SQL (package
// adapters/sqlitestore) — satisfies this interface. Determinism of
// orderings is the store's obligation: a conforming backend must
// produce the same ordering for the same logical state on every call.
package store

import (
	"context"

	"github.com/Diomandeee/admissibility-kernel/turn"
)

// Store is the capability contract the kernel depends on. Every method
// may suspend (perform I/O) and must return a typed error on failure.
type Store interface {
	// GetTurn returns the snapshot for id, or (nil, nil) if absent.
	GetTurn(ctx context.Context, id turn.TurnId) (*turn.TurnSnapshot, error)

	// GetTurns returns snapshots for whichever of ids are present.
	GetTurns(ctx context.Context, ids []turn.TurnId) ([]*turn.TurnSnapshot, error)

	// GetParents returns the ascending-sorted parent ids of id.
	GetParents(ctx context.Context, id turn.TurnId) ([]turn.TurnId, error)

	// GetChildren returns the ascending-sorted child ids of id.
	GetChildren(ctx context.Context, id turn.TurnId) ([]turn.TurnId, error)

	// GetSiblings returns up to limit sibling ids of id, sorted by
	// (salience desc, id asc).
	GetSiblings(ctx context.Context, id turn.TurnId, limit int) ([]turn.TurnId, error)

	// GetEdges returns every edge whose both endpoints are in ids,
	// lexicographically sorted.
	GetEdges(ctx context.Context, ids []turn.TurnId) ([]turn.Edge, error)

	// AllTurns returns every turn snapshot in the store, in no
	// particular order; the Atlas pipeline sorts before hashing. Used
	// only by batch/whole-graph operations, never by the slicer.
	AllTurns(ctx context.Context) ([]*turn.TurnSnapshot, error)

	// AllEdges returns every edge in the store, in no particular order.
	AllEdges(ctx context.Context) ([]turn.Edge, error)
}

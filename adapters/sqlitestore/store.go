// Package sqlitestore is a store.Store conforming implementation over
// modernc.org/sqlite, against the memory_turns/memory_turn_edges
// relations spec.md §6 names. It follows the teacher's own SQLite
// storage shape: a migrations directory embedded into the binary,
// applied once at open time, tracked in a schema_migrations table.
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Diomandeee/admissibility-kernel/errtax"
	"github.com/Diomandeee/admissibility-kernel/store"
	"github.com/Diomandeee/admissibility-kernel/turn"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is a SQLite-backed store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if necessary) a SQLite database at path,
// enables WAL mode for concurrent readers, and applies any pending
// migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations(version TEXT PRIMARY KEY);`); err != nil {
		return err
	}
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	for _, e := range entries {
		v := e.Name()
		var exists string
		err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = ?", v).Scan(&exists)
		if err == nil {
			continue
		} else if err != sql.ErrNoRows {
			return err
		}
		body, err := migrationFS.ReadFile("migrations/" + v)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("applying migration %s: %w", v, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations(version) VALUES(?)", v); err != nil {
			return err
		}
	}
	return nil
}

func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	return errtax.New(errtax.CodeStoreError, "sqlite store operation failed").WithCause(err)
}

// PutTurn inserts or replaces a turn row. Exposed for fixture setup
// and backfill tooling; the kernel itself only ever reads through
// store.Store.
func (s *Store) PutTurn(ctx context.Context, t *turn.TurnSnapshot) error {
	var contentHash any
	if t.ContentHash != nil {
		contentHash = *t.ContentHash
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_turns (
			id, conversation_id, role, phase, salience_score,
			trajectory_depth, trajectory_sibling_order, trajectory_homogeneity,
			trajectory_temporal, trajectory_complexity, created_at, content_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			conversation_id=excluded.conversation_id, role=excluded.role, phase=excluded.phase,
			salience_score=excluded.salience_score, trajectory_depth=excluded.trajectory_depth,
			trajectory_sibling_order=excluded.trajectory_sibling_order,
			trajectory_homogeneity=excluded.trajectory_homogeneity,
			trajectory_temporal=excluded.trajectory_temporal,
			trajectory_complexity=excluded.trajectory_complexity,
			created_at=excluded.created_at, content_hash=excluded.content_hash
	`, t.ID.String(), t.SessionID, string(t.Role), string(t.Phase), t.Salience,
		t.TrajectoryDepth, t.TrajectorySiblingOrder, t.TrajectoryHomogeneity,
		t.TrajectoryTemporal, t.TrajectoryComplexity, t.CreatedAt, contentHash)
	return wrapStoreErr(err)
}

// PutEdge inserts an edge row. Self-loops are rejected silently,
// matching memstore's fixture-building contract.
func (s *Store) PutEdge(ctx context.Context, e turn.Edge) error {
	if e.Parent == e.Child {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_turn_edges (parent_turn_id, child_turn_id, edge_type)
		VALUES (?, ?, ?)
	`, e.Parent.String(), e.Child.String(), string(e.Type))
	return wrapStoreErr(err)
}

func scanTurn(row interface{ Scan(...any) error }) (*turn.TurnSnapshot, error) {
	var idStr, sessionID, role, phase string
	var salience, homogeneity, temporal, complexity float32
	var depth, siblingOrder uint32
	var createdAt int64
	var contentHash sql.NullString

	if err := row.Scan(&idStr, &sessionID, &role, &phase, &salience,
		&depth, &siblingOrder, &homogeneity, &temporal, &complexity,
		&createdAt, &contentHash); err != nil {
		return nil, err
	}

	id, err := turn.ParseTurnID(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing turn id %q: %w", idStr, err)
	}
	snap := turn.NewTurnSnapshot(id, sessionID, turn.Role(role), turn.Phase(phase), salience, createdAt)
	snap.WithTrajectory(depth, siblingOrder, homogeneity, temporal, complexity)
	if contentHash.Valid {
		snap.WithContentHash(contentHash.String)
	}
	return snap, nil
}

const turnColumns = `id, conversation_id, role, phase, salience_score,
	trajectory_depth, trajectory_sibling_order, trajectory_homogeneity,
	trajectory_temporal, trajectory_complexity, created_at, content_hash`

func (s *Store) GetTurn(ctx context.Context, id turn.TurnId) (*turn.TurnSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+turnColumns+` FROM memory_turns WHERE id = ?`, id.String())
	snap, err := scanTurn(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return snap, nil
}

func (s *Store) GetTurns(ctx context.Context, ids []turn.TurnId) ([]*turn.TurnSnapshot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx, `SELECT `+turnColumns+` FROM memory_turns WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()

	var out []*turn.TurnSnapshot
	for rows.Next() {
		snap, err := scanTurn(rows)
		if err != nil {
			return nil, wrapStoreErr(err)
		}
		out = append(out, snap)
	}
	return out, wrapStoreErr(rows.Err())
}

func (s *Store) GetParents(ctx context.Context, id turn.TurnId) ([]turn.TurnId, error) {
	return s.queryTurnIDs(ctx,
		`SELECT DISTINCT parent_turn_id FROM memory_turn_edges WHERE child_turn_id = ? ORDER BY parent_turn_id ASC`,
		id.String())
}

func (s *Store) GetChildren(ctx context.Context, id turn.TurnId) ([]turn.TurnId, error) {
	return s.queryTurnIDs(ctx,
		`SELECT DISTINCT child_turn_id FROM memory_turn_edges WHERE parent_turn_id = ? ORDER BY child_turn_id ASC`,
		id.String())
}

// GetSiblings returns up to limit ids of turns sharing at least one
// parent with id, sorted by (salience desc, id asc). limit < 0 means
// unbounded, matching memstore's contract.
func (s *Store) GetSiblings(ctx context.Context, id turn.TurnId, limit int) ([]turn.TurnId, error) {
	query := `
		SELECT DISTINCT c.child_turn_id, t.salience_score
		FROM memory_turn_edges c
		JOIN memory_turn_edges p ON c.parent_turn_id = p.parent_turn_id
		JOIN memory_turns t ON t.id = c.child_turn_id
		WHERE p.child_turn_id = ? AND c.child_turn_id != ?
		ORDER BY t.salience_score DESC, c.child_turn_id ASC`
	args := []any{id.String(), id.String()}
	if limit >= 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()

	var out []turn.TurnId
	for rows.Next() {
		var idStr string
		var salience float32
		if err := rows.Scan(&idStr, &salience); err != nil {
			return nil, wrapStoreErr(err)
		}
		parsed, err := turn.ParseTurnID(idStr)
		if err != nil {
			return nil, wrapStoreErr(err)
		}
		out = append(out, parsed)
	}
	return out, wrapStoreErr(rows.Err())
}

// GetEdges returns every edge whose both endpoints are in ids,
// lexicographically sorted.
func (s *Store) GetEdges(ctx context.Context, ids []turn.TurnId) ([]turn.Edge, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	query := fmt.Sprintf(`
		SELECT parent_turn_id, child_turn_id, edge_type FROM memory_turn_edges
		WHERE parent_turn_id IN (%s) AND child_turn_id IN (%s)`, placeholders, placeholders)
	rows, err := s.db.QueryContext(ctx, query, append(append([]any{}, args...), args...)...)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()

	edges, err := scanEdges(rows)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return turn.SortEdges(edges), nil
}

func (s *Store) AllTurns(ctx context.Context) ([]*turn.TurnSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+turnColumns+` FROM memory_turns`)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()

	var out []*turn.TurnSnapshot
	for rows.Next() {
		snap, err := scanTurn(rows)
		if err != nil {
			return nil, wrapStoreErr(err)
		}
		out = append(out, snap)
	}
	return out, wrapStoreErr(rows.Err())
}

func (s *Store) AllEdges(ctx context.Context) ([]turn.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT parent_turn_id, child_turn_id, edge_type FROM memory_turn_edges`)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()
	edges, err := scanEdges(rows)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return edges, nil
}

func scanEdges(rows *sql.Rows) ([]turn.Edge, error) {
	var out []turn.Edge
	for rows.Next() {
		var parentStr, childStr, edgeType string
		if err := rows.Scan(&parentStr, &childStr, &edgeType); err != nil {
			return nil, err
		}
		parent, err := turn.ParseTurnID(parentStr)
		if err != nil {
			return nil, err
		}
		child, err := turn.ParseTurnID(childStr)
		if err != nil {
			return nil, err
		}
		out = append(out, turn.Edge{Parent: parent, Child: child, Type: turn.EdgeType(edgeType)})
	}
	return out, rows.Err()
}

func (s *Store) queryTurnIDs(ctx context.Context, query string, args ...any) ([]turn.TurnId, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()

	var out []turn.TurnId
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, wrapStoreErr(err)
		}
		id, err := turn.ParseTurnID(idStr)
		if err != nil {
			return nil, wrapStoreErr(err)
		}
		out = append(out, id)
	}
	return out, wrapStoreErr(rows.Err())
}

// inClause builds a "?,?,?" placeholder string and the matching
// string-valued argument list for ids.
func inClause(ids []turn.TurnId) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}
	return strings.Join(placeholders, ","), args
}

package evidence

import (
	"fmt"
	"strings"

	"github.com/Diomandeee/admissibility-kernel/canonical"
	"github.com/Diomandeee/admissibility-kernel/turn"
)

// BoundaryViolation names an access attempt that fell outside an
// admitted slice: the turn was requested but was never part of the
// bundle the requester was handed. Timestamp and Context identify when
// and under what operation the attempt happened, for audit logging.
type BoundaryViolation struct {
	SliceID     string
	RequestedID turn.TurnId
	Timestamp   int64 // unix seconds, caller-supplied
	Context     string
}

func (v *BoundaryViolation) Error() string {
	return fmt.Sprintf("turn %s is outside admitted slice %s (context: %s)", v.RequestedID, v.SliceID, v.Context)
}

// SliceBoundaryGuard enforces that downstream access to turn content
// never reaches past the turns an AdmissibleEvidenceBundle actually
// admitted, even if the caller holds a store reference that could
// reach further. BoundaryHash and SliceFingerprint let a caller attest
// to exactly which boundary a CheckAccess call was evaluated against,
// independent of the bundle pointer's own identity.
type SliceBoundaryGuard struct {
	bundle   *AdmissibleEvidenceBundle
	admitted map[turn.TurnId]struct{}

	// BoundaryHash is the xxh64 hex digest of the admitted turn ids,
	// sorted ascending, so two guards over the same turn set hash
	// identically regardless of the order the bundle's turns arrived in.
	BoundaryHash string
	// SliceFingerprint identifies the slice this boundary was derived
	// from.
	SliceFingerprint string
}

// NewSliceBoundaryGuard builds a guard over the turns bundle admits.
func NewSliceBoundaryGuard(bundle *AdmissibleEvidenceBundle) *SliceBoundaryGuard {
	export := bundle.Export()
	admitted := make(map[turn.TurnId]struct{}, len(export.Turns))
	ids := make([]turn.TurnId, 0, len(export.Turns))
	for _, t := range export.Turns {
		admitted[t.ID] = struct{}{}
		ids = append(ids, t.ID)
	}
	sorted := turn.SortTurnIDs(ids)
	idFields := make([]canonical.Field, len(sorted))
	for i, id := range sorted {
		idFields[i] = canonical.Bytes(id.Bytes())
	}

	return &SliceBoundaryGuard{
		bundle:           bundle,
		admitted:         admitted,
		BoundaryHash:     canonical.CanonicalHashHex(canonical.Seq(idFields...)),
		SliceFingerprint: export.SliceID,
	}
}

// CheckAccess reports whether id is within the admitted slice. It
// returns a *BoundaryViolation rather than panicking: a boundary check
// is a routine control-flow branch a caller is expected to handle, not
// a programmer error. timestamp and accessContext are recorded on any
// resulting violation for audit logging.
func (g *SliceBoundaryGuard) CheckAccess(id turn.TurnId, timestamp int64, accessContext string) error {
	if _, ok := g.admitted[id]; ok {
		return nil
	}
	return &BoundaryViolation{
		SliceID:     g.bundle.Export().SliceID,
		RequestedID: id,
		Timestamp:   timestamp,
		Context:     accessContext,
	}
}

// CheckAccessAll runs CheckAccess over every id and returns the first
// violation encountered, or nil if all ids are admitted.
func (g *SliceBoundaryGuard) CheckAccessAll(ids []turn.TurnId, timestamp int64, accessContext string) error {
	for _, id := range ids {
		if err := g.CheckAccess(id, timestamp, accessContext); err != nil {
			return err
		}
	}
	return nil
}

// AdmittedIDs returns the admitted turn ids in the order the bundle's
// turns are stored (ascending by id).
func (g *SliceBoundaryGuard) AdmittedIDs() []turn.TurnId {
	export := g.bundle.Export()
	ids := make([]turn.TurnId, len(export.Turns))
	for i, t := range export.Turns {
		ids[i] = t.ID
	}
	return ids
}

// BuildAdmittedIDsQuery builds a parameterized SQL query restricted to
// the admitted ids, e.g. for a caller that wants to re-fetch rows for
// this slice from a relational store. table is a trusted constant
// supplied by the caller, never request-derived; the ids are always
// passed as bind parameters, never interpolated into the query text.
func (g *SliceBoundaryGuard) BuildAdmittedIDsQuery(table string) (string, []any) {
	ids := g.AdmittedIDs()
	if len(ids) == 0 {
		return fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", table), nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE id IN (%s)", table, strings.Join(placeholders, ", "))
	return query, args
}

package security

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ReviewState is the disposition of a quarantined token.
type ReviewState string

const (
	ReviewPending ReviewState = "pending"
	ReviewAllowed ReviewState = "allowed"
	ReviewBlocked ReviewState = "blocked"
	ReviewDeleted ReviewState = "deleted"
)

// QuarantinedToken is a token that failed verification and was held
// for review rather than silently dropped, so an operator can tell
// forged-token noise apart from a secret-rotation mismatch.
type QuarantinedToken struct {
	ID               string
	TokenHash        string
	SliceFingerprint string
	QuarantinedAt    time.Time
	Reason           string
	IncidentID       string // empty if not linked to an incident
	ReviewState      ReviewState
	ReviewedAt       time.Time
}

// NewQuarantinedToken constructs an entry in the ReviewPending state.
func NewQuarantinedToken(tokenHash, sliceFingerprint, reason string) *QuarantinedToken {
	return &QuarantinedToken{
		ID:               uuid.NewString(),
		TokenHash:        tokenHash,
		SliceFingerprint: sliceFingerprint,
		QuarantinedAt:    time.Now().UTC(),
		Reason:           reason,
		ReviewState:      ReviewPending,
	}
}

// WithIncident links the entry to an incident id and returns the
// receiver for chaining.
func (q *QuarantinedToken) WithIncident(incidentID string) *QuarantinedToken {
	q.IncidentID = incidentID
	return q
}

// Ledger is an in-memory, concurrency-safe quarantine store. A reader
// never blocks another reader; a write briefly excludes readers —
// the same contract spec.md gives the verifier cache.
type Ledger struct {
	mu      sync.RWMutex
	byToken map[string]*QuarantinedToken // keyed by token_hash, unique
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{byToken: make(map[string]*QuarantinedToken)}
}

// Add inserts or replaces the entry for tok.TokenHash.
func (l *Ledger) Add(tok *QuarantinedToken) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byToken[tok.TokenHash] = tok
}

// Get returns the entry for tokenHash, or nil if none is quarantined.
func (l *Ledger) Get(tokenHash string) *QuarantinedToken {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.byToken[tokenHash]
}

// MarkReviewed transitions an entry out of ReviewPending. It returns
// false if tokenHash is not in the ledger.
func (l *Ledger) MarkReviewed(tokenHash string, state ReviewState) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	tok, ok := l.byToken[tokenHash]
	if !ok {
		return false
	}
	tok.ReviewState = state
	tok.ReviewedAt = time.Now().UTC()
	return true
}

// Unreviewed returns every entry still in ReviewPending, in no
// particular order — callers that need a stable order should sort the
// result themselves.
func (l *Ledger) Unreviewed() []*QuarantinedToken {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*QuarantinedToken
	for _, tok := range l.byToken {
		if tok.ReviewState == ReviewPending {
			out = append(out, tok)
		}
	}
	return out
}

// ByIncident returns every entry linked to incidentID.
func (l *Ledger) ByIncident(incidentID string) []*QuarantinedToken {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*QuarantinedToken
	for _, tok := range l.byToken {
		if tok.IncidentID == incidentID {
			out = append(out, tok)
		}
	}
	return out
}

// Len returns the number of quarantined tokens, reviewed or not.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byToken)
}

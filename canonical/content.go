package canonical

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// NormalizeText trims outer whitespace and folds CRLF/CR line endings to
// LF. No deeper normalization is applied: no case folding, no Unicode
// normalization — that would erode semantic fidelity of turn content.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

// CanonicalContent returns the UTF-8 bytes of the normalized text. This
// is the exact byte sequence that ComputeContentHash hashes.
func CanonicalContent(s string) []byte {
	return []byte(NormalizeText(s))
}

// ComputeContentHash returns the lowercase 64-hex-character SHA-256
// digest of the canonical content of s.
func ComputeContentHash(s string) string {
	sum := sha256.Sum256(CanonicalContent(s))
	return hex.EncodeToString(sum[:])
}

// VerifyContentHash reports whether hash is the content hash of text,
// using a byte-for-byte constant-time comparison after a length check.
func VerifyContentHash(text, hash string) bool {
	computed := ComputeContentHash(text)
	if len(computed) != len(hash) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// ContentHashStatus is the outcome of ValidateContentHash.
type ContentHashStatus int

const (
	// StatusValid means the stored hash matches the current text.
	StatusValid ContentHashStatus = iota
	// StatusMismatch means a hash was stored but does not match.
	StatusMismatch
	// StatusMissing means no hash was stored (legacy data).
	StatusMissing
)

func (s ContentHashStatus) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusMismatch:
		return "mismatch"
	case StatusMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// ContentHashValidation is the result of validating a turn's stored
// content hash against its current text.
type ContentHashValidation struct {
	Status   ContentHashStatus
	Expected string
	Computed string
}

// ValidateContentHash distinguishes a present-and-correct hash from a
// present-but-wrong hash (tamper evidence) from an absent hash (legacy
// data, tolerated but logged by the caller).
func ValidateContentHash(text string, storedHash *string) ContentHashValidation {
	if storedHash == nil || *storedHash == "" {
		return ContentHashValidation{Status: StatusMissing}
	}
	computed := ComputeContentHash(text)
	if VerifyContentHash(text, *storedHash) {
		return ContentHashValidation{Status: StatusValid, Expected: *storedHash, Computed: computed}
	}
	return ContentHashValidation{Status: StatusMismatch, Expected: *storedHash, Computed: computed}
}

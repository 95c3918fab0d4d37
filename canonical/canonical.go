// Package canonical provides deterministic byte encoding and hashing for
// any structured value that participates in a fingerprint, a policy
// identity, or an admissibility token. Every hash in this kernel is
// computed over the output of this package — never over ad-hoc
// fmt.Sprintf or JSON marshaling of a map, both of which can reorder
// fields depending on the runtime or the library version.
//
// Field order is always the caller's declared order: this package never
// sorts or iterates a map. Unordered maps are forbidden anywhere a hash
// is computed from them (spec requirement); callers holding a map must
// sort it into a slice before building a Field sequence.
package canonical

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/cespare/xxhash/v2"
)

// tag identifies the wire shape of an encoded Field so that two fields
// with the same bytes but different types (or a split string vs. two
// concatenated strings) never collide.
type tag byte

const (
	tagString tag = iota + 1
	tagBytes
	tagUint64
	tagInt64
	tagBool
	tagSeq
)

// Field is one canonically-encoded component of a hashed tuple. Fields
// are opaque; build them with the constructors below and pass them to
// CanonicalBytes/CanonicalHashHex in the order that defines the value's
// identity.
type Field struct {
	b []byte
}

func lengthPrefixed(t tag, payload []byte) Field {
	buf := make([]byte, 0, 1+4+len(payload))
	buf = append(buf, byte(t))
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, payload...)
	return Field{b: buf}
}

// Str encodes a UTF-8 string field.
func Str(s string) Field {
	return lengthPrefixed(tagString, []byte(s))
}

// Bytes encodes a raw byte-slice field (e.g. a UUID's 16 bytes).
func Bytes(b []byte) Field {
	return lengthPrefixed(tagBytes, b)
}

// Uint64 encodes an unsigned integer field.
func Uint64(n uint64) Field {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	return lengthPrefixed(tagUint64, buf[:])
}

// Int64 encodes a signed integer field.
func Int64(n int64) Field {
	return Uint64FieldFromInt64(n)
}

// Uint64FieldFromInt64 is the explicit helper Int64 delegates to, kept
// separate so callers quantizing floats (see QuantizeFloat32) can see
// exactly which encoding a quantized value receives.
func Uint64FieldFromInt64(n int64) Field {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	return lengthPrefixed(tagInt64, buf[:])
}

// Bool encodes a boolean field.
func Bool(v bool) Field {
	if v {
		return lengthPrefixed(tagBool, []byte{1})
	}
	return lengthPrefixed(tagBool, []byte{0})
}

// Seq encodes an ordered, nested sequence of fields (e.g. the sorted
// list of turn ids in a slice export). The sequence's own length is
// folded in so that Seq(Str("a"), Str("b")) cannot collide with
// Seq(Str("ab")).
func Seq(fields ...Field) Field {
	inner := CanonicalBytes(fields...)
	buf := make([]byte, 0, 4+len(inner))
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(fields)))
	buf = append(buf, countBuf[:]...)
	buf = append(buf, inner...)
	return lengthPrefixed(tagSeq, buf)
}

// CanonicalBytes concatenates the encoded fields in the order given.
// Because every field is self-delimiting (tag + length prefix), the
// concatenation is injective: no two distinct field sequences produce
// the same bytes.
func CanonicalBytes(fields ...Field) []byte {
	total := 0
	for _, f := range fields {
		total += len(f.b)
	}
	out := make([]byte, 0, total)
	for _, f := range fields {
		out = append(out, f.b...)
	}
	return out
}

// CanonicalHashHex is the xxh64 (seed 0) hex digest of the canonical
// encoding of fields — 16 lowercase hex characters. This is the
// primitive behind slice_id, graph_snapshot_hash, policy_params_hash,
// registry_hash, and atlas_id.
func CanonicalHashHex(fields ...Field) string {
	sum := xxhash.Sum64(CanonicalBytes(fields...))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sum)
	return hex.EncodeToString(buf[:])
}

// QuantizeFloat32 converts an f32 into the i64 contract every hashed
// float must pass through: round(x * 1e6). This removes
// float-serialization drift across languages and library versions —
// hash inputs never contain a raw float.
func QuantizeFloat32(x float32) int64 {
	return int64(math.Round(float64(x) * 1_000_000))
}

package evidence

import "github.com/Diomandeee/admissibility-kernel/errtax"

// AdmissibleEvidenceBundle wraps a SliceExport whose admissibility
// token has been verified. The zero value is not usable: the only way
// to obtain one is FromVerified, so a function that takes a
// *AdmissibleEvidenceBundle by value can trust, at compile time, that
// verification already happened — "parse, don't validate" applied to
// the evidence boundary.
type AdmissibleEvidenceBundle struct {
	export     *SliceExport
	verified   bool
	verifiedAt int64
}

// FromVerified is the sole constructor. It re-derives the token fields
// from export and checks them against export's own token through v,
// refusing to construct a bundle around a self-inconsistent export.
// verifiedAt is supplied by the caller rather than read from the
// system clock here, matching the clock-injection pattern used
// throughout the kernel (see atlas's ComputedAt).
func FromVerified(export *SliceExport, v *TokenVerifier, verifiedAt int64) (*AdmissibleEvidenceBundle, error) {
	if export == nil {
		return nil, errtax.New(errtax.CodeIncompleteProvenance, "cannot admit a nil slice export")
	}
	ok, err := v.Verify(export.AdmissibilityToken, export.TokenFieldsFromExport())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errtax.New(errtax.CodeTokenMismatch, "admissibility token does not match slice export fields")
	}
	return &AdmissibleEvidenceBundle{export: export, verified: true, verifiedAt: verifiedAt}, nil
}

// Export returns the verified slice export. Safe to call on any value
// produced by FromVerified; there is no other way to obtain a non-nil
// *AdmissibleEvidenceBundle.
func (b *AdmissibleEvidenceBundle) Export() *SliceExport {
	return b.export
}

// Verified is always true for a bundle obtained from FromVerified. It
// exists so callers can assert the invariant explicitly at a trust
// boundary without reaching into unexported fields.
func (b *AdmissibleEvidenceBundle) Verified() bool {
	return b.verified
}

// VerifiedAt returns the caller-supplied timestamp FromVerified was
// called with, unix seconds.
func (b *AdmissibleEvidenceBundle) VerifiedAt() int64 {
	return b.verifiedAt
}

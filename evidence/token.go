package evidence

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/Diomandeee/admissibility-kernel/errtax"
)

// tokenDomain separates admissibility tokens from any other HMAC use of
// the same secret.
const tokenDomain = "admissibility_token_v2_hmac"

// tokenPrefixBytes is the truncation length of the HMAC-SHA256 output
// carried in a token: 16 raw bytes, 32 hex characters.
const tokenPrefixBytes = 16

// TokenFields is the exact set of attested fields an admissibility
// token is bound to. Changing the set of fields, or any one field's
// value, changes the token.
type TokenFields struct {
	SliceID           string
	AnchorUUID        string
	PolicyID          string
	PolicyParamsHash  string
	GraphSnapshotHash string
	SchemaVersion     string
}

// canonicalString joins the bound fields with a delimiter that cannot
// appear inside any field (all fields are hex, UUID, or schema version
// strings), followed by the domain separator.
func (f TokenFields) canonicalString() string {
	return strings.Join([]string{
		f.SliceID,
		f.AnchorUUID,
		f.PolicyID,
		f.PolicyParamsHash,
		f.GraphSnapshotHash,
		f.SchemaVersion,
		tokenDomain,
	}, "|")
}

// IssueToken computes the admissibility token for fields under secret:
// HMAC-SHA256, truncated to the first 16 bytes, hex-encoded.
func IssueToken(secret []byte, fields TokenFields) (string, error) {
	if len(secret) == 0 {
		return "", errtax.New(errtax.CodeInternalVerificationFailure, "token secret must not be empty")
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(fields.canonicalString()))
	sum := mac.Sum(nil)
	return hex.EncodeToString(sum[:tokenPrefixBytes]), nil
}

// validTokenFormat reports whether token is exactly
// tokenPrefixBytes*2 lowercase hex characters.
func validTokenFormat(token string) bool {
	if len(token) != tokenPrefixBytes*2 {
		return false
	}
	for _, r := range token {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

// VerifyToken reports whether token was issued by IssueToken(secret,
// fields). Format is checked before recomputation; comparison is
// constant-time over the decoded bytes, never over the hex strings or
// the canonical field string.
func VerifyToken(secret []byte, token string, fields TokenFields) (bool, error) {
	if !validTokenFormat(token) {
		return false, errtax.New(errtax.CodeInvalidTokenFormat, "token is not "+strconv.Itoa(tokenPrefixBytes*2)+" lowercase hex characters")
	}
	expected, err := IssueToken(secret, fields)
	if err != nil {
		return false, err
	}
	gotBytes, err := hex.DecodeString(token)
	if err != nil {
		return false, errtax.New(errtax.CodeInvalidTokenFormat, "token is not valid hex").WithCause(err)
	}
	expectedBytes, err := hex.DecodeString(expected)
	if err != nil {
		return false, errtax.New(errtax.CodeInternalVerificationFailure, "computed token is not valid hex").WithCause(err)
	}
	return subtle.ConstantTimeCompare(gotBytes, expectedBytes) == 1, nil
}

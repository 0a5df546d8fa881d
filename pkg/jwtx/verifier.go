package jwtx

import (
	"errors"
	"time"
)

// Verifier validates the two token kinds issued by this service.
type Verifier interface {
	VerifySession(token string) (SessionClaims, error)
	VerifySelection(token string) (SelectionClaims, error)
}

// DefaultLeeway tolerates small clock skew between replicas.
const DefaultLeeway = 5 * time.Second

// MinSecretLength is the shortest shared secret accepted for HS256.
const MinSecretLength = 32

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrWeakSecret  = errors.New("jwtx: secret too short")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")

	// ErrWrongType is returned when a correctly signed token carries the
	// wrong "type" claim for the verification being performed.
	ErrWrongType = errors.New("jwtx: unexpected token type")

	// ErrMissingSubject is returned when a correctly signed token has no sub.
	ErrMissingSubject = errors.New("jwtx: missing subject")
)

// IsPayloadError reports whether err means the token was authentic but its
// payload is unusable, as opposed to forged, malformed or expired.
func IsPayloadError(err error) bool {
	return errors.Is(err, ErrWrongType) || errors.Is(err, ErrMissingSubject)
}

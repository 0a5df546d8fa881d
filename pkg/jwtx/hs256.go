package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HS256 signs and verifies tokens with one shared secret. It implements
// both Signer and Verifier.
type HS256 struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewHS256 creates an HS256 signer/verifier. An empty issuer disables the
// issuer check on verification.
func NewHS256(secret []byte, issuer string) (*HS256, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, MinSecretLength)
	}
	return &HS256{
		secret: append([]byte(nil), secret...),
		issuer: issuer,
		leeway: DefaultLeeway,
		now:    time.Now,
	}, nil
}

func (h *HS256) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Issuer returns the issuer stamped on minted tokens.
func (h *HS256) Issuer() string { return h.issuer }

// Sign takes your claims and turns them into a signed JWT string.
func (h *HS256) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(h.secret)
}

// VerifySession validates a session token. Selection tokens are rejected
// with ErrWrongType.
func (h *HS256) VerifySession(tokenStr string) (SessionClaims, error) {
	var claims SessionClaims
	if err := h.parse(tokenStr, &claims); err != nil {
		return SessionClaims{}, err
	}
	if err := h.validateRegistered(claims.RegisteredClaims); err != nil {
		return SessionClaims{}, err
	}

	if claims.Type != "" {
		return SessionClaims{}, ErrWrongType
	}
	if claims.Subject == "" {
		return SessionClaims{}, ErrMissingSubject
	}
	if claims.OrganizationID == "" || claims.Role == "" {
		return SessionClaims{}, fmt.Errorf("%w: organizationId and role are required", ErrInvalidClaim)
	}

	return claims, nil
}

// VerifySelection validates an org-selection token. The signature and
// expiry are checked first; a token that passes both but carries any type
// other than TypeOrgSelection fails with ErrWrongType.
func (h *HS256) VerifySelection(tokenStr string) (SelectionClaims, error) {
	var claims SelectionClaims
	if err := h.parse(tokenStr, &claims); err != nil {
		return SelectionClaims{}, err
	}
	if err := h.validateRegistered(claims.RegisteredClaims); err != nil {
		return SelectionClaims{}, err
	}

	if claims.Type != TypeOrgSelection {
		return SelectionClaims{}, fmt.Errorf("%w: %q", ErrWrongType, claims.Type)
	}
	if claims.Subject == "" {
		return SelectionClaims{}, ErrMissingSubject
	}

	return claims, nil
}

// parse checks the algorithm and signature only. Time based claims are
// validated by validateRegistered so the errors stay ours.
func (h *HS256) parse(tokenStr string, claims jwt.Claims) error {
	if tokenStr == "" {
		return ErrMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrAlgMismatch
		}
		return h.secret, nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSig, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func (h *HS256) validateRegistered(c jwt.RegisteredClaims) error {
	if err := ValidateIssuer(c, h.issuer); err != nil {
		return err
	}
	return ValidateExpiryWithLeeway(c, h.now().UTC(), h.leeway)
}

var (
	_ Signer   = (*HS256)(nil)
	_ Verifier = (*HS256)(nil)
)

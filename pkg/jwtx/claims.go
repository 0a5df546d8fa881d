package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants.
const (
	// DefaultSessionTTL is the lifetime of a session token bound to one
	// organization.
	DefaultSessionTTL = 15 * time.Minute

	// DefaultSelectionTTL is the lifetime of an org-selection token. It only
	// has to survive the organization picker.
	DefaultSelectionTTL = 5 * time.Minute
)

// TypeOrgSelection is the only accepted value of the selection token's
// "type" claim.
const TypeOrgSelection = "org_selection"

// SessionClaims are the claims of a session token. The role is a snapshot
// taken at mint time; the resolver compares it with the live membership.
type SessionClaims struct {
	jwt.RegisteredClaims

	Email          string `json:"email"`
	OrganizationID string `json:"organizationId"`
	Role           string `json:"role"`

	// Type is empty on session tokens. It is decoded so a selection token
	// presented as a session token can be told apart and rejected.
	Type string `json:"type,omitempty"`
}

// SelectionClaims are the claims of a temporary org-selection token.
type SelectionClaims struct {
	jwt.RegisteredClaims

	Type string `json:"type"`
}

// NewSessionClaims builds minimally-correct session claims.
func NewSessionClaims(
	userID, email, organizationID, role string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) SessionClaims {
	return SessionClaims{
		RegisteredClaims: registered(userID, ttl, issuer, now),
		Email:            email,
		OrganizationID:   organizationID,
		Role:             role,
	}
}

// NewSelectionClaims builds the claims for a single-use org-selection token.
// The jti is always set so the exchange can be recorded.
func NewSelectionClaims(userID string, ttl time.Duration, issuer string, now time.Time) SelectionClaims {
	return SelectionClaims{
		RegisteredClaims: registered(userID, ttl, issuer, now),
		Type:             TypeOrgSelection,
	}
}

func registered(subject string, ttl time.Duration, issuer string, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func ValidateIssuer(c jwt.RegisteredClaims, expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiryWithLeeway checks exp and nbf against now with a small grace
// period for clock skew.
func ValidateExpiryWithLeeway(c jwt.RegisteredClaims, now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}

package domain

import (
	"time"

	"github.com/aussiebroadwan/orgauth/pkg/rbac"
)

// SessionToken is a freshly minted session token and the organization it is
// bound to.
type SessionToken struct {
	AccessToken    string
	ExpiresAt      time.Time
	OrganizationID string
	Role           rbac.Role
}

// LoginResult is the outcome of a password login. Token is set when the user
// has exactly one membership. Otherwise SelectionToken is set and
// Memberships lists the organizations to pick from.
type LoginResult struct {
	Token          *SessionToken
	SelectionToken string
	Memberships    []OrganizationMembership
}

package domain

import (
	"time"

	"github.com/aussiebroadwan/orgauth/pkg/rbac"
)

// Membership binds a user to an organization. There is at most one per
// (UserID, OrganizationID).
type Membership struct {
	ID             string
	UserID         string
	OrganizationID string
	Role           rbac.Role
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrganizationMembership is a membership joined with its organization, as
// listed for the organization picker.
type OrganizationMembership struct {
	Membership
	Organization Organization
}

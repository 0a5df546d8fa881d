package authsdk

import (
	"time"

	"github.com/aussiebroadwan/orgauth/pkg/rbac"
)

// ============================================================================
// Identity
// ============================================================================

// Identity is the effective identity of one request: who is calling, in
// which organization, with which role. Role always reflects the membership
// at resolution time, not the role embedded in the token.
type Identity struct {
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	OrganizationID string    `json:"organization_id"`
	Role           rbac.Role `json:"role"`
}

// ============================================================================
// Internal Response Types
// ============================================================================

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Auth Types
// ============================================================================

// RegisterRequest creates a user together with their first organization.
type RegisterRequest struct {
	Email            string `json:"email" example:"alice@example.com"`
	Password         string `json:"password" example:"correct-horse-battery"`
	Name             string `json:"name" example:"Alice"`
	OrganizationName string `json:"organization_name" example:"Acme Motors"`
	OrganizationSlug string `json:"organization_slug,omitempty" example:"acme"`
}

// LoginRequest is the password login body.
type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct-horse-battery"`
}

// TokenResponse carries a session token bound to one organization.
type TokenResponse struct {
	AccessToken    string    `json:"access_token"`
	TokenType      string    `json:"token_type" example:"Bearer"`
	ExpiresIn      int       `json:"expires_in" example:"900"`
	OrganizationID string    `json:"organization_id"`
	Role           rbac.Role `json:"role" example:"OWNER"`
}

// LoginResponse is returned from login. Exactly one of Token or
// SelectionToken is set: users with several memberships must pick an
// organization first.
type LoginResponse struct {
	*TokenResponse

	RequiresOrganizationSelection bool                     `json:"requires_organization_selection"`
	SelectionToken                string                   `json:"selection_token,omitempty"`
	Organizations                 []OrganizationMembership `json:"organizations,omitempty"`
}

// SelectOrganizationRequest exchanges a selection token for a session token.
type SelectOrganizationRequest struct {
	SelectionToken string `json:"selection_token"`
	OrganizationID string `json:"organization_id"`
}

// SwitchOrganizationRequest mints a session token for another organization.
type SwitchOrganizationRequest struct {
	OrganizationID string `json:"organization_id"`
}

// MeResponse describes the caller and what they may do.
type MeResponse struct {
	Identity
	Permissions []rbac.Permission `json:"permissions"`
}

// ============================================================================
// Organization Types
// ============================================================================

// OrganizationMembership is one organization the user belongs to.
type OrganizationMembership struct {
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name" example:"Acme Motors"`
	Slug           string    `json:"slug" example:"acme"`
	Role           rbac.Role `json:"role" example:"SELLER"`
}

// ListOrganizationsResponse lists the caller's memberships.
type ListOrganizationsResponse struct {
	Organizations []OrganizationMembership `json:"organizations"`
}

// OrganizationSettings are the per-organization permission toggles.
type OrganizationSettings struct {
	OrganizationID     string    `json:"organization_id"`
	SellerCanEditLeads bool      `json:"seller_can_edit_leads"`
	SellerCanEditSales bool      `json:"seller_can_edit_sales"`
	UpdatedAt          time.Time `json:"updated_at,omitzero"`
}

// UpdateSettingsRequest replaces the organization's toggles.
type UpdateSettingsRequest struct {
	SellerCanEditLeads bool `json:"seller_can_edit_leads"`
	SellerCanEditSales bool `json:"seller_can_edit_sales"`
}

// ChangeRoleRequest sets a member's role.
type ChangeRoleRequest struct {
	Role rbac.Role `json:"role" example:"MANAGER"`
}

// MemberResponse describes a membership after an administrative change.
type MemberResponse struct {
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Role           rbac.Role `json:"role"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz (readyz adds Checks).
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks is the status of each dependency checked by /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

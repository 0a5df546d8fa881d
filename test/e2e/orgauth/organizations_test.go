package orgauth_test

import (
	"testing"

	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
	"github.com/stretchr/testify/require"
)

func TestMultiOrganizationLogin(t *testing.T) {
	s := setupStack(t, relaxedRateLimits)
	ctx := t.Context()

	acme := register(t, s.Client, "owner@acme.test", "Acme")
	seller := register(t, s.Client, "seller@globex.test", "Globex")
	sellerID := whoami(t, seller).UserID
	s.addMember(t, sellerID, acme.OrganizationID(), rbac.RoleSeller)

	resp, err := s.Client.Login(ctx, "seller@globex.test", testPassword)
	require.NoError(t, err)
	require.True(t, resp.RequiresOrganizationSelection)
	require.Len(t, resp.Organizations, 2)

	session, err := s.Client.SelectOrganization(ctx, resp.SelectionToken, acme.OrganizationID())
	require.NoError(t, err)
	require.Equal(t, string(rbac.RoleSeller), session.Role())

	// Selection tokens are single use, tracked in Redis.
	_, err = s.Client.SelectOrganization(ctx, resp.SelectionToken, acme.OrganizationID())
	require.ErrorIs(t, err, authsdk.ErrInvalidOrExpiredToken)

	me, err := session.WithOrganization(seller.OrganizationID()).Me(ctx)
	require.NoError(t, err)
	require.Equal(t, rbac.RoleOwner, me.Role)

	orgs, err := session.ListOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 2)
}

func TestSettingsAndRoleChanges(t *testing.T) {
	s := setupStack(t, relaxedRateLimits)
	ctx := t.Context()

	owner := register(t, s.Client, "owner@acme.test", "Acme")
	other := register(t, s.Client, "seller@globex.test", "Globex")
	sellerID := whoami(t, other).UserID
	s.addMember(t, sellerID, owner.OrganizationID(), rbac.RoleSeller)

	seller, err := s.Client.AuthenticateWithPassword(ctx, "seller@globex.test", testPassword, owner.OrganizationID())
	require.NoError(t, err)
	require.NotContains(t, whoami(t, seller).Permissions, rbac.PermEditSales)

	_, err = seller.UpdateSettings(ctx, authsdk.UpdateSettingsRequest{SellerCanEditSales: true})
	require.ErrorIs(t, err, authsdk.ErrInsufficientPermission)

	_, err = owner.UpdateSettings(ctx, authsdk.UpdateSettingsRequest{SellerCanEditSales: true})
	require.NoError(t, err)
	require.Contains(t, whoami(t, seller).Permissions, rbac.PermEditSales)

	m, err := owner.ChangeMemberRole(ctx, sellerID, authsdk.ChangeRoleRequest{Role: rbac.RoleManager})
	require.NoError(t, err)
	require.Equal(t, rbac.RoleManager, m.Role)

	// The seller's token still says SELLER.
	_, err = seller.Me(ctx)
	require.ErrorIs(t, err, authsdk.ErrRoleMismatch)

	require.NoError(t, seller.SwitchOrganization(ctx, owner.OrganizationID()))
	require.Equal(t, rbac.RoleManager, whoami(t, seller).Role)
}

func TestAutoPromotion(t *testing.T) {
	s := setupStack(t, map[string]string{
		"AUTO_PROMOTE_ENABLED":        "true",
		"AUTO_PROMOTE_EMAIL":          "ops@acme.test",
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	})
	ctx := t.Context()

	acme := register(t, s.Client, "owner@acme.test", "Acme")
	ops := register(t, s.Client, "ops@acme.test", "Ops")
	opsID := whoami(t, ops).UserID
	s.addMember(t, opsID, acme.OrganizationID(), rbac.RoleSeller)

	session, err := s.Client.AuthenticateWithPassword(ctx, "ops@acme.test", testPassword, acme.OrganizationID())
	require.NoError(t, err)
	require.Equal(t, string(rbac.RoleSeller), session.Role())

	// The first resolved request promotes every membership.
	me := whoami(t, session)
	require.Equal(t, rbac.RoleOwner, me.Role)

	var role string
	require.NoError(t, s.DB.QueryRowContext(ctx,
		`SELECT role FROM memberships WHERE user_id = $1 AND organization_id = $2`,
		opsID, acme.OrganizationID()).Scan(&role))
	require.Equal(t, "OWNER", role)
}

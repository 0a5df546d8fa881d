package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
	"github.com/stretchr/testify/require"
)

func TestOrganizationSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acme := f.org(t, "Acme")
	svc := &OrganizationService{Store: f.store}

	perms, err := svc.PermissionSettings(ctx, acme.ID)
	require.NoError(t, err)
	require.Equal(t, rbac.OrgSettings{}, perms)
	require.False(t, rbac.Allows(rbac.RoleSeller, rbac.PermEditLeads, perms))

	_, err = svc.UpdateSettings(ctx, acme.ID, true, false)
	require.NoError(t, err)

	perms, err = svc.PermissionSettings(ctx, acme.ID)
	require.NoError(t, err)
	require.True(t, rbac.Allows(rbac.RoleSeller, rbac.PermEditLeads, perms))
	require.False(t, rbac.Allows(rbac.RoleSeller, rbac.PermEditSales, perms))

	got, err := svc.GetSettings(ctx, acme.ID)
	require.NoError(t, err)
	require.True(t, got.SellerCanEditLeads)
}

func TestListForUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@x.com")
	f.member(t, alice.ID, f.org(t, "Zeta").ID, rbac.RoleSeller)
	f.member(t, alice.ID, f.org(t, "Acme").ID, rbac.RoleOwner)

	list, err := (&OrganizationService{Store: f.store}).ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Acme", list[0].Organization.Name)
}

func TestChangeMemberRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acme := f.org(t, "Acme")
	owner := f.user(t, "owner@x.com")
	admin := f.user(t, "admin@x.com")
	seller := f.user(t, "seller@x.com")
	coOwner := f.user(t, "co-owner@x.com")
	f.member(t, owner.ID, acme.ID, rbac.RoleOwner)
	f.member(t, admin.ID, acme.ID, rbac.RoleAdmin)
	f.member(t, seller.ID, acme.ID, rbac.RoleSeller)
	f.member(t, coOwner.ID, acme.ID, rbac.RoleOwner)

	svc := &OrganizationService{Store: f.store}
	asOwner := authsdk.Identity{UserID: owner.ID, OrganizationID: acme.ID, Role: rbac.RoleOwner}
	asAdmin := authsdk.Identity{UserID: admin.ID, OrganizationID: acme.ID, Role: rbac.RoleAdmin}

	t.Run("admin promotes seller to manager", func(t *testing.T) {
		m, err := svc.ChangeMemberRole(ctx, asAdmin, seller.ID, rbac.RoleManager)
		require.NoError(t, err)
		require.Equal(t, rbac.RoleManager, m.Role)
		require.Equal(t, rbac.RoleManager, f.role(t, seller.ID, acme.ID))
	})

	t.Run("admin cannot grant owner", func(t *testing.T) {
		_, err := svc.ChangeMemberRole(ctx, asAdmin, seller.ID, rbac.RoleOwner)
		require.ErrorIs(t, err, authsdk.ErrInsufficientPermission)
		require.Equal(t, rbac.RoleManager, f.role(t, seller.ID, acme.ID))
	})

	t.Run("admin cannot demote owner", func(t *testing.T) {
		_, err := svc.ChangeMemberRole(ctx, asAdmin, coOwner.ID, rbac.RoleSeller)
		require.ErrorIs(t, err, ErrOwnerProtected)
		require.Equal(t, rbac.RoleOwner, f.role(t, coOwner.ID, acme.ID))
	})

	t.Run("owner demotes owner", func(t *testing.T) {
		_, err := svc.ChangeMemberRole(ctx, asOwner, coOwner.ID, rbac.RoleAdmin)
		require.NoError(t, err)
		require.Equal(t, rbac.RoleAdmin, f.role(t, coOwner.ID, acme.ID))
	})

	t.Run("own role", func(t *testing.T) {
		_, err := svc.ChangeMemberRole(ctx, asOwner, owner.ID, rbac.RoleSeller)
		require.ErrorIs(t, err, ErrOwnRole)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := svc.ChangeMemberRole(ctx, asOwner, seller.ID, rbac.Role("GUEST"))
		require.ErrorIs(t, err, authsdk.ErrInvalidRequest)
	})

	t.Run("member of another organization", func(t *testing.T) {
		outsider := f.user(t, "outsider@x.com")
		f.member(t, outsider.ID, f.org(t, "Other").ID, rbac.RoleSeller)

		_, err := svc.ChangeMemberRole(ctx, asOwner, outsider.ID, rbac.RoleAdmin)
		require.ErrorIs(t, err, authsdk.ErrNotFound)
	})
}

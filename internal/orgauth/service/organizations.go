package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store"
	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
	"github.com/aussiebroadwan/orgauth/pkg/slogx"
)

type OrganizationService struct {
	Store         store.Store
	LookupTimeout time.Duration
}

// ListForUser returns the user's memberships ordered by organization name.
func (s *OrganizationService) ListForUser(ctx context.Context, userID string) ([]domain.OrganizationMembership, error) {
	return s.Store.Memberships().ListUserMemberships(ctx, userID)
}

func (s *OrganizationService) GetSettings(ctx context.Context, organizationID string) (domain.OrganizationSettings, error) {
	return s.Store.Settings().GetSettings(ctx, organizationID)
}

// PermissionSettings feeds httpx.RequirePermission.
func (s *OrganizationService) PermissionSettings(ctx context.Context, organizationID string) (rbac.OrgSettings, error) {
	settings, err := withTimeout(ctx, s.LookupTimeout, func(ctx context.Context) (domain.OrganizationSettings, error) {
		return s.Store.Settings().GetSettings(ctx, organizationID)
	})
	if err != nil {
		return rbac.OrgSettings{}, err
	}
	return settings.Permissions(), nil
}

func (s *OrganizationService) UpdateSettings(ctx context.Context, organizationID string, leads, sales bool) (domain.OrganizationSettings, error) {
	settings := domain.OrganizationSettings{
		OrganizationID:     organizationID,
		SellerCanEditLeads: leads,
		SellerCanEditSales: sales,
		UpdatedAt:          time.Now().UTC(),
	}
	if err := s.Store.Settings().UpsertSettings(ctx, settings); err != nil {
		return domain.OrganizationSettings{}, err
	}

	slogx.FromContext(ctx).Info("organization settings updated",
		slog.String("org_id", organizationID),
		slog.Bool("seller_can_edit_leads", leads),
		slog.Bool("seller_can_edit_sales", sales),
	)
	return settings, nil
}

// ChangeMemberRole sets the role of targetUserID in the actor's current
// organization. Only an OWNER may grant OWNER or change an OWNER's role, and
// nobody may change their own role.
func (s *OrganizationService) ChangeMemberRole(ctx context.Context, actor authsdk.Identity, targetUserID string, role rbac.Role) (domain.Membership, error) {
	if !role.Valid() {
		return domain.Membership{}, authsdk.ErrInvalidRequest.WithDescription("unknown role %q", role)
	}
	if targetUserID == actor.UserID {
		return domain.Membership{}, ErrOwnRole
	}

	var updated domain.Membership
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		target, err := tx.Memberships().GetMembership(ctx, targetUserID, actor.OrganizationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrMemberNotFound
			}
			return err
		}

		if actor.Role != rbac.RoleOwner && (target.Role == rbac.RoleOwner || role == rbac.RoleOwner) {
			return ErrOwnerProtected
		}

		if err := tx.Memberships().UpdateMembershipRole(ctx, targetUserID, actor.OrganizationID, role); err != nil {
			return err
		}

		updated, err = tx.Memberships().GetMembership(ctx, targetUserID, actor.OrganizationID)
		return err
	})
	if err != nil {
		return domain.Membership{}, err
	}

	slogx.FromContext(ctx).Info("member role changed",
		slog.String("org_id", actor.OrganizationID),
		slog.String("actor_id", actor.UserID),
		slog.String("target_id", targetUserID),
		slog.String("role", string(role)),
	)
	return updated, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store"
	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
	"github.com/aussiebroadwan/orgauth/pkg/slogx"
)

// OrgOverride switches the active organization of a single request to one
// named by the caller, provided the caller is a member there.
type OrgOverride struct {
	Store         store.Store
	LookupTimeout time.Duration
	Metrics       Recorder
}

// Override returns id bound to organizationID with the role of the caller's
// membership there. It never falls back to the original organization.
func (o *OrgOverride) Override(ctx context.Context, id authsdk.Identity, organizationID string) (authsdk.Identity, error) {
	out, err := o.override(ctx, id, organizationID)
	recorderOrNop(o.Metrics).OrganizationOverride(outcome(err))
	return out, err
}

func (o *OrgOverride) override(ctx context.Context, id authsdk.Identity, organizationID string) (authsdk.Identity, error) {
	m, err := withTimeout(ctx, o.LookupTimeout, func(ctx context.Context) (domain.Membership, error) {
		return o.Store.Memberships().GetMembership(ctx, id.UserID, organizationID)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return authsdk.Identity{}, authsdk.ErrForbiddenOrganization.
				WithDescription("user is not a member of organization %s", organizationID)
		}
		slogx.FromContext(ctx).Error("override membership lookup failed",
			slog.String("user_id", id.UserID),
			slog.String("org_id", organizationID),
			slog.Any("error", err),
		)
		return authsdk.Identity{}, fmt.Errorf("%w: membership lookup: %w", authsdk.ErrForbiddenOrganization, err)
	}

	id.OrganizationID = m.OrganizationID
	id.Role = m.Role
	return id, nil
}

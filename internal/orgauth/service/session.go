package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store"
	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
	"github.com/aussiebroadwan/orgauth/pkg/jwtx"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
	"github.com/aussiebroadwan/orgauth/pkg/slogx"
)

// SessionResolver turns a session token into the identity of the request.
// It keeps no state between requests apart from the flag that limits the
// auto-promotion log line to once per process.
type SessionResolver struct {
	Store    store.Store
	Verifier jwtx.Verifier

	// AutoPromoteEnabled and AutoPromoteEmail configure auto-promotion.
	// Both must be set for it to run.
	AutoPromoteEnabled bool
	AutoPromoteEmail   string

	LookupTimeout time.Duration
	Metrics       Recorder

	promotionLogged atomic.Bool
}

// Resolve verifies token and resolves the caller's user, membership and
// role. Errors are *authsdk.AuthError categories, possibly wrapping the
// underlying cause.
func (r *SessionResolver) Resolve(ctx context.Context, token string) (authsdk.Identity, error) {
	id, err := r.resolve(ctx, token)
	recorderOrNop(r.Metrics).SessionResolved(outcome(err))
	return id, err
}

func (r *SessionResolver) resolve(ctx context.Context, token string) (authsdk.Identity, error) {
	l := slogx.FromContext(ctx)

	claims, err := r.Verifier.VerifySession(token)
	if err != nil {
		l.Debug("session token rejected", slog.Any("error", err))
		return authsdk.Identity{}, fmt.Errorf("%w: %w", authsdk.ErrInvalidOrExpiredToken, err)
	}

	user, err := withTimeout(ctx, r.LookupTimeout, func(ctx context.Context) (domain.User, error) {
		return r.Store.Users().GetUserByID(ctx, claims.Subject)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return authsdk.Identity{}, authsdk.ErrUserNotFound
		}
		l.Error("user lookup failed", slog.String("user_id", claims.Subject), slog.Any("error", err))
		return authsdk.Identity{}, fmt.Errorf("%w: user lookup: %w", authsdk.ErrUserNotFound, err)
	}

	membership, err := r.membership(ctx, user.ID, claims.OrganizationID)
	if err != nil {
		return authsdk.Identity{}, err
	}

	promoted := false
	if r.shouldPromote(user.Email, membership.Role) {
		if r.promote(ctx, user.ID) {
			promoted = true
			membership, err = r.membership(ctx, user.ID, claims.OrganizationID)
			if err != nil {
				return authsdk.Identity{}, err
			}
		}
	}

	// A promotion in this request legitimately changes the role under a
	// token minted before it.
	if !promoted && string(membership.Role) != claims.Role {
		l.Info("membership role changed since token was issued",
			slog.String("user_id", user.ID),
			slog.String("org_id", membership.OrganizationID),
			slog.String("token_role", claims.Role),
			slog.String("membership_role", string(membership.Role)),
		)
		return authsdk.Identity{}, authsdk.ErrRoleMismatch
	}

	return authsdk.Identity{
		UserID:         user.ID,
		Email:          user.Email,
		OrganizationID: membership.OrganizationID,
		Role:           membership.Role,
	}, nil
}

func (r *SessionResolver) membership(ctx context.Context, userID, orgID string) (domain.Membership, error) {
	m, err := withTimeout(ctx, r.LookupTimeout, func(ctx context.Context) (domain.Membership, error) {
		return r.Store.Memberships().GetMembership(ctx, userID, orgID)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Membership{}, authsdk.ErrNotAMember
		}
		slogx.FromContext(ctx).Error("membership lookup failed",
			slog.String("user_id", userID),
			slog.String("org_id", orgID),
			slog.Any("error", err),
		)
		return domain.Membership{}, fmt.Errorf("%w: membership lookup: %w", authsdk.ErrNotAMember, err)
	}
	return m, nil
}

func (r *SessionResolver) shouldPromote(email string, role rbac.Role) bool {
	if !r.AutoPromoteEnabled {
		return false
	}
	target := strings.TrimSpace(r.AutoPromoteEmail)
	if target == "" || role == rbac.RoleOwner {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(email), target)
}

// promote raises every membership of the user to OWNER. Failures are logged
// and reported as false; the request carries on with the current role.
func (r *SessionResolver) promote(ctx context.Context, userID string) bool {
	l := slogx.FromContext(ctx)

	rows, err := withTimeout(ctx, r.LookupTimeout, func(ctx context.Context) (int64, error) {
		return r.Store.Memberships().PromoteAllToOwner(ctx, userID)
	})
	recorderOrNop(r.Metrics).AutoPromotion(rows, err)
	if err != nil {
		l.Error("auto-promotion failed", slog.String("user_id", userID), slog.Any("error", err))
		return false
	}

	if r.promotionLogged.CompareAndSwap(false, true) {
		l.Info("auto-promoted user to OWNER in all organizations",
			slog.String("user_id", userID),
			slog.Int64("memberships_updated", rows),
		)
	}
	return true
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store"
	"github.com/aussiebroadwan/orgauth/pkg/jwtx"
)

// ReplayGuard records selection token exchanges so each token is used once.
type ReplayGuard interface {
	// MarkUsed returns ErrTokenReplayed when jti was already marked.
	// expiresAt is the token's exp claim.
	MarkUsed(ctx context.Context, jti, userID string, expiresAt time.Time) error
}

// retainUntil is the last instant the verifier still accepts a token that
// expires at exp. A used jti must be remembered at least this long.
func retainUntil(exp time.Time) time.Time {
	return exp.Add(jwtx.DefaultLeeway)
}

// StoreReplayGuard keeps used jtis in the database. Rows carry the end of
// the verifier's leeway as their expiry, so housekeeping only removes them
// once the token could no longer verify anyway.
type StoreReplayGuard struct {
	Store store.Store
}

func (g *StoreReplayGuard) MarkUsed(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	err := g.Store.SelectionTokens().MarkUsed(ctx, domain.UsedSelectionToken{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: retainUntil(expiresAt),
		UsedAt:    time.Now().UTC(),
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return ErrTokenReplayed
	}
	return err
}

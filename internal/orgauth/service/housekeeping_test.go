package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@x.com")

	now := time.Now().UTC()
	require.NoError(t, f.store.SelectionTokens().MarkUsed(ctx, domain.UsedSelectionToken{JTI: "old", UserID: alice.ID, ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, f.store.SelectionTokens().MarkUsed(ctx, domain.UsedSelectionToken{JTI: "new", UserID: alice.ID, ExpiresAt: now.Add(time.Hour)}))

	hk := NewHousekeepingService(f.store, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.Equal(t, time.Hour, hk.Interval)

	require.EqualValues(t, 1, hk.Cleanup(ctx))
	require.EqualValues(t, 0, hk.Cleanup(ctx))

	hk.Start()
	hk.Stop()
}

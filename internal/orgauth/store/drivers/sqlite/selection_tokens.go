package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
)

type selectionTokensRepo struct {
	db dbtx
}

func (r *selectionTokensRepo) MarkUsed(ctx context.Context, t domain.UsedSelectionToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO used_selection_tokens (jti, user_id, expires_at, used_at)
		VALUES (?, ?, ?, ?)`,
		t.JTI, t.UserID, t.ExpiresAt.UTC(), orNow(t.UsedAt),
	)
	return mapConstraint(err)
}

func (r *selectionTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM used_selection_tokens WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

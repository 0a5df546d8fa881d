package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
)

type settingsRepo struct {
	db dbtx
}

func (r *settingsRepo) GetSettings(ctx context.Context, organizationID string) (domain.OrganizationSettings, error) {
	s := domain.OrganizationSettings{OrganizationID: organizationID}
	err := r.db.QueryRowContext(ctx, `
		SELECT seller_can_edit_leads, seller_can_edit_sales, updated_at
		FROM organization_settings
		WHERE organization_id = ?`,
		organizationID,
	).Scan(&s.SellerCanEditLeads, &s.SellerCanEditSales, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return domain.OrganizationSettings{}, err
	}
	return s, nil
}

func (r *settingsRepo) UpsertSettings(ctx context.Context, s domain.OrganizationSettings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organization_settings (organization_id, seller_can_edit_leads, seller_can_edit_sales, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (organization_id) DO UPDATE SET
			seller_can_edit_leads = excluded.seller_can_edit_leads,
			seller_can_edit_sales = excluded.seller_can_edit_sales,
			updated_at = excluded.updated_at`,
		s.OrganizationID, s.SellerCanEditLeads, s.SellerCanEditSales, orNow(s.UpdatedAt),
	)
	return err
}

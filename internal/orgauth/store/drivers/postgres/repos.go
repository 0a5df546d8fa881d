package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
)

type usersRepo struct{ db dbtx }

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE id = $1`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email))))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, strings.ToLower(strings.TrimSpace(u.Email)), u.Name, u.PasswordHash,
		orNow(u.CreatedAt), orNow(u.UpdatedAt),
	)
	return mapConstraint(err)
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

type organizationsRepo struct{ db dbtx }

func (r *organizationsRepo) GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error) {
	return scanOrganization(r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM organizations WHERE id = $1`, id))
}

func (r *organizationsRepo) GetOrganizationBySlug(ctx context.Context, slug string) (domain.Organization, error) {
	return scanOrganization(r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM organizations WHERE slug = $1`, slug))
}

func (r *organizationsRepo) CreateOrganization(ctx context.Context, o domain.Organization) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, slug, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.Name, o.Slug, orNow(o.CreatedAt), orNow(o.UpdatedAt),
	)
	return mapConstraint(err)
}

func scanOrganization(row *sql.Row) (domain.Organization, error) {
	var o domain.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return domain.Organization{}, mapNotFound(err)
	}
	return o, nil
}

type membershipsRepo struct{ db dbtx }

func (r *membershipsRepo) GetMembership(ctx context.Context, userID, organizationID string) (domain.Membership, error) {
	var m domain.Membership
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, organization_id, role, created_at, updated_at
		 FROM memberships WHERE user_id = $1 AND organization_id = $2`,
		userID, organizationID,
	).Scan(&m.ID, &m.UserID, &m.OrganizationID, &role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return domain.Membership{}, mapNotFound(err)
	}
	m.Role = rbac.Role(role)
	return m, nil
}

func (r *membershipsRepo) ListUserMemberships(ctx context.Context, userID string) ([]domain.OrganizationMembership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.user_id, m.organization_id, m.role, m.created_at, m.updated_at,
		        o.id, o.name, o.slug, o.created_at, o.updated_at
		 FROM memberships m
		 JOIN organizations o ON o.id = m.organization_id
		 WHERE m.user_id = $1
		 ORDER BY o.name, o.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OrganizationMembership
	for rows.Next() {
		var om domain.OrganizationMembership
		var role string
		if err := rows.Scan(
			&om.ID, &om.UserID, &om.OrganizationID, &role, &om.CreatedAt, &om.UpdatedAt,
			&om.Organization.ID, &om.Organization.Name, &om.Organization.Slug,
			&om.Organization.CreatedAt, &om.Organization.UpdatedAt,
		); err != nil {
			return nil, err
		}
		om.Role = rbac.Role(role)
		out = append(out, om)
	}
	return out, rows.Err()
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.Membership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO memberships (id, user_id, organization_id, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.UserID, m.OrganizationID, string(m.Role), orNow(m.CreatedAt), orNow(m.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *membershipsRepo) UpdateMembershipRole(ctx context.Context, userID, organizationID string, role rbac.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE memberships SET role = $1, updated_at = now()
		 WHERE user_id = $2 AND organization_id = $3`,
		string(role), userID, organizationID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *membershipsRepo) PromoteAllToOwner(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE memberships SET role = 'OWNER', updated_at = now()
		 WHERE user_id = $1 AND role <> 'OWNER'`,
		userID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type settingsRepo struct{ db dbtx }

func (r *settingsRepo) GetSettings(ctx context.Context, organizationID string) (domain.OrganizationSettings, error) {
	s := domain.OrganizationSettings{OrganizationID: organizationID}
	err := r.db.QueryRowContext(ctx,
		`SELECT seller_can_edit_leads, seller_can_edit_sales, updated_at
		 FROM organization_settings WHERE organization_id = $1`,
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
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organization_settings (organization_id, seller_can_edit_leads, seller_can_edit_sales, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (organization_id) DO UPDATE SET
		   seller_can_edit_leads = EXCLUDED.seller_can_edit_leads,
		   seller_can_edit_sales = EXCLUDED.seller_can_edit_sales,
		   updated_at = EXCLUDED.updated_at`,
		s.OrganizationID, s.SellerCanEditLeads, s.SellerCanEditSales, orNow(s.UpdatedAt),
	)
	return err
}

type selectionTokensRepo struct{ db dbtx }

func (r *selectionTokensRepo) MarkUsed(ctx context.Context, t domain.UsedSelectionToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO used_selection_tokens (jti, user_id, expires_at, used_at) VALUES ($1, $2, $3, $4)`,
		t.JTI, t.UserID, t.ExpiresAt.UTC(), orNow(t.UsedAt),
	)
	return mapConstraint(err)
}

func (r *selectionTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM used_selection_tokens WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

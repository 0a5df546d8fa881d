package sqlite

import (
	"context"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
)

type membershipsRepo struct {
	db dbtx
}

func (r *membershipsRepo) GetMembership(ctx context.Context, userID, organizationID string) (domain.Membership, error) {
	var m domain.Membership
	var role string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, organization_id, role, created_at, updated_at
		FROM memberships
		WHERE user_id = ? AND organization_id = ?`,
		userID, organizationID,
	).Scan(&m.ID, &m.UserID, &m.OrganizationID, &role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return domain.Membership{}, mapNotFound(err)
	}
	m.Role = rbac.Role(role)
	return m, nil
}

func (r *membershipsRepo) ListUserMemberships(ctx context.Context, userID string) ([]domain.OrganizationMembership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.user_id, m.organization_id, m.role, m.created_at, m.updated_at,
		       o.id, o.name, o.slug, o.created_at, o.updated_at
		FROM memberships m
		JOIN organizations o ON o.id = m.organization_id
		WHERE m.user_id = ?
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
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memberships (id, user_id, organization_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.OrganizationID, string(m.Role), orNow(m.CreatedAt), orNow(m.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *membershipsRepo) UpdateMembershipRole(ctx context.Context, userID, organizationID string, role rbac.Role) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE memberships SET role = ?, updated_at = ?
		WHERE user_id = ? AND organization_id = ?`,
		string(role), now(), userID, organizationID,
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
	res, err := r.db.ExecContext(ctx, `
		UPDATE memberships SET role = ?, updated_at = ?
		WHERE user_id = ? AND role <> ?`,
		string(rbac.RoleOwner), now(), userID, string(rbac.RoleOwner),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

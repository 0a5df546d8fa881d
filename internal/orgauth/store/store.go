package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. Sub-repositories are reached through methods so
// a Tx can hand out the same repos bound to the transaction.
type Store interface {
	Users() Users
	Organizations() Organizations
	Memberships() Memberships
	Settings() Settings
	SelectionTokens() SelectionTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches on the lower-cased email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error
}

type Organizations interface {
	GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (domain.Organization, error)

	// CreateOrganization returns ErrAlreadyExists when the slug is taken.
	CreateOrganization(ctx context.Context, o domain.Organization) error
}

type Memberships interface {
	// GetMembership returns ErrNotFound when the user does not belong to
	// the organization.
	GetMembership(ctx context.Context, userID, organizationID string) (domain.Membership, error)

	// ListUserMemberships returns every membership of the user with its
	// organization, ordered by organization name.
	ListUserMemberships(ctx context.Context, userID string) ([]domain.OrganizationMembership, error)

	// CreateMembership returns ErrAlreadyExists for a duplicate
	// (user, organization) pair.
	CreateMembership(ctx context.Context, m domain.Membership) error

	// UpdateMembershipRole sets the role of one membership.
	UpdateMembershipRole(ctx context.Context, userID, organizationID string, role rbac.Role) error

	// PromoteAllToOwner sets role OWNER on every membership of the user that
	// is not already OWNER, in one conditional statement, and returns how
	// many rows changed. Running it again is a no-op.
	PromoteAllToOwner(ctx context.Context, userID string) (int64, error)
}

type Settings interface {
	// GetSettings returns the zero settings for the organization when no
	// row exists.
	GetSettings(ctx context.Context, organizationID string) (domain.OrganizationSettings, error)

	UpsertSettings(ctx context.Context, s domain.OrganizationSettings) error
}

type SelectionTokens interface {
	// MarkUsed records the exchange of a selection token. It returns
	// ErrAlreadyExists when the jti was already exchanged.
	MarkUsed(ctx context.Context, t domain.UsedSelectionToken) error

	// DeleteExpired removes records whose token expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

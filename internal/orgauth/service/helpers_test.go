package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store/drivers/sqlite"
	"github.com/aussiebroadwan/orgauth/pkg/cryptox"
	"github.com/aussiebroadwan/orgauth/pkg/idx"
	"github.com/aussiebroadwan/orgauth/pkg/jwtx"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
	"github.com/stretchr/testify/require"
)

const testIssuer = "orgauth-test"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fixture struct {
	store *sqlite.Store
	hs    *jwtx.HS256
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureDSN(t, ":memory:")
}

// newFileFixture opens a WAL database on disk so concurrent requests get
// their own connections.
func newFileFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureDSN(t, fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", filepath.Join(t.TempDir(), "orgauth.db")))
}

func newFixtureDSN(t *testing.T, dsn string) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	hs, err := jwtx.NewHS256(testSecret, testIssuer)
	require.NoError(t, err)

	return &fixture{store: st, hs: hs}
}

func (f *fixture) user(t *testing.T, email string) domain.User {
	t.Helper()
	u := domain.User{ID: idx.New().String(), Email: email, Name: "Test", PasswordHash: "unused"}
	require.NoError(t, f.store.Users().CreateUser(context.Background(), u))
	return u
}

func (f *fixture) userWithPassword(t *testing.T, hasher *cryptox.PasswordHasher, email, password string) domain.User {
	t.Helper()
	hash, err := hasher.Hash(password)
	require.NoError(t, err)
	u := domain.User{ID: idx.New().String(), Email: email, Name: "Test", PasswordHash: hash}
	require.NoError(t, f.store.Users().CreateUser(context.Background(), u))
	return u
}

func (f *fixture) org(t *testing.T, name string) domain.Organization {
	t.Helper()
	o := domain.Organization{ID: idx.New().String(), Name: name, Slug: Slugify(name)}
	require.NoError(t, f.store.Organizations().CreateOrganization(context.Background(), o))
	return o
}

func (f *fixture) member(t *testing.T, userID, orgID string, role rbac.Role) {
	t.Helper()
	m := domain.Membership{ID: idx.New().String(), UserID: userID, OrganizationID: orgID, Role: role}
	require.NoError(t, f.store.Memberships().CreateMembership(context.Background(), m))
}

func (f *fixture) setRole(t *testing.T, userID, orgID string, role rbac.Role) {
	t.Helper()
	require.NoError(t, f.store.Memberships().UpdateMembershipRole(context.Background(), userID, orgID, role))
}

func (f *fixture) role(t *testing.T, userID, orgID string) rbac.Role {
	t.Helper()
	m, err := f.store.Memberships().GetMembership(context.Background(), userID, orgID)
	require.NoError(t, err)
	return m.Role
}

func (f *fixture) sessionToken(t *testing.T, u domain.User, orgID string, role rbac.Role) string {
	t.Helper()
	tok, err := f.hs.Sign(jwtx.NewSessionClaims(u.ID, u.Email, orgID, string(role), time.Minute, testIssuer, time.Now()))
	require.NoError(t, err)
	return tok
}

// failingPromotion wraps a store so bulk promotion always fails.
type failingPromotion struct{ store.Store }

func (f failingPromotion) Memberships() store.Memberships {
	return failingMemberships{f.Store.Memberships()}
}

type failingMemberships struct{ store.Memberships }

func (failingMemberships) PromoteAllToOwner(context.Context, string) (int64, error) {
	return 0, errors.New("disk I/O error")
}

// slowUsers wraps a store so user lookups block until the context ends.
type slowUsers struct{ store.Store }

func (s slowUsers) Users() store.Users { return blockingUsers{s.Store.Users()} }

type blockingUsers struct{ store.Users }

func (blockingUsers) GetUserByID(ctx context.Context, _ string) (domain.User, error) {
	<-ctx.Done()
	return domain.User{}, ctx.Err()
}

// recorder counts the outcomes it receives.
type recorder struct {
	nopRecorder
	resolved  map[string]int
	promoted  int64
	overrides map[string]int
}

func newRecorder() *recorder {
	return &recorder{resolved: map[string]int{}, overrides: map[string]int{}}
}

func (r *recorder) SessionResolved(o string)      { r.resolved[o]++ }
func (r *recorder) OrganizationOverride(o string) { r.overrides[o]++ }
func (r *recorder) AutoPromotion(rows int64, err error) {
	if err == nil {
		r.promoted += rows
	}
}

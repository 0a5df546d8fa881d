package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
	orgauthhttp "github.com/aussiebroadwan/orgauth/internal/orgauth/http"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/observability"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/service"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/store/drivers/sqlite"
	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
	"github.com/aussiebroadwan/orgauth/pkg/cryptox"
	"github.com/aussiebroadwan/orgauth/pkg/httpx"
	"github.com/aussiebroadwan/orgauth/pkg/idx"
	"github.com/aussiebroadwan/orgauth/pkg/jwtx"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
)

const password = "correct-horse-battery"

func TestMain(m *testing.M) {
	relaxed := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	httpx.StrictLimit = relaxed
	httpx.ModerateLimit = relaxed
	httpx.LenientLimit = relaxed
	os.Exit(m.Run())
}

type testServer struct {
	srv    *httptest.Server
	store  *sqlite.Store
	client *authsdk.SDKClient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	hs, err := jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef"), "orgauth-test")
	require.NoError(t, err)

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	router := orgauthhttp.NewRouter(hs, "test", st, orgauthhttp.CookieConfig{}, logger)
	router.Resolver = &service.SessionResolver{Store: st, Verifier: hs, Metrics: metrics}
	router.Override = &service.OrgOverride{Store: st, Metrics: metrics}
	router.TokenService = &service.TokenService{
		Store:    st,
		Signer:   hs,
		Verifier: hs,
		Hasher:   cryptox.NewPasswordHasher("pepper"),
		Replay:   &service.StoreReplayGuard{Store: st},
		Issuer:   "orgauth-test",
		Metrics:  metrics,
	}
	router.OrganizationService = &service.OrganizationService{Store: st}
	router.Metrics = metrics.Handler()
	router.Instrument = metrics.HTTPMiddleware
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, store: st, client: authsdk.NewSDKClient(srv.URL)}
}

func (ts *testServer) register(t *testing.T, email, org string) *authsdk.Session {
	t.Helper()
	s, err := ts.client.Register(context.Background(), authsdk.RegisterRequest{
		Email:            email,
		Password:         password,
		Name:             "Test",
		OrganizationName: org,
	})
	require.NoError(t, err)
	return s
}

func (ts *testServer) addMember(t *testing.T, userID, orgID string, role rbac.Role) {
	t.Helper()
	require.NoError(t, ts.store.Memberships().CreateMembership(context.Background(), domain.Membership{
		ID: idx.New().String(), UserID: userID, OrganizationID: orgID, Role: role,
	}))
}

func userID(t *testing.T, s *authsdk.Session) string {
	t.Helper()
	me, err := s.Me(context.Background())
	require.NoError(t, err)
	return me.UserID
}

func TestRegisterAndMe(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	owner := ts.register(t, "Owner@Acme.test", "Acme Motors")
	require.Equal(t, string(rbac.RoleOwner), owner.Role())

	me, err := owner.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "owner@acme.test", me.Email)
	require.Equal(t, owner.OrganizationID(), me.OrganizationID)
	require.Contains(t, me.Permissions, rbac.PermManageMembers)

	orgs, err := owner.ListOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	require.Equal(t, "acme-motors", orgs[0].Slug)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := ts.client.Register(ctx, authsdk.RegisterRequest{
			Email: "owner@acme.test", Password: password, OrganizationName: "Other",
		})
		require.ErrorIs(t, err, authsdk.ErrConflict)
	})

	t.Run("short password", func(t *testing.T) {
		_, err := ts.client.Register(ctx, authsdk.RegisterRequest{
			Email: "new@acme.test", Password: "short", OrganizationName: "Other",
		})
		require.ErrorIs(t, err, authsdk.ErrInvalidRequest)
	})
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	owner := ts.register(t, "owner@acme.test", "Acme")
	seller := ts.register(t, "seller@globex.test", "Globex")
	ts.addMember(t, userID(t, seller), owner.OrganizationID(), rbac.RoleSeller)

	t.Run("wrong password", func(t *testing.T) {
		_, err := ts.client.Login(ctx, "owner@acme.test", "wrong-password")
		require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := ts.client.Login(ctx, "nobody@acme.test", password)
		require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)
	})

	t.Run("single membership gets a session", func(t *testing.T) {
		resp, err := ts.client.Login(ctx, "owner@acme.test", password)
		require.NoError(t, err)
		require.False(t, resp.RequiresOrganizationSelection)
		require.NotEmpty(t, resp.AccessToken)
		require.Equal(t, "Bearer", resp.TokenType)
		require.Positive(t, resp.ExpiresIn)
	})

	t.Run("several memberships require selection", func(t *testing.T) {
		resp, err := ts.client.Login(ctx, "seller@globex.test", password)
		require.NoError(t, err)
		require.True(t, resp.RequiresOrganizationSelection)
		require.Nil(t, resp.TokenResponse)
		require.Len(t, resp.Organizations, 2)
		// Ordered by organization name.
		require.Equal(t, "Acme", resp.Organizations[0].Name)
		require.Equal(t, rbac.RoleSeller, resp.Organizations[0].Role)

		s, err := ts.client.SelectOrganization(ctx, resp.SelectionToken, owner.OrganizationID())
		require.NoError(t, err)
		require.Equal(t, owner.OrganizationID(), s.OrganizationID())
		require.Equal(t, string(rbac.RoleSeller), s.Role())

		_, err = ts.client.SelectOrganization(ctx, resp.SelectionToken, owner.OrganizationID())
		require.ErrorIs(t, err, authsdk.ErrInvalidOrExpiredToken)
	})

	t.Run("session token is not a selection token", func(t *testing.T) {
		_, err := ts.client.SelectOrganization(ctx, owner.AccessToken(), owner.OrganizationID())
		require.ErrorIs(t, err, authsdk.ErrInvalidTempTokenPayload)
	})
}

func TestOrganizationOverride(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := ts.register(t, "alice@acme.test", "Acme")
	bob := ts.register(t, "bob@globex.test", "Globex")
	ts.addMember(t, userID(t, alice), bob.OrganizationID(), rbac.RoleManager)

	me, err := alice.WithOrganization(bob.OrganizationID()).Me(ctx)
	require.NoError(t, err)
	require.Equal(t, bob.OrganizationID(), me.OrganizationID)
	require.Equal(t, rbac.RoleManager, me.Role)
	require.NotContains(t, me.Permissions, rbac.PermManageMembers)

	_, err = alice.WithOrganization("org-999").Me(ctx)
	require.ErrorIs(t, err, authsdk.ErrForbiddenOrganization)

	// The token itself is unchanged.
	me, err = alice.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, alice.OrganizationID(), me.OrganizationID)

	require.NoError(t, alice.SwitchOrganization(ctx, bob.OrganizationID()))
	require.Equal(t, bob.OrganizationID(), alice.OrganizationID())
	require.Equal(t, string(rbac.RoleManager), alice.Role())

	require.ErrorIs(t, bob.SwitchOrganization(ctx, "org-999"), authsdk.ErrForbiddenOrganization)
}

func TestStaleRoleIsRejected(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	owner := ts.register(t, "owner@acme.test", "Acme")
	seller := ts.register(t, "seller@globex.test", "Globex")
	sellerID := userID(t, seller)
	ts.addMember(t, sellerID, owner.OrganizationID(), rbac.RoleSeller)

	s, err := ts.client.AuthenticateWithPassword(ctx, "seller@globex.test", password, owner.OrganizationID())
	require.NoError(t, err)

	_, err = owner.ChangeMemberRole(ctx, sellerID, authsdk.ChangeRoleRequest{Role: rbac.RoleManager})
	require.NoError(t, err)

	_, err = s.Me(ctx)
	require.ErrorIs(t, err, authsdk.ErrRoleMismatch)
}

func TestSettingsAndRoles(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	owner := ts.register(t, "owner@acme.test", "Acme")
	other := ts.register(t, "seller@globex.test", "Globex")
	sellerID := userID(t, other)
	ts.addMember(t, sellerID, owner.OrganizationID(), rbac.RoleSeller)

	seller, err := ts.client.AuthenticateWithPassword(ctx, "seller@globex.test", password, owner.OrganizationID())
	require.NoError(t, err)

	settings, err := seller.GetSettings(ctx)
	require.NoError(t, err)
	require.False(t, settings.SellerCanEditLeads)

	me, err := seller.Me(ctx)
	require.NoError(t, err)
	require.NotContains(t, me.Permissions, rbac.PermEditLeads)

	_, err = seller.UpdateSettings(ctx, authsdk.UpdateSettingsRequest{SellerCanEditLeads: true})
	require.ErrorIs(t, err, authsdk.ErrInsufficientPermission)

	settings, err = owner.UpdateSettings(ctx, authsdk.UpdateSettingsRequest{SellerCanEditLeads: true})
	require.NoError(t, err)
	require.True(t, settings.SellerCanEditLeads)
	require.False(t, settings.SellerCanEditSales)

	me, err = seller.Me(ctx)
	require.NoError(t, err)
	require.Contains(t, me.Permissions, rbac.PermEditLeads)
	require.NotContains(t, me.Permissions, rbac.PermEditSales)

	t.Run("seller cannot change roles", func(t *testing.T) {
		_, err := seller.ChangeMemberRole(ctx, sellerID, authsdk.ChangeRoleRequest{Role: rbac.RoleOwner})
		require.ErrorIs(t, err, authsdk.ErrInsufficientPermission)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := owner.ChangeMemberRole(ctx, sellerID, authsdk.ChangeRoleRequest{Role: "GUEST"})
		require.ErrorIs(t, err, authsdk.ErrInvalidRequest)
	})

	t.Run("missing member", func(t *testing.T) {
		_, err := owner.ChangeMemberRole(ctx, "nobody", authsdk.ChangeRoleRequest{Role: rbac.RoleAdmin})
		require.ErrorIs(t, err, authsdk.ErrNotFound)
	})

	t.Run("owner promotes seller", func(t *testing.T) {
		m, err := owner.ChangeMemberRole(ctx, sellerID, authsdk.ChangeRoleRequest{Role: rbac.RoleAdmin})
		require.NoError(t, err)
		require.Equal(t, rbac.RoleAdmin, m.Role)
		require.Equal(t, owner.OrganizationID(), m.OrganizationID)
	})
}

func TestCookieSession(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "owner@acme.test", "Acme")

	body := strings.NewReader(`{"email":"owner@acme.test","password":"` + password + `"}`)
	resp, err := http.Post(ts.srv.URL+"/v1/auth/login", "application/json", body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == httpx.DefaultCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/v1/auth/me", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.srv.URL+"/v1/auth/logout", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Len(t, resp.Cookies(), 1)
	require.Equal(t, -1, resp.Cookies()[0].MaxAge)
}

func TestUnauthenticated(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/v1/auth/me", "/v1/organizations", "/v1/organizations/current/settings"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(ts.srv.URL + path)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))

			var body authsdk.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			require.Equal(t, authsdk.ErrorCodeInvalidToken, body.Error)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	live, err := ts.client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := ts.client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)

	resp, err := http.Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), `orgauth_http_requests_total{method="GET",route="GET /livez",status="200"} 1`)
}

func TestReadyzDegraded(t *testing.T) {
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	rec := httptest.NewRecorder()
	orgauthhttp.ReadyzHandler(time.Now(), "test", st, nil).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body authsdk.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "degraded", body.Status)
	require.Contains(t, body.Checks.Database, "error")
	require.Contains(t, body.Checks.Signer, "error")
}

package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/orgauth/pkg/rbac"
	"github.com/stretchr/testify/require"
)

func TestAuthErrorIs(t *testing.T) {
	custom := ErrForbiddenOrganization.WithDescription("user is not a member of organization %s", "org-999")
	require.ErrorIs(t, custom, ErrForbiddenOrganization)
	require.NotErrorIs(t, custom, ErrNotAMember)
	require.Contains(t, custom.Error(), "org-999")

	wrapped := errors.Join(errors.New("context"), ErrRoleMismatch)
	require.ErrorIs(t, wrapped, ErrRoleMismatch)
}

func TestWriteError(t *testing.T) {
	t.Run("unauthorized carries a bearer challenge", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ErrRoleMismatch.WriteError(rec)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var body ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Equal(t, ErrorCodeRoleMismatch, body.Error)
	})

	t.Run("forbidden has no challenge", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ErrNotAMember.WriteError(rec)

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Empty(t, rec.Header().Get("WWW-Authenticate"))
	})
}

func TestLoginRequiringSelection(t *testing.T) {
	var selected SelectOrganizationRequest

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(LoginResponse{
			RequiresOrganizationSelection: true,
			SelectionToken:                "sel-token",
			Organizations: []OrganizationMembership{
				{OrganizationID: "org-a", Role: rbac.RoleSeller},
				{OrganizationID: "org-b", Role: rbac.RoleOwner},
			},
		})
	})
	mux.HandleFunc("POST /v1/auth/select-organization", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&selected))
		_ = json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:    "session-token",
			TokenType:      "Bearer",
			OrganizationID: selected.OrganizationID,
			Role:           rbac.RoleOwner,
		})
	})
	mux.HandleFunc("GET /v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		if r.Header.Get(HeaderOrganizationID) == "org-999" {
			ErrForbiddenOrganization.WriteError(w)
			return
		}
		_ = json.NewEncoder(w).Encode(MeResponse{Identity: Identity{UserID: "u1", OrganizationID: "org-b", Role: rbac.RoleOwner}})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	client := NewSDKClient(srv.URL + "/")

	session, err := client.AuthenticateWithPassword(ctx, "alice@x.com", "pw", "org-b")
	require.NoError(t, err)
	require.Equal(t, "sel-token", selected.SelectionToken)
	require.Equal(t, "org-b", session.OrganizationID())
	require.Equal(t, "OWNER", session.Role())

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "org-b", me.OrganizationID)

	_, err = session.WithOrganization("org-999").Me(ctx)
	require.ErrorIs(t, err, ErrForbiddenOrganization)
}

func TestParseErrorResponseFallback(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusBadGateway}
	err := parseErrorResponse(resp, []byte("<html>"))

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusBadGateway, authErr.StatusCode)
	require.Equal(t, ErrorCodeServerError, authErr.Code)
}

func TestGetReadiness(t *testing.T) {
	ready := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/readyz", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if ready {
			_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok", Checks: &HealthChecks{Database: "ok", Signer: "ok"}})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "degraded",
			Checks: &HealthChecks{Database: "error: database is closed", Signer: "ok"},
		})
	}))
	defer srv.Close()

	client := NewSDKClient(srv.URL)

	health, err := client.GetReadiness(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)

	ready = false
	health, err = client.GetReadiness(context.Background())
	require.ErrorIs(t, err, ErrNotReady)
	require.Contains(t, err.Error(), "database is closed")
	require.Equal(t, "degraded", health.Status)
	require.Equal(t, "ok", health.Checks.Signer)
}

package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"sync"
)

// Session is an authenticated session bound to one organization. Session
// tokens are short lived and there is no refresh: when a call fails with
// ErrRoleMismatch or ErrInvalidOrExpiredToken the caller logs in again.
type Session struct {
	client *SDKClient

	mu          sync.RWMutex
	accessToken string
	org         string
	role        string

	// organizationID is sent as X-Organization-Id when non-empty.
	organizationID string
}

func newSession(client *SDKClient, tok *TokenResponse) *Session {
	return &Session{
		client:      client,
		accessToken: tok.AccessToken,
		org:         tok.OrganizationID,
		role:        string(tok.Role),
	}
}

// AccessToken returns the current session token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// OrganizationID returns the organization the token is bound to.
func (s *Session) OrganizationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.org
}

// Role returns the role embedded in the token when it was minted.
func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// WithOrganization returns a session sharing this token that acts against
// organizationID through the X-Organization-Id header. The server checks
// membership on every request.
func (s *Session) WithOrganization(organizationID string) *Session {
	return &Session{
		client:         s.client,
		accessToken:    s.AccessToken(),
		org:            s.OrganizationID(),
		role:           s.Role(),
		organizationID: organizationID,
	}
}

// Me returns the caller's effective identity and permissions.
func (s *Session) Me(ctx context.Context) (*MeResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/auth/me", nil)
	if err != nil {
		return nil, err
	}
	var out MeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrganizations lists every organization the caller belongs to.
func (s *Session) ListOrganizations(ctx context.Context) ([]OrganizationMembership, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/organizations", nil)
	if err != nil {
		return nil, err
	}
	var out ListOrganizationsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Organizations, nil
}

// SwitchOrganization replaces the session token with one bound to
// organizationID.
func (s *Session) SwitchOrganization(ctx context.Context, organizationID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/switch-organization",
		SwitchOrganizationRequest{OrganizationID: organizationID})
	if err != nil {
		return err
	}
	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = tok.AccessToken
	s.org = tok.OrganizationID
	s.role = string(tok.Role)
	s.mu.Unlock()
	return nil
}

// GetSettings returns the current organization's settings.
func (s *Session) GetSettings(ctx context.Context) (*OrganizationSettings, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/organizations/current/settings", nil)
	if err != nil {
		return nil, err
	}
	var out OrganizationSettings
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSettings replaces the current organization's settings. Requires
// members:manage.
func (s *Session) UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (*OrganizationSettings, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/organizations/current/settings", req)
	if err != nil {
		return nil, err
	}
	var out OrganizationSettings
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangeMemberRole sets the role of userID in the current organization.
// Requires members:manage.
func (s *Session) ChangeMemberRole(ctx context.Context, userID string, req ChangeRoleRequest) (*MemberResponse, error) {
	path := "/v1/organizations/current/members/" + url.PathEscape(userID) + "/role"
	resp, err := s.doAuthRequest(ctx, http.MethodPut, path, req)
	if err != nil {
		return nil, err
	}
	var out MemberResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout clears the session cookie server side. The bearer token itself
// stays valid until it expires.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

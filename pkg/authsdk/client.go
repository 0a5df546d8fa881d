package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the orgauth service. It provides access to
// unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates a user and their first organization and returns a
// session bound to it.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	var tok TokenResponse
	if err := c.postJSON(ctx, "/v1/auth/register", req, &tok, http.StatusCreated); err != nil {
		return nil, err
	}
	return newSession(c, &tok), nil
}

// Login authenticates with email and password. The response either carries
// a session token or asks for an organization to be selected.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	req := LoginRequest{Email: email, Password: password}
	if err := c.postJSON(ctx, "/v1/auth/login", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthenticateWithPassword logs in and returns a Session. Users with several
// organizations are bound to organizationID, which must be one of theirs;
// it is ignored when the user has exactly one.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, email, password, organizationID string) (*Session, error) {
	resp, err := c.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !resp.RequiresOrganizationSelection {
		if resp.TokenResponse == nil || resp.AccessToken == "" {
			return nil, ErrServerError.WithDescription("login response carried no token")
		}
		return newSession(c, resp.TokenResponse), nil
	}
	return c.SelectOrganization(ctx, resp.SelectionToken, organizationID)
}

// SelectOrganization exchanges a selection token for a session. A selection
// token can only be exchanged once.
func (c *SDKClient) SelectOrganization(ctx context.Context, selectionToken, organizationID string) (*Session, error) {
	var tok TokenResponse
	req := SelectOrganizationRequest{SelectionToken: selectionToken, OrganizationID: organizationID}
	if err := c.postJSON(ctx, "/v1/auth/select-organization", req, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &tok), nil
}

// NewSessionFromToken wraps an existing session token.
func (c *SDKClient) NewSessionFromToken(accessToken string) *Session {
	return &Session{client: c, accessToken: accessToken}
}

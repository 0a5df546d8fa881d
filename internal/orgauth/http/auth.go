package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/service"
	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
	"github.com/aussiebroadwan/orgauth/pkg/httpx"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
	"github.com/aussiebroadwan/orgauth/pkg/slogx"
)

// AuthHandler serves registration, login and organization selection.
type AuthHandler struct {
	TokenService        *service.TokenService
	OrganizationService *service.OrganizationService
	Cookie              CookieConfig
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Creates a user together with their first organization, in which they are OWNER.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"New user and organization"
//	@Success		201		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		409		{object}	authsdk.ErrorResponse	"email or slug taken"
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/register [post]
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	tok, err := h.TokenService.Register(r.Context(), service.RegisterInput{
		Email:            req.Email,
		Password:         req.Password,
		Name:             req.Name,
		OrganizationName: req.OrganizationName,
		OrganizationSlug: req.OrganizationSlug,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("user registered", "org_id", tok.OrganizationID)
	h.Cookie.set(w, tok.AccessToken, tok.ExpiresAt)
	httpx.WriteJSON(w, http.StatusCreated, tokenResponse(tok))
}

// HandleLogin godoc
//
//	@Summary		Password login
//	@Description	Users with one organization receive a session token. Users with several receive a short-lived selection token and the list of their organizations.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid credentials"
//	@Failure		403		{object}	authsdk.ErrorResponse	"no memberships"
//	@Failure		429		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/login [post]
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	res, err := h.TokenService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if res.Token != nil {
		h.Cookie.set(w, res.Token.AccessToken, res.Token.ExpiresAt)
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{TokenResponse: tokenResponse(res.Token)})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		RequiresOrganizationSelection: true,
		SelectionToken:                res.SelectionToken,
		Organizations:                 membershipsResponse(res.Memberships),
	})
}

// HandleSelectOrganization godoc
//
//	@Summary		Select organization
//	@Description	Exchanges a selection token for a session token bound to one of the user's organizations. Each selection token is accepted once.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SelectOrganizationRequest	true	"Selection token and organization"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid, expired or reused selection token"
//	@Failure		403		{object}	authsdk.ErrorResponse	"not a member"
//	@Router			/v1/auth/select-organization [post]
func (h *AuthHandler) HandleSelectOrganization(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SelectOrganizationRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	tok, err := h.TokenService.SelectOrganization(r.Context(), req.SelectionToken, req.OrganizationID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	h.Cookie.set(w, tok.AccessToken, tok.ExpiresAt)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(tok))
}

// HandleSwitchOrganization godoc
//
//	@Summary		Switch organization
//	@Description	Mints a session token for another organization the caller belongs to.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.SwitchOrganizationRequest	true	"Target organization"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/switch-organization [post]
func (h *AuthHandler) HandleSwitchOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, authsdk.ErrInvalidOrExpiredToken)
		return
	}

	var req authsdk.SwitchOrganizationRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	tok, err := h.TokenService.SwitchOrganization(r.Context(), id, req.OrganizationID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	h.Cookie.set(w, tok.AccessToken, tok.ExpiresAt)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(tok))
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Clears the session cookie. Bearer tokens stay valid until they expire.
//	@Tags			Auth
//	@Success		204
//	@Router			/v1/auth/logout [post]
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Cookie.clear(w)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe godoc
//
//	@Summary		Current identity
//	@Description	Returns the effective identity for this request and the permissions its role grants in the active organization.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Param			X-Organization-Id	header		string	false	"Act in another organization for this request"
//	@Success		200					{object}	authsdk.MeResponse
//	@Failure		401					{object}	authsdk.ErrorResponse
//	@Failure		403					{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/me [get]
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := httpx.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(w, r, authsdk.ErrInvalidOrExpiredToken)
		return
	}

	var settings rbac.OrgSettings
	if h.OrganizationService != nil {
		s, err := h.OrganizationService.PermissionSettings(ctx, id.OrganizationID)
		if err != nil {
			slogx.FromContext(ctx).Warn("organization settings unavailable, using defaults", "err", err)
		} else {
			settings = s
		}
	}

	perms := rbac.Permissions(id.Role, settings)
	if perms == nil {
		perms = []rbac.Permission{}
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{Identity: id, Permissions: perms})
}

func tokenResponse(tok *domain.SessionToken) *authsdk.TokenResponse {
	expiresIn := int(time.Until(tok.ExpiresAt).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return &authsdk.TokenResponse{
		AccessToken:    tok.AccessToken,
		TokenType:      "Bearer",
		ExpiresIn:      expiresIn,
		OrganizationID: tok.OrganizationID,
		Role:           tok.Role,
	}
}

func membershipsResponse(ms []domain.OrganizationMembership) []authsdk.OrganizationMembership {
	out := make([]authsdk.OrganizationMembership, 0, len(ms))
	for _, m := range ms {
		out = append(out, authsdk.OrganizationMembership{
			OrganizationID: m.OrganizationID,
			Name:           m.Organization.Name,
			Slug:           m.Organization.Slug,
			Role:           m.Role,
		})
	}
	return out
}

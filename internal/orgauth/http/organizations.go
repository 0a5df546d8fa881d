package http

import (
	"net/http"

	"github.com/aussiebroadwan/orgauth/internal/orgauth/domain"
	"github.com/aussiebroadwan/orgauth/internal/orgauth/service"
	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
	"github.com/aussiebroadwan/orgauth/pkg/httpx"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
)

type OrganizationsHandler struct {
	OrganizationService *service.OrganizationService
}

// HandleList godoc
//
//	@Summary		List organizations
//	@Description	Lists every organization the caller belongs to, with their role in each.
//	@Tags			Organizations
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ListOrganizationsResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Router			/v1/organizations [get]
func (h *OrganizationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, authsdk.ErrInvalidOrExpiredToken)
		return
	}

	ms, err := h.OrganizationService.ListForUser(r.Context(), id.UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.ListOrganizationsResponse{Organizations: membershipsResponse(ms)})
}

// HandleGetSettings godoc
//
//	@Summary		Get organization settings
//	@Tags			Organizations
//	@Produce		json
//	@Security		BearerAuth
//	@Param			X-Organization-Id	header		string	false	"Target organization"
//	@Success		200					{object}	authsdk.OrganizationSettings
//	@Failure		401					{object}	authsdk.ErrorResponse
//	@Failure		403					{object}	authsdk.ErrorResponse
//	@Router			/v1/organizations/current/settings [get]
func (h *OrganizationsHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, authsdk.ErrInvalidOrExpiredToken)
		return
	}

	s, err := h.OrganizationService.GetSettings(r.Context(), id.OrganizationID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, settingsResponse(s))
}

// HandleUpdateSettings godoc
//
//	@Summary		Update organization settings
//	@Description	Replaces the SELLER permission toggles. Requires manage_members.
//	@Tags			Organizations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			X-Organization-Id	header		string							false	"Target organization"
//	@Param			request				body		authsdk.UpdateSettingsRequest	true	"New toggles"
//	@Success		200					{object}	authsdk.OrganizationSettings
//	@Failure		401					{object}	authsdk.ErrorResponse
//	@Failure		403					{object}	authsdk.ErrorResponse
//	@Router			/v1/organizations/current/settings [put]
func (h *OrganizationsHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, authsdk.ErrInvalidOrExpiredToken)
		return
	}

	var req authsdk.UpdateSettingsRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	s, err := h.OrganizationService.UpdateSettings(r.Context(), id.OrganizationID, req.SellerCanEditLeads, req.SellerCanEditSales)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, settingsResponse(s))
}

// HandleChangeRole godoc
//
//	@Summary		Change member role
//	@Description	Sets a member's role in the current organization. Only an OWNER may grant OWNER or change another OWNER. Nobody may change their own role.
//	@Tags			Organizations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			X-Organization-Id	header		string						false	"Target organization"
//	@Param			userID				path		string						true	"Member user ID"
//	@Param			request				body		authsdk.ChangeRoleRequest	true	"New role"
//	@Success		200					{object}	authsdk.MemberResponse
//	@Failure		400					{object}	authsdk.ErrorResponse
//	@Failure		403					{object}	authsdk.ErrorResponse
//	@Failure		404					{object}	authsdk.ErrorResponse
//	@Router			/v1/organizations/current/members/{userID}/role [put]
func (h *OrganizationsHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, authsdk.ErrInvalidOrExpiredToken)
		return
	}

	var req authsdk.ChangeRoleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	role, ok := rbac.ParseRole(string(req.Role))
	if !ok {
		httpx.WriteError(w, r, authsdk.ErrInvalidRequest.WithDescription("unknown role %q", req.Role))
		return
	}

	m, err := h.OrganizationService.ChangeMemberRole(r.Context(), actor, r.PathValue("userID"), role)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MemberResponse{
		UserID:         m.UserID,
		OrganizationID: m.OrganizationID,
		Role:           m.Role,
	})
}

func settingsResponse(s domain.OrganizationSettings) authsdk.OrganizationSettings {
	return authsdk.OrganizationSettings{
		OrganizationID:     s.OrganizationID,
		SellerCanEditLeads: s.SellerCanEditLeads,
		SellerCanEditSales: s.SellerCanEditSales,
		UpdatedAt:          s.UpdatedAt,
	}
}

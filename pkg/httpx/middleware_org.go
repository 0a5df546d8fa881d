package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
	"github.com/aussiebroadwan/orgauth/pkg/slogx"
)

// HeaderOrganizationID names the organization a request acts against.
const HeaderOrganizationID = authsdk.HeaderOrganizationID

// OrganizationOverrider re-resolves an identity against another
// organization the user must belong to.
type OrganizationOverrider interface {
	Override(ctx context.Context, id authsdk.Identity, organizationID string) (authsdk.Identity, error)
}

// OrgOverrideMiddleware honours X-Organization-Id for the current request
// only. Without an identity in context it does nothing. A header naming an
// organization the user does not belong to fails the request; it never
// falls back to the token's organization.
func OrgOverrideMiddleware(o OrganizationOverrider) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id, ok := IdentityFromContext(ctx)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			orgID := strings.TrimSpace(r.Header.Get(HeaderOrganizationID))
			if orgID == "" || orgID == id.OrganizationID {
				next.ServeHTTP(w, r)
				return
			}

			overridden, err := o.Override(ctx, id, orgID)
			if err != nil {
				slogx.FromContext(ctx).Warn("organization override rejected",
					"requested_org_id", orgID, "err", err)
				WriteError(w, r, err)
				return
			}

			ctx = WithIdentity(ctx, overridden)
			ctx = slogx.WithActiveOrganization(ctx, overridden.OrganizationID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

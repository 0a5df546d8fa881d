package httpx

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
	"github.com/aussiebroadwan/orgauth/pkg/slogx"
)

// SettingsLoader fetches the per-organization toggles consulted by the
// permission matrix.
type SettingsLoader interface {
	PermissionSettings(ctx context.Context, organizationID string) (rbac.OrgSettings, error)
}

// RequirePermission lets the request through only when the identity's role
// allows perm in its current organization. If the settings cannot be loaded
// the zero settings are used, which only ever removes SELLER rights.
func RequirePermission(perm rbac.Permission, settings SettingsLoader) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			id, ok := IdentityFromContext(ctx)
			if !ok {
				authsdk.ErrInvalidOrExpiredToken.WithDescription("missing session").WriteError(w)
				return
			}

			var s rbac.OrgSettings
			if settings != nil {
				loaded, err := settings.PermissionSettings(ctx, id.OrganizationID)
				if err != nil {
					log.Warn("organization settings unavailable, using defaults", "err", err)
				} else {
					s = loaded
				}
			}

			if !rbac.Allows(id.Role, perm, s) {
				log.Info("permission denied", "permission", perm, "role", id.Role)
				authsdk.ErrInsufficientPermission.
					WithDescription("role %s lacks permission %s", id.Role, perm).
					WriteError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

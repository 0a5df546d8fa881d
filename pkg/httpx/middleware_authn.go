package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
	"github.com/aussiebroadwan/orgauth/pkg/slogx"
)

// DefaultCookieName is the HTTP-only cookie carrying the session token.
const DefaultCookieName = "access_token"

// SessionResolver turns a raw session token into the effective identity.
// Errors wrap an *authsdk.AuthError describing which step failed.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (authsdk.Identity, error)
}

// TokenFromRequest extracts the session token. The cookie wins over the
// Authorization header; an empty cookie value counts as absent.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v
		}
	}

	authz := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// SessionMiddleware requires a valid session and attaches the resolved
// identity to the request context. Nothing is cached between requests.
func SessionMiddleware(resolver SessionResolver, cookieName string) Middleware {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := TokenFromRequest(r, cookieName)
			if raw == "" {
				authsdk.ErrInvalidOrExpiredToken.WithDescription("missing session token").WriteError(w)
				return
			}

			id, err := resolver.Resolve(ctx, raw)
			if err != nil {
				log.Warn("session resolution failed", "err", err)
				WriteError(w, r, err)
				return
			}

			ctx = WithIdentity(ctx, id)
			ctx = slogx.WithIdentity(ctx, id.UserID, id.OrganizationID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

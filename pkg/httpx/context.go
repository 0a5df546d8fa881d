package httpx

import (
	"context"

	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
)

type ctxKey string

const (
	CtxKeyIdentity ctxKey = "identity"
)

// WithIdentity attaches the effective request identity to ctx.
func WithIdentity(ctx context.Context, id authsdk.Identity) context.Context {
	return context.WithValue(ctx, CtxKeyIdentity, id)
}

// IdentityFromContext returns the identity resolved for this request.
func IdentityFromContext(ctx context.Context) (authsdk.Identity, bool) {
	id, ok := ctx.Value(CtxKeyIdentity).(authsdk.Identity)
	return id, ok
}

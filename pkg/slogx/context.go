package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or slog.Default outside a request.
func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithRequestID tags the request logger with req_id.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("req_id", reqID))
}

// WithIdentity tags the request logger with the resolved user and the
// organization named by the session token. Call it once per request.
func WithIdentity(ctx context.Context, userID, orgID string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("user_id", userID, "org_id", orgID))
}

// WithActiveOrganization tags the request logger with the organization an
// X-Organization-Id override switched to. org_id keeps the token's value.
func WithActiveOrganization(ctx context.Context, orgID string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("active_org_id", orgID))
}

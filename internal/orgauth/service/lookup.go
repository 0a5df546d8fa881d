package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
)

// DefaultLookupTimeout bounds a single store lookup made while resolving a
// request.
const DefaultLookupTimeout = 5 * time.Second

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		d = DefaultLookupTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

// outcome reduces an error to the code used in metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var ae *authsdk.AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return authsdk.ErrorCodeServerError
}

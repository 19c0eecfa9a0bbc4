package middleware

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"rpc-bridge/invocation"
)

var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitMiddleware admits r records per second with bursts of up to burst,
// using a token bucket. Rejected records never reach the handler.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, rec *invocation.Record) error {
			if !limiter.Allow() {
				return ErrRateLimited
			}
			return next(ctx, rec)
		}
	}
}

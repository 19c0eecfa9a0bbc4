// Package middleware wraps the bridge's dispatch step.
//
// Middlewares compose in the onion model:
//
//	Chain(A, B, C)(handler) → A(B(C(handler)))
//	Execution order: A.before → B.before → C.before → handler → C.after → B.after → A.after
package middleware

import (
	"context"

	"rpc-bridge/invocation"
)

// HandlerFunc dispatches one record and returns the invocation error, if any.
type HandlerFunc func(ctx context.Context, rec *invocation.Record) error

type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares into one; the first wraps the outermost layer.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

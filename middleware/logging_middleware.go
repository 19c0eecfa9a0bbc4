package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rpc-bridge/invocation"
)

// LoggingMiddleware logs every dispatched record at debug level and failed
// ones at error level.
func LoggingMiddleware(log *zap.Logger) Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, rec *invocation.Record) error {
			start := time.Now()
			err := next(ctx, rec)
			fields := []zap.Field{
				zap.String("target", rec.TargetID()),
				zap.String("interface", rec.Interface()),
				zap.String("method", rec.Method()),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				log.Error("RPC invocation failed", append(fields, zap.Error(err))...)
				return err
			}
			log.Debug("RPC invocation applied", fields...)
			return nil
		}
	}
}

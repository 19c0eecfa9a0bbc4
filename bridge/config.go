package bridge

import (
	"go.uber.org/zap"

	"rpc-bridge/config"
	"rpc-bridge/middleware"
	"rpc-bridge/registry"
)

// NewFromConfig builds a bridge from cfg. It connects to etcd when registry
// endpoints are configured; the returned closer releases that connection and
// is never nil.
func NewFromConfig(cfg config.Config, log *zap.Logger) (*Bridge, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	closer := func() error { return nil }

	opts := []Option{
		WithLogger(log),
		WithCodec(cfg.Bridge.CodecType()),
		WithQueueSize(cfg.Bridge.QueueSize),
		WithShutdownTimeout(cfg.Bridge.ShutdownTimeout),
	}
	if len(cfg.Registry.Endpoints) > 0 {
		reg, err := registry.NewEtcdRegistry(cfg.Registry.Endpoints)
		if err != nil {
			return nil, nil, err
		}
		closer = reg.Close
		opts = append(opts, WithRegistry(reg, cfg.Bridge.AdvertiseAddr, cfg.Registry.TTL))
	}

	b := New(opts...)
	b.Use(middleware.LoggingMiddleware(log))
	if cfg.RateLimit.Rate > 0 {
		b.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Rate, cfg.RateLimit.Burst))
	}
	return b, closer, nil
}

package rpc

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"rpc-bridge/invocation"
)

// Dispatcher routes records to the manager their target registered for the
// record's interface.
//
// A missing target or interface is routine (a late call racing the target's
// removal) and is logged and dropped. A failure inside a known handler is
// returned to the caller unchanged.
type Dispatcher struct {
	log     *zap.Logger
	dropped atomic.Uint64
}

// NewDispatcher returns a dispatcher that reports drops to log.
// A nil log discards them.
func NewDispatcher(log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{log: log}
}

// Dispatch applies rec to target. It returns nil when target has no manager for
// rec's interface, and the manager's *InvocationError otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, target Target, rec *invocation.Record) error {
	var m *Manager
	if target != nil {
		m = target.RPCManager(rec.Interface())
	}
	if m == nil {
		d.drop(rec, "RPC call received for target but the target has not registered the interface")
		return nil
	}
	return m.ApplyInvocation(ctx, rec)
}

// DispatchByID looks up rec's target in targets before dispatching.
func (d *Dispatcher) DispatchByID(ctx context.Context, targets *Targets, rec *invocation.Record) error {
	target, ok := targets.Lookup(rec.TargetID())
	if !ok {
		d.drop(rec, "RPC call received for unknown target")
		return nil
	}
	return d.Dispatch(ctx, target, rec)
}

// Dropped returns how many records were absorbed without a handler.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

func (d *Dispatcher) drop(rec *invocation.Record, msg string) {
	d.dropped.Add(1)
	d.log.Warn(msg,
		zap.String("target", rec.TargetID()),
		zap.String("interface", rec.Interface()),
		zap.String("method", rec.Method()),
	)
}

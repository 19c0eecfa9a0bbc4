// Package bridge is the integrating side of the RPC core: it owns the attached
// targets, decodes incoming batches and feeds every record through the
// middleware chain into the dispatcher.
//
// Processing pipeline:
//
//	HandleBatch(data) → Codec.Decode → typed argument decoding (per resolved method)
//	  → ProcessBatch: enqueue each record on its target's queue (one worker per target)
//	    → Middleware Chain → Dispatcher → Manager.ApplyInvocation → handler
//
// Records for the same target run one at a time in submission order. Records for
// different targets run in parallel. A failing record never stops the rest of
// its batch.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"rpc-bridge/codec"
	"rpc-bridge/invocation"
	"rpc-bridge/middleware"
	"rpc-bridge/registry"
	"rpc-bridge/rpc"
)

var (
	ErrClosed        = errors.New("bridge: closed")
	ErrTargetExists  = errors.New("bridge: target already attached")
	ErrUnknownTarget = errors.New("bridge: unknown target")
	ErrNilRecord     = errors.New("bridge: nil record")
)

const (
	defaultQueueSize       = 64
	defaultShutdownTimeout = 5 * time.Second
)

// interfaceLister is implemented by targets that can enumerate their
// interfaces, such as *rpc.Connector. Only those are announced to the registry.
type interfaceLister interface {
	Interfaces() []string
}

// Bridge dispatches invocation records to attached targets.
type Bridge struct {
	targets     *rpc.Targets
	dispatcher  *rpc.Dispatcher
	middlewares []middleware.Middleware
	handler     atomic.Pointer[middleware.HandlerFunc] // middleware(middleware(...(dispatch)))
	codec       codec.Codec
	queueSize   int
	log         *zap.Logger

	shutdownTimeout time.Duration // Used by Shutdown when called with zero

	mu        sync.Mutex
	queues    map[string]*targetQueue // target id → queue
	announced map[string][]string     // target id → interfaces published to the registry

	wg       sync.WaitGroup // One count per running queue worker
	shutdown atomic.Bool

	registry      registry.Registry // nil if not announcing
	advertiseAddr string
	ttl           int64
}

type Option func(*Bridge)

// WithLogger sets the logger used by the bridge and its dispatcher.
func WithLogger(log *zap.Logger) Option {
	return func(b *Bridge) { b.log = log }
}

// WithCodec selects the batch codec used by HandleBatch.
func WithCodec(t codec.CodecType) Option {
	return func(b *Bridge) { b.codec = codec.GetCodec(t) }
}

// WithQueueSize sets how many records may wait per target before callers block.
func WithQueueSize(n int) Option {
	return func(b *Bridge) { b.queueSize = n }
}

// WithShutdownTimeout sets how long Shutdown(0) waits for queued records.
func WithShutdownTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.shutdownTimeout = d }
}

// WithRegistry announces attached targets' interfaces to reg under addr, with
// leases of ttl seconds.
func WithRegistry(reg registry.Registry, addr string, ttl int64) Option {
	return func(b *Bridge) {
		b.registry = reg
		b.advertiseAddr = addr
		b.ttl = ttl
	}
}

func New(opts ...Option) *Bridge {
	b := &Bridge{
		targets:   rpc.NewTargets(),
		codec:     &codec.JSONCodec{},
		queueSize: defaultQueueSize,
		log:       zap.NewNop(),
		queues:    make(map[string]*targetQueue),
		announced: make(map[string][]string),

		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.queueSize < 0 {
		b.queueSize = 0
	}
	if b.shutdownTimeout <= 0 {
		b.shutdownTimeout = defaultShutdownTimeout
	}
	b.dispatcher = rpc.NewDispatcher(b.log)
	b.rebuildHandler()
	return b
}

// Use appends a middleware. Middlewares run in the order they were added.
func (b *Bridge) Use(mw middleware.Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middlewares = append(b.middlewares, mw)
	b.rebuildHandler()
}

func (b *Bridge) rebuildHandler() {
	h := middleware.Chain(b.middlewares...)(b.dispatch)
	b.handler.Store(&h)
}

// dispatch is the innermost handler, wrapped by the middleware chain.
func (b *Bridge) dispatch(ctx context.Context, rec *invocation.Record) error {
	return b.dispatcher.DispatchByID(ctx, b.targets, rec)
}

func (b *Bridge) apply(j *job) {
	h := *b.handler.Load()
	j.done <- h(j.ctx, j.rec)
}

// Dispatcher exposes the underlying dispatcher, e.g. to read its drop count.
func (b *Bridge) Dispatcher() *rpc.Dispatcher { return b.dispatcher }

// Targets exposes the target table for read access.
func (b *Bridge) Targets() *rpc.Targets { return b.targets }

// Attach makes target addressable and starts its queue.
func (b *Bridge) Attach(target rpc.Target) error {
	id := target.ID()

	b.mu.Lock()
	if b.shutdown.Load() {
		b.mu.Unlock()
		return ErrClosed
	}
	if _, ok := b.queues[id]; ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTargetExists, id)
	}
	q := newTargetQueue(b.queueSize)
	b.queues[id] = q
	b.targets.Add(target)
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		q.run(b.apply)
	}()

	b.announce(target)
	return nil
}

// Detach removes the target. Records already queued for it are drained and,
// the target being gone, dropped with a diagnostic.
func (b *Bridge) Detach(id string) error {
	b.mu.Lock()
	q, ok := b.queues[id]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTarget, id)
	}
	delete(b.queues, id)
	b.targets.Remove(id)
	ifaces := b.announced[id]
	delete(b.announced, id)
	b.mu.Unlock()

	q.stop()
	b.withdraw(id, ifaces)
	return nil
}

func (b *Bridge) announce(target rpc.Target) {
	if b.registry == nil {
		return
	}
	lister, ok := target.(interfaceLister)
	if !ok {
		return
	}
	var done []string
	for _, iface := range lister.Interfaces() {
		err := b.registry.Register(registry.Registration{
			TargetID:  target.ID(),
			Interface: iface,
			Addr:      b.advertiseAddr,
		}, b.ttl)
		if err != nil {
			b.log.Warn("Failed to announce RPC interface",
				zap.String("target", target.ID()),
				zap.String("interface", iface),
				zap.Error(err))
			continue
		}
		done = append(done, iface)
	}
	b.mu.Lock()
	_, attached := b.queues[target.ID()]
	if attached {
		b.announced[target.ID()] = done
	}
	b.mu.Unlock()
	if !attached {
		// Detached or shut down while announcing
		b.withdraw(target.ID(), done)
	}
}

func (b *Bridge) withdraw(id string, ifaces []string) {
	if b.registry == nil {
		return
	}
	for _, iface := range ifaces {
		if err := b.registry.Deregister(id, iface); err != nil {
			b.log.Warn("Failed to withdraw RPC interface",
				zap.String("target", id),
				zap.String("interface", iface),
				zap.Error(err))
		}
	}
}

// Submit dispatches a single record and waits for its result.
func (b *Bridge) Submit(ctx context.Context, rec *invocation.Record) error {
	return b.ProcessBatch(ctx, []*invocation.Record{rec}).Errors[0]
}

// Shutdown performs graceful shutdown:
//  1. Withdraw every announced interface (clients stop addressing this bridge)
//  2. Set the shutdown flag so new work is refused
//  3. Stop all queues; workers drain what is already queued
//  4. Wait for the workers to finish (with timeout)
//
// A zero timeout means the one set with WithShutdownTimeout.
func (b *Bridge) Shutdown(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = b.shutdownTimeout
	}
	b.mu.Lock()
	announced := b.announced
	b.announced = make(map[string][]string)
	b.shutdown.Store(true)
	queues := b.queues
	b.queues = make(map[string]*targetQueue)
	b.mu.Unlock()

	for id, ifaces := range announced {
		b.withdraw(id, ifaces)
	}
	for _, q := range queues {
		q.stop()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for ongoing invocations to finish")
	}
}

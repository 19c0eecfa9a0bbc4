package bridge

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/multierr"

	"rpc-bridge/invocation"
	"rpc-bridge/message"
	"rpc-bridge/rpc"
)

// BatchResult holds one entry per call of a batch, in batch order.
type BatchResult struct {
	Records []*invocation.Record // nil where the call could not be decoded
	Errors  []error              // nil where the call was applied or absorbed
}

// Err combines the per-call errors, or returns nil if every call succeeded.
func (r *BatchResult) Err() error {
	return multierr.Combine(r.Errors...)
}

// Failed returns how many calls ended with an error.
func (r *BatchResult) Failed() int {
	n := 0
	for _, err := range r.Errors {
		if err != nil {
			n++
		}
	}
	return n
}

// ProcessBatch applies recs and waits for all of them. Every record is
// attempted, whatever happened to the ones before it.
func (b *Bridge) ProcessBatch(ctx context.Context, recs []*invocation.Record) *BatchResult {
	res := &BatchResult{
		Records: recs,
		Errors:  make([]error, len(recs)),
	}
	b.run(ctx, res)
	return res
}

// HandleBatch decodes data with the bridge codec and processes the calls.
// A malformed envelope fails the whole batch; a call whose arguments do not
// decode fails alone.
func (b *Bridge) HandleBatch(ctx context.Context, data []byte) (*BatchResult, error) {
	var batch message.Batch
	if err := b.codec.Decode(data, &batch); err != nil {
		return nil, fmt.Errorf("bridge: decode %s batch: %w", b.codec.Type(), err)
	}
	res := &BatchResult{
		Records: make([]*invocation.Record, len(batch.Calls)),
		Errors:  make([]error, len(batch.Calls)),
	}
	for i, call := range batch.Calls {
		res.Records[i], res.Errors[i] = b.decodeCall(call)
	}
	b.run(ctx, res)
	return res, nil
}

func (b *Bridge) run(ctx context.Context, res *BatchResult) {
	type pending struct {
		index int
		q     *targetQueue
		j     *job
	}
	waits := make([]pending, 0, len(res.Records))

	for i, rec := range res.Records {
		if res.Errors[i] != nil {
			continue
		}
		if rec == nil {
			res.Errors[i] = ErrNilRecord
			continue
		}
		// Shutdown flips the flag and empties queues under mu, so read both together.
		b.mu.Lock()
		closed := b.shutdown.Load()
		q, ok := b.queues[rec.TargetID()]
		b.mu.Unlock()
		if closed {
			res.Errors[i] = ErrClosed
			continue
		}
		if !ok {
			// Unknown target: nothing to serialize against, the dispatcher absorbs it.
			res.Errors[i] = (*b.handler.Load())(ctx, rec)
			continue
		}
		j := newJob(ctx, rec)
		if !q.enqueue(j) {
			res.Errors[i] = ErrClosed
			continue
		}
		waits = append(waits, pending{index: i, q: q, j: j})
	}

	for _, p := range waits {
		res.Errors[p.index] = p.q.wait(p.j)
	}
}

// decodeCall builds a record from call. When the target has a manager with a
// matching method, each argument is decoded into the exact parameter type;
// otherwise the raw values are kept and dispatch reports the problem.
func (b *Bridge) decodeCall(call message.Call) (*invocation.Record, error) {
	sig, ok := b.signature(call)
	args := make([]any, len(call.Args))
	if !ok || len(sig) != len(call.Args) {
		for i, raw := range call.Args {
			args[i] = raw
		}
		return invocation.New(call.TargetID, call.Interface, call.Method, args...)
	}
	for i, raw := range call.Args {
		if b.codec.IsNull(raw) {
			if !rpc.Nillable(sig[i]) {
				return nil, mismatch(call, &rpc.ArgumentMismatchError{Method: call.Method, Index: i, Want: sig[i]})
			}
			args[i] = reflect.Zero(sig[i]).Interface()
			continue
		}
		v := reflect.New(sig[i])
		if err := b.codec.DecodeValue(raw, v.Interface()); err != nil {
			return nil, mismatch(call, &rpc.ArgumentMismatchError{Method: call.Method, Index: i, Want: sig[i], Reason: err})
		}
		args[i] = v.Elem().Interface()
	}
	return invocation.New(call.TargetID, call.Interface, call.Method, args...)
}

func mismatch(call message.Call, err *rpc.ArgumentMismatchError) error {
	return &rpc.InvocationError{Interface: call.Interface, Method: call.Method, Err: err}
}

func (b *Bridge) signature(call message.Call) ([]reflect.Type, bool) {
	target, ok := b.targets.Lookup(call.TargetID)
	if !ok {
		return nil, false
	}
	m := target.RPCManager(call.Interface)
	if m == nil {
		return nil, false
	}
	return m.Signature(call.Method)
}

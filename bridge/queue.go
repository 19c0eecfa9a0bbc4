package bridge

import (
	"context"

	"rpc-bridge/invocation"
)

type job struct {
	ctx  context.Context
	rec  *invocation.Record
	done chan error // Buffered so the worker never blocks on a caller that gave up
}

func newJob(ctx context.Context, rec *invocation.Record) *job {
	return &job{ctx: ctx, rec: rec, done: make(chan error, 1)}
}

// targetQueue serializes the records of one target. A single worker applies
// them in arrival order; different targets have independent queues.
type targetQueue struct {
	jobs    chan *job
	quit    chan struct{} // Closed by stop: no new jobs accepted
	stopped chan struct{} // Closed by the worker after draining
}

func newTargetQueue(size int) *targetQueue {
	return &targetQueue{
		jobs:    make(chan *job, size),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// run applies jobs until stop, then drains what is already buffered.
func (q *targetQueue) run(apply func(*job)) {
	defer close(q.stopped)
	for {
		select {
		case j := <-q.jobs:
			apply(j)
		case <-q.quit:
			for {
				select {
				case j := <-q.jobs:
					apply(j)
				default:
					return
				}
			}
		}
	}
}

func (q *targetQueue) stop() {
	close(q.quit)
}

// enqueue blocks while the queue is full. It reports false once the queue is stopped.
func (q *targetQueue) enqueue(j *job) bool {
	select {
	case <-q.quit:
		return false
	default:
	}
	select {
	case q.jobs <- j:
		return true
	case <-q.quit:
		return false
	}
}

// wait returns the job's result, or ErrClosed if the worker exited without
// reaching it.
func (q *targetQueue) wait(j *job) error {
	select {
	case err := <-j.done:
		return err
	case <-q.stopped:
		// The worker sends before closing stopped, so a result is visible now if there is one.
		select {
		case err := <-j.done:
			return err
		default:
			return ErrClosed
		}
	}
}

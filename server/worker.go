package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/yield/vm"
)

// ErrWorkerStopped is returned for work submitted after Stop.
var ErrWorkerStopped = errors.New("worker stopped")

// workRequest represents a unit of work to be executed on the worker goroutine.
type workRequest struct {
	fn   func(*vm.ThreadContext) (any, error)
	done chan workResult
}

// workResult holds the return value from a worker operation.
type workResult struct {
	value any
	err   error
}

// Worker serializes all dispatch through a single goroutine. A
// ThreadContext belongs to one goroutine; every gRPC handler must go
// through the worker to use it.
type Worker struct {
	tc       *vm.ThreadContext
	requests chan workRequest
	quit     chan struct{}
	stopped  chan struct{}
}

// NewWorker creates a Worker with its own ThreadContext and starts the
// processing goroutine.
func NewWorker(rt *vm.Runtime) *Worker {
	w := &Worker{
		tc:       rt.NewThreadContext(),
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	defer close(w.stopped)
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the thread context, recovering from panics.
func (w *Worker) execute(fn func(*vm.ThreadContext) (any, error)) workResult {
	var result workResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value, result.err = fn(w.tc)
	}()
	return result
}

// Do submits a function for execution on the worker goroutine and blocks
// until it completes or ctx is done. Panics come back as errors.
func (w *Worker) Do(ctx context.Context, fn func(*vm.ThreadContext) (any, error)) (any, error) {
	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.stopped:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.stopped:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts down the worker goroutine and waits for it to exit.
func (w *Worker) Stop() {
	select {
	case <-w.quit:
	default:
		close(w.quit)
	}
	<-w.stopped
}

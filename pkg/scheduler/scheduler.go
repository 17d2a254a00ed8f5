package scheduler

import (
	"context"
	"fmt"
	"sync"
)

// task is one queued unit of work together with its delivery state. deliver
// is once-guarded: whichever of completion, cancellation or shutdown happens
// first resolves the future, the rest are no-ops.
type task struct {
	fn      Work[any]
	ctx     context.Context
	c       chan Result[any]
	once    *sync.Once
	release func()
}

func (t *task) deliver(res Result[any]) {
	t.once.Do(func() {
		t.c <- res
		t.release()
	})
}

// Scheduler runs submitted tasks strictly one at a time, in submission
// order. It exists to serialize browser work: a single page is driven, so
// at most one task may touch it.
type Scheduler struct {
	submit chan *task

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		submit: make(chan *task),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// AddWork queues fn and returns its future. The task context is derived from
// the caller's ctx and additionally ends when the future is stopped or the
// scheduler closes. A task whose context ends while it is still queued
// resolves immediately without ever running.
func (s *Scheduler) AddWork(ctx context.Context, fn Work[any]) *Future[Result[any]] {
	tctx, cancel := context.WithCancel(ctx)
	unlink := context.AfterFunc(s.ctx, cancel)
	t := &task{
		fn:      fn,
		ctx:     tctx,
		c:       make(chan Result[any], 1),
		once:    new(sync.Once),
		release: func() { unlink(); cancel() },
	}
	// Resolve as soon as the task context ends, even while the task is
	// still waiting behind another one.
	context.AfterFunc(tctx, func() {
		t.deliver(Result[any]{Err: tctx.Err()})
	})

	select {
	case s.submit <- t:
	case <-s.ctx.Done():
		t.deliver(Result[any]{Err: context.Canceled})
	}
	return &Future[Result[any]]{c: t.c, stop: t.release}
}

// Close stops accepting tasks, cancels queued and running ones and waits for
// the running one to return. Idempotent.
func (s *Scheduler) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *Scheduler) run() {
	defer close(s.done)

	var pending []*task
	running := false
	finished := make(chan struct{})

	start := func() {
		for !running && len(pending) > 0 {
			t := pending[0]
			pending = pending[1:]
			if t.ctx.Err() != nil {
				// Abandoned while queued, already resolved.
				continue
			}
			running = true
			go func() {
				s.execute(t)
				finished <- struct{}{}
			}()
		}
	}

	for {
		select {
		case t := <-s.submit:
			pending = append(pending, t)
		case <-finished:
			running = false
		case <-s.ctx.Done():
			// Queued tasks resolve through their context chain; only the
			// running one needs waiting for.
			if running {
				<-finished
			}
			return
		}
		start()
	}
}

func (s *Scheduler) execute(t *task) {
	defer func() {
		if rec := recover(); rec != nil {
			t.deliver(Result[any]{Err: fmt.Errorf("task panicked: %v", rec)})
		}
	}()
	v, err := t.fn(t.ctx)
	t.deliver(Result[any]{Data: v, Err: err})
}

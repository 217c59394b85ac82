// Package executor runs submitted tasks one at a time in submission order.
package executor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrClosed is returned for tasks submitted after Close.
var ErrClosed = errors.New("executor closed")

// ErrPanicked wraps the value recovered from a panicking task.
var ErrPanicked = errors.New("task panicked")

// Task is a unit of work. Its result is delivered through a Future.
type Task func() (any, error)

// task is the record queued for the worker; done carries its outcome.
type task struct {
	fn   Task
	done chan<- outcome
}

type outcome struct {
	value any
	err   error
}

// Future is the deferred result of a submitted task.
type Future struct {
	done <-chan outcome
	once sync.Once
	res  outcome
}

// Wait blocks until the task has finished and returns its result. It may
// be called any number of times.
func (f *Future) Wait() (any, error) {
	f.once.Do(func() { f.res = <-f.done })
	return f.res.value, f.res.err
}

// Executor owns a single worker goroutine that drains a FIFO channel of
// tasks. Tasks never run concurrently with each other.
type Executor struct {
	tasks    chan task
	quit     chan struct{}
	stopped  chan struct{}
	closeMu  sync.RWMutex
	closed   bool
	pending  atomic.Int64
	draining atomic.Bool
	logger   *zap.SugaredLogger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used to report failed tasks.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l.Sugar()
		}
	}
}

// WithQueueSize sets how many tasks may wait before Submit blocks.
func WithQueueSize(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.tasks = make(chan task, n)
		}
	}
}

// New starts an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		tasks:   make(chan task, 256),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}
	go e.run()
	return e
}

// Submit queues fn behind every previously submitted task. A task must
// not wait on another Future of the same Executor.
func (e *Executor) Submit(fn Task) *Future {
	done := make(chan outcome, 1)
	f := &Future{done: done}

	e.closeMu.RLock()
	defer e.closeMu.RUnlock()
	if e.closed {
		done <- outcome{err: ErrClosed}
		return f
	}
	e.pending.Add(1)
	e.tasks <- task{fn: fn, done: done}
	return f
}

// Draining reports whether the worker is processing queued tasks.
func (e *Executor) Draining() bool {
	return e.draining.Load()
}

// Pending returns the number of submitted tasks that have not finished.
func (e *Executor) Pending() int {
	return int(e.pending.Load())
}

// Close lets queued tasks finish, then stops the worker. Later
// submissions fail with ErrClosed.
func (e *Executor) Close() {
	e.closeMu.Lock()
	if e.closed {
		e.closeMu.Unlock()
		<-e.stopped
		return
	}
	e.closed = true
	close(e.quit)
	e.closeMu.Unlock()
	<-e.stopped
}

func (e *Executor) run() {
	defer close(e.stopped)
	for {
		select {
		case t := <-e.tasks:
			e.draining.Store(true)
			e.exec(t)
			if e.pending.Load() == 0 {
				e.draining.Store(false)
			}
		case <-e.quit:
			// Submit cannot race past closed, so whatever is buffered now
			// is all that will ever arrive.
			for {
				select {
				case t := <-e.tasks:
					e.exec(t)
				default:
					e.draining.Store(false)
					return
				}
			}
		}
	}
}

func (e *Executor) exec(t task) {
	defer e.pending.Add(-1)
	value, err := call(t.fn)
	switch {
	case errors.Is(err, ErrPanicked):
		e.logger.Warnw("task panicked", "error", err)
	case err != nil:
		e.logger.Debugw("task failed", "error", err)
	}
	t.done <- outcome{value: value, err: err}
}

func call(fn Task) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, r)
		}
	}()
	return fn()
}

// Do submits fn to e and waits for its typed result.
func Do[T any](e *Executor, fn func() (T, error)) (T, error) {
	v, err := e.Submit(func() (any, error) { return fn() }).Wait()
	if err != nil {
		var zero T
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

// Package eventloop runs posted events one at a time on a single goroutine.
//
// Everything that touches account bindings runs inside the loop. Work that
// blocks (network, disk) runs on its own goroutine and re-enters the loop
// with Post when it is done.
package eventloop

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped is returned by Call when the loop is no longer running.
var ErrStopped = errors.New("event loop stopped")

const defaultQueueSize = 256

type Loop struct {
	logger *zap.Logger
	queue  chan func()
	done   chan struct{}
	once   sync.Once
}

func New(logger *zap.Logger) *Loop {
	return &Loop{
		logger: logger,
		queue:  make(chan func(), defaultQueueSize),
		done:   make(chan struct{}),
	}
}

// Post schedules fn as a later event. It is safe to call from any
// goroutine, but from inside the loop only when the queue is known to have
// room. It reports false once the loop has quit.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Quit makes Run return after the event being dispatched, if any.
func (l *Loop) Quit() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed when Quit has been called.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run dispatches events until Quit is called or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("event_loop_started")
	defer l.logger.Info("event_loop_stopped")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.queue:
			l.dispatch(fn)
		}
	}
}

func (l *Loop) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event_panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}

// Async runs work on a new goroutine and delivers its result to done as a
// later event. done is dropped if the loop quits first.
func Async[T any](l *Loop, ctx context.Context, work func(context.Context) (T, error), done func(T, error)) {
	go func() {
		v, err := work(ctx)
		l.Post(func() { done(v, err) })
	}()
}

// Call runs fn inside the loop and waits for its result. It must not be
// called from the loop goroutine.
func Call[T any](ctx context.Context, l *Loop, fn func() T) (T, error) {
	var zero T
	out := make(chan T, 1)
	if !l.Post(func() { out <- fn() }) {
		return zero, ErrStopped
	}
	select {
	case v := <-out:
		return v, nil
	case <-l.done:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

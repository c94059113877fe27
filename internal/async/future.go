// Package async provides a minimal future type for running store calls in
// the background.
//
// A continuation attached with Then before the future completes runs on the
// goroutine that completes it. A continuation attached after completion runs
// immediately on the goroutine calling Then, before Then returns.
package async

import (
	"context"
	"fmt"
	"sync"
)

// Future holds the eventual result of a call
type Future[T any] struct {
	mu    sync.Mutex
	done  chan struct{}
	fired bool
	value T
	err   error
	conts []func(T, error)
}

// New returns an incomplete future and the function that completes it. Only
// the first call to complete has any effect.
func New[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.complete
}

// Go runs fn on a new goroutine. A panic in fn completes the future with an
// error instead of crashing the process.
func Go[T any](fn func() (T, error)) *Future[T] {
	f, complete := New[T]()
	go func() {
		var (
			value T
			err   error
		)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				complete(zero, fmt.Errorf("panic: %v", r))
				return
			}
			complete(value, err)
		}()
		value, err = fn()
	}()
	return f
}

func (f *Future[T]) complete(value T, err error) {
	f.mu.Lock()
	if f.fired {
		f.mu.Unlock()
		return
	}
	f.fired = true
	f.value, f.err = value, err
	conts := f.conts
	f.conts = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range conts {
		fn(value, err)
	}
}

// Then attaches a continuation
func (f *Future[T]) Then(fn func(T, error)) {
	f.mu.Lock()
	if !f.fired {
		f.conts = append(f.conts, fn)
		f.mu.Unlock()
		return
	}
	value, err := f.value, f.err
	f.mu.Unlock()

	fn(value, err)
}

// Done is closed once the future completes
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future completes or ctx is done
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

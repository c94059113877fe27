package core

import (
	"context"
	"fmt"
	"sync/atomic"
)

// interrupts is shared by a Store and every InterruptHandle created from it.
// Interrupting bumps the generation; a call in progress notices that the
// generation moved past the one it started with.
type interrupts struct {
	gen atomic.Uint64
}

// InterruptHandle cancels calls in progress on the Store it came from. It is
// safe for use from any goroutine and never blocks on the Store.
type InterruptHandle struct {
	state  *interrupts
	closed atomic.Bool
}

// Interrupt cancels every call currently running on the store. Calls started
// afterwards are not affected.
func (h *InterruptHandle) Interrupt() error {
	if h.closed.Load() {
		return ErrHandleClosed
	}
	h.state.gen.Add(1)
	return nil
}

// Close releases the handle. Interrupt fails with ErrHandleClosed afterwards.
func (h *InterruptHandle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return ErrHandleClosed
	}
	return nil
}

// scope tracks cancellation for one call
type scope struct {
	ctx   context.Context
	state *interrupts
	start uint64
}

func (i *interrupts) begin(ctx context.Context) *scope {
	return &scope{ctx: ctx, state: i, start: i.gen.Load()}
}

// Err returns ErrInterrupted once the call has been interrupted or its
// context is done.
func (s *scope) Err() error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	if s.state.gen.Load() != s.start {
		return ErrInterrupted
	}
	return nil
}

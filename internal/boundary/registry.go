package boundary

import (
	"context"
	"fmt"
	"sync"

	"github.com/illarion/loginstore/internal/core"
	"github.com/illarion/loginstore/internal/logging"
	"github.com/illarion/loginstore/internal/login"
)

// Handle refers to an open store. Zero is never issued.
type Handle uint64

// InterruptID refers to an interrupt handle. Zero is never issued.
type InterruptID uint64

// Registry owns the stores and interrupt handles given out to callers
type Registry struct {
	mu         sync.Mutex
	next       uint64
	stores     map[Handle]*core.Store
	interrupts map[InterruptID]*core.InterruptHandle
	opts       []core.Option
	log        logging.Logger
}

// NewRegistry returns an empty registry. opts are applied to every store it
// opens.
func NewRegistry(log logging.Logger, opts ...core.Option) *Registry {
	if log == nil {
		log = logging.Nop()
	}
	return &Registry{
		stores:     make(map[Handle]*core.Store),
		interrupts: make(map[InterruptID]*core.InterruptHandle),
		opts:       append([]core.Option{core.WithLogger(log)}, opts...),
		log:        log,
	}
}

func (r *Registry) issue() uint64 {
	r.next++
	return r.next
}

func (r *Registry) store(h Handle) (*core.Store, *ExternError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[h]
	if !ok {
		return nil, newExternError(KindInvalidHandle, fmt.Sprintf("unknown store handle %d", h))
	}
	return s, nil
}

// call looks up h and runs fn, converting errors and panics. The registry
// lock is not held while fn runs.
func call[T any](r *Registry, h Handle, fn func(*core.Store) (T, error)) (out T, xerr *ExternError) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error(context.Background(), "recovered panic at boundary", "handle", uint64(h), "panic", fmt.Sprint(p))
			var zero T
			out, xerr = zero, newExternError(KindUnspecified, fmt.Sprintf("internal error: %v", p))
		}
	}()

	s, xerr := r.store(h)
	if xerr != nil {
		return out, xerr
	}
	v, err := fn(s)
	if err != nil {
		return out, toExtern(err)
	}
	return v, nil
}

func exec(r *Registry, h Handle, fn func(*core.Store) error) *ExternError {
	_, xerr := call(r, h, func(s *core.Store) (struct{}, error) {
		return struct{}{}, fn(s)
	})
	return xerr
}

// Open opens the store at path. With a non-empty key the store is also
// unlocked; otherwise it starts Locked.
func (r *Registry) Open(path string, key []byte) (h Handle, xerr *ExternError) {
	defer func() {
		if p := recover(); p != nil {
			h, xerr = 0, newExternError(KindUnspecified, fmt.Sprintf("internal error: %v", p))
		}
	}()

	s, err := core.Open(path, r.opts...)
	if err != nil {
		return 0, toExtern(err)
	}
	if len(key) > 0 {
		if err := s.Unlock(key); err != nil {
			s.Close()
			return 0, toExtern(err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	h = Handle(r.issue())
	r.stores[h] = s
	return h, nil
}

// Close closes the store. It never fails: unknown handles and repeated
// closes are ignored. The handle stays registered so later calls report
// KindClosed.
func (r *Registry) Close(h Handle) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error(context.Background(), "recovered panic in close", "handle", uint64(h), "panic", fmt.Sprint(p))
		}
	}()

	s, xerr := r.store(h)
	if xerr != nil {
		return
	}
	if err := s.Close(); err != nil {
		r.log.Warn(context.Background(), "close failed", "handle", uint64(h), "error", err)
	}
}

// Release forgets a closed handle. Later calls report KindInvalidHandle.
func (r *Registry) Release(h Handle) {
	r.Close(h)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, h)
}

func (r *Registry) Lock(h Handle) *ExternError {
	return exec(r, h, (*core.Store).Lock)
}

func (r *Registry) Unlock(h Handle, key []byte) *ExternError {
	return exec(r, h, func(s *core.Store) error { return s.Unlock(key) })
}

func (r *Registry) IsLocked(h Handle) (bool, *ExternError) {
	return call(r, h, func(s *core.Store) (bool, error) { return s.IsLocked(), nil })
}

func (r *Registry) Add(h Handle, rec login.Record) (string, *ExternError) {
	return call(r, h, func(s *core.Store) (string, error) { return s.Add(context.Background(), rec) })
}

func (r *Registry) Update(h Handle, rec login.Record) *ExternError {
	return exec(r, h, func(s *core.Store) error { return s.Update(context.Background(), rec) })
}

func (r *Registry) Delete(h Handle, id string) (bool, *ExternError) {
	return call(r, h, func(s *core.Store) (bool, error) { return s.Delete(context.Background(), id) })
}

// Get returns nil without an error when id is not stored
func (r *Registry) Get(h Handle, id string) (*login.Record, *ExternError) {
	return call(r, h, func(s *core.Store) (*login.Record, error) { return s.Get(context.Background(), id) })
}

func (r *Registry) List(h Handle) ([]login.Record, *ExternError) {
	return call(r, h, func(s *core.Store) ([]login.Record, error) { return s.List(context.Background()) })
}

func (r *Registry) GetByHostname(h Handle, hostname string) ([]login.Record, *ExternError) {
	return call(r, h, func(s *core.Store) ([]login.Record, error) {
		return s.GetByHostname(context.Background(), hostname)
	})
}

func (r *Registry) Touch(h Handle, id string) *ExternError {
	return exec(r, h, func(s *core.Store) error { return s.Touch(context.Background(), id) })
}

func (r *Registry) EnsureValid(h Handle, rec login.Record) *ExternError {
	return exec(r, h, func(s *core.Store) error { return s.EnsureValid(context.Background(), rec) })
}

func (r *Registry) PotentialDupesIgnoringUsername(h Handle, rec login.Record) ([]login.Record, *ExternError) {
	return call(r, h, func(s *core.Store) ([]login.Record, error) {
		return s.PotentialDupesIgnoringUsername(context.Background(), rec)
	})
}

func (r *Registry) Sync(h Handle, info core.UnlockInfo) (*core.SyncTelemetry, *ExternError) {
	return call(r, h, func(s *core.Store) (*core.SyncTelemetry, error) { return s.Sync(context.Background(), info) })
}

func (r *Registry) Reset(h Handle) *ExternError {
	return exec(r, h, func(s *core.Store) error { return s.Reset(context.Background()) })
}

func (r *Registry) Wipe(h Handle) *ExternError {
	return exec(r, h, func(s *core.Store) error { return s.Wipe(context.Background()) })
}

func (r *Registry) WipeLocal(h Handle) *ExternError {
	return exec(r, h, func(s *core.Store) error { return s.WipeLocal(context.Background()) })
}

// NewInterruptHandle returns a handle that cancels calls running on h
func (r *Registry) NewInterruptHandle(h Handle) (InterruptID, *ExternError) {
	ih, xerr := call(r, h, func(s *core.Store) (*core.InterruptHandle, error) { return s.NewInterruptHandle() })
	if xerr != nil {
		return 0, xerr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id := InterruptID(r.issue())
	r.interrupts[id] = ih
	return id, nil
}

// Interrupt cancels the calls currently running on the handle's store. It
// does not wait for the store to become free.
func (r *Registry) Interrupt(id InterruptID) (xerr *ExternError) {
	defer func() {
		if p := recover(); p != nil {
			xerr = newExternError(KindUnspecified, fmt.Sprintf("internal error: %v", p))
		}
	}()

	r.mu.Lock()
	ih, ok := r.interrupts[id]
	r.mu.Unlock()
	if !ok {
		return newExternError(KindInvalidHandle, fmt.Sprintf("unknown interrupt handle %d", id))
	}
	return toExtern(ih.Interrupt())
}

// CloseInterruptHandle releases id. Using it afterwards reports
// KindInvalidHandle.
func (r *Registry) CloseInterruptHandle(id InterruptID) *ExternError {
	r.mu.Lock()
	ih, ok := r.interrupts[id]
	delete(r.interrupts, id)
	r.mu.Unlock()
	if !ok {
		return newExternError(KindInvalidHandle, fmt.Sprintf("unknown interrupt handle %d", id))
	}
	return toExtern(ih.Close())
}

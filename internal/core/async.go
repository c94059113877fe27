package core

import (
	"context"

	"github.com/illarion/loginstore/internal/async"
	"github.com/illarion/loginstore/internal/login"
)

// AsyncStore runs Store calls on background goroutines. Each call still takes
// the store mutex inside its goroutine, so ordering between calls issued
// concurrently is not defined.
type AsyncStore struct {
	s *Store
}

// NewAsync wraps s
func NewAsync(s *Store) *AsyncStore {
	return &AsyncStore{s: s}
}

// Store returns the wrapped store
func (a *AsyncStore) Store() *Store {
	return a.s
}

func run(fn func() error) *async.Future[struct{}] {
	return async.Go(func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

func (a *AsyncStore) Unlock(key []byte) *async.Future[struct{}] {
	return run(func() error { return a.s.Unlock(key) })
}

func (a *AsyncStore) Lock() *async.Future[struct{}] {
	return run(a.s.Lock)
}

func (a *AsyncStore) Close() *async.Future[struct{}] {
	return run(a.s.Close)
}

func (a *AsyncStore) Add(ctx context.Context, r login.Record) *async.Future[string] {
	return async.Go(func() (string, error) { return a.s.Add(ctx, r) })
}

func (a *AsyncStore) Update(ctx context.Context, r login.Record) *async.Future[struct{}] {
	return run(func() error { return a.s.Update(ctx, r) })
}

func (a *AsyncStore) Delete(ctx context.Context, id string) *async.Future[bool] {
	return async.Go(func() (bool, error) { return a.s.Delete(ctx, id) })
}

func (a *AsyncStore) Touch(ctx context.Context, id string) *async.Future[struct{}] {
	return run(func() error { return a.s.Touch(ctx, id) })
}

func (a *AsyncStore) Get(ctx context.Context, id string) *async.Future[*login.Record] {
	return async.Go(func() (*login.Record, error) { return a.s.Get(ctx, id) })
}

func (a *AsyncStore) List(ctx context.Context) *async.Future[[]login.Record] {
	return async.Go(func() ([]login.Record, error) { return a.s.List(ctx) })
}

func (a *AsyncStore) GetByHostname(ctx context.Context, hostname string) *async.Future[[]login.Record] {
	return async.Go(func() ([]login.Record, error) { return a.s.GetByHostname(ctx, hostname) })
}

func (a *AsyncStore) Sync(ctx context.Context, info UnlockInfo) *async.Future[*SyncTelemetry] {
	return async.Go(func() (*SyncTelemetry, error) { return a.s.Sync(ctx, info) })
}

func (a *AsyncStore) Wipe(ctx context.Context) *async.Future[struct{}] {
	return run(func() error { return a.s.Wipe(ctx) })
}

func (a *AsyncStore) WipeLocal(ctx context.Context) *async.Future[struct{}] {
	return run(func() error { return a.s.WipeLocal(ctx) })
}

func (a *AsyncStore) Reset(ctx context.Context) *async.Future[struct{}] {
	return run(func() error { return a.s.Reset(ctx) })
}

package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/loginstore/internal/login"
)

type syncFunc func(ctx context.Context, session *SyncSession, info UnlockInfo) error

func (f syncFunc) Sync(ctx context.Context, session *SyncSession, info UnlockInfo) error {
	return f(ctx, session, info)
}

// uploadAll acts as a remote that accepts every outgoing change
func uploadAll(serverTime int64, incoming ...IncomingChange) syncFunc {
	return func(ctx context.Context, session *SyncSession, info UnlockInfo) error {
		if err := session.ApplyIncoming(incoming); err != nil {
			return err
		}
		out, err := session.Outgoing()
		if err != nil {
			return err
		}
		sent := make([]string, 0, len(out))
		for _, ch := range out {
			sent = append(sent, ch.ID)
		}
		return session.MarkSynchronized(sent, 0, serverTime)
	}
}

// syncStore is an unlocked store whose synchronizer can be swapped per test step
type syncStore struct {
	*Store
	next syncFunc
}

func newSyncStore(t *testing.T, opts ...Option) *syncStore {
	t.Helper()
	ss := &syncStore{}
	opts = append(opts, WithSynchronizer(syncFunc(func(ctx context.Context, session *SyncSession, info UnlockInfo) error {
		return ss.next(ctx, session, info)
	})))
	ss.Store = newTestStore(t, opts...)
	return ss
}

func (ss *syncStore) sync(t *testing.T, fn syncFunc) *SyncTelemetry {
	t.Helper()
	ss.next = fn
	tel, err := ss.Sync(context.Background(), UnlockInfo{})
	require.NoError(t, err)
	return tel
}

func TestSyncWithoutSynchronizer(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Sync(context.Background(), UnlockInfo{})
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestSyncPassesUnlockInfo(t *testing.T) {
	s := newSyncStore(t)
	want := UnlockInfo{KeyID: "kid", AccessToken: "token", SyncKey: "key", TokenServerURL: "file:///tmp"}

	var got UnlockInfo
	s.next = func(ctx context.Context, session *SyncSession, info UnlockInfo) error {
		got = info
		return nil
	}
	_, err := s.Sync(context.Background(), want)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSyncErrorsAreNotRetried(t *testing.T) {
	s := newSyncStore(t)

	calls := 0
	s.next = func(ctx context.Context, session *SyncSession, info UnlockInfo) error {
		calls++
		return ErrSyncAuthInvalid
	}
	_, err := s.Sync(context.Background(), UnlockInfo{})
	assert.ErrorIs(t, err, ErrSyncAuthInvalid)
	assert.Equal(t, 1, calls)
}

func TestSyncTelemetry(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{}
	clock.Set(1000)
	s := newSyncStore(t, WithClock(clock.Now))

	a := fooLogin()
	aID, err := s.Add(ctx, a)
	require.NoError(t, err)

	tel := s.sync(t, uploadAll(2000))
	assert.Equal(t, 1, tel.Outgoing.Sent)
	assert.Equal(t, IncomingTelemetry{}, tel.Incoming)

	last, err := lastSync(t, s.Store)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), last)

	// Local edit newer than the remote one
	clock.Set(3000)
	a.ID = aID
	a.Password = "local"
	require.NoError(t, s.Update(ctx, a))
	_, err = s.Add(ctx, formLogin("https://b.org", "b"))
	require.NoError(t, err)

	remoteA := fooLogin()
	remoteA.Password = "remote"
	bad := formLogin("https://bad.org", "x")
	bad.Password = ""
	c := formLogin("https://c.org", "c")

	tel = s.sync(t, uploadAll(4000,
		IncomingChange{ID: aID, Record: &remoteA, ServerModified: 2500},
		IncomingChange{ID: "remote-c", Record: &c, ServerModified: 2600},
		IncomingChange{ID: "remote-bad", Record: &bad, ServerModified: 2600},
		IncomingChange{ID: "remote-garbled", ServerModified: 2600},
		IncomingChange{ID: "never-seen", Deleted: true, ServerModified: 2700},
	))
	assert.Equal(t, IncomingTelemetry{Applied: 2, Failed: 2, Reconciled: 1}, tel.Incoming)
	assert.Equal(t, OutgoingTelemetry{Sent: 2}, tel.Outgoing)

	got, err := s.Get(ctx, aID)
	require.NoError(t, err)
	assert.Equal(t, "local", got.Password)

	got, err = s.Get(ctx, "remote-c")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c", got.Username)

	got, err = s.Get(ctx, "remote-bad")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Remote edit newer than the local one
	clock.Set(5000)
	require.NoError(t, s.Touch(ctx, aID))
	tel = s.sync(t, uploadAll(6000,
		IncomingChange{ID: aID, Record: &remoteA, ServerModified: 5500},
	))
	assert.Equal(t, 1, tel.Incoming.Reconciled)

	got, err = s.Get(ctx, aID)
	require.NoError(t, err)
	assert.Equal(t, "remote", got.Password)
}

func TestSyncRemoteDeletionWins(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{}
	clock.Set(1000)
	s := newSyncStore(t, WithClock(clock.Now))

	id, err := s.Add(ctx, fooLogin())
	require.NoError(t, err)
	s.sync(t, uploadAll(2000))

	clock.Set(9000)
	require.NoError(t, s.Touch(ctx, id))

	tel := s.sync(t, uploadAll(3000, IncomingChange{ID: id, Deleted: true, ServerModified: 2500}))
	assert.Equal(t, 1, tel.Incoming.Applied)
	assert.Equal(t, 0, tel.Outgoing.Sent)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSyncIncomingReplacesUnsyncedDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newSyncStore(t)

	localID, err := s.Add(ctx, fooLogin())
	require.NoError(t, err)

	remote := fooLogin()
	remote.Password = "from remote"
	tel := s.sync(t, uploadAll(2000, IncomingChange{ID: "remote-id", Record: &remote, ServerModified: 1500}))
	assert.Equal(t, 1, tel.Incoming.Reconciled)
	assert.Equal(t, 0, tel.Incoming.Failed)

	got, err := s.Get(ctx, localID)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Get(ctx, "remote-id")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "from remote", got.Password)
}

func TestSyncIncomingRejectsSyncedDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newSyncStore(t)

	localID, err := s.Add(ctx, fooLogin())
	require.NoError(t, err)
	s.sync(t, uploadAll(2000))

	remote := fooLogin()
	tel := s.sync(t, uploadAll(3000, IncomingChange{ID: "remote-id", Record: &remote, ServerModified: 2500}))
	assert.Equal(t, 1, tel.Incoming.Failed)

	got, err := s.Get(ctx, localID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestWipeLeavesTombstones(t *testing.T) {
	ctx := context.Background()
	s := newSyncStore(t)

	syncedID, err := s.Add(ctx, fooLogin())
	require.NoError(t, err)
	s.sync(t, uploadAll(2000))
	newID, err := s.Add(ctx, formLogin("https://b.org", "b"))
	require.NoError(t, err)

	require.NoError(t, s.Wipe(ctx))

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	tombs := tombstones(t, s.Store)
	assert.Contains(t, tombs, syncedID)
	assert.NotContains(t, tombs, newID)

	var outgoing []OutgoingChange
	s.sync(t, func(ctx context.Context, session *SyncSession, info UnlockInfo) error {
		var err error
		outgoing, err = session.Outgoing()
		return err
	})
	require.Len(t, outgoing, 1)
	assert.Equal(t, syncedID, outgoing[0].ID)
	assert.True(t, outgoing[0].Deleted)
	assert.Nil(t, outgoing[0].Record)
}

func TestWipeLocalLeavesNothing(t *testing.T) {
	ctx := context.Background()
	s := newSyncStore(t)

	id, err := s.Add(ctx, fooLogin())
	require.NoError(t, err)
	s.sync(t, uploadAll(2000))
	other, err := s.Add(ctx, formLogin("https://b.org", "b"))
	require.NoError(t, err)
	_, err = s.Delete(ctx, id)
	require.NoError(t, err)
	require.NotEmpty(t, tombstones(t, s.Store))

	require.NoError(t, s.WipeLocal(ctx))

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, tombstones(t, s.Store))

	last, err := lastSync(t, s.Store)
	require.NoError(t, err)
	assert.Zero(t, last)

	got, err := s.Get(ctx, other)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResetMarksEverythingNew(t *testing.T) {
	ctx := context.Background()
	s := newSyncStore(t)

	for _, r := range []login.Record{fooLogin(), formLogin("https://b.org", "b")} {
		_, err := s.Add(ctx, r)
		require.NoError(t, err)
	}
	tel := s.sync(t, uploadAll(2000))
	require.Equal(t, 2, tel.Outgoing.Sent)

	tel = s.sync(t, uploadAll(3000))
	assert.Equal(t, 0, tel.Outgoing.Sent)

	require.NoError(t, s.Reset(ctx))
	last, err := lastSync(t, s.Store)
	require.NoError(t, err)
	assert.Zero(t, last)

	tel = s.sync(t, uploadAll(4000))
	assert.Equal(t, 2, tel.Outgoing.Sent)

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestEnsureSyncIDResetsOnChange(t *testing.T) {
	ctx := context.Background()
	s := newSyncStore(t)

	_, err := s.Add(ctx, fooLogin())
	require.NoError(t, err)

	withSyncID := func(id string, reset *bool) syncFunc {
		return func(ctx context.Context, session *SyncSession, info UnlockInfo) error {
			var err error
			if *reset, err = session.EnsureSyncID(id); err != nil {
				return err
			}
			return uploadAll(2000)(ctx, session, info)
		}
	}

	var reset bool
	tel := s.sync(t, withSyncID("first", &reset))
	assert.False(t, reset)
	assert.Equal(t, 1, tel.Outgoing.Sent)

	tel = s.sync(t, withSyncID("first", &reset))
	assert.False(t, reset)
	assert.Equal(t, 0, tel.Outgoing.Sent)

	tel = s.sync(t, withSyncID("second", &reset))
	assert.True(t, reset)
	assert.Equal(t, 1, tel.Outgoing.Sent)
}

func TestGlobalState(t *testing.T) {
	s := newSyncStore(t)

	s.sync(t, func(ctx context.Context, session *SyncSession, info UnlockInfo) error {
		state, err := session.GlobalState()
		if err != nil {
			return err
		}
		if state != nil {
			return errors.New("unexpected state")
		}
		return session.SetGlobalState([]byte(`{"v":1}`))
	})

	var state []byte
	s.sync(t, func(ctx context.Context, session *SyncSession, info UnlockInfo) error {
		var err error
		state, err = session.GlobalState()
		return err
	})
	assert.Equal(t, []byte(`{"v":1}`), state)
}

func TestSyncInterrupted(t *testing.T) {
	s := newSyncStore(t)

	h, err := s.NewInterruptHandle()
	require.NoError(t, err)
	defer h.Close()

	started := make(chan struct{})
	s.next = func(ctx context.Context, session *SyncSession, info UnlockInfo) error {
		close(started)
		for {
			if err := session.Interrupted(); err != nil {
				return err
			}
			time.Sleep(time.Millisecond)
		}
	}

	errc := make(chan error, 1)
	go func() {
		_, err := s.Sync(context.Background(), UnlockInfo{})
		errc <- err
	}()

	<-started
	require.NoError(t, h.Interrupt())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrInterrupted)
	case <-time.After(5 * time.Second):
		t.Fatal("sync was not interrupted")
	}
}

func lastSync(t *testing.T, s *Store) (int64, error) {
	t.Helper()
	session := &SyncSession{store: s, scope: s.interrupts.begin(context.Background())}
	return session.LastSync()
}

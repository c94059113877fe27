package core

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/illarion/loginstore/internal/login"
	"github.com/illarion/loginstore/internal/storage"
)

// Sync bookkeeping keys
const (
	metaLastSync    = "last_sync"
	metaGlobalState = "global_state"
	metaSyncID      = "sync_id"
)

// UnlockInfo carries what a Synchronizer needs to reach the remote copy
type UnlockInfo struct {
	KeyID          string
	AccessToken    string
	SyncKey        string
	TokenServerURL string
}

// IncomingTelemetry counts records received from the remote copy
type IncomingTelemetry struct {
	Applied    int
	Failed     int
	Reconciled int
}

// OutgoingTelemetry counts records uploaded to the remote copy
type OutgoingTelemetry struct {
	Sent   int
	Failed int
}

// SyncTelemetry summarizes one Sync call
type SyncTelemetry struct {
	Incoming IncomingTelemetry
	Outgoing OutgoingTelemetry
	Took     time.Duration
}

// Synchronizer reconciles a store with a remote copy. Implementations read
// and apply changes through the session and must not retry on failure.
type Synchronizer interface {
	Sync(ctx context.Context, session *SyncSession, info UnlockInfo) error
}

// IncomingChange is one record received from the remote copy. A change with
// neither Record nor Deleted set could not be decoded and counts as failed.
type IncomingChange struct {
	ID             string
	Record         *login.Record
	Deleted        bool
	ServerModified int64
}

// OutgoingChange is one local change waiting for upload
type OutgoingChange struct {
	ID       string
	Record   *login.Record // nil for deletions
	Deleted  bool
	Modified int64
}

// SyncSession gives a Synchronizer access to the store while Sync holds the
// store lock. It is only valid for the duration of that call.
type SyncSession struct {
	store     *Store
	scope     *scope
	telemetry SyncTelemetry
}

// Interrupted returns ErrInterrupted once the sync has been cancelled
func (ss *SyncSession) Interrupted() error {
	return ss.scope.Err()
}

// LastSync returns the server time recorded by the previous successful sync,
// or 0.
func (ss *SyncSession) LastSync() (int64, error) {
	var last int64
	err := ss.store.db.View(func(tx *storage.Tx) error {
		v, err := tx.SyncMeta(metaLastSync)
		if err != nil || len(v) != 8 {
			return err
		}
		last = int64(binary.BigEndian.Uint64(v))
		return nil
	})
	return last, err
}

// GlobalState returns the collaborator's opaque state, or nil
func (ss *SyncSession) GlobalState() ([]byte, error) {
	var state []byte
	err := ss.store.db.View(func(tx *storage.Tx) error {
		var err error
		state, err = tx.SyncMeta(metaGlobalState)
		return err
	})
	return state, err
}

// SetGlobalState stores the collaborator's opaque state
func (ss *SyncSession) SetGlobalState(state []byte) error {
	return ss.store.db.Update(func(tx *storage.Tx) error {
		return tx.PutSyncMeta(metaGlobalState, state)
	})
}

// EnsureSyncID compares the remote copy's id with the one seen last time.
// When it changed, local bookkeeping is reset first so every record is
// treated as new. It reports whether a reset happened.
func (ss *SyncSession) EnsureSyncID(remoteID string) (bool, error) {
	var reset bool
	err := ss.store.db.Update(func(tx *storage.Tx) error {
		prev, err := tx.SyncMeta(metaSyncID)
		if err != nil {
			return err
		}
		if prev != nil && string(prev) != remoteID {
			if err := ss.store.resetTx(tx, ss.scope); err != nil {
				return err
			}
			reset = true
		}
		return tx.PutSyncMeta(metaSyncID, []byte(remoteID))
	})
	if reset {
		ss.store.log.Warn(ss.scope.ctx, "remote sync id changed, local sync state reset")
	}
	return reset, err
}

// Outgoing returns local changes and tombstones not yet uploaded
func (ss *SyncSession) Outgoing() ([]OutgoingChange, error) {
	var out []OutgoingChange
	err := ss.store.db.View(func(tx *storage.Tx) error {
		records, err := ss.store.loadAll(tx, ss.scope)
		if err != nil {
			return err
		}
		for i := range records {
			if records[i].Status == statusSynced {
				continue
			}
			rec := records[i].Record
			out = append(out, OutgoingChange{ID: rec.ID, Record: &rec, Modified: records[i].LocalModified})
		}

		tombs, err := tx.Tombstones()
		if err != nil {
			return err
		}
		for id, at := range tombs {
			out = append(out, OutgoingChange{ID: id, Deleted: true, Modified: at})
		}
		return nil
	})
	return out, err
}

// ApplyIncoming merges remote changes into the store in one transaction.
// Remote deletions always win. When both sides changed a record the newer
// modification wins and the change counts as reconciled.
func (ss *SyncSession) ApplyIncoming(changes []IncomingChange) error {
	s := ss.store
	var tel IncomingTelemetry

	err := s.db.Update(func(tx *storage.Tx) error {
		for _, ch := range changes {
			if err := ss.scope.Err(); err != nil {
				return err
			}
			if err := ss.applyOne(tx, ch, &tel); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	ss.telemetry.Incoming.Applied += tel.Applied
	ss.telemetry.Incoming.Failed += tel.Failed
	ss.telemetry.Incoming.Reconciled += tel.Reconciled
	return nil
}

func (ss *SyncSession) applyOne(tx *storage.Tx, ch IncomingChange, tel *IncomingTelemetry) error {
	s := ss.store

	local, err := s.getRecord(tx, ch.ID)
	if err != nil {
		return err
	}

	if ch.Deleted {
		if local != nil {
			if _, err := tx.DeleteLogin(ch.ID); err != nil {
				return err
			}
		}
		if err := tx.DeleteTombstone(ch.ID); err != nil {
			return err
		}
		tel.Applied++
		return nil
	}

	if ch.Record == nil {
		tel.Failed++
		return nil
	}
	incoming := *ch.Record
	incoming.ID = ch.ID
	if err := login.CheckWellFormed(&incoming); err != nil {
		s.log.Warn(ss.scope.ctx, "skipping invalid incoming record", "id", ch.ID, "reason", login.ReasonOf(err).String())
		tel.Failed++
		return nil
	}

	remote := &storedRecord{Record: incoming, Status: statusSynced, LocalModified: ch.ServerModified}

	if local == nil {
		tombs, err := tx.Tombstones()
		if err != nil {
			return err
		}
		if deletedAt, ok := tombs[ch.ID]; ok {
			tel.Reconciled++
			if deletedAt >= ch.ServerModified {
				return nil
			}
			if err := tx.DeleteTombstone(ch.ID); err != nil {
				return err
			}
			return ss.putIncoming(tx, remote, tel, true)
		}
		return ss.putIncoming(tx, remote, tel, false)
	}

	if local.Status == statusSynced {
		return ss.putIncoming(tx, remote, tel, false)
	}

	tel.Reconciled++
	if local.LocalModified > ch.ServerModified {
		return nil
	}
	return ss.putIncoming(tx, remote, tel, true)
}

// putIncoming stores a remote record. A local record with a different id
// that collides on (hostname, username, target) is replaced if it was never
// uploaded; otherwise the incoming record is rejected.
func (ss *SyncSession) putIncoming(tx *storage.Tx, remote *storedRecord, tel *IncomingTelemetry, counted bool) error {
	s := ss.store

	existing, err := s.loadAll(tx, ss.scope)
	if err != nil {
		return err
	}
	for i := range existing {
		other := &existing[i]
		if other.ID == remote.ID || !remote.IsDuplicateOf(&other.Record) {
			continue
		}
		if other.Status != statusNew {
			if !counted {
				tel.Failed++
			}
			return nil
		}
		if _, err := tx.DeleteLogin(other.ID); err != nil {
			return err
		}
		if !counted {
			tel.Reconciled++
			counted = true
		}
	}

	if err := putRecord(tx, s.cipher, remote); err != nil {
		return err
	}
	if !counted {
		tel.Applied++
	}
	return nil
}

// MarkSynchronized records the outcome of an upload. Ids in sent are marked
// synced (or have their tombstone dropped) and serverTime becomes the new
// last-sync time.
func (ss *SyncSession) MarkSynchronized(sent []string, failed int, serverTime int64) error {
	s := ss.store
	err := s.db.Update(func(tx *storage.Tx) error {
		for _, id := range sent {
			rec, err := s.getRecord(tx, id)
			if err != nil {
				return err
			}
			if rec == nil {
				if err := tx.DeleteTombstone(id); err != nil {
					return err
				}
				continue
			}
			if rec.Status == statusSynced {
				continue
			}
			rec.Status = statusSynced
			if err := putRecord(tx, s.cipher, rec); err != nil {
				return err
			}
		}

		v := make([]byte, 8)
		binary.BigEndian.PutUint64(v, uint64(serverTime))
		return tx.PutSyncMeta(metaLastSync, v)
	})
	if err != nil {
		return err
	}

	ss.telemetry.Outgoing.Sent += len(sent)
	ss.telemetry.Outgoing.Failed += failed
	return nil
}

// Sync reconciles the store with the remote copy described by info. There is
// no retry: authentication, transport and interruption failures are returned
// as they happen.
func (s *Store) Sync(ctx context.Context, info UnlockInfo) (*SyncTelemetry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return nil, err
	}
	if s.syncer == nil {
		return nil, fmt.Errorf("%w: no synchronizer configured", ErrRequestFailed)
	}

	started := s.now()
	session := &SyncSession{store: s, scope: s.interrupts.begin(ctx)}
	s.log.Info(ctx, "sync started")

	if err := s.syncer.Sync(ctx, session, info); err != nil {
		s.log.Error(ctx, "sync failed", "error", err)
		return nil, err
	}

	s.writes.Add(1)
	tel := session.telemetry
	tel.Took = s.now().Sub(started)
	s.log.Info(ctx, "sync finished",
		"applied", tel.Incoming.Applied,
		"reconciled", tel.Incoming.Reconciled,
		"incoming_failed", tel.Incoming.Failed,
		"sent", tel.Outgoing.Sent,
		"outgoing_failed", tel.Outgoing.Failed,
	)
	return &tel, nil
}

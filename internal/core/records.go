package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/illarion/loginstore/internal/crypto"
	"github.com/illarion/loginstore/internal/login"
	"github.com/illarion/loginstore/internal/storage"
)

type syncStatus string

const (
	statusSynced  syncStatus = "synced"
	statusChanged syncStatus = "changed"
	statusNew     syncStatus = "new"
)

// storedRecord is what gets sealed into the logins bucket
type storedRecord struct {
	login.Record
	Status        syncStatus `json:"syncStatus"`
	LocalModified int64      `json:"localModified"`
}

// markChanged flags a local edit for upload
func (r *storedRecord) markChanged(now int64) {
	if r.Status != statusNew {
		r.Status = statusChanged
	}
	r.LocalModified = now
}

// ImportFailure describes one record ImportMultiple skipped
type ImportFailure struct {
	Index  int
	Reason string
}

// ImportMetrics summarizes an ImportMultiple call
type ImportMetrics struct {
	Total     int
	Succeeded int
	Failed    int
	Took      time.Duration
	Failures  []ImportFailure
}

// laterThan returns now, or prev+1 if now would not move past prev
func laterThan(now, prev int64) int64 {
	if now > prev {
		return now
	}
	return prev + 1
}

func putRecord(tx *storage.Tx, c *crypto.Cipher, r *storedRecord) error {
	sealed, err := c.SealJSON(r)
	if err != nil {
		return fmt.Errorf("failed to seal record %s: %w", r.ID, err)
	}
	return tx.PutLogin(r.ID, sealed)
}

func (s *Store) getRecord(tx *storage.Tx, id string) (*storedRecord, error) {
	if id == "" {
		return nil, nil
	}
	sealed, err := tx.Login(id)
	if err != nil || sealed == nil {
		return nil, err
	}
	var r storedRecord
	if err := s.cipher.OpenJSON(sealed, &r); err != nil {
		return nil, fmt.Errorf("failed to open record %s: %w", id, err)
	}
	return &r, nil
}

// loadAll opens every stored record, checking for interruption between
// records.
func (s *Store) loadAll(tx *storage.Tx, sc *scope) ([]storedRecord, error) {
	var out []storedRecord
	err := tx.ForEachLogin(func(id string, sealed []byte) error {
		if err := sc.Err(); err != nil {
			return err
		}
		var r storedRecord
		if err := s.cipher.OpenJSON(sealed, &r); err != nil {
			return fmt.Errorf("failed to open record %s: %w", id, err)
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

func plain(records []storedRecord) []login.Record {
	out := make([]login.Record, len(records))
	for i := range records {
		out[i] = records[i].Record
	}
	return out
}

func newID(tx *storage.Tx) (string, error) {
	for {
		id := uuid.NewString()
		taken, err := tx.HasLogin(id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
}

// Add stores a new record and returns its id. An empty id is replaced by a
// fresh one. Usage fields supplied by the caller are ignored.
func (s *Store) Add(ctx context.Context, r login.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return "", err
	}

	sc := s.interrupts.begin(ctx)
	var id string
	err := s.update(func(tx *storage.Tx) error {
		added, err := s.addTx(tx, sc, r)
		if err != nil {
			return err
		}
		id = added.ID
		return nil
	})
	return id, err
}

func (s *Store) addTx(tx *storage.Tx, sc *scope, r login.Record) (*storedRecord, error) {
	if r.ID != "" {
		taken, err := tx.HasLogin(r.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: %s", ErrIDCollision, r.ID)
		}
	}

	existing, err := s.loadAll(tx, sc)
	if err != nil {
		return nil, err
	}
	if err := login.Validate(&r, plain(existing), ""); err != nil {
		return nil, err
	}

	if r.ID == "" {
		if r.ID, err = newID(tx); err != nil {
			return nil, err
		}
	}

	now := s.nowMillis()
	r.TimesUsed = 1
	r.TimeCreated = now
	r.TimeLastUsed = now
	r.TimePasswordChanged = now

	rec := &storedRecord{Record: r, Status: statusNew, LocalModified: now}
	if err := putRecord(tx, s.cipher, rec); err != nil {
		return nil, err
	}
	if err := tx.DeleteTombstone(r.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update replaces the record with r.ID. Creation time is kept, the use count
// goes up by one and the password-change time moves only when the password
// differs.
func (s *Store) Update(ctx context.Context, r login.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return err
	}

	sc := s.interrupts.begin(ctx)
	return s.update(func(tx *storage.Tx) error {
		_, err := s.updateTx(tx, sc, r)
		return err
	})
}

func (s *Store) updateTx(tx *storage.Tx, sc *scope, r login.Record) (*storedRecord, error) {
	cur, err := s.getRecord(tx, r.ID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchRecord, r.ID)
	}

	existing, err := s.loadAll(tx, sc)
	if err != nil {
		return nil, err
	}
	if err := login.Validate(&r, plain(existing), r.ID); err != nil {
		return nil, err
	}

	now := s.nowMillis()
	r.TimeCreated = cur.TimeCreated
	r.TimesUsed = cur.TimesUsed + 1
	r.TimeLastUsed = laterThan(now, cur.TimeLastUsed)
	if r.Password != cur.Password {
		r.TimePasswordChanged = laterThan(now, cur.TimePasswordChanged)
	} else {
		r.TimePasswordChanged = cur.TimePasswordChanged
	}

	cur.Record = r
	cur.markChanged(now)
	if err := putRecord(tx, s.cipher, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// FindLoginToUpdate returns the stored record a save of r should overwrite,
// or nil if r is a new login.
func (s *Store) FindLoginToUpdate(ctx context.Context, r login.Record) (*login.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return nil, err
	}
	if err := login.CheckWellFormed(&r); err != nil {
		return nil, err
	}

	sc := s.interrupts.begin(ctx)
	var found *login.Record
	err := s.view(func(tx *storage.Tx) error {
		existing, err := s.loadAll(tx, sc)
		if err != nil {
			return err
		}
		found = login.FindLoginToUpdate(&r, plain(existing))
		return nil
	})
	return found, err
}

// AddOrUpdate saves r over the record FindLoginToUpdate selects, or adds it
// when there is none. It returns the stored record.
func (s *Store) AddOrUpdate(ctx context.Context, r login.Record) (*login.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return nil, err
	}
	if err := login.CheckWellFormed(&r); err != nil {
		return nil, err
	}

	sc := s.interrupts.begin(ctx)
	var saved *storedRecord
	err := s.update(func(tx *storage.Tx) error {
		existing, err := s.loadAll(tx, sc)
		if err != nil {
			return err
		}
		if target := login.FindLoginToUpdate(&r, plain(existing)); target != nil {
			r.ID = target.ID
			saved, err = s.updateTx(tx, sc, r)
			return err
		}
		saved, err = s.addTx(tx, sc, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &saved.Record, nil
}

// Touch records one use of the login
func (s *Store) Touch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return err
	}

	return s.update(func(tx *storage.Tx) error {
		cur, err := s.getRecord(tx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: %s", ErrNoSuchRecord, id)
		}

		now := s.nowMillis()
		cur.TimesUsed++
		cur.TimeLastUsed = laterThan(now, cur.TimeLastUsed)
		cur.markChanged(now)
		return putRecord(tx, s.cipher, cur)
	})
}

// Delete removes the record and reports whether it existed. Records that
// were ever synced leave a tombstone for the next sync.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return false, err
	}

	var existed bool
	err := s.update(func(tx *storage.Tx) error {
		cur, err := s.getRecord(tx, id)
		if err != nil || cur == nil {
			return err
		}
		if cur.Status != statusNew {
			if err := tx.PutTombstone(id, s.nowMillis()); err != nil {
				return err
			}
		}
		existed, err = tx.DeleteLogin(id)
		return err
	})
	return existed, err
}

// Get returns the record with id, or nil
func (s *Store) Get(ctx context.Context, id string) (*login.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return nil, err
	}

	var found *login.Record
	err := s.view(func(tx *storage.Tx) error {
		cur, err := s.getRecord(tx, id)
		if err != nil || cur == nil {
			return err
		}
		found = &cur.Record
		return nil
	})
	return found, err
}

// List returns every record
func (s *Store) List(ctx context.Context) ([]login.Record, error) {
	return s.query(ctx, func(*login.Record) bool { return true })
}

// GetByHostname returns the records whose hostname equals hostname exactly
func (s *Store) GetByHostname(ctx context.Context, hostname string) ([]login.Record, error) {
	return s.query(ctx, func(r *login.Record) bool { return r.Hostname == hostname })
}

// GetByBaseDomain returns the records whose host is domain or one of its
// sub-domains.
func (s *Store) GetByBaseDomain(ctx context.Context, domain string) ([]login.Record, error) {
	return s.query(ctx, func(r *login.Record) bool { return login.MatchesBaseDomain(r.Hostname, domain) })
}

func (s *Store) query(ctx context.Context, keep func(*login.Record) bool) ([]login.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return nil, err
	}

	sc := s.interrupts.begin(ctx)
	var out []login.Record
	err := s.view(func(tx *storage.Tx) error {
		records, err := s.loadAll(tx, sc)
		if err != nil {
			return err
		}
		for i := range records {
			if keep(&records[i].Record) {
				out = append(out, records[i].Record)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureValid runs the full validation of r, including the duplicate scan,
// without writing anything.
func (s *Store) EnsureValid(ctx context.Context, r login.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return err
	}

	sc := s.interrupts.begin(ctx)
	return s.view(func(tx *storage.Tx) error {
		existing, err := s.loadAll(tx, sc)
		if err != nil {
			return err
		}
		return login.Validate(&r, plain(existing), r.ID)
	})
}

// PotentialDupesIgnoringUsername returns stored records sharing r's hostname
// and target, whatever their username.
func (s *Store) PotentialDupesIgnoringUsername(ctx context.Context, r login.Record) ([]login.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return nil, err
	}

	sc := s.interrupts.begin(ctx)
	var dupes []login.Record
	err := s.view(func(tx *storage.Tx) error {
		existing, err := s.loadAll(tx, sc)
		if err != nil {
			return err
		}
		dupes = login.PotentialDupesIgnoringUsername(&r, plain(existing))
		return nil
	})
	return dupes, err
}

// ImportMultiple loads records into an empty store. Invalid and duplicate
// records are skipped and reported in the metrics. Usage fields are kept;
// missing timestamps default to the import time.
func (s *Store) ImportMultiple(ctx context.Context, records []login.Record) (*ImportMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return nil, err
	}

	started := s.now()
	metrics := &ImportMetrics{Total: len(records)}
	sc := s.interrupts.begin(ctx)

	err := s.update(func(tx *storage.Tx) error {
		n, err := tx.CountLogins()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrNonEmptyStore
		}

		var imported []login.Record
		used := make(map[string]bool)
		for i, r := range records {
			if err := sc.Err(); err != nil {
				return err
			}
			if used[r.ID] {
				r.ID = ""
			}
			if err := login.Validate(&r, imported, ""); err != nil {
				metrics.Failed++
				metrics.Failures = append(metrics.Failures, ImportFailure{Index: i, Reason: err.Error()})
				s.log.Warn(ctx, "skipping invalid import record", "index", i, "reason", login.ReasonOf(err).String())
				continue
			}
			if r.ID == "" {
				if r.ID, err = newID(tx); err != nil {
					return err
				}
			}

			now := s.nowMillis()
			if r.TimeCreated == 0 {
				r.TimeCreated = now
			}
			if r.TimePasswordChanged == 0 {
				r.TimePasswordChanged = r.TimeCreated
			}
			if r.TimeLastUsed == 0 {
				r.TimeLastUsed = r.TimeCreated
			}
			if r.TimesUsed < 1 {
				r.TimesUsed = 1
			}

			rec := &storedRecord{Record: r, Status: statusNew, LocalModified: now}
			if err := putRecord(tx, s.cipher, rec); err != nil {
				return err
			}
			used[r.ID] = true
			imported = append(imported, r)
			metrics.Succeeded++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Took = s.now().Sub(started)
	s.log.Info(ctx, "import finished", "total", metrics.Total, "succeeded", metrics.Succeeded, "failed", metrics.Failed)
	return metrics, nil
}

// Wipe deletes every record. Records that were ever synced leave tombstones
// so the deletion reaches the remote copy.
func (s *Store) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return err
	}

	sc := s.interrupts.begin(ctx)
	var tombstoned int
	err := s.update(func(tx *storage.Tx) error {
		records, err := s.loadAll(tx, sc)
		if err != nil {
			return err
		}
		now := s.nowMillis()
		for i := range records {
			if err := sc.Err(); err != nil {
				return err
			}
			if records[i].Status == statusNew {
				continue
			}
			if err := tx.PutTombstone(records[i].ID, now); err != nil {
				return err
			}
			tombstoned++
		}
		return tx.ClearLogins()
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "store wiped", "tombstones", tombstoned)
	return nil
}

// WipeLocal deletes every record and all sync bookkeeping without leaving
// tombstones. The remote copy is left alone.
func (s *Store) WipeLocal(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return err
	}

	err := s.update(func(tx *storage.Tx) error {
		if err := tx.ClearLogins(); err != nil {
			return err
		}
		if err := tx.ClearTombstones(); err != nil {
			return err
		}
		return tx.ClearSyncMeta()
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "local data wiped")
	return nil
}

// Reset forgets all sync bookkeeping so the next sync starts from scratch.
// Records are kept and will be uploaded again.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return err
	}

	sc := s.interrupts.begin(ctx)
	if err := s.update(func(tx *storage.Tx) error { return s.resetTx(tx, sc) }); err != nil {
		return err
	}

	s.log.Info(ctx, "sync state reset")
	return nil
}

// resetTx marks every record new and clears sync bookkeeping
func (s *Store) resetTx(tx *storage.Tx, sc *scope) error {
	records, err := s.loadAll(tx, sc)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].Status == statusNew {
			continue
		}
		records[i].Status = statusNew
		if err := putRecord(tx, s.cipher, &records[i]); err != nil {
			return err
		}
	}
	return tx.ClearSyncMeta()
}

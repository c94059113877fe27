package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Tx is a transaction over the store buckets. Byte slices returned by Tx
// methods are copies and stay valid after the transaction ends.
type Tx struct {
	tx *bolt.Tx
}

func (t *Tx) bucket(name []byte) (*bolt.Bucket, error) {
	b := t.tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%s bucket not found", name)
	}
	return b, nil
}

// PutKeyMaterial replaces the key material. Used when the store key changes
// together with re-sealing every record.
func (t *Tx) PutKeyMaterial(km KeyMaterial) error {
	config, err := t.bucket(ConfigBucket)
	if err != nil {
		return err
	}
	iters := make([]byte, 4)
	binary.BigEndian.PutUint32(iters, km.Iterations)
	if err := config.Put(ConfigSalt, km.Salt); err != nil {
		return err
	}
	if err := config.Put(ConfigIters, iters); err != nil {
		return err
	}
	return config.Put(ConfigCheck, km.Check)
}

// Login returns the sealed record stored under id, or nil
func (t *Tx) Login(id string) ([]byte, error) {
	logins, err := t.bucket(LoginsBucket)
	if err != nil {
		return nil, err
	}
	data := logins.Get([]byte(id))
	if data == nil {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

// HasLogin reports whether id is present
func (t *Tx) HasLogin(id string) (bool, error) {
	logins, err := t.bucket(LoginsBucket)
	if err != nil {
		return false, err
	}
	return logins.Get([]byte(id)) != nil, nil
}

// PutLogin stores a sealed record
func (t *Tx) PutLogin(id string, sealed []byte) error {
	logins, err := t.bucket(LoginsBucket)
	if err != nil {
		return err
	}
	return logins.Put([]byte(id), sealed)
}

// DeleteLogin removes a record and reports whether it existed
func (t *Tx) DeleteLogin(id string) (bool, error) {
	logins, err := t.bucket(LoginsBucket)
	if err != nil {
		return false, err
	}
	if logins.Get([]byte(id)) == nil {
		return false, nil
	}
	return true, logins.Delete([]byte(id))
}

// ForEachLogin calls fn for every stored record in id order. Returning an
// error from fn stops the iteration.
func (t *Tx) ForEachLogin(fn func(id string, sealed []byte) error) error {
	logins, err := t.bucket(LoginsBucket)
	if err != nil {
		return err
	}
	return logins.ForEach(func(k, v []byte) error {
		return fn(string(k), append([]byte(nil), v...))
	})
}

// CountLogins returns the number of stored records
func (t *Tx) CountLogins() (int, error) {
	logins, err := t.bucket(LoginsBucket)
	if err != nil {
		return 0, err
	}
	return logins.Stats().KeyN, nil
}

// PutTombstone records that id was deleted at deletedAt (unix millis)
func (t *Tx) PutTombstone(id string, deletedAt int64) error {
	tombs, err := t.bucket(TombstoneBucket)
	if err != nil {
		return err
	}
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, uint64(deletedAt))
	return tombs.Put([]byte(id), v)
}

// DeleteTombstone forgets a tombstone
func (t *Tx) DeleteTombstone(id string) error {
	tombs, err := t.bucket(TombstoneBucket)
	if err != nil {
		return err
	}
	return tombs.Delete([]byte(id))
}

// Tombstones returns all pending tombstones keyed by id
func (t *Tx) Tombstones() (map[string]int64, error) {
	tombs, err := t.bucket(TombstoneBucket)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64)
	err = tombs.ForEach(func(k, v []byte) error {
		if len(v) != 8 {
			return fmt.Errorf("corrupt tombstone %s", k)
		}
		out[string(k)] = int64(binary.BigEndian.Uint64(v))
		return nil
	})
	return out, err
}

// SyncMeta returns the value stored under key, or nil
func (t *Tx) SyncMeta(key string) ([]byte, error) {
	meta, err := t.bucket(SyncMetaBucket)
	if err != nil {
		return nil, err
	}
	data := meta.Get([]byte(key))
	if data == nil {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

// PutSyncMeta stores a sync bookkeeping value
func (t *Tx) PutSyncMeta(key string, value []byte) error {
	meta, err := t.bucket(SyncMetaBucket)
	if err != nil {
		return err
	}
	return meta.Put([]byte(key), value)
}

// ClearLogins drops every record
func (t *Tx) ClearLogins() error {
	return t.recreate(LoginsBucket)
}

// ClearTombstones drops every tombstone
func (t *Tx) ClearTombstones() error {
	return t.recreate(TombstoneBucket)
}

// ClearSyncMeta drops all sync bookkeeping
func (t *Tx) ClearSyncMeta() error {
	return t.recreate(SyncMetaBucket)
}

func (t *Tx) recreate(name []byte) error {
	if err := t.tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return fmt.Errorf("failed to delete bucket %s: %w", name, err)
	}
	if _, err := t.tx.CreateBucket(name); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return nil
}

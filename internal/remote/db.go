package remote

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/illarion/loginstore/internal/crypto"
)

const dbFile = "remote.db"

var (
	metaBucket    = []byte("meta")
	recordsBucket = []byte("records")
	metaKey       = []byte("meta")
)

// meta describes the remote copy
type meta struct {
	SyncID     string `json:"syncId"`
	Salt       []byte `json:"salt"`
	Iterations int    `json:"iterations"`
	Check      []byte `json:"check"`
	ServerTime int64  `json:"serverTime"`
}

// envelope is what is stored per record id
type envelope struct {
	Modified int64  `json:"modified"`
	Deleted  bool   `json:"deleted,omitempty"`
	Payload  []byte `json:"payload,omitempty"`
}

type remoteDB struct {
	db *bolt.DB
}

func openDB(dir string) (*remoteDB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create remote directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, dbFile), 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open remote database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{metaBucket, recordsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &remoteDB{db: db}, nil
}

func (r *remoteDB) Close() error {
	return r.db.Close()
}

// ensureMeta returns the remote metadata, creating it on first use with a
// key check sealed under syncKey.
func (r *remoteDB) ensureMeta(syncKey string, iterations int) (*meta, error) {
	var m *meta
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(metaBucket)
		if data := b.Get(metaKey); data != nil {
			m = &meta{}
			return json.Unmarshal(data, m)
		}

		kdf, err := crypto.NewKDF(iterations)
		if err != nil {
			return err
		}
		c, err := cipherFor(syncKey, kdf)
		if err != nil {
			return err
		}
		defer c.Destroy()

		check, err := c.NewKeyCheck()
		if err != nil {
			return err
		}

		m = &meta{
			SyncID:     uuid.NewString(),
			Salt:       kdf.Salt,
			Iterations: kdf.Iterations,
			Check:      check,
		}
		return putMeta(b, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func putMeta(b *bolt.Bucket, m *meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal remote meta: %w", err)
	}
	return b.Put(metaKey, data)
}

func cipherFor(syncKey string, kdf *crypto.KDF) (*crypto.Cipher, error) {
	key := kdf.DeriveKey([]byte(syncKey))
	defer crypto.ClearBytes(key)
	return crypto.NewCipher(key)
}

// changedSince calls fn for every envelope modified after since. Envelopes
// that fail to decode are passed as nil.
func (r *remoteDB) changedSince(since int64, fn func(id string, env *envelope) error) error {
	return r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(k, v []byte) error {
			var env envelope
			if err := json.Unmarshal(v, &env); err != nil {
				return fn(string(k), nil)
			}
			if env.Modified <= since {
				return nil
			}
			return fn(string(k), &env)
		})
	})
}

// put stores envelopes and advances the server time in one transaction
func (r *remoteDB) put(envs map[string]envelope, serverTime int64) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(recordsBucket)
		for id, env := range envs {
			data, err := json.Marshal(env)
			if err != nil {
				return fmt.Errorf("failed to marshal envelope %s: %w", id, err)
			}
			if err := records.Put([]byte(id), data); err != nil {
				return err
			}
		}

		b := tx.Bucket(metaBucket)
		var m meta
		if err := json.Unmarshal(b.Get(metaKey), &m); err != nil {
			return fmt.Errorf("failed to read remote meta: %w", err)
		}
		m.ServerTime = serverTime
		return putMeta(b, &m)
	})
}

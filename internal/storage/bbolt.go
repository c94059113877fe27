package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket    = []byte("config")     // Key material, store id, timestamps - unencrypted
	LoginsBucket    = []byte("logins")     // Sealed login records keyed by id
	TombstoneBucket = []byte("tombstones") // Deleted ids awaiting upload, value is deletion time
	SyncMetaBucket  = []byte("syncmeta")   // Opaque sync bookkeeping
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigSalt     = []byte("salt")
	ConfigIters    = []byte("iterations")
	ConfigCheck    = []byte("check")
	ConfigStoreID  = []byte("store_id")
)

var allBuckets = [][]byte{ConfigBucket, LoginsBucket, TombstoneBucket, SyncMetaBucket}

// ErrNoKeyMaterial is returned for a store that has never been unlocked
var ErrNoKeyMaterial = errors.New("key material not found")

// Storage provides BBolt-based storage for a login store
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a store database
func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure. It is safe to call on an already
// initialized database.
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		if err := config.Put(ConfigModified, created); err != nil {
			return err
		}
		return config.Put(ConfigStoreID, []byte(uuid.NewString()))
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// KeyMaterial is everything needed to derive and verify a store key
type KeyMaterial struct {
	Salt       []byte
	Iterations uint32
	Check      []byte
}

// SetKeyMaterial stores salt, iterations and the sealed key check in one
// transaction.
func (s *Storage) SetKeyMaterial(km KeyMaterial) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return (&Tx{tx: tx}).PutKeyMaterial(km)
	})
}

// GetKeyMaterial retrieves the key material. ErrNoKeyMaterial is returned
// for a store that has never been unlocked.
func (s *Storage) GetKeyMaterial() (*KeyMaterial, error) {
	var km *KeyMaterial
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		salt := config.Get(ConfigSalt)
		iters := config.Get(ConfigIters)
		check := config.Get(ConfigCheck)
		if salt == nil || check == nil {
			return ErrNoKeyMaterial
		}
		if len(iters) != 4 {
			return fmt.Errorf("iterations not found")
		}
		// Make copies since the slices are only valid during the transaction
		km = &KeyMaterial{
			Salt:       append([]byte(nil), salt...),
			Iterations: binary.BigEndian.Uint32(iters),
			Check:      append([]byte(nil), check...),
		}
		return nil
	})
	return km, err
}

// GetStoreID retrieves the random id assigned at initialization
func (s *Storage) GetStoreID() (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigStoreID)
		if data == nil {
			return fmt.Errorf("store_id not found")
		}
		id = string(data)
		return nil
	})
	return id, err
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// View runs fn in a read-only transaction
func (s *Storage) View(fn func(*Tx) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// Update runs fn in a read-write transaction and bumps the modified
// timestamp when fn succeeds. Any error rolls the whole transaction back.
func (s *Storage) Update(fn func(*Tx) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := fn(&Tx{tx: tx}); err != nil {
			return err
		}
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return nil
		}
		modified, _ := time.Now().MarshalBinary()
		return config.Put(ConfigModified, modified)
	})
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after wiping records to reclaim disk space.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}

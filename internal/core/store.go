package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/illarion/loginstore/internal/crypto"
	"github.com/illarion/loginstore/internal/logging"
	"github.com/illarion/loginstore/internal/storage"
)

// Store is a lock-gated collection of login records backed by one database
// file. All methods are safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	db     *storage.Storage
	cipher *crypto.Cipher // nil while locked
	closed atomic.Bool

	id         string
	iterations int
	log        logging.Logger
	now        func() time.Time
	syncer     Synchronizer
	interrupts *interrupts

	reads  atomic.Int64
	writes atomic.Int64
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the time source used for record timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSynchronizer sets the collaborator used by Sync
func WithSynchronizer(sy Synchronizer) Option {
	return func(s *Store) { s.syncer = sy }
}

// WithIterations sets the PBKDF2 iteration count used when the store key is
// first set or changed. Existing key material keeps its own count.
func WithIterations(n int) Option {
	return func(s *Store) { s.iterations = n }
}

// Stats counts completed calls. EnsureValid and queries count as reads.
type Stats struct {
	Reads  int64
	Writes int64
}

// Exists reports whether a store file is present at path
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Open opens the store at path, creating it if needed. The store starts
// Locked.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}

	initialized, err := db.IsInitialized()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read database: %w", err)
	}
	if !initialized {
		if err := db.Initialize(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	id, err := db.GetStoreID()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read store id: %w", err)
	}

	s := &Store{
		db:         db,
		id:         id,
		log:        logging.Nop(),
		now:        time.Now,
		interrupts: &interrupts{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("store", id)
	if !initialized {
		s.log.Info(context.Background(), "store created", "path", path)
	}

	return s, nil
}

// ID returns the random identifier assigned when the store file was created
func (s *Store) ID() string {
	return s.id
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.db.Path()
}

// Modified returns when the database was last written
func (s *Store) Modified() (time.Time, error) {
	if s.closed.Load() {
		return time.Time{}, ErrClosed
	}
	return s.db.GetModified()
}

// Stats returns call counters
func (s *Store) Stats() Stats {
	return Stats{Reads: s.reads.Load(), Writes: s.writes.Load()}
}

// NewInterruptHandle returns a handle that can cancel calls in progress
func (s *Store) NewInterruptHandle() (*InterruptHandle, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return &InterruptHandle{state: s.interrupts}, nil
}

// IsLocked reports whether the store is locked. A closed store is locked.
func (s *Store) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cipher == nil
}

// Unlock verifies key against the persisted key material and unlocks the
// store. A store that has never been unlocked adopts key.
func (s *Store) Unlock(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return fmt.Errorf("%w: %w", ErrMismatchedLock, ErrClosed)
	}
	if s.cipher != nil {
		return fmt.Errorf("%w: store already unlocked", ErrMismatchedLock)
	}
	return s.unlockLocked(key)
}

// EnsureUnlocked unlocks the store unless it already is
func (s *Store) EnsureUnlocked(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrClosed
	}
	if s.cipher != nil {
		return nil
	}
	return s.unlockLocked(key)
}

func (s *Store) unlockLocked(key []byte) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}

	km, err := s.db.GetKeyMaterial()
	if errors.Is(err, storage.ErrNoKeyMaterial) {
		c, km, err := s.newKey(key)
		if err != nil {
			return err
		}
		if err := s.db.SetKeyMaterial(*km); err != nil {
			c.Destroy()
			return fmt.Errorf("failed to store key material: %w", err)
		}
		s.cipher = c
		s.log.Info(context.Background(), "store key set")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read key material: %w", err)
	}

	kdf := &crypto.KDF{Salt: km.Salt, Iterations: int(km.Iterations)}
	derived := kdf.DeriveKey(key)
	defer crypto.ClearBytes(derived)

	c, err := crypto.NewCipher(derived)
	if err != nil {
		return err
	}
	if !c.VerifyKeyCheck(km.Check) {
		c.Destroy()
		return ErrInvalidKey
	}

	s.cipher = c
	return nil
}

// newKey derives a cipher for key under a fresh salt
func (s *Store) newKey(key []byte) (*crypto.Cipher, *storage.KeyMaterial, error) {
	kdf, err := crypto.NewKDF(s.iterations)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create KDF: %w", err)
	}

	derived := kdf.DeriveKey(key)
	defer crypto.ClearBytes(derived)

	c, err := crypto.NewCipher(derived)
	if err != nil {
		return nil, nil, err
	}
	check, err := c.NewKeyCheck()
	if err != nil {
		c.Destroy()
		return nil, nil, fmt.Errorf("failed to create key check: %w", err)
	}

	return c, &storage.KeyMaterial{
		Salt:       kdf.Salt,
		Iterations: uint32(kdf.Iterations),
		Check:      check,
	}, nil
}

// Lock forgets the derived key
func (s *Store) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return fmt.Errorf("%w: %w", ErrMismatchedLock, ErrClosed)
	}
	if s.cipher == nil {
		return fmt.Errorf("%w: store already locked", ErrMismatchedLock)
	}
	s.lockLocked()
	return nil
}

// EnsureLocked locks the store unless it already is
func (s *Store) EnsureLocked() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrClosed
	}
	s.lockLocked()
	return nil
}

func (s *Store) lockLocked() {
	if s.cipher != nil {
		s.cipher.Destroy()
		s.cipher = nil
	}
}

// Close locks the store and releases the database. Only the first call does
// any work; later calls return nil.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lockLocked()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// ChangeKey re-seals every record under newKey and replaces the key
// material. The store must be unlocked and stays unlocked.
func (s *Store) ChangeKey(ctx context.Context, newKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return err
	}
	if len(newKey) == 0 {
		return ErrInvalidKey
	}

	next, km, err := s.newKey(newKey)
	if err != nil {
		return err
	}

	sc := s.interrupts.begin(ctx)
	err = s.db.Update(func(tx *storage.Tx) error {
		records, err := s.loadAll(tx, sc)
		if err != nil {
			return err
		}
		for i := range records {
			if err := putRecord(tx, next, &records[i]); err != nil {
				return err
			}
		}
		return tx.PutKeyMaterial(*km)
	})
	if err != nil {
		next.Destroy()
		return err
	}

	s.cipher.Destroy()
	s.cipher = next
	s.writes.Add(1)
	s.log.Info(ctx, "store key changed")
	return nil
}

// Compact rewrites the database file to reclaim free pages
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Compact()
}

// checkUnlocked must run before any validation or storage work
func (s *Store) checkUnlocked() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.cipher == nil {
		return ErrLocked
	}
	return nil
}

// nowMillis returns the current time in milliseconds since the epoch
func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

// update runs fn in a write transaction and counts it as a write on success
func (s *Store) update(fn func(*storage.Tx) error) error {
	if err := s.db.Update(fn); err != nil {
		return err
	}
	s.writes.Add(1)
	return nil
}

// view runs fn in a read transaction and counts it as a read on success
func (s *Store) view(fn func(*storage.Tx) error) error {
	if err := s.db.View(fn); err != nil {
		return err
	}
	s.reads.Add(1)
	return nil
}

package core

import "errors"

var (
	ErrNotInitialized = errors.New("login store not initialized")
	ErrAlreadyExists  = errors.New("login store already exists")

	ErrMismatchedLock = errors.New("mismatched lock")
	ErrLocked         = errors.New("store not unlocked")
	ErrClosed         = errors.New("store consumed")
	ErrInvalidKey     = errors.New("invalid key")

	ErrNoSuchRecord  = errors.New("no such record")
	ErrIDCollision   = errors.New("id already in use")
	ErrNonEmptyStore = errors.New("import requires an empty store")

	ErrSyncAuthInvalid = errors.New("sync credentials rejected")
	ErrRequestFailed   = errors.New("sync request failed")
	ErrInterrupted     = errors.New("operation interrupted")

	ErrHandleClosed = errors.New("handle already closed")
)

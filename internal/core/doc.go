// Package core provides the lock-gated login store.
//
// A Store moves through three states:
//   - Locked: the initial state; only Unlock, EnsureUnlocked and Close succeed
//   - Unlocked: records can be read, written and synced
//   - Closed: terminal; every call fails with ErrClosed
//
// Record operations:
//   - Add/Update/AddOrUpdate/Touch/Delete: validated single-record mutations
//   - Get/List/GetByHostname/GetByBaseDomain: read-only queries
//   - Wipe/WipeLocal/Reset: bulk operations with different sync effects
//   - ImportMultiple: bulk load into an empty store
//
// All calls on one Store are serialized by a single mutex. Long-running calls
// can be cancelled from another goroutine with an InterruptHandle, which never
// takes that mutex.
//
// Sync is delegated to a Synchronizer. The store hands it a SyncSession for
// reading outgoing changes and applying incoming ones, and returns the
// resulting SyncTelemetry.
package core

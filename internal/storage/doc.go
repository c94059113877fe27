// Package storage provides the BBolt database interface for loginstore.
//
// Database structure uses four buckets:
//   - config: KDF parameters (salt, iterations), sealed key check, store id,
//     timestamps (unencrypted)
//   - logins: sealed login records keyed by record id
//   - tombstones: ids deleted locally that still have to reach the remote
//   - syncmeta: last sync time and the sync collaborator's opaque state
//
// Records and sync bookkeeping live in separate buckets so that each can be
// cleared without touching the other.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage

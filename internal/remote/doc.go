// Package remote implements a core.Synchronizer against a remote copy kept
// in a directory, typically a shared or mounted folder.
//
// The remote copy is a BBolt file (remote.db) holding one sealed envelope per
// record id plus a metadata entry:
//   - sync id: random, changes only when the remote copy is recreated
//   - KDF salt, iterations and a sealed key check for the sync key
//   - server time: the highest modification stamp handed out so far
//
// Access is gated by an HS256 JWT signed with the sync key whose kid header
// names the key id. Record payloads are sealed with a key derived from the
// sync key, so the remote directory never holds plaintext.
package remote

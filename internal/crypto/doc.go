// Package crypto provides cryptographic operations for loginstore.
//
// Records are sealed with AES-256-GCM:
//   - 32-byte key derived from the store key via PBKDF2
//   - 12-byte random nonce per seal, prepended to the ciphertext
//   - Authenticated encryption prevents tampering
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 32-byte random salt (stored unencrypted)
//   - 210,000 iterations by default (OWASP minimum recommendation)
//
// A sealed key check value lets the store reject a wrong key before any
// record is read.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Cipher.Destroy() when the store is locked or closed
package crypto

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize     = 32     // Salt size in bytes
	KeySize      = 32     // AES-256 key size
	NonceSize    = 12     // GCM nonce size
	TagSize      = 16     // GCM authentication tag size
	DefaultIters = 210000 // Default PBKDF2 iterations (OWASP minimum)
	MinIters     = 1000   // Lower bound accepted from configuration
)

// keyCheckPlaintext is sealed with the store key at creation time. Opening
// it later is how a supplied key is verified.
const keyCheckPlaintext = "loginstore-key-check"

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrDestroyed         = errors.New("cipher destroyed")
)

// KDF handles key derivation from passwords
type KDF struct {
	Salt       []byte
	Iterations int
}

// NewKDF creates a new KDF with a random salt. A non-positive iteration
// count selects DefaultIters.
func NewKDF(iterations int) (*KDF, error) {
	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if iterations <= 0 {
		iterations = DefaultIters
	}
	if iterations < MinIters {
		iterations = MinIters
	}

	return &KDF{
		Salt:       salt,
		Iterations: iterations,
	}, nil
}

// DeriveKey derives an encryption key from a password
func (k *KDF) DeriveKey(password []byte) []byte {
	return pbkdf2.Key(password, k.Salt, k.Iterations, KeySize, sha256.New)
}

// Cipher seals and opens byte slices with AES-256-GCM. The nonce is
// prepended to every sealed value.
type Cipher struct {
	key  []byte
	aead cipher.AEAD
}

// NewCipher creates a cipher bound to key. The cipher keeps its own copy of
// the key so callers may clear theirs.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size %d", len(key))
	}
	own := append([]byte(nil), key...)

	block, err := aes.NewCipher(own)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cipher{key: own, aead: aead}, nil
}

// Seal encrypts and authenticates plaintext
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	if c.aead == nil {
		return nil, ErrDestroyed
	}

	nonce, err := GenerateRandom(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	copy(out, nonce)
	return c.aead.Seal(out, nonce, plaintext, nil), nil
}

// Open verifies and decrypts a value produced by Seal
func (c *Cipher) Open(sealed []byte) ([]byte, error) {
	if c.aead == nil {
		return nil, ErrDestroyed
	}
	if len(sealed) < NonceSize+TagSize {
		return nil, ErrInvalidCiphertext
	}

	plaintext, err := c.aead.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// SealJSON marshals v and seals the result. The intermediate plaintext is
// cleared before returning.
func (c *Cipher) SealJSON(v any) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	defer ClearBytes(plaintext)
	return c.Seal(plaintext)
}

// OpenJSON opens sealed and unmarshals it into v
func (c *Cipher) OpenJSON(sealed []byte, v any) error {
	plaintext, err := c.Open(sealed)
	if err != nil {
		return err
	}
	defer ClearBytes(plaintext)
	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}

// NewKeyCheck returns the value persisted next to the salt so a key can be
// verified without touching any record.
func (c *Cipher) NewKeyCheck() ([]byte, error) {
	sum := sha256.Sum256([]byte(keyCheckPlaintext))
	return c.Seal(sum[:])
}

// VerifyKeyCheck reports whether check was produced by a cipher using the
// same key as c.
func (c *Cipher) VerifyKeyCheck(check []byte) bool {
	plaintext, err := c.Open(check)
	if err != nil {
		return false
	}
	sum := sha256.Sum256([]byte(keyCheckPlaintext))
	return ConstantTimeCompare(plaintext, sum[:])
}

// Destroy clears the cipher's key from memory. Seal and Open fail afterwards.
func (c *Cipher) Destroy() {
	ClearBytes(c.key)
	c.aead = nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

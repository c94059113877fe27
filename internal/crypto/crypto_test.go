package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func testCipher(t *testing.T, password string) *Cipher {
	t.Helper()
	kdf := &KDF{Salt: bytes.Repeat([]byte{7}, SaltSize), Iterations: MinIters}
	key := kdf.DeriveKey([]byte(password))
	defer ClearBytes(key)

	c, err := NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}
	return c
}

func TestSealOpen(t *testing.T) {
	c := testCipher(t, "secret")
	defer c.Destroy()

	sealed, err := c.Seal([]byte("hello"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if len(sealed) != NonceSize+len("hello")+TagSize {
		t.Errorf("unexpected sealed length %d", len(sealed))
	}

	plain, err := c.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if string(plain) != "hello" {
		t.Errorf("got %q, want hello", plain)
	}
}

func TestOpenWithWrongKey(t *testing.T) {
	a := testCipher(t, "one")
	b := testCipher(t, "two")

	sealed, err := a.Seal([]byte("data"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if _, err := b.Open(sealed); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
	if _, err := b.Open([]byte("short")); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestKeyCheck(t *testing.T) {
	a := testCipher(t, "right")
	b := testCipher(t, "wrong")

	check, err := a.NewKeyCheck()
	if err != nil {
		t.Fatalf("NewKeyCheck failed: %v", err)
	}
	if !a.VerifyKeyCheck(check) {
		t.Error("key check should verify with the same key")
	}
	if b.VerifyKeyCheck(check) {
		t.Error("key check should not verify with a different key")
	}
}

func TestSealJSON(t *testing.T) {
	c := testCipher(t, "json")

	type payload struct {
		Name string `json:"name"`
	}
	sealed, err := c.SealJSON(payload{Name: "x"})
	if err != nil {
		t.Fatalf("SealJSON failed: %v", err)
	}

	var out payload
	if err := c.OpenJSON(sealed, &out); err != nil {
		t.Fatalf("OpenJSON failed: %v", err)
	}
	if out.Name != "x" {
		t.Errorf("got %q, want x", out.Name)
	}
}

func TestDestroy(t *testing.T) {
	c := testCipher(t, "gone")
	c.Destroy()

	if _, err := c.Seal([]byte("x")); !errors.Is(err, ErrDestroyed) {
		t.Errorf("expected ErrDestroyed, got %v", err)
	}
	for _, b := range c.key {
		if b != 0 {
			t.Fatal("key was not cleared")
		}
	}
}

func TestNewKDF(t *testing.T) {
	kdf, err := NewKDF(0)
	if err != nil {
		t.Fatalf("NewKDF failed: %v", err)
	}
	if kdf.Iterations != DefaultIters {
		t.Errorf("got %d iterations, want %d", kdf.Iterations, DefaultIters)
	}
	if len(kdf.Salt) != SaltSize {
		t.Errorf("got salt size %d", len(kdf.Salt))
	}

	low, err := NewKDF(10)
	if err != nil {
		t.Fatalf("NewKDF failed: %v", err)
	}
	if low.Iterations != MinIters {
		t.Errorf("got %d iterations, want %d", low.Iterations, MinIters)
	}
}

package core

import (
	"fmt"
	"os"

	"github.com/illarion/loginstore/internal/crypto"
	"golang.org/x/term"
)

// ReadKey reads a store key from the terminal without echoing
func ReadKey(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	if len(key) == 0 {
		return nil, ErrInvalidKey
	}

	return key, nil
}

// ReadKeyConfirm reads a key twice and ensures both entries match
func ReadKeyConfirm() ([]byte, error) {
	key1, err := ReadKey("Enter key: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(key1)

	key2, err := ReadKey("Confirm key: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(key2)

	if !crypto.ConstantTimeCompare(key1, key2) {
		return nil, fmt.Errorf("keys do not match")
	}

	return append([]byte(nil), key1...), nil
}

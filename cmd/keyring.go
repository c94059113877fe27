package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/loginstore/internal/config"
	"github.com/illarion/loginstore/internal/core"
	"github.com/illarion/loginstore/internal/crypto"
	"github.com/illarion/loginstore/internal/keyring"
)

// KeyringSave saves the store key to the OS keyring
func KeyringSave(cfg *config.Config) {
	store := openStore(cfg)
	defer store.Close()

	key := []byte(cfg.Key)
	if len(key) == 0 {
		var err error
		if key, err = core.ReadKey("Enter key: "); err != nil {
			HandleError(err)
		}
	}
	defer crypto.ClearBytes(key)

	// Verify key is correct
	if err := store.Unlock(key); err != nil {
		HandleError(err)
	}

	if err := keyring.SaveKey(store.ID(), string(key)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Key saved to keyring")
}

// KeyringDelete removes the store key from the OS keyring
func KeyringDelete(cfg *config.Config) {
	store := openStore(cfg)
	defer store.Close()

	if !keyring.HasKey(store.ID()) {
		fmt.Println("No key stored in keyring")
		return
	}
	if err := keyring.DeleteKey(store.ID()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to remove from keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Key removed from keyring")
}

// KeyringStatus checks if a key is stored in the keyring
func KeyringStatus(cfg *config.Config) {
	store := openStore(cfg)
	defer store.Close()

	if keyring.HasKey(store.ID()) {
		fmt.Println("Key: stored in keyring")
	} else {
		fmt.Println("Key: not stored")
	}
}

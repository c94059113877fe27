package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/loginstore/internal/config"
	"github.com/illarion/loginstore/internal/core"
	"github.com/illarion/loginstore/internal/crypto"
	"github.com/illarion/loginstore/internal/keyring"
)

// Passwd changes the store key
func Passwd(ctx context.Context, cfg *config.Config) {
	store := openUnlocked(cfg)
	defer store.Close()

	// Get new key
	fmt.Fprintln(os.Stderr, "New key:")
	newKey, err := core.ReadKeyConfirm()
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(newKey)

	if err := store.ChangeKey(ctx, newKey); err != nil {
		HandleError(err)
	}

	// Keep an existing keyring entry in step with the new key
	if keyring.HasKey(store.ID()) {
		if err := keyring.SaveKey(store.ID(), string(newKey)); err == nil {
			fmt.Println("Keyring updated with new key")
		} else {
			fmt.Fprintf(os.Stderr, "warning: failed to update keyring: %s\n", err)
		}
	}

	// Compact database after rewriting all data
	if err := store.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}

	fmt.Println("key changed successfully")
}

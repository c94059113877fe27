package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/loginstore/internal/config"
	"github.com/illarion/loginstore/internal/core"
	"github.com/illarion/loginstore/internal/keyring"
)

// Status shows store metadata. Does not require the key.
func Status(cfg *config.Config) {
	if !core.Exists(cfg.Path) {
		fmt.Printf("No login store found at %s\n", cfg.Path)
		fmt.Println("Run 'loginstore init' to create one")
		return
	}

	info, err := os.Stat(cfg.Path)
	if err != nil {
		HandleError(err)
	}

	store := openStore(cfg)
	defer store.Close()

	fmt.Printf("Store:    %s (%s)\n", cfg.Path, formatSize(info.Size()))
	fmt.Printf("ID:       %s\n", store.ID())
	if modified, err := store.Modified(); err == nil {
		fmt.Printf("Modified: %s\n", modified.Format("2006-01-02 15:04:05"))
	}
	if keyring.HasKey(store.ID()) {
		fmt.Println("Keyring:  key stored")
	} else {
		fmt.Println("Keyring:  no key stored")
	}
	if cfg.HasSyncCredentials() {
		fmt.Printf("Sync:     %s\n", cfg.SyncURL)
	} else {
		fmt.Println("Sync:     not configured")
	}
}

package cmd

import (
	"fmt"

	"github.com/illarion/loginstore/internal/config"
	"github.com/illarion/loginstore/internal/core"
	"github.com/illarion/loginstore/internal/crypto"
)

// Init creates a new store and sets its key
func Init(cfg *config.Config) {
	if core.Exists(cfg.Path) {
		HandleError(core.ErrAlreadyExists)
	}

	// Read key (env var or prompt with confirmation)
	key, err := GetKeyForInit(cfg)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(key)

	store, err := core.Open(cfg.Path, storeOptions(cfg, newLogger(cfg))...)
	if err != nil {
		HandleError(err)
	}
	defer store.Close()

	if err := store.Unlock(key); err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Initialized %s\n", cfg.Path)
}

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/illarion/loginstore/internal/config"
	"github.com/illarion/loginstore/internal/core"
	"github.com/illarion/loginstore/internal/crypto"
	"github.com/illarion/loginstore/internal/keyring"
	"github.com/illarion/loginstore/internal/logging"
	"github.com/illarion/loginstore/internal/login"
)

// LoadConfig reads the environment configuration or exits
func LoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewText(os.Stderr, cfg.LogLevel)
}

func storeOptions(cfg *config.Config, log logging.Logger) []core.Option {
	opts := []core.Option{core.WithLogger(log)}
	if cfg.KDFIterations > 0 {
		opts = append(opts, core.WithIterations(cfg.KDFIterations))
	}
	return opts
}

// openStore opens the existing store at the configured path, still locked
func openStore(cfg *config.Config, extra ...core.Option) *core.Store {
	if !core.Exists(cfg.Path) {
		HandleError(core.ErrNotInitialized)
	}

	store, err := core.Open(cfg.Path, append(storeOptions(cfg, newLogger(cfg)), extra...)...)
	if err != nil {
		HandleError(err)
	}
	return store
}

// openUnlocked opens the store and unlocks it
func openUnlocked(cfg *config.Config, extra ...core.Option) *core.Store {
	store := openStore(cfg, extra...)
	if err := unlock(store, cfg); err != nil {
		store.Close()
		HandleError(err)
	}
	return store
}

// unlock tries LOGINSTORE_KEY, then the OS keyring, then a prompt. A keyring
// entry that no longer opens the store is removed before prompting.
func unlock(store *core.Store, cfg *config.Config) error {
	if cfg.Key != "" {
		return store.Unlock([]byte(cfg.Key))
	}

	if cached, err := keyring.GetKey(store.ID()); err == nil {
		err := store.Unlock([]byte(cached))
		if err == nil {
			return nil
		}
		if !errors.Is(err, core.ErrInvalidKey) {
			return err
		}
		fmt.Fprintln(os.Stderr, "Key in keyring is stale, removing it")
		if err := keyring.DeleteKey(store.ID()); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to remove stale keyring entry: %s\n", err)
		}
	}

	key, err := core.ReadKey("Enter key: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(key)

	return store.Unlock(key)
}

// GetKeyForInit returns LOGINSTORE_KEY or prompts twice
func GetKeyForInit(cfg *config.Config) ([]byte, error) {
	if cfg.Key != "" {
		return []byte(cfg.Key), nil
	}
	return core.ReadKeyConfirm()
}

// HandleError prints err in a user-facing form and exits
func HandleError(err error) {
	var invalid *login.InvalidRecordError
	switch {
	case errors.Is(err, core.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: login store not initialized\n")
		fmt.Fprintf(os.Stderr, "Run 'loginstore init' first\n")
	case errors.Is(err, core.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: login store already exists\n")
		fmt.Fprintf(os.Stderr, "Use 'loginstore status' to see current state\n")
	case errors.Is(err, core.ErrInvalidKey):
		fmt.Fprintf(os.Stderr, "Error: wrong key\n")
	case errors.As(err, &invalid):
		fmt.Fprintf(os.Stderr, "Error: %s (%s)\n", invalid, invalid.Reason)
	case errors.Is(err, core.ErrNoSuchRecord):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use 'loginstore ls' to see stored logins\n")
	case errors.Is(err, core.ErrNonEmptyStore):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Run 'loginstore wipe-local' first to replace the stored logins\n")
	case errors.Is(err, core.ErrSyncAuthInvalid):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Check LOGINSTORE_SYNC_KEY, LOGINSTORE_SYNC_KID and LOGINSTORE_SYNC_TOKEN\n")
	case errors.Is(err, core.ErrInterrupted):
		fmt.Fprintf(os.Stderr, "Interrupted\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

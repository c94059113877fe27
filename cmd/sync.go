package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/illarion/loginstore/internal/config"
	"github.com/illarion/loginstore/internal/core"
	"github.com/illarion/loginstore/internal/remote"
)

func unlockInfo(cfg *config.Config) (core.UnlockInfo, error) {
	if !cfg.HasSyncCredentials() {
		return core.UnlockInfo{}, fmt.Errorf("%w: LOGINSTORE_SYNC_URL, LOGINSTORE_SYNC_KEY and LOGINSTORE_SYNC_KID must be set", core.ErrSyncAuthInvalid)
	}

	token := cfg.SyncToken
	if token == "" {
		var err error
		if token, err = remote.IssueToken(cfg.SyncKey, cfg.SyncKeyID, cfg.SyncTokenTTL); err != nil {
			return core.UnlockInfo{}, fmt.Errorf("failed to issue sync token: %w", err)
		}
	}

	return core.UnlockInfo{
		KeyID:          cfg.SyncKeyID,
		AccessToken:    token,
		SyncKey:        cfg.SyncKey,
		TokenServerURL: cfg.SyncURL,
	}, nil
}

// Sync reconciles the store with the configured remote copy. Ctrl-C cancels
// a sync in progress.
func Sync(ctx context.Context, cfg *config.Config) {
	info, err := unlockInfo(cfg)
	if err != nil {
		HandleError(err)
	}

	log := newLogger(cfg)
	opts := []remote.Option{remote.WithLogger(log)}
	if cfg.KDFIterations > 0 {
		opts = append(opts, remote.WithIterations(cfg.KDFIterations))
	}

	store := openUnlocked(cfg, core.WithSynchronizer(remote.NewClient(opts...)))
	defer store.Close()

	tel, err := store.Sync(ctx, info)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Synced in %s\n", tel.Took.Round(time.Millisecond))
	fmt.Printf("  incoming: %d applied, %d reconciled, %d failed\n",
		tel.Incoming.Applied, tel.Incoming.Reconciled, tel.Incoming.Failed)
	fmt.Printf("  outgoing: %d sent, %d failed\n", tel.Outgoing.Sent, tel.Outgoing.Failed)
}

// Token prints a fresh access token for the configured sync key
func Token(cfg *config.Config) {
	if cfg.SyncKey == "" || cfg.SyncKeyID == "" {
		fmt.Fprintf(os.Stderr, "Error: LOGINSTORE_SYNC_KEY and LOGINSTORE_SYNC_KID must be set\n")
		os.Exit(1)
	}

	token, err := remote.IssueToken(cfg.SyncKey, cfg.SyncKeyID, cfg.SyncTokenTTL)
	if err != nil {
		HandleError(err)
	}
	fmt.Println(token)
}

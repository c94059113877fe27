package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/loginstore/internal/config"
)

// Remove deletes logins by id
func Remove(ctx context.Context, cfg *config.Config, ids []string) {
	if len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "Error: rm requires at least one id\n")
		fmt.Fprintf(os.Stderr, "Usage: loginstore rm <id> [id...]\n")
		os.Exit(1)
	}

	store := openUnlocked(cfg)
	defer store.Close()

	for _, id := range ids {
		existed, err := store.Delete(ctx, id)
		if err != nil {
			HandleError(err)
		}
		if existed {
			fmt.Printf("✓ Removed %s\n", id)
		} else {
			fmt.Printf("  %s not found\n", id)
		}
	}
}

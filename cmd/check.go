package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/loginstore/internal/config"
	"github.com/illarion/loginstore/internal/login"
)

// Check validates a login against the store without saving it
func Check(ctx context.Context, cfg *config.Config, r login.Record) {
	store := openUnlocked(cfg)
	defer store.Close()

	if err := store.EnsureValid(ctx, r); err != nil {
		HandleError(err)
	}
	fmt.Println("✓ Login is valid")
}

// Dupes lists stored logins for the same site and target as r, whatever
// their username, with a diff against r.
func Dupes(ctx context.Context, cfg *config.Config, r login.Record) {
	store := openUnlocked(cfg)
	defer store.Close()

	dupes, err := store.PotentialDupesIgnoringUsername(ctx, r)
	if err != nil {
		HandleError(err)
	}
	if len(dupes) == 0 {
		fmt.Println("No potential duplicates")
		return
	}

	fmt.Printf("%d potential duplicate(s):\n", len(dupes))
	for i := range dupes {
		fmt.Println()
		if d := login.Diff(&dupes[i], &r); d != "" {
			fmt.Print(d)
		} else {
			fmt.Printf("%s is identical\n", dupes[i].ID)
		}
	}
}

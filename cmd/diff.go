package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/loginstore/internal/config"
	"github.com/illarion/loginstore/internal/core"
	"github.com/illarion/loginstore/internal/login"
)

// Diff compares two stored logins field by field
func Diff(ctx context.Context, cfg *config.Config, idA, idB string) {
	store := openUnlocked(cfg)
	defer store.Close()

	a := mustGet(ctx, store, idA)
	b := mustGet(ctx, store, idB)

	d := login.Diff(a, b)
	if d == "" {
		fmt.Fprintln(os.Stderr, "No differences")
		return
	}
	fmt.Print(d)
}

func mustGet(ctx context.Context, store *core.Store, id string) *login.Record {
	r, err := store.Get(ctx, id)
	if err != nil {
		HandleError(err)
	}
	if r == nil {
		HandleError(fmt.Errorf("%w: %s", core.ErrNoSuchRecord, id))
	}
	return r
}

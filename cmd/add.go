package cmd

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/illarion/loginstore/internal/config"
	"github.com/illarion/loginstore/internal/core"
	"github.com/illarion/loginstore/internal/crypto"
	"github.com/illarion/loginstore/internal/login"
)

// promptPassword fills in an empty password from the terminal. Without a
// terminal the record is left as is and validation reports it.
func promptPassword(r *login.Record) {
	if r.Password != "" || !term.IsTerminal(int(os.Stdin.Fd())) {
		return
	}
	pw, err := core.ReadKey("Login password: ")
	if err != nil {
		return
	}
	r.Password = string(pw)
	crypto.ClearBytes(pw)
}

// Add stores a new login, or saves over the matching one when upsert is set
func Add(ctx context.Context, cfg *config.Config, r login.Record, upsert bool) {
	promptPassword(&r)

	store := openUnlocked(cfg)
	defer store.Close()

	if upsert {
		saved, err := store.AddOrUpdate(ctx, r)
		if err != nil {
			HandleError(err)
		}
		fmt.Printf("✓ Saved %s\n", saved.ID)
		return
	}

	if dupes, err := store.PotentialDupesIgnoringUsername(ctx, r); err == nil && len(dupes) > 0 {
		fmt.Fprintf(os.Stderr, "note: %d other login(s) stored for this site\n", len(dupes))
	}

	id, err := store.Add(ctx, r)
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("✓ Added %s\n", id)
}

// Update replaces the login with r.ID. Flags left empty keep their stored
// value.
func Update(ctx context.Context, cfg *config.Config, r login.Record) {
	if r.ID == "" {
		fmt.Fprintf(os.Stderr, "Error: update requires -id\n")
		os.Exit(1)
	}

	store := openUnlocked(cfg)
	defer store.Close()

	cur, err := store.Get(ctx, r.ID)
	if err != nil {
		HandleError(err)
	}
	if cur == nil {
		HandleError(fmt.Errorf("%w: %s", core.ErrNoSuchRecord, r.ID))
	}

	next := merge(*cur, r)
	if err := store.Update(ctx, next); err != nil {
		HandleError(err)
	}

	if d := login.Diff(cur, &next); d != "" {
		fmt.Print(d)
	}
	fmt.Printf("✓ Updated %s\n", r.ID)
}

// merge overlays the non-empty fields of patch on cur. Setting one target
// clears the other.
func merge(cur, patch login.Record) login.Record {
	if patch.Hostname != "" {
		cur.Hostname = patch.Hostname
	}
	if patch.Username != "" {
		cur.Username = patch.Username
	}
	if patch.Password != "" {
		cur.Password = patch.Password
	}
	if patch.HTTPRealm != "" {
		cur.HTTPRealm = patch.HTTPRealm
		cur.FormSubmitURL = ""
	}
	if patch.FormSubmitURL != "" {
		cur.FormSubmitURL = patch.FormSubmitURL
		cur.HTTPRealm = ""
	}
	if patch.UsernameField != "" {
		cur.UsernameField = patch.UsernameField
	}
	if patch.PasswordField != "" {
		cur.PasswordField = patch.PasswordField
	}
	return cur
}

// Touch records one use of each login
func Touch(ctx context.Context, cfg *config.Config, ids []string) {
	if len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "Error: touch requires at least one id\n")
		os.Exit(1)
	}

	store := openUnlocked(cfg)
	defer store.Close()

	for _, id := range ids {
		if err := store.Touch(ctx, id); err != nil {
			HandleError(err)
		}
	}
}

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/illarion/loginstore/internal/config"
)

// confirm asks a yes/no question on stderr
func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// Wipe deletes every login. The deletions reach the remote copy on the next
// sync.
func Wipe(ctx context.Context, cfg *config.Config, force bool) {
	if !force && !confirm("Delete every login here and on the remote copy?") {
		fmt.Println("Aborted")
		return
	}

	store := openUnlocked(cfg)
	defer store.Close()

	if err := store.Wipe(ctx); err != nil {
		HandleError(err)
	}
	fmt.Println("✓ Wiped all logins")
}

// WipeLocal deletes every login and all sync state from this machine only
func WipeLocal(ctx context.Context, cfg *config.Config, force bool) {
	if !force && !confirm("Delete every login from this machine? The remote copy is kept.") {
		fmt.Println("Aborted")
		return
	}

	store := openUnlocked(cfg)
	defer store.Close()

	if err := store.WipeLocal(ctx); err != nil {
		HandleError(err)
	}
	fmt.Println("✓ Wiped local logins")
}

// Reset forgets sync state so the next sync uploads everything again
func Reset(ctx context.Context, cfg *config.Config) {
	store := openUnlocked(cfg)
	defer store.Close()

	if err := store.Reset(ctx); err != nil {
		HandleError(err)
	}
	fmt.Println("✓ Sync state reset")
}

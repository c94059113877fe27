package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/illarion/loginstore/internal/config"
	"github.com/illarion/loginstore/internal/core"
	"github.com/illarion/loginstore/internal/login"
)

// Get prints one login
func Get(ctx context.Context, cfg *config.Config, id string, showPassword bool) {
	store := openUnlocked(cfg)
	defer store.Close()

	r, err := store.Get(ctx, id)
	if err != nil {
		HandleError(err)
	}
	if r == nil {
		HandleError(fmt.Errorf("%w: %s", core.ErrNoSuchRecord, id))
	}

	fmt.Printf("id: %s\n", r.ID)
	fmt.Print(login.Render(r, showPassword))
	fmt.Printf("timesUsed: %d\n", r.TimesUsed)
	fmt.Printf("created: %s\n", formatMillis(r.TimeCreated))
	fmt.Printf("lastUsed: %s\n", formatMillis(r.TimeLastUsed))
	fmt.Printf("passwordChanged: %s\n", formatMillis(r.TimePasswordChanged))
}

// Find prints logins stored for a hostname, or for a domain and its
// sub-domains.
func Find(ctx context.Context, cfg *config.Config, hostname, domain string) {
	if (hostname == "") == (domain == "") {
		fmt.Fprintf(os.Stderr, "Error: find requires exactly one of -host or -domain\n")
		os.Exit(1)
	}

	store := openUnlocked(cfg)
	defer store.Close()

	var (
		records []login.Record
		err     error
	)
	if hostname != "" {
		records, err = store.GetByHostname(ctx, hostname)
	} else {
		records, err = store.GetByBaseDomain(ctx, domain)
	}
	if err != nil {
		HandleError(err)
	}

	printRecords(records)
}

func printRecords(records []login.Record) {
	if len(records) == 0 {
		fmt.Println("No logins found")
		return
	}
	for _, r := range records {
		user := r.Username
		if user == "" {
			user = "(no username)"
		}
		fmt.Printf("  %s  %s  %s  [%s]\n", r.ID, r.Hostname, user, r.Target())
	}
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format(time.RFC3339)
}

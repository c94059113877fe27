package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/illarion/loginstore/internal/config"
	"github.com/illarion/loginstore/internal/login"
)

// Ls lists stored logins. A non-empty pattern keeps only logins whose host
// matches it, e.g. "*.example.com" or "{github,gitlab}.com".
func Ls(ctx context.Context, cfg *config.Config, pattern string) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		fmt.Fprintf(os.Stderr, "Error: invalid pattern %q\n", pattern)
		os.Exit(1)
	}

	store := openUnlocked(cfg)
	defer store.Close()

	records, err := store.List(ctx)
	if err != nil {
		HandleError(err)
	}

	if pattern != "" {
		records = filterHosts(records, pattern)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Hostname != records[j].Hostname {
			return records[i].Hostname < records[j].Hostname
		}
		return records[i].Username < records[j].Username
	})

	fmt.Printf("Logins in %s:\n", cfg.Path)
	printRecords(records)
}

// filterHosts keeps records whose hostname host matches pattern
func filterHosts(records []login.Record, pattern string) []login.Record {
	var out []login.Record
	for _, r := range records {
		host := r.Hostname
		if u, err := url.Parse(r.Hostname); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
		if ok, _ := doublestar.Match(pattern, host); ok {
			out = append(out, r)
		}
	}
	return out
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/illarion/loginstore/internal/config"
	"github.com/illarion/loginstore/internal/login"
)

// Import loads a JSON array of logins from path ("-" for stdin) into an empty
// store.
func Import(ctx context.Context, cfg *config.Config, path string) {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			HandleError(err)
		}
		defer f.Close()
		in = f
	}

	var records []login.Record
	if err := json.NewDecoder(in).Decode(&records); err != nil {
		HandleError(fmt.Errorf("failed to parse %s: %w", path, err))
	}

	store := openUnlocked(cfg)
	defer store.Close()

	metrics, err := store.ImportMultiple(ctx, records)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Imported %d of %d logins in %s\n", metrics.Succeeded, metrics.Total, metrics.Took.Round(time.Millisecond))
	for _, f := range metrics.Failures {
		fmt.Printf("  skipped #%d: %s\n", f.Index, f.Reason)
	}
}

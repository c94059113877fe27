package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/loginstore/internal/config"
)

// Compact compacts the store database to reclaim unused space
func Compact(cfg *config.Config) {
	store := openStore(cfg)
	defer store.Close()

	// Get file size before
	info, err := os.Stat(cfg.Path)
	if err != nil {
		HandleError(err)
	}
	sizeBefore := info.Size()

	if err := store.Compact(); err != nil {
		HandleError(err)
	}

	// Get file size after
	info, err = os.Stat(cfg.Path)
	if err != nil {
		HandleError(err)
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
}

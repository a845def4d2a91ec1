package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobsift/jobsift/internal/browse"
	"github.com/jobsift/jobsift/internal/cache"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse cached results interactively (TUI)",
	Long:  "Loads the result cache and opens a split-pane browser over its entries.",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// A TUI owns the terminal; any log output corrupts the display.
	silent := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := openSQLiteCache(cfg, silent)
	if err != nil {
		fmt.Printf("Failed to open cache: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	entries, err := browse.RunLoader(func(ctx context.Context) ([]cache.Entry, error) {
		return c.Entries()
	})
	if err != nil {
		fmt.Printf("Error loading cache entries: %v\n", err)
		os.Exit(1)
	}

	return browse.RunBrowser(entries)
}

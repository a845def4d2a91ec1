package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache statistics",
	RunE:  runCacheStats,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired cache entries",
	RunE:  runCachePrune,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cache entries",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, logCleanup := setupLogger(cfg, debug)
	defer logCleanup()

	c, err := openSQLiteCache(cfg, logger)
	if err != nil {
		logger.Error("failed to open cache", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	stats, err := c.Stats()
	if err != nil {
		logger.Error("failed to read cache stats", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Path:     %s\n", cfg.Cache.Path)
	fmt.Printf("Entries:  %d\n", stats.Entries)
	fmt.Printf("Size:     %s of %d MB\n", humanize.Bytes(uint64(stats.TotalBytes)), cfg.Cache.MaxSizeMB)
	if !stats.Oldest.IsZero() {
		fmt.Printf("Oldest:   %s\n", humanize.Time(stats.Oldest))
		fmt.Printf("Newest:   %s\n", humanize.Time(stats.Newest))
	}
	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, logCleanup := setupLogger(cfg, debug)
	defer logCleanup()

	c, err := openSQLiteCache(cfg, logger)
	if err != nil {
		logger.Error("failed to open cache", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	removed, err := c.ClearExpired()
	if err != nil {
		logger.Error("failed to prune cache", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %d expired entries\n", removed)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, logCleanup := setupLogger(cfg, debug)
	defer logCleanup()

	c, err := openSQLiteCache(cfg, logger)
	if err != nil {
		logger.Error("failed to open cache", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	if err := c.ClearAll(); err != nil {
		logger.Error("failed to clear cache", "error", err)
		os.Exit(1)
	}
	fmt.Println("Cache cleared")
	return nil
}

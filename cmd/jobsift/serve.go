package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jobsift/jobsift/internal/api"
	"github.com/jobsift/jobsift/internal/config"
	"github.com/jobsift/jobsift/internal/progress"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis API server",
	Long:  "Serves the analysis and cache admin API; blocks until SIGINT/SIGTERM.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, logCleanup := setupLogger(cfg, debug)
	defer logCleanup()

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	resultCache, closeCache, err := openCache(cfg, logger)
	if err != nil {
		logger.Error("failed to open cache", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	backend, err := buildBackend(cfg, logger)
	if err != nil {
		logger.Error("failed to build backend", "error", err)
		os.Exit(1)
	}

	runs := buildProgressStore(cfg, logger)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	factory := newAnalyzerFactory(cfg, resultCache, backend, logger)
	server := api.NewServer(addr, buildOptions(cfg), cfg.Analysis.DescriptionMaxLength, factory, resultCache, runs, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}

// buildProgressStore prefers Redis when configured and falls back to memory
// when it is unreachable, so the server still starts.
func buildProgressStore(cfg *config.Config, logger *slog.Logger) progress.Store {
	if cfg.Progress.RedisURL == "" {
		return progress.NewMemoryStore(cfg.Progress.TTL)
	}
	rs, err := progress.NewRedisStore(cfg.Progress.RedisURL, cfg.Progress.TTL)
	if err != nil {
		logger.Warn("redis unreachable, tracking runs in memory", "error", err)
		return progress.NewMemoryStore(cfg.Progress.TTL)
	}
	logger.Info("tracking runs in redis")
	return rs
}

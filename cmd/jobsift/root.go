package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobsift/jobsift/internal/ai"
	"github.com/jobsift/jobsift/internal/api"
	"github.com/jobsift/jobsift/internal/cache"
	"github.com/jobsift/jobsift/internal/config"
	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/pipeline"
	"github.com/jobsift/jobsift/internal/ratelimit"
	"github.com/jobsift/jobsift/internal/retry"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobsift",
	Short: "Job posting analysis pipeline",
	Long:  "JobSift extracts salary estimates from job postings, ranks them against a resume, and caches results so repeat runs stay cheap.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSIFT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBSIFT_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBSIFT_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(cfg *config.Config, dbg bool) (*slog.Logger, func() error) {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return config.SetupLogger(cfg.Log.File, logLevel)
}

// openCache returns the configured result cache. With caching disabled it
// hands back a no-op cache, so callers never see a nil.
func openCache(cfg *config.Config, logger *slog.Logger) (model.ResultCache, func() error, error) {
	if !cfg.Cache.Enabled {
		return cache.NewNopCache(), func() error { return nil }, nil
	}

	c, err := openSQLiteCache(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Cache.CleanupOnStartup {
		if removed, err := c.ClearExpired(); err != nil {
			logger.Warn("startup cache cleanup failed", "error", err)
		} else if removed > 0 {
			logger.Info("removed expired cache entries", "count", removed)
		}
	}
	return c, c.Close, nil
}

// openSQLiteCache opens the cache file directly, ignoring cache.enabled. The
// admin and browse commands operate on the file even when runs don't use it.
func openSQLiteCache(cfg *config.Config, logger *slog.Logger) (*cache.SQLiteCache, error) {
	return cache.NewSQLiteCache(cfg.Cache.Path, cfg.Cache.MaxSizeMB, cfg.Cache.ExpirationDays, logger)
}

// buildBackend assembles the model backend chain: the provider client wrapped
// with request pacing, wrapped with retries, so every retry attempt is paced.
func buildBackend(cfg *config.Config, logger *slog.Logger) (ai.Backend, error) {
	var base ai.Backend
	switch cfg.Backend.Provider {
	case "openai":
		httpClient := &http.Client{Timeout: cfg.Backend.Timeout}
		base = ai.NewOpenAIBackend(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Model, httpClient)
	default:
		lc, err := ai.NewLangChainBackend(cfg.Backend.Provider, cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Model)
		if err != nil {
			return nil, err
		}
		base = lc
	}

	pacer := ratelimit.NewPacer(cfg.Analysis.RequestDelay)
	paced := ratelimit.NewPacedBackend(base, pacer)
	return retry.NewBackend(paced, cfg.Backend.MaxRetries, 5*time.Second, logger), nil
}

// newAnalyzerFactory returns a factory that assembles the pipeline for one run
// around the given reporter. The backend is shared across runs so concurrent
// runs respect the global request delay.
func newAnalyzerFactory(cfg *config.Config, resultCache model.ResultCache, backend ai.Backend, logger *slog.Logger) api.AnalyzerFactory {
	return func(r pipeline.Reporter) api.Analyzer {
		extractor := ai.NewSalaryExtractor(backend, cfg.Analysis.ConfidenceThreshold, logger)
		ranker := ai.NewSimilarityRanker(backend, logger)
		sched := pipeline.NewScheduler(extractor, ranker, r, logger)
		return pipeline.NewOrchestrator(resultCache, sched, r, logger)
	}
}

func buildOptions(cfg *config.Config) model.AnalysisOptions {
	return model.AnalysisOptions{
		Enabled:             cfg.Analysis.Enabled,
		ExtractSalary:       cfg.Analysis.ExtractSalary,
		RankBySimilarity:    cfg.Analysis.RankBySimilarity,
		MaxJobs:             cfg.Analysis.MaxJobs,
		ConfidenceThreshold: cfg.Analysis.ConfidenceThreshold,
		BatchSize:           cfg.Analysis.BatchSize,
		Parallel:            cfg.Analysis.Parallel,
		MaxParallelBatches:  cfg.Analysis.MaxParallelBatches,
		RequestDelay:        cfg.Analysis.RequestDelay,
		CacheResults:        cfg.Cache.Enabled,
	}
}

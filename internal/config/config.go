package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the jobsift pipeline.
type Config struct {
	Log      LogConfig
	Analysis AnalysisConfig
	Backend  BackendConfig
	Cache    CacheConfig
	Progress ProgressConfig
	Server   ServerConfig
}

// LogConfig controls logger output. Text always goes to stderr; when File is
// set, JSON records are additionally appended there.
type LogConfig struct {
	File string
}

// AnalysisConfig holds the tunables for one analyze invocation.
type AnalysisConfig struct {
	Enabled              bool
	ExtractSalary        bool
	RankBySimilarity     bool
	MaxJobs              int
	ConfidenceThreshold  float64
	BatchSize            int
	Parallel             bool
	MaxParallelBatches   int
	RequestDelay         time.Duration
	DescriptionMaxLength int
}

// BackendConfig selects and configures the model backend.
type BackendConfig struct {
	Provider   string        // "openai", "ollama" or "anthropic"
	BaseURL    string        // defaults to https://api.openai.com/v1 for openai
	Model      string        // model identifier, e.g. "gpt-4o-mini"
	APIKey     string        // expanded from env var by Load
	Timeout    time.Duration // per-request timeout
	MaxRetries int           // extra attempts after the first failure
}

// CacheConfig bounds the analysis result cache.
type CacheConfig struct {
	Enabled          bool
	Path             string
	MaxSizeMB        int
	ExpirationDays   int
	CleanupOnStartup bool
}

// ProgressConfig selects the run-progress store.
type ProgressConfig struct {
	RedisURL string // in-memory store when empty
	TTL      time.Duration
}

// ServerConfig configures the admin/analysis HTTP server.
type ServerConfig struct {
	Addr string
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultServerAddr    = ":8090"
	defaultCachePath     = "analysis_cache.db"
)

// rawConfig is used for YAML unmarshaling (snake_case fields, durations as strings).
type rawConfig struct {
	Log      rawLogConfig      `yaml:"log"`
	Analysis rawAnalysisConfig `yaml:"analysis"`
	Backend  rawBackendConfig  `yaml:"backend"`
	Cache    rawCacheConfig    `yaml:"cache"`
	Progress rawProgressConfig `yaml:"progress"`
	Server   rawServerConfig   `yaml:"server"`
}

type rawLogConfig struct {
	File string `yaml:"file"`
}

type rawAnalysisConfig struct {
	Enabled              *bool    `yaml:"enabled"`
	ExtractSalary        *bool    `yaml:"extract_salary"`
	RankBySimilarity     *bool    `yaml:"rank_by_similarity"`
	MaxJobs              *int     `yaml:"max_jobs_to_analyze"`
	ConfidenceThreshold  *float64 `yaml:"confidence_threshold"`
	BatchSize            *int     `yaml:"batch_size"`
	Parallel             bool     `yaml:"parallel_processing"`
	MaxParallelBatches   *int     `yaml:"max_parallel_batches"`
	RequestDelay         string   `yaml:"request_delay"`
	DescriptionMaxLength *int     `yaml:"description_max_length"`
}

type rawBackendConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	Timeout    string `yaml:"timeout"`
	MaxRetries *int   `yaml:"max_retries"`
}

type rawCacheConfig struct {
	Enabled          *bool  `yaml:"enabled"`
	Path             string `yaml:"path"`
	MaxSizeMB        *int   `yaml:"max_size_mb"`
	ExpirationDays   *int   `yaml:"expiration_days"`
	CleanupOnStartup *bool  `yaml:"cleanup_on_startup"`
}

type rawProgressConfig struct {
	RedisURL string `yaml:"redis_url"`
	TTL      string `yaml:"ttl"`
}

type rawServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads and parses the YAML config file at path, applies defaults,
// validates the result, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{
		Log: LogConfig{File: raw.Log.File},
		Analysis: AnalysisConfig{
			Enabled:              boolOr(raw.Analysis.Enabled, true),
			ExtractSalary:        boolOr(raw.Analysis.ExtractSalary, true),
			RankBySimilarity:     boolOr(raw.Analysis.RankBySimilarity, true),
			MaxJobs:              intOr(raw.Analysis.MaxJobs, 25),
			ConfidenceThreshold:  floatOr(raw.Analysis.ConfidenceThreshold, 0.6),
			BatchSize:            intOr(raw.Analysis.BatchSize, 5),
			Parallel:             raw.Analysis.Parallel,
			MaxParallelBatches:   intOr(raw.Analysis.MaxParallelBatches, 3),
			DescriptionMaxLength: intOr(raw.Analysis.DescriptionMaxLength, 500),
		},
		Backend: BackendConfig{
			Provider:   stringOr(raw.Backend.Provider, "openai"),
			BaseURL:    raw.Backend.BaseURL,
			Model:      raw.Backend.Model,
			APIKey:     raw.Backend.APIKey,
			MaxRetries: intOr(raw.Backend.MaxRetries, 2),
		},
		Cache: CacheConfig{
			Enabled:          boolOr(raw.Cache.Enabled, true),
			Path:             stringOr(raw.Cache.Path, defaultCachePath),
			MaxSizeMB:        intOr(raw.Cache.MaxSizeMB, 50),
			ExpirationDays:   intOr(raw.Cache.ExpirationDays, 7),
			CleanupOnStartup: boolOr(raw.Cache.CleanupOnStartup, true),
		},
		Progress: ProgressConfig{RedisURL: raw.Progress.RedisURL},
		Server:   ServerConfig{Addr: stringOr(raw.Server.Addr, defaultServerAddr)},
	}

	cfg.Analysis.RequestDelay, err = durationOr(raw.Analysis.RequestDelay, time.Second, "analysis.request_delay")
	if err != nil {
		return nil, err
	}
	cfg.Backend.Timeout, err = durationOr(raw.Backend.Timeout, 60*time.Second, "backend.timeout")
	if err != nil {
		return nil, err
	}
	cfg.Progress.TTL, err = durationOr(raw.Progress.TTL, time.Hour, "progress.ttl")
	if err != nil {
		return nil, err
	}

	if cfg.Backend.Provider == "openai" && cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = defaultOpenAIBaseURL
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	a := cfg.Analysis
	if a.MaxJobs < 1 {
		return fmt.Errorf("analysis.max_jobs_to_analyze must be positive, got %d", a.MaxJobs)
	}
	if a.BatchSize < 1 {
		return fmt.Errorf("analysis.batch_size must be positive, got %d", a.BatchSize)
	}
	if a.ConfidenceThreshold < 0 || a.ConfidenceThreshold > 1 {
		return fmt.Errorf("analysis.confidence_threshold must be in [0,1], got %v", a.ConfidenceThreshold)
	}
	if a.Parallel && a.MaxParallelBatches < 1 {
		return fmt.Errorf("analysis.max_parallel_batches must be positive when parallel_processing is on, got %d", a.MaxParallelBatches)
	}
	if a.RequestDelay < 0 {
		return fmt.Errorf("analysis.request_delay must not be negative, got %v", a.RequestDelay)
	}
	if a.DescriptionMaxLength < 1 {
		return fmt.Errorf("analysis.description_max_length must be positive, got %d", a.DescriptionMaxLength)
	}

	if a.Enabled {
		b := cfg.Backend
		switch b.Provider {
		case "openai", "anthropic":
			if b.APIKey == "" {
				return fmt.Errorf("backend.api_key is required for provider %q when analysis is enabled", b.Provider)
			}
		case "ollama":
			// Local server, no key.
		default:
			return fmt.Errorf("backend.provider must be openai, ollama or anthropic, got %q", b.Provider)
		}
		if b.Model == "" {
			return fmt.Errorf("backend.model is required when analysis is enabled")
		}
	}

	if cfg.Cache.Enabled {
		if cfg.Cache.MaxSizeMB < 1 {
			return fmt.Errorf("cache.max_size_mb must be positive, got %d", cfg.Cache.MaxSizeMB)
		}
		if cfg.Cache.ExpirationDays < 1 {
			return fmt.Errorf("cache.expiration_days must be positive, got %d", cfg.Cache.ExpirationDays)
		}
	}

	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func durationOr(raw string, def time.Duration, field string) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

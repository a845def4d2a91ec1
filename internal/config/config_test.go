package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
analysis:
  enabled: true
  max_jobs_to_analyze: 10
  confidence_threshold: 0.7
  batch_size: 4
  parallel_processing: true
  max_parallel_batches: 2
  request_delay: 2s
backend:
  provider: openai
  model: gpt-4o-mini
  api_key: test-key
cache:
  max_size_mb: 10
  expiration_days: 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analysis.MaxJobs != 10 {
		t.Errorf("MaxJobs = %d, want 10", cfg.Analysis.MaxJobs)
	}
	if cfg.Analysis.ConfidenceThreshold != 0.7 {
		t.Errorf("ConfidenceThreshold = %v, want 0.7", cfg.Analysis.ConfidenceThreshold)
	}
	if cfg.Analysis.RequestDelay != 2*time.Second {
		t.Errorf("RequestDelay = %v, want 2s", cfg.Analysis.RequestDelay)
	}
	if !cfg.Analysis.Parallel || cfg.Analysis.MaxParallelBatches != 2 {
		t.Errorf("parallel settings = %v/%d, want true/2", cfg.Analysis.Parallel, cfg.Analysis.MaxParallelBatches)
	}
	if cfg.Backend.BaseURL != defaultOpenAIBaseURL {
		t.Errorf("BaseURL = %q, want default openai URL", cfg.Backend.BaseURL)
	}
	if cfg.Cache.MaxSizeMB != 10 || cfg.Cache.ExpirationDays != 3 {
		t.Errorf("cache bounds = %d MB / %d days, want 10/3", cfg.Cache.MaxSizeMB, cfg.Cache.ExpirationDays)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
backend:
  model: gpt-4o-mini
  api_key: test-key
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Analysis.Enabled || !cfg.Analysis.ExtractSalary || !cfg.Analysis.RankBySimilarity {
		t.Error("analysis toggles should default to enabled")
	}
	if cfg.Analysis.BatchSize != 5 {
		t.Errorf("BatchSize default = %d, want 5", cfg.Analysis.BatchSize)
	}
	if cfg.Analysis.MaxJobs != 25 {
		t.Errorf("MaxJobs default = %d, want 25", cfg.Analysis.MaxJobs)
	}
	if cfg.Analysis.DescriptionMaxLength != 500 {
		t.Errorf("DescriptionMaxLength default = %d, want 500", cfg.Analysis.DescriptionMaxLength)
	}
	if cfg.Cache.Path != defaultCachePath {
		t.Errorf("cache path default = %q, want %q", cfg.Cache.Path, defaultCachePath)
	}
	if cfg.Progress.TTL != time.Hour {
		t.Errorf("progress TTL default = %v, want 1h", cfg.Progress.TTL)
	}
	if cfg.Server.Addr != defaultServerAddr {
		t.Errorf("server addr default = %q, want %q", cfg.Server.Addr, defaultServerAddr)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("JOBSIFT_TEST_KEY", "secret-from-env")
	path := writeConfig(t, `
backend:
  model: gpt-4o-mini
  api_key: ${JOBSIFT_TEST_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.APIKey != "secret-from-env" {
		t.Errorf("APIKey = %q, want expanded env value", cfg.Backend.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "analysis: [broken")
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	path := writeConfig(t, `
backend:
  provider: openai
  model: gpt-4o-mini
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error when api_key is missing for openai")
	}
}

func TestLoad_OllamaNeedsNoKey(t *testing.T) {
	path := writeConfig(t, `
backend:
  provider: ollama
  model: llama3
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: ollama without api_key should pass validation, got %v", err)
	}
}

func TestLoad_UnknownProvider(t *testing.T) {
	path := writeConfig(t, `
backend:
  provider: carrier-pigeon
  model: x
  api_key: k
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error for unknown provider")
	}
}

func TestLoad_BadConfidenceThreshold(t *testing.T) {
	path := writeConfig(t, `
analysis:
  confidence_threshold: 1.5
backend:
  model: gpt-4o-mini
  api_key: k
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error for threshold outside [0,1]")
	}
}

func TestLoad_ZeroBatchSize(t *testing.T) {
	path := writeConfig(t, `
analysis:
  batch_size: 0
backend:
  model: gpt-4o-mini
  api_key: k
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error for zero batch_size")
	}
}

func TestLoad_DisabledAnalysisSkipsBackendValidation(t *testing.T) {
	path := writeConfig(t, `
analysis:
  enabled: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: disabled analysis should not require backend settings, got %v", err)
	}
	if cfg.Analysis.Enabled {
		t.Error("Enabled = true, want false")
	}
}

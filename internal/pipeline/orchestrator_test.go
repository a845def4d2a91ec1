package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jobsift/jobsift/internal/model"
)

// countingCache is a map-backed ResultCache tracking operation counts.
type countingCache struct {
	mu        sync.Mutex
	entries   map[model.Fingerprint]model.AnalysisResult
	lookups   int
	stores    int
	lookupErr error
	storeErr  error
}

func newCountingCache() *countingCache {
	return &countingCache{entries: make(map[model.Fingerprint]model.AnalysisResult)}
}

func (c *countingCache) Lookup(fp model.Fingerprint) (*model.AnalysisResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	if c.lookupErr != nil {
		return nil, c.lookupErr
	}
	if r, ok := c.entries[fp]; ok {
		return &r, nil
	}
	return nil, nil
}

func (c *countingCache) Store(fp model.Fingerprint, result model.AnalysisResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores++
	if c.storeErr != nil {
		return c.storeErr
	}
	c.entries[fp] = result
	return nil
}

func (c *countingCache) ClearExpired() (int, error)       { return 0, nil }
func (c *countingCache) ClearAll() error                  { return nil }
func (c *countingCache) Stats() (model.CacheStats, error) { return model.CacheStats{}, nil }

func (c *countingCache) ops() (lookups, stores int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups, c.stores
}

func newTestOrchestrator(cache model.ResultCache, extractor SalaryExtractor) *Orchestrator {
	sched := NewScheduler(extractor, nil, NopReporter{}, discardLogger())
	return NewOrchestrator(cache, sched, NopReporter{}, discardLogger())
}

func TestAnalyze_DisabledReturnsSkippedWithoutCacheAccess(t *testing.T) {
	cache := newCountingCache()
	extractor := &mockExtractor{}
	o := newTestOrchestrator(cache, extractor)

	opts := salaryOpts(5)
	opts.Enabled = false
	opts.CacheResults = true

	results, err := o.Analyze(context.Background(), makePostings("a", "b", "c"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range results {
		if r.Status != model.StatusSkipped {
			t.Errorf("result %d status = %q, want skipped", i, r.Status)
		}
	}
	if lookups, stores := cache.ops(); lookups != 0 || stores != 0 {
		t.Errorf("cache touched while disabled: %d lookups, %d stores", lookups, stores)
	}
	if len(extractor.batches) != 0 {
		t.Error("scheduler ran while disabled")
	}
}

func TestAnalyze_SimilarityWithoutResumeIsFatal(t *testing.T) {
	o := newTestOrchestrator(newCountingCache(), &mockExtractor{})

	opts := salaryOpts(5)
	opts.RankBySimilarity = true
	opts.Resume = nil

	_, err := o.Analyze(context.Background(), makePostings("a"), opts)
	if !errors.Is(err, model.ErrResumeRequired) {
		t.Fatalf("err = %v, want ErrResumeRequired", err)
	}
}

func TestAnalyze_TruncatesToMaxJobs(t *testing.T) {
	cache := newCountingCache()
	extractor := &mockExtractor{}
	o := newTestOrchestrator(cache, extractor)

	opts := salaryOpts(5)
	opts.MaxJobs = 2
	opts.CacheResults = true

	results, err := o.Analyze(context.Background(), makePostings("a", "b", "c", "d", "e"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if results[i].Status != model.StatusAnalyzed {
			t.Errorf("result %d status = %q, want analyzed", i, results[i].Status)
		}
	}
	for i := 2; i < 5; i++ {
		if results[i].Status != model.StatusSkipped {
			t.Errorf("result %d status = %q, want skipped", i, results[i].Status)
		}
	}
	if lookups, _ := cache.ops(); lookups != 2 {
		t.Errorf("lookups = %d, want 2 (skipped postings never reach the cache)", lookups)
	}
	if sizes := extractor.batchSizes(); len(sizes) != 1 || sizes[0] != 2 {
		t.Errorf("scheduled batch sizes = %v, want [2]", sizes)
	}
}

func TestAnalyze_SecondCallServedFromCache(t *testing.T) {
	cache := newCountingCache()
	extractor := &mockExtractor{fn: estimatesByTitle(map[string]float64{"a": 100000, "b": 120000})}
	o := newTestOrchestrator(cache, extractor)

	opts := salaryOpts(5)
	opts.CacheResults = true
	postings := makePostings("a", "b")

	first, err := o.Analyze(context.Background(), postings, opts)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, stores := cache.ops(); stores != 2 {
		t.Fatalf("stores after first call = %d, want 2", stores)
	}

	second, err := o.Analyze(context.Background(), postings, opts)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if len(extractor.batches) != 1 {
		t.Errorf("extractor ran %d batches, want 1 (second call cached)", len(extractor.batches))
	}
	for i, r := range second {
		if r.Status != model.StatusFromCache {
			t.Errorf("second result %d status = %q, want from-cache", i, r.Status)
		}
		if r.Salary == nil || first[i].Salary == nil || r.Salary.Min != first[i].Salary.Min {
			t.Errorf("second result %d salary = %+v, want identical to first %+v", i, r.Salary, first[i].Salary)
		}
	}
}

func TestAnalyze_LookupErrorDegradesToMiss(t *testing.T) {
	cache := newCountingCache()
	cache.lookupErr = errors.New("database is locked")
	extractor := &mockExtractor{}
	o := newTestOrchestrator(cache, extractor)

	opts := salaryOpts(5)
	opts.CacheResults = true

	results, err := o.Analyze(context.Background(), makePostings("a", "b"), opts)
	if err != nil {
		t.Fatalf("cache failure must not fail the run: %v", err)
	}
	for i, r := range results {
		if r.Status != model.StatusAnalyzed {
			t.Errorf("result %d status = %q, want analyzed despite lookup error", i, r.Status)
		}
	}
}

func TestAnalyze_StoreErrorIsSwallowed(t *testing.T) {
	cache := newCountingCache()
	cache.storeErr = errors.New("disk full")
	o := newTestOrchestrator(cache, &mockExtractor{})

	opts := salaryOpts(5)
	opts.CacheResults = true

	results, err := o.Analyze(context.Background(), makePostings("a"), opts)
	if err != nil {
		t.Fatalf("store failure must not fail the run: %v", err)
	}
	if results[0].Status != model.StatusAnalyzed {
		t.Errorf("status = %q, want analyzed", results[0].Status)
	}
}

func TestAnalyze_FailedBatchesAreNotCached(t *testing.T) {
	cache := newCountingCache()
	extractor := &mockExtractor{fn: func(_ []model.JobPosting) ([]model.SalaryField, error) {
		return nil, errors.New("count mismatch")
	}}
	o := newTestOrchestrator(cache, extractor)

	opts := salaryOpts(5)
	opts.CacheResults = true

	results, err := o.Analyze(context.Background(), makePostings("a", "b"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range results {
		if r.Status != model.StatusFailed {
			t.Errorf("result %d status = %q, want analysis-failed", i, r.Status)
		}
	}
	if _, stores := cache.ops(); stores != 0 {
		t.Errorf("stores = %d, failed results must never be cached", stores)
	}
}

func TestAnalyze_LowConfidenceResultsAreCached(t *testing.T) {
	cache := newCountingCache()
	extractor := &mockExtractor{fn: func(postings []model.JobPosting) ([]model.SalaryField, error) {
		fields := make([]model.SalaryField, len(postings))
		for i := range fields {
			fields[i] = model.SalaryField{LowConfidence: true}
		}
		return fields, nil
	}}
	o := newTestOrchestrator(cache, extractor)

	opts := salaryOpts(5)
	opts.CacheResults = true
	postings := makePostings("a")

	if _, err := o.Analyze(context.Background(), postings, opts); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, stores := cache.ops(); stores != 1 {
		t.Fatalf("stores = %d, want 1 (low-confidence is a deterministic outcome)", stores)
	}

	second, err := o.Analyze(context.Background(), postings, opts)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second[0].Status != model.StatusFromCache {
		t.Errorf("second status = %q, want from-cache", second[0].Status)
	}
	if second[0].Salary != nil {
		t.Error("cached low-confidence result must not grow a salary")
	}
}

func TestAnalyze_MergeKeepsInputOrder(t *testing.T) {
	cache := newCountingCache()
	postings := makePostings("a", "b", "c")

	// Seed the cache for the middle posting only.
	cachedFp := model.ComputeFingerprint(postings[1])
	cache.entries[cachedFp] = model.AnalysisResult{
		Fingerprint: cachedFp,
		Status:      model.StatusAnalyzed,
		Salary:      &model.SalaryEstimate{Min: 99999, Max: 99999, Currency: "USD", Confidence: 0.9},
	}

	extractor := &mockExtractor{fn: estimatesByTitle(map[string]float64{"a": 100000, "c": 120000})}
	o := newTestOrchestrator(cache, extractor)

	opts := salaryOpts(5)
	opts.CacheResults = true

	results, err := o.Analyze(context.Background(), postings, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if results[0].Salary == nil || results[0].Salary.Min != 100000 {
		t.Errorf("result 0 = %+v, want fresh salary 100000", results[0].Salary)
	}
	if results[1].Status != model.StatusFromCache || results[1].Salary.Min != 99999 {
		t.Errorf("result 1 = %+v, want cached salary 99999", results[1])
	}
	if results[2].Salary == nil || results[2].Salary.Min != 120000 {
		t.Errorf("result 2 = %+v, want fresh salary 120000", results[2].Salary)
	}
	if sizes := extractor.batchSizes(); len(sizes) != 1 || sizes[0] != 2 {
		t.Errorf("scheduled batch sizes = %v, want [2] (only the misses)", sizes)
	}
}

func TestAnalyze_CacheDisabledByOptions(t *testing.T) {
	cache := newCountingCache()
	o := newTestOrchestrator(cache, &mockExtractor{})

	opts := salaryOpts(5)
	opts.CacheResults = false

	results, err := o.Analyze(context.Background(), makePostings("a", "b"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lookups, stores := cache.ops(); lookups != 0 || stores != 0 {
		t.Errorf("cache touched with caching off: %d lookups, %d stores", lookups, stores)
	}
	for i, r := range results {
		if r.Status != model.StatusAnalyzed {
			t.Errorf("result %d status = %q, want analyzed", i, r.Status)
		}
	}
}

func TestAnalyze_ReportsPhases(t *testing.T) {
	cache := newCountingCache()
	extractor := &mockExtractor{}
	reporter := &recordingReporter{}
	sched := NewScheduler(extractor, nil, reporter, discardLogger())
	o := NewOrchestrator(cache, sched, reporter, discardLogger())

	opts := salaryOpts(5)
	opts.CacheResults = true
	postings := makePostings("a", "b")

	if _, err := o.Analyze(context.Background(), postings, opts); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if len(reporter.phases) != 2 || reporter.phases[0] != PhaseInitializing || reporter.phases[1] != PhaseAnalyzing {
		t.Errorf("phases = %v, want [initializing analyzing]", reporter.phases)
	}

	// Fully cached second run never enters the analyzing phase.
	reporter.phases = nil
	if _, err := o.Analyze(context.Background(), postings, opts); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(reporter.phases) != 1 || reporter.phases[0] != PhaseInitializing {
		t.Errorf("phases = %v, want [initializing]", reporter.phases)
	}
}

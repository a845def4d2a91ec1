package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jobsift/jobsift/internal/model"
)

// Orchestrator owns one analysis invocation end to end:
// truncate → cache lookup → schedule misses → merge → write back.
type Orchestrator struct {
	cache    model.ResultCache
	sched    *Scheduler
	reporter Reporter
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator wired with its dependencies.
func NewOrchestrator(cache model.ResultCache, sched *Scheduler, reporter Reporter, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cache:    cache,
		sched:    sched,
		reporter: reporter,
		logger:   logger,
	}
}

// Analyze runs the pipeline over postings and returns one result per posting,
// in input order. Cache failures degrade to misses; only a missing resume
// with similarity ranking enabled is fatal. Results that represent a
// completed analysis are written back to the cache; failed batches are not,
// so a later run retries them.
func (o *Orchestrator) Analyze(ctx context.Context, postings []model.JobPosting, opts model.AnalysisOptions) ([]model.AnalysisResult, error) {
	results := make([]model.AnalysisResult, len(postings))

	if !opts.Enabled {
		for i, p := range postings {
			results[i] = model.AnalysisResult{
				Fingerprint: model.ComputeFingerprint(p),
				Status:      model.StatusSkipped,
			}
		}
		return results, nil
	}

	if opts.RankBySimilarity && opts.Resume == nil {
		return nil, model.ErrResumeRequired
	}

	runID := uuid.NewString()
	log := o.logger.With("run_id", runID)
	o.reporter.Phase(PhaseInitializing, fmt.Sprintf("preparing %d postings", len(postings)))

	// Postings beyond the limit never reach the cache or the scheduler.
	limit := len(postings)
	if opts.MaxJobs < limit {
		limit = opts.MaxJobs
		if limit < 0 {
			limit = 0
		}
		log.Info("truncating working set", "postings", len(postings), "max_jobs", limit)
	}
	for i := limit; i < len(postings); i++ {
		results[i] = model.AnalysisResult{
			Fingerprint: model.ComputeFingerprint(postings[i]),
			Status:      model.StatusSkipped,
		}
	}

	// Resolve each working posting against the cache. Lookup errors are
	// misses: a broken cache degrades to slower runs, never failed ones.
	var (
		pending    []model.JobPosting
		pendingIdx []int
		hits       int
	)
	for i := 0; i < limit; i++ {
		fp := model.ComputeFingerprint(postings[i])
		if opts.CacheResults {
			cached, err := o.cache.Lookup(fp)
			if err != nil {
				log.Warn("cache lookup failed, treating as miss",
					"fingerprint", fp.Short(),
					"error", err,
				)
			} else if cached != nil {
				r := *cached
				r.Status = model.StatusFromCache
				results[i] = r
				hits++
				continue
			}
		}
		pending = append(pending, postings[i])
		pendingIdx = append(pendingIdx, i)
	}

	if len(pending) > 0 {
		batchSize := opts.BatchSize
		if batchSize <= 0 {
			batchSize = 1
		}
		totalBatches := (len(pending) + batchSize - 1) / batchSize
		o.reporter.Phase(PhaseAnalyzing,
			fmt.Sprintf("analyzing %d postings in %d batches", len(pending), totalBatches))

		fresh := o.sched.Run(ctx, pending, opts)

		for j, r := range fresh {
			results[pendingIdx[j]] = r
			if opts.CacheResults && r.Cacheable() {
				if err := o.cache.Store(r.Fingerprint, r); err != nil {
					log.Warn("cache store failed",
						"fingerprint", r.Fingerprint.Short(),
						"error", err,
					)
				}
			}
		}
	}

	counts := make(map[model.Status]int, 5)
	for _, r := range results {
		counts[r.Status]++
	}
	log.Info("analysis run complete",
		"postings", len(postings),
		"from_cache", hits,
		"analyzed", counts[model.StatusAnalyzed],
		"low_confidence", counts[model.StatusLowConfidence],
		"failed", counts[model.StatusFailed],
		"skipped", counts[model.StatusSkipped],
	)

	return results, nil
}

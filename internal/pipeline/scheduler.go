package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jobsift/jobsift/internal/model"
)

// SalaryExtractor analyzes one batch of postings in a single model call and
// returns one field per posting, in input order.
type SalaryExtractor interface {
	ExtractBatch(ctx context.Context, postings []model.JobPosting) ([]model.SalaryField, error)
}

// SimilarityRanker scores one batch of postings against a resume profile in a
// single model call and returns one score per posting, in input order.
type SimilarityRanker interface {
	RankBatch(ctx context.Context, postings []model.JobPosting, resume model.ResumeProfile) ([]model.SimilarityScore, error)
}

// Scheduler partitions postings into fixed-size batches and runs the enabled
// passes over each batch, sequentially or with bounded parallelism.
type Scheduler struct {
	salary   SalaryExtractor
	ranker   SimilarityRanker
	reporter Reporter
	logger   *slog.Logger
}

// NewScheduler creates a scheduler wired with both analysis passes. Either
// pass may be nil if the corresponding option is never enabled.
func NewScheduler(salary SalaryExtractor, ranker SimilarityRanker, reporter Reporter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		salary:   salary,
		ranker:   ranker,
		reporter: reporter,
		logger:   logger,
	}
}

// span is one batch's region of the posting and result slices.
type span struct {
	start, end int
}

// Run analyzes postings and returns one result per posting, in input order.
// Each batch writes only its own region of the result slice, so parallel
// batches never contend and completion order cannot reorder results. A batch
// failure marks only that batch's members as failed; other batches proceed.
func (s *Scheduler) Run(ctx context.Context, postings []model.JobPosting, opts model.AnalysisOptions) []model.AnalysisResult {
	results := make([]model.AnalysisResult, len(postings))
	if len(postings) == 0 {
		return results
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	var batches []span
	for start := 0; start < len(postings); start += batchSize {
		end := start + batchSize
		if end > len(postings) {
			end = len(postings)
		}
		batches = append(batches, span{start: start, end: end})
	}

	var done atomic.Int32
	process := func(b span) {
		s.processBatch(ctx, postings[b.start:b.end], results[b.start:b.end], opts)
		s.reporter.BatchDone(int(done.Add(1)), len(batches))
	}

	if opts.Parallel && opts.MaxParallelBatches > 1 && len(batches) > 1 {
		sem := make(chan struct{}, opts.MaxParallelBatches)
		var wg sync.WaitGroup
		for _, b := range batches {
			wg.Add(1)
			go func(b span) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				process(b)
			}(b)
		}
		wg.Wait()
	} else {
		for _, b := range batches {
			process(b)
		}
	}

	return results
}

// processBatch runs the enabled passes over one batch, writing into out (the
// batch's region of the full result slice). A failed salary pass does not
// stop the similarity pass: the statuses are already final but a partial
// result still carries whatever the surviving pass produced.
func (s *Scheduler) processBatch(ctx context.Context, postings []model.JobPosting, out []model.AnalysisResult, opts model.AnalysisOptions) {
	now := time.Now()
	for i, p := range postings {
		out[i] = model.AnalysisResult{
			Fingerprint: model.ComputeFingerprint(p),
			Status:      model.StatusAnalyzed,
			AnalyzedAt:  now,
		}
	}

	if opts.ExtractSalary {
		fields, err := s.salary.ExtractBatch(ctx, postings)
		if err != nil {
			s.logger.Warn("salary extraction failed for batch",
				"batch_size", len(postings),
				"error", err,
			)
			for i := range out {
				out[i].Status = model.StatusFailed
			}
		} else {
			for i, f := range fields {
				switch {
				case f.LowConfidence:
					out[i].Status = model.StatusLowConfidence
				case f.Estimate != nil:
					out[i].Salary = f.Estimate
				}
			}
		}
	}

	if opts.RankBySimilarity && opts.Resume != nil {
		scores, err := s.ranker.RankBatch(ctx, postings, *opts.Resume)
		if err != nil {
			s.logger.Warn("similarity ranking failed for batch",
				"batch_size", len(postings),
				"error", err,
			)
			for i := range out {
				out[i].Status = model.StatusFailed
			}
		} else {
			for i := range scores {
				out[i].Similarity = &scores[i]
			}
		}
	}
}

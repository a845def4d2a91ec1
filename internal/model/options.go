package model

import "time"

// AnalysisOptions is the immutable parameter snapshot for one pipeline
// invocation. Built by the caller (CLI or API) from loaded config plus the
// resume profile; the pipeline never mutates it.
type AnalysisOptions struct {
	Enabled          bool
	ExtractSalary    bool
	RankBySimilarity bool
	Resume           *ResumeProfile // required when RankBySimilarity is set

	MaxJobs             int     // postings beyond this are skipped, in input order
	ConfidenceThreshold float64 // salary readings below this are discarded

	BatchSize          int
	Parallel           bool
	MaxParallelBatches int
	RequestDelay       time.Duration // minimum gap between model calls

	CacheResults bool
}

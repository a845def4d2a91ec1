package model

import "time"

// JobPosting is one scraped listing as delivered by the scraping layer.
// Immutable once handed to the pipeline.
type JobPosting struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"` // raw text, pre-truncated by the caller
	Location    string `json:"location"`
	URL         string `json:"url"`    // direct listing link
	Source      string `json:"source"` // site the posting came from
}

// ResumeProfile is the candidate profile similarity ranking scores against.
type ResumeProfile struct {
	Summary string   `json:"summary"`
	Skills  []string `json:"skills"`
}

// ResultCache maps posting fingerprints to previously computed analysis results.
// Lookup returns (nil, nil) on a miss; an expired entry counts as a miss and is
// removed lazily.
type ResultCache interface {
	Lookup(fp Fingerprint) (*AnalysisResult, error)
	Store(fp Fingerprint, result AnalysisResult) error
	ClearExpired() (int, error)
	ClearAll() error
	Stats() (CacheStats, error)
}

// CacheStats is the read-only diagnostic view of the cache.
type CacheStats struct {
	Entries    int       `json:"entries"`
	TotalBytes int64     `json:"total_bytes"`
	Oldest     time.Time `json:"oldest,omitzero"`
	Newest     time.Time `json:"newest,omitzero"`
}

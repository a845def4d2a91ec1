package model

import "time"

// Status records how a posting's analysis concluded.
type Status string

const (
	StatusAnalyzed      Status = "analyzed"
	StatusSkipped       Status = "skipped"
	StatusLowConfidence Status = "skipped-low-confidence"
	StatusFailed        Status = "analysis-failed"
	StatusFromCache     Status = "from-cache"
)

// SalaryEstimate is a pay range extracted from a posting description.
// Min == Max when the posting lists a single figure.
type SalaryEstimate struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Currency   string  `json:"currency"`
	Confidence float64 `json:"confidence"` // model-reported certainty in [0,1]
}

// SalaryField is the per-posting outcome of one salary-extraction batch.
// Estimate is nil when the posting lists no pay information, or when a
// reading was discarded by the confidence threshold (LowConfidence set).
type SalaryField struct {
	Estimate      *SalaryEstimate
	LowConfidence bool
}

// SimilarityScore is a posting's match against the supplied resume profile.
type SimilarityScore struct {
	Score               float64  `json:"score"` // normalized to [0,1]
	Explanation         string   `json:"explanation,omitempty"`
	KeyMatches          []string `json:"key_matches,omitempty"`
	MissingRequirements []string `json:"missing_requirements,omitempty"`
}

// AnalysisResult is the per-posting output of one pipeline invocation.
type AnalysisResult struct {
	Fingerprint Fingerprint      `json:"fingerprint"`
	Status      Status           `json:"status"`
	Salary      *SalaryEstimate  `json:"salary,omitempty"`
	Similarity  *SimilarityScore `json:"similarity,omitempty"`
	AnalyzedAt  time.Time        `json:"analyzed_at,omitzero"`
}

// Cacheable reports whether the result is a deterministic outcome worth
// persisting. Failed batches are never cached so a later run can retry them.
func (r AnalysisResult) Cacheable() bool {
	return r.Status == StatusAnalyzed || r.Status == StatusLowConfidence
}

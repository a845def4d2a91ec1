package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jobsift/jobsift/internal/model"
)

// similarityBatchSchema is the JSON Schema enforced server-side via
// structured outputs. The shape matches similarityBatch exactly.
var similarityBatchSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"results": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"score":       map[string]any{"type": "number"},
					"explanation": map[string]any{"type": "string"},
					"key_matches": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
					"missing_requirements": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				"required": []string{"score", "explanation", "key_matches", "missing_requirements"},
			},
		},
	},
	"required": []string{"results"},
}

// SimilarityRanker scores postings against a resume profile, one LLM call
// per batch.
type SimilarityRanker struct {
	backend Backend
	logger  *slog.Logger
}

// NewSimilarityRanker creates a ranker backed by the given LLM.
func NewSimilarityRanker(backend Backend, logger *slog.Logger) *SimilarityRanker {
	return &SimilarityRanker{
		backend: backend,
		logger:  logger,
	}
}

// RankBatch scores all postings against resume in a single LLM call and
// returns one score per posting, in input order. Scores outside [0,1] are
// clamped. A response that does not carry exactly one record per posting is
// an error; the caller treats that as a failure of the whole batch.
func (r *SimilarityRanker) RankBatch(ctx context.Context, postings []model.JobPosting, resume model.ResumeProfile) ([]model.SimilarityScore, error) {
	if len(postings) == 0 {
		return nil, nil
	}

	var promptBuf bytes.Buffer
	err := similarityTemplate.Execute(&promptBuf, struct {
		Summary  string
		Skills   string
		Count    int
		Postings []promptPosting
	}{
		Summary:  resume.Summary,
		Skills:   strings.Join(resume.Skills, ", "),
		Count:    len(postings),
		Postings: numberPostings(postings),
	})
	if err != nil {
		return nil, fmt.Errorf("render similarity prompt: %w", err)
	}

	raw, err := r.backend.Complete(ctx, Request{
		System:     "You are a careful technical recruiter comparing a candidate profile to job postings.",
		Prompt:     promptBuf.String(),
		SchemaName: "similarity_batch",
		Schema:     similarityBatchSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("llm complete: %w", err)
	}

	items, err := parseSimilarityBatch(raw, len(postings))
	if err != nil {
		return nil, err
	}

	scores := make([]model.SimilarityScore, len(postings))
	for i, item := range items {
		scores[i] = model.SimilarityScore{
			Score:               clamp01(item.Score),
			Explanation:         item.Explanation,
			KeyMatches:          item.KeyMatches,
			MissingRequirements: item.MissingRequirements,
		}
	}

	return scores, nil
}

// rawSimilarity is the JSON shape of one batch entry (matches
// similarityBatchSchema).
type rawSimilarity struct {
	Score               float64  `json:"score"`
	Explanation         string   `json:"explanation"`
	KeyMatches          []string `json:"key_matches"`
	MissingRequirements []string `json:"missing_requirements"`
}

type similarityBatch struct {
	Results []rawSimilarity `json:"results"`
}

func parseSimilarityBatch(raw string, want int) ([]rawSimilarity, error) {
	var batch similarityBatch
	if err := json.Unmarshal([]byte(stripFences(raw)), &batch); err != nil {
		return nil, fmt.Errorf("unmarshal similarity batch JSON: %w", err)
	}
	if len(batch.Results) != want {
		return nil, fmt.Errorf("similarity batch returned %d results for %d postings", len(batch.Results), want)
	}
	return batch.Results, nil
}

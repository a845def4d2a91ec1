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

// salaryBatchSchema is the JSON Schema enforced server-side via structured
// outputs. The shape matches salaryBatch exactly so the response can be
// parsed directly.
var salaryBatchSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"results": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"salary_min": map[string]any{"type": []string{"number", "null"}},
					"salary_max": map[string]any{"type": []string{"number", "null"}},
					"currency":   map[string]any{"type": "string"},
					"confidence": map[string]any{"type": "number"},
				},
				"required": []string{"salary_min", "salary_max", "currency", "confidence"},
			},
		},
	},
	"required": []string{"results"},
}

// SalaryExtractor pulls pay ranges out of posting descriptions, one LLM call
// per batch. Readings below the confidence threshold are discarded rather
// than surfaced as fact.
type SalaryExtractor struct {
	backend   Backend
	threshold float64
	logger    *slog.Logger
}

// NewSalaryExtractor creates an extractor that discards readings whose
// model-reported confidence falls below threshold.
func NewSalaryExtractor(backend Backend, threshold float64, logger *slog.Logger) *SalaryExtractor {
	return &SalaryExtractor{
		backend:   backend,
		threshold: threshold,
		logger:    logger,
	}
}

// ExtractBatch analyzes all postings in a single LLM call and returns one
// field per posting, in input order. A response that does not carry exactly
// one record per posting is an error; the caller treats that as a failure of
// the whole batch.
func (e *SalaryExtractor) ExtractBatch(ctx context.Context, postings []model.JobPosting) ([]model.SalaryField, error) {
	if len(postings) == 0 {
		return nil, nil
	}

	var promptBuf bytes.Buffer
	err := salaryTemplate.Execute(&promptBuf, struct {
		Count    int
		Postings []promptPosting
	}{
		Count:    len(postings),
		Postings: numberPostings(postings),
	})
	if err != nil {
		return nil, fmt.Errorf("render salary prompt: %w", err)
	}

	raw, err := e.backend.Complete(ctx, Request{
		System:     "You are a precise structured data extractor for job postings.",
		Prompt:     promptBuf.String(),
		SchemaName: "salary_batch",
		Schema:     salaryBatchSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("llm complete: %w", err)
	}

	items, err := parseSalaryBatch(raw, len(postings))
	if err != nil {
		return nil, err
	}

	fields := make([]model.SalaryField, len(postings))
	for i, item := range items {
		if item.SalaryMin == nil && item.SalaryMax == nil {
			// No pay information in the posting. Not a threshold discard.
			continue
		}

		est := model.SalaryEstimate{
			Currency:   item.Currency,
			Confidence: clamp01(item.Confidence),
		}
		if est.Currency == "" {
			est.Currency = "USD"
		}
		// One-sided ranges collapse to the single stated figure.
		switch {
		case item.SalaryMin != nil && item.SalaryMax != nil:
			est.Min, est.Max = *item.SalaryMin, *item.SalaryMax
		case item.SalaryMin != nil:
			est.Min, est.Max = *item.SalaryMin, *item.SalaryMin
		default:
			est.Min, est.Max = *item.SalaryMax, *item.SalaryMax
		}

		if est.Confidence < e.threshold {
			fields[i] = model.SalaryField{LowConfidence: true}
			e.logger.Debug("salary reading discarded by confidence threshold",
				"title", postings[i].Title,
				"confidence", est.Confidence,
				"threshold", e.threshold,
			)
			continue
		}

		fields[i] = model.SalaryField{Estimate: &est}
	}

	return fields, nil
}

// rawSalary is the JSON shape of one batch entry (matches salaryBatchSchema).
type rawSalary struct {
	SalaryMin  *float64 `json:"salary_min"`
	SalaryMax  *float64 `json:"salary_max"`
	Currency   string   `json:"currency"`
	Confidence float64  `json:"confidence"`
}

type salaryBatch struct {
	Results []rawSalary `json:"results"`
}

func parseSalaryBatch(raw string, want int) ([]rawSalary, error) {
	var batch salaryBatch
	if err := json.Unmarshal([]byte(stripFences(raw)), &batch); err != nil {
		return nil, fmt.Errorf("unmarshal salary batch JSON: %w", err)
	}
	if len(batch.Results) != want {
		return nil, fmt.Errorf("salary batch returned %d results for %d postings", len(batch.Results), want)
	}
	return batch.Results, nil
}

// stripFences removes a markdown code fence wrapper if present. Structured
// outputs never produce one, but Ollama and Anthropic models sometimes do.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

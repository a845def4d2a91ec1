package ai

import (
	_ "embed"
	"text/template"

	"github.com/jobsift/jobsift/internal/model"
)

//go:embed prompts/salary_extraction.md
var salaryPromptRaw string

//go:embed prompts/similarity_ranking.md
var similarityPromptRaw string

// Prompt templates are parsed once at package init and reused on every batch.
var (
	salaryTemplate     = template.Must(template.New("salary_extraction").Parse(salaryPromptRaw))
	similarityTemplate = template.Must(template.New("similarity_ranking").Parse(similarityPromptRaw))
)

// promptPosting is one numbered posting as rendered into a batch prompt.
// Indexes are 1-based so the model can track alignment.
type promptPosting struct {
	Index       int
	Title       string
	Company     string
	Description string
}

func numberPostings(postings []model.JobPosting) []promptPosting {
	out := make([]promptPosting, len(postings))
	for i, p := range postings {
		out[i] = promptPosting{
			Index:       i + 1,
			Title:       p.Title,
			Company:     p.Company,
			Description: p.Description,
		}
	}
	return out
}

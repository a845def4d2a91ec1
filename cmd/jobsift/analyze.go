package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/pipeline"
)

var (
	postingsPath string
	resumePath   string
	outPath      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze job postings from a file",
	Long:  "Reads a postings JSON file, runs salary extraction (and resume ranking when a resume is given), prints a summary.",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&postingsPath, "postings", "", "path to postings JSON file (required)")
	analyzeCmd.Flags().StringVar(&resumePath, "resume", "", "path to resume profile JSON file; enables similarity ranking")
	analyzeCmd.Flags().StringVar(&outPath, "out", "", "write results JSON to this path")
	analyzeCmd.MarkFlagRequired("postings")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, logCleanup := setupLogger(cfg, debug)
	defer logCleanup()

	postings, err := loadPostings(postingsPath)
	if err != nil {
		logger.Error("failed to load postings", "error", err)
		os.Exit(1)
	}
	postings = truncateDescriptions(postings, cfg.Analysis.DescriptionMaxLength)
	logger.Info("postings loaded", "count", len(postings), "path", postingsPath)

	opts := buildOptions(cfg)
	if resumePath != "" {
		resume, err := loadResume(resumePath)
		if err != nil {
			logger.Error("failed to load resume", "error", err)
			os.Exit(1)
		}
		opts.Resume = resume
		opts.RankBySimilarity = true
	}

	resultCache, closeCache, err := openCache(cfg, logger)
	if err != nil {
		logger.Error("failed to open cache", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	backend, err := buildBackend(cfg, logger)
	if err != nil {
		logger.Error("failed to build backend", "error", err)
		os.Exit(1)
	}

	reporter := &barReporter{}
	analyzer := newAnalyzerFactory(cfg, resultCache, backend, logger)(reporter)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := analyzer.Analyze(ctx, postings, opts)
	reporter.finish()
	if err != nil {
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	printSummary(postings, results)

	if outPath != "" {
		if err := writeResults(outPath, results); err != nil {
			logger.Error("failed to write results", "error", err)
			os.Exit(1)
		}
		logger.Info("results written", "path", outPath)
	}
	return nil
}

func loadPostings(path string) ([]model.JobPosting, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading postings file: %w", err)
	}
	var postings []model.JobPosting
	if err := json.Unmarshal(raw, &postings); err != nil {
		return nil, fmt.Errorf("parsing postings file: %w", err)
	}
	return postings, nil
}

func loadResume(path string) (*model.ResumeProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resume file: %w", err)
	}
	var resume model.ResumeProfile
	if err := json.Unmarshal(raw, &resume); err != nil {
		return nil, fmt.Errorf("parsing resume file: %w", err)
	}
	return &resume, nil
}

func truncateDescriptions(postings []model.JobPosting, maxLen int) []model.JobPosting {
	if maxLen <= 0 {
		return postings
	}
	for i := range postings {
		if len(postings[i].Description) > maxLen {
			postings[i].Description = postings[i].Description[:maxLen] + "..."
		}
	}
	return postings
}

func writeResults(path string, results []model.AnalysisResult) error {
	raw, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("writing results file: %w", err)
	}
	return nil
}

// barReporter renders batch progress as a terminal progress bar. The bar is
// created lazily on the first finished batch, so fully cached runs print
// nothing.
type barReporter struct {
	mu  sync.Mutex
	bar *pb.ProgressBar
}

func (r *barReporter) Phase(name, detail string) {
	if name == pipeline.PhaseAnalyzing {
		fmt.Println(detail)
	}
}

func (r *barReporter) BatchDone(completed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar == nil {
		r.bar = pb.StartNew(total)
	}
	r.bar.Increment()
}

func (r *barReporter) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		r.bar.Finish()
	}
}

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	summaryDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func printSummary(postings []model.JobPosting, results []model.AnalysisResult) {
	counts := make(map[model.Status]int)
	for _, r := range results {
		counts[r.Status]++
	}

	fmt.Println()
	fmt.Println(summaryTitleStyle.Render("Analysis Summary"))
	fmt.Println(summaryDimStyle.Render(fmt.Sprintf(
		"%d postings | %d analyzed | %d from cache | %d low-confidence | %d skipped | %d failed",
		len(results),
		counts[model.StatusAnalyzed],
		counts[model.StatusFromCache],
		counts[model.StatusLowConfidence],
		counts[model.StatusSkipped],
		counts[model.StatusFailed],
	)))
	fmt.Println()

	for i, r := range results {
		title := postings[i].Title
		if len(title) > 38 {
			title = title[:35] + "..."
		}
		line := fmt.Sprintf("  %-40s %-22s %s", title, r.Status, salaryCell(r))
		if r.Similarity != nil {
			line += fmt.Sprintf("  match %.2f", r.Similarity.Score)
		}
		fmt.Println(line)
	}
}

func salaryCell(r model.AnalysisResult) string {
	if r.Salary == nil {
		if r.Status == model.StatusLowConfidence {
			return "low confidence"
		}
		return "-"
	}
	currency := r.Salary.Currency
	if currency == "" {
		currency = "USD"
	}
	lo := humanize.Comma(int64(r.Salary.Min))
	hi := humanize.Comma(int64(r.Salary.Max))
	if lo == hi {
		return fmt.Sprintf("%s %s", currency, lo)
	}
	return fmt.Sprintf("%s %s - %s", currency, lo, hi)
}

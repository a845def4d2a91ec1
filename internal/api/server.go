// Package api exposes the analysis pipeline and cache administration over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/pipeline"
	"github.com/jobsift/jobsift/internal/progress"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 10 * time.Minute
	asyncRunTimeout = 10 * time.Minute
)

// Analyzer runs the analysis pipeline over a set of postings.
type Analyzer interface {
	Analyze(ctx context.Context, postings []model.JobPosting, opts model.AnalysisOptions) ([]model.AnalysisResult, error)
}

// AnalyzerFactory builds an Analyzer wired to the given progress reporter.
// The server calls it once per request so each async run streams into its
// own recorder.
type AnalyzerFactory func(r pipeline.Reporter) Analyzer

// Server is the admin and analysis HTTP surface.
type Server struct {
	addr        string
	defaults    model.AnalysisOptions
	descMaxLen  int
	newAnalyzer AnalyzerFactory
	cache       model.ResultCache
	runs        progress.Store
	logger      *slog.Logger
	router      *gin.Engine
}

// NewServer wires the routes and returns a server ready to Run. defaults are
// the analysis options applied to every request; descMaxLen caps posting
// descriptions arriving over the API.
func NewServer(addr string, defaults model.AnalysisOptions, descMaxLen int, newAnalyzer AnalyzerFactory, cache model.ResultCache, runs progress.Store, logger *slog.Logger) *Server {
	s := &Server{
		addr:        addr,
		defaults:    defaults,
		descMaxLen:  descMaxLen,
		newAnalyzer: newAnalyzer,
		cache:       cache,
		runs:        runs,
		logger:      logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.POST("/analyze", s.handleAnalyze)
		api.GET("/runs/:run_id", s.handleRun)
		api.GET("/cache/stats", s.handleCacheStats)
		api.POST("/cache/prune", s.handleCachePrune)
		api.DELETE("/cache", s.handleCacheClear)
	}
	s.router = router
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully. When the
// progress store lives in memory a janitor sweeps expired runs on a timer.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()
	s.logger.Info("api server listening", "addr", s.addr)

	if mem, ok := s.runs.(*progress.MemoryStore); ok {
		go s.sweepLoop(ctx, mem)
	}

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}

func (s *Server) sweepLoop(ctx context.Context, mem *progress.MemoryStore) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := mem.Sweep(); removed > 0 {
				s.logger.Debug("swept expired runs", "removed", removed)
			}
		}
	}
}

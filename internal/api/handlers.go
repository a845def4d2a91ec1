package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/pipeline"
	"github.com/jobsift/jobsift/internal/progress"
)

type analyzeRequest struct {
	Postings []model.JobPosting   `json:"postings" binding:"required"`
	Resume   *model.ResumeProfile `json:"resume"`
	Async    bool                 `json:"async"`
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	opts := s.defaults
	if req.Resume != nil {
		opts.Resume = req.Resume
		opts.RankBySimilarity = true
	}
	postings := truncateDescriptions(req.Postings, s.descMaxLen)

	if req.Async {
		runID := uuid.NewString()
		rec := progress.NewRecorder(s.runs, runID, s.logger)
		rec.Phase(pipeline.PhaseInitializing, "run accepted")
		go s.runAsync(runID, rec, postings, opts)
		c.JSON(http.StatusAccepted, gin.H{"run_id": runID, "message": "analysis started"})
		return
	}

	results, err := s.newAnalyzer(pipeline.NopReporter{}).Analyze(c.Request.Context(), postings, opts)
	if err != nil {
		if errors.Is(err, model.ErrResumeRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error("analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// runAsync executes a detached analysis run. The run outlives the request, so
// it carries its own context rather than the request's.
func (s *Server) runAsync(runID string, rec *progress.Recorder, postings []model.JobPosting, opts model.AnalysisOptions) {
	ctx, cancel := context.WithTimeout(context.Background(), asyncRunTimeout)
	defer cancel()

	results, err := s.newAnalyzer(rec).Analyze(ctx, postings, opts)
	if err != nil {
		s.logger.Error("async analysis failed", "run_id", runID, "error", err)
		rec.Fail(err)
		return
	}
	rec.Complete(results)
}

func (s *Server) handleRun(c *gin.Context) {
	snap, err := s.runs.Get(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		s.logger.Error("run lookup failed", "run_id", c.Param("run_id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found or expired"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleCacheStats(c *gin.Context) {
	stats, err := s.cache.Stats()
	if err != nil {
		s.logger.Error("cache stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read cache stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleCachePrune(c *gin.Context) {
	removed, err := s.cache.ClearExpired()
	if err != nil {
		s.logger.Error("cache prune failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prune cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) handleCacheClear(c *gin.Context) {
	if err := s.cache.ClearAll(); err != nil {
		s.logger.Error("cache clear failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// truncateDescriptions caps descriptions arriving over the API so one
// oversized posting cannot blow up prompt sizes downstream.
func truncateDescriptions(postings []model.JobPosting, maxLen int) []model.JobPosting {
	if maxLen <= 0 {
		return postings
	}
	out := make([]model.JobPosting, len(postings))
	copy(out, postings)
	for i := range out {
		if len(out[i].Description) > maxLen {
			out[i].Description = out[i].Description[:maxLen] + "..."
		}
	}
	return out
}

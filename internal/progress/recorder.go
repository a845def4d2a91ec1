package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/pipeline"
)

// Recorder publishes one run's progress to a Store. Store failures are logged
// and dropped: progress is advisory and must never fail an analysis.
//
// Percent moves 0 while initializing, jumps to 50 when analysis starts, climbs
// to 95 as batches finish, and lands on 100 at completion.
type Recorder struct {
	store  Store
	runID  string
	logger *slog.Logger

	mu            sync.Mutex
	lastCompleted int
	totalBatches  int
	lastPercent   int
}

var _ pipeline.Reporter = (*Recorder)(nil)

// NewRecorder returns a Recorder for the given run.
func NewRecorder(store Store, runID string, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, runID: runID, logger: logger}
}

// Phase records a phase transition.
func (r *Recorder) Phase(name, detail string) {
	percent := 0
	if name == pipeline.PhaseAnalyzing {
		percent = 50
	}
	r.mu.Lock()
	r.lastPercent = percent
	completed, total := r.lastCompleted, r.totalBatches
	r.mu.Unlock()

	r.put(Snapshot{
		Phase:            Phase(name),
		Percent:          percent,
		Detail:           detail,
		CompletedBatches: completed,
		TotalBatches:     total,
	})
}

// BatchDone records a finished batch. Parallel batches may report out of
// order; stale counts are ignored so percent never moves backwards.
func (r *Recorder) BatchDone(completed, total int) {
	r.mu.Lock()
	if completed <= r.lastCompleted {
		r.mu.Unlock()
		return
	}
	r.lastCompleted = completed
	r.totalBatches = total
	percent := 50
	if total > 0 {
		percent += 45 * completed / total
	}
	r.lastPercent = percent
	r.mu.Unlock()

	r.put(Snapshot{
		Phase:            PhaseAnalyzing,
		Percent:          percent,
		Detail:           fmt.Sprintf("completed %d of %d batches", completed, total),
		CompletedBatches: completed,
		TotalBatches:     total,
	})
}

// Complete writes the terminal snapshot carrying the run's results.
func (r *Recorder) Complete(results []model.AnalysisResult) {
	r.mu.Lock()
	r.lastPercent = 100
	completed, total := r.lastCompleted, r.totalBatches
	r.mu.Unlock()

	r.put(Snapshot{
		Phase:            PhaseComplete,
		Percent:          100,
		Detail:           "analysis complete",
		CompletedBatches: completed,
		TotalBatches:     total,
		Results:          results,
	})
}

// Fail writes the terminal error snapshot. Percent stays where the run
// stopped.
func (r *Recorder) Fail(err error) {
	r.mu.Lock()
	percent := r.lastPercent
	completed, total := r.lastCompleted, r.totalBatches
	r.mu.Unlock()

	r.put(Snapshot{
		Phase:            PhaseError,
		Percent:          percent,
		Detail:           err.Error(),
		CompletedBatches: completed,
		TotalBatches:     total,
	})
}

func (r *Recorder) put(snap Snapshot) {
	snap.RunID = r.runID
	snap.UpdatedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Put(ctx, snap); err != nil {
		r.logger.Warn("progress update dropped", "run_id", r.runID, "phase", snap.Phase, "error", err)
	}
}

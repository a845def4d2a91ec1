package progress

import (
	"context"
	"time"

	"github.com/jobsift/jobsift/internal/model"
)

// Phase identifies where in its lifecycle a run is.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseAnalyzing    Phase = "analyzing"
	PhaseComplete     Phase = "complete"
	PhaseError        Phase = "error"
)

// Snapshot is the externally visible state of one analysis run. Results ride
// along only on the terminal complete snapshot.
type Snapshot struct {
	RunID            string                 `json:"run_id"`
	Phase            Phase                  `json:"phase"`
	Percent          int                    `json:"percent"`
	Detail           string                 `json:"detail,omitempty"`
	CompletedBatches int                    `json:"completed_batches"`
	TotalBatches     int                    `json:"total_batches"`
	Results          []model.AnalysisResult `json:"results,omitempty"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// Store persists run snapshots for the duration of their TTL.
// Get returns (nil, nil) when the run is unknown or expired.
type Store interface {
	Put(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, runID string) (*Snapshot, error)
	Delete(ctx context.Context, runID string) error
}

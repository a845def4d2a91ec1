package pipeline

// Run phases reported over an analysis run's lifetime.
const (
	PhaseInitializing = "initializing"
	PhaseAnalyzing    = "analyzing"
)

// Reporter observes the progress of one analysis run. BatchDone receives a
// running completed count and may be called concurrently when parallel
// execution is enabled.
type Reporter interface {
	Phase(name, detail string)
	BatchDone(completed, total int)
}

// NopReporter ignores all progress events.
type NopReporter struct{}

func (NopReporter) Phase(name, detail string)      {}
func (NopReporter) BatchDone(completed, total int) {}

package pipeline

import (
	"fmt"
	"time"

	"github.com/hupe1980/archpipe/core"
	"github.com/hupe1980/archpipe/role"
)

// NewRunID mints a run identifier: a sortable UTC timestamp plus a short
// random suffix so concurrent runs never collide. The timestamp doubles as
// the run's shared artifact timestamp.
func NewRunID() string {
	return time.Now().UTC().Format("20060102T150405Z") + "-" + core.NewID()[:8]
}

// StageResult captures one completed stage: the aggregated text, the stage's
// gapless sequence index, its completion time and where the artifact was
// persisted. Results are never mutated after creation.
type StageResult struct {
	Role      role.Role
	Text      string
	Index     int
	Timestamp time.Time
	Location  string
}

// Run is one end-to-end pipeline execution over a single input. Results grow
// monotonically as stages complete; on failure the run holds exactly the
// stages that finished before the fault.
type Run struct {
	ID        string
	StartedAt time.Time
	Results   []StageResult
}

// Result returns the completed stage result for the given role.
func (r *Run) Result(id role.Role) (StageResult, bool) {
	for _, res := range r.Results {
		if res.Role == id {
			return res, true
		}
	}
	return StageResult{}, false
}

// StageError reports an invocation or persistence failure during one stage.
// The run stops at the failing stage; completed results stay on the Run.
type StageError struct {
	Role role.Role
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: stage %s failed: %v", e.Role, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *StageError) Unwrap() error { return e.Err }

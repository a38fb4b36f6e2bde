package pipeline

import "github.com/hupe1980/archpipe/tool"

// GroundingTool is the run-scoped documentation capability: a callable tool
// plus a Close releasing its connections when the run ends.
type GroundingTool interface {
	tool.Tool
	Close() error
}

// GroundingOpener opens a fresh grounding tool for one run. The executor
// calls the opener at most once per run — never when no stage of the run is
// grounded — and guarantees exactly one Close on every exit path (success,
// failure, cancellation).
type GroundingOpener func() (GroundingTool, error)

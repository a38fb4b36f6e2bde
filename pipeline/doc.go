// Package pipeline implements the per-run orchestration state machine.
//
// A run executes the fixed stage sequence
//
//	[diagram_interpreter?] → critic → fixer → visualizer → iac_generator
//
// strictly in order, entering the interpreter only for image inputs. Each
// stage's prompt is composed deterministically from prior stage results, the
// stage is executed by an ephemeral role-bound agent, the streamed output is
// aggregated (and forwarded to a sink delta by delta), and the final text is
// persisted as a per-run artifact before the next stage starts.
//
// The documentation grounding connection is a run-scoped resource: opened at
// most once before the first grounded stage, shared read-only by every
// grounded stage, and released on every exit path.
//
// Runs are independent; a single Executor may drive any number of them
// concurrently.
package pipeline

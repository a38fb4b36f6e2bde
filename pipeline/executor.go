package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/archpipe/agent"
	"github.com/hupe1980/archpipe/artifact"
	"github.com/hupe1980/archpipe/core"
	"github.com/hupe1980/archpipe/input"
	"github.com/hupe1980/archpipe/logging"
	"github.com/hupe1980/archpipe/model"
	"github.com/hupe1980/archpipe/role"
	"github.com/hupe1980/archpipe/stream"
)

// Options configure an Executor.
type Options struct {
	// Store persists each stage's aggregated text. Defaults to an in-memory
	// store.
	Store artifact.Store
	// Sink receives text deltas as stages stream them. Defaults to Discard.
	Sink stream.Sink
	// Grounding opens the run-scoped documentation tool. Nil runs grounded
	// stages without tools.
	Grounding GroundingOpener
	// Logger receives structured run logs. Defaults to a no-op logger.
	Logger logging.Logger
	// MaxToolRounds caps tool round-trips per stage invocation.
	MaxToolRounds int
	// OnStageStart, when set, is called before each stage begins. Used by the
	// CLI to print stage banners around the streamed output.
	OnStageStart func(id role.Role, index int)
}

// Executor is the per-run state machine: it sequences the fixed stage order,
// composes each stage's prompt from prior results, drives the shared
// completion engine through role-bound agents, aggregates streamed output and
// persists every stage artifact.
//
// An Executor is immutable after construction and safe for concurrent runs:
// the registry is read-only, the model handle is stateless per call and the
// store is concurrency-safe.
type Executor struct {
	registry     *role.Registry
	factory      *agent.Factory
	store        artifact.Store
	sink         stream.Sink
	grounding    GroundingOpener
	logger       logging.Logger
	onStageStart func(id role.Role, index int)
}

// NewExecutor constructs an Executor over the given registry and model
// handle. A nil registry selects the built-in defaults.
func NewExecutor(registry *role.Registry, llm model.Model, optFns ...func(o *Options)) *Executor {
	opts := Options{
		Store:         artifact.NewInMemoryStore(),
		Sink:          stream.Discard,
		Logger:        logging.NoOpLogger{},
		MaxToolRounds: agent.DefaultMaxToolRounds,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if registry == nil {
		registry = role.NewRegistry()
	}
	if opts.Store == nil {
		opts.Store = artifact.NewInMemoryStore()
	}
	if opts.Sink == nil {
		opts.Sink = stream.Discard
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	factory := agent.NewFactory(registry, llm, func(o *agent.FactoryOptions) {
		o.MaxToolRounds = opts.MaxToolRounds
		o.Logger = opts.Logger
	})

	return &Executor{
		registry:     registry,
		factory:      factory,
		store:        opts.Store,
		sink:         opts.Sink,
		grounding:    opts.Grounding,
		logger:       opts.Logger,
		onStageStart: opts.OnStageStart,
	}
}

// Run executes the full pipeline over one input and returns the completed
// Run.
//
// Failures before the first stage (unreadable image, unregistered role,
// grounding open failure) return a nil Run. A failure during a stage returns
// the partial Run holding every completed StageResult together with a
// *StageError naming the failing stage; later stages never execute and no
// result is recorded for the interrupted stage. No stage is retried.
func (e *Executor) Run(ctx context.Context, in input.Input) (*Run, error) {
	payload, err := in.Payload()
	if err != nil {
		return nil, fmt.Errorf("pipeline: resolve input: %w", err)
	}

	sequence := role.Sequence(in.RequiresInterpretation())

	// Resolve every stage role up front; a configuration bug fails the run
	// before any model call.
	specs := make([]role.Spec, 0, len(sequence))
	needsGrounding := false
	for _, id := range sequence {
		spec, err := e.registry.Resolve(id)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		specs = append(specs, spec)
		if spec.UsesGrounding {
			needsGrounding = true
		}
	}

	run := &Run{ID: NewRunID(), StartedAt: time.Now().UTC()}

	e.logger.Info("pipeline.run.start",
		"run_id", run.ID,
		"stages", len(specs),
		"image", in.RequiresInterpretation(),
	)

	// The grounding connection is run-scoped: opened once before the first
	// grounded stage, shared by every grounded stage, released on every exit
	// path.
	var grounding GroundingTool
	if needsGrounding && e.grounding != nil {
		g, err := e.grounding()
		if err != nil {
			return nil, fmt.Errorf("pipeline: open grounding: %w", err)
		}
		if g != nil {
			grounding = g
			defer func() {
				if cerr := grounding.Close(); cerr != nil {
					e.logger.Warn("pipeline.grounding.close", "run_id", run.ID, "error", cerr.Error())
				}
			}()
		}
	}

	agg := stream.NewAggregator(e.sink)

	// Composition state threaded between stages.
	var architectureText, critique, fixed string
	if !in.RequiresInterpretation() {
		architectureText = payload.Text()
	}

	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("pipeline.run.cancelled", "run_id", run.ID, "stage", spec.ID.String())
			return run, &StageError{Role: spec.ID, Err: err}
		}

		if e.onStageStart != nil {
			e.onStageStart(spec.ID, i)
		}

		stageAgent, err := e.factory.Create(spec.ID, grounding)
		if err != nil {
			return run, &StageError{Role: spec.ID, Err: err}
		}

		e.logger.Info("pipeline.stage.start",
			"run_id", run.ID,
			"stage", spec.ID.String(),
			"index", i,
			"grounded", spec.UsesGrounding && grounding != nil,
		)

		start := time.Now()
		respCh, errCh := stageAgent.Invoke(ctx, composePrompt(spec.ID, payload, architectureText, critique, fixed))
		text, err := agg.Consume(ctx, respCh, errCh)
		if err != nil {
			e.logger.Error("pipeline.stage.failed",
				"run_id", run.ID,
				"stage", spec.ID.String(),
				"error", err.Error(),
			)
			return run, &StageError{Role: spec.ID, Err: err}
		}

		location, err := e.store.Save(ctx, run.ID, spec.ID.String(), []byte(text))
		if err != nil {
			return run, &StageError{Role: spec.ID, Err: fmt.Errorf("save artifact: %w", err)}
		}

		run.Results = append(run.Results, StageResult{
			Role:      spec.ID,
			Text:      text,
			Index:     i,
			Timestamp: time.Now().UTC(),
			Location:  location,
		})

		e.logger.Info("pipeline.stage.complete",
			"run_id", run.ID,
			"stage", spec.ID.String(),
			"duration_ms", time.Since(start).Milliseconds(),
			"chars", len(text),
			"location", location,
		)

		// An empty stage result is not an error; it propagates as-is into
		// downstream composition.
		switch spec.ID {
		case role.Interpreter:
			architectureText = text
		case role.Critic:
			critique = text
		case role.Fixer:
			fixed = text
		}
	}

	e.logger.Info("pipeline.run.complete", "run_id", run.ID, "stages", len(run.Results))
	return run, nil
}

// composePrompt builds the stage's prompt contents deterministically from
// prior stage results. The fixer template is fixed and ordered: the
// architecture text that fed the critic, then the critique.
func composePrompt(id role.Role, payload core.Content, architectureText, critique, fixed string) []core.Content {
	switch id {
	case role.Interpreter:
		return []core.Content{payload}
	case role.Critic:
		return []core.Content{core.NewUserText(architectureText)}
	case role.Fixer:
		return []core.Content{core.NewUserText(fmt.Sprintf("Original:\n%s\n\nCritique:\n%s", architectureText, critique))}
	case role.Visualizer:
		return []core.Content{core.NewUserText(fixed)}
	case role.IaCGenerator:
		return []core.Content{core.NewUserText(fixed)}
	}
	return nil // unreachable: the role set is closed
}

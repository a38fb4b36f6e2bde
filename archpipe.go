// Package archpipe provides a high-level façade over the stage executor and
// service abstractions (roles, artifacts, streaming & logging) enabling rapid
// construction of architecture review pipelines. Most applications interact
// with this package by:
//  1. Creating a Pipeline via New() around a provider model handle (optionally
//     overriding the default in-memory artifact store, role briefs or sink)
//  2. Running an input (plain text or an architecture diagram image) with
//     Run, RunText or RunImage
//  3. Reading the per-stage outputs from the returned Run
//
// The façade delegates orchestration to pipeline.Executor while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply a durable artifact
// store and a structured logger.
package archpipe

import (
	"context"

	"github.com/hupe1980/archpipe/artifact"
	"github.com/hupe1980/archpipe/core"
	"github.com/hupe1980/archpipe/input"
	"github.com/hupe1980/archpipe/logging"
	"github.com/hupe1980/archpipe/model"
	"github.com/hupe1980/archpipe/pipeline"
	"github.com/hupe1980/archpipe/role"
	"github.com/hupe1980/archpipe/stream"
)

// Options configures the Pipeline instance.
type Options struct {
	// Registry supplies the role briefs driving each stage. Defaults to the
	// built-in briefs.
	Registry *role.Registry

	// Store receives one artifact per completed stage. Defaults to an
	// in-memory store.
	Store artifact.Store

	// Sink observes model text deltas as they stream in. Defaults to
	// discarding them.
	Sink stream.Sink

	// Grounding opens the run-scoped documentation search tool. When nil,
	// grounded stages run without tools.
	Grounding pipeline.GroundingOpener

	// MaxConcurrentRuns limits the number of runs that can execute
	// simultaneously. This prevents resource exhaustion and provides
	// backpressure. Set to 0 for unlimited.
	MaxConcurrentRuns int

	// MaxToolRounds caps grounding round-trips within a single stage.
	// Zero selects the agent default.
	MaxToolRounds int

	// OnStageStart, when set, is called right before each stage executes.
	OnStageStart func(id role.Role, index int)

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Pipeline is the high-level façade aggregating the stage executor and its
// services.
type Pipeline struct {
	opts    Options
	exec    *pipeline.Executor
	limiter *core.RunLimiter
}

// New creates a new Pipeline around the given model handle with optional
// overrides. Any unset service is initialized with an in-memory
// implementation.
func New(llm model.Model, optFns ...func(o *Options)) *Pipeline {
	opts := Options{
		Registry: role.NewRegistry(),
		Store:    artifact.NewInMemoryStore(),
		Sink:     stream.Discard,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	exec := pipeline.NewExecutor(opts.Registry, llm, func(o *pipeline.Options) {
		o.Store = opts.Store
		o.Sink = opts.Sink
		o.Grounding = opts.Grounding
		o.Logger = opts.Logger
		o.MaxToolRounds = opts.MaxToolRounds
		o.OnStageStart = opts.OnStageStart
	})

	return &Pipeline{
		opts:    opts,
		exec:    exec,
		limiter: core.NewRunLimiter(opts.MaxConcurrentRuns),
	}
}

// Run executes the full stage sequence for one input and returns the
// per-stage results. The call blocks while MaxConcurrentRuns other runs are
// in flight; ctx cancellation applies to both the wait and the run itself.
func (p *Pipeline) Run(ctx context.Context, in input.Input) (*pipeline.Run, error) {
	if err := p.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer p.limiter.Release()

	return p.exec.Run(ctx, in)
}

// RunText is a convenience wrapper around Run for a plain-text architecture
// description.
func (p *Pipeline) RunText(ctx context.Context, text string) (*pipeline.Run, error) {
	return p.Run(ctx, input.NewText(text))
}

// RunImage is a convenience wrapper around Run for an architecture diagram
// image. Source is a local file path or an http(s) URL.
func (p *Pipeline) RunImage(ctx context.Context, source string) (*pipeline.Run, error) {
	return p.Run(ctx, input.NewImage(source))
}

// Store returns the artifact store runs persist their stage outputs to.
func (p *Pipeline) Store() artifact.Store { return p.opts.Store }

package agent

import (
	"fmt"

	"github.com/hupe1980/archpipe/logging"
	"github.com/hupe1980/archpipe/model"
	"github.com/hupe1980/archpipe/role"
	"github.com/hupe1980/archpipe/tool"
)

// FactoryOptions configure a Factory.
type FactoryOptions struct {
	// MaxToolRounds is passed through to every created agent.
	MaxToolRounds int
	// Logger is passed through to every created agent.
	Logger logging.Logger
}

// Factory binds role specs to the shared completion engine, producing one
// ephemeral Agent per stage invocation. Creation is side-effect-free: the
// factory never calls the completion engine itself.
type Factory struct {
	registry *role.Registry
	llm      model.Model
	opts     FactoryOptions
}

// NewFactory constructs a Factory over the given registry and model handle.
func NewFactory(registry *role.Registry, llm model.Model, optFns ...func(o *FactoryOptions)) *Factory {
	opts := FactoryOptions{
		MaxToolRounds: DefaultMaxToolRounds,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Factory{
		registry: registry,
		llm:      llm,
		opts:     opts,
	}
}

// Create resolves the role's spec and returns an agent bound to its
// instructions. The grounding tool is attached exactly when the spec declares
// UsesGrounding; ungrounded roles receive no tools even when grounding is
// available. An unregistered role fails here, before any model call.
func (f *Factory) Create(id role.Role, grounding tool.Tool) (*Agent, error) {
	spec, err := f.registry.Resolve(id)
	if err != nil {
		return nil, fmt.Errorf("agent: create %q: %w", id, err)
	}

	var tools []tool.Tool
	if spec.UsesGrounding && grounding != nil {
		tools = append(tools, grounding)
	}

	return New(string(spec.ID), spec.Instructions, f.llm, tools, func(o *Options) {
		o.MaxToolRounds = f.opts.MaxToolRounds
		o.Logger = f.opts.Logger
	}), nil
}

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/archpipe/core"
	"github.com/hupe1980/archpipe/logging"
	"github.com/hupe1980/archpipe/model"
	"github.com/hupe1980/archpipe/tool"
)

// DefaultMaxToolRounds caps how many tool round-trips a single invocation may
// perform before the agent gives up.
const DefaultMaxToolRounds = 4

// Options configure an Agent.
type Options struct {
	// MaxToolRounds overrides DefaultMaxToolRounds.
	MaxToolRounds int
	// Logger receives structured invocation logs. Defaults to a no-op logger.
	Logger logging.Logger
}

// Agent is the ephemeral pairing of role instructions, the shared completion
// engine and an optional tool set. It lives for a single stage invocation and
// holds no state across invocations.
type Agent struct {
	name          string
	instructions  string
	llm           model.Model
	tools         map[string]tool.Tool
	toolDefs      []model.ToolDefinition
	maxToolRounds int
	logger        logging.Logger
}

// New constructs an agent bound to the given instructions, model handle and
// tools.
func New(name, instructions string, llm model.Model, tools []tool.Tool, optFns ...func(o *Options)) *Agent {
	opts := Options{
		MaxToolRounds: DefaultMaxToolRounds,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultMaxToolRounds
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	a := &Agent{
		name:          name,
		instructions:  instructions,
		llm:           llm,
		tools:         make(map[string]tool.Tool, len(tools)),
		maxToolRounds: opts.MaxToolRounds,
		logger:        opts.Logger,
	}

	for _, t := range tools {
		a.tools[t.Name()] = t
		a.toolDefs = append(a.toolDefs, tool.Definition(t))
	}

	return a
}

// Name returns the agent's name (its role id).
func (a *Agent) Name() string { return a.name }

// Tools returns the names of the tools attached to this agent.
func (a *Agent) Tools() []string {
	names := make([]string, 0, len(a.toolDefs))
	for _, d := range a.toolDefs {
		names = append(names, d.Function.Name)
	}
	return names
}

// Invoke drives one agent turn over the completion engine and returns the
// response and error channels. Responses arrive in emission order: streaming
// partials (one text delta each) interleaved with a final response per model
// round. When a final response carries function calls the agent executes
// them, appends the results as a tool turn and re-invokes the model, up to
// the round cap. Both channels close when the invocation completes; a
// provider or tool-loop fault arrives on the error channel.
func (a *Agent) Invoke(ctx context.Context, contents []core.Content) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		turns := make([]core.Content, len(contents))
		copy(turns, contents)

		for round := 0; ; round++ {
			final, err := a.runOnce(ctx, turns, out)
			if err != nil {
				errCh <- err
				return
			}

			fnCalls := final.Content.FunctionCalls()
			if len(fnCalls) == 0 {
				return
			}
			if round+1 >= a.maxToolRounds {
				errCh <- fmt.Errorf("agent %s: tool round limit (%d) reached without a final answer", a.name, a.maxToolRounds)
				return
			}

			// Append the assistant turn carrying the calls, then the tool
			// turn carrying the results, and go around again.
			turns = append(turns, final.Content)
			turns = append(turns, core.Content{
				Role:  "tool",
				Parts: a.executeCalls(ctx, fnCalls),
			})
		}
	}()

	return out, errCh
}

// runOnce performs a single model round: it streams every response to out and
// returns the round's final response.
func (a *Agent) runOnce(ctx context.Context, turns []core.Content, out chan<- model.Response) (*model.Response, error) {
	req := model.Request{
		Instructions: a.instructions,
		Contents:     turns,
		Stream:       true,
	}
	if len(a.toolDefs) > 0 && a.llm.Info().SupportsTools {
		req.Tools = a.toolDefs
	}

	respCh, errCh := a.llm.Generate(ctx, req)

	var final *model.Response
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return nil, err
			}
		case resp, ok := <-respCh:
			if !ok {
				if errCh != nil {
					for err := range errCh {
						if err != nil {
							return nil, err
						}
					}
				}
				if final == nil {
					return nil, fmt.Errorf("agent %s: model closed the stream without a final response", a.name)
				}
				return final, nil
			}

			select {
			case out <- resp:
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			if !resp.Partial {
				r := resp
				final = &r
			}
		}
	}
}

// executeCalls runs the round's function calls sequentially and wraps each
// outcome in a FunctionResponse part. Tool failures are embedded in the
// response rather than aborting the invocation, so the model can react.
func (a *Agent) executeCalls(ctx context.Context, calls []core.FunctionCall) []core.Part {
	parts := make([]core.Part, 0, len(calls))
	for _, fc := range calls {
		start := time.Now()
		result, err := a.executeTool(ctx, fc)

		a.logger.Info("agent.tool.executed",
			"agent", a.name,
			"tool", fc.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err != nil,
		)

		fr := core.FunctionResponse{ID: fc.ID, Name: fc.Name}
		if err != nil {
			fr.Error = err.Error()
		} else {
			fr.Response = result
		}
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: fr})
	}
	return parts
}

// executeTool looks up and calls a single tool, recovering panics into errors.
func (a *Agent) executeTool(ctx context.Context, fc core.FunctionCall) (result any, err error) {
	impl, ok := a.tools[fc.Name]
	if !ok {
		return nil, fmt.Errorf("tool %s not found", fc.Name)
	}

	args := map[string]any{}
	if fc.Arguments != "" {
		if uerr := json.Unmarshal([]byte(fc.Arguments), &args); uerr != nil {
			return nil, fmt.Errorf("failed to unmarshal args: %w", uerr)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", fc.Name, r)
			a.logger.Error("agent.tool.panic",
				"agent", a.name,
				"tool", fc.Name,
				"recover", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	return impl.Call(ctx, args)
}

package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/archpipe/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by a stage invocation.
type Request struct {
	Instructions string           `json:"instructions"` // Instructions for the model
	Contents     []core.Content   `json:"contents"`     // Higher-level content converted to provider messages
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model.
//
// A streaming provider emits a series of partial responses (each carrying one
// text delta) followed by a single final response with the assembled content.
// A non-streaming provider emits exactly one final response; the contract
// treats that as a single-delta sequence.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"` // Indicates if this is a partial response
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "google", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the shared completion-engine handle driven by every pipeline stage.
//
// Generate returns a response channel and an error channel. The response
// sequence is finite, ordered and not restartable; both channels are closed
// when the invocation completes. Provider or network faults arrive on the
// error channel and fail the invocation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests, examples and
// offline runs (the "mock" provider).
type MockModel struct {
	info      Info
	responses map[string]string
	scripts   map[string][]string
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
		scripts:   make(map[string][]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
// When streamed, the completion is chunked per rune.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// AddDeltas registers an explicit delta sequence for an input prompt. When
// streamed, the deltas are emitted exactly as given; the final response text
// is their concatenation.
func (m *MockModel) AddDeltas(prompt string, deltas ...string) { m.scripts[prompt] = deltas }

// Generate implements Model; emits optional streaming chunks then the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Contents) == 0 {
			errCh <- fmt.Errorf("no contents provided")
			return
		}
		inputText := req.Contents[len(req.Contents)-1].Text()

		deltas, scripted := m.scripts[inputText]
		if !scripted {
			full := m.responses[inputText]
			if full == "" {
				full = fmt.Sprintf("Mock response to: %s", inputText)
			}
			for _, r := range full {
				deltas = append(deltas, string(r))
			}
		}
		full := strings.Join(deltas, "")

		if req.Stream {
			for _, d := range deltas {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Content: core.Content{
						Role:  "assistant",
						Parts: []core.Part{core.TextPart{Text: d}},
					},
				}:
				}
			}
		}
		respCh <- Response{
			Partial: false,
			Content: core.Content{
				Role:  "assistant",
				Parts: []core.Part{core.TextPart{Text: full}},
			},
			FinishReason: "stop",
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }

package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/archpipe/core"
	"github.com/hupe1980/archpipe/model"
)

// TextDelta builds a partial streaming response carrying one text delta.
func TextDelta(text string) model.Response {
	return model.Response{
		Partial: true,
		Content: core.Content{
			Role:  "assistant",
			Parts: []core.Part{core.TextPart{Text: text}},
		},
	}
}

// FinalText builds a final response carrying the assembled turn text.
func FinalText(text string) model.Response {
	return model.Response{
		Partial: false,
		Content: core.Content{
			Role:  "assistant",
			Parts: []core.Part{core.TextPart{Text: text}},
		},
		FinishReason: "stop",
	}
}

// FinalToolCall builds a final response requesting a single function call.
func FinalToolCall(id, name, arguments string) model.Response {
	return model.Response{
		Partial: false,
		Content: core.Content{
			Role: "assistant",
			Parts: []core.Part{core.FunctionCallPart{
				FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: arguments},
			}},
		},
		FinishReason: "tool_calls",
	}
}

type scriptedRound struct {
	responses []model.Response
	err       error
}

// ScriptedModel replays pre-scripted response rounds, one round per Generate
// call, and records every request it receives. It backs agent and pipeline
// tests that need exact control over streaming and tool-call behavior.
//
// Example:
//
//	llm := NewScriptedModel()
//	llm.AddRound(TextDelta("Hi"), FinalText("Hi"))
type ScriptedModel struct {
	mu     sync.Mutex
	info   model.Info
	rounds []scriptedRound

	// Requests holds one captured request per Generate call, in call order.
	Requests []model.Request
}

// NewScriptedModel returns a scripted model advertising tool support.
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{
		info: model.Info{Name: "scripted", Provider: "test", SupportsTools: true},
	}
}

// SetInfo overrides the advertised model info.
func (m *ScriptedModel) SetInfo(info model.Info) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.info = info
}

// AddRound schedules the responses one Generate call will emit.
func (m *ScriptedModel) AddRound(responses ...model.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds = append(m.rounds, scriptedRound{responses: responses})
}

// FailRound schedules a Generate call that emits err on the error channel
// after any given responses.
func (m *ScriptedModel) FailRound(err error, responses ...model.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds = append(m.rounds, scriptedRound{responses: responses, err: err})
}

// Calls returns how many Generate invocations have been consumed.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// Generate implements model.Model by replaying the next scripted round.
func (m *ScriptedModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	var round scriptedRound
	if len(m.rounds) > 0 {
		round = m.rounds[0]
		m.rounds = m.rounds[1:]
	} else {
		round = scriptedRound{err: fmt.Errorf("scripted model: no round scheduled for call %d", len(m.Requests))}
	}
	m.mu.Unlock()

	respCh := make(chan model.Response, len(round.responses)+1)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		for _, resp := range round.responses {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case respCh <- resp:
			}
		}
		if round.err != nil {
			errCh <- round.err
		}
	}()

	return respCh, errCh
}

// Info implements model.Model.
func (m *ScriptedModel) Info() model.Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info
}

package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/archpipe/core"
	"github.com/hupe1980/archpipe/internal/testutil"
	"github.com/hupe1980/archpipe/model"
	"github.com/hupe1980/archpipe/tool"
)

// drain collects every response, then the (possibly nil) terminal error.
func drain(t *testing.T, respCh <-chan model.Response, errCh <-chan error) ([]model.Response, error) {
	t.Helper()
	var responses []model.Response
	for resp := range respCh {
		responses = append(responses, resp)
	}
	return responses, <-errCh
}

func queryParams() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []string{"query"},
	}
}

func TestInvokeStreamsDeltasThenFinal(t *testing.T) {
	llm := testutil.NewScriptedModel()
	llm.AddRound(
		testutil.TextDelta("Hello "),
		testutil.TextDelta("world"),
		testutil.FinalText("Hello world"),
	)

	a := New("critic", "You critique architectures.", llm, nil)

	respCh, errCh := a.Invoke(context.Background(), []core.Content{core.NewUserText("review this")})
	responses, err := drain(t, respCh, errCh)
	require.NoError(t, err)

	require.Len(t, responses, 3)
	assert.True(t, responses[0].Partial)
	assert.Equal(t, "Hello ", responses[0].Content.Text())
	assert.True(t, responses[1].Partial)
	assert.False(t, responses[2].Partial)
	assert.Equal(t, "Hello world", responses[2].Content.Text())

	require.Equal(t, 1, llm.Calls())
	req := llm.Requests[0]
	assert.Equal(t, "You critique architectures.", req.Instructions)
	assert.True(t, req.Stream)
	assert.Empty(t, req.Tools)
}

func TestInvokeToolRoundTrip(t *testing.T) {
	llm := testutil.NewScriptedModel()
	llm.AddRound(testutil.FinalToolCall("call-1", "search_docs", `{"query":"private endpoints"}`))
	llm.AddRound(
		testutil.TextDelta("Per the docs, "),
		testutil.FinalText("Per the docs, use private endpoints."),
	)

	var calls int
	search := tool.NewFunctionTool("search_docs", "Search documentation", queryParams(),
		func(ctx context.Context, args map[string]any) (any, error) {
			calls++
			assert.Equal(t, "private endpoints", args["query"])
			return "1. Private endpoints overview", nil
		})

	a := New("critic", "instructions", llm, []tool.Tool{search})

	respCh, errCh := a.Invoke(context.Background(), []core.Content{core.NewUserText("review this")})
	responses, err := drain(t, respCh, errCh)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	require.Equal(t, 2, llm.Calls())

	// First round advertises the tool.
	require.Len(t, llm.Requests[0].Tools, 1)
	assert.Equal(t, "search_docs", llm.Requests[0].Tools[0].Function.Name)

	// Second round carries user turn, assistant call turn and tool result turn.
	second := llm.Requests[1]
	require.Len(t, second.Contents, 3)
	assert.Equal(t, "user", second.Contents[0].Role)
	require.Len(t, second.Contents[1].FunctionCalls(), 1)
	assert.Equal(t, "tool", second.Contents[2].Role)

	results := second.Contents[2].FunctionResponses()
	require.Len(t, results, 1)
	assert.Equal(t, "call-1", results[0].ID)
	assert.Equal(t, "search_docs", results[0].Name)
	assert.Equal(t, "1. Private endpoints overview", results[0].Response)
	assert.Empty(t, results[0].Error)

	// The final answer text reaches the caller.
	last := responses[len(responses)-1]
	assert.Equal(t, "Per the docs, use private endpoints.", last.Content.Text())
}

func TestInvokeToolErrorEmbedded(t *testing.T) {
	llm := testutil.NewScriptedModel()
	llm.AddRound(testutil.FinalToolCall("call-1", "search_docs", `{"query":"x"}`))
	llm.AddRound(testutil.FinalText("Proceeding without documentation."))

	search := tool.NewFunctionTool("search_docs", "Search documentation", queryParams(),
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("service unavailable")
		})

	a := New("critic", "instructions", llm, []tool.Tool{search})

	respCh, errCh := a.Invoke(context.Background(), []core.Content{core.NewUserText("review")})
	_, err := drain(t, respCh, errCh)
	require.NoError(t, err, "tool failures are reported to the model, not the caller")

	results := llm.Requests[1].Contents[2].FunctionResponses()
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "service unavailable")
	assert.Nil(t, results[0].Response)
}

func TestInvokeUnknownToolReported(t *testing.T) {
	llm := testutil.NewScriptedModel()
	llm.AddRound(testutil.FinalToolCall("call-1", "nonexistent", `{}`))
	llm.AddRound(testutil.FinalText("ok"))

	a := New("critic", "instructions", llm, []tool.Tool{
		tool.NewFunctionTool("search_docs", "Search documentation", queryParams(),
			func(ctx context.Context, args map[string]any) (any, error) { return "hit", nil }),
	})

	respCh, errCh := a.Invoke(context.Background(), []core.Content{core.NewUserText("review")})
	_, err := drain(t, respCh, errCh)
	require.NoError(t, err)

	results := llm.Requests[1].Contents[2].FunctionResponses()
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "not found")
}

func TestInvokeToolPanicRecovered(t *testing.T) {
	llm := testutil.NewScriptedModel()
	llm.AddRound(testutil.FinalToolCall("call-1", "search_docs", `{"query":"x"}`))
	llm.AddRound(testutil.FinalText("recovered"))

	search := tool.NewFunctionTool("search_docs", "Search documentation", queryParams(),
		func(ctx context.Context, args map[string]any) (any, error) {
			panic("boom")
		})

	a := New("critic", "instructions", llm, []tool.Tool{search})

	respCh, errCh := a.Invoke(context.Background(), []core.Content{core.NewUserText("review")})
	_, err := drain(t, respCh, errCh)
	require.NoError(t, err)

	results := llm.Requests[1].Contents[2].FunctionResponses()
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "panicked")
}

func TestInvokeRoundLimit(t *testing.T) {
	llm := testutil.NewScriptedModel()
	// The model never stops asking for the tool.
	for i := 0; i < 5; i++ {
		llm.AddRound(testutil.FinalToolCall("call", "search_docs", `{"query":"x"}`))
	}

	search := tool.NewFunctionTool("search_docs", "Search documentation", queryParams(),
		func(ctx context.Context, args map[string]any) (any, error) { return "hit", nil })

	a := New("critic", "instructions", llm, []tool.Tool{search}, func(o *Options) {
		o.MaxToolRounds = 2
	})

	respCh, errCh := a.Invoke(context.Background(), []core.Content{core.NewUserText("review")})
	_, err := drain(t, respCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool round limit")
	assert.Equal(t, 2, llm.Calls())
}

func TestInvokeToolsOmittedWhenUnsupported(t *testing.T) {
	llm := testutil.NewScriptedModel()
	llm.SetInfo(model.Info{Name: "plain", Provider: "test", SupportsTools: false})
	llm.AddRound(testutil.FinalText("answer"))

	search := tool.NewFunctionTool("search_docs", "Search documentation", queryParams(),
		func(ctx context.Context, args map[string]any) (any, error) { return "hit", nil })

	a := New("critic", "instructions", llm, []tool.Tool{search})

	respCh, errCh := a.Invoke(context.Background(), []core.Content{core.NewUserText("review")})
	_, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	assert.Empty(t, llm.Requests[0].Tools)
}

func TestInvokeModelError(t *testing.T) {
	llm := testutil.NewScriptedModel()
	llm.FailRound(errors.New("rate limited"), testutil.TextDelta("partial"))

	a := New("critic", "instructions", llm, nil)

	respCh, errCh := a.Invoke(context.Background(), []core.Content{core.NewUserText("review")})
	_, err := drain(t, respCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestInvokeContextCancelled(t *testing.T) {
	llm := testutil.NewScriptedModel()
	llm.AddRound(testutil.FinalText("never consumed"))

	a := New("critic", "instructions", llm, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	respCh, errCh := a.Invoke(ctx, []core.Content{core.NewUserText("review")})
	_, err := drain(t, respCh, errCh)
	require.Error(t, err)
}

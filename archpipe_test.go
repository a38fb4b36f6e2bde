package archpipe

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/archpipe/core"
	"github.com/hupe1980/archpipe/internal/testutil"
	"github.com/hupe1980/archpipe/model"
	"github.com/hupe1980/archpipe/role"
	"github.com/hupe1980/archpipe/stream"
)

func TestRunTextWithDefaults(t *testing.T) {
	llm := testutil.NewScriptedModel()
	llm.AddRound(testutil.FinalText("- public DB endpoint"))
	llm.AddRound(testutil.FinalText("Fixed description"))
	llm.AddRound(testutil.FinalText("graph TD"))
	llm.AddRound(testutil.FinalText("resource sql ..."))

	p := New(llm)

	run, err := p.RunText(context.Background(), "3-tier app with public database")
	require.NoError(t, err)
	require.Len(t, run.Results, 4)

	want := []role.Role{role.Critic, role.Fixer, role.Visualizer, role.IaCGenerator}
	for i, res := range run.Results {
		assert.Equal(t, want[i], res.Role)
		assert.Equal(t, i, res.Index)
		assert.Contains(t, res.Location, "mem://")
	}

	// The default store keeps every stage output addressable by run and role.
	data, err := p.Store().Get(context.Background(), run.ID, role.Visualizer.String())
	require.NoError(t, err)
	assert.Equal(t, "graph TD", string(data))
}

func TestRunImageAddsInterpreterStage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagram.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0644))

	llm := testutil.NewScriptedModel()
	for i := 0; i < 5; i++ {
		llm.AddRound(testutil.FinalText("stage output"))
	}

	p := New(llm)

	run, err := p.RunImage(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, run.Results, 5)
	assert.Equal(t, role.Interpreter, run.Results[0].Role)
	assert.Equal(t, 5, llm.Calls())
}

func TestRunStreamsToSink(t *testing.T) {
	llm := testutil.NewScriptedModel()
	llm.AddRound(testutil.TextDelta("- public "), testutil.TextDelta("DB"), testutil.FinalText("- public DB"))
	llm.AddRound(testutil.FinalText("fixed"))
	llm.AddRound(testutil.FinalText("graph TD"))
	llm.AddRound(testutil.FinalText("iac"))

	var (
		mu     sync.Mutex
		deltas []string
	)
	p := New(llm, func(o *Options) {
		o.Sink = stream.SinkFunc(func(delta string) error {
			mu.Lock()
			defer mu.Unlock()
			deltas = append(deltas, delta)
			return nil
		})
	})

	_, err := p.RunText(context.Background(), "app")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"- public ", "DB", "fixed", "graph TD", "iac"}, deltas)
}

// gateModel blocks every generation until the gate closes, so tests can pin a
// run inside its first stage.
type gateModel struct {
	mu    sync.Mutex
	calls int
	gate  chan struct{}
}

func newGateModel() *gateModel {
	return &gateModel{gate: make(chan struct{})}
}

func (g *gateModel) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *gateModel) Generate(ctx context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(respCh)
		defer close(errCh)

		select {
		case <-g.gate:
		case <-ctx.Done():
			errCh <- ctx.Err()
			return
		}
		respCh <- model.Response{
			Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: "ok"}}},
			FinishReason: "stop",
		}
	}()
	return respCh, errCh
}

func (g *gateModel) Info() model.Info {
	return model.Info{Name: "gate", Provider: "test"}
}

func TestRunConcurrencyLimit(t *testing.T) {
	llm := newGateModel()
	p := New(llm, func(o *Options) {
		o.MaxConcurrentRuns = 1
	})

	first := make(chan error, 1)
	go func() {
		_, err := p.RunText(context.Background(), "held run")
		first <- err
	}()

	// Wait until the first run holds the slot (it is blocked inside the
	// critic stage's model call).
	require.Eventually(t, func() bool { return llm.Calls() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.RunText(ctx, "rejected run")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, llm.Calls(), "waiting run must not reach the model")

	close(llm.gate)
	require.NoError(t, <-first)
	assert.Equal(t, 4, llm.Calls())
}

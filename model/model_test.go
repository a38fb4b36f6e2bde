package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/archpipe/core"
)

func collect(t *testing.T, respCh <-chan Response, errCh <-chan error) ([]Response, error) {
	t.Helper()

	var responses []Response
	for respCh != nil || errCh != nil {
		select {
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			responses = append(responses, r)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return responses, err
			}
		}
	}
	return responses, nil
}

func TestMockModelStreamsPerRune(t *testing.T) {
	m := NewMockModel("mock-1", "mock")
	m.AddResponse("hi", "ok")

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewUserText("hi")},
		Stream:   true,
	})

	responses, err := collect(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, responses, 3) // "o", "k", final

	assert.True(t, responses[0].Partial)
	assert.Equal(t, "o", responses[0].Content.Text())
	assert.True(t, responses[1].Partial)
	assert.Equal(t, "k", responses[1].Content.Text())
	assert.False(t, responses[2].Partial)
	assert.Equal(t, "ok", responses[2].Content.Text())
	assert.Equal(t, "stop", responses[2].FinishReason)
}

func TestMockModelScriptedDeltas(t *testing.T) {
	m := NewMockModel("mock-1", "mock")
	m.AddDeltas("risk?", "Sec", "uri", "ty risk")

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewUserText("risk?")},
		Stream:   true,
	})

	responses, err := collect(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, responses, 4)

	assert.Equal(t, "Sec", responses[0].Content.Text())
	assert.Equal(t, "uri", responses[1].Content.Text())
	assert.Equal(t, "ty risk", responses[2].Content.Text())
	assert.False(t, responses[3].Partial)
	assert.Equal(t, "Security risk", responses[3].Content.Text())
}

func TestMockModelNonStreaming(t *testing.T) {
	m := NewMockModel("mock-1", "mock")
	m.AddResponse("hi", "hello there")

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewUserText("hi")},
	})

	responses, err := collect(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.False(t, responses[0].Partial)
	assert.Equal(t, "hello there", responses[0].Content.Text())
}

func TestMockModelDefaultResponse(t *testing.T) {
	m := NewMockModel("mock-1", "mock")

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewUserText("anything")},
	})

	responses, err := collect(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "Mock response to: anything", responses[0].Content.Text())
}

func TestMockModelNoContents(t *testing.T) {
	m := NewMockModel("mock-1", "mock")

	respCh, errCh := m.Generate(context.Background(), Request{})

	_, err := collect(t, respCh, errCh)
	assert.Error(t, err)
}

func TestMockModelInfo(t *testing.T) {
	m := NewMockModel("mock-1", "mock")

	info := m.Info()
	assert.Equal(t, "mock-1", info.Name)
	assert.Equal(t, "mock", info.Provider)
	assert.True(t, info.SupportsTools)
}

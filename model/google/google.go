// Package google provides a model wrapper for the Google Gemini API.
//
// The adapter is non-streaming: each invocation is surfaced as a single final
// response, which the model contract treats as a one-delta sequence. Tool
// definitions are not mapped; grounded stages should use the OpenAI or
// Anthropic adapters.
package google

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"

	"github.com/hupe1980/archpipe/core"
	"github.com/hupe1980/archpipe/model"
)

// Options configures the Google model adapter.
type Options struct {
	Model       string
	Temperature float64
	APIKey      string
}

// Model wraps the Gemini API behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a new Google Gemini model using the official client.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:       "gemini-2.0-flash",
		Temperature: 0.7,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &Model{client: client, opts: opts}, nil
}

// Generate implements model.Model. The Gemini call is non-streaming; the
// result arrives as one final response.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		config := &genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(m.opts.Temperature)),
		}
		if req.Instructions != "" {
			config.SystemInstruction = genai.NewContentFromText(req.Instructions, genai.RoleUser)
		}

		contents := buildContents(req.Contents)
		if len(contents) == 0 {
			errCh <- fmt.Errorf("no contents provided")
			return
		}

		resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, contents, config)
		if err != nil {
			errCh <- fmt.Errorf("google api error: %w", err)
			return
		}

		if resp == nil || len(resp.Candidates) == 0 {
			errCh <- fmt.Errorf("google returned no candidates")
			return
		}

		var text string
		if resp.Candidates[0].Content != nil {
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" {
					text += part.Text
				}
			}
		}

		var parts []core.Part
		if text != "" {
			parts = append(parts, core.TextPart{Text: text})
		}

		finishReason := "stop"
		if resp.Candidates[0].FinishReason != "" {
			finishReason = string(resp.Candidates[0].FinishReason)
		}

		out <- model.Response{
			Partial:      false,
			Content:      core.Content{Role: "assistant", Parts: parts},
			FinishReason: finishReason,
		}
	}()

	return out, errCh
}

// buildContents converts normalized contents to Gemini contents. System
// contents are handled via the config and tool turns are skipped.
func buildContents(contents []core.Content) []*genai.Content {
	var out []*genai.Content

	for _, c := range contents {
		if c.Role == "system" || c.Role == "tool" {
			continue
		}

		var role genai.Role = genai.RoleUser
		if c.Role == "assistant" {
			role = genai.RoleModel
		}

		var parts []*genai.Part
		for _, p := range c.Parts {
			switch part := p.(type) {
			case core.TextPart:
				if part.Text != "" {
					parts = append(parts, genai.NewPartFromText(part.Text))
				}
			case core.FilePart:
				mimeType := "image/png"
				if part.File.MimeType != nil {
					mimeType = *part.File.MimeType
				}
				if part.File.URI != "" {
					parts = append(parts, genai.NewPartFromURI(part.File.URI, mimeType))
					continue
				}
				if data, err := base64.StdEncoding.DecodeString(part.File.Bytes); err == nil && len(data) > 0 {
					parts = append(parts, genai.NewPartFromBytes(data, mimeType))
				}
			}
		}

		if len(parts) > 0 {
			out = append(out, genai.NewContentFromParts(parts, role))
		}
	}

	return out
}

// Info returns metadata describing this Google model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "google",
		SupportsTools: false,
	}
}

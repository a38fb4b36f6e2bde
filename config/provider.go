package config

import (
	"context"
	"fmt"
	"sort"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/archpipe/model"
	anthropicmodel "github.com/hupe1980/archpipe/model/anthropic"
	googlemodel "github.com/hupe1980/archpipe/model/google"
	openaimodel "github.com/hupe1980/archpipe/model/openai"
)

// Factory builds a provider's model handle from the resolved config.
type Factory func(ctx context.Context, cfg Config) (model.Model, error)

// providers is the closed table of recognized completion-engine providers.
var providers = map[string]Factory{
	"openai":            buildOpenAI,
	"openai-compatible": buildOpenAICompatible,
	"anthropic":         buildAnthropic,
	"google":            buildGoogle,
	"mock":              buildMock,
}

// Providers returns the recognized provider names, sorted.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildModel resolves the configured provider into a model handle. Called
// exactly once at startup; an unknown provider or a missing credential is a
// startup error.
func (c Config) BuildModel(ctx context.Context) (model.Model, error) {
	factory, ok := providers[c.Provider]
	if !ok {
		return nil, fmt.Errorf("config: unknown provider %q (known: %s)", c.Provider, strings.Join(Providers(), ", "))
	}
	return factory(ctx, c)
}

func buildOpenAI(_ context.Context, cfg Config) (model.Model, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("config: provider openai requires OPENAI_API_KEY")
	}
	return openaimodel.NewModel(func(o *openaimodel.Options) {
		o.APIKey = cfg.OpenAIAPIKey
		if cfg.Model != "" {
			o.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			o.BaseURL = cfg.BaseURL
		}
	}), nil
}

// buildOpenAICompatible targets local OpenAI-compatible endpoints (Ollama,
// Foundry Local). Those usually accept any key, so a placeholder is used when
// none is configured.
func buildOpenAICompatible(_ context.Context, cfg Config) (model.Model, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("config: provider openai-compatible requires a base URL")
	}
	apiKey := cfg.OpenAIAPIKey
	if apiKey == "" {
		apiKey = "not-needed"
	}
	return openaimodel.NewModel(func(o *openaimodel.Options) {
		o.APIKey = apiKey
		o.BaseURL = cfg.BaseURL
		if cfg.Model != "" {
			o.Model = cfg.Model
		}
	}), nil
}

func buildAnthropic(_ context.Context, cfg Config) (model.Model, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("config: provider anthropic requires ANTHROPIC_API_KEY")
	}
	return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
		o.APIKey = cfg.AnthropicAPIKey
		if cfg.Model != "" {
			o.Model = anthropicsdk.Model(cfg.Model)
		}
	}), nil
}

func buildGoogle(ctx context.Context, cfg Config) (model.Model, error) {
	if cfg.GoogleAPIKey == "" {
		return nil, fmt.Errorf("config: provider google requires GOOGLE_API_KEY")
	}
	return googlemodel.NewModel(ctx, func(o *googlemodel.Options) {
		o.APIKey = cfg.GoogleAPIKey
		if cfg.Model != "" {
			o.Model = cfg.Model
		}
	})
}

func buildMock(_ context.Context, cfg Config) (model.Model, error) {
	name := cfg.Model
	if name == "" {
		name = "mock"
	}
	return model.NewMockModel(name, "mock"), nil
}

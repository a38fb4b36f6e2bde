package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/archpipe/input"
	"github.com/hupe1980/archpipe/role"
)

// clearEnv blanks every variable the loader reads so ambient shell state
// cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ARCHPIPE_PROVIDER", "ARCHPIPE_MODEL", "ARCHPIPE_BASE_URL",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GOOGLE_API_KEY",
		"ARCHPIPE_USE_IMAGE", "ARCHPIPE_IMAGE_SOURCE", "ARCHPIPE_DEFAULT_TEXT",
		"ARCHPIPE_ROLES_FILE", "ARCHPIPE_OUTPUT_DIR",
		"ARCHPIPE_GROUNDING_ENDPOINT", "ARCHPIPE_GROUNDING_TOP_N",
		"ARCHPIPE_LOG_LEVEL", "ARCHPIPE_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "openai", cfg.Provider)
	assert.Contains(t, cfg.DefaultText, "3-tier e-commerce application on Azure")
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, "https://learn.microsoft.com/api/search", cfg.GroundingEndpoint)
	assert.Equal(t, 3, cfg.GroundingTopN)
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "archpipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"provider: mock\nmodel: from-file\noutput_dir: file-out\n",
	), 0644))

	// Environment beats file; file beats defaults.
	t.Setenv("ARCHPIPE_MODEL", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Provider, "file overrides default")
	assert.Equal(t, "from-env", cfg.Model, "env overrides file")
	assert.Equal(t, "file-out", cfg.OutputDir)
	assert.Contains(t, cfg.DefaultText, "3-tier", "untouched fields keep defaults")
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARCHPIPE_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "sk-test", cfg.AnthropicAPIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadEnvBoolAndInt(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARCHPIPE_USE_IMAGE", "true")
	t.Setenv("ARCHPIPE_IMAGE_SOURCE", "https://example.com/arch.png")
	t.Setenv("ARCHPIPE_GROUNDING_TOP_N", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.UseImage)
	assert.Equal(t, "https://example.com/arch.png", cfg.ImageSource)
	assert.Equal(t, 7, cfg.GroundingTopN)
}

func TestInputSelection(t *testing.T) {
	cfg := Default()

	in := cfg.Input()
	text, ok := in.(input.Text)
	require.True(t, ok)
	assert.Equal(t, cfg.DefaultText, text.Content)

	cfg.UseImage = true
	in = cfg.Input()
	_, ok = in.(input.Text)
	assert.True(t, ok, "image mode without a source falls back to text")

	cfg.ImageSource = "diagram.png"
	in = cfg.Input()
	img, ok := in.(input.Image)
	require.True(t, ok)
	assert.Equal(t, "diagram.png", img.Source)
}

func TestRegistryFromRolesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"critic:\n  instructions: Custom critic brief.\n",
	), 0644))

	cfg := Default()
	cfg.RolesFile = path

	registry, err := cfg.Registry()
	require.NoError(t, err)

	spec, err := registry.Resolve(role.Critic)
	require.NoError(t, err)
	assert.Equal(t, "Custom critic brief.", spec.Instructions)
	assert.True(t, spec.UsesGrounding, "grounding flag keeps its default")
}

func TestGroundingOpener(t *testing.T) {
	cfg := Default()
	cfg.GroundingEndpoint = "http://localhost:9999/search"
	cfg.GroundingTopN = 5

	opener := cfg.GroundingOpener()
	g, err := opener()
	require.NoError(t, err)
	defer g.Close()

	assert.Equal(t, "search_docs", g.Name())
}

func TestBuildModelUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Provider = "cohere"

	_, err := cfg.BuildModel(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
	assert.Contains(t, err.Error(), "mock", "error lists the known providers")
}

func TestBuildModelMockNeedsNoKeys(t *testing.T) {
	cfg := Default()
	cfg.Provider = "mock"

	llm, err := cfg.BuildModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mock", llm.Info().Provider)
}

func TestBuildModelOpenAIRequiresKey(t *testing.T) {
	cfg := Default()
	cfg.Provider = "openai"
	cfg.OpenAIAPIKey = ""

	_, err := cfg.BuildModel(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestBuildModelOpenAIWithKey(t *testing.T) {
	cfg := Default()
	cfg.Provider = "openai"
	cfg.OpenAIAPIKey = "sk-test"
	cfg.Model = "gpt-4o"

	llm, err := cfg.BuildModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "openai", llm.Info().Provider)
	assert.Equal(t, "gpt-4o", llm.Info().Name)
}

func TestBuildModelOpenAICompatibleRequiresBaseURL(t *testing.T) {
	cfg := Default()
	cfg.Provider = "openai-compatible"

	_, err := cfg.BuildModel(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")

	cfg.BaseURL = "http://localhost:11434/v1"
	llm, err := cfg.BuildModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "openai", llm.Info().Provider)
}

func TestProvidersSorted(t *testing.T) {
	assert.Equal(t, []string{"anthropic", "google", "mock", "openai", "openai-compatible"}, Providers())
}

// Package config resolves the application configuration once at startup:
// built-in defaults, overlaid by an optional YAML file, overlaid by
// environment variables. Provider selection happens here, through a closed
// provider table, so the pipeline core never branches on provider.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/archpipe/input"
	"github.com/hupe1980/archpipe/pipeline"
	"github.com/hupe1980/archpipe/role"
	"github.com/hupe1980/archpipe/tool/docsearch"
)

// DefaultArchitectureText is the demo input used when no text or image is
// supplied: a deliberately flawed three-tier Azure deployment for the critic
// to pick apart.
const DefaultArchitectureText = `We have a 3-tier e-commerce application on Azure:
- Frontend: Virtual Machines running Node.js (public IPs)
- Backend: Virtual Machines running .NET APIs (public IPs)
- Database: Azure SQL Database (public endpoint enabled)
- Storage: Azure Storage Account (no encryption at rest)`

// Config is the resolved application configuration.
type Config struct {
	// Provider selects the completion engine: openai, openai-compatible,
	// anthropic, google or mock.
	Provider string `yaml:"provider"`
	// Model overrides the provider's default model name.
	Model string `yaml:"model"`
	// BaseURL points openai-compatible providers at a local endpoint
	// (e.g. Ollama at http://localhost:11434/v1).
	BaseURL string `yaml:"base_url"`

	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	GoogleAPIKey    string `yaml:"google_api_key"`

	// UseImage switches the pipeline to image mode when ImageSource is set.
	UseImage    bool   `yaml:"use_image"`
	ImageSource string `yaml:"image_source"`
	// DefaultText is the architecture description used in text mode when the
	// caller supplies none.
	DefaultText string `yaml:"default_text"`

	// RolesFile optionally overlays role instructions from YAML.
	RolesFile string `yaml:"roles_file"`
	// OutputDir is the artifact file store root.
	OutputDir string `yaml:"output_dir"`

	GroundingEndpoint string `yaml:"grounding_endpoint"`
	GroundingTopN     int    `yaml:"grounding_top_n"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Provider:          "openai",
		DefaultText:       DefaultArchitectureText,
		OutputDir:         "output",
		GroundingEndpoint: docsearch.DefaultEndpoint,
		GroundingTopN:     docsearch.DefaultTop,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load resolves the configuration: defaults, then the YAML file at path (if
// path is non-empty it must be readable), then environment variables.
// Environment variables take precedence over file configuration.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables onto the config.
func (c *Config) applyEnv() {
	c.Provider = getEnvOrDefault("ARCHPIPE_PROVIDER", c.Provider)
	c.Model = getEnvOrDefault("ARCHPIPE_MODEL", c.Model)
	c.BaseURL = getEnvOrDefault("ARCHPIPE_BASE_URL", c.BaseURL)

	c.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.AnthropicAPIKey = getEnvOrDefault("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.GoogleAPIKey = getEnvOrDefault("GOOGLE_API_KEY", c.GoogleAPIKey)

	if v := os.Getenv("ARCHPIPE_USE_IMAGE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.UseImage = b
		}
	}
	c.ImageSource = getEnvOrDefault("ARCHPIPE_IMAGE_SOURCE", c.ImageSource)
	c.DefaultText = getEnvOrDefault("ARCHPIPE_DEFAULT_TEXT", c.DefaultText)

	c.RolesFile = getEnvOrDefault("ARCHPIPE_ROLES_FILE", c.RolesFile)
	c.OutputDir = getEnvOrDefault("ARCHPIPE_OUTPUT_DIR", c.OutputDir)

	c.GroundingEndpoint = getEnvOrDefault("ARCHPIPE_GROUNDING_ENDPOINT", c.GroundingEndpoint)
	if v := os.Getenv("ARCHPIPE_GROUNDING_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.GroundingTopN = n
		}
	}

	c.LogLevel = getEnvOrDefault("ARCHPIPE_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvOrDefault("ARCHPIPE_LOG_FORMAT", c.LogFormat)
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

// Input selects the pipeline input per the mode switch: image mode needs both
// the flag and a source, anything else falls back to the text description.
func (c Config) Input() input.Input {
	if c.UseImage && c.ImageSource != "" {
		return input.NewImage(c.ImageSource)
	}
	return input.NewText(c.DefaultText)
}

// Registry builds the role registry, overlaying the roles file when set.
func (c Config) Registry() (*role.Registry, error) {
	if c.RolesFile != "" {
		return role.NewRegistryFromFile(c.RolesFile)
	}
	return role.NewRegistry(), nil
}

// GroundingOpener returns the run-scoped documentation search opener bound
// to the configured endpoint and result budget.
func (c Config) GroundingOpener() pipeline.GroundingOpener {
	endpoint := c.GroundingEndpoint
	top := c.GroundingTopN
	return func() (pipeline.GroundingTool, error) {
		return docsearch.Open(func(o *docsearch.Options) {
			if endpoint != "" {
				o.Endpoint = endpoint
			}
			if top > 0 {
				o.Top = top
			}
		})
	}
}

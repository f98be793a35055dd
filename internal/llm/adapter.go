// Package llm provides the transport adapters behind the pipeline's
// Generator interface: an OpenAI-compatible HTTP client for self-hosted
// endpoints (vLLM and friends) and the Anthropic API. Adapters never retry;
// failures are returned verbatim for the pipeline to report.
package llm

import (
	"github.com/csdY123/Neusoft-TestCaseGen/internal/core"
)

// Adapter is a core.Generator with identification and availability checks
// layered on for provider detection and CLI output.
type Adapter interface {
	core.Generator

	// Name returns the adapter identifier for operator output.
	Name() string

	// IsAvailable reports whether this adapter has the credentials and
	// endpoint it needs.
	IsAvailable() bool
}

// interface guard
var _ = []Adapter{(*OpenAIAdapter)(nil), (*AnthropicAdapter)(nil)}

// Config holds transport configuration. Fields map to the tool's YAML config
// file; API keys come from the environment, never from the file.
type Config struct {
	// Provider selects the adapter: "openai", "anthropic", or "" for
	// auto-detection.
	Provider string `yaml:"provider"`

	// BaseURL is the OpenAI-compatible endpoint root, e.g.
	// "http://localhost:8000/v1".
	BaseURL string `yaml:"base_url"`

	// Model is the default model for all stages.
	Model string `yaml:"model"`

	// MaxTokens limits response length.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature for sampling.
	Temperature float64 `yaml:"temperature"`

	// APIKey is resolved from the environment by the detector.
	APIKey string `yaml:"-"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   16384,
		Temperature: 0.6,
	}
}

package llm

import (
	"fmt"
	"os"
)

// ModelInfo describes a known model for the setup wizard.
type ModelInfo struct {
	ID          string // Model identifier (e.g., "claude-sonnet-4-20250514")
	Name        string // Human-readable name
	Description string // Brief description
	Provider    string // Provider name ("openai", "anthropic")
}

// anthropicModels lists Claude models usable through the API.
var anthropicModels = []ModelInfo{
	{ID: "claude-opus-4-5-20251101", Name: "Claude Opus 4.5", Description: "Premium model, maximum quality", Provider: "anthropic"},
	{ID: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5", Description: "Best balance of speed and capability", Provider: "anthropic"},
	{ID: "claude-haiku-4-5-20251001", Name: "Claude Haiku 4.5", Description: "Fastest, most cost-effective", Provider: "anthropic"},
	{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", Description: "Previous balanced model", Provider: "anthropic"},
}

// openAIModels lists common models behind OpenAI-compatible endpoints. A
// self-hosted server accepts whatever it was launched with, so this is a
// suggestion list, not a constraint.
var openAIModels = []ModelInfo{
	{ID: "qwen3-32b", Name: "Qwen3 32B", Description: "Strong general model for self-hosting", Provider: "openai"},
	{ID: "deepseek-r1-distill-qwen-32b", Name: "DeepSeek R1 Distill 32B", Description: "Reasoning-tuned distill", Provider: "openai"},
	{ID: "gpt-4o", Name: "GPT-4o", Description: "Hosted multimodal model", Provider: "openai"},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Description: "Most cost-effective hosted model", Provider: "openai"},
}

// AvailableModels returns suggestion lists grouped by provider, keyed on the
// credentials present in the environment.
func AvailableModels() map[string][]ModelInfo {
	result := make(map[string][]ModelInfo)
	if os.Getenv("OPENAI_BASE_URL") != "" || os.Getenv("OPENAI_API_KEY") != "" {
		result["openai"] = openAIModels
	}
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		result["anthropic"] = anthropicModels
	}
	return result
}

// AllModels returns a flat suggestion list across available providers.
func AllModels() []ModelInfo {
	available := AvailableModels()
	var result []ModelInfo
	if models, ok := available["openai"]; ok {
		result = append(result, models...)
	}
	if models, ok := available["anthropic"]; ok {
		result = append(result, models...)
	}
	return result
}

// DetectAdapter resolves config into a concrete adapter. An explicit
// provider wins; otherwise an OpenAI-compatible endpoint is preferred since
// that is the self-hosted path, with the Anthropic API as fallback.
func DetectAdapter(config Config) (Adapter, error) {
	switch config.Provider {
	case "openai":
		return NewOpenAIAdapter(config)
	case "anthropic":
		return NewAnthropicAdapter(config)
	case "":
	default:
		return nil, fmt.Errorf("unknown provider %q (want openai or anthropic)", config.Provider)
	}

	if openai, err := NewOpenAIAdapter(config); err == nil && openai.IsAvailable() {
		return openai, nil
	}
	if anthropic, err := NewAnthropicAdapter(config); err == nil && anthropic.IsAvailable() {
		return anthropic, nil
	}
	return nil, fmt.Errorf("no LLM endpoint available - set base_url/OPENAI_BASE_URL or ANTHROPIC_API_KEY")
}

// ListAvailableAdapters names every adapter that could serve right now.
func ListAvailableAdapters(config Config) []string {
	available := []string{}
	if openai, err := NewOpenAIAdapter(config); err == nil && openai.IsAvailable() {
		available = append(available, openai.Name())
	}
	if anthropic, err := NewAnthropicAdapter(config); err == nil && anthropic.IsAvailable() {
		available = append(available, anthropic.Name())
	}
	return available
}

package ai

import (
	"fmt"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// Ensure Factory implements LLMServiceFactory
var _ driven.LLMServiceFactory = (*Factory)(nil)

// Supported providers. All of them speak the OpenAI chat completions API.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderOllama     = "ollama"
)

var providerDefaults = map[string]struct {
	baseURL string
	model   string
}{
	ProviderOpenRouter: {"https://openrouter.ai/api/v1", "openai/gpt-4o-mini"},
	ProviderOpenAI:     {"https://api.openai.com/v1", "gpt-4o-mini"},
	ProviderOllama:     {"http://localhost:11434/v1", "llama3.1"},
}

// Factory creates LLM services based on configuration
type Factory struct{}

// NewFactory creates a new LLM service factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateLLMService creates an LLM service from settings.
// Returns nil, nil if settings are not configured.
func (f *Factory) CreateLLMService(settings driven.LLMSettings) (driven.LLMService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	defaults, ok := providerDefaults[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}

	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = defaults.baseURL
	}
	model := settings.Model
	if model == "" {
		model = defaults.model
	}
	apiKey := settings.APIKey
	if apiKey == "" && settings.Provider == ProviderOllama {
		// Ollama ignores the key but the client requires one
		apiKey = "ollama"
	}

	return NewChatLLM(apiKey, model, baseURL)
}

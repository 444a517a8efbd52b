package driven

import (
	"context"
)

// Completion is a single reply from the LLM service
type Completion struct {
	Text        string
	TotalTokens int // 0 when the provider does not report usage
}

// LLMService provides text generation for the LLM-backed evaluator
type LLMService interface {
	// Complete sends a system role and a user prompt and returns the reply
	Complete(ctx context.Context, system, prompt string) (*Completion, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}

// LLMServiceFactory creates LLM services based on configuration
type LLMServiceFactory interface {
	// CreateLLMService creates an LLM service from settings.
	// Returns nil, nil if settings are not configured.
	CreateLLMService(settings LLMSettings) (LLMService, error)
}

// LLMSettings configures the LLM provider
type LLMSettings struct {
	Provider string // openrouter, openai, ollama
	Model    string
	APIKey   string
	BaseURL  string // overrides the provider default
}

// IsConfigured reports whether enough settings exist to create a client
func (s LLMSettings) IsConfigured() bool {
	if s.Provider == "" {
		return false
	}
	if s.Provider == "ollama" {
		return true
	}
	return s.APIKey != ""
}

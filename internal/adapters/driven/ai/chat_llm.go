package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// Ensure ChatLLM implements LLMService
var _ driven.LLMService = (*ChatLLM)(nil)

// ChatLLM implements LLMService over an OpenAI-compatible chat endpoint.
type ChatLLM struct {
	llm   llms.Model
	model string
}

// NewChatLLM creates a chat LLM client
func NewChatLLM(apiKey, model, baseURL string) (*ChatLLM, error) {
	if apiKey == "" {
		return nil, errors.New("LLM API key is required")
	}
	if model == "" {
		return nil, errors.New("LLM model is required")
	}

	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(strings.TrimSuffix(baseURL, "/")))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create chat client: %w", err)
	}
	return &ChatLLM{llm: llm, model: model}, nil
}

// Complete sends a system message and a user prompt.
func (c *ChatLLM) Complete(ctx context.Context, system, prompt string) (*driven.Completion, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(0.1))
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New("generate content: empty response")
	}

	choice := resp.Choices[0]
	return &driven.Completion{
		Text:        choice.Content,
		TotalTokens: totalTokens(choice.GenerationInfo),
	}, nil
}

// totalTokens reads the provider-reported usage, 0 when absent.
func totalTokens(info map[string]any) int {
	switch v := info["TotalTokens"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Model returns the model name being used
func (c *ChatLLM) Model() string {
	return c.model
}

// Ping issues a one-token completion to verify credentials and reachability.
func (c *ChatLLM) Ping(ctx context.Context) error {
	_, err := llms.GenerateFromSinglePrompt(ctx, c.llm, "ping", llms.WithMaxTokens(1))
	if err != nil {
		return fmt.Errorf("ping %s: %w", c.model, err)
	}
	return nil
}

// Close releases resources held by the client
func (c *ChatLLM) Close() error {
	return nil
}

package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// MockLLMService is a mock implementation of LLMService for testing
type MockLLMService struct {
	mu    sync.Mutex
	calls []LLMCall

	CompleteFn func(ctx context.Context, system, prompt string) (*driven.Completion, error)
	PingFn     func(ctx context.Context) error
	ModelName  string
	Closed     bool
}

// LLMCall records the arguments of one Complete call
type LLMCall struct {
	System string
	Prompt string
}

func NewMockLLMService() *MockLLMService {
	return &MockLLMService{ModelName: "mock-model"}
}

func (m *MockLLMService) Complete(ctx context.Context, system, prompt string) (*driven.Completion, error) {
	m.mu.Lock()
	m.calls = append(m.calls, LLMCall{System: system, Prompt: prompt})
	m.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, system, prompt)
	}
	return &driven.Completion{Text: "{}"}, nil
}

func (m *MockLLMService) Model() string {
	return m.ModelName
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn(ctx)
	}
	return nil
}

func (m *MockLLMService) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Calls returns the recorded Complete calls
func (m *MockLLMService) Calls() []LLMCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LLMCall, len(m.calls))
	copy(out, m.calls)
	return out
}

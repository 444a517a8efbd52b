package runtime

import (
	"context"
	"sync"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// LLMEvaluatorFactory wraps an LLM service in an evaluator.
type LLMEvaluatorFactory func(llm driven.LLMService) driven.Evaluator

// Services holds the evaluator capabilities computed at startup.
// The LLM service can be replaced at runtime; the evaluator in effect is
// recomputed whenever it changes.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	requested    domain.EvaluatorMode
	rules        driven.Evaluator
	newLLMEval   LLMEvaluatorFactory
	llmService   driven.LLMService
	llmEvaluator driven.Evaluator
}

// NewServices creates a new Services registry. rules may be nil to disable
// the rule-based evaluator; newLLMEval may be nil to disable the LLM one.
func NewServices(config *domain.RuntimeConfig, requested domain.EvaluatorMode, rules driven.Evaluator, newLLMEval LLMEvaluatorFactory) *Services {
	s := &Services{
		config:     config,
		requested:  requested,
		rules:      rules,
		newLLMEval: newLLMEval,
	}
	s.config.SetEvaluatorMode(s.config.ResolveEvaluatorMode(requested))
	return s
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// LLMService returns the current LLM service (may be nil)
func (s *Services) LLMService() driven.LLMService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llmService
}

// Evaluator returns the evaluator in effect, or nil when the configured
// mode has no backing implementation.
func (s *Services) Evaluator() driven.Evaluator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config.EvaluatorMode() == domain.EvaluatorLLM {
		return s.llmEvaluator
	}
	return s.rules
}

// SetLLMService updates the LLM service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetLLMService(svc driven.LLMService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.llmService != nil && s.llmService != svc {
		_ = s.llmService.Close()
	}

	s.llmService = svc
	s.llmEvaluator = nil
	if svc != nil && s.newLLMEval != nil {
		s.llmEvaluator = s.newLLMEval(svc)
	}

	s.config.SetLLMAvailable(s.llmEvaluator != nil)
	s.config.SetEvaluatorMode(s.config.ResolveEvaluatorMode(s.requested))
}

// ValidateAndSetLLM validates connectivity before setting the LLM service
func (s *Services) ValidateAndSetLLM(ctx context.Context, svc driven.LLMService) error {
	if svc == nil {
		s.SetLLMService(nil)
		return nil
	}

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetLLMService(svc)
	return nil
}

// Close shuts down all services
func (s *Services) Close() error {
	s.SetLLMService(nil)
	return nil
}

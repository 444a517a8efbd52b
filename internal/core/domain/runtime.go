package domain

import "sync"

// EvaluatorMode selects the evaluator implementation
type EvaluatorMode string

const (
	EvaluatorRules EvaluatorMode = "rules"
	EvaluatorLLM   EvaluatorMode = "llm"
	EvaluatorAuto  EvaluatorMode = "auto" // llm when reachable, rules otherwise
)

// RuntimeConfig tracks which capabilities are available at runtime.
// This is determined once at startup and passed into the pipeline; the LLM
// flag can change when the LLM service is replaced.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	LockBackend string // "redis", "postgres" or "memory"

	evaluatorMode    EvaluatorMode
	llmAvailable     bool
	supportedFormats []string
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(lockBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		LockBackend:   lockBackend,
		evaluatorMode: EvaluatorRules,
	}
}

// LLMAvailable returns whether the LLM service is available
func (c *RuntimeConfig) LLMAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.llmAvailable
}

// SetLLMAvailable updates the LLM availability flag
func (c *RuntimeConfig) SetLLMAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.llmAvailable = available
}

// EvaluatorMode returns the evaluator in effect
func (c *RuntimeConfig) EvaluatorMode() EvaluatorMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.evaluatorMode
}

// SetEvaluatorMode records the evaluator in effect
func (c *RuntimeConfig) SetEvaluatorMode(mode EvaluatorMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evaluatorMode = mode
}

// SupportedFormats returns the file extensions the parsers accept
func (c *RuntimeConfig) SupportedFormats() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.supportedFormats))
	copy(out, c.supportedFormats)
	return out
}

// SetSupportedFormats records the file extensions the parsers accept
func (c *RuntimeConfig) SetSupportedFormats(exts []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supportedFormats = append([]string(nil), exts...)
}

// CanDoLLMAssisted returns true if LLM evaluation is in effect
func (c *RuntimeConfig) CanDoLLMAssisted() bool {
	return c.LLMAvailable() && c.EvaluatorMode() == EvaluatorLLM
}

// ResolveEvaluatorMode picks the concrete evaluator for a requested mode
func (c *RuntimeConfig) ResolveEvaluatorMode(requested EvaluatorMode) EvaluatorMode {
	switch requested {
	case EvaluatorLLM:
		return EvaluatorLLM
	case EvaluatorAuto:
		if c.LLMAvailable() {
			return EvaluatorLLM
		}
	}
	return EvaluatorRules
}

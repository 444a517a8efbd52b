package driven

import (
	"context"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
)

// Evaluator renders a coverage decision from a question and its evidence.
// Implementations never fail: service errors are absorbed into a fallback
// decision, so the result is always usable.
type Evaluator interface {
	Evaluate(ctx context.Context, query string, evidence []domain.Evidence) *domain.Decision

	// Name identifies the implementation ("rules" or "llm")
	Name() string
}

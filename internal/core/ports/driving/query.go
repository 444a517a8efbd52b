package driving

import (
	"context"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
)

// QueryService answers questions against a corpus
type QueryService interface {
	// Ask retrieves evidence for the question, evaluates it and assembles the result
	Ask(ctx context.Context, question string, opts domain.AskOptions) (*domain.Result, error)
}

package mocks

import (
	"context"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
)

// MockEvaluator is a mock implementation of Evaluator for testing
type MockEvaluator struct {
	EvaluateFn func(ctx context.Context, query string, evidence []domain.Evidence) *domain.Decision
	NameValue  string

	// LastEvidence holds the evidence passed to the latest call
	LastEvidence []domain.Evidence
}

func NewMockEvaluator() *MockEvaluator {
	return &MockEvaluator{NameValue: "mock"}
}

func (m *MockEvaluator) Evaluate(ctx context.Context, query string, evidence []domain.Evidence) *domain.Decision {
	m.LastEvidence = evidence
	if m.EvaluateFn != nil {
		return m.EvaluateFn(ctx, query, evidence)
	}
	return &domain.Decision{Answer: "mock answer", Status: domain.StatusCovered}
}

func (m *MockEvaluator) Name() string {
	return m.NameValue
}

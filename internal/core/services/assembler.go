package services

import (
	"github.com/custodia-labs/policy-pundit/internal/core/domain"
)

// Defaults applied to fields an evaluator left empty.
const (
	DefaultAnswer     = "No answer provided"
	DefaultRationale  = "No rationale provided"
	DefaultConfidence = 0.9
	DefaultStatus     = domain.StatusConditional
)

// Assemble merges a decision and its evidence into the caller-facing result.
// Unknown statuses become conditional and confidence is kept within [0, 1].
func Assemble(decision *domain.Decision, evidence []domain.Evidence, query string) *domain.Result {
	if decision == nil {
		decision = &domain.Decision{}
	}

	result := &domain.Result{
		Query:             query,
		Answer:            decision.Answer,
		Evidence:          evidence,
		Conditions:        decision.Conditions,
		DecisionRationale: decision.DecisionRationale,
		Confidence:        DefaultConfidence,
		Status:            decision.Status,
		TokenUsage:        decision.TokenUsage,
	}

	if result.Answer == "" {
		result.Answer = DefaultAnswer
	}
	if result.DecisionRationale == "" {
		result.DecisionRationale = DefaultRationale
	}
	if result.Conditions == nil {
		result.Conditions = []string{}
	}
	if result.Evidence == nil {
		result.Evidence = []domain.Evidence{}
	}
	if !result.Status.IsValid() {
		result.Status = DefaultStatus
	}
	if decision.Confidence != nil {
		result.Confidence = clamp01(domain.SanitizeScore(*decision.Confidence))
	}
	return result
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Package evaluator implements the rule-based and LLM-backed evaluators.
package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Evaluator = (*Rules)(nil)

var (
	coverageTerms  = []string{"cover", "covered", "coverage", "include", "included"}
	exclusionTerms = []string{"exclude", "excluded", "not covered", "not include"}
	conditionTerms = []string{"if", "when", "provided", "subject to", "condition"}
)

// Rules decides coverage from keyword presence in the evidence text.
// Matching is by substring, so "covers" counts as coverage. It performs no
// I/O and always succeeds.
type Rules struct{}

// NewRules creates a rule-based evaluator.
func NewRules() *Rules {
	return &Rules{}
}

// Name returns "rules".
func (r *Rules) Name() string { return string(domain.EvaluatorRules) }

// Evaluate scans the concatenated evidence for coverage, exclusion and
// condition vocabulary.
func (r *Rules) Evaluate(ctx context.Context, query string, evidence []domain.Evidence) *domain.Decision {
	texts := make([]string, len(evidence))
	usage := len(query)
	for i, e := range evidence {
		texts[i] = e.Text
		usage += len(e.Text)
	}
	corpus := strings.ToLower(strings.Join(texts, " "))
	subject := strings.ToLower(query)

	hasCoverage := containsAny(corpus, coverageTerms)
	hasExclusion := containsAny(corpus, exclusionTerms)
	hasCondition := containsAny(corpus, conditionTerms)

	var status domain.Status
	var answer string
	switch {
	case hasCoverage && !hasExclusion:
		status = domain.StatusCovered
		answer = fmt.Sprintf("Yes, the policy covers %s. Based on the document analysis, this is included in the coverage.", subject)
	case hasCoverage && hasExclusion:
		status = domain.StatusConditional
		answer = fmt.Sprintf("The policy may cover %s, but there are specific conditions and exclusions that apply.", subject)
	case hasExclusion:
		status = domain.StatusNotCovered
		answer = fmt.Sprintf("No, the policy does not cover %s. This is explicitly excluded from coverage.", subject)
	default:
		status = domain.StatusUnclear
		answer = fmt.Sprintf("The coverage status for %s is unclear based on the available information.", subject)
	}

	conditions := []string{}
	if hasCondition {
		conditions = append(conditions, "Specific conditions may apply")
	}
	if hasCoverage {
		conditions = append(conditions, "Coverage is subject to policy terms")
	}

	var rationale strings.Builder
	fmt.Fprintf(&rationale, "Analysis of the document found %d relevant sections. ", len(evidence))
	if hasCoverage {
		rationale.WriteString("The policy appears to provide coverage for this query.")
	}
	if hasCondition {
		rationale.WriteString("However, there are specific conditions that must be met.")
	}
	if hasExclusion {
		rationale.WriteString("There are also exclusions that may limit coverage.")
	}

	confidence := 0.5
	if len(evidence) > 0 {
		confidence = 0.8
	}

	return &domain.Decision{
		Answer:            answer,
		Conditions:        conditions,
		DecisionRationale: rationale.String(),
		Confidence:        domain.Float64Ptr(confidence),
		Status:            status,
		TokenUsage:        domain.IntPtr(usage),
	}
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

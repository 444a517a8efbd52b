package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Evaluator = (*LLM)(nil)

// SystemRole is sent as the system message of every evaluation.
const SystemRole = "You are a policy analysis expert. Provide accurate, concise, and explainable answers based on the given document excerpts."

// DefaultTimeout bounds a single LLM call.
const DefaultTimeout = 30 * time.Second

const (
	malformedConfidence = 0.9
	fallbackConfidence  = 0.7
)

// LLM delegates the decision to an LLM service. Transport failures and
// timeouts never propagate: they produce a fixed fallback decision.
type LLM struct {
	llm     driven.LLMService
	timeout time.Duration
	logger  *slog.Logger
}

// NewLLM creates an LLM-backed evaluator. A non-positive timeout selects
// DefaultTimeout.
func NewLLM(llm driven.LLMService, timeout time.Duration, logger *slog.Logger) *LLM {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{
		llm:     llm,
		timeout: timeout,
		logger:  logger,
	}
}

// Name returns "llm".
func (e *LLM) Name() string { return string(domain.EvaluatorLLM) }

// Evaluate renders the prompt, calls the LLM and parses its reply.
func (e *LLM) Evaluate(ctx context.Context, query string, evidence []domain.Evidence) *domain.Decision {
	if e.llm == nil {
		e.logger.Warn("llm evaluator has no service, using fallback")
		return FallbackDecision(domain.ErrServiceUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	completion, err := e.llm.Complete(ctx, SystemRole, RenderPrompt(query, evidence))
	if err != nil {
		e.logger.Error("llm evaluation failed, using fallback",
			"model", e.llm.Model(),
			"duration", time.Since(start),
			"error", err,
		)
		return FallbackDecision(err)
	}

	e.logger.Debug("llm evaluation completed",
		"model", e.llm.Model(),
		"duration", time.Since(start),
		"tokens", completion.TotalTokens,
	)

	decision, ok := ParseReply(completion.Text)
	if !ok {
		e.logger.Warn("llm reply was not structured, using raw text", "model", e.llm.Model())
	}
	if completion.TotalTokens > 0 {
		decision.TokenUsage = domain.IntPtr(completion.TotalTokens)
	}
	return decision
}

// RenderPrompt embeds the question and each evidence item labelled by clause id.
func RenderPrompt(query string, evidence []domain.Evidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\n", query)
	b.WriteString("Relevant document excerpts:\n")
	for _, e := range evidence {
		fmt.Fprintf(&b, "Clause %s: %s\n", e.ClauseID, e.Text)
	}
	b.WriteString(`
Analyze the query against the provided document excerpts. Determine if the query is covered, not covered, conditional, or unclear.
Respond with a single JSON object and nothing else, using these keys:
- "answer": a string summarizing the finding
- "conditions": an array of strings listing conditions (empty if none)
- "decision_rationale": a string with the detailed reasoning, citing clause ids
- "confidence": a number between 0 and 1
- "status": one of "covered", "not_covered", "conditional", "unclear"
`)
	return b.String()
}

// reply mirrors the JSON object the LLM is asked to produce.
type reply struct {
	Answer            string   `json:"answer"`
	Conditions        []string `json:"conditions"`
	DecisionRationale string   `json:"decision_rationale"`
	Confidence        *float64 `json:"confidence"`
	Status            string   `json:"status"`
	TokenUsage        *int     `json:"token_usage"`
}

// ParseReply decodes a structured reply. A reply that is not a JSON object
// becomes the answer and rationale verbatim with confidence 0.9 and status
// conditional; ok reports which path was taken.
func ParseReply(text string) (decision *domain.Decision, ok bool) {
	if r, err := decodeReply(text); err == nil {
		return &domain.Decision{
			Answer:            r.Answer,
			Conditions:        r.Conditions,
			DecisionRationale: r.DecisionRationale,
			Confidence:        r.Confidence,
			Status:            domain.Status(strings.ToLower(strings.TrimSpace(r.Status))),
			TokenUsage:        r.TokenUsage,
		}, true
	}

	return &domain.Decision{
		Answer:            text,
		Conditions:        []string{},
		DecisionRationale: text,
		Confidence:        domain.Float64Ptr(malformedConfidence),
		Status:            domain.StatusConditional,
	}, false
}

// decodeReply accepts a bare object, a ```json fenced object, or an object
// embedded in surrounding prose.
func decodeReply(text string) (*reply, error) {
	candidates := []string{strings.TrimSpace(text), stripFence(text)}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}

	var lastErr error
	for _, c := range candidates {
		if !strings.HasPrefix(c, "{") {
			lastErr = errors.New("reply is not a JSON object")
			continue
		}
		var r reply
		if err := json.Unmarshal([]byte(c), &r); err != nil {
			lastErr = err
			continue
		}
		return &r, nil
	}
	return nil, lastErr
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// FallbackDecision is returned whenever the LLM cannot be reached.
func FallbackDecision(cause error) *domain.Decision {
	rationale := "The reasoning service is unavailable, so this answer was produced in fallback mode without analysing the evidence. Review the retrieved clauses directly."
	if cause != nil {
		rationale = fmt.Sprintf("%s (cause: %v)", rationale, cause)
	}
	return &domain.Decision{
		Answer:            "Unable to determine coverage automatically. Please review the retrieved policy clauses.",
		Conditions:        []string{},
		DecisionRationale: rationale,
		Confidence:        domain.Float64Ptr(fallbackConfidence),
		Status:            domain.StatusConditional,
	}
}

package domain

import "math"

// Status is the coverage determination of a Decision
type Status string

const (
	StatusCovered     Status = "covered"
	StatusNotCovered  Status = "not_covered"
	StatusConditional Status = "conditional"
	StatusUnclear     Status = "unclear"
)

// IsValid reports whether s is one of the known statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusCovered, StatusNotCovered, StatusConditional, StatusUnclear:
		return true
	}
	return false
}

// Evidence is a retrieved chunk annotated with its score and provenance
type Evidence struct {
	ClauseID        string  `json:"clause_id"`
	Text            string  `json:"text"`
	SimilarityScore float64 `json:"similarity_score"`
	Source          string  `json:"source"`
	Section         *string `json:"section"`
}

// Decision is the structured coverage determination produced by an evaluator.
// Confidence is nil when the evaluator did not report one.
type Decision struct {
	Answer            string   `json:"answer"`
	Conditions        []string `json:"conditions"`
	DecisionRationale string   `json:"decision_rationale"`
	Confidence        *float64 `json:"confidence"`
	Status            Status   `json:"status"`
	TokenUsage        *int     `json:"token_usage"`
}

// Result is the caller-facing response to one question
type Result struct {
	Query             string     `json:"query"`
	Answer            string     `json:"answer"`
	Evidence          []Evidence `json:"evidence"`
	Conditions        []string   `json:"conditions"`
	DecisionRationale string     `json:"decision_rationale"`
	Confidence        float64    `json:"confidence"`
	Status            Status     `json:"status"`
	TokenUsage        *int       `json:"token_usage"`
	ProcessingTime    *float64   `json:"processing_time"` // seconds
}

// AskOptions configures a question against a corpus
type AskOptions struct {
	CorpusID string `json:"corpus_id,omitempty"` // empty selects the active corpus
	TopK     int    `json:"top_k,omitempty"`
}

const (
	DefaultTopK = 5
	MaxTopK     = 20
)

// Normalize fills defaults and bounds TopK
func (o AskOptions) Normalize() AskOptions {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.TopK > MaxTopK {
		o.TopK = MaxTopK
	}
	return o
}

// SanitizeScore maps NaN and infinities to zero
func SanitizeScore(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Float64Ptr returns a pointer to v
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v
func IntPtr(v int) *int { return &v }

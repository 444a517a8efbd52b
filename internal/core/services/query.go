package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driving"
	"github.com/custodia-labs/policy-pundit/internal/runtime"
)

// Ensure queryService implements QueryService
var _ driving.QueryService = (*queryService)(nil)

// queryService implements the QueryService interface
type queryService struct {
	store    driven.CorpusStore
	services *runtime.Services // evaluator is resolved per request
	logger   *slog.Logger
	topK     int
}

// NewQueryService creates a new QueryService. topK is used when a request
// does not set one.
func NewQueryService(store driven.CorpusStore, services *runtime.Services, topK int, logger *slog.Logger) driving.QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &queryService{
		store:    store,
		services: services,
		logger:   logger,
		topK:     topK,
	}
}

// Ask retrieves evidence, evaluates it and assembles the result.
func (s *queryService) Ask(ctx context.Context, question string, opts domain.AskOptions) (*domain.Result, error) {
	start := time.Now()

	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is required: %w", domain.ErrInvalidInput)
	}
	if opts.TopK <= 0 {
		opts.TopK = s.topK
	}
	opts = opts.Normalize()

	evaluator := s.services.Evaluator()
	if evaluator == nil {
		return nil, domain.ErrEvaluatorUnavailable
	}

	corpus, err := resolveCorpus(ctx, s.store, opts.CorpusID)
	if err != nil {
		return nil, err
	}
	if len(corpus.Chunks) == 0 || !corpus.IndexBuilt() {
		return nil, fmt.Errorf("corpus %s: %w", corpus.ID, domain.ErrCorpusEmpty)
	}

	evidence := Retrieve(corpus, question, opts.TopK)
	decision := evaluator.Evaluate(ctx, question, evidence)
	result := Assemble(decision, evidence, question)

	elapsed := time.Since(start)
	result.ProcessingTime = domain.Float64Ptr(elapsed.Seconds())

	s.logger.Info("question answered",
		"corpus_id", corpus.ID,
		"evaluator", evaluator.Name(),
		"evidence", len(evidence),
		"status", result.Status,
		"confidence", result.Confidence,
		"duration", elapsed,
	)
	return result, nil
}

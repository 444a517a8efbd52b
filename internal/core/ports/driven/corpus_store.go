package driven

import (
	"context"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
)

// CorpusStore keeps immutable corpus snapshots addressed by handle.
// Readers always observe a complete snapshot.
type CorpusStore interface {
	// Put stores a snapshot, replacing any previous one with the same ID,
	// and marks it as the active corpus
	Put(ctx context.Context, corpus *domain.Corpus) error

	// Get retrieves a snapshot by ID; domain.ErrCorpusNotFound if absent
	Get(ctx context.Context, id string) (*domain.Corpus, error)

	// Active returns the most recently stored snapshot
	Active(ctx context.Context) (*domain.Corpus, error)

	// Delete removes a snapshot
	Delete(ctx context.Context, id string) error

	// List returns the stored corpus IDs
	List(ctx context.Context) ([]string, error)
}

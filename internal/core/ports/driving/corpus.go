package driving

import (
	"context"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
)

// UploadRequest carries one uploaded document
type UploadRequest struct {
	CorpusID string // empty creates a new corpus handle
	Filename string
	Data     []byte
}

// CorpusService ingests documents into corpus snapshots
type CorpusService interface {
	// Upload parses, chunks and indexes a document, replacing the corpus
	// addressed by req.CorpusID (or a new one) with a fresh snapshot
	Upload(ctx context.Context, req UploadRequest) (*domain.UploadResult, error)

	// Status reports on a corpus; an empty id selects the active corpus
	Status(ctx context.Context, corpusID string) (*domain.CorpusStatus, error)

	// Delete removes a corpus snapshot
	Delete(ctx context.Context, corpusID string) error

	// SupportedFormats returns the accepted file extensions
	SupportedFormats() []string
}

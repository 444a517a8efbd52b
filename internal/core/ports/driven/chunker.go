package driven

import "github.com/custodia-labs/policy-pundit/internal/core/domain"

// Chunker splits documents into bounded, overlapping chunks.
// len(chunks) == len(metadata) and metadata[i] describes chunks[i].
type Chunker interface {
	Chunk(docs []domain.Document) (chunks []domain.Chunk, metadata []domain.ChunkMetadata)
}

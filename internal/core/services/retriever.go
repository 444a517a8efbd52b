package services

import (
	"log/slog"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
)

// Retrieve searches the corpus index and turns the ranked positions into
// evidence. Positions outside the chunk or metadata sequences are dropped,
// and scores are sanitized again before they leave the retrieval layer.
func Retrieve(corpus *domain.Corpus, query string, k int) []domain.Evidence {
	evidence := []domain.Evidence{}
	if !corpus.IndexBuilt() || k <= 0 {
		return evidence
	}

	scores, indices := corpus.Index.Search(query, k)
	for i, idx := range indices {
		if idx < 0 || idx >= len(corpus.Chunks) || idx >= len(corpus.Metadata) || i >= len(scores) {
			slog.Warn("dropping out-of-range search result",
				"corpus_id", corpus.ID,
				"index", idx,
				"chunks", len(corpus.Chunks),
			)
			continue
		}

		meta := corpus.Metadata[idx]
		evidence = append(evidence, domain.Evidence{
			ClauseID:        meta.ChunkID,
			Text:            corpus.Chunks[idx].Text,
			SimilarityScore: domain.SanitizeScore(scores[i]),
			Source:          meta.SourcePath,
		})
	}
	return evidence
}

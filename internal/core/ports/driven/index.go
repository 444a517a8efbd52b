package driven

import "github.com/custodia-labs/policy-pundit/internal/core/domain"

// IndexBuilder builds a similarity index over a fixed sequence of chunk texts.
// Every build is a full rebuild; an empty input yields a valid empty index.
type IndexBuilder interface {
	Build(texts []string) domain.SimilarityIndex
}

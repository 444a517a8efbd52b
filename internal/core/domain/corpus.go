package domain

import "time"

// SimilarityIndex answers top-k nearest-neighbour queries over a fixed set of
// chunk texts. Implementations are immutable after build and safe for
// concurrent searches.
type SimilarityIndex interface {
	// Search returns at most k scores and chunk positions, best first.
	// An empty index or blank query yields empty slices.
	Search(query string, k int) (scores []float64, indices []int)

	// Len returns the number of indexed chunks
	Len() int

	// VocabularySize returns the number of terms fixed at build time
	VocabularySize() int
}

// Corpus is an immutable snapshot of chunked, indexed documents.
// Metadata[i] describes Chunks[i] for every i.
type Corpus struct {
	ID        string
	Documents []string // source paths in upload order
	Chunks    []Chunk
	Metadata  []ChunkMetadata
	Index     SimilarityIndex
	CreatedAt time.Time
}

// IndexBuilt reports whether the corpus carries a usable index
func (c *Corpus) IndexBuilt() bool {
	return c != nil && c.Index != nil
}

// CorpusStatus summarises the state of a corpus for status endpoints
type CorpusStatus struct {
	CorpusID          string   `json:"corpus_id"`
	DocumentsLoaded   bool     `json:"documents_loaded"`
	ChunksCount       int      `json:"chunks_count"`
	IndexBuilt        bool     `json:"index_built"`
	ServicesAvailable bool     `json:"services_available"`
	EvaluatorMode     string   `json:"evaluator_mode"`
	LLMAssisted       bool     `json:"llm_assisted"`
	Corpora           []string `json:"corpora"`
}

// UploadResult is returned after a document has been ingested
type UploadResult struct {
	Message         string `json:"message"`
	CorpusID        string `json:"corpus_id"`
	Filename        string `json:"filename"`
	ChunksProcessed int    `json:"chunks_processed"`
}

package domain

import "fmt"

// Document is extracted text handed to the chunker. RawText may hold an
// "Error: ..." string when extraction failed; it is chunked like any text.
type Document struct {
	SourcePath string `json:"source_path"`
	RawText    string `json:"raw_text"`
}

// Chunk is a bounded span of document text with stable identity
type Chunk struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	SourcePath  string `json:"source_path"`
	Sequence    int    `json:"sequence_index"`
	StartOffset int    `json:"start_offset"` // byte offset of the first word in RawText
}

// ChunkMetadata describes the chunk at the same position in a corpus
type ChunkMetadata struct {
	ChunkID     string `json:"chunk_id"`
	SourcePath  string `json:"source_path"`
	StartOffset int    `json:"start_offset"`
}

// ChunkID derives the id of the n-th chunk of a source
func ChunkID(sourcePath string, sequence int) string {
	return fmt.Sprintf("%s_%d", sourcePath, sequence)
}

// Metadata returns the provenance record for this chunk
func (c Chunk) Metadata() ChunkMetadata {
	return ChunkMetadata{
		ChunkID:     c.ID,
		SourcePath:  c.SourcePath,
		StartOffset: c.StartOffset,
	}
}

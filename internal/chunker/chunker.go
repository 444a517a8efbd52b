// Package chunker splits extracted document text into word-bounded,
// overlapping chunks with provenance metadata.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Chunker = (*Chunker)(nil)

// ParagraphSeparator joins paragraphs inside a chunk.
const ParagraphSeparator = "\n\n"

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// ChunkConfig configures the chunker behavior.
type ChunkConfig struct {
	// MaxTokens is the maximum number of whitespace-separated words per chunk
	MaxTokens int

	// Overlap is the fraction of a flushed chunk's trailing words carried
	// into the next one, in [0, 1)
	Overlap float64
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxTokens: 512,
		Overlap:   0.15,
	}
}

// normalize replaces out-of-range values with defaults.
func (c ChunkConfig) normalize() ChunkConfig {
	def := DefaultChunkConfig()
	if c.MaxTokens <= 0 {
		c.MaxTokens = def.MaxTokens
	}
	if c.Overlap < 0 || c.Overlap >= 1 {
		c.Overlap = def.Overlap
	}
	return c
}

// Stride is the hard-split window step: MaxTokens*(1-Overlap), at least 1.
func (c ChunkConfig) Stride() int {
	c = c.normalize()
	stride := c.MaxTokens - int(float64(c.MaxTokens)*c.Overlap)
	if stride < 1 {
		stride = 1
	}
	return stride
}

// Chunker splits documents into chunks along paragraph boundaries.
// It is stateless and safe for concurrent use.
type Chunker struct {
	config ChunkConfig
}

// NewChunker creates a new chunker with the given config.
func NewChunker(config ChunkConfig) *Chunker {
	return &Chunker{config: config.normalize()}
}

// Config returns the effective configuration.
func (c *Chunker) Config() ChunkConfig {
	return c.config
}

// Chunk splits every document and returns chunks with parallel metadata.
// Sequence numbers restart at 0 for each document.
func (c *Chunker) Chunk(docs []domain.Document) ([]domain.Chunk, []domain.ChunkMetadata) {
	chunks := make([]domain.Chunk, 0)
	for _, doc := range docs {
		chunks = append(chunks, c.chunkDocument(doc)...)
	}

	metadata := make([]domain.ChunkMetadata, len(chunks))
	for i, chunk := range chunks {
		metadata[i] = chunk.Metadata()
	}
	return chunks, metadata
}

// word is a whitespace-delimited token and its byte offset in the source text.
type word struct {
	text   string
	offset int
}

type paragraph struct {
	text  string
	words []word
}

// buffer accumulates paragraphs until the next flush.
type buffer struct {
	parts []string
	words []word
}

func (b *buffer) empty() bool { return len(b.words) == 0 }

func (b *buffer) add(p paragraph) {
	b.parts = append(b.parts, p.text)
	b.words = append(b.words, p.words...)
}

func (b *buffer) text() string {
	return strings.Join(b.parts, ParagraphSeparator)
}

// tail returns the trailing floor(len*overlap) words.
func (b *buffer) tail(overlap float64) []word {
	n := int(float64(len(b.words)) * overlap)
	if n <= 0 {
		return nil
	}
	return append([]word(nil), b.words[len(b.words)-n:]...)
}

func (c *Chunker) chunkDocument(doc domain.Document) []domain.Chunk {
	var (
		out []domain.Chunk
		buf buffer
		maxTokens = c.config.MaxTokens
	)

	emit := func(text string, first int) {
		seq := len(out)
		out = append(out, domain.Chunk{
			ID:          domain.ChunkID(doc.SourcePath, seq),
			Text:        text,
			SourcePath:  doc.SourcePath,
			Sequence:    seq,
			StartOffset: first,
		})
	}

	for _, para := range splitParagraphs(doc.RawText) {
		n := len(para.words)
		if len(buf.words)+n <= maxTokens {
			buf.add(para)
			continue
		}

		var carry []word
		if !buf.empty() {
			emit(buf.text(), buf.words[0].offset)
			carry = buf.tail(c.config.Overlap)
		}
		buf = buffer{}

		if n > maxTokens {
			for _, window := range c.hardSplit(para.words) {
				emit(joinWords(window), window[0].offset)
			}
			continue
		}

		if len(carry) > 0 && len(carry)+n <= maxTokens {
			buf.add(paragraph{text: joinWords(carry), words: carry})
		}
		buf.add(para)
	}

	if !buf.empty() {
		emit(buf.text(), buf.words[0].offset)
	}
	return out
}

// hardSplit slides a MaxTokens window across words with the configured
// stride, stopping after the window that reaches the end.
func (c *Chunker) hardSplit(words []word) [][]word {
	maxTokens := c.config.MaxTokens
	stride := c.config.Stride()

	var windows [][]word
	for start := 0; start < len(words); start += stride {
		end := start + maxTokens
		if end > len(words) {
			end = len(words)
		}
		windows = append(windows, words[start:end])
		if end == len(words) {
			break
		}
	}
	return windows
}

// splitParagraphs splits text on blank lines, dropping empty paragraphs.
func splitParagraphs(text string) []paragraph {
	var paras []paragraph
	start := 0
	add := func(end int) {
		segment := text[start:end]
		words := fields(segment, start)
		if len(words) == 0 {
			return
		}
		paras = append(paras, paragraph{text: strings.TrimSpace(segment), words: words})
	}

	for _, loc := range paragraphBreak.FindAllStringIndex(text, -1) {
		add(loc[0])
		start = loc[1]
	}
	add(len(text))
	return paras
}

// fields behaves like strings.Fields but records byte offsets.
func fields(s string, base int) []word {
	var words []word
	start := -1
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, word{text: s[start:i], offset: base + start})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}
	if start >= 0 {
		words = append(words, word{text: s[start:], offset: base + start})
	}
	return words
}

func joinWords(words []word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.text
	}
	return strings.Join(parts, " ")
}

// Package tfidf implements the vector index with TF-IDF weights and
// brute-force cosine ranking.
package tfidf

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.IndexBuilder    = (*Builder)(nil)
	_ domain.SimilarityIndex = (*Index)(nil)
)

// DefaultMaxFeatures caps the vocabulary size.
const DefaultMaxFeatures = 1000

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Config configures index builds.
type Config struct {
	// MaxFeatures keeps only the most frequent terms across the corpus
	MaxFeatures int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxFeatures: DefaultMaxFeatures}
}

// Builder builds TF-IDF indexes.
type Builder struct {
	config    Config
	stopwords map[string]struct{}
}

// NewBuilder creates a builder with the given config.
func NewBuilder(config Config) *Builder {
	if config.MaxFeatures <= 0 {
		config.MaxFeatures = DefaultMaxFeatures
	}
	return &Builder{
		config:    config,
		stopwords: englishStopwords(),
	}
}

// Name returns the identifier of this index implementation.
func (b *Builder) Name() string { return "tfidf" }

// sparseVector holds non-zero weights sorted by dimension.
type sparseVector struct {
	dims    []int
	weights []float64
	norm    float64
}

// Index is an immutable TF-IDF index. Safe for concurrent searches.
type Index struct {
	vocabulary map[string]int
	idf        []float64
	vectors    []sparseVector
	stopwords  map[string]struct{}
}

// Build learns the vocabulary and IDF weights from texts and vectorises
// each of them. An empty input yields an empty index.
func (b *Builder) Build(texts []string) domain.SimilarityIndex {
	idx := &Index{
		vocabulary: make(map[string]int),
		stopwords:  b.stopwords,
	}
	if len(texts) == 0 {
		return idx
	}

	tokenized := make([][]string, len(texts))
	counts := make(map[string]int)
	df := make(map[string]int)
	for i, text := range texts {
		tokens := tokenize(text, b.stopwords)
		tokenized[i] = tokens
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			counts[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := selectFeatures(counts, b.config.MaxFeatures)
	idx.idf = make([]float64, len(terms))
	n := float64(len(texts))
	for i, term := range terms {
		idx.vocabulary[term] = i
		// Smoothed IDF
		idx.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	idx.vectors = make([]sparseVector, len(texts))
	for i, tokens := range tokenized {
		idx.vectors[i] = idx.vectorize(tokens)
	}
	return idx
}

// selectFeatures keeps the maxFeatures most frequent terms (ties broken
// alphabetically) and returns them in alphabetical order.
func selectFeatures(counts map[string]int, maxFeatures int) []string {
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	if len(terms) > maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if counts[terms[i]] != counts[terms[j]] {
				return counts[terms[i]] > counts[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)
	return terms
}

// vectorize maps tokens onto the fixed vocabulary; unknown terms are ignored.
func (x *Index) vectorize(tokens []string) sparseVector {
	tf := make(map[int]int)
	for _, tok := range tokens {
		if dim, ok := x.vocabulary[tok]; ok {
			tf[dim]++
		}
	}

	vec := sparseVector{
		dims:    make([]int, 0, len(tf)),
		weights: make([]float64, 0, len(tf)),
	}
	for dim := range tf {
		vec.dims = append(vec.dims, dim)
	}
	sort.Ints(vec.dims)

	sum := 0.0
	for _, dim := range vec.dims {
		w := float64(tf[dim]) * x.idf[dim]
		vec.weights = append(vec.weights, w)
		sum += w * w
	}

	// L2 normalize
	norm := math.Sqrt(sum)
	if norm > 0 {
		for i := range vec.weights {
			vec.weights[i] /= norm
		}
		vec.norm = 1
	}
	return vec
}

// Len returns the number of indexed chunks.
func (x *Index) Len() int { return len(x.vectors) }

// VocabularySize returns the number of terms fixed at build time.
func (x *Index) VocabularySize() int { return len(x.vocabulary) }

// Search ranks every chunk by cosine similarity to the query and returns
// at most k of them, best first. Ties keep chunk order.
func (x *Index) Search(query string, k int) ([]float64, []int) {
	if len(x.vectors) == 0 || k <= 0 || strings.TrimSpace(query) == "" {
		return []float64{}, []int{}
	}

	q := x.vectorize(tokenize(query, x.stopwords))

	scores := make([]float64, len(x.vectors))
	order := make([]int, len(x.vectors))
	for i, vec := range x.vectors {
		scores[i] = cosine(q, vec)
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	outScores := make([]float64, k)
	outIdx := make([]int, k)
	for i := 0; i < k; i++ {
		outIdx[i] = order[i]
		outScores[i] = scores[order[i]]
	}
	return outScores, outIdx
}

// cosine is zero when either vector has no weight, and never NaN or Inf.
func cosine(a, b sparseVector) float64 {
	if a.norm == 0 || b.norm == 0 {
		return 0
	}
	dot := 0.0
	i, j := 0, 0
	for i < len(a.dims) && j < len(b.dims) {
		switch {
		case a.dims[i] == b.dims[j]:
			dot += a.weights[i] * b.weights[j]
			i++
			j++
		case a.dims[i] < b.dims[j]:
			i++
		default:
			j++
		}
	}
	return domain.SanitizeScore(dot / (a.norm * b.norm))
}

func tokenize(text string, stopwords map[string]struct{}) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

package services

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policy-pundit/internal/adapters/driven/evaluator"
	"github.com/custodia-labs/policy-pundit/internal/adapters/driven/memory"
	"github.com/custodia-labs/policy-pundit/internal/adapters/driven/tfidf"
	"github.com/custodia-labs/policy-pundit/internal/chunker"
	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/policy-pundit/internal/parsers"
	"github.com/custodia-labs/policy-pundit/internal/runtime"
)

// policyText yields two chunks with an 8-word limit: one coverage clause and
// one exclusion clause.
const policyText = "Section 1: Coverage. The policy covers dental work.\n\n" +
	"Section 2: Exclusions. Cosmetic surgery is not covered."

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeIndex returns canned search results
type fakeIndex struct {
	scores  []float64
	indices []int
	size    int
}

func (f *fakeIndex) Search(query string, k int) ([]float64, []int) {
	return f.scores, f.indices
}

func (f *fakeIndex) Len() int            { return f.size }
func (f *fakeIndex) VocabularySize() int { return 0 }

type testEnv struct {
	store    *memory.CorpusStore
	lock     *mocks.MockDistributedLock
	services *runtime.Services
	corpus   *corpusService
	query    *queryService
}

func newTestEnv(t *testing.T, eval driven.Evaluator) *testEnv {
	t.Helper()

	store, err := memory.NewCorpusStore(4)
	require.NoError(t, err)

	if eval == nil {
		eval = evaluator.NewRules()
	}
	services := runtime.NewServices(domain.NewRuntimeConfig("memory"), domain.EvaluatorRules, eval, nil)
	lock := mocks.NewMockDistributedLock()

	corpus := NewCorpusService(CorpusDeps{
		Parsers:  parsers.DefaultRegistry(),
		Chunker:  chunker.NewChunker(chunker.ChunkConfig{MaxTokens: 8, Overlap: 0}),
		Indexer:  tfidf.NewBuilder(tfidf.DefaultConfig()),
		Store:    store,
		Lock:     lock,
		Services: services,
		Logger:   discardLogger(),
	}).(*corpusService)

	query := NewQueryService(store, services, domain.DefaultTopK, discardLogger()).(*queryService)

	return &testEnv{
		store:    store,
		lock:     lock,
		services: services,
		corpus:   corpus,
		query:    query,
	}
}

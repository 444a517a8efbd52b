// Package memory provides in-process implementations of the corpus store
// and the upload lock.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CorpusStore = (*CorpusStore)(nil)

// DefaultCapacity bounds the number of corpora kept in memory.
const DefaultCapacity = 16

// CorpusStore keeps immutable corpus snapshots in a bounded LRU cache.
// The least recently used corpus is evicted when capacity is reached.
type CorpusStore struct {
	mu       sync.RWMutex
	cache    *lru.Cache
	activeID string
}

// NewCorpusStore creates a store holding at most capacity corpora.
func NewCorpusStore(capacity int) (*CorpusStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.NewWithEvict(capacity, func(key, _ interface{}) {
		slog.Info("corpus evicted", "corpus_id", key)
	})
	if err != nil {
		return nil, fmt.Errorf("create corpus cache: %w", err)
	}
	return &CorpusStore{cache: cache}, nil
}

// Put stores the snapshot and makes it the active corpus.
func (s *CorpusStore) Put(ctx context.Context, corpus *domain.Corpus) error {
	if corpus == nil || corpus.ID == "" {
		return fmt.Errorf("put corpus: %w", domain.ErrInvalidInput)
	}
	if len(corpus.Chunks) != len(corpus.Metadata) {
		return fmt.Errorf("put corpus %s: %d chunks but %d metadata: %w",
			corpus.ID, len(corpus.Chunks), len(corpus.Metadata), domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Add(corpus.ID, corpus)
	s.activeID = corpus.ID
	return nil
}

// Get retrieves a snapshot by ID.
func (s *CorpusStore) Get(ctx context.Context, id string) (*domain.Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("corpus %s: %w", id, domain.ErrCorpusNotFound)
	}
	return v.(*domain.Corpus), nil
}

// Active returns the most recently stored snapshot.
func (s *CorpusStore) Active(ctx context.Context) (*domain.Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeID == "" {
		return nil, domain.ErrCorpusNotFound
	}
	v, ok := s.cache.Peek(s.activeID)
	if !ok {
		return nil, domain.ErrCorpusNotFound
	}
	return v.(*domain.Corpus), nil
}

// Delete removes a snapshot. Deleting the active corpus promotes the most
// recently used remaining one.
func (s *CorpusStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cache.Contains(id) {
		return fmt.Errorf("corpus %s: %w", id, domain.ErrCorpusNotFound)
	}
	s.cache.Remove(id)

	if s.activeID == id {
		s.activeID = ""
		// Keys are ordered oldest to newest
		if keys := s.cache.Keys(); len(keys) > 0 {
			s.activeID = keys[len(keys)-1].(string)
		}
	}
	return nil
}

// List returns the stored corpus IDs, sorted.
func (s *CorpusStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.cache.Keys()
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.(string))
	}
	sort.Strings(ids)
	return ids, nil
}

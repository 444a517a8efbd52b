package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driving"
	"github.com/custodia-labs/policy-pundit/internal/runtime"
)

// Ensure corpusService implements CorpusService
var _ driving.CorpusService = (*corpusService)(nil)

// DefaultUploadLockTTL bounds how long a crashed upload can block its corpus.
const DefaultUploadLockTTL = 2 * time.Minute

// UploadMessage is returned on successful ingestion.
const UploadMessage = "Document uploaded successfully"

// CorpusDeps groups the collaborators of the corpus service.
type CorpusDeps struct {
	Parsers  driven.ParserRegistry
	Chunker  driven.Chunker
	Indexer  driven.IndexBuilder
	Store    driven.CorpusStore
	Lock     driven.DistributedLock
	Services *runtime.Services
	Logger   *slog.Logger
	LockTTL  time.Duration
}

// corpusService implements the CorpusService interface
type corpusService struct {
	parsers  driven.ParserRegistry
	chunker  driven.Chunker
	indexer  driven.IndexBuilder
	store    driven.CorpusStore
	lock     driven.DistributedLock
	services *runtime.Services
	logger   *slog.Logger
	lockTTL  time.Duration
	now      func() time.Time
}

// NewCorpusService creates a new CorpusService
func NewCorpusService(deps CorpusDeps) driving.CorpusService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = DefaultUploadLockTTL
	}
	return &corpusService{
		parsers:  deps.Parsers,
		chunker:  deps.Chunker,
		indexer:  deps.Indexer,
		store:    deps.Store,
		lock:     deps.Lock,
		services: deps.Services,
		logger:   deps.Logger,
		lockTTL:  deps.LockTTL,
		now:      time.Now,
	}
}

func lockName(corpusID string) string {
	return "corpus:" + corpusID
}

// Upload parses, chunks and indexes one document into a fresh snapshot.
// Extraction failures are kept as "Error: ..." text rather than failing.
func (s *corpusService) Upload(ctx context.Context, req driving.UploadRequest) (*domain.UploadResult, error) {
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		return nil, fmt.Errorf("filename is required: %w", domain.ErrInvalidInput)
	}

	parser := s.parsers.Get(filename)
	if parser == nil {
		return nil, fmt.Errorf("%s (supported: %s): %w",
			filename, strings.Join(s.parsers.List(), ", "), domain.ErrUnsupportedFormat)
	}

	corpusID := req.CorpusID
	if corpusID == "" {
		corpusID = uuid.NewString()
	}

	name := lockName(corpusID)
	token, acquired, err := s.lock.Acquire(ctx, name, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock corpus %s: %w", corpusID, err)
	}
	if !acquired {
		return nil, fmt.Errorf("corpus %s: %w", corpusID, domain.ErrUploadInProgress)
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), name, token); err != nil {
			s.logger.Warn("failed to release upload lock", "corpus_id", corpusID, "error", err)
		}
	}()

	start := s.now()

	text, err := parser.Parse(req.Data)
	if err != nil {
		s.logger.Warn("document extraction failed", "filename", filename, "error", err)
		text = "Error: " + err.Error()
	}

	chunks, metadata := s.chunker.Chunk([]domain.Document{{SourcePath: filename, RawText: text}})
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	corpus := &domain.Corpus{
		ID:        corpusID,
		Documents: []string{filename},
		Chunks:    chunks,
		Metadata:  metadata,
		Index:     s.indexer.Build(texts),
		CreatedAt: s.now(),
	}

	// Parsing may have outlived the TTL; only publish while still the owner.
	if err := s.lock.Extend(ctx, name, token, s.lockTTL); err != nil {
		if errors.Is(err, domain.ErrLockNotHeld) {
			return nil, fmt.Errorf("corpus %s: upload lock expired: %w", corpusID, domain.ErrUploadInProgress)
		}
		return nil, fmt.Errorf("extend lock for corpus %s: %w", corpusID, err)
	}
	if err := s.store.Put(ctx, corpus); err != nil {
		return nil, fmt.Errorf("store corpus %s: %w", corpusID, err)
	}

	s.logger.Info("document ingested",
		"corpus_id", corpusID,
		"filename", filename,
		"bytes", len(req.Data),
		"chunks", len(chunks),
		"vocabulary", corpus.Index.VocabularySize(),
		"duration", s.now().Sub(start),
	)

	return &domain.UploadResult{
		Message:         UploadMessage,
		CorpusID:        corpusID,
		Filename:        filename,
		ChunksProcessed: len(chunks),
	}, nil
}

// Status reports on a corpus. With no corpus uploaded yet it returns an
// empty status rather than an error; an unknown explicit id is an error.
func (s *corpusService) Status(ctx context.Context, corpusID string) (*domain.CorpusStatus, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list corpora: %w", err)
	}

	status := &domain.CorpusStatus{
		CorpusID:          corpusID,
		ServicesAvailable: s.services.Evaluator() != nil,
		EvaluatorMode:     string(s.services.Config().EvaluatorMode()),
		LLMAssisted:       s.services.Config().CanDoLLMAssisted(),
		Corpora:           ids,
	}

	corpus, err := resolveCorpus(ctx, s.store, corpusID)
	switch {
	case errors.Is(err, domain.ErrCorpusNotFound) && corpusID == "":
		return status, nil
	case err != nil:
		return nil, err
	}

	status.CorpusID = corpus.ID
	status.DocumentsLoaded = len(corpus.Chunks) > 0
	status.ChunksCount = len(corpus.Chunks)
	status.IndexBuilt = corpus.IndexBuilt()
	return status, nil
}

// Delete removes a corpus snapshot
func (s *corpusService) Delete(ctx context.Context, corpusID string) error {
	if corpusID == "" {
		return fmt.Errorf("corpus id is required: %w", domain.ErrInvalidInput)
	}
	if err := s.store.Delete(ctx, corpusID); err != nil {
		return err
	}
	s.logger.Info("corpus deleted", "corpus_id", corpusID)
	return nil
}

// SupportedFormats returns the accepted file extensions
func (s *corpusService) SupportedFormats() []string {
	return s.parsers.List()
}

// resolveCorpus returns the named corpus, or the active one for an empty id.
func resolveCorpus(ctx context.Context, store driven.CorpusStore, corpusID string) (*domain.Corpus, error) {
	if corpusID == "" {
		return store.Active(ctx)
	}
	return store.Get(ctx, corpusID)
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policy-pundit/internal/adapters/driven/evaluator"
	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driving"
	"github.com/custodia-labs/policy-pundit/internal/runtime"
)

func TestUpload_IndexesDocument(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	res, err := env.corpus.Upload(ctx, driving.UploadRequest{
		CorpusID: "acme",
		Filename: "policy.txt",
		Data:     []byte(policyText),
	})
	require.NoError(t, err)

	assert.Equal(t, UploadMessage, res.Message)
	assert.Equal(t, "acme", res.CorpusID)
	assert.Equal(t, "policy.txt", res.Filename)
	assert.Equal(t, 2, res.ChunksProcessed)

	corpus, err := env.store.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"policy.txt"}, corpus.Documents)
	assert.True(t, corpus.IndexBuilt())
	assert.Equal(t, 2, corpus.Index.Len())
	assert.Equal(t, "policy.txt_0", corpus.Metadata[0].ChunkID)
	assert.Equal(t, "policy.txt_1", corpus.Metadata[1].ChunkID)

	assert.Equal(t, []string{"corpus:acme"}, env.lock.Acquired)
	assert.Equal(t, []string{"corpus:acme"}, env.lock.Extended)
	assert.Equal(t, []string{"corpus:acme"}, env.lock.Released)
	assert.False(t, env.lock.IsHeld("corpus:acme"))
}

func TestUpload_GeneratesCorpusID(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.corpus.Upload(context.Background(), driving.UploadRequest{
		Filename: "policy.txt",
		Data:     []byte(policyText),
	})
	require.NoError(t, err)

	assert.Len(t, res.CorpusID, 36)
	active, err := env.store.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.CorpusID, active.ID)
}

func TestUpload_ReplacesSnapshot(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.corpus.Upload(ctx, driving.UploadRequest{CorpusID: "acme", Filename: "old.txt", Data: []byte(policyText)})
	require.NoError(t, err)
	_, err = env.corpus.Upload(ctx, driving.UploadRequest{CorpusID: "acme", Filename: "new.txt", Data: []byte("Vision care is included.")})
	require.NoError(t, err)

	corpus, err := env.store.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"new.txt"}, corpus.Documents)
	require.Len(t, corpus.Chunks, 1)
	assert.Equal(t, "new.txt_0", corpus.Chunks[0].ID)
}

func TestUpload_UnsupportedFormat(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.corpus.Upload(context.Background(), driving.UploadRequest{Filename: "sheet.xlsx", Data: []byte("x")})

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.Empty(t, env.lock.Acquired)
}

func TestUpload_MissingFilename(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.corpus.Upload(context.Background(), driving.UploadRequest{Filename: "  "})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpload_InProgress(t *testing.T) {
	env := newTestEnv(t, nil)
	env.lock.SetLockHeld("corpus:acme")

	_, err := env.corpus.Upload(context.Background(), driving.UploadRequest{
		CorpusID: "acme",
		Filename: "policy.txt",
		Data:     []byte(policyText),
	})

	assert.ErrorIs(t, err, domain.ErrUploadInProgress)
	_, err = env.store.Get(context.Background(), "acme")
	assert.ErrorIs(t, err, domain.ErrCorpusNotFound)
}

func TestUpload_LockError(t *testing.T) {
	env := newTestEnv(t, nil)
	env.lock.AcquireFn = func(name string, ttl time.Duration) (bool, error) {
		return false, errors.New("redis down")
	}

	_, err := env.corpus.Upload(context.Background(), driving.UploadRequest{Filename: "policy.txt", Data: []byte(policyText)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestUpload_LockExpiredBeforePublish(t *testing.T) {
	env := newTestEnv(t, nil)
	env.lock.ExtendFn = func(name string, ttl time.Duration) error {
		return domain.ErrLockNotHeld
	}

	_, err := env.corpus.Upload(context.Background(), driving.UploadRequest{
		CorpusID: "acme",
		Filename: "policy.txt",
		Data:     []byte(policyText),
	})

	assert.ErrorIs(t, err, domain.ErrUploadInProgress)
	_, err = env.store.Get(context.Background(), "acme")
	assert.ErrorIs(t, err, domain.ErrCorpusNotFound, "snapshot must not be published")
}

func TestUpload_ExtendError(t *testing.T) {
	env := newTestEnv(t, nil)
	env.lock.ExtendFn = func(name string, ttl time.Duration) error {
		return errors.New("redis down")
	}

	_, err := env.corpus.Upload(context.Background(), driving.UploadRequest{Filename: "policy.txt", Data: []byte(policyText)})

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUploadInProgress)
	assert.Contains(t, err.Error(), "redis down")
}

func TestUpload_ExtractionFailureBecomesText(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	res, err := env.corpus.Upload(ctx, driving.UploadRequest{
		CorpusID: "broken",
		Filename: "policy.pdf",
		Data:     []byte("not a pdf"),
	})
	require.NoError(t, err)
	require.Greater(t, res.ChunksProcessed, 0)

	corpus, err := env.store.Get(ctx, "broken")
	require.NoError(t, err)
	assert.Contains(t, corpus.Chunks[0].Text, "Error:")
}

func TestStatus_NoCorpus(t *testing.T) {
	env := newTestEnv(t, nil)

	status, err := env.corpus.Status(context.Background(), "")
	require.NoError(t, err)

	assert.False(t, status.DocumentsLoaded)
	assert.Equal(t, 0, status.ChunksCount)
	assert.False(t, status.IndexBuilt)
	assert.True(t, status.ServicesAvailable)
	assert.Equal(t, "rules", status.EvaluatorMode)
	assert.False(t, status.LLMAssisted)
	assert.Empty(t, status.Corpora)
}

func TestStatus_ReportsLLMAssisted(t *testing.T) {
	env := newTestEnv(t, nil)
	newLLM := func(llm driven.LLMService) driven.Evaluator { return mocks.NewMockEvaluator() }
	env.corpus.services = runtime.NewServices(domain.NewRuntimeConfig("memory"), domain.EvaluatorAuto, evaluator.NewRules(), newLLM)
	env.corpus.services.SetLLMService(mocks.NewMockLLMService())

	status, err := env.corpus.Status(context.Background(), "")
	require.NoError(t, err)

	assert.True(t, status.LLMAssisted)
	assert.Equal(t, "llm", status.EvaluatorMode)
}

func TestStatus_AfterUpload(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	_, err := env.corpus.Upload(ctx, driving.UploadRequest{CorpusID: "acme", Filename: "policy.txt", Data: []byte(policyText)})
	require.NoError(t, err)

	status, err := env.corpus.Status(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, "acme", status.CorpusID)
	assert.True(t, status.DocumentsLoaded)
	assert.Equal(t, 2, status.ChunksCount)
	assert.True(t, status.IndexBuilt)
	assert.Equal(t, []string{"acme"}, status.Corpora)
}

func TestStatus_UnknownCorpus(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.corpus.Status(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrCorpusNotFound)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	_, err := env.corpus.Upload(ctx, driving.UploadRequest{CorpusID: "acme", Filename: "policy.txt", Data: []byte(policyText)})
	require.NoError(t, err)

	require.NoError(t, env.corpus.Delete(ctx, "acme"))

	_, err = env.store.Get(ctx, "acme")
	assert.ErrorIs(t, err, domain.ErrCorpusNotFound)
	assert.ErrorIs(t, env.corpus.Delete(ctx, "acme"), domain.ErrCorpusNotFound)
	assert.ErrorIs(t, env.corpus.Delete(ctx, ""), domain.ErrInvalidInput)
}

func TestSupportedFormats(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, []string{".docx", ".markdown", ".md", ".pdf", ".txt"}, env.corpus.SupportedFormats())
}

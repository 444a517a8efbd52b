package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driving"
)

// Mock services for testing

type mockCorpusService struct {
	uploadFn func(ctx context.Context, req driving.UploadRequest) (*domain.UploadResult, error)
	statusFn func(ctx context.Context, corpusID string) (*domain.CorpusStatus, error)
	deleteFn func(ctx context.Context, corpusID string) error
}

func (m *mockCorpusService) Upload(ctx context.Context, req driving.UploadRequest) (*domain.UploadResult, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockCorpusService) Status(ctx context.Context, corpusID string) (*domain.CorpusStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, corpusID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockCorpusService) Delete(ctx context.Context, corpusID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, corpusID)
	}
	return nil
}

func (m *mockCorpusService) SupportedFormats() []string {
	return []string{".docx", ".pdf"}
}

type mockQueryService struct {
	askFn func(ctx context.Context, question string, opts domain.AskOptions) (*domain.Result, error)
}

func (m *mockQueryService) Ask(ctx context.Context, question string, opts domain.AskOptions) (*domain.Result, error) {
	if m.askFn != nil {
		return m.askFn(ctx, question, opts)
	}
	return nil, errors.New("not implemented")
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

func newTestServer(corpus *mockCorpusService, query *mockQueryService, lock Pinger) *Server {
	if corpus == nil {
		corpus = &mockCorpusService{}
	}
	if query == nil {
		query = &mockQueryService{}
	}
	cfg := DefaultConfig()
	cfg.Version = "test"
	cfg.CORSOrigins = []string{"https://app.test"}
	return NewServer(cfg, corpus, query, lock, discardLogger())
}

func multipartUpload(t *testing.T, filename, corpusID string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write(content)
	}
	if corpusID != "" {
		_ = mw.WriteField("corpus_id", corpusID)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func askRequest(body string) *http.Request {
	req := httptest.NewRequest("POST", "/api/v1/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp["error"]
}

// Service endpoints

func TestHandleHealth(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("expected status healthy, got %s", resp["status"])
	}
}

func TestHandleHealth_LockDown(t *testing.T) {
	server := newTestServer(nil, nil, &mockPinger{err: errors.New("connection refused")})

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/version", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	var resp VersionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Version != "test" {
		t.Errorf("expected version test, got %s", resp.Version)
	}
}

func TestHandleRoot(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp InfoResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "policy-pundit" || len(resp.SupportedFormats) != 2 {
		t.Errorf("unexpected info %+v", resp)
	}

	// Unknown paths are not swallowed by the root route
	req = httptest.NewRequest("GET", "/nope", nil)
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

// Upload

func TestHandleUpload_Success(t *testing.T) {
	var got driving.UploadRequest
	corpus := &mockCorpusService{
		uploadFn: func(ctx context.Context, req driving.UploadRequest) (*domain.UploadResult, error) {
			got = req
			return &domain.UploadResult{
				Message:         "Document uploaded successfully",
				CorpusID:        "acme",
				Filename:        req.Filename,
				ChunksProcessed: 2,
			}, nil
		},
	}
	server := newTestServer(corpus, nil, nil)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, multipartUpload(t, "policy.pdf", "acme", []byte("%PDF-1.4")))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.Filename != "policy.pdf" || got.CorpusID != "acme" || string(got.Data) != "%PDF-1.4" {
		t.Errorf("unexpected upload request %+v", got)
	}

	var resp domain.UploadResult
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ChunksProcessed != 2 || resp.Message != "Document uploaded successfully" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandleUpload_MissingFile(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, multipartUpload(t, "", "acme", nil))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleUpload_NotMultipart(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleUpload_TooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxUploadBytes = 64
	server := NewServer(cfg, &mockCorpusService{}, &mockQueryService{}, nil, discardLogger())

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, multipartUpload(t, "policy.pdf", "", bytes.Repeat([]byte("x"), 1024)))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413, got %d", rr.Code)
	}
}

func TestHandleUpload_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unsupported format", fmt.Errorf("sheet.xlsx: %w", domain.ErrUnsupportedFormat), http.StatusBadRequest},
		{"invalid input", fmt.Errorf("filename is required: %w", domain.ErrInvalidInput), http.StatusBadRequest},
		{"in progress", fmt.Errorf("corpus acme: %w", domain.ErrUploadInProgress), http.StatusConflict},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corpus := &mockCorpusService{
				uploadFn: func(ctx context.Context, req driving.UploadRequest) (*domain.UploadResult, error) {
					return nil, tt.err
				},
			}
			server := newTestServer(corpus, nil, nil)

			rr := httptest.NewRecorder()
			server.Handler().ServeHTTP(rr, multipartUpload(t, "sheet.xlsx", "", []byte("x")))

			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rr.Code)
			}
		})
	}
}

func TestHandleUpload_UnsupportedFormatMessage(t *testing.T) {
	corpus := &mockCorpusService{
		uploadFn: func(ctx context.Context, req driving.UploadRequest) (*domain.UploadResult, error) {
			return nil, domain.ErrUnsupportedFormat
		},
	}
	server := newTestServer(corpus, nil, nil)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, multipartUpload(t, "sheet.xlsx", "", []byte("x")))

	if msg := decodeError(t, rr); msg != "Only .docx, .pdf files are supported" {
		t.Errorf("unexpected message %q", msg)
	}
}

// Status

func TestHandleStatus(t *testing.T) {
	var gotID string
	corpus := &mockCorpusService{
		statusFn: func(ctx context.Context, corpusID string) (*domain.CorpusStatus, error) {
			gotID = corpusID
			return &domain.CorpusStatus{
				CorpusID:          "acme",
				DocumentsLoaded:   true,
				ChunksCount:       2,
				IndexBuilt:        true,
				ServicesAvailable: true,
				EvaluatorMode:     "rules",
				Corpora:           []string{"acme"},
			}, nil
		},
	}
	server := newTestServer(corpus, nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/status?corpus_id=acme", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotID != "acme" {
		t.Errorf("expected corpus id acme, got %q", gotID)
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, key := range []string{"documents_loaded", "chunks_count", "index_built", "services_available", "corpus_id", "corpora"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("missing key %s", key)
		}
	}
}

func TestHandleStatus_NotFound(t *testing.T) {
	corpus := &mockCorpusService{
		statusFn: func(ctx context.Context, corpusID string) (*domain.CorpusStatus, error) {
			return nil, fmt.Errorf("corpus %s: %w", corpusID, domain.ErrCorpusNotFound)
		},
	}
	server := newTestServer(corpus, nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/status?corpus_id=missing", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

// Delete

func TestHandleDeleteCorpus(t *testing.T) {
	var deleted string
	corpus := &mockCorpusService{
		deleteFn: func(ctx context.Context, corpusID string) error {
			deleted = corpusID
			if corpusID == "missing" {
				return domain.ErrCorpusNotFound
			}
			return nil
		},
	}
	server := newTestServer(corpus, nil, nil)

	req := httptest.NewRequest("DELETE", "/api/v1/corpora/acme", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rr.Code)
	}
	if deleted != "acme" {
		t.Errorf("expected acme deleted, got %q", deleted)
	}

	req = httptest.NewRequest("DELETE", "/api/v1/corpora/missing", nil)
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

// Ask

func TestHandleAsk_Success(t *testing.T) {
	var gotOpts domain.AskOptions
	query := &mockQueryService{
		askFn: func(ctx context.Context, question string, opts domain.AskOptions) (*domain.Result, error) {
			gotOpts = opts
			return &domain.Result{
				Query:             question,
				Answer:            "Yes",
				Evidence:          []domain.Evidence{{ClauseID: "policy.pdf_0", Text: "covers dental work", SimilarityScore: 0.49, Source: "policy.pdf"}},
				Conditions:        []string{},
				DecisionRationale: "clause 0",
				Confidence:        0.8,
				Status:            domain.StatusCovered,
				ProcessingTime:    domain.Float64Ptr(0.01),
			}, nil
		},
	}
	server := newTestServer(nil, query, nil)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, askRequest(`{"question":"Is dental work covered?","corpus_id":"acme","top_k":3}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotOpts.CorpusID != "acme" || gotOpts.TopK != 3 {
		t.Errorf("unexpected options %+v", gotOpts)
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "covered" {
		t.Errorf("expected status covered, got %v", resp["status"])
	}
	if _, ok := resp["token_usage"]; !ok {
		t.Error("expected token_usage key to be present")
	}
	evidence := resp["evidence"].([]any)
	if len(evidence) != 1 {
		t.Fatalf("expected 1 evidence item, got %d", len(evidence))
	}
	if evidence[0].(map[string]any)["clause_id"] != "policy.pdf_0" {
		t.Errorf("unexpected evidence %v", evidence[0])
	}
}

func TestHandleAsk_InvalidBody(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, askRequest(`{not json`))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleAsk_EmptyQuestion(t *testing.T) {
	called := false
	query := &mockQueryService{
		askFn: func(ctx context.Context, question string, opts domain.AskOptions) (*domain.Result, error) {
			called = true
			return nil, nil
		},
	}
	server := newTestServer(nil, query, nil)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, askRequest(`{"question":"   "}`))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
	if called {
		t.Error("query service should not be called for an empty question")
	}
}

func TestHandleAsk_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		err     error
		status  int
		message string
	}{
		{
			name:    "no document uploaded",
			body:    `{"question":"q"}`,
			err:     domain.ErrCorpusNotFound,
			status:  http.StatusBadRequest,
			message: NoDocumentMessage,
		},
		{
			name:    "unknown corpus",
			body:    `{"question":"q","corpus_id":"missing"}`,
			err:     fmt.Errorf("corpus missing: %w", domain.ErrCorpusNotFound),
			status:  http.StatusNotFound,
			message: "corpus not found",
		},
		{
			name:    "named corpus without text",
			body:    `{"question":"q","corpus_id":"blank"}`,
			err:     fmt.Errorf("corpus blank: %w", domain.ErrCorpusEmpty),
			status:  http.StatusBadRequest,
			message: NoDocumentMessage,
		},
		{
			name:    "evaluator unavailable",
			body:    `{"question":"q"}`,
			err:     domain.ErrEvaluatorUnavailable,
			status:  http.StatusServiceUnavailable,
			message: "Services not available",
		},
		{
			name:    "internal",
			body:    `{"question":"q"}`,
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			message: "failed to process question",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := &mockQueryService{
				askFn: func(ctx context.Context, question string, opts domain.AskOptions) (*domain.Result, error) {
					return nil, tt.err
				},
			}
			server := newTestServer(nil, query, nil)

			rr := httptest.NewRecorder()
			server.Handler().ServeHTTP(rr, askRequest(tt.body))

			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rr.Code)
			}
			if msg := decodeError(t, rr); msg != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, msg)
			}
		})
	}
}

// CORS

func TestCORS_AllowedOrigin(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://app.test")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "https://app.test" {
		t.Errorf("expected CORS origin header to be set, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://evil.test")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected no CORS header for disallowed origin")
	}
}

func TestCORS_CredentialsWithExplicitOrigins(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://app.test")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("expected credentials to be allowed for an explicit origin")
	}
}

func TestCORS_WildcardWithoutCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CORSOrigins = []string{"*"}
	server := NewServer(cfg, &mockCorpusService{}, &mockQueryService{}, nil, discardLogger())

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://anywhere.test")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected wildcard origin, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("expected no credentials with a wildcard origin")
	}
}

func TestCORS_DefaultOriginsAreLocal(t *testing.T) {
	server := NewServer(DefaultConfig(), &mockCorpusService{}, &mockQueryService{}, nil, discardLogger())

	for origin, allowed := range map[string]bool{
		"http://localhost:5173": true,
		"http://127.0.0.1:8080": true,
		"https://evil.test":     false,
	} {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", origin)
		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)

		got := rr.Header().Get("Access-Control-Allow-Origin") == origin
		if got != allowed {
			t.Errorf("origin %s: allowed=%v, want %v", origin, got, allowed)
		}
	}
}

func TestServer_Addr(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	if server.Addr() != "0.0.0.0:8000" {
		t.Errorf("unexpected addr %s", server.Addr())
	}
}

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driving"
)

// NoDocumentMessage is returned when a question arrives before any upload.
const NoDocumentMessage = "No document uploaded. Please upload a document first."

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// InfoResponse describes the service at the root path
// @Description Service information
type InfoResponse struct {
	Name             string   `json:"name" example:"policy-pundit"`
	Version          string   `json:"version" example:"1.0.0"`
	SupportedFormats []string `json:"supported_formats"`
	Endpoints        []string `json:"endpoints"`
}

// AskRequest is the body of POST /api/v1/ask
// @Description Question against an uploaded policy
type AskRequest struct {
	Question string `json:"question" example:"Is dental work covered?"`
	CorpusID string `json:"corpus_id,omitempty"`
	TopK     int    `json:"top_k,omitempty" example:"5"`
}

// Service endpoints

// handleRoot godoc
// @Summary      Service information
// @Description  Returns the service name, version and accepted document formats
// @Tags         Health
// @Produce      json
// @Success      200  {object}  InfoResponse
// @Router       / [get]
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{
		Name:             "policy-pundit",
		Version:          s.version,
		SupportedFormats: s.corpusService.SupportedFormats(),
		Endpoints: []string{
			"POST /api/v1/upload",
			"POST /api/v1/ask",
			"GET /api/v1/status",
			"DELETE /api/v1/corpora/{id}",
		},
	})
}

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API and its lock backend
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  map[string]string
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.lock != nil {
		if err := s.lock.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"lock":   err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Corpus endpoints

// handleUpload godoc
// @Summary      Upload a policy document
// @Description  Parses, chunks and indexes the document into a fresh corpus snapshot
// @Tags         Corpus
// @Accept       multipart/form-data
// @Produce      json
// @Param        file       formData  file    true   "Policy document"
// @Param        corpus_id  formData  string  false  "Corpus handle to replace"
// @Success      200  {object}  domain.UploadResult
// @Failure      400  {object}  ErrorResponse  "Missing file or unsupported format"
// @Failure      409  {object}  ErrorResponse  "Upload already in progress"
// @Failure      413  {object}  ErrorResponse  "File too large"
// @Router       /api/v1/upload [post]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	resp, err := s.corpusService.Upload(r.Context(), driving.UploadRequest{
		CorpusID: strings.TrimSpace(r.FormValue("corpus_id")),
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, "Only "+strings.Join(s.corpusService.SupportedFormats(), ", ")+" files are supported")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUploadInProgress):
			writeError(w, http.StatusConflict, "upload already in progress for this corpus")
		default:
			s.logger.Error("upload failed", "filename", header.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to process document")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleStatus godoc
// @Summary      Corpus status
// @Description  Reports whether a document is loaded and the index is built
// @Tags         Corpus
// @Produce      json
// @Param        corpus_id  query     string  false  "Corpus handle (defaults to the active corpus)"
// @Success      200  {object}  domain.CorpusStatus
// @Failure      404  {object}  ErrorResponse  "Corpus not found"
// @Router       /api/v1/status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.corpusService.Status(r.Context(), r.URL.Query().Get("corpus_id"))
	if err != nil {
		if errors.Is(err, domain.ErrCorpusNotFound) {
			writeError(w, http.StatusNotFound, "corpus not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleDeleteCorpus godoc
// @Summary      Delete a corpus
// @Description  Removes a corpus snapshot
// @Tags         Corpus
// @Param        id   path      string  true  "Corpus handle"
// @Success      204  "No Content"
// @Failure      404  {object}  ErrorResponse  "Corpus not found"
// @Router       /api/v1/corpora/{id} [delete]
func (s *Server) handleDeleteCorpus(w http.ResponseWriter, r *http.Request) {
	if err := s.corpusService.Delete(r.Context(), r.PathValue("id")); err != nil {
		switch {
		case errors.Is(err, domain.ErrCorpusNotFound):
			writeError(w, http.StatusNotFound, "corpus not found")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete corpus")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Query endpoints

// handleAsk godoc
// @Summary      Ask a question
// @Description  Retrieves evidence from the corpus and evaluates coverage
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        request  body      AskRequest  true  "Question"
// @Success      200      {object}  domain.Result
// @Failure      400      {object}  ErrorResponse  "Invalid request or no document uploaded"
// @Failure      404      {object}  ErrorResponse  "Corpus not found"
// @Failure      503      {object}  ErrorResponse  "Evaluator unavailable"
// @Router       /api/v1/ask [post]
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := s.queryService.Ask(r.Context(), req.Question, domain.AskOptions{
		CorpusID: req.CorpusID,
		TopK:     req.TopK,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrCorpusNotFound) && req.CorpusID == "",
			errors.Is(err, domain.ErrCorpusEmpty):
			writeError(w, http.StatusBadRequest, NoDocumentMessage)
		case errors.Is(err, domain.ErrCorpusNotFound):
			writeError(w, http.StatusNotFound, "corpus not found")
		case errors.Is(err, domain.ErrEvaluatorUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Services not available")
		default:
			s.logger.Error("ask failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to process question")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

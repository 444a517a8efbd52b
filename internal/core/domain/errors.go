package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorpusNotFound indicates no corpus exists for the handle (or none was uploaded yet)
	ErrCorpusNotFound = errors.New("corpus not found")

	// ErrCorpusEmpty indicates the corpus exists but produced no chunks to search
	ErrCorpusEmpty = errors.New("corpus has no indexed text")

	// ErrUnsupportedFormat indicates no parser accepts the uploaded file
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrUploadInProgress indicates another upload holds the corpus lock
	ErrUploadInProgress = errors.New("upload already in progress")

	// ErrLockNotHeld indicates a lock release/extend by a non-owner
	ErrLockNotHeld = errors.New("lock not held")

	// ErrInvalidProvider indicates an unknown LLM provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates the LLM service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrEvaluatorUnavailable indicates no evaluator is configured
	ErrEvaluatorUnavailable = errors.New("evaluator unavailable")
)

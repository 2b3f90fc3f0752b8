package types

import "errors"

// Orchestration errors surfaced across component boundaries
var (
	// ErrNotIndexed is returned when a query arrives before any repository
	// has been indexed. Queries must fail fast without calling the generator.
	ErrNotIndexed = errors.New("no repository has been indexed")

	// ErrGenerationFailed is returned when the external generator errors or
	// times out. The query fails; conversation state stays unmodified.
	ErrGenerationFailed = errors.New("text generation failed")

	// ErrEmptyQuery is returned for a blank query string.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrSessionNotFound is returned by management lookups for unknown
	// session identifiers. The query path never returns it.
	ErrSessionNotFound = errors.New("session not found")

	// ErrConversationNotFound is returned by management lookups for unknown
	// conversation identifiers.
	ErrConversationNotFound = errors.New("conversation not found")
)

// Domain errors for type validation
var (
	ErrInvalidRole      = errors.New("role must be user or assistant")
	ErrInvalidLineRange = errors.New("line_end must be >= line_start")
	ErrInvalidScore     = errors.New("score must be between 0 and 1")
	ErrMissingPath      = errors.New("file path is required")
	ErrMissingContent   = errors.New("content accessor is required")
	ErrEmptyContent     = errors.New("content cannot be empty")
)

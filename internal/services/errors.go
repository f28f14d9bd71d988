package services

import "github.com/rotisserie/eris"

// Sentinel errors surfaced to the API layer. Matched with eris.Is.
var (
	// ErrValidation covers ingestion-time rejections: unsupported mime
	// type or size over limit. These never enter the extraction chain.
	ErrValidation = eris.New("validation failed")

	// ErrAccessDenied is an ownership mismatch for a specific document.
	ErrAccessDenied = eris.New("access denied")

	// ErrNotFound is an unknown document or session id.
	ErrNotFound = eris.New("not found")
)

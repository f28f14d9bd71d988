package models

import (
	"time"
)

// DocumentStatus is the lifecycle state of an uploaded document.
// Ready and Error are terminal: a changed file must be uploaded as a
// new document, never mutated in place.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "PENDING"
	StatusExtracting DocumentStatus = "EXTRACTING"
	StatusReady      DocumentStatus = "READY"
	StatusError      DocumentStatus = "ERROR"
)

// Terminal reports whether the status permits no further transition.
func (s DocumentStatus) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Document represents a user-uploaded document and its extraction state.
type Document struct {
	ID               string         `db:"id" json:"id"`
	OwnerID          string         `db:"owner_id" json:"owner_id"`
	FileName         string         `db:"file_name" json:"file_name"`
	ContentType      string         `db:"content_type" json:"content_type"`
	SizeBytes        int64          `db:"size_bytes" json:"size_bytes"`
	StorageURL       string         `db:"storage_url" json:"storage_url"`
	Status           DocumentStatus `db:"status" json:"status"`
	ExtractionSource string         `db:"extraction_source" json:"extraction_source,omitempty"` // set only when READY
	ErrorReason      string         `db:"error_reason" json:"error_reason,omitempty"`           // set only when ERROR
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	ProcessedAt      *time.Time     `db:"processed_at" json:"processed_at,omitempty"`
}

// ExtractedText is the durable-store entry for one READY document.
// Immutable once written.
type ExtractedText struct {
	DocumentID       string    `db:"document_id" json:"document_id"`
	Text             string    `db:"text" json:"text"`
	ExtractionSource string    `db:"extraction_source" json:"extraction_source"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// ChatSession represents one conversation session.
type ChatSession struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SessionDocument is one entry in a session's ordered, deduplicated set
// of attached document ids. Position records first-seen order.
type SessionDocument struct {
	SessionID  string    `db:"session_id" json:"session_id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	Position   int       `db:"position" json:"position"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

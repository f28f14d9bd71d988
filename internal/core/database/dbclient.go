package db

import (
	"context"

	"github.com/markdave123-py/docchat/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
//
// Document status mutations go through the Mark* methods only; they
// carry the state-machine guards in their WHERE clauses so READY and
// ERROR stay terminal no matter which code path calls them.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) (err error)
	GetUserByEmail(ctx context.Context, email string) (user *models.User, err error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByOwner(ctx context.Context, ownerID string) ([]models.Document, error)

	// MarkExtracting attempts PENDING -> EXTRACTING and reports whether
	// this caller won the transition.
	MarkExtracting(ctx context.Context, id string) (bool, error)
	// MarkReady finalizes EXTRACTING -> READY with the winning tier.
	MarkReady(ctx context.Context, id string, extractionSource string) error
	// MarkError finalizes a non-terminal document as ERROR.
	MarkError(ctx context.Context, id string, reason string) error

	// InsertExtractedText writes the durable copy of a document's text.
	// Idempotent: content is immutable per document id.
	InsertExtractedText(ctx context.Context, et *models.ExtractedText) error
	GetExtractedText(ctx context.Context, documentID string) (*models.ExtractedText, error)

	// EnsureChatSession creates the session if absent and returns the
	// owning user id, which is the creator's id for a new session. The
	// caller compares it against the requester before touching the
	// session's document set.
	EnsureChatSession(ctx context.Context, sessionID, userID string) (ownerID string, err error)
	GetSessionDocuments(ctx context.Context, sessionID string) ([]string, error)
	// AppendSessionDocuments appends ids not already in the session's
	// set, preserving first-seen order. Already-present ids are ignored.
	AppendSessionDocuments(ctx context.Context, sessionID string, documentIDs []string) error

	Close() error
}

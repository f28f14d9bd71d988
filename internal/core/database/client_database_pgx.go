package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/docchat/internal/config"
	"github.com/markdave123-py/docchat/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (DbClient, error) {
	if cfg == nil {
		return nil, eris.New("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, eris.New("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open db")
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "ping db")
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "bootstrap")
	}
	zap.L().Info("database initialized")

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return eris.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.FirstName, user.Email, user.PasswordHash)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// documents

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return eris.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, owner_id, file_name, content_type, size_bytes, storage_url, status, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, now())
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.OwnerID, doc.FileName, doc.ContentType, doc.SizeBytes, doc.StorageURL, doc.Status)
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, owner_id, file_name, content_type, size_bytes, storage_url,
		       status, COALESCE(extraction_source, ''), COALESCE(error_reason, ''),
		       created_at, processed_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.OwnerID, &d.FileName, &d.ContentType, &d.SizeBytes, &d.StorageURL,
		&d.Status, &d.ExtractionSource, &d.ErrorReason, &d.CreatedAt, &d.ProcessedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocumentsByOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	const q = `
		SELECT id, owner_id, file_name, content_type, size_bytes, storage_url,
		       status, COALESCE(extraction_source, ''), COALESCE(error_reason, ''),
		       created_at, processed_at
		FROM documents
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.OwnerID, &d.FileName, &d.ContentType, &d.SizeBytes, &d.StorageURL,
			&d.Status, &d.ExtractionSource, &d.ErrorReason, &d.CreatedAt, &d.ProcessedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Status transitions. The WHERE guards enforce the state machine:
// only PENDING documents enter EXTRACTING, and only non-terminal
// documents can be finalized.

func (c *DatabaseClient) MarkExtracting(ctx context.Context, id string) (bool, error) {
	const q = `
		UPDATE documents
		SET status = $2
		WHERE id = $1 AND status = $3
	`
	res, err := c.db.ExecContext(ctx, q, id, models.StatusExtracting, models.StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *DatabaseClient) MarkReady(ctx context.Context, id string, extractionSource string) error {
	const q = `
		UPDATE documents
		SET status = $2, extraction_source = $3, processed_at = now()
		WHERE id = $1 AND status = $4
	`
	res, err := c.db.ExecContext(ctx, q, id, models.StatusReady, extractionSource, models.StatusExtracting)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return eris.Errorf("document %s not in EXTRACTING, cannot mark READY", id)
	}
	return nil
}

func (c *DatabaseClient) MarkError(ctx context.Context, id string, reason string) error {
	const q = `
		UPDATE documents
		SET status = $2, error_reason = $3, processed_at = now()
		WHERE id = $1 AND status IN ($4, $5)
	`
	res, err := c.db.ExecContext(ctx, q, id, models.StatusError, reason, models.StatusPending, models.StatusExtracting)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return eris.Errorf("document %s not in a non-terminal state, cannot mark ERROR", id)
	}
	return nil
}

// extracted texts

func (c *DatabaseClient) InsertExtractedText(ctx context.Context, et *models.ExtractedText) error {
	if et == nil {
		return eris.New("nil extracted text")
	}
	// Content is immutable per document id, so a duplicate write is a no-op.
	const q = `
		INSERT INTO extracted_texts (document_id, text, extraction_source, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (document_id) DO NOTHING
	`
	_, err := c.db.ExecContext(ctx, q, et.DocumentID, et.Text, et.ExtractionSource)
	return err
}

func (c *DatabaseClient) GetExtractedText(ctx context.Context, documentID string) (*models.ExtractedText, error) {
	const q = `
		SELECT document_id, text, extraction_source, created_at
		FROM extracted_texts
		WHERE document_id = $1
	`
	var et models.ExtractedText
	err := c.db.QueryRowContext(ctx, q, documentID).Scan(
		&et.DocumentID, &et.Text, &et.ExtractionSource, &et.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &et, nil
}

// chat sessions

func (c *DatabaseClient) EnsureChatSession(ctx context.Context, sessionID, userID string) (string, error) {
	// The no-op DO UPDATE makes the conflicting row visible to
	// RETURNING, so an existing session yields its original owner.
	const q = `
		INSERT INTO chat_sessions (id, user_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET id = chat_sessions.id
		RETURNING user_id
	`
	var ownerID string
	if err := c.db.QueryRowContext(ctx, q, sessionID, userID).Scan(&ownerID); err != nil {
		return "", err
	}
	return ownerID, nil
}

func (c *DatabaseClient) GetSessionDocuments(ctx context.Context, sessionID string) ([]string, error) {
	const q = `
		SELECT document_id
		FROM session_documents
		WHERE session_id = $1
		ORDER BY position ASC
	`
	rows, err := c.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) AppendSessionDocuments(ctx context.Context, sessionID string, documentIDs []string) error {
	if len(documentIDs) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	// Lock the session row so concurrent turns append one at a time;
	// otherwise two turns can read the same MAX(position) and collide.
	if _, err := tx.ExecContext(ctx, `SELECT 1 FROM chat_sessions WHERE id = $1 FOR UPDATE`, sessionID); err != nil {
		_ = tx.Rollback()
		return err
	}

	// Positions continue from the current tail; the conflict target
	// keeps re-referenced ids at their first-seen position.
	const q = `
		INSERT INTO session_documents (session_id, document_id, position, created_at)
		SELECT $1, $2,
		       COALESCE((SELECT MAX(position) FROM session_documents WHERE session_id = $1), -1) + 1,
		       now()
		ON CONFLICT (session_id, document_id) DO NOTHING
	`
	for _, docID := range documentIDs {
		if _, err := tx.ExecContext(ctx, q, sessionID, docID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

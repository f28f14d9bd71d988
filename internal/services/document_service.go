package services

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	db "github.com/markdave123-py/docchat/internal/core/database"
	"github.com/markdave123-py/docchat/internal/core/extractor"
	objectclient "github.com/markdave123-py/docchat/internal/core/object-client"
	"github.com/markdave123-py/docchat/internal/models"
)

// extractionQueue schedules a registered document for extraction.
type extractionQueue interface {
	Enqueue(docID string)
}

type DocumentService struct {
	db             db.DbClient
	storage        objectclient.ObjectClient
	queue          extractionQueue
	bucket         string
	maxUploadBytes int64
}

func NewDocumentService(dbc db.DbClient, storage objectclient.ObjectClient, queue extractionQueue, bucket string, maxUploadBytes int64) *DocumentService {
	return &DocumentService{db: dbc, storage: storage, queue: queue, bucket: bucket, maxUploadBytes: maxUploadBytes}
}

// Submit validates and stores an upload, registers it PENDING, and
// enqueues extraction. It returns as soon as the document is durably
// registered; callers poll status while extraction runs.
func (s *DocumentService) Submit(ctx context.Context, ownerID, filename, contentType string, data []byte) (*models.Document, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if !extractor.IsSupported(contentType) {
		return nil, eris.Wrapf(ErrValidation, "unsupported content type %q", contentType)
	}
	if s.maxUploadBytes > 0 && int64(len(data)) > s.maxUploadBytes {
		return nil, eris.Wrapf(ErrValidation, "file of %d bytes exceeds limit of %d", len(data), s.maxUploadBytes)
	}
	if len(data) == 0 {
		return nil, eris.Wrap(ErrValidation, "empty file")
	}

	docID := uuid.NewString()
	key := s.objectKey(ownerID, docID, filename)

	url, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType)
	if err != nil {
		return nil, eris.Wrapf(err, "upload %s", docID)
	}

	doc := &models.Document{
		ID:          docID,
		OwnerID:     ownerID,
		FileName:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		StorageURL:  url,
		Status:      models.StatusPending,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, eris.Wrapf(err, "register %s", docID)
	}

	s.queue.Enqueue(docID)
	zap.L().Info("document submitted",
		zap.String("document_id", docID),
		zap.String("owner_id", ownerID),
		zap.String("content_type", contentType),
		zap.Int("size_bytes", len(data)))
	return doc, nil
}

// Status returns the document for its owner; anyone else gets
// ErrAccessDenied.
func (s *DocumentService) Status(ctx context.Context, docID, requesterID string) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, eris.Wrapf(ErrNotFound, "document %s", docID)
	}
	if doc.OwnerID != requesterID {
		return nil, eris.Wrapf(ErrAccessDenied, "document %s", docID)
	}
	return doc, nil
}

func (s *DocumentService) ListByOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	return s.db.ListDocumentsByOwner(ctx, ownerID)
}

// objectKey creates a consistent S3 key layout.
func (s *DocumentService) objectKey(ownerID, docID, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("users", ownerID, "documents", docID, filename)
}

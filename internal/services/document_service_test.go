package services

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	db "github.com/markdave123-py/docchat/internal/core/database"
	"github.com/markdave123-py/docchat/internal/models"
)

// fakeDB implements the registry slices Submit and Status touch; the
// embedded interface panics if anything else is called.
type fakeDB struct {
	db.DbClient
	docs      map[string]*models.Document
	createErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{docs: make(map[string]*models.Document)}
}

func (f *fakeDB) CreateDocument(_ context.Context, doc *models.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

type fakeStorage struct {
	uploads   int
	lastKey   string
	uploadErr error
}

func (f *fakeStorage) UploadFile(_ context.Context, bucket, key string, _ []byte, _ string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads++
	f.lastKey = key
	return "https://" + bucket + ".s3.us-east-2.amazonaws.com/" + key, nil
}

func (f *fakeStorage) DeleteFile(context.Context, string, string) error { return nil }

func (f *fakeStorage) GetFile(context.Context, string, string) ([]byte, error) { return nil, nil }

type fakeQueue struct {
	enqueued []string
}

func (f *fakeQueue) Enqueue(docID string) { f.enqueued = append(f.enqueued, docID) }

func newTestDocumentService(dbc *fakeDB, storage *fakeStorage, queue *fakeQueue) *DocumentService {
	return NewDocumentService(dbc, storage, queue, "test-bucket", 1<<20)
}

func TestSubmit_RegistersPendingAndEnqueues(t *testing.T) {
	dbc := newFakeDB()
	storage := &fakeStorage{}
	queue := &fakeQueue{}
	svc := newTestDocumentService(dbc, storage, queue)

	doc, err := svc.Submit(context.Background(), "user-1", "my report.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, doc.Status)
	assert.Equal(t, "user-1", doc.OwnerID)
	assert.Equal(t, int64(8), doc.SizeBytes)
	assert.NotEmpty(t, doc.ID)

	assert.Equal(t, 1, storage.uploads)
	assert.Equal(t, "users/user-1/documents/"+doc.ID+"/my_report.pdf", storage.lastKey)
	assert.Equal(t, []string{doc.ID}, queue.enqueued)

	stored, err := dbc.GetDocumentByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestSubmit_RejectsUnsupportedContentType(t *testing.T) {
	svc := newTestDocumentService(newFakeDB(), &fakeStorage{}, &fakeQueue{})
	_, err := svc.Submit(context.Background(), "user-1", "movie.mp4", "video/mp4", []byte("data"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrValidation))
}

func TestSubmit_RejectsOversizedFile(t *testing.T) {
	dbc := newFakeDB()
	storage := &fakeStorage{}
	queue := &fakeQueue{}
	svc := NewDocumentService(dbc, storage, queue, "test-bucket", 4)

	_, err := svc.Submit(context.Background(), "user-1", "big.pdf", "application/pdf", []byte("12345"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrValidation))
	assert.Zero(t, storage.uploads)
	assert.Empty(t, queue.enqueued)
}

func TestSubmit_RejectsEmptyFile(t *testing.T) {
	svc := newTestDocumentService(newFakeDB(), &fakeStorage{}, &fakeQueue{})
	_, err := svc.Submit(context.Background(), "user-1", "empty.pdf", "application/pdf", nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrValidation))
}

func TestSubmit_UploadFailureIsNotRegistered(t *testing.T) {
	dbc := newFakeDB()
	queue := &fakeQueue{}
	svc := newTestDocumentService(dbc, &fakeStorage{uploadErr: eris.New("s3 unavailable")}, queue)

	_, err := svc.Submit(context.Background(), "user-1", "doc.pdf", "application/pdf", []byte("%PDF"))
	require.Error(t, err)
	assert.Empty(t, dbc.docs)
	assert.Empty(t, queue.enqueued)
}

func TestStatus_OwnershipAndPresence(t *testing.T) {
	dbc := newFakeDB()
	dbc.docs["doc-1"] = &models.Document{ID: "doc-1", OwnerID: "user-1", Status: models.StatusReady}
	svc := newTestDocumentService(dbc, &fakeStorage{}, &fakeQueue{})

	doc, err := svc.Status(context.Background(), "doc-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, doc.Status)

	_, err = svc.Status(context.Background(), "doc-1", "user-2")
	assert.True(t, eris.Is(err, ErrAccessDenied))

	_, err = svc.Status(context.Background(), "missing", "user-1")
	assert.True(t, eris.Is(err, ErrNotFound))
}

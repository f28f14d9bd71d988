package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	middleware "github.com/markdave123-py/docchat/internal/api/middlewares"
	"github.com/markdave123-py/docchat/internal/services"
)

type DocumentHandler struct {
	docs *services.DocumentService
}

func NewDocumentHandler(docs *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// UploadDocument accepts a multipart upload, registers the document
// PENDING, and returns immediately; extraction runs in the background.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read file", http.StatusBadRequest)
		return
	}

	// Strip any path components from the client-supplied name.
	cleanFilename := filepath.Base(header.Filename)

	contentType := header.Header.Get("Content-Type")

	doc, err := h.docs.Submit(r.Context(), userID, cleanFilename, contentType, data)
	if err != nil {
		if eris.Is(err, services.ErrValidation) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		zap.L().Error("upload failed", zap.Error(err))
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"document_id": doc.ID,
		"status":      doc.Status,
	})
}

// GetDocumentStatus serves polling while a document is EXTRACTING.
func (h *DocumentHandler) GetDocumentStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	docID := chi.URLParam(r, "document_id")
	doc, err := h.docs.Status(r.Context(), docID, userID)
	if err != nil {
		switch {
		case eris.Is(err, services.ErrNotFound):
			http.Error(w, "document not found", http.StatusNotFound)
		case eris.Is(err, services.ErrAccessDenied):
			http.Error(w, "access denied", http.StatusForbidden)
		default:
			zap.L().Error("status lookup failed", zap.String("document_id", docID), zap.Error(err))
			http.Error(w, "status lookup failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"document_id":       doc.ID,
		"status":            doc.Status,
		"extraction_source": doc.ExtractionSource,
		"error_reason":      doc.ErrorReason,
	})
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	documents, err := h.docs.ListByOwner(r.Context(), userID)
	if err != nil {
		zap.L().Error("list documents failed", zap.Error(err))
		http.Error(w, "list documents failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(documents)
}

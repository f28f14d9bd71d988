// Package engine drives the document extraction state machine: it
// leases a document, walks the extractor tiers in cost order, persists
// the winning text, and finalizes the document exactly once.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/markdave123-py/docchat/internal/core/extractor"
	"github.com/markdave123-py/docchat/internal/models"
)

// ErrInProgress is returned when another caller already holds the
// extraction lease for a document. The caller should poll status
// rather than start a duplicate chain.
var ErrInProgress = eris.New("extraction already in progress")

// Registry is the slice of the document registry the engine mutates.
// All status transitions in the system go through these methods.
type Registry interface {
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	MarkExtracting(ctx context.Context, id string) (bool, error)
	MarkReady(ctx context.Context, id string, extractionSource string) error
	MarkError(ctx context.Context, id string, reason string) error
}

// TextSink persists extracted text durably (and warms the cache).
type TextSink interface {
	Put(ctx context.Context, et *models.ExtractedText) error
}

// BlobFetcher retrieves the raw uploaded bytes.
type BlobFetcher interface {
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// Engine runs extraction chains. Different documents proceed in
// parallel across the worker pool; the lease table serializes attempts
// against the same document id.
type Engine struct {
	registry Registry
	blobs    BlobFetcher
	texts    TextSink
	tiers    []extractor.Extractor
	leases   *LeaseTable
	budget   time.Duration
	jobs     chan string
}

// NewEngine constructs the engine. Tiers must be in cost-ascending
// trial order; budget bounds one whole attempt chain.
func NewEngine(registry Registry, blobs BlobFetcher, texts TextSink, tiers []extractor.Extractor, leases *LeaseTable, budget time.Duration) *Engine {
	return &Engine{
		registry: registry,
		blobs:    blobs,
		texts:    texts,
		tiers:    tiers,
		leases:   leases,
		budget:   budget,
		jobs:     make(chan string, 64),
	}
}

// Start launches numWorkers goroutines consuming the job queue.
func (e *Engine) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					zap.L().Info("extraction worker shutting down", zap.Int("worker", w))
					return
				case docID := <-e.jobs:
					if err := e.ProcessOne(ctx, docID); err != nil && !eris.Is(err, ErrInProgress) && !errors.Is(err, context.Canceled) {
						zap.L().Error("extraction failed",
							zap.String("document_id", docID),
							zap.Int("worker", w),
							zap.Error(err))
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a document id for extraction. Blocks if the queue
// is full.
func (e *Engine) Enqueue(docID string) {
	e.jobs <- docID
}

// ProcessOne runs the full attempt chain for one document. At most one
// chain is ever active per document id: a concurrent caller gets
// ErrInProgress and is expected to poll. A document already finalized
// is left untouched.
func (e *Engine) ProcessOne(ctx context.Context, docID string) error {
	doc, err := e.registry.GetDocumentByID(ctx, docID)
	if err != nil {
		return eris.Wrapf(err, "load document %s", docID)
	}
	if doc == nil {
		return eris.Errorf("document not found: %s", docID)
	}
	if doc.Status.Terminal() {
		return nil
	}

	token, ok := e.leases.Acquire(docID)
	if !ok {
		return ErrInProgress
	}
	defer e.leases.Release(docID, token)

	claimed, err := e.registry.MarkExtracting(ctx, docID)
	if err != nil {
		return eris.Wrapf(err, "claim document %s", docID)
	}
	if !claimed {
		// Raced with another process between the status read and the
		// update, or the document was finalized meanwhile.
		return ErrInProgress
	}

	chainCtx, cancel := context.WithTimeout(ctx, e.budget)
	defer cancel()

	return e.runChain(chainCtx, doc)
}

func (e *Engine) runChain(ctx context.Context, doc *models.Document) error {
	bucket, key := parseS3URL(doc.StorageURL)
	data, err := e.blobs.GetFile(ctx, bucket, key)
	if err != nil {
		if interrupted(ctx) {
			return e.abortInterrupted(doc)
		}
		reason := "fetch uploaded bytes: " + err.Error()
		if markErr := e.registry.MarkError(context.WithoutCancel(ctx), doc.ID, reason); markErr != nil {
			return markErr
		}
		return eris.Wrapf(err, "fetch blob for %s", doc.ID)
	}

	var reasons []string
	for _, tier := range e.tiers {
		if err := ctx.Err(); err != nil {
			if interrupted(ctx) {
				return e.abortInterrupted(doc)
			}
			return e.abortTimeout(ctx, doc, reasons)
		}

		if !tier.Applicable(data, doc.ContentType) {
			zap.L().Debug("tier not applicable",
				zap.String("document_id", doc.ID),
				zap.String("tier", tier.Name()),
				zap.String("content_type", doc.ContentType))
			continue
		}

		res := tier.Extract(ctx, data, doc.ContentType)
		switch res.Outcome {
		case extractor.OutcomeSuccess:
			return e.finalizeReady(ctx, doc, tier.Name(), res.Text)

		case extractor.OutcomeNotApplicable, extractor.OutcomeFailed:
			if ctx.Err() != nil {
				if interrupted(ctx) {
					return e.abortInterrupted(doc)
				}
				return e.abortTimeout(ctx, doc, reasons)
			}
			reason := res.Reason
			if reason == "" {
				reason = tier.Name() + ": " + string(res.Outcome)
			}
			reasons = append(reasons, reason)
			zap.L().Info("tier did not produce text",
				zap.String("document_id", doc.ID),
				zap.String("tier", tier.Name()),
				zap.String("outcome", string(res.Outcome)),
				zap.String("reason", res.Reason))
		}
	}

	// Every tier exhausted.
	reason := "all extraction tiers exhausted"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, "; ")
	}
	if err := e.registry.MarkError(context.WithoutCancel(ctx), doc.ID, reason); err != nil {
		return err
	}
	zap.L().Warn("document unreadable",
		zap.String("document_id", doc.ID),
		zap.String("reason", reason))
	return nil
}

func (e *Engine) finalizeReady(ctx context.Context, doc *models.Document, source, text string) error {
	// Finalization must land even if the chain budget just expired.
	persistCtx := context.WithoutCancel(ctx)

	et := &models.ExtractedText{
		DocumentID:       doc.ID,
		Text:             text,
		ExtractionSource: source,
	}
	if err := e.texts.Put(persistCtx, et); err != nil {
		if markErr := e.registry.MarkError(persistCtx, doc.ID, "persist extracted text: "+err.Error()); markErr != nil {
			return markErr
		}
		return eris.Wrapf(err, "persist text for %s", doc.ID)
	}

	if err := e.registry.MarkReady(persistCtx, doc.ID, source); err != nil {
		return err
	}
	zap.L().Info("document ready",
		zap.String("document_id", doc.ID),
		zap.String("extraction_source", source),
		zap.Int("text_chars", len(text)))
	return nil
}

// interrupted distinguishes a caller cancellation (shutdown) from the
// chain's own deadline.
func interrupted(ctx context.Context) bool {
	return ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// abortInterrupted stops the chain without finalizing. ERROR is for
// unreadable documents, not for documents a shutdown happened to catch
// mid-chain; the document stays EXTRACTING and the status guards keep
// any later chain honest.
func (e *Engine) abortInterrupted(doc *models.Document) error {
	zap.L().Info("extraction chain interrupted",
		zap.String("document_id", doc.ID))
	return context.Canceled
}

func (e *Engine) abortTimeout(ctx context.Context, doc *models.Document, reasons []string) error {
	reason := "extraction budget exceeded"
	if len(reasons) > 0 {
		reason += " after: " + strings.Join(reasons, "; ")
	}
	if err := e.registry.MarkError(context.WithoutCancel(ctx), doc.ID, reason); err != nil {
		return err
	}
	zap.L().Warn("extraction chain aborted on budget",
		zap.String("document_id", doc.ID))
	return nil
}

// parseS3URL extracts the bucket and key from a virtual-hosted-style
// S3 URL, e.g. https://my-bucket.s3.us-east-2.amazonaws.com/path/to/file.pdf
func parseS3URL(u string) (bucket, key string) {
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	host := hostPath[0]
	if len(hostPath) == 2 {
		key = hostPath[1]
	}
	parts := strings.Split(host, ".")
	if len(parts) > 0 {
		bucket = parts[0]
	}
	return bucket, key
}

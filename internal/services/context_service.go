package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/docchat/internal/models"
)

// Outcome classifies what happened to one referenced document during
// context assembly. Every input id gets exactly one diagnostic;
// nothing is silently dropped.
type Outcome string

const (
	OutcomeIncluded         Outcome = "included"
	OutcomeAccessDenied     Outcome = "access_denied"
	OutcomeNotReady         Outcome = "not_ready"
	OutcomeExtractionFailed Outcome = "extraction_failed"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeFetchFailed      Outcome = "fetch_failed"
	OutcomeSkippedForBudget Outcome = "skipped_for_budget"
)

// Diagnostic reports the outcome for one referenced document id.
type Diagnostic struct {
	DocumentID string  `json:"document_id"`
	Outcome    Outcome `json:"outcome"`
	Detail     string  `json:"detail,omitempty"`
}

// AssembledContext is the concatenated document text for one turn plus
// a diagnostic per input id.
type AssembledContext struct {
	Text        string       `json:"text"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// documentReader is the slice of the registry the assembler needs.
type documentReader interface {
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
}

// textReader serves extracted text via the cache-then-durable path.
type textReader interface {
	GetText(ctx context.Context, documentID string) (string, error)
}

// ContextService assembles conversational context from a set of
// referenced documents, under a size budget.
type ContextService struct {
	docs    documentReader
	texts   textReader
	budget  int // max assembled size in runes
	fanOut  int
	timeout time.Duration
}

func NewContextService(docs documentReader, texts textReader, budget, fanOut int, timeout time.Duration) *ContextService {
	if fanOut <= 0 {
		fanOut = 4
	}
	return &ContextService{docs: docs, texts: texts, budget: budget, fanOut: fanOut, timeout: timeout}
}

type fetchResult struct {
	outcome  Outcome
	detail   string
	fileName string
	text     string
}

// Assemble validates ownership and readiness for each id, fetches text
// with bounded fan-out, and concatenates in input order under the
// budget. A failure on one id never aborts the others, and running out
// of time degrades to whatever was fetched by then.
func (s *ContextService) Assemble(ctx context.Context, requesterID string, documentIDs []string) (*AssembledContext, error) {
	if len(documentIDs) == 0 {
		return &AssembledContext{}, nil
	}

	fetchCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	results := make([]fetchResult, len(documentIDs))

	g, gctx := errgroup.WithContext(fetchCtx)
	g.SetLimit(s.fanOut)
	for i, id := range documentIDs {
		i, id := i, id
		g.Go(func() error {
			results[i] = s.fetchOne(gctx, requesterID, id)
			return nil
		})
	}
	_ = g.Wait() // workers record failures per item, never return them

	out := &AssembledContext{Diagnostics: make([]Diagnostic, 0, len(documentIDs))}
	var sb strings.Builder
	used := 0
	budgetSpent := false

	for i, id := range documentIDs {
		res := results[i]
		if res.outcome != OutcomeIncluded {
			out.Diagnostics = append(out.Diagnostics, Diagnostic{DocumentID: id, Outcome: res.outcome, Detail: res.detail})
			continue
		}

		section := formatSection(res.fileName, id, res.text)
		cost := utf8.RuneCountInString(section)
		if budgetSpent || (s.budget > 0 && used+cost > s.budget) {
			budgetSpent = true
			out.Diagnostics = append(out.Diagnostics, Diagnostic{DocumentID: id, Outcome: OutcomeSkippedForBudget})
			continue
		}

		sb.WriteString(section)
		used += cost
		out.Diagnostics = append(out.Diagnostics, Diagnostic{DocumentID: id, Outcome: OutcomeIncluded})
	}

	out.Text = sb.String()
	zap.L().Debug("context assembled",
		zap.String("requester_id", requesterID),
		zap.Int("documents", len(documentIDs)),
		zap.Int("context_runes", used))
	return out, nil
}

func (s *ContextService) fetchOne(ctx context.Context, requesterID, id string) fetchResult {
	doc, err := s.docs.GetDocumentByID(ctx, id)
	if err != nil {
		return fetchResult{outcome: OutcomeFetchFailed, detail: fetchDetail(ctx, err)}
	}
	if doc == nil {
		return fetchResult{outcome: OutcomeNotFound}
	}
	if doc.OwnerID != requesterID {
		// Ownership mismatch is surfaced for this id only; siblings
		// continue.
		return fetchResult{outcome: OutcomeAccessDenied}
	}

	switch doc.Status {
	case models.StatusPending, models.StatusExtracting:
		return fetchResult{outcome: OutcomeNotReady, detail: string(doc.Status)}
	case models.StatusError:
		return fetchResult{outcome: OutcomeExtractionFailed, detail: doc.ErrorReason}
	}

	text, err := s.texts.GetText(ctx, id)
	if err != nil {
		return fetchResult{outcome: OutcomeFetchFailed, detail: fetchDetail(ctx, err)}
	}
	return fetchResult{outcome: OutcomeIncluded, fileName: doc.FileName, text: text}
}

func fetchDetail(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return "assembly timeout"
	}
	return err.Error()
}

func formatSection(fileName, id, text string) string {
	var sb strings.Builder
	sb.WriteString("--- Document: ")
	sb.WriteString(fileName)
	sb.WriteString(" (")
	sb.WriteString(id)
	sb.WriteString(") ---\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")
	return sb.String()
}

// Package extractor turns raw document bytes into text. Extractors are
// tried in a fixed cost-ascending order: the free in-process tier
// first, then the paid vendor tier, then vision OCR.
package extractor

import (
	"context"
	"fmt"
)

// Tier names, recorded as a document's extraction_source on success.
const (
	TierLocal  = "local"
	TierVendor = "vendor"
	TierVision = "vision_ocr"
)

// Outcome is the three-way result of one extraction attempt.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeNotApplicable Outcome = "not_applicable"
	OutcomeFailed        Outcome = "failed"
)

// Result is the tagged outcome of one tier's attempt on one document.
type Result struct {
	Outcome Outcome
	Text    string // set only on success
	Reason  string // set on failure, optionally on not_applicable
}

func Success(text string) Result {
	return Result{Outcome: OutcomeSuccess, Text: text}
}

func NotApplicable(reason string) Result {
	return Result{Outcome: OutcomeNotApplicable, Reason: reason}
}

func Failed(format string, args ...any) Result {
	return Result{Outcome: OutcomeFailed, Reason: fmt.Sprintf(format, args...)}
}

// Extractor is one strategy for turning document bytes into text.
// Applicable is a cheap pre-check; Extract may still report
// NotApplicable after looking at the bytes (e.g. a PDF with no text
// layer).
type Extractor interface {
	Name() string
	Applicable(data []byte, contentType string) bool
	Extract(ctx context.Context, data []byte, contentType string) Result
}

// Container formats that may carry an embedded text layer.
var containerTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.oasis.opendocument.text":                                 true,
	"application/rtf":                                                         true,
	"text/plain":                                                              true,
	"text/html":                                                               true,
}

// Raster image formats handled by the vision tier.
var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/tiff": true,
	"image/webp": true,
	"image/gif":  true,
}

// IsSupported reports whether any tier could in principle handle the
// content type. Used by ingestion validation so unsupported uploads are
// rejected before ever entering the extraction chain.
func IsSupported(contentType string) bool {
	return containerTypes[contentType] || imageTypes[contentType]
}

package extractor

import (
	"bytes"
	"context"
	"strings"

	"code.sajari.com/docconv"
	"go.uber.org/zap"
)

var _ Extractor = (*DocconvExtractor)(nil)

// DocconvExtractor is the free, fast, in-process tier. It reads the
// embedded text layer of container formats via sajari/docconv. A
// scanned image wrapped in a PDF has no text layer; that comes back as
// NotApplicable so the chain moves on, not as a hard error.
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

func (e *DocconvExtractor) Name() string { return TierLocal }

func (e *DocconvExtractor) Applicable(_ []byte, contentType string) bool {
	return containerTypes[contentType]
}

func (e *DocconvExtractor) Extract(ctx context.Context, data []byte, contentType string) Result {
	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		return Failed("local: docconv convert (%s): %v", contentType, err)
	}
	if err := ctx.Err(); err != nil {
		return Failed("local: %v", err)
	}

	text := strings.TrimSpace(res.Body)
	if text == "" {
		zap.L().Debug("docconv returned empty text", zap.String("content_type", contentType))
		return NotApplicable("local: no extractable text layer")
	}

	return Success(text)
}

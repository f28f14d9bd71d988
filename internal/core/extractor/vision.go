package extractor

import (
	"context"
	"strings"
)

var _ Extractor = (*VisionExtractor)(nil)

// VisionExtractor is the last-resort tier: a vision model reads the
// document as an image. It handles raster images, plus container
// formats the vendor tier could not parse.
type VisionExtractor struct {
	model         OCRModel
	languageHints []string
}

// OCRModel is the slice of the generative client the vision tier needs.
type OCRModel interface {
	Transcribe(ctx context.Context, data []byte, contentType, prompt string) (string, error)
}

func NewVisionExtractor(model OCRModel, languageHints []string) *VisionExtractor {
	return &VisionExtractor{model: model, languageHints: languageHints}
}

func (v *VisionExtractor) Name() string { return TierVision }

func (v *VisionExtractor) Applicable(_ []byte, contentType string) bool {
	return imageTypes[contentType] || containerTypes[contentType]
}

func (v *VisionExtractor) Extract(ctx context.Context, data []byte, contentType string) Result {
	text, err := v.model.Transcribe(ctx, data, contentType, v.prompt())
	if err != nil {
		return Failed("vision_ocr: %v", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Failed("vision_ocr: model returned no text")
	}
	return Success(text)
}

func (v *VisionExtractor) prompt() string {
	var sb strings.Builder
	sb.WriteString("Transcribe all text in this document exactly as written. ")
	sb.WriteString("Preserve reading order and line breaks. Output only the transcription.")
	if len(v.languageHints) > 0 {
		sb.WriteString(" The document may contain the following languages: ")
		sb.WriteString(strings.Join(v.languageHints, ", "))
		sb.WriteString(".")
	}
	return sb.String()
}

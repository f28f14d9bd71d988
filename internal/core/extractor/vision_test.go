package extractor

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOCRModel struct {
	text      string
	err       error
	gotPrompt string
	gotType   string
}

func (f *fakeOCRModel) Transcribe(_ context.Context, _ []byte, contentType, prompt string) (string, error) {
	f.gotPrompt = prompt
	f.gotType = contentType
	return f.text, f.err
}

func TestVisionExtractor_Applicable(t *testing.T) {
	v := NewVisionExtractor(&fakeOCRModel{}, nil)
	assert.Equal(t, TierVision, v.Name())

	// Images, plus container formats as the last resort.
	assert.True(t, v.Applicable(nil, "image/png"))
	assert.True(t, v.Applicable(nil, "image/jpeg"))
	assert.True(t, v.Applicable(nil, "application/pdf"))
	assert.False(t, v.Applicable(nil, "application/zip"))
}

func TestVisionExtractor_Success(t *testing.T) {
	model := &fakeOCRModel{text: "  transcribed text \n"}
	v := NewVisionExtractor(model, []string{"English", "German"})

	res := v.Extract(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "transcribed text", res.Text)
	assert.Equal(t, "image/png", model.gotType)
	assert.Contains(t, model.gotPrompt, "Transcribe all text")
	assert.Contains(t, model.gotPrompt, "English, German")
}

func TestVisionExtractor_ModelError(t *testing.T) {
	v := NewVisionExtractor(&fakeOCRModel{err: eris.New("quota exceeded")}, nil)
	res := v.Extract(context.Background(), []byte("img"), "image/png")
	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Reason, "quota exceeded")
}

func TestVisionExtractor_EmptyTranscription(t *testing.T) {
	v := NewVisionExtractor(&fakeOCRModel{text: "   "}, nil)
	res := v.Extract(context.Background(), []byte("img"), "image/png")
	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Reason, "no text")
}

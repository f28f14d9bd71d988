package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/pdf", true},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
		{"text/plain", true},
		{"image/png", true},
		{"image/jpeg", true},
		{"application/zip", false},
		{"video/mp4", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSupported(tt.contentType), tt.contentType)
	}
}

func TestResultConstructors(t *testing.T) {
	res := Success("some text")
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "some text", res.Text)
	assert.Empty(t, res.Reason)

	res = NotApplicable("no text layer")
	assert.Equal(t, OutcomeNotApplicable, res.Outcome)
	assert.Equal(t, "no text layer", res.Reason)
	assert.Empty(t, res.Text)

	res = Failed("tier %s broke: %d", "vendor", 500)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "tier vendor broke: 500", res.Reason)
}

func TestDocconvExtractor_Applicable(t *testing.T) {
	ext := NewDocconvExtractor(false)
	assert.Equal(t, TierLocal, ext.Name())
	assert.True(t, ext.Applicable(nil, "application/pdf"))
	assert.True(t, ext.Applicable(nil, "text/html"))
	assert.False(t, ext.Applicable(nil, "image/png"))
	assert.False(t, ext.Applicable(nil, "application/zip"))
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		hasFileRefs bool
		flagEnabled bool
		want        string
	}{
		{true, true, "document_context"},
		{true, false, "plain"},
		{false, true, "plain"},
		{false, false, "plain"},
	}
	for _, tt := range tests {
		got := SelectStrategy(tt.hasFileRefs, tt.flagEnabled)
		assert.Equal(t, tt.want, got.Name())
	}
}

func TestPlainStrategy_BuildPrompt(t *testing.T) {
	system, user := plainStrategy{}.BuildPrompt("what is Go?", nil)
	assert.NotEmpty(t, system)
	assert.Equal(t, "what is Go?", user)
}

func TestDocumentContextStrategy_BuildPrompt(t *testing.T) {
	assembled := &AssembledContext{Text: "--- Document: a.pdf (a) ---\nalpha\n\n"}
	system, user := documentContextStrategy{}.BuildPrompt("summarize", assembled)

	assert.Contains(t, system, "document content")
	assert.Contains(t, user, "Context:")
	assert.Contains(t, user, "alpha")
	assert.Contains(t, user, "Question: summarize")
}

func TestDocumentContextStrategy_EmptyContext(t *testing.T) {
	// All referenced documents can be excluded (not ready, denied); the
	// prompt then carries only the question.
	_, user := documentContextStrategy{}.BuildPrompt("summarize", &AssembledContext{})
	assert.NotContains(t, user, "Context:")
	assert.Contains(t, user, "Question: summarize")
}

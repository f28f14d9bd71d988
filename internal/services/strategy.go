package services

import (
	"fmt"
	"strings"
)

// Strategy builds the prompts for one chat turn. Exactly one strategy
// is selected per turn.
type Strategy interface {
	Name() string
	BuildPrompt(query string, assembled *AssembledContext) (systemPrompt, userPrompt string)
}

// SelectStrategy is a pure function of (file references present,
// feature flag); no hidden state participates in the choice.
func SelectStrategy(hasFileRefs, fileContextEnabled bool) Strategy {
	if hasFileRefs && fileContextEnabled {
		return documentContextStrategy{}
	}
	return plainStrategy{}
}

type plainStrategy struct{}

func (plainStrategy) Name() string { return "plain" }

func (plainStrategy) BuildPrompt(query string, _ *AssembledContext) (string, string) {
	return "You are a helpful assistant.", query
}

type documentContextStrategy struct{}

func (documentContextStrategy) Name() string { return "document_context" }

func (documentContextStrategy) BuildPrompt(query string, assembled *AssembledContext) (string, string) {
	systemPrompt := "You are an intelligent assistant answering based only on the given document content. " +
		"If unsure, say 'I cannot find this in the documents.'"

	var sb strings.Builder
	if assembled != nil && assembled.Text != "" {
		sb.WriteString("Context:\n")
		sb.WriteString(assembled.Text)
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Question: %s", query))
	return systemPrompt, sb.String()
}

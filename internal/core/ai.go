package core

import "context"

// LLMProvider generates a chat completion from a system and user prompt.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

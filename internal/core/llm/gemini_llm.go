package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiLLM wraps one genai client for both chat completion and
// vision transcription.
type GeminiLLM struct {
	client   *genai.Client
	genModel string
	ocrModel string
}

func NewGeminiLLM(ctx context.Context, apiKey, genModel, ocrModel string) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if genModel == "" {
		genModel = "gemini-1.5-flash"
	}
	if ocrModel == "" {
		ocrModel = genModel
	}
	return &GeminiLLM{client: cl, genModel: genModel, ocrModel: ocrModel}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m := g.client.GenerativeModel(g.genModel)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return firstCandidateText(resp), nil
}

// Transcribe sends the document bytes to the vision model and returns
// the transcription. Used as the OCR tier of the extraction chain.
func (g *GeminiLLM) Transcribe(ctx context.Context, data []byte, contentType, prompt string) (string, error) {
	m := g.client.GenerativeModel(g.ocrModel)

	resp, err := m.GenerateContent(ctx,
		genai.Blob{MIMEType: contentType, Data: data},
		genai.Text(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("gemini transcribe: %w", err)
	}
	return firstCandidateText(resp), nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

package classifier

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenerateResult carries the generator's text output and token usage for
// telemetry.
type GenerateResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Model            string
}

// TextGenerator is the text-classifier collaborator: one prompt in, one
// free-text response out.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (*GenerateResult, error)
}

// GeminiGenerator implements TextGenerator using the Google GenAI SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini-backed text generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (*GenerateResult, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response from gemini")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text += part.Text
		}
	}

	result := &GenerateResult{Text: text, Model: g.model}
	if usage := resp.UsageMetadata; usage != nil {
		result.PromptTokens = int(usage.PromptTokenCount)
		result.CompletionTokens = int(usage.CandidatesTokenCount)
	}

	return result, nil
}

package insights

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiCompleter implements Completer against Google Gemini.
type GeminiCompleter struct {
	apiKey string
	model  string
}

// NewGeminiCompleter builds a completer for the given model name.
func NewGeminiCompleter(apiKey, model string) *GeminiCompleter {
	return &GeminiCompleter{apiKey: apiKey, model: model}
}

// ModelName returns the configured model identifier.
func (g *GeminiCompleter) ModelName() string { return g.model }

// Complete issues one generation call and concatenates the text parts.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.SetTemperature(0.6)
	model.SetTopP(0.9)
	model.SetMaxOutputTokens(2048)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	rawOutput := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			rawOutput += string(text)
		}
	}
	return rawOutput, nil
}

var _ Completer = (*GeminiCompleter)(nil)

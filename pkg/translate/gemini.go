package translate

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-3-flash-preview"

// GeminiTranslator calls the Gemini API with deterministic settings:
// zero temperature unless the request says otherwise, a single
// candidate, and thinking output disabled.
type GeminiTranslator struct {
	client *genai.Client
	model  string
}

func NewGeminiTranslator(ctx context.Context, apiKey, model string) (*GeminiTranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiTranslator{client: client, model: model}, nil
}

func (g *GeminiTranslator) Translate(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.Instruction, genai.RoleUser),
		Temperature:       genai.Ptr(float32(req.Temperature)),
		CandidateCount:    1,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(req.Text), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

// Model returns the configured model identifier.
func (g *GeminiTranslator) Model() string {
	return g.model
}

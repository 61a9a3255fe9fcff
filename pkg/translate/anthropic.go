package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeModel = "claude-haiku-4-5"

// ClaudeTranslator is the alternate provider, selected with
// translator.provider = "anthropic".
type ClaudeTranslator struct {
	client *anthropic.Client
	model  string
}

func NewClaudeTranslator(apiKey, model string) (*ClaudeTranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		model = defaultClaudeModel
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ClaudeTranslator{client: &client, model: model}, nil
}

func (c *ClaudeTranslator) Translate(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: req.Instruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Text)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API call: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			tb := block.AsText()
			sb.WriteString(tb.Text)
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

// Model returns the configured model identifier.
func (c *ClaudeTranslator) Model() string {
	return c.model
}

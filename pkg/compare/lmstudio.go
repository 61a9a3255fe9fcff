// Package compare runs side-by-side translation comparisons between
// two local models and collects blind A/B votes from readers.
package compare

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/tinyland-inc/kakehashi/pkg/config"
)

const queryTimeout = 120 * time.Second

// Querier is one blocking completion call against a local model.
type Querier interface {
	Query(ctx context.Context, model config.ModelParams, system, user string) (string, error)
}

// LMStudioClient talks to an LM Studio server through its
// OpenAI-compatible endpoint. The API key is a placeholder; LM Studio
// does not check it.
type LMStudioClient struct {
	client openai.Client
}

func NewLMStudioClient(baseURL string) *LMStudioClient {
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey("lm-studio"),
	)
	return &LMStudioClient{client: client}
}

func (c *LMStudioClient) Query(ctx context.Context, model config.ModelParams, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model.ID),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(model.Temperature),
		TopP:        openai.Float(model.TopP),
	})
	if err != nil {
		return "", fmt.Errorf("LM Studio call for %s: %w", model.ID, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LM Studio returned no choices for %s", model.ID)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

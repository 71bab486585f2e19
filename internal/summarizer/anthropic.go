package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	anthropicModel     = anthropic.Model("claude-haiku-4-5")
	anthropicMaxTokens = 512
)

// AnthropicSummarizer calls the Anthropic Messages API.
type AnthropicSummarizer struct {
	client *anthropic.Client
}

func NewAnthropicSummarizer(apiKey string, opts ...option.RequestOption) *AnthropicSummarizer {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := anthropic.NewClient(opts...)

	return &AnthropicSummarizer{client: &client}
}

func (s *AnthropicSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return "", errors.New("input is empty")
	}

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropicModel,
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: promptFor(input.Kind)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		b.WriteString(block.Text)
	}

	summary := strings.TrimSpace(b.String())
	if summary == "" {
		return "", fmt.Errorf("output text is missing (stop reason = %s)", resp.StopReason)
	}

	return summary, nil
}

package summarizer

import (
	"errors"
	"fmt"
	"strings"

	"dailybrief/internal/transform"
)

const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
)

type Options struct {
	Provider          string
	Endpoint          string
	HuggingFaceAPIKey string
	OpenAIAPIKey      string
	AnthropicAPIKey   string
	RetryPolicy       transform.RetryPolicy
}

// New builds the summarizer selected by opts.Provider.
func New(opts Options, client *transform.Client) (Summarizer, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = ProviderHuggingFace
	}

	switch provider {
	case ProviderHuggingFace:
		if client == nil {
			return nil, errors.New("transform client is nil")
		}

		return NewHuggingFaceSummarizer(
			client,
			strings.TrimSpace(opts.Endpoint),
			strings.TrimSpace(opts.HuggingFaceAPIKey),
			opts.RetryPolicy,
		), nil

	case ProviderOpenAI:
		apiKey := strings.TrimSpace(opts.OpenAIAPIKey)
		if apiKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required for the openai provider")
		}

		return NewOpenAISummarizer(apiKey), nil

	case ProviderAnthropic:
		apiKey := strings.TrimSpace(opts.AnthropicAPIKey)
		if apiKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider")
		}

		return NewAnthropicSummarizer(apiKey), nil

	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", opts.Provider)
	}
}

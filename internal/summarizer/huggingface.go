package summarizer

import (
	"context"

	"dailybrief/internal/transform"
)

const DefaultHuggingFaceEndpoint = "https://api-inference.huggingface.co/models/facebook/bart-large-cnn"

// HuggingFaceSummarizer sends text to a hosted inference model. Failures are
// returned as *transform.Failure.
type HuggingFaceSummarizer struct {
	client   *transform.Client
	endpoint string
	token    string
	policy   transform.RetryPolicy
}

func NewHuggingFaceSummarizer(
	client *transform.Client,
	endpoint string,
	token string,
	policy transform.RetryPolicy,
) *HuggingFaceSummarizer {
	if endpoint == "" {
		endpoint = DefaultHuggingFaceEndpoint
	}

	return &HuggingFaceSummarizer{
		client:   client,
		endpoint: endpoint,
		token:    token,
		policy:   policy,
	}
}

func (s *HuggingFaceSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	result := s.client.Transform(ctx, transform.NewRequest(input.Text, s.endpoint, s.token), s.policy)
	if err := result.Err(); err != nil {
		return "", err
	}

	return result.Output, nil
}

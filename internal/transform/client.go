package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	maxResponseBytes   = 1 << 20
)

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type inferenceOutput struct {
	SummaryText     string `json:"summary_text"`
	GeneratedText   string `json:"generated_text"`
	TranslationText string `json:"translation_text"`
}

// Client sends text to a hosted inference endpoint. It holds no per-call
// state and may be shared between goroutines.
type Client struct {
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		log:        log,
	}
}

// Transform posts the request input to its endpoint and retries on the
// policy's retryable statuses. Every outcome is reported in the Result.
func (c *Client) Transform(
	ctx context.Context,
	req Request,
	policy RetryPolicy,
) Result {
	if strings.TrimSpace(req.input) == "" {
		return failure(ReasonInvalidInput, "input text is empty", 0)
	}

	if strings.TrimSpace(req.endpoint) == "" {
		return failure(ReasonInvalidInput, "endpoint is empty", 0)
	}

	if err := policy.Validate(); err != nil {
		return failure(ReasonInvalidInput, fmt.Sprintf("invalid retry policy: %v", err), 0)
	}

	payload, err := json.Marshal(inferenceRequest{Inputs: req.input})
	if err != nil {
		return failure(ReasonInvalidInput, fmt.Sprintf("marshal request: %v", err), 0)
	}

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		status, body, sendErr := c.send(ctx, req, payload)
		if sendErr != nil {
			c.log.ErrorContext(ctx, "Transform request failed",
				"error", sendErr,
				"endpoint", req.endpoint,
				"attempt", attempt,
				"maxAttempts", policy.MaxAttempts)

			return failure(ReasonServiceUnavailable, fmt.Sprintf("request failed: %v", sendErr), attempt)
		}

		c.log.InfoContext(ctx, "Transform attempt is done",
			"status", status,
			"endpoint", req.endpoint,
			"attempt", attempt,
			"maxAttempts", policy.MaxAttempts)

		switch {
		case status == http.StatusOK:
			output, decodeErr := decodeOutput(body)
			if decodeErr != nil {
				c.log.ErrorContext(ctx, "Failed to decode transform response",
					"error", decodeErr,
					"endpoint", req.endpoint,
					"attempt", attempt,
					"bodyLen", len(body))

				return failure(ReasonServiceUnavailable, fmt.Sprintf("decode response: %v", decodeErr), attempt)
			}

			return success(output, attempt)

		case policy.Retryable(status):
			if attempt == policy.MaxAttempts {
				continue
			}

			c.log.WarnContext(ctx, "Transform endpoint is unavailable, retrying",
				"status", status,
				"endpoint", req.endpoint,
				"attempt", attempt,
				"maxAttempts", policy.MaxAttempts,
				"backoff", policy.Backoff)

			if waitErr := wait(ctx, policy.Backoff); waitErr != nil {
				return failure(ReasonServiceUnavailable, fmt.Sprintf("retry wait interrupted: %v", waitErr), attempt)
			}

		default:
			detail := fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(body)))

			c.log.ErrorContext(ctx, "Transform endpoint rejected request",
				"status", status,
				"endpoint", req.endpoint,
				"attempt", attempt,
				"detail", detail)

			return failure(ReasonClientError, detail, attempt)
		}
	}

	c.log.ErrorContext(ctx, "Transform endpoint is unavailable after all attempts",
		"endpoint", req.endpoint,
		"maxAttempts", policy.MaxAttempts)

	return failure(
		ReasonExhaustedRetries,
		fmt.Sprintf("service unavailable after %d attempts", policy.MaxAttempts),
		policy.MaxAttempts,
	)
}

func (c *Client) send(
	ctx context.Context,
	req Request,
	payload []byte,
) (int, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(req.token); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.WarnContext(ctx, "Failed to close transform response body",
				"error", closeErr,
				"endpoint", req.endpoint)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

func decodeOutput(body []byte) (string, error) {
	var outputs []inferenceOutput
	if err := json.Unmarshal(body, &outputs); err != nil {
		return "", err
	}

	if len(outputs) == 0 {
		return "", errors.New("response is empty")
	}

	first := outputs[0]
	for _, text := range []string{first.SummaryText, first.GeneratedText, first.TranslationText} {
		if text = strings.TrimSpace(text); text != "" {
			return text, nil
		}
	}

	return "", errors.New("response has no output text")
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

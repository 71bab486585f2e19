package summarizer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"dailybrief/internal/summarizer"
	"dailybrief/internal/transform"
)

func newTransformClient() *transform.Client {
	return transform.NewClient(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHuggingFaceSummarizerReturnsOutput(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		_, _ = w.Write([]byte(`[{"summary_text":"Two meetings tomorrow."}]`))
	}))
	defer srv.Close()

	policy := transform.DefaultRetryPolicy()
	policy.Backoff = 0

	s := summarizer.NewHuggingFaceSummarizer(newTransformClient(), srv.URL, "tok", policy)

	summary, err := s.Summarize(context.Background(), summarizer.Input{
		Kind: summarizer.KindCalendar,
		Text: "Upcoming events:\n- Standup (2026-10-20T09:00:00Z)\n",
	})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if summary != "Two meetings tomorrow." {
		t.Fatalf("unexpected summary: %q", summary)
	}

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestHuggingFaceSummarizerExposesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	s := summarizer.NewHuggingFaceSummarizer(newTransformClient(), srv.URL, "tok", transform.DefaultRetryPolicy())

	_, err := s.Summarize(context.Background(), summarizer.Input{Kind: summarizer.KindNews, Text: "- headline (Source)"})

	var failure *transform.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *transform.Failure, got %v", err)
	}

	if failure.Reason != transform.ReasonClientError {
		t.Fatalf("unexpected reason: %s", failure.Reason)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	client := newTransformClient()

	tests := []struct {
		name    string
		opts    summarizer.Options
		wantErr bool
	}{
		{"default is huggingface", summarizer.Options{}, false},
		{"openai with key", summarizer.Options{Provider: "OpenAI", OpenAIAPIKey: "sk"}, false},
		{"openai without key", summarizer.Options{Provider: "openai"}, true},
		{"anthropic with key", summarizer.Options{Provider: "anthropic", AnthropicAPIKey: "sk"}, false},
		{"anthropic without key", summarizer.Options{Provider: "anthropic"}, true},
		{"unknown", summarizer.Options{Provider: "langgraph"}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, err := summarizer.New(test.opts, client)

			if test.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}

			if err != nil || s == nil {
				t.Fatalf("expected summarizer, got %v", err)
			}
		})
	}
}

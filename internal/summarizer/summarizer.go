package summarizer

import (
	"context"
)

// Kind tells prompt-driven providers what kind of text they summarize.
type Kind string

const (
	KindCalendar Kind = "calendar"
	KindNews     Kind = "news"
)

// Input describes the payload for a summary request.
type Input struct {
	Kind Kind
	// Text contains the original plain text to summarise.
	Text string
}

// Summarizer produces a single summary for a given input text.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}

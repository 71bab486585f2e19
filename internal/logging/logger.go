package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

func New(environment, level string) (*slog.Logger, error) {
	return NewWithWriter(os.Stdout, environment, level)
}

func NewWithWriter(w io.Writer, environment, level string) (*slog.Logger, error) {
	var parsedLevel slog.Level
	if err := parsedLevel.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL=%q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: parsedLevel}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(strings.TrimSpace(environment), "development") {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("service", "dailybrief"), nil
}

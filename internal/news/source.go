package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dailybrief/internal/domain"
)

type Source interface {
	Name() string
	TopHeadlines(ctx context.Context, limit int) ([]domain.Article, error)
}

// Fallback asks its sources in order and returns the first non-empty result.
type Fallback struct {
	sources []Source
	log     *slog.Logger
}

func NewFallback(log *slog.Logger, sources ...Source) *Fallback {
	return &Fallback{
		sources: sources,
		log:     log,
	}
}

func (f *Fallback) Name() string {
	return "fallback"
}

func (f *Fallback) TopHeadlines(ctx context.Context, limit int) ([]domain.Article, error) {
	if len(f.sources) == 0 {
		return nil, errors.New("no news sources configured")
	}

	var errs []error
	for _, source := range f.sources {
		articles, err := source.TopHeadlines(ctx, limit)
		if err != nil {
			f.log.WarnContext(ctx, "News source failed",
				"error", err,
				"source", source.Name())

			errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))

			continue
		}

		if len(articles) > 0 {
			return articles, nil
		}

		f.log.InfoContext(ctx, "News source returned no articles",
			"source", source.Name())
	}

	return nil, errors.Join(errs...)
}

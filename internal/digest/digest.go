package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"dailybrief/internal/calendar"
	"dailybrief/internal/domain"
	"dailybrief/internal/news"
	"dailybrief/internal/summarizer"
	"dailybrief/internal/transform"
	"dailybrief/internal/weather"
)

const (
	notAuthorizedText  = "calendar is not authorized"
	notConfiguredText  = "not configured"
	weatherUnavailable = "Weather is unavailable."
)

type Authorizer interface {
	Session(ctx context.Context, account string) (*calendar.Session, error)
}

type EventProvider interface {
	UpcomingEvents(ctx context.Context, session *calendar.Session, now time.Time, limit int64) ([]domain.Event, error)
}

type WeatherProvider interface {
	Current(ctx context.Context, city string) (*domain.Weather, error)
}

type Store interface {
	SaveDigest(ctx context.Context, digest *domain.Digest) error
	LatestDigest(ctx context.Context, account string) (*domain.Digest, error)
}

// Options wires the collaborators. Authorizer, Events, News and Weather may be
// nil; the matching section then reports that it is not configured.
type Options struct {
	Authorizer Authorizer
	Events     EventProvider
	News       news.Source
	Weather    WeatherProvider
	Summarizer summarizer.Summarizer
	Store      Store

	MaxEvents    int64
	NewsPageSize int
	Now          func() time.Time
}

type Service struct {
	opts  Options
	cache *summaryCache
	log   *slog.Logger
}

func NewService(opts Options, log *slog.Logger) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = 10
	}
	if opts.NewsPageSize <= 0 {
		opts.NewsPageSize = 10
	}

	return &Service{
		opts:  opts,
		cache: newSummaryCache(summaryCacheMaxEntries),
		log:   log,
	}
}

// Build gathers every section, summarizes calendar and news, and stores the
// result. Section failures are recorded in the digest; only a storage failure
// fails the build.
func (s *Service) Build(ctx context.Context, account string, city string) (*domain.Digest, error) {
	now := s.opts.Now()

	d := &domain.Digest{
		Account:   account,
		City:      city,
		CreatedAt: now,
	}

	var gather sync.WaitGroup
	gather.Go(func() {
		d.Calendar = s.calendarSection(ctx, account, now)
	})
	gather.Go(func() {
		d.News = s.newsSection(ctx)
	})
	gather.Go(func() {
		d.Weather = s.weatherLine(ctx, city)
	})
	gather.Wait()

	var summarize sync.WaitGroup
	summarize.Go(func() {
		s.summarizeSection(ctx, summarizer.KindCalendar, &d.Calendar, calendar.NoEventsText)
	})
	summarize.Go(func() {
		s.summarizeSection(ctx, summarizer.KindNews, &d.News, news.NoNewsText)
	})
	summarize.Wait()

	if err := s.opts.Store.SaveDigest(ctx, d); err != nil {
		return nil, fmt.Errorf("save digest: %w", err)
	}

	s.log.InfoContext(ctx, "Digest is built",
		"account", account,
		"city", city,
		"digestID", d.ID,
		"calendarError", d.Calendar.Error,
		"newsError", d.News.Error)

	return d, nil
}

func (s *Service) Latest(ctx context.Context, account string) (*domain.Digest, error) {
	d, err := s.opts.Store.LatestDigest(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("get latest digest: %w", err)
	}

	return d, nil
}

func (s *Service) calendarSection(ctx context.Context, account string, now time.Time) domain.Section {
	if s.opts.Authorizer == nil || s.opts.Events == nil {
		return domain.Section{Error: "calendar is " + notConfiguredText}
	}

	session, err := s.opts.Authorizer.Session(ctx, account)
	if errors.Is(err, calendar.ErrNotAuthorized) {
		return domain.Section{Error: notAuthorizedText}
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to open calendar session",
			"error", err,
			"account", account)

		return domain.Section{Error: err.Error()}
	}

	events, err := s.opts.Events.UpcomingEvents(ctx, session, now, s.opts.MaxEvents)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get upcoming events",
			"error", err,
			"account", account)

		return domain.Section{Error: err.Error()}
	}

	return domain.Section{Text: calendar.FormatEvents(events)}
}

func (s *Service) newsSection(ctx context.Context) domain.Section {
	if s.opts.News == nil {
		return domain.Section{Error: "news is " + notConfiguredText}
	}

	articles, err := s.opts.News.TopHeadlines(ctx, s.opts.NewsPageSize)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get top headlines",
			"error", err,
			"source", s.opts.News.Name())

		return domain.Section{Error: err.Error()}
	}

	return domain.Section{Text: news.FormatHeadlines(articles)}
}

func (s *Service) weatherLine(ctx context.Context, city string) string {
	if s.opts.Weather == nil || strings.TrimSpace(city) == "" {
		return ""
	}

	w, err := s.opts.Weather.Current(ctx, city)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get weather",
			"error", err,
			"city", city)

		return weatherUnavailable
	}

	return weather.Format(w)
}

// summarizeSection fills section.Summary, or section.Error when the
// summarizer fails. Sections without text or holding the empty-result
// sentinel are left alone.
func (s *Service) summarizeSection(
	ctx context.Context,
	kind summarizer.Kind,
	section *domain.Section,
	sentinel string,
) {
	text := strings.TrimSpace(section.Text)
	if section.Error != "" || text == "" || text == sentinel || s.opts.Summarizer == nil {
		return
	}

	now := s.opts.Now()
	key := summaryCacheKey(kind, text)

	if summary, ok := s.cache.get(key, now); ok {
		section.Summary = summary
		return
	}

	summary, err := s.opts.Summarizer.Summarize(ctx, summarizer.Input{
		Kind: kind,
		Text: text,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to summarize section",
			"error", err,
			"kind", kind,
			"textLen", len(text))

		section.Error = err.Error()

		var failure *transform.Failure
		if errors.As(err, &failure) {
			section.Error = failure.Detail
		}

		return
	}

	section.Summary = strings.TrimSpace(summary)
	s.cache.set(key, section.Summary, now.Add(summaryCacheTTL), now)
}

package news

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"dailybrief/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"mvdan.cc/xurls/v2"
)

const (
	rssTimeout       = 20 * time.Second
	maxDescriptionLn = 300
)

// linkRe matches links with a scheme only, so names like Amazon.com survive.
var linkRe = xurls.Strict()

// RSSSource reads headlines from RSS and Atom feeds.
type RSSSource struct {
	feeds  []string
	parser *gofeed.Parser
	log    *slog.Logger
}

func NewRSSSource(httpClient *http.Client, feeds []string, log *slog.Logger) *RSSSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: rssTimeout}
	}

	parser := gofeed.NewParser()
	parser.Client = httpClient

	return &RSSSource{
		feeds:  feeds,
		parser: parser,
		log:    log,
	}
}

func (s *RSSSource) Name() string {
	return "rss"
}

func (s *RSSSource) TopHeadlines(ctx context.Context, limit int) ([]domain.Article, error) {
	if len(s.feeds) == 0 {
		return nil, errors.New("no feeds configured")
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		articles []domain.Article
		errs     []error
	)

	for _, feedURL := range s.feeds {
		wg.Go(func() {
			items, err := s.fetchFeed(ctx, feedURL)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errs = append(errs, err)
				return
			}
			articles = append(articles, items...)
		})
	}
	wg.Wait()

	if len(articles) == 0 {
		return nil, errors.Join(errs...)
	}

	if len(errs) > 0 {
		s.log.WarnContext(ctx, "Some feeds failed",
			"error", errors.Join(errs...),
			"failedFeeds", len(errs))
	}

	slices.SortStableFunc(articles, func(a, b domain.Article) int {
		return cmp.Compare(b.PublishedAt.UnixNano(), a.PublishedAt.UnixNano())
	})

	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	return articles, nil
}

func (s *RSSSource) fetchFeed(ctx context.Context, feedURL string) ([]domain.Article, error) {
	parsed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %q: %w", feedURL, err)
	}

	source := strings.TrimSpace(parsed.Title)
	if source == "" {
		source = feedURL
	}

	articles := make([]domain.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := htmlText(item.Title)
		if title == "" {
			continue
		}

		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}

		articles = append(articles, domain.Article{
			Title:       title,
			Description: truncate(cleanDescription(item.Description), maxDescriptionLn),
			URL:         strings.TrimSpace(item.Link),
			Source:      source,
			PublishedAt: published,
		})
	}

	return articles, nil
}

// htmlText turns an HTML fragment into a single line of text.
func htmlText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	text := raw
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
		text = doc.Text()
	}

	return strings.Join(strings.Fields(text), " ")
}

// cleanDescription is htmlText without links.
func cleanDescription(raw string) string {
	text := linkRe.ReplaceAllString(htmlText(raw), "")

	return strings.Join(strings.Fields(text), " ")
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return strings.TrimSpace(string(runes[:limit])) + "..."
}

package news

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"dailybrief/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultTelegramURL = "https://t.me"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	telegramHost          = "t.me"
	telegramTimeout       = 20 * time.Second
	telegramTitleMaxRunes = 160
)

var telegramSlugRe = regexp.MustCompile(`^\w{5,32}$`)

// TelegramSource reads recent posts of public Telegram channels from their
// web preview pages.
type TelegramSource struct {
	httpClient *http.Client
	baseURL    string
	channels   []string
	log        *slog.Logger
}

type channelPost struct {
	url       string
	text      string
	published time.Time
}

// NewTelegramSource accepts channels as slugs, @slugs or t.me links. Invalid
// entries are skipped.
func NewTelegramSource(httpClient *http.Client, baseURL string, channels []string, log *slog.Logger) *TelegramSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: telegramTimeout}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultTelegramURL
	}

	var slugs []string
	for _, channel := range channels {
		slug, ok := TelegramChannelSlug(channel)
		if !ok {
			log.Warn("Skipping invalid Telegram channel",
				"channel", channel)
			continue
		}
		if !slices.Contains(slugs, slug) {
			slugs = append(slugs, slug)
		}
	}

	return &TelegramSource{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		channels:   slugs,
		log:        log,
	}
}

func (s *TelegramSource) Name() string {
	return "telegram"
}

func (s *TelegramSource) TopHeadlines(ctx context.Context, limit int) ([]domain.Article, error) {
	if len(s.channels) == 0 {
		return nil, errors.New("no channels configured")
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		articles []domain.Article
		errs     []error
	)

	for _, slug := range s.channels {
		wg.Go(func() {
			items, err := s.fetchChannel(ctx, slug)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errs = append(errs, fmt.Errorf("channel %s: %w", slug, err))
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
		s.log.WarnContext(ctx, "Some Telegram channels failed",
			"error", errors.Join(errs...),
			"failedChannels", len(errs))
	}

	slices.SortStableFunc(articles, func(a, b domain.Article) int {
		return cmp.Compare(b.PublishedAt.UnixNano(), a.PublishedAt.UnixNano())
	})

	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	return articles, nil
}

func (s *TelegramSource) fetchChannel(ctx context.Context, slug string) ([]domain.Article, error) {
	pageURL := s.baseURL + "/s/" + slug

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("create document from reader: %w", err)
	}

	title := ""
	if content, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		title = strings.TrimSpace(content)
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find(".tgme_channel_info_header_title").Text())
	}
	if title == "" {
		title = "@" + slug
	}

	var articles []domain.Article
	doc.Find("a.tgme_widget_message_date").Each(func(_ int, sel *goquery.Selection) {
		post, ok := parseChannelPost(sel)
		if !ok {
			return
		}

		articles = append(articles, domain.Article{
			Title:       headline(post.text),
			Description: truncate(strings.Join(strings.Fields(post.text), " "), maxDescriptionLn),
			URL:         post.url,
			Source:      title,
			PublishedAt: post.published,
		})
	})

	return articles, nil
}

// parseChannelPost reads one post from its date link. Posts without text,
// such as bare photos, are skipped.
func parseChannelPost(sel *goquery.Selection) (channelPost, bool) {
	href, ok := sel.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return channelPost{}, false
	}

	var b strings.Builder
	message := sel.ParentsFiltered(".tgme_widget_message").First()
	message.Find(".tgme_widget_message_text, .tgme_widget_message_caption").Each(
		func(_ int, inner *goquery.Selection) {
			inner.Find("br").Each(func(_ int, br *goquery.Selection) {
				br.ReplaceWithHtml("\n")
			})
			fragment := strings.TrimSpace(inner.Text())
			if fragment == "" {
				return
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(fragment)
		},
	)

	text := strings.TrimSpace(b.String())
	if text == "" {
		return channelPost{}, false
	}

	var published time.Time
	if datetime := strings.TrimSpace(sel.Find("time").AttrOr("datetime", "")); datetime != "" {
		published, _ = time.Parse(time.RFC3339, datetime)
	}

	return channelPost{
		url:       TelegramMessageCanonicalURL(href),
		text:      text,
		published: published,
	}, true
}

// headline is the first non-empty line of a post, shortened.
func headline(text string) string {
	for line := range strings.Lines(text) {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			return truncate(line, telegramTitleMaxRunes)
		}
	}

	return ""
}

// TelegramChannelSlug extracts the channel name from a slug, an @slug or a
// t.me link.
func TelegramChannelSlug(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)

	candidate := strings.TrimPrefix(raw, "@")
	if strings.Contains(raw, "/") {
		u, err := url.Parse(raw)
		if err != nil || u.Host != telegramHost {
			return "", false
		}

		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		candidate = parts[0]
		if candidate == "s" {
			if len(parts) < 2 {
				return "", false
			}
			candidate = parts[1]
		}
	}

	if !telegramSlugRe.MatchString(candidate) {
		return "", false
	}

	return candidate, true
}

// TelegramMessageCanonicalURL strips query and fragment from a post link.
func TelegramMessageCanonicalURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}

	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}

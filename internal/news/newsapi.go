package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dailybrief/internal/domain"
)

const (
	DefaultNewsAPIURL = "https://newsapi.org/v2/top-headlines"

	removedTitle      = "[Removed]"
	maxErrorBodyBytes = 1 << 10
	newsAPITimeout    = 15 * time.Second
)

type NewsAPISource struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	country    string
}

func NewNewsAPISource(httpClient *http.Client, baseURL, apiKey, country string) *NewsAPISource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: newsAPITimeout}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultNewsAPIURL
	}
	if strings.TrimSpace(country) == "" {
		country = "us"
	}

	return &NewsAPISource{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		country:    country,
	}
}

func (s *NewsAPISource) Name() string {
	return "newsapi"
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

func (s *NewsAPISource) TopHeadlines(ctx context.Context, limit int) ([]domain.Article, error) {
	if s.apiKey == "" {
		return nil, errors.New("news API key is empty")
	}

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	query := u.Query()
	query.Set("country", s.country)
	query.Set("pageSize", strconv.Itoa(limit))
	query.Set("apiKey", s.apiKey)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload newsAPIResponse
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if payload.Status != "" && payload.Status != "ok" {
		return nil, fmt.Errorf("news API status %q: %s", payload.Status, payload.Message)
	}

	articles := make([]domain.Article, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		title := strings.TrimSpace(a.Title)
		if title == "" || title == removedTitle {
			continue
		}

		articles = append(articles, domain.Article{
			Title:       title,
			Description: strings.TrimSpace(a.Description),
			URL:         strings.TrimSpace(a.URL),
			Source:      strings.TrimSpace(a.Source.Name),
			PublishedAt: a.PublishedAt,
		})
	}

	return articles, nil
}

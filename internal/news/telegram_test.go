package news_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"dailybrief/internal/news"
)

const channelPage = `<!doctype html>
<html>
<head><meta property="og:title" content="Example News"></head>
<body>
  <div class="tgme_widget_message">
    <div class="tgme_widget_message_text">Older headline<br>details here</div>
    <a class="tgme_widget_message_date" href="https://t.me/examplenews/1?single"><time datetime="2026-10-18T08:00:00+00:00"></time></a>
  </div>
  <div class="tgme_widget_message">
    <div class="tgme_widget_message_photo"></div>
    <a class="tgme_widget_message_date" href="https://t.me/examplenews/2"><time datetime="2026-10-19T07:00:00+00:00"></time></a>
  </div>
  <div class="tgme_widget_message">
    <div class="tgme_widget_message_text">Fresh headline</div>
    <a class="tgme_widget_message_date" href="https://t.me/examplenews/3"><time datetime="2026-10-19T08:00:00+00:00"></time></a>
  </div>
</body>
</html>`

func TestTelegramSourceTopHeadlines(t *testing.T) {
	var gotPath, gotUserAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUserAgent = r.Header.Get("User-Agent")

		_, _ = io.WriteString(w, channelPage)
	}))
	defer server.Close()

	source := news.NewTelegramSource(server.Client(), server.URL, []string{"@examplenews", "bad!"}, discardLogger())

	articles, err := source.TopHeadlines(context.Background(), 10)
	if err != nil {
		t.Fatalf("top headlines: %v", err)
	}

	if gotPath != "/s/examplenews" || gotUserAgent == "" {
		t.Fatalf("unexpected request: path %q, user agent %q", gotPath, gotUserAgent)
	}

	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d: %+v", len(articles), articles)
	}

	if articles[0].Title != "Fresh headline" || articles[0].URL != "https://t.me/examplenews/3" {
		t.Fatalf("unexpected first article: %+v", articles[0])
	}

	if articles[1].Title != "Older headline" || articles[1].Description != "Older headline details here" {
		t.Fatalf("unexpected second article: %+v", articles[1])
	}

	if articles[1].URL != "https://t.me/examplenews/1" || articles[1].Source != "Example News" {
		t.Fatalf("unexpected link or source: %+v", articles[1])
	}
}

func TestTelegramSourceWithoutChannels(t *testing.T) {
	source := news.NewTelegramSource(nil, "", []string{"x"}, discardLogger())

	if _, err := source.TopHeadlines(context.Background(), 10); err == nil {
		t.Fatal("expected error without valid channels")
	}
}

func TestTelegramChannelSlug(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"examplenews", "examplenews", true},
		{" @examplenews ", "examplenews", true},
		{"https://t.me/examplenews", "examplenews", true},
		{"https://t.me/s/examplenews", "examplenews", true},
		{"https://t.me/s/", "", false},
		{"https://example.com/examplenews", "", false},
		{"abc", "", false},
	}

	for _, tt := range tests {
		got, ok := news.TelegramChannelSlug(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("TelegramChannelSlug(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTelegramMessageCanonicalURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://t.me/example/123?single=1", "https://t.me/example/123"},
		{"  https://t.me/example/123  ", "https://t.me/example/123"},
		{"::not a url::", "::not a url::"},
	}

	for _, tt := range tests {
		if got := news.TelegramMessageCanonicalURL(tt.raw); got != tt.want {
			t.Errorf("TelegramMessageCanonicalURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

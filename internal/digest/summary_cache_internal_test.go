package digest

import (
	"testing"
	"time"

	"dailybrief/internal/summarizer"
)

func TestSummaryCacheGetSet(t *testing.T) {
	cache := newSummaryCache(2)
	if cache == nil {
		t.Fatalf("expected cache instance")
	}

	now := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)
	cache.set("key", "value", now.Add(time.Hour), now)

	summary, ok := cache.get("key", now)
	if !ok || summary != "value" {
		t.Fatalf("unexpected cache lookup: %q %v", summary, ok)
	}
}

func TestSummaryCacheExpiresEntries(t *testing.T) {
	cache := newSummaryCache(2)
	now := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)
	cache.set("key", "value", now.Add(time.Minute), now)

	if _, ok := cache.get("key", now.Add(2*time.Minute)); ok {
		t.Fatalf("expected cache entry to expire")
	}

	if cache.len() != 0 {
		t.Fatalf("expected expired cache entry to be removed")
	}
}

func TestSummaryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := newSummaryCache(2)
	now := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)
	expiresAt := now.Add(time.Hour)

	cache.set("a", "summary-a", expiresAt, now)
	cache.set("b", "summary-b", expiresAt, now)

	if _, ok := cache.get("a", now); !ok {
		t.Fatalf("expected entry a to exist before eviction check")
	}

	cache.set("c", "summary-c", expiresAt, now)

	if _, ok := cache.get("b", now); ok {
		t.Fatalf("expected entry b to be evicted")
	}

	for _, key := range []string{"a", "c"} {
		if _, ok := cache.get(key, now); !ok {
			t.Fatalf("expected entry %s to remain", key)
		}
	}
}

func TestSummaryCacheSkipsUnusableEntries(t *testing.T) {
	cache := newSummaryCache(2)
	now := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)

	cache.set("", "value", now.Add(time.Hour), now)
	cache.set("empty", "", now.Add(time.Hour), now)
	cache.set("past", "value", now.Add(-time.Minute), now)

	if cache.len() != 0 {
		t.Fatalf("expected nothing cached, got %d entries", cache.len())
	}

	var disabled *summaryCache
	disabled.set("key", "value", now.Add(time.Hour), now)
	if _, ok := disabled.get("key", now); ok {
		t.Fatalf("nil cache must never hit")
	}
}

func TestSummaryCacheKey(t *testing.T) {
	a := summaryCacheKey(summarizer.KindNews, " text ")
	b := summaryCacheKey(summarizer.KindNews, "text")
	c := summaryCacheKey(summarizer.KindCalendar, "text")

	if a == "" || a != b {
		t.Fatalf("expected trimmed text to share a key: %q %q", a, b)
	}

	if a == c {
		t.Fatalf("expected kinds to produce different keys")
	}

	if summaryCacheKey(summarizer.KindNews, "  ") != "" {
		t.Fatalf("expected empty key for blank text")
	}
}

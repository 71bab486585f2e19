package database_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"dailybrief/internal/database"
	"dailybrief/internal/domain"

	"golang.org/x/oauth2"
)

func newDatabase(t *testing.T) *database.Database {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.sqlite"), log)
	if err != nil {
		t.Fatalf("new database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})

	return db
}

func TestTokenLifecycle(t *testing.T) {
	db := newDatabase(t)
	ctx := context.Background()

	if _, err := db.LoadToken(ctx, "me"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	expiry := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	if err := db.SaveToken(ctx, "me", &oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: expiry}); err != nil {
		t.Fatalf("save token: %v", err)
	}

	if err := db.SaveToken(ctx, "me", &oauth2.Token{AccessToken: "a2", RefreshToken: "r1", Expiry: expiry}); err != nil {
		t.Fatalf("overwrite token: %v", err)
	}

	token, err := db.LoadToken(ctx, "me")
	if err != nil {
		t.Fatalf("load token: %v", err)
	}

	if token.AccessToken != "a2" || token.RefreshToken != "r1" || !token.Expiry.Equal(expiry) {
		t.Fatalf("unexpected token: %+v", token)
	}

	if err = db.DeleteToken(ctx, "me"); err != nil {
		t.Fatalf("delete token: %v", err)
	}

	if _, err = db.LoadToken(ctx, "me"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDigestsAreListedNewestFirst(t *testing.T) {
	db := newDatabase(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)

	for i, summary := range []string{"older", "newer"} {
		digest := &domain.Digest{
			Account:   "me",
			City:      "Paris",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Calendar:  domain.Section{Text: "Upcoming events:\n", Summary: summary},
			News:      domain.Section{Text: "- headline (Source)", Error: "exhausted_retries: service unavailable after 3 attempts"},
			Weather:   "Paris: clear sky, 18.0°C",
		}

		if err := db.SaveDigest(ctx, digest); err != nil {
			t.Fatalf("save digest: %v", err)
		}

		if digest.ID == 0 {
			t.Fatalf("expected digest ID to be set")
		}
	}

	latest, err := db.LatestDigest(ctx, "me")
	if err != nil {
		t.Fatalf("latest digest: %v", err)
	}

	if latest.Calendar.Summary != "newer" || latest.City != "Paris" {
		t.Fatalf("unexpected latest digest: %+v", latest)
	}

	if latest.News.Error == "" {
		t.Fatalf("expected news error to be persisted")
	}

	digests, err := db.ListDigests(ctx, "me", 10)
	if err != nil {
		t.Fatalf("list digests: %v", err)
	}

	if len(digests) != 2 || digests[1].Calendar.Summary != "older" {
		t.Fatalf("unexpected digests: %+v", digests)
	}

	if _, err = db.LatestDigest(ctx, "someone-else"); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other account, got %v", err)
	}
}

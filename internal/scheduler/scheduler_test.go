package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"dailybrief/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubBuilder struct {
	mu      sync.Mutex
	account string
	city    string
	calls   int
	err     error
}

func (b *stubBuilder) Build(_ context.Context, account string, city string) (*domain.Digest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls++
	b.account = account
	b.city = city

	if b.err != nil {
		return nil, b.err
	}

	return &domain.Digest{ID: 7, Account: account, City: city}, nil
}

type stubNotifier struct {
	mu      sync.Mutex
	digests []*domain.Digest
}

func (n *stubNotifier) Broadcast(_ context.Context, d *domain.Digest) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.digests = append(n.digests, d)

	return nil
}

func TestBuildDailyDigest(t *testing.T) {
	builder := &stubBuilder{}
	notifier := &stubNotifier{}

	s := New(context.Background(), Options{Account: "me", City: "Paris"}, builder, notifier, discardLogger())
	s.buildDailyDigest()

	if builder.calls != 1 || builder.account != "me" || builder.city != "Paris" {
		t.Fatalf("unexpected build: %+v", builder)
	}

	if len(notifier.digests) != 1 || notifier.digests[0].ID != 7 {
		t.Fatalf("expected digest to be broadcast, got %+v", notifier.digests)
	}
}

func TestBuildDailyDigestWithoutNotifier(t *testing.T) {
	builder := &stubBuilder{}

	s := New(context.Background(), Options{Account: "me"}, builder, nil, discardLogger())
	s.buildDailyDigest()

	if builder.calls != 1 {
		t.Fatalf("expected one build, got %d", builder.calls)
	}
}

func TestBuildDailyDigestFailureSkipsNotifier(t *testing.T) {
	builder := &stubBuilder{err: errors.New("disk full")}
	notifier := &stubNotifier{}

	s := New(context.Background(), Options{Account: "me"}, builder, notifier, discardLogger())
	s.buildDailyDigest()

	if len(notifier.digests) != 0 {
		t.Fatalf("expected nothing to be broadcast")
	}
}

func TestBuildDailyDigestAfterShutdown(t *testing.T) {
	builder := &stubBuilder{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(ctx, Options{Account: "me"}, builder, nil, discardLogger())
	s.buildDailyDigest()

	if builder.calls != 0 {
		t.Fatalf("expected no build after shutdown, got %d", builder.calls)
	}
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := New(context.Background(), Options{Spec: "not a cron spec"}, &stubBuilder{}, nil, discardLogger())

	if err := s.Start(); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestStartAndStop(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	s := New(context.Background(), Options{Location: loc}, &stubBuilder{}, nil, discardLogger())

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	entries := s.cron.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one job, got %d", len(entries))
	}

	if next := entries[0].Next.In(loc); next.Hour() != 7 || next.Minute() != 0 {
		t.Fatalf("unexpected next run: %v", next)
	}

	s.Stop()
}

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dailybrief/internal/domain"

	"github.com/robfig/cron/v3"
)

const (
	DefaultDailyDigestSpec = "0 7 * * *"
	buildDigestTimeout     = 15 * time.Minute
)

type Builder interface {
	Build(ctx context.Context, account string, city string) (*domain.Digest, error)
}

type Notifier interface {
	Broadcast(ctx context.Context, d *domain.Digest) error
}

type Options struct {
	Spec     string
	Location *time.Location
	Account  string
	City     string
}

type Scheduler struct {
	ctx      context.Context
	cron     *cron.Cron
	opts     Options
	digests  Builder
	notifier Notifier
	log      *slog.Logger
}

// New creates a scheduler for the daily digest. notifier may be nil, in which
// case digests are only stored.
func New(ctx context.Context, opts Options, digests Builder, notifier Notifier, log *slog.Logger) *Scheduler {
	if opts.Spec == "" {
		opts.Spec = DefaultDailyDigestSpec
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	return &Scheduler{
		ctx:      ctx,
		cron:     cron.New(cron.WithLocation(opts.Location)),
		opts:     opts,
		digests:  digests,
		notifier: notifier,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.opts.Spec, s.buildDailyDigest); err != nil {
		return fmt.Errorf("add daily digest job %q: %w", s.opts.Spec, err)
	}

	s.cron.Start()

	s.log.InfoContext(s.ctx, "Scheduler is started",
		"spec", s.opts.Spec,
		"location", s.opts.Location.String())

	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) buildDailyDigest() {
	ctx, cancel := context.WithTimeout(s.ctx, buildDigestTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	d, err := s.digests.Build(ctx, s.opts.Account, s.opts.City)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to build daily digest",
			"error", err,
			"account", s.opts.Account,
			"city", s.opts.City)
		return
	}

	if s.notifier == nil {
		return
	}

	if err = s.notifier.Broadcast(ctx, d); err != nil {
		s.log.ErrorContext(ctx, "Failed to send daily digest",
			"error", err,
			"digestID", d.ID)
	}
}

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ykvlv/assetwatch/internal/domain"
	"github.com/ykvlv/assetwatch/internal/notify"
)

// Store is the persistence the sweep needs.
type Store interface {
	ListResources(ctx context.Context) ([]domain.Resource, error)
	UpdateResourceNotificationState(ctx context.Context, id string, lastNotified string) error
	GetSettings(ctx context.Context) (domain.Settings, error)
}

// Notifier sends the expiry reminder for one resource.
// notify.Dispatcher implements this.
type Notifier interface {
	Notify(ctx context.Context, r domain.Resource, daysRemaining int, s domain.Settings) notify.Summary
}

// Detail describes one resource that was notified during a sweep.
type Detail struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	DaysRemaining int      `json:"daysRemaining"`
	Channels      []string `json:"channels"`
}

// Report is the result of one sweep.
type Report struct {
	Processed         int      `json:"processed"`
	NotificationsSent int      `json:"notifications_sent"`
	Details           []Detail `json:"details"`
}

// Options tunes a Sweeper. Zero values get defaults.
type Options struct {
	Location *time.Location
	Workers  int
	Rules    domain.Rules
	Deduper  domain.Deduper
	Now      func() time.Time
}

// Sweeper runs the daily notification pass over every resource.
type Sweeper struct {
	store    Store
	notifier Notifier
	log      *zap.Logger
	opts     Options

	// mu keeps the cron and manual triggers from overlapping in one process.
	mu sync.Mutex
}

// NewSweeper creates a Sweeper.
func NewSweeper(store Store, notifier Notifier, log *zap.Logger, opts Options) *Sweeper {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Deduper == nil {
		opts.Deduper = domain.SameDayDeduper{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sweeper{store: store, notifier: notifier, log: log.Named("sweep"), opts: opts}
}

// Today is the sweep's calendar date in the configured zone.
func (s *Sweeper) Today() domain.Date {
	return domain.Today(s.opts.Now(), s.opts.Location)
}

// Run performs one sweep. It fails only when settings or resources cannot be
// loaded; per-resource problems are logged and the sweep carries on.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	rep, err := s.run(ctx)
	sweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		sweepRunsTotal.WithLabelValues("error").Inc()
		return Report{}, err
	}
	sweepRunsTotal.WithLabelValues("success").Inc()
	return rep, nil
}

func (s *Sweeper) run(ctx context.Context) (Report, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load settings: %w", err)
	}
	resources, err := s.store.ListResources(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list resources: %w", err)
	}

	today := s.Today()
	details := make([]*Detail, len(resources))

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i := range resources {
		r := resources[i]
		g.Go(func() error {
			details[i] = s.processOne(ctx, r, settings, today)
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{Processed: len(resources), Details: []Detail{}}
	for _, d := range details {
		if d != nil {
			rep.Details = append(rep.Details, *d)
		}
	}
	rep.NotificationsSent = len(rep.Details)

	s.log.Info("Sweep finished",
		zap.String("today", today.String()),
		zap.Int("processed", rep.Processed),
		zap.Int("notified", rep.NotificationsSent),
	)
	return rep, nil
}

// processOne decides, notifies and persists the marker for a single resource.
// It returns nil when nothing was delivered.
func (s *Sweeper) processOne(ctx context.Context, r domain.Resource, settings domain.Settings, today domain.Date) (detail *Detail) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("Resource processing panicked", zap.String("resource", r.ID), zap.Any("panic", rec))
			detail = nil
		}
	}()

	d := domain.Decide(r, settings, today, s.opts.Rules, s.opts.Deduper)
	if !d.ShouldNotify {
		return nil
	}

	sum := s.notifier.Notify(ctx, r, d.DaysRemaining, settings)
	if !sum.Success() {
		if !sum.Skipped {
			s.log.Warn("No channel delivered, will retry next sweep",
				zap.String("resource", r.ID),
				zap.Int("days_remaining", d.DaysRemaining),
				zap.Int("attempted", len(sum.Results)),
			)
		}
		return nil
	}
	sweepNotificationsTotal.Inc()

	if err := s.store.UpdateResourceNotificationState(ctx, r.ID, today.String()); err != nil {
		s.log.Error("Persist lastNotified failed",
			zap.String("resource", r.ID),
			zap.Error(err),
		)
	}
	return &Detail{
		ID:            r.ID,
		Name:          r.Name,
		DaysRemaining: d.DaysRemaining,
		Channels:      sum.SentNames(),
	}
}

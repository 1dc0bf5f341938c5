package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler triggers the sweep on a cron schedule.
type Scheduler struct {
	sweeper *Sweeper
	log     *zap.Logger
	spec    string
	loc     *time.Location
}

// New validates the cron expression and creates a Scheduler.
func New(sweeper *Sweeper, spec string, loc *time.Location, log *zap.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return &Scheduler{sweeper: sweeper, log: log.Named("scheduler"), spec: spec, loc: loc}, nil
}

// Run starts the cron loop until ctx is canceled, then waits for a running
// sweep to finish.
func (s *Scheduler) Run(ctx context.Context) {
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log.Sugar()})),
	)
	// Already validated in New.
	_, _ = c.AddFunc(s.spec, func() { s.tick(ctx) })

	c.Start()
	s.log.Info("scheduler started", zap.String("cron", s.spec), zap.String("tz", s.loc.String()))

	<-ctx.Done()
	s.log.Info("scheduler stopping")
	<-c.Stop().Done()
}

func (s *Scheduler) tick(ctx context.Context) {
	rep, err := s.sweeper.Run(ctx)
	if err != nil {
		s.log.Error("scheduled sweep failed", zap.Error(err))
		return
	}
	s.log.Debug("scheduled sweep done",
		zap.Int("processed", rep.Processed),
		zap.Int("notifications_sent", rep.NotificationsSent),
	)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

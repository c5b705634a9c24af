package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/ce-community/cebot/cebot/config"
	"github.com/ce-community/cebot/cebot/logger"
	"github.com/ce-community/cebot/internal/domain/reconcile"
)

type PassRunner interface {
	RunPass(ctx context.Context) (*reconcile.Report, error)
}

type ReportArchiver interface {
	Archive(ctx context.Context, report *reconcile.Report) error
}

type ReportSaver interface {
	Save(ctx context.Context, report *reconcile.Report) error
}

// PassScheduler triggers reconciliation passes on a fixed interval.
// Runs never overlap; a tick that lands on a running pass is skipped.
type PassScheduler struct {
	runner   PassRunner
	archiver ReportArchiver
	saver    ReportSaver
	interval time.Duration
	sched    gocron.Scheduler
}

func NewPassScheduler(runner PassRunner, interval time.Duration) *PassScheduler {
	return &PassScheduler{runner: runner, interval: interval}
}

// WithArchiver uploads every report after a pass.
func (s *PassScheduler) WithArchiver(a ReportArchiver) *PassScheduler {
	s.archiver = a
	return s
}

// WithSaver records every report after a pass.
func (s *PassScheduler) WithSaver(r ReportSaver) *PassScheduler {
	s.saver = r
	return s
}

// Start schedules the job and runs the first pass immediately.
// The scheduler stops when ctx is cancelled.
func (s *PassScheduler) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			passCtx, cancel := context.WithTimeout(ctx, config.PassTimeout)
			defer cancel()
			_, _ = s.RunOnce(passCtx)
		}),
		gocron.WithName("reconcile-pass"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule pass: %w", err)
	}
	s.sched = sched
	sched.Start()

	logger.LogSystem("Pass scheduler started", slog.Duration("interval", s.interval))

	<-ctx.Done()
	return s.Stop()
}

func (s *PassScheduler) Stop() error {
	if s.sched == nil {
		return nil
	}
	err := s.sched.Shutdown()
	s.sched = nil
	return err
}

// RunOnce runs one pass and hands its report to the archiver and saver.
func (s *PassScheduler) RunOnce(ctx context.Context) (*reconcile.Report, error) {
	start := time.Now()
	report, err := s.runner.RunPass(ctx)
	if err != nil {
		logger.LogPass("", start, 0, 0, err)
		return nil, err
	}
	logger.LogPass(report.ID, start, report.TotalEvents(), len(report.Errors), nil)

	if s.saver != nil {
		if err := s.saver.Save(ctx, report); err != nil {
			logger.LogError("Failed to save pass report", err, slog.String("pass_id", report.ID))
		}
	}
	if s.archiver != nil {
		archiveCtx, cancel := context.WithTimeout(ctx, config.ArchiveTimeout)
		defer cancel()
		if err := s.archiver.Archive(archiveCtx, report); err != nil {
			logger.LogError("Failed to archive pass report", err, slog.String("pass_id", report.ID))
		}
	}
	return report, nil
}

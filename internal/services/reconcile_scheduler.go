package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// ReconcileScheduler runs a GoalReconciler on a cron schedule.
type ReconcileScheduler struct {
	reconciler *GoalReconciler
	schedule   string

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewReconcileScheduler(reconciler *GoalReconciler, schedule string) *ReconcileScheduler {
	return &ReconcileScheduler{reconciler: reconciler, schedule: schedule}
}

// Start schedules the reconciler. Runs never overlap; a run due while the
// previous one is still going is skipped. Returns an error if already
// running or the schedule is invalid.
func (s *ReconcileScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("reconcile scheduler is already running")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(s.schedule, func() {
		if _, err := s.reconciler.Run(ctx); err != nil {
			slog.ErrorContext(ctx, "Scheduled goal reconciliation failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}
	c.Start()

	s.cron = c
	s.running = true
	slog.InfoContext(ctx, "Reconcile scheduler started", "schedule", s.schedule)
	return nil
}

// Stop stops scheduling and waits for a running reconciliation to finish
// or ctx to expire.
func (s *ReconcileScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	done := s.cron.Stop()
	s.running = false
	s.mu.Unlock()

	select {
	case <-done.Done():
		slog.InfoContext(ctx, "Reconcile scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reconcile scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *ReconcileScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/storage"
)

// snapshot is everything the reports need for one user.
type snapshot struct {
	Transactions []core.Transaction
	Goals        []core.Goal
	Budget       *core.MonthlyBudget
}

type (
	ChartReport struct {
		Period      report.Period      `json:"period"`
		Buckets     []report.Bucket    `json:"buckets"`
		Diagnostics report.Diagnostics `json:"diagnostics"`
	}

	SummaryReport struct {
		Period      report.Period      `json:"period"`
		Date        core.Date          `json:"date"`
		Totals      report.Totals      `json:"totals"`
		Count       int                `json:"count"`
		Diagnostics report.Diagnostics `json:"diagnostics"`
	}

	GoalReport struct {
		core.Goal
		Progress report.Progress `json:"progress"`
	}

	BudgetReport struct {
		Budget      core.MonthlyBudget `json:"budget"`
		Consumption report.Consumption `json:"consumption"`
	}

	Dashboard struct {
		Chart     ChartReport        `json:"chart"`
		Summary   SummaryReport      `json:"summary"`
		Goals     []GoalReport       `json:"goals"`
		Budget    *BudgetReport      `json:"budget"`
		Breakdown []report.KindCount `json:"breakdown"`
	}
)

// ReportService runs the aggregator over a read-through cache of each
// user's data. FinanceService invalidates the cache after every write.
type ReportService struct {
	store storage.Store
	cache *cache.LRUCache[snapshot]
	today func() core.Date

	// generations counts invalidations per user. A load only caches its
	// snapshot if no invalidation happened while it was reading.
	mu          sync.Mutex
	generations map[string]uint64
}

var _ Invalidator = (*ReportService)(nil)

func NewReportService(store storage.Store, cacheSize int, ttl time.Duration) *ReportService {
	return &ReportService{
		store:       store,
		cache:       cache.NewLRUCache[snapshot](cacheSize, ttl),
		today:       core.Today,
		generations: make(map[string]uint64),
	}
}

// SetClock replaces the source of "today".
func (s *ReportService) SetClock(today func() core.Date) {
	s.today = today
}

// Cleaner exposes the snapshot cache for registration with a cache.Manager.
func (s *ReportService) Cleaner() cache.Cleaner {
	return s.cache
}

func (s *ReportService) Invalidate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[userID]++
	s.cache.Delete(userID)
}

func (s *ReportService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// storeIfCurrent caches snap unless userID was invalidated after gen.
func (s *ReportService) storeIfCurrent(userID string, gen uint64, snap snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[userID] != gen {
		return false
	}
	s.cache.Set(userID, snap)
	return true
}

// load returns the user's snapshot, reading the three collections
// concurrently on a cache miss.
func (s *ReportService) load(ctx context.Context, userID string) (snapshot, error) {
	if snap, ok := s.cache.Get(userID); ok {
		return snap, nil
	}

	gen := s.generation(userID)
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txns, err := s.store.ListTransactions(gctx, userID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.Transactions = txns
		return nil
	})
	g.Go(func() error {
		goals, err := s.store.ListGoals(gctx, userID)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		snap.Goals = goals
		return nil
	})
	g.Go(func() error {
		b, err := s.store.GetBudget(gctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get budget: %w", err)
		}
		snap.Budget = &b
		return nil
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}

	cached := s.storeIfCurrent(userID, gen, snap)
	slog.DebugContext(ctx, "Loaded report snapshot",
		"user_id", userID,
		"cached", cached,
		"transactions", len(snap.Transactions),
		"goals", len(snap.Goals))
	return snap, nil
}

func (s *ReportService) Chart(ctx context.Context, userID, period string) (ChartReport, error) {
	p, err := report.ParsePeriod(period)
	if err != nil {
		return ChartReport{}, err
	}
	snap, err := s.load(ctx, userID)
	if err != nil {
		return ChartReport{}, err
	}
	return chart(snap, p, s.today())
}

func chart(snap snapshot, p report.Period, today core.Date) (ChartReport, error) {
	buckets, diag, err := report.Bucketize(snap.Transactions, p, today)
	if err != nil {
		return ChartReport{}, err
	}
	return ChartReport{Period: p, Buckets: buckets, Diagnostics: diag}, nil
}

// Summary totals the window of period around date, or around today when
// date is zero.
func (s *ReportService) Summary(ctx context.Context, userID, period string, date core.Date) (SummaryReport, error) {
	p, err := report.ParsePeriod(period)
	if err != nil {
		return SummaryReport{}, err
	}
	snap, err := s.load(ctx, userID)
	if err != nil {
		return SummaryReport{}, err
	}
	if !date.Valid() {
		date = s.today()
	}
	return summary(snap, p, date)
}

func summary(snap snapshot, p report.Period, anchor core.Date) (SummaryReport, error) {
	var (
		window []core.Transaction
		err    error
	)
	if p == report.PeriodDay {
		window = report.FilterDay(snap.Transactions, anchor)
	} else if window, err = report.FilterPeriod(snap.Transactions, p, anchor); err != nil {
		return SummaryReport{}, err
	}
	totals, diag := report.Summarize(window)
	// Records with no date never reach the window; count them here.
	_, all := report.Summarize(snap.Transactions)
	diag.InvalidDates = all.InvalidDates
	return SummaryReport{Period: p, Date: anchor, Totals: totals, Count: len(window), Diagnostics: diag}, nil
}

func (s *ReportService) Goals(ctx context.Context, userID string) ([]GoalReport, error) {
	snap, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return goalReports(snap, s.today()), nil
}

func goalReports(snap snapshot, today core.Date) []GoalReport {
	out := make([]GoalReport, 0, len(snap.Goals))
	for _, g := range snap.Goals {
		out = append(out, GoalReport{Goal: g, Progress: report.GoalProgress(g, today)})
	}
	return out
}

// Budget returns storage.ErrNotFound when the user has no budget.
func (s *ReportService) Budget(ctx context.Context, userID string) (BudgetReport, error) {
	snap, err := s.load(ctx, userID)
	if err != nil {
		return BudgetReport{}, err
	}
	if snap.Budget == nil {
		return BudgetReport{}, fmt.Errorf("budget for user %s: %w", userID, storage.ErrNotFound)
	}
	return budgetReport(snap, s.today()), nil
}

func budgetReport(snap snapshot, today core.Date) BudgetReport {
	return BudgetReport{
		Budget:      *snap.Budget,
		Consumption: report.BudgetConsumption(*snap.Budget, snap.Transactions, today),
	}
}

func (s *ReportService) Breakdown(ctx context.Context, userID string) ([]report.KindCount, error) {
	snap, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return report.KindCounts(snap.Transactions), nil
}

// Dashboard combines every report for the current month.
func (s *ReportService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	snap, err := s.load(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	today := s.today()

	var d Dashboard
	if d.Chart, err = chart(snap, report.PeriodMonth, today); err != nil {
		return Dashboard{}, err
	}
	if d.Summary, err = summary(snap, report.PeriodMonth, today); err != nil {
		return Dashboard{}, err
	}
	d.Goals = goalReports(snap, today)
	if snap.Budget != nil {
		b := budgetReport(snap, today)
		d.Budget = &b
	}
	d.Breakdown = report.KindCounts(snap.Transactions)
	return d, nil
}

// CacheStats reports snapshot cache counters.
func (s *ReportService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

func seedReports(t *testing.T, f fixture) {
	t.Helper()
	ctx := context.Background()
	for _, tc := range []struct {
		category string
		cents    int64
		day      core.Date
	}{
		{salaryID, 300000, core.NewDate(2025, 8, 1)},
		{foodID, 1250, core.NewDate(2025, 8, 25)},
		{foodID, 750, today},
		{travelID, 20000, today},
		{foodID, 9999, core.NewDate(2025, 7, 31)},
		{foodID, 100, core.NewDate(2023, 2, 1)},
	} {
		_, err := f.finance.CreateTransaction(ctx, "u1", tc.category, spend(tc.cents, tc.day))
		require.NoError(t, err)
	}
}

func TestReportService_Chart(t *testing.T) {
	f := newFixture(t)
	seedReports(t, f)
	ctx := context.Background()

	month, err := f.reports.Chart(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, report.PeriodMonth, month.Period)
	require.Len(t, month.Buckets, 31)
	assert.Equal(t, "Day 26", month.Buckets[25].Label)
	assert.Equal(t, int64(750), month.Buckets[25].Expense.Cents)
	assert.Equal(t, int64(20000), month.Buckets[25].Savings.Cents)

	year, err := f.reports.Chart(ctx, "u1", "year")
	require.NoError(t, err)
	require.Len(t, year.Buckets, 12)
	assert.Equal(t, int64(9999), year.Buckets[6].Expense.Cents)

	all, err := f.reports.Chart(ctx, "u1", "all")
	require.NoError(t, err)
	require.Len(t, all.Buckets, 3)
	assert.Equal(t, "2023", all.Buckets[0].Label)

	_, err = f.reports.Chart(ctx, "u1", "week")
	assert.ErrorIs(t, err, report.ErrUnknownPeriod)
}

func TestReportService_Summary(t *testing.T) {
	f := newFixture(t)
	seedReports(t, f)
	ctx := context.Background()

	month, err := f.reports.Summary(ctx, "u1", "month", core.Date{})
	require.NoError(t, err)
	assert.Equal(t, 4, month.Count)
	assert.Equal(t, int64(300000), month.Totals.Income.Cents)
	assert.Equal(t, int64(2000), month.Totals.Expense.Cents)
	assert.Equal(t, int64(20000), month.Totals.Savings.Cents)
	assert.Equal(t, int64(278000), month.Totals.Balance.Cents)

	day, err := f.reports.Summary(ctx, "u1", "day", core.NewDate(2025, 8, 25))
	require.NoError(t, err)
	assert.Equal(t, 1, day.Count)
	assert.Equal(t, int64(-1250), day.Totals.Balance.Cents)

	july, err := f.reports.Summary(ctx, "u1", "month", core.NewDate(2025, 7, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(9999), july.Totals.Expense.Cents)
}

func TestReportService_GoalsAndBreakdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.goal(t, "u1")
	_, err := f.finance.CreateTransaction(ctx, "u1", travelID,
		TransactionInput{Amount: core.Money{Cents: 125000}, Date: today, GoalID: g.ID})
	require.NoError(t, err)
	_, err = f.finance.CreateTransaction(ctx, "u1", foodID, spend(100, today))
	require.NoError(t, err)

	goals, err := f.reports.Goals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, 25.0, goals[0].Progress.Percent)
	assert.Equal(t, report.StateOnTrack, goals[0].Progress.State)

	breakdown, err := f.reports.Breakdown(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []report.KindCount{
		{Label: "Expenses", Kind: core.Expense, Count: 1},
		{Label: "Savings", Kind: core.Savings, Count: 1},
	}, breakdown)
}

func TestReportService_Dashboard(t *testing.T) {
	f := newFixture(t)
	seedReports(t, f)
	ctx := context.Background()

	d, err := f.reports.Dashboard(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, d.Chart.Buckets, 31)
	assert.Equal(t, 4, d.Summary.Count)
	assert.Nil(t, d.Budget)
	assert.Empty(t, d.Goals)

	_, err = f.finance.SetBudget(ctx, "u1", BudgetInput{Limit: core.Money{Cents: 4000}})
	require.NoError(t, err)
	d, err = f.reports.Dashboard(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, d.Budget)
	assert.Equal(t, 50.0, d.Budget.Consumption.Percent)
}

func TestReportService_CachesSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reports.Breakdown(ctx, "u1")
	require.NoError(t, err)
	_, err = f.reports.Goals(ctx, "u1")
	require.NoError(t, err)

	stats := f.reports.CacheStats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Hits)

	f.reports.Invalidate("u1")
	_, err = f.reports.Goals(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), f.reports.CacheStats().Misses)
}

type brokenStore struct {
	storage.Store
}

func (brokenStore) ListGoals(context.Context, string) ([]core.Goal, error) {
	return nil, errors.New("disk on fire")
}

func TestReportService_LoadError(t *testing.T) {
	s := NewReportService(brokenStore{memory.New(nil)}, 4, time.Minute)

	_, err := s.Dashboard(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Zero(t, s.cache.Size(), "failed loads are not cached")
}

// pausingStore blocks the first ListTransactions after it has read, so a
// write can land between a report's store read and its cache fill.
type pausingStore struct {
	storage.Store
	paused  atomic.Bool
	reading chan struct{}
	release chan struct{}
}

func (p *pausingStore) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	txns, err := p.Store.ListTransactions(ctx, userID)
	if p.paused.CompareAndSwap(false, true) {
		close(p.reading)
		<-p.release
	}
	return txns, err
}

func TestReportService_WriteDuringLoadIsNotCached(t *testing.T) {
	store := &pausingStore{
		Store:   memory.New(nil),
		reading: make(chan struct{}),
		release: make(chan struct{}),
	}
	reports := NewReportService(store, 16, time.Minute)
	reports.SetClock(func() core.Date { return today })
	finance := NewFinanceService(store, nil, reports, nil)
	finance.SetClock(func() core.Date { return today })
	ctx := context.Background()

	done := make(chan SummaryReport, 1)
	go func() {
		rep, err := reports.Summary(ctx, "u1", "month", core.Date{})
		assert.NoError(t, err)
		done <- rep
	}()

	<-store.reading
	_, err := finance.CreateTransaction(ctx, "u1", foodID, spend(5000, today))
	require.NoError(t, err)
	close(store.release)

	first := <-done
	assert.Equal(t, 0, first.Count, "the in-flight read predates the write")
	assert.Zero(t, reports.cache.Size(), "a snapshot read before an invalidation is not cached")

	second, err := reports.Summary(ctx, "u1", "month", core.Date{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Count)
	assert.Equal(t, int64(5000), second.Totals.Expense.Cents)
}

// Package storetest is a contract suite run against every storage.Store
// implementation.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Factory returns an empty store seeded with storage.DefaultCategories.
type Factory func(t *testing.T) storage.Store

var (
	foodID   = storage.DefaultCategories[3].ID
	travelID = storage.DefaultCategories[9].ID
	salaryID = storage.DefaultCategories[0].ID
)

// Run executes the contract suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("goal accumulation", func(t *testing.T) { testGoalAccumulation(t, newStore(t)) })
	t.Run("goals", func(t *testing.T) { testGoals(t, newStore(t)) })
	t.Run("budget", func(t *testing.T) { testBudget(t, newStore(t)) })
	t.Run("user ids", func(t *testing.T) { testUserIDs(t, newStore(t)) })
	t.Run("feedback", func(t *testing.T) { testFeedback(t, newStore(t)) })
}

func testCategories(t *testing.T, s storage.Store) {
	ctx := context.Background()

	all, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(storage.DefaultCategories))

	savings, err := s.ListCategoriesByKind(ctx, core.Savings)
	require.NoError(t, err)
	require.Len(t, savings, 2)
	for _, c := range savings {
		assert.Equal(t, core.Savings, c.Kind)
	}

	created, err := s.CreateCategory(ctx, core.Category{Name: "Books", Kind: core.Expense, Color: "#123456"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := s.GetCategory(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = s.CreateCategory(ctx, core.Category{Name: "Books", Kind: core.Expense, Color: "#000000"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = s.GetCategory(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func newTxn(user, category string, kind core.Kind, cents int64, day core.Date) core.Transaction {
	return core.Transaction{
		UserID:      user,
		CategoryID:  category,
		Kind:        kind,
		Amount:      core.Money{Cents: cents},
		Description: "test",
		OccurredOn:  day,
	}
}

func testTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	d1 := core.NewDate(2025, 8, 25)
	d2 := core.NewDate(2025, 8, 26)

	a, err := s.CreateTransaction(ctx, newTxn("u1", foodID, core.Expense, 1250, d1))
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	_, err = s.CreateTransaction(ctx, newTxn("u1", salaryID, core.Income, 300000, d2))
	require.NoError(t, err)
	_, err = s.CreateTransaction(ctx, newTxn("u2", foodID, core.Expense, 999, d1))
	require.NoError(t, err)

	got, err := s.GetTransaction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Amount, got.Amount)
	assert.True(t, got.OccurredOn.Equal(d1))
	assert.Equal(t, core.Expense, got.Kind)

	list, err := s.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].OccurredOn.Equal(d2), "newest first")

	byDate, err := s.ListTransactionsByDate(ctx, "u1", d1)
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, a.ID, byDate[0].ID)

	_, err = s.DeleteTransaction(ctx, "u2", a.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound, "other users cannot delete")

	deleted, err := s.DeleteTransaction(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, deleted.ID)

	_, err = s.GetTransaction(ctx, a.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.CreateTransaction(ctx, newTxn("u1", "missing", core.Expense, 1, d1))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func newGoal(user string) core.Goal {
	return core.Goal{
		UserID:       user,
		CategoryID:   travelID,
		Name:         "Japan",
		TargetAmount: core.Money{Cents: 500000},
		StartDate:    core.NewDate(2025, 1, 1),
		Deadline:     core.NewDate(2025, 12, 31),
		Active:       true,
	}
}

func testGoalAccumulation(t *testing.T, s storage.Store) {
	ctx := context.Background()
	g, err := s.CreateGoal(ctx, newGoal("u1"))
	require.NoError(t, err)

	tx := newTxn("u1", travelID, core.Savings, 20000, core.NewDate(2025, 3, 1))
	tx.GoalID = g.ID
	created, err := s.CreateTransaction(ctx, tx)
	require.NoError(t, err)
	_, err = s.CreateTransaction(ctx, tx)
	require.NoError(t, err)

	got, err := s.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), got.AccumulatedAmount.Cents)

	_, err = s.DeleteTransaction(ctx, "u1", created.ID)
	require.NoError(t, err)
	got, err = s.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), got.AccumulatedAmount.Cents)

	// A missing goal rejects the whole write.
	orphan := newTxn("u1", travelID, core.Savings, 100, core.NewDate(2025, 3, 1))
	orphan.GoalID = "missing"
	_, err = s.CreateTransaction(ctx, orphan)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	list, err := s.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Deleting the goal unlinks its transactions.
	_, err = s.DeleteGoal(ctx, g.ID)
	require.NoError(t, err)
	list, err = s.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].GoalID)
}

func testGoals(t *testing.T, s storage.Store) {
	ctx := context.Background()
	g, err := s.CreateGoal(ctx, newGoal("u1"))
	require.NoError(t, err)
	_, err = s.CreateGoal(ctx, newGoal("u2"))
	require.NoError(t, err)

	goals, err := s.ListGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "Japan", goals[0].Name)
	assert.True(t, goals[0].Active)
	assert.True(t, goals[0].Deadline.Equal(core.NewDate(2025, 12, 31)))

	g.Name = "Japan 2026"
	g.TargetAmount = core.Money{Cents: 600000}
	g.Deadline = core.NewDate(2026, 4, 1)
	updated, err := s.UpdateGoal(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, "Japan 2026", updated.Name)
	assert.Equal(t, int64(600000), updated.TargetAmount.Cents)
	assert.True(t, updated.Deadline.Equal(core.NewDate(2026, 4, 1)))

	inactive, err := s.SetGoalActive(ctx, g.ID, false)
	require.NoError(t, err)
	assert.False(t, inactive.Active)

	adjusted, err := s.AdjustGoalAmount(ctx, g.ID, core.Money{Cents: 1500})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), adjusted.AccumulatedAmount.Cents)

	_, err = s.SetGoalActive(ctx, "missing", true)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.UpdateGoal(ctx, core.Goal{ID: "missing", Deadline: core.NewDate(2025, 1, 1)})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.DeleteGoal(ctx, g.ID)
	require.NoError(t, err)
	_, err = s.GetGoal(ctx, g.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.DeleteGoal(ctx, g.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testBudget(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.GetBudget(ctx, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	b, err := s.UpsertBudget(ctx, core.MonthlyBudget{UserID: "u1", LimitAmount: core.Money{Cents: 80000}})
	require.NoError(t, err)
	require.NotEmpty(t, b.ID)
	assert.Equal(t, core.Expense, b.CategoryScope)
	assert.False(t, b.PeriodStart.Valid())

	again, err := s.UpsertBudget(ctx, core.MonthlyBudget{
		UserID:      "u1",
		LimitAmount: core.Money{Cents: 90000},
		PeriodStart: core.NewDate(2025, 3, 1),
		PeriodEnd:   core.NewDate(2025, 3, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, b.ID, again.ID, "one budget per user")
	assert.True(t, again.PeriodEnd.Equal(core.NewDate(2025, 3, 31)))

	updated, err := s.UpdateBudgetLimit(ctx, b.ID, core.Money{Cents: 100000})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), updated.LimitAmount.Cents)

	got, err := s.GetBudget(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), got.LimitAmount.Cents)

	deleted, err := s.DeleteBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", deleted.UserID)
	_, err = s.GetBudget(ctx, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.UpdateBudgetLimit(ctx, b.ID, core.Money{Cents: 1})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUserIDs(t *testing.T, s storage.Store) {
	ctx := context.Background()
	_, err := s.CreateTransaction(ctx, newTxn("bob", foodID, core.Expense, 100, core.NewDate(2025, 1, 1)))
	require.NoError(t, err)
	_, err = s.CreateGoal(ctx, newGoal("alice"))
	require.NoError(t, err)
	_, err = s.CreateTransaction(ctx, newTxn("bob", foodID, core.Expense, 200, core.NewDate(2025, 1, 2)))
	require.NoError(t, err)

	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, ids)
}

func testFeedback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	created, err := s.CreateFeedbackReport(ctx, core.FeedbackReport{
		Header:  "Chart is empty",
		Details: "The yearly chart shows no bars after adding savings.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, "Chart is empty", created.Header)

	_, err = s.CreateFeedbackReport(ctx, core.FeedbackReport{ID: created.ID, Header: "again", Details: "again"})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

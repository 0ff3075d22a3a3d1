// Package storage defines the persistence port and its SQLite implementation.
package storage

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Store persists categories, transactions, goals, budgets and feedback.
// Implementations must be safe for concurrent use.
type Store interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListCategoriesByKind(ctx context.Context, kind core.Kind) ([]core.Category, error)
	GetCategory(ctx context.Context, id string) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)

	// CreateTransaction stores t and, when t.GoalID is set, adds t.Amount to
	// the goal's accumulated amount in the same unit of work.
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	ListTransactionsByDate(ctx context.Context, userID string, day core.Date) ([]core.Transaction, error)
	// DeleteTransaction removes the user's transaction and reverses its goal
	// contribution. It returns the removed record.
	DeleteTransaction(ctx context.Context, userID, id string) (core.Transaction, error)

	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	GetGoal(ctx context.Context, id string) (core.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
	// UpdateGoal changes name, target, start date and deadline.
	UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	SetGoalActive(ctx context.Context, id string, active bool) (core.Goal, error)
	AdjustGoalAmount(ctx context.Context, id string, delta core.Money) (core.Goal, error)
	// DeleteGoal removes the goal and unlinks its transactions.
	DeleteGoal(ctx context.Context, id string) (core.Goal, error)

	GetBudget(ctx context.Context, userID string) (core.MonthlyBudget, error)
	// UpsertBudget replaces the user's budget, keeping its id if one exists.
	UpsertBudget(ctx context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error)
	UpdateBudgetLimit(ctx context.Context, id string, limit core.Money) (core.MonthlyBudget, error)
	DeleteBudget(ctx context.Context, id string) (core.MonthlyBudget, error)

	CreateFeedbackReport(ctx context.Context, r core.FeedbackReport) (core.FeedbackReport, error)

	// ListUserIDs returns every user that owns a transaction or goal.
	ListUserIDs(ctx context.Context) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// DefaultCategories is the lookup table every new store starts with.
var DefaultCategories = []core.Category{
	{ID: "0b6f6c52-3f5e-4b0e-9a51-2f1d7c9e1a01", Name: "Salary", Kind: core.Income, Color: "#2e7d32"},
	{ID: "0b6f6c52-3f5e-4b0e-9a51-2f1d7c9e1a02", Name: "Freelance", Kind: core.Income, Color: "#66bb6a"},
	{ID: "0b6f6c52-3f5e-4b0e-9a51-2f1d7c9e1a03", Name: "Investments", Kind: core.Income, Color: "#a5d6a7"},
	{ID: "0b6f6c52-3f5e-4b0e-9a51-2f1d7c9e1a04", Name: "Food", Kind: core.Expense, Color: "#e53935"},
	{ID: "0b6f6c52-3f5e-4b0e-9a51-2f1d7c9e1a05", Name: "Housing", Kind: core.Expense, Color: "#d81b60"},
	{ID: "0b6f6c52-3f5e-4b0e-9a51-2f1d7c9e1a06", Name: "Transport", Kind: core.Expense, Color: "#fb8c00"},
	{ID: "0b6f6c52-3f5e-4b0e-9a51-2f1d7c9e1a07", Name: "Health", Kind: core.Expense, Color: "#8e24aa"},
	{ID: "0b6f6c52-3f5e-4b0e-9a51-2f1d7c9e1a08", Name: "Entertainment", Kind: core.Expense, Color: "#fdd835"},
	{ID: "0b6f6c52-3f5e-4b0e-9a51-2f1d7c9e1a09", Name: "Emergency Fund", Kind: core.Savings, Color: "#1e88e5"},
	{ID: "0b6f6c52-3f5e-4b0e-9a51-2f1d7c9e1a0a", Name: "Travel", Kind: core.Savings, Color: "#00acc1"},
}

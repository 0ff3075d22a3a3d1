package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/storage"
)

// Drift is a goal whose stored accumulated amount differs from the sum of
// its linked transactions.
type Drift struct {
	GoalID   string     `json:"goalId"`
	UserID   string     `json:"userId"`
	Stored   core.Money `json:"stored"`
	Expected core.Money `json:"expected"`
	Repaired bool       `json:"repaired"`
}

type ReconcileResult struct {
	Users  int     `json:"users"`
	Goals  int     `json:"goals"`
	Drifts []Drift `json:"drifts"`
}

// GoalReconciler checks goal accumulation against linked transactions and
// optionally corrects the stored amount.
type GoalReconciler struct {
	store       storage.Store
	repair      bool
	invalidator Invalidator
}

func NewGoalReconciler(store storage.Store, repair bool, invalidator Invalidator) *GoalReconciler {
	return &GoalReconciler{store: store, repair: repair, invalidator: invalidator}
}

// Run reconciles every user. A failure for one user is logged and the run
// continues with the next.
func (r *GoalReconciler) Run(ctx context.Context) (ReconcileResult, error) {
	if r.store == nil {
		return ReconcileResult{}, fmt.Errorf("reconciler not properly initialized")
	}

	users, err := r.store.ListUserIDs(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list users: %w", err)
	}

	slog.InfoContext(ctx, "Reconciling goals", "users", len(users), "repair", r.repair)

	res := ReconcileResult{Drifts: make([]Drift, 0)}
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		drifts, goals, err := r.ReconcileUser(ctx, user)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to reconcile user goals",
				"user_id", user,
				"error", err)
			continue
		}
		res.Users++
		res.Goals += goals
		res.Drifts = append(res.Drifts, drifts...)
	}

	slog.InfoContext(ctx, "Goal reconciliation complete",
		"users", res.Users,
		"goals", res.Goals,
		"drifts", len(res.Drifts))

	return res, nil
}

// ReconcileUser returns the drifting goals of one user and how many goals
// were checked.
func (r *GoalReconciler) ReconcileUser(ctx context.Context, userID string) ([]Drift, int, error) {
	goals, err := r.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("list goals: %w", err)
	}
	if len(goals) == 0 {
		return nil, 0, nil
	}
	txns, err := r.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	contributions := report.GoalContributions(txns)

	var drifts []Drift
	for _, g := range goals {
		expected := contributions[g.ID]
		if expected == g.AccumulatedAmount {
			continue
		}
		d := Drift{GoalID: g.ID, UserID: userID, Stored: g.AccumulatedAmount, Expected: expected}
		slog.WarnContext(ctx, "Goal accumulation drift",
			"goal_id", g.ID,
			"user_id", userID,
			"stored_cents", g.AccumulatedAmount.Cents,
			"expected_cents", expected.Cents)

		if r.repair {
			if _, err := r.store.AdjustGoalAmount(ctx, g.ID, expected.Sub(g.AccumulatedAmount)); err != nil {
				slog.ErrorContext(ctx, "Failed to repair goal amount", "goal_id", g.ID, "error", err)
			} else {
				d.Repaired = true
			}
		}
		drifts = append(drifts, d)
	}

	if r.repair && len(drifts) > 0 && r.invalidator != nil {
		r.invalidator.Invalidate(userID)
	}
	return drifts, len(goals), nil
}

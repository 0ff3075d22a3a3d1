package report

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// GoalState is the display state of a goal.
type GoalState string

const (
	StateAchieved GoalState = "achieved"
	StateDueToday GoalState = "dueToday"
	StateOverdue  GoalState = "overdue"
	StateOnTrack  GoalState = "onTrack"
)

var (
	hundred = decimal.NewFromInt(100)
	// Zero or negative targets and limits divide by one currency unit.
	unitDenominator = decimal.NewFromInt(1)
)

// Progress is a goal's completion percentage in [0, 100] and its state.
type Progress struct {
	Percent float64   `json:"percent"`
	State   GoalState `json:"state"`
}

// Consumption is how much of a budget's limit has been spent.
type Consumption struct {
	Consumed    core.Money  `json:"consumed"`
	Limit       core.Money  `json:"limit"`
	Remaining   core.Money  `json:"remaining"`
	Percent     float64     `json:"percent"`
	PeriodStart core.Date   `json:"periodStart"`
	PeriodEnd   core.Date   `json:"periodEnd"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// percentOf returns part/whole*100 clamped to [0, 100]. Rounding is left
// to the presentation layer.
func percentOf(part, whole core.Money) float64 {
	den := whole.Decimal()
	if whole.Cents <= 0 {
		den = unitDenominator
	}
	pct := part.Decimal().Div(den).Mul(hundred)
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct.InexactFloat64()
}

// GoalProgress computes the goal's percentage and state. Achieved takes
// precedence over the deadline; deadlines are compared as calendar days.
func GoalProgress(goal core.Goal, today core.Date) Progress {
	return Progress{
		Percent: percentOf(goal.AccumulatedAmount, goal.TargetAmount),
		State:   goalState(goal, today),
	}
}

func goalState(goal core.Goal, today core.Date) GoalState {
	switch {
	case goal.Achieved():
		return StateAchieved
	case !goal.Deadline.Valid():
		return StateOnTrack
	case goal.Deadline.Equal(today):
		return StateDueToday
	case goal.Deadline.Before(today):
		return StateOverdue
	default:
		return StateOnTrack
	}
}

// BudgetConsumption sums the owner's transactions of the budget's scope
// (expense unless set) inside the budget period, which defaults to the
// calendar month of today.
func BudgetConsumption(budget core.MonthlyBudget, txns []core.Transaction, today core.Date) Consumption {
	scope := budget.CategoryScope
	if scope == "" {
		scope = core.Expense
	}
	from, to := budget.Period(today)

	valid, diag := usable(txns)
	var consumed core.Money
	for _, t := range valid {
		if t.Kind != scope {
			continue
		}
		if budget.UserID != "" && t.UserID != budget.UserID {
			continue
		}
		if !t.OccurredOn.Between(from, to) {
			continue
		}
		consumed = consumed.Add(t.Amount)
	}

	return Consumption{
		Consumed:    consumed,
		Limit:       budget.LimitAmount,
		Remaining:   budget.LimitAmount.Sub(consumed),
		Percent:     percentOf(consumed, budget.LimitAmount),
		PeriodStart: from,
		PeriodEnd:   to,
		Diagnostics: diag,
	}
}

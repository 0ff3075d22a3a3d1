package report

import (
	"fintrack/internal/core"
)

// Bucket is one chart slot. Amounts are kept per kind and never netted.
type Bucket struct {
	Label   string     `json:"label"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Savings core.Money `json:"savings"`
}

func newBucket(label string) Bucket {
	return Bucket{Label: label}
}

func (b *Bucket) add(t core.Transaction) {
	switch t.Kind {
	case core.Income:
		b.Income = b.Income.Add(t.Amount)
	case core.Expense:
		b.Expense = b.Expense.Add(t.Amount)
	case core.Savings:
		b.Savings = b.Savings.Add(t.Amount)
	}
}

// Totals is the per-kind sum of a transaction list.
// Balance is Income - (Expense + Savings).
type Totals struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Savings core.Money `json:"savings"`
	Balance core.Money `json:"balance"`
}

// Add combines two totals component-wise.
func (t Totals) Add(o Totals) Totals {
	sum := Totals{
		Income:  t.Income.Add(o.Income),
		Expense: t.Expense.Add(o.Expense),
		Savings: t.Savings.Add(o.Savings),
	}
	sum.Balance = sum.balance()
	return sum
}

func (t Totals) balance() core.Money {
	return t.Income.Sub(t.Expense.Add(t.Savings))
}

// Diagnostics counts records skipped while aggregating. Skipping is never
// fatal.
type Diagnostics struct {
	InvalidDates int `json:"invalidDates"`
	UnknownKinds int `json:"unknownKinds"`
}

// Skipped is the total number of excluded records.
func (d Diagnostics) Skipped() int {
	return d.InvalidDates + d.UnknownKinds
}

func (d Diagnostics) Add(o Diagnostics) Diagnostics {
	return Diagnostics{
		InvalidDates: d.InvalidDates + o.InvalidDates,
		UnknownKinds: d.UnknownKinds + o.UnknownKinds,
	}
}

// usable splits txns into records that can be aggregated and a count of
// those that cannot.
func usable(txns []core.Transaction) ([]core.Transaction, Diagnostics) {
	var diag Diagnostics
	out := make([]core.Transaction, 0, len(txns))
	for _, t := range txns {
		switch {
		case !t.OccurredOn.Valid():
			diag.InvalidDates++
		case !t.Kind.Valid():
			diag.UnknownKinds++
		default:
			out = append(out, t)
		}
	}
	return out, diag
}

// Bucketize groups txns into the chronological buckets of period, relative
// to today. Month and year views always return the full zero-filled set;
// the all view spans the earliest to latest transaction year; the day
// view has no buckets.
func Bucketize(txns []core.Transaction, period Period, today core.Date) ([]Bucket, Diagnostics, error) {
	bucketer, err := GetBucketer(period)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	valid, diag := usable(txns)
	layout := bucketer.Layout(valid, today)
	for _, t := range valid {
		i := layout.Index(t.OccurredOn)
		if i < 0 || i >= len(layout.Buckets) {
			continue
		}
		layout.Buckets[i].add(t)
	}
	return layout.Buckets, diag, nil
}

// Summarize totals txns per kind. The result does not depend on order.
func Summarize(txns []core.Transaction) (Totals, Diagnostics) {
	valid, diag := usable(txns)
	var t Totals
	for _, tx := range valid {
		switch tx.Kind {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
		case core.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		case core.Savings:
			t.Savings = t.Savings.Add(tx.Amount)
		}
	}
	t.Balance = t.balance()
	return t, diag
}

// FilterDay returns the transactions that occurred on day.
func FilterDay(txns []core.Transaction, day core.Date) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, t := range txns {
		if t.OccurredOn.Valid() && t.OccurredOn.Equal(day) {
			out = append(out, t)
		}
	}
	return out
}

// FilterPeriod returns the transactions inside period's window around
// today. Records without a valid date are dropped.
func FilterPeriod(txns []core.Transaction, period Period, today core.Date) ([]core.Transaction, error) {
	bucketer, err := GetBucketer(period)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.OccurredOn.Valid() && bucketer.Contains(t.OccurredOn, today) {
			out = append(out, t)
		}
	}
	return out, nil
}

// KindCount is one slice of the expense/savings breakdown chart.
type KindCount struct {
	Label string    `json:"label"`
	Kind  core.Kind `json:"kind"`
	Count int       `json:"count"`
}

// KindCounts counts expense and savings transactions. Income is not part
// of the breakdown.
func KindCounts(txns []core.Transaction) []KindCount {
	counts := []KindCount{
		{Label: "Expenses", Kind: core.Expense},
		{Label: "Savings", Kind: core.Savings},
	}
	for _, t := range txns {
		switch t.Kind {
		case core.Expense:
			counts[0].Count++
		case core.Savings:
			counts[1].Count++
		}
	}
	return counts
}

// GoalContributions sums linked transaction amounts per goal id.
func GoalContributions(txns []core.Transaction) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, t := range txns {
		if t.GoalID == "" {
			continue
		}
		out[t.GoalID] = out[t.GoalID].Add(t.Amount)
	}
	return out
}

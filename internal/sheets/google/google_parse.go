package google

import (
	"fmt"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// Column layout of an export sheet.
const (
	colDate = iota
	colKind
	colCategory
	colDescription
	colAmount
	colID
	colUser
	numCols
)

var header = []any{"Date", "Kind", "Category", "Description", "Amount", "Transaction ID", "User ID"}

func rowValues(t core.Transaction) []any {
	return []any{
		t.OccurredOn.String(),
		string(t.Kind),
		t.CategoryName,
		t.Description,
		t.Amount.String(),
		t.ID,
		t.UserID,
	}
}

// parseRow converts one sheet row back into a transaction. Header rows and
// rows with an unreadable date, kind or amount are reported as not ok.
func parseRow(row []any) (core.Transaction, bool) {
	cols := toStrings(row)
	if len(cols) < numCols-1 {
		return core.Transaction{}, false
	}
	date, err := core.ParseDate(cols[colDate])
	if err != nil {
		return core.Transaction{}, false
	}
	kind, err := core.ParseKind(cols[colKind])
	if err != nil {
		return core.Transaction{}, false
	}
	cents, err := core.ParseDecimalToCents(cols[colAmount])
	if err != nil {
		return core.Transaction{}, false
	}
	return core.Transaction{
		ID:           cols[colID],
		UserID:       safeGet(cols, colUser),
		CategoryName: cols[colCategory],
		Kind:         kind,
		Amount:       core.Money{Cents: cents},
		Description:  cols[colDescription],
		OccurredOn:   date,
	}, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

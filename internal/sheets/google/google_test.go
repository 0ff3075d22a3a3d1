package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{CredentialsJSON: "{}"})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing spreadsheet id" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got: %v", err)
	}
}

func TestNew_InvalidCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet", CredentialsJSON: "invalid-json"})
	if err == nil {
		t.Fatal("expected error with invalid JSON")
	}
	if !strings.Contains(err.Error(), "parse service account credentials") {
		t.Errorf("expected credentials parse error, got: %v", err)
	}
}

func TestReadCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	got, err := readCredentials(ctx, Options{CredentialsFile: path})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Fatalf("file credentials: %q, %v", got, err)
	}

	got, err = readCredentials(ctx, Options{CredentialsFile: path, CredentialsJSON: `{"from":"env"}`})
	if err != nil || string(got) != `{"from":"env"}` {
		t.Fatalf("inline credentials should win: %q, %v", got, err)
	}

	if _, err := readCredentials(ctx, Options{CredentialsFile: filepath.Join(dir, "missing.json")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func validTxn() core.Transaction {
	return core.Transaction{
		ID:           "7c1f",
		UserID:       "u1",
		CategoryID:   "c1",
		CategoryName: "Food",
		Kind:         core.Expense,
		Amount:       core.Money{Cents: 1250},
		Description:  "groceries",
		OccurredOn:   core.NewDate(2025, 8, 25),
	}
}

func TestClient_ExportValidates(t *testing.T) {
	c := &Client{spreadsheetID: "test"} // svc is nil

	bad := validTxn()
	bad.Amount = core.Money{}
	_, err := c.Export(context.Background(), bad)
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got: %v", err)
	}

	_, err = c.Export(context.Background(), validTxn())
	if !errors.Is(err, errNotInitialized) {
		t.Errorf("expected errNotInitialized, got: %v", err)
	}
}

func TestRowRoundTrip(t *testing.T) {
	in := validTxn()
	row := rowValues(in)
	if len(row) != numCols {
		t.Fatalf("row has %d columns, want %d", len(row), numCols)
	}
	if row[colAmount] != "12.50" || row[colDate] != "2025-08-25" {
		t.Errorf("unexpected row %v", row)
	}

	out, ok := parseRow(row)
	if !ok {
		t.Fatal("parseRow rejected its own row")
	}
	if out.ID != in.ID || out.UserID != in.UserID || out.Amount != in.Amount ||
		out.Kind != in.Kind || out.CategoryName != "Food" || !out.OccurredOn.Equal(in.OccurredOn) {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestParseRow_Rejects(t *testing.T) {
	tests := []struct {
		name string
		row  []any
	}{
		{"header", header},
		{"short", []any{"2025-01-01", "expense"}},
		{"bad kind", []any{"2025-01-01", "gift", "x", "y", "1.00", "id"}},
		{"bad amount", []any{"2025-01-01", "expense", "x", "y", "abc", "id"}},
		{"bad date", []any{"yesterday", "expense", "x", "y", "1.00", "id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := parseRow(tt.row); ok {
				t.Errorf("parseRow(%v) should fail", tt.row)
			}
		})
	}
}

func TestParseRow_SheetFormatting(t *testing.T) {
	// Sheets may echo the amount with a decimal comma and omit the user column.
	got, ok := parseRow([]any{"Aug 25, 2025", "Savings", "Travel", "", "200,5", "id-1"})
	if !ok {
		t.Fatal("expected row to parse")
	}
	if got.Amount.Cents != 20050 || got.Kind != core.Savings || got.UserID != "" {
		t.Errorf("unexpected transaction %+v", got)
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{{"Transaction ID"}, {"a"}, {}, {" b "}}
	if got := findRow(values, "b"); got != 3 {
		t.Errorf("findRow(b) = %d, want 3", got)
	}
	if got := findRow(values, "zzz"); got != -1 {
		t.Errorf("findRow(zzz) = %d, want -1", got)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Transactions", 2025, "2025 Transactions"},
		{"Ledger", 2024, "2024 Ledger"},
		{"", 2023, ""}, // Empty base returns empty
		{"Test Sheet", 2022, "2022 Test Sheet"},
		{"2025 Already Prefixed", 2024, "2025 Already Prefixed"}, // Already has year prefix
	}

	for _, tt := range tests {
		got := yearPrefixedName(tt.baseName, tt.year)
		if got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q",
				tt.baseName, tt.year, got, tt.expected)
		}
	}
}

func TestSheetFor(t *testing.T) {
	c := &Client{sheetBase: "Transactions"}
	if got := c.sheetFor(2026); got != "2026 Transactions" {
		t.Errorf("sheetFor(2026) = %q", got)
	}
}

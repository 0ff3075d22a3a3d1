package memory

import (
	"context"
	"testing"

	"fintrack/internal/core"
)

func txn(id string, day core.Date) core.Transaction {
	return core.Transaction{
		ID:         id,
		UserID:     "u1",
		CategoryID: "c1",
		Kind:       core.Expense,
		Amount:     core.Money{Cents: 123},
		OccurredOn: day,
	}
}

func TestExportAndList(t *testing.T) {
	ctx := context.Background()
	s := New()

	ref, err := s.Export(ctx, txn("a", core.NewDate(2025, 1, 1)))
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}
	if _, err := s.Export(ctx, txn("b", core.NewDate(2024, 6, 1))); err != nil {
		t.Fatal(err)
	}
	// Re-export replaces the row.
	ref, err = s.Export(ctx, txn("a", core.NewDate(2025, 1, 2)))
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected re-export: ref=%q err=%v", ref, err)
	}

	rows, _ := s.ListExported(ctx, 2025)
	if len(rows) != 1 || !rows[0].OccurredOn.Equal(core.NewDate(2025, 1, 2)) {
		t.Fatalf("unexpected rows for 2025: %+v", rows)
	}
	if s.Exports() != 3 {
		t.Errorf("Exports() = %d, want 3", s.Exports())
	}
}

func TestExportRejectsInvalid(t *testing.T) {
	bad := txn("a", core.Date{})
	if _, err := New().Export(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := txn("a", core.NewDate(2025, 1, 1))
	_, _ = s.Export(ctx, a)

	if err := s.Remove(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, a); err != nil {
		t.Fatalf("removing twice should be a no-op: %v", err)
	}
	rows, _ := s.ListExported(ctx, 2025)
	if len(rows) != 0 {
		t.Fatalf("expected empty ledger, got %+v", rows)
	}
}

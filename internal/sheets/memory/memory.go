// Package memory is an in-process ledger used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

type Store struct {
	mu    sync.Mutex
	rows  []core.Transaction
	total int
}

var _ ports.Ledger = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Export stores the transaction and returns a synthetic row reference.
// Exporting the same id twice replaces the earlier row.
func (s *Store) Export(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	for i, row := range s.rows {
		if row.ID == t.ID {
			s.rows[i] = t
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	s.rows = append(s.rows, t)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) Remove(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.ID == t.ID {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) ListExported(_ context.Context, year int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, row := range s.rows {
		if row.OccurredOn.Year() == year {
			out = append(out, row)
		}
	}
	return out, nil
}

// Exports counts successful Export calls, including replacements.
func (s *Store) Exports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

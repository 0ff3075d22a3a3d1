// Package memory is an in-process storage.Store used by tests and the
// memory backend. Data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	cats    map[string]core.Category
	txns    map[string]core.Transaction
	goals   map[string]core.Goal
	budgets map[string]core.MonthlyBudget // keyed by user id
	reports map[string]core.FeedbackReport
}

var _ storage.Store = (*Store)(nil)

// New returns a store seeded with cats. A nil slice seeds the default
// categories.
func New(cats []core.Category) *Store {
	if cats == nil {
		cats = storage.DefaultCategories
	}
	s := &Store{
		cats:    make(map[string]core.Category, len(cats)),
		txns:    make(map[string]core.Transaction),
		goals:   make(map[string]core.Goal),
		budgets: make(map[string]core.MonthlyBudget),
		reports: make(map[string]core.FeedbackReport),
	}
	for _, c := range cats {
		s.cats[c.ID] = c
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		out = append(out, c)
	}
	sortCategories(out)
	return out, nil
}

func (s *Store) ListCategoriesByKind(_ context.Context, kind core.Kind) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0)
	for _, c := range s.cats {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	sortCategories(out)
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[id]
	if !ok {
		return core.Category{}, notFound("category", id)
	}
	return c, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := s.cats[c.ID]; ok {
		return core.Category{}, fmt.Errorf("create category %s: %w", c.ID, storage.ErrConflict)
	}
	for _, existing := range s.cats {
		if existing.Kind == c.Kind && strings.EqualFold(existing.Name, c.Name) {
			return core.Category{}, fmt.Errorf("create category %s: %w", c.Name, storage.ErrConflict)
		}
	}
	s.cats[c.ID] = c
	return c, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if _, ok := s.txns[t.ID]; ok {
		return core.Transaction{}, fmt.Errorf("create transaction %s: %w", t.ID, storage.ErrConflict)
	}
	if _, ok := s.cats[t.CategoryID]; !ok {
		return core.Transaction{}, notFound("category", t.CategoryID)
	}
	if t.GoalID != "" {
		if err := s.adjustGoal(t.GoalID, t.Amount); err != nil {
			return core.Transaction{}, err
		}
	}
	s.txns[t.ID] = t
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[id]
	if !ok {
		return core.Transaction{}, notFound("transaction", id)
	}
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterTransactions(func(t core.Transaction) bool {
		return t.UserID == userID
	}), nil
}

func (s *Store) ListTransactionsByDate(_ context.Context, userID string, day core.Date) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterTransactions(func(t core.Transaction) bool {
		return t.UserID == userID && t.OccurredOn.Equal(day)
	}), nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, notFound("transaction", id)
	}
	delete(s.txns, id)
	if t.GoalID != "" {
		// The goal may already be gone; nothing to reverse then.
		_ = s.adjustGoal(t.GoalID, core.Money{Cents: -t.Amount.Cents})
	}
	return t, nil
}

func (s *Store) CreateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if _, ok := s.goals[g.ID]; ok {
		return core.Goal{}, fmt.Errorf("create goal %s: %w", g.ID, storage.ErrConflict)
	}
	if _, ok := s.cats[g.CategoryID]; !ok {
		return core.Goal{}, notFound("category", g.CategoryID)
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	s.goals[g.ID] = g
	return g, nil
}

func (s *Store) GetGoal(_ context.Context, id string) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return core.Goal{}, notFound("goal", id)
	}
	return g, nil
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Goal, 0)
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.goals[g.ID]
	if !ok {
		return core.Goal{}, notFound("goal", g.ID)
	}
	cur.Name = g.Name
	cur.TargetAmount = g.TargetAmount
	cur.StartDate = g.StartDate
	cur.Deadline = g.Deadline
	cur.UpdatedAt = time.Now().UTC()
	s.goals[g.ID] = cur
	return cur, nil
}

func (s *Store) SetGoalActive(_ context.Context, id string, active bool) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return core.Goal{}, notFound("goal", id)
	}
	g.Active = active
	g.UpdatedAt = time.Now().UTC()
	s.goals[id] = g
	return g, nil
}

func (s *Store) AdjustGoalAmount(_ context.Context, id string, delta core.Money) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.adjustGoal(id, delta); err != nil {
		return core.Goal{}, err
	}
	return s.goals[id], nil
}

func (s *Store) DeleteGoal(_ context.Context, id string) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return core.Goal{}, notFound("goal", id)
	}
	delete(s.goals, id)
	for tid, t := range s.txns {
		if t.GoalID == id {
			t.GoalID = ""
			s.txns[tid] = t
		}
	}
	return g, nil
}

func (s *Store) GetBudget(_ context.Context, userID string) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[userID]
	if !ok {
		return core.MonthlyBudget{}, notFound("budget for user", userID)
	}
	return b, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if cur, ok := s.budgets[b.UserID]; ok {
		b.ID = cur.ID
		b.CreatedAt = cur.CreatedAt
	} else {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		b.CreatedAt = now
	}
	if b.CategoryScope == "" {
		b.CategoryScope = core.Expense
	}
	b.UpdatedAt = now
	s.budgets[b.UserID] = b
	return b, nil
}

func (s *Store) UpdateBudgetLimit(_ context.Context, id string, limit core.Money) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for user, b := range s.budgets {
		if b.ID == id {
			b.LimitAmount = limit
			b.UpdatedAt = time.Now().UTC()
			s.budgets[user] = b
			return b, nil
		}
	}
	return core.MonthlyBudget{}, notFound("budget", id)
}

func (s *Store) DeleteBudget(_ context.Context, id string) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for user, b := range s.budgets {
		if b.ID == id {
			delete(s.budgets, user)
			return b, nil
		}
	}
	return core.MonthlyBudget{}, notFound("budget", id)
}

func (s *Store) CreateFeedbackReport(_ context.Context, r core.FeedbackReport) (core.FeedbackReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, ok := s.reports[r.ID]; ok {
		return core.FeedbackReport{}, fmt.Errorf("create feedback report %s: %w", r.ID, storage.ErrConflict)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.reports[r.ID] = r
	return r, nil
}

func (s *Store) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	for _, t := range s.txns {
		seen[t.UserID] = struct{}{}
	}
	for _, g := range s.goals {
		seen[g.UserID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// adjustGoal must be called with s.mu held.
func (s *Store) adjustGoal(id string, delta core.Money) error {
	g, ok := s.goals[id]
	if !ok {
		return notFound("goal", id)
	}
	g.AccumulatedAmount = g.AccumulatedAmount.Add(delta)
	g.UpdatedAt = time.Now().UTC()
	s.goals[id] = g
	return nil
}

// filterTransactions returns matches newest first, like the SQL store.
func (s *Store) filterTransactions(keep func(core.Transaction) bool) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, t := range s.txns {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.OccurredOn.Equal(b.OccurredOn) {
			return a.OccurredOn.After(b.OccurredOn)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

func sortCategories(cats []core.Category) {
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Kind != cats[j].Kind {
			return cats[i].Kind < cats[j].Kind
		}
		return cats[i].Name < cats[j].Name
	})
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, storage.ErrNotFound)
}

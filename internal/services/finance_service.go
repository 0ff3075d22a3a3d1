// Package services holds the application logic between the HTTP layer and
// storage: validation, goal bookkeeping, cache invalidation and events.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

var (
	ErrGoalOwner        = core.NewValidationError("goal belongs to another user")
	ErrGoalInactive     = core.NewValidationError("goal is not active")
	ErrGoalCategory     = core.NewValidationError("transaction category does not match the goal category")
	ErrGoalCategoryKind = core.NewValidationError("goal category must be of type savings")
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, ev amqp.Event) error
}

// Invalidator drops cached state derived from a user's data.
type Invalidator interface {
	Invalidate(userID string)
}

type (
	TransactionInput struct {
		Amount      core.Money
		Description string
		Date        core.Date
		GoalID      string
	}

	GoalInput struct {
		Name      string
		Target    core.Money
		StartDate core.Date
		Deadline  core.Date
	}

	// GoalUpdate changes only the fields that are set.
	GoalUpdate struct {
		Name     *string
		Target   *core.Money
		Deadline *core.Date
	}

	BudgetInput struct {
		Limit       core.Money
		PeriodStart core.Date
		PeriodEnd   core.Date
	}
)

// FinanceService orchestrates writes across the store, the report cache
// and the event bus.
type FinanceService struct {
	store       storage.Store
	publisher   EventPublisher
	invalidator Invalidator
	logger      *log.StructuredLogger
	today       func() core.Date
}

// NewFinanceService wires the service. publisher and invalidator may be nil.
func NewFinanceService(store storage.Store, publisher EventPublisher, invalidator Invalidator, logger *log.Logger) *FinanceService {
	if logger == nil {
		logger = log.Discard()
	}
	return &FinanceService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		logger:      log.NewStructuredLogger(logger.WithComponent(log.ComponentFinance)),
		today:       core.Today,
	}
}

// SetClock replaces the source of "today" used for goal start dates.
func (s *FinanceService) SetClock(today func() core.Date) {
	s.today = today
}

func (s *FinanceService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *FinanceService) ListCategoriesByKind(ctx context.Context, kind string) ([]core.Category, error) {
	k, err := core.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return s.store.ListCategoriesByKind(ctx, k)
}

func (s *FinanceService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c.WithDefaults())
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.publish(ctx, amqp.NewEvent(amqp.CategoryCreated, "", created.ID))
	return created, nil
}

// CreateTransaction records a transaction in categoryID. Kind and category
// name come from the category. A linked goal must belong to the user, be
// active and share the category; its accumulated amount grows in the same
// store transaction.
func (s *FinanceService) CreateTransaction(ctx context.Context, userID, categoryID string, in TransactionInput) (core.Transaction, error) {
	cat, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get category: %w", err)
	}

	txn := core.Transaction{
		UserID:       strings.TrimSpace(userID),
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		Kind:         cat.Kind,
		Amount:       in.Amount,
		Description:  strings.TrimSpace(in.Description),
		OccurredOn:   in.Date,
		GoalID:       strings.TrimSpace(in.GoalID),
	}
	if err := txn.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if txn.GoalID != "" {
		goal, err := s.store.GetGoal(ctx, txn.GoalID)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("get goal: %w", err)
		}
		if err := checkGoalLink(goal, txn); err != nil {
			return core.Transaction{}, err
		}
	}

	created, err := s.store.CreateTransaction(ctx, txn)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.LogTransactionCreated(ctx, created.UserID, created.ID, string(created.Kind),
		created.Amount.Cents, created.OccurredOn.String())
	s.invalidate(created.UserID)
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionCreated, created))
	return created, nil
}

func checkGoalLink(goal core.Goal, txn core.Transaction) error {
	switch {
	case goal.UserID != txn.UserID:
		return ErrGoalOwner
	case !goal.Active:
		return ErrGoalInactive
	case goal.CategoryID != txn.CategoryID:
		return ErrGoalCategory
	}
	return nil
}

func (s *FinanceService) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}

func (s *FinanceService) ListTransactionsByDate(ctx context.Context, userID string, day core.Date) ([]core.Transaction, error) {
	if err := day.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListTransactionsByDate(ctx, userID, day)
}

// DeleteTransaction removes one of the user's transactions and reverses
// its goal contribution.
func (s *FinanceService) DeleteTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	deleted, err := s.store.DeleteTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}
	s.invalidate(userID)
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionDeleted, deleted))
	return deleted, nil
}

func (s *FinanceService) CreateGoal(ctx context.Context, userID, categoryID string, in GoalInput) (core.Goal, error) {
	cat, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("get category: %w", err)
	}
	if cat.Kind != core.Savings {
		return core.Goal{}, ErrGoalCategoryKind
	}

	start := in.StartDate
	if !start.Valid() {
		start = s.today()
	}
	goal := core.Goal{
		UserID:       strings.TrimSpace(userID),
		CategoryID:   cat.ID,
		Name:         strings.TrimSpace(in.Name),
		TargetAmount: in.Target,
		StartDate:    start,
		Deadline:     in.Deadline,
		Active:       true,
	}
	if err := goal.Validate(); err != nil {
		return core.Goal{}, err
	}

	created, err := s.store.CreateGoal(ctx, goal)
	if err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	s.invalidate(created.UserID)
	s.publish(ctx, amqp.NewEvent(amqp.GoalCreated, created.UserID, created.ID))
	return created, nil
}

func (s *FinanceService) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	return s.store.ListGoals(ctx, userID)
}

// UpdateGoal renames or retargets a goal. Linked transactions follow the
// goal id, so a rename never changes which transactions count.
func (s *FinanceService) UpdateGoal(ctx context.Context, goalID string, upd GoalUpdate) (core.Goal, error) {
	goal, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	if upd.Name != nil {
		goal.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Target != nil {
		goal.TargetAmount = *upd.Target
	}
	if upd.Deadline != nil {
		goal.Deadline = *upd.Deadline
	}
	if err := goal.Validate(); err != nil {
		return core.Goal{}, err
	}

	updated, err := s.store.UpdateGoal(ctx, goal)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	s.invalidate(updated.UserID)
	s.publish(ctx, amqp.NewEvent(amqp.GoalUpdated, updated.UserID, updated.ID))
	return updated, nil
}

func (s *FinanceService) SetGoalActive(ctx context.Context, goalID string, active bool) (core.Goal, error) {
	goal, err := s.store.SetGoalActive(ctx, goalID, active)
	if err != nil {
		return core.Goal{}, fmt.Errorf("set goal active: %w", err)
	}
	evType := amqp.GoalDeactivated
	if active {
		evType = amqp.GoalActivated
	}
	s.invalidate(goal.UserID)
	s.publish(ctx, amqp.NewEvent(evType, goal.UserID, goal.ID))
	return goal, nil
}

// DeleteGoal removes a goal. Its transactions stay but lose the link.
func (s *FinanceService) DeleteGoal(ctx context.Context, goalID string) (core.Goal, error) {
	goal, err := s.store.DeleteGoal(ctx, goalID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("delete goal: %w", err)
	}
	s.invalidate(goal.UserID)
	s.publish(ctx, amqp.NewEvent(amqp.GoalDeleted, goal.UserID, goal.ID))
	return goal, nil
}

func (s *FinanceService) GetBudget(ctx context.Context, userID string) (core.MonthlyBudget, error) {
	return s.store.GetBudget(ctx, userID)
}

// SetBudget creates or replaces the user's single monthly budget.
func (s *FinanceService) SetBudget(ctx context.Context, userID string, in BudgetInput) (core.MonthlyBudget, error) {
	b := core.MonthlyBudget{
		UserID:        strings.TrimSpace(userID),
		CategoryScope: core.Expense,
		LimitAmount:   in.Limit,
		PeriodStart:   in.PeriodStart,
		PeriodEnd:     in.PeriodEnd,
	}
	if err := b.Validate(); err != nil {
		return core.MonthlyBudget{}, err
	}
	saved, err := s.store.UpsertBudget(ctx, b)
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("save budget: %w", err)
	}
	s.invalidate(saved.UserID)
	s.publish(ctx, amqp.NewEvent(amqp.BudgetSet, saved.UserID, saved.ID))
	return saved, nil
}

func (s *FinanceService) UpdateBudgetLimit(ctx context.Context, budgetID string, limit core.Money) (core.MonthlyBudget, error) {
	if limit.Cents < 0 {
		return core.MonthlyBudget{}, core.ErrNegativeLimit
	}
	b, err := s.store.UpdateBudgetLimit(ctx, budgetID, limit)
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("update budget: %w", err)
	}
	s.invalidate(b.UserID)
	s.publish(ctx, amqp.NewEvent(amqp.BudgetUpdated, b.UserID, b.ID))
	return b, nil
}

func (s *FinanceService) DeleteBudget(ctx context.Context, budgetID string) (core.MonthlyBudget, error) {
	b, err := s.store.DeleteBudget(ctx, budgetID)
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("delete budget: %w", err)
	}
	s.invalidate(b.UserID)
	s.publish(ctx, amqp.NewEvent(amqp.BudgetDeleted, b.UserID, b.ID))
	return b, nil
}

func (s *FinanceService) invalidate(userID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}
}

// publish never fails the caller: the write already succeeded.
func (s *FinanceService) publish(ctx context.Context, ev amqp.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		errType := log.ErrorTypeNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			errType = log.ErrorTypeTimeout
		}
		fields := log.NewFields().
			WithUser(ev.UserID).
			WithErrorType(errType)
		fields[log.FieldEventType] = string(ev.Type)
		s.logger.LogError(ctx, "Failed to publish event", err, log.ComponentAMQP, log.OpPublish, fields)
	}
}

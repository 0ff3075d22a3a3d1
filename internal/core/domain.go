package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
	Savings Kind = "savings"
)

const (
	maxDescriptionLen = 200
	maxNameLen        = 100
	maxHeaderLen      = 200
	maxDetailsLen     = 5000
	defaultColor      = "#000000"
)

type (
	// Kind of a category; decides how a transaction contributes to totals.
	Kind string

	Money struct {
		Cents int64
	}

	Category struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Kind  Kind   `json:"type"`
		Color string `json:"color"`
	}

	// Transaction is immutable once recorded. Kind and CategoryName are
	// denormalised from the category at creation time.
	Transaction struct {
		ID           string    `json:"id"`
		UserID       string    `json:"userId"`
		CategoryID   string    `json:"categoryId"`
		CategoryName string    `json:"categoryName,omitempty"`
		Kind         Kind      `json:"kind"`
		Amount       Money     `json:"amount"`
		Description  string    `json:"description"`
		OccurredOn   Date      `json:"date"`
		GoalID       string    `json:"goalId,omitempty"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	// Goal is a savings target. AccumulatedAmount is the running total of
	// the transactions that reference the goal by GoalID.
	Goal struct {
		ID                string    `json:"id"`
		UserID            string    `json:"userId"`
		CategoryID        string    `json:"categoryId"`
		Name              string    `json:"goalName"`
		TargetAmount      Money     `json:"goalAmount"`
		AccumulatedAmount Money     `json:"amount"`
		StartDate         Date      `json:"goalStartDate"`
		Deadline          Date      `json:"goalDeadline"`
		Active            bool      `json:"active"`
		CreatedAt         time.Time `json:"createdAt"`
		UpdatedAt         time.Time `json:"updatedAt"`
	}

	// MonthlyBudget caps expense spending. A zero period means the current
	// calendar month. Consumption is always recomputed from transactions.
	MonthlyBudget struct {
		ID            string    `json:"id"`
		UserID        string    `json:"userId"`
		CategoryScope Kind      `json:"categoryScope"`
		LimitAmount   Money     `json:"amountLimit"`
		PeriodStart   Date      `json:"periodStart"`
		PeriodEnd     Date      `json:"periodEnd"`
		CreatedAt     time.Time `json:"createdAt"`
		UpdatedAt     time.Time `json:"updatedAt"`
	}

	// FeedbackReport is a problem report sent from the app.
	FeedbackReport struct {
		ID        string    `json:"id"`
		Header    string    `json:"header"`
		Details   string    `json:"details"`
		CreatedAt time.Time `json:"createdAt"`
	}
)

// ValidationError marks errors caused by bad input rather than a failing
// dependency.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	return errors.As(err, &validationError)
}

var (
	ErrInvalidDate      = NewValidationError("invalid date")
	ErrInvalidAmount    = NewValidationError("invalid amount")
	ErrInvalidKind      = NewValidationError("invalid category type")
	ErrEmptyName        = NewValidationError("empty name")
	ErrEmptyUser        = NewValidationError("empty user id")
	ErrEmptyCategory    = NewValidationError("empty category id")
	ErrDescriptionLong  = NewValidationError(fmt.Sprintf("description too long (max %d characters)", maxDescriptionLen))
	ErrNameLong         = NewValidationError(fmt.Sprintf("name too long (max %d characters)", maxNameLen))
	ErrDeadlineBefore   = NewValidationError("deadline must not be before start date")
	ErrPeriodIncomplete = NewValidationError("period start and end must both be set")
	ErrPeriodReversed   = NewValidationError("period end must not be before period start")
	ErrNegativeLimit    = NewValidationError("budget limit must not be negative")
	ErrReportIncomplete = NewValidationError("header and details are required")
	ErrHeaderLong       = NewValidationError(fmt.Sprintf("header too long (max %d characters)", maxHeaderLen))
	ErrDetailsLong      = NewValidationError(fmt.Sprintf("details too long (max %d characters)", maxDetailsLen))
)

// ParseKind normalises and validates a kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

func (k Kind) Valid() bool {
	switch k {
	case Income, Expense, Savings:
		return true
	default:
		return false
	}
}

func (k Kind) String() string { return string(k) }

// Kinds returns every valid kind in display order.
func Kinds() []Kind {
	return []Kind{Income, Expense, Savings}
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > maxNameLen {
		return ErrNameLong
	}
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

// WithDefaults fills optional fields.
func (c Category) WithDefaults() Category {
	if strings.TrimSpace(c.Color) == "" {
		c.Color = defaultColor
	}
	return c
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.OccurredOn.Validate(); err != nil {
		return err
	}
	if len(t.Description) > maxDescriptionLen {
		return ErrDescriptionLong
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(g.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if len(g.Name) > maxNameLen {
		return ErrNameLong
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if err := g.Deadline.Validate(); err != nil {
		return fmt.Errorf("deadline: %w", err)
	}
	if g.StartDate.Valid() && g.Deadline.Before(g.StartDate) {
		return ErrDeadlineBefore
	}
	return nil
}

// Achieved reports whether the accumulated amount reached the target.
func (g Goal) Achieved() bool {
	return g.AccumulatedAmount.Cents >= g.TargetAmount.Cents
}

func (b MonthlyBudget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrEmptyUser
	}
	if b.LimitAmount.Cents < 0 {
		return ErrNegativeLimit
	}
	if b.PeriodStart.Valid() != b.PeriodEnd.Valid() {
		return ErrPeriodIncomplete
	}
	if b.PeriodStart.Valid() && b.PeriodEnd.Before(b.PeriodStart) {
		return ErrPeriodReversed
	}
	return nil
}

// Period returns the budget's active window. Without an explicit period it
// is the calendar month containing today.
func (b MonthlyBudget) Period(today Date) (Date, Date) {
	if b.PeriodStart.Valid() && b.PeriodEnd.Valid() {
		return b.PeriodStart, b.PeriodEnd
	}
	return today.FirstOfMonth(), today.LastOfMonth()
}

func (r FeedbackReport) Validate() error {
	if strings.TrimSpace(r.Header) == "" || strings.TrimSpace(r.Details) == "" {
		return ErrReportIncomplete
	}
	if len(r.Header) > maxHeaderLen {
		return ErrHeaderLong
	}
	if len(r.Details) > maxDetailsLen {
		return ErrDetailsLong
	}
	return nil
}

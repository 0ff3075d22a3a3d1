// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON bodies, path parameters and query values.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

const maxBodyBytes = 1 << 20

var errBadBody = errors.New("invalid request body")

type (
	categoryRequest struct {
		Name  string `json:"name"`
		Type  string `json:"type"`
		Color string `json:"color"`
	}

	transactionRequest struct {
		Amount      core.Money `json:"amount"`
		Description string     `json:"description"`
		Date        core.Date  `json:"date"`
		GoalID      string     `json:"goalId"`
	}

	goalRequest struct {
		Name      string     `json:"goalName"`
		Target    core.Money `json:"goalAmount"`
		StartDate core.Date  `json:"goalStartDate"`
		Deadline  core.Date  `json:"goalDeadline"`
	}

	goalPatchRequest struct {
		Name     *string     `json:"goalName"`
		Target   *core.Money `json:"goalAmount"`
		Deadline *core.Date  `json:"goalDeadline"`
	}

	budgetRequest struct {
		Limit       core.Money `json:"amountLimit"`
		PeriodStart core.Date  `json:"periodStart"`
		PeriodEnd   core.Date  `json:"periodEnd"`
	}

	budgetPatchRequest struct {
		Limit *core.Money `json:"amountLimit"`
	}

	feedbackRequest struct {
		Header  string `json:"header"`
		Details string `json:"details"`
	}
)

// DecodeJSON reads a single JSON object from the body into dst. Unknown
// fields are rejected so typos surface as 400s rather than silent defaults.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return fmt.Errorf("%w: empty body", errBadBody)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadBody)
		}
		// Field decoders return domain validation errors; keep them as is.
		if isDomainError(err) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errBadBody)
	}
	return nil
}

func isDomainError(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) || errors.Is(err, core.ErrInvalidDate)
}

// PathValue returns a trimmed, sanitized path wildcard.
func PathValue(r *http.Request, name string) string {
	return sanitizeInput(r.PathValue(name))
}

// QueryDate parses a YYYY-MM-DD query value. A missing value returns the
// zero Date unless required is set.
func QueryDate(r *http.Request, key string, required bool) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		if required {
			return core.Date{}, fmt.Errorf("%w: missing %s", errBadBody, key)
		}
		return core.Date{}, nil
	}
	return core.ParseDate(v)
}

func (c categoryRequest) toCategory() (core.Category, error) {
	kind, err := core.ParseKind(c.Type)
	if err != nil {
		return core.Category{}, err
	}
	return core.Category{
		Name:  sanitizeInput(c.Name),
		Kind:  kind,
		Color: sanitizeInput(c.Color),
	}, nil
}

func (t transactionRequest) toInput() services.TransactionInput {
	return services.TransactionInput{
		Amount:      t.Amount,
		Description: sanitizeInput(t.Description),
		Date:        t.Date,
		GoalID:      sanitizeInput(t.GoalID),
	}
}

func (g goalRequest) toInput() services.GoalInput {
	return services.GoalInput{
		Name:      sanitizeInput(g.Name),
		Target:    g.Target,
		StartDate: g.StartDate,
		Deadline:  g.Deadline,
	}
}

func (g goalPatchRequest) toUpdate() services.GoalUpdate {
	upd := services.GoalUpdate{Target: g.Target, Deadline: g.Deadline}
	if g.Name != nil {
		name := sanitizeInput(*g.Name)
		upd.Name = &name
	}
	return upd
}

func (b budgetRequest) toInput() services.BudgetInput {
	return services.BudgetInput{
		Limit:       b.Limit,
		PeriodStart: b.PeriodStart,
		PeriodEnd:   b.PeriodEnd,
	}
}

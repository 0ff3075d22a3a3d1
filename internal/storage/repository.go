package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"fintrack/internal/core"
)

const timestampLayout = time.RFC3339Nano

// SQLiteRepository is the SQLite implementation of Store.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.seedCategories(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) seedCategories(ctx context.Context) error {
	for _, c := range DefaultCategories {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (id, name, kind, color) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, string(c.Kind), c.Color)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c.Name, err)
		}
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Categories

const categoryColumns = `id, name, kind, color`

func scanCategory(s scanner) (core.Category, error) {
	var c core.Category
	var kind string
	if err := s.Scan(&c.ID, &c.Name, &kind, &c.Color); err != nil {
		return core.Category{}, err
	}
	c.Kind = core.Kind(kind)
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY kind, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return collect(rows, scanCategory)
}

func (r *SQLiteRepository) ListCategoriesByKind(ctx context.Context, kind core.Kind) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE kind = ? ORDER BY name`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list categories by kind %s: %w", kind, err)
	}
	return collect(rows, scanCategory)
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err != nil {
		return core.Category{}, wrapErr("get category "+id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, kind, color) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Kind), c.Color)
	if err != nil {
		return core.Category{}, wrapErr("create category", err)
	}
	slog.InfoContext(ctx, "Category saved to SQLite", "id", c.ID, "name", c.Name, "kind", c.Kind)
	return c, nil
}

// Transactions

const transactionColumns = `id, user_id, category_id, category_name, kind, amount_cents, description, occurred_on, goal_id, created_at`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		kind       string
		occurredOn string
		goalID     sql.NullString
		createdAt  string
	)
	err := s.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.CategoryName, &kind,
		&t.Amount.Cents, &t.Description, &occurredOn, &goalID, &createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.Kind(kind)
	// A malformed stored date is left zero so aggregation can skip and count it.
	t.OccurredOn, _ = core.ParseDate(occurredOn)
	t.GoalID = goalID.String
	t.CreatedAt = parseTimestamp(createdAt)
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if t.GoalID != "" {
			if err := adjustGoal(ctx, tx, t.GoalID, t.Amount); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.UserID, t.CategoryID, t.CategoryName, string(t.Kind), t.Amount.Cents,
			t.Description, t.OccurredOn.String(), nullString(t.GoalID), t.CreatedAt.Format(timestampLayout))
		return err
	})
	if err != nil {
		return core.Transaction{}, wrapErr("create transaction", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"user_id", t.UserID,
		"kind", t.Kind,
		"amount_cents", t.Amount.Cents,
		"date", t.OccurredOn.String(),
		"goal_id", t.GoalID)

	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if err != nil {
		return core.Transaction{}, wrapErr("get transaction "+id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ?
		 ORDER BY occurred_on DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collect(rows, scanTransaction)
}

func (r *SQLiteRepository) ListTransactionsByDate(ctx context.Context, userID string, day core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND occurred_on = ?
		 ORDER BY created_at DESC`, userID, day.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions by date: %w", err)
	}
	return collect(rows, scanTransaction)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	var deleted core.Transaction
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		t, err := scanTransaction(tx.QueryRowContext(ctx,
			`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
			return err
		}
		if t.GoalID != "" {
			err := adjustGoal(ctx, tx, t.GoalID, core.Money{Cents: -t.Amount.Cents})
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}
		deleted = t
		return nil
	})
	if err != nil {
		return core.Transaction{}, wrapErr("delete transaction "+id, err)
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id, "user_id", userID)
	return deleted, nil
}

// Goals

const goalColumns = `id, user_id, category_id, name, target_cents, accumulated_cents, start_date, deadline, active, created_at, updated_at`

func scanGoal(s scanner) (core.Goal, error) {
	var (
		g                    core.Goal
		startDate            sql.NullString
		deadline             string
		createdAt, updatedAt string
	)
	err := s.Scan(&g.ID, &g.UserID, &g.CategoryID, &g.Name, &g.TargetAmount.Cents,
		&g.AccumulatedAmount.Cents, &startDate, &deadline, &g.Active, &createdAt, &updatedAt)
	if err != nil {
		return core.Goal{}, err
	}
	g.StartDate, _ = core.ParseDate(startDate.String)
	g.Deadline, _ = core.ParseDate(deadline)
	g.CreatedAt = parseTimestamp(createdAt)
	g.UpdatedAt = parseTimestamp(updatedAt)
	return g, nil
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.CategoryID, g.Name, g.TargetAmount.Cents, g.AccumulatedAmount.Cents,
		nullString(g.StartDate.String()), g.Deadline.String(), g.Active,
		g.CreatedAt.Format(timestampLayout), g.UpdatedAt.Format(timestampLayout))
	if err != nil {
		return core.Goal{}, wrapErr("create goal", err)
	}
	slog.InfoContext(ctx, "Goal saved to SQLite", "id", g.ID, "user_id", g.UserID, "name", g.Name)
	return g, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	g, err := getGoal(ctx, r.db, id)
	if err != nil {
		return core.Goal{}, wrapErr("get goal "+id, err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return collect(rows, scanGoal)
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	var updated core.Goal
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE goals SET name = ?, target_cents = ?, start_date = ?, deadline = ?, updated_at = ? WHERE id = ?`,
			g.Name, g.TargetAmount.Cents, nullString(g.StartDate.String()), g.Deadline.String(),
			time.Now().UTC().Format(timestampLayout), g.ID)
		if err := requireAffected(res, err); err != nil {
			return err
		}
		updated, err = getGoal(ctx, tx, g.ID)
		return err
	})
	if err != nil {
		return core.Goal{}, wrapErr("update goal "+g.ID, err)
	}
	return updated, nil
}

func (r *SQLiteRepository) SetGoalActive(ctx context.Context, id string, active bool) (core.Goal, error) {
	var updated core.Goal
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE goals SET active = ?, updated_at = ? WHERE id = ?`,
			active, time.Now().UTC().Format(timestampLayout), id)
		if err := requireAffected(res, err); err != nil {
			return err
		}
		updated, err = getGoal(ctx, tx, id)
		return err
	})
	if err != nil {
		return core.Goal{}, wrapErr("set goal active "+id, err)
	}
	return updated, nil
}

func (r *SQLiteRepository) AdjustGoalAmount(ctx context.Context, id string, delta core.Money) (core.Goal, error) {
	var updated core.Goal
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := adjustGoal(ctx, tx, id, delta); err != nil {
			return err
		}
		var err error
		updated, err = getGoal(ctx, tx, id)
		return err
	})
	if err != nil {
		return core.Goal{}, wrapErr("adjust goal "+id, err)
	}
	return updated, nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id string) (core.Goal, error) {
	var deleted core.Goal
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		g, err := getGoal(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE transactions SET goal_id = NULL WHERE goal_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id); err != nil {
			return err
		}
		deleted = g
		return nil
	})
	if err != nil {
		return core.Goal{}, wrapErr("delete goal "+id, err)
	}
	slog.InfoContext(ctx, "Goal deleted from SQLite", "id", id)
	return deleted, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getGoal(ctx context.Context, q queryer, id string) (core.Goal, error) {
	return scanGoal(q.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
}

func adjustGoal(ctx context.Context, tx *sql.Tx, id string, delta core.Money) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE goals SET accumulated_cents = accumulated_cents + ?, updated_at = ? WHERE id = ?`,
		delta.Cents, time.Now().UTC().Format(timestampLayout), id)
	return requireAffected(res, err)
}

// Budgets

const budgetColumns = `id, user_id, category_scope, limit_cents, period_start, period_end, created_at, updated_at`

func scanBudget(s scanner) (core.MonthlyBudget, error) {
	var (
		b                    core.MonthlyBudget
		scope                string
		start, end           sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&b.ID, &b.UserID, &scope, &b.LimitAmount.Cents, &start, &end, &createdAt, &updatedAt)
	if err != nil {
		return core.MonthlyBudget{}, err
	}
	b.CategoryScope = core.Kind(scope)
	b.PeriodStart, _ = core.ParseDate(start.String)
	b.PeriodEnd, _ = core.ParseDate(end.String)
	b.CreatedAt = parseTimestamp(createdAt)
	b.UpdatedAt = parseTimestamp(updatedAt)
	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID string) (core.MonthlyBudget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ?`, userID))
	if err != nil {
		return core.MonthlyBudget{}, wrapErr("get budget for user "+userID, err)
	}
	return b, nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CategoryScope == "" {
		b.CategoryScope = core.Expense
	}
	now := time.Now().UTC().Format(timestampLayout)

	var saved core.MonthlyBudget
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
			   category_scope = excluded.category_scope,
			   limit_cents = excluded.limit_cents,
			   period_start = excluded.period_start,
			   period_end = excluded.period_end,
			   updated_at = excluded.updated_at`,
			b.ID, b.UserID, string(b.CategoryScope), b.LimitAmount.Cents,
			nullString(b.PeriodStart.String()), nullString(b.PeriodEnd.String()), now, now)
		if err != nil {
			return err
		}
		saved, err = scanBudget(tx.QueryRowContext(ctx,
			`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ?`, b.UserID))
		return err
	})
	if err != nil {
		return core.MonthlyBudget{}, wrapErr("upsert budget", err)
	}
	slog.InfoContext(ctx, "Budget saved to SQLite", "id", saved.ID, "user_id", saved.UserID,
		"limit_cents", saved.LimitAmount.Cents)
	return saved, nil
}

func (r *SQLiteRepository) UpdateBudgetLimit(ctx context.Context, id string, limit core.Money) (core.MonthlyBudget, error) {
	var updated core.MonthlyBudget
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE budgets SET limit_cents = ?, updated_at = ? WHERE id = ?`,
			limit.Cents, time.Now().UTC().Format(timestampLayout), id)
		if err := requireAffected(res, err); err != nil {
			return err
		}
		updated, err = scanBudget(tx.QueryRowContext(ctx,
			`SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
		return err
	})
	if err != nil {
		return core.MonthlyBudget{}, wrapErr("update budget "+id, err)
	}
	return updated, nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) (core.MonthlyBudget, error) {
	var deleted core.MonthlyBudget
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		b, err := scanBudget(tx.QueryRowContext(ctx,
			`SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id); err != nil {
			return err
		}
		deleted = b
		return nil
	})
	if err != nil {
		return core.MonthlyBudget{}, wrapErr("delete budget "+id, err)
	}
	return deleted, nil
}

// Feedback

func (r *SQLiteRepository) CreateFeedbackReport(ctx context.Context, fr core.FeedbackReport) (core.FeedbackReport, error) {
	if fr.ID == "" {
		fr.ID = uuid.NewString()
	}
	if fr.CreatedAt.IsZero() {
		fr.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feedback_reports (id, header, details, created_at) VALUES (?, ?, ?, ?)`,
		fr.ID, fr.Header, fr.Details, fr.CreatedAt.Format(timestampLayout))
	if err != nil {
		return core.FeedbackReport{}, wrapErr("create feedback report", err)
	}
	slog.InfoContext(ctx, "Feedback report saved to SQLite", "id", fr.ID)
	return fr, nil
}

func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM transactions UNION SELECT user_id FROM goals ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return collect(rows, func(s scanner) (string, error) {
		var id string
		err := s.Scan(&id)
		return id, err
	})
}

// helpers

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func requireAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// wrapErr maps driver errors onto ErrNotFound and ErrConflict.
func wrapErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s: referenced record: %w", op, ErrNotFound)
		}
		// Without extended result codes only the primary code is set.
		if sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			msg := sqliteErr.Error()
			switch {
			case strings.Contains(msg, "UNIQUE"):
				return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
			case strings.Contains(msg, "FOREIGN KEY"):
				return fmt.Errorf("%s: referenced record: %w", op, ErrNotFound)
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

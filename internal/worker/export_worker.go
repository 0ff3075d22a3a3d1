package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// ExportWorker mirrors transactions into the external ledger as events
// arrive from the queue.
type ExportWorker struct {
	store  storage.Store
	ledger sheets.Ledger
}

func NewExportWorker(store storage.Store, ledger sheets.Ledger) *ExportWorker {
	return &ExportWorker{store: store, ledger: ledger}
}

// HandleEvent processes a single event from AMQP. A returned error makes
// the consumer requeue the message.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.Event) error {
	switch ev.Type {
	case amqp.TransactionCreated:
		return w.handleCreated(ctx, ev)
	case amqp.TransactionDeleted:
		return w.handleDeleted(ctx, ev)
	default:
		slog.DebugContext(ctx, "Ignoring event",
			"event_type", ev.Type,
			"entity_id", ev.EntityID,
			"user_id", ev.UserID)
		return nil
	}
}

func (w *ExportWorker) handleCreated(ctx context.Context, ev *amqp.Event) error {
	var txn core.Transaction
	if ev.Transaction != nil {
		txn = *ev.Transaction
	} else {
		stored, err := w.store.GetTransaction(ctx, ev.EntityID)
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted before we got to it; the delete event follows.
			slog.InfoContext(ctx, "Transaction gone before export", "transaction_id", ev.EntityID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get transaction from storage: %w", err)
		}
		txn = stored
	}

	if err := w.export(ctx, txn); err != nil {
		return fmt.Errorf("export transaction: %w", err)
	}
	return nil
}

func (w *ExportWorker) handleDeleted(ctx context.Context, ev *amqp.Event) error {
	if ev.Transaction == nil {
		slog.WarnContext(ctx, "Delete event without transaction payload, skipping ledger removal",
			"transaction_id", ev.EntityID)
		return nil
	}
	if err := w.ledger.Remove(ctx, *ev.Transaction); err != nil {
		slog.ErrorContext(ctx, "Failed to remove transaction from ledger",
			"transaction_id", ev.EntityID,
			"error", err)
		return fmt.Errorf("remove transaction: %w", err)
	}
	slog.InfoContext(ctx, "Removed transaction from ledger",
		"transaction_id", ev.EntityID,
		"user_id", ev.UserID)
	return nil
}

func (w *ExportWorker) export(ctx context.Context, txn core.Transaction) error {
	if txn.CategoryName == "" {
		if cat, err := w.store.GetCategory(ctx, txn.CategoryID); err == nil {
			txn.CategoryName = cat.Name
		}
	}

	ref, err := w.ledger.Export(ctx, txn)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Exported transaction",
		"transaction_id", txn.ID,
		"user_id", txn.UserID,
		"sheets_ref", ref,
		"kind", txn.Kind,
		"amount_cents", txn.Amount.Cents)
	return nil
}

// BackfillYear exports every stored transaction of year that the ledger
// does not hold yet. It recovers from lost messages or worker downtime.
func (w *ExportWorker) BackfillYear(ctx context.Context, year int) (int, error) {
	exported, err := w.ledger.ListExported(ctx, year)
	if err != nil {
		return 0, fmt.Errorf("list exported transactions: %w", err)
	}
	seen := make(map[string]struct{}, len(exported))
	for _, t := range exported {
		seen[t.ID] = struct{}{}
	}

	users, err := w.store.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	synced, failed := 0, 0
	for _, user := range users {
		txns, err := w.store.ListTransactions(ctx, user)
		if err != nil {
			return synced, fmt.Errorf("list transactions for %s: %w", user, err)
		}
		for _, t := range txns {
			if t.OccurredOn.Year() != year {
				continue
			}
			if _, ok := seen[t.ID]; ok {
				continue
			}
			if err := w.export(ctx, t); err != nil {
				slog.ErrorContext(ctx, "Failed to export transaction during backfill",
					"transaction_id", t.ID, "error", err)
				failed++
				continue
			}
			synced++
		}
	}

	slog.InfoContext(ctx, "Backfill completed",
		"year", year,
		"already_exported", len(exported),
		"synced", synced,
		"errors", failed)

	return synced, nil
}

package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter mirrors recorded transactions into an external
	// ledger. Export returns a reference to the written row.
	TransactionExporter interface {
		Export(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// Remove deletes the exported row. Removing a transaction that was
		// never exported is not an error.
		Remove(ctx context.Context, t core.Transaction) error
	}

	// TransactionLister reads exported transactions back for a year.
	TransactionLister interface {
		ListExported(ctx context.Context, year int) ([]core.Transaction, error)
	}

	Ledger interface {
		TransactionExporter
		TransactionLister
	}
)

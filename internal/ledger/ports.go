// Package ledger defines the ports the aggregation core consumes.
//
// Call sites must never assume a concrete store: the in-memory
// implementation backs tests and the default dev backend, the SQLite
// implementation backs persistence. Every call is scoped by owner id —
// one user's financial data is never visible to another.
package ledger

import (
	"context"
	"time"

	"finovate/internal/core"
)

// TransactionFilter narrows FindTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	DateFrom time.Time
	DateTo   time.Time
	Kind     core.Kind
	Category string
	// SourceInvoiceID selects the payment transaction(s) linked to an
	// invoice. The reconciler relies on this instead of description matching.
	SourceInvoiceID string
}

// InvoiceFilter narrows FindInvoices. Zero values mean "no filter".
type InvoiceFilter struct {
	Status   core.InvoiceStatus
	DateFrom time.Time
	DateTo   time.Time
}

type (
	// TransactionStore is the transaction side of the ledger accessor.
	TransactionStore interface {
		FindTransactions(ctx context.Context, ownerID string, f TransactionFilter) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, ownerID, id string) error
		// RecentTransactions returns the newest entries by creation time.
		RecentTransactions(ctx context.Context, ownerID string, limit int) ([]core.Transaction, error)
	}

	// InvoiceStore is the invoice side of the ledger accessor.
	InvoiceStore interface {
		FindInvoices(ctx context.Context, ownerID string, f InvoiceFilter) ([]core.Invoice, error)
		GetInvoice(ctx context.Context, ownerID, id string) (core.Invoice, error)
		CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error)
		UpdateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error)
		DeleteInvoice(ctx context.Context, ownerID, id string) error
		RecentInvoices(ctx context.Context, ownerID string, limit int) ([]core.Invoice, error)
		// LastInvoiceNumber returns the most recently created invoice number
		// for the owner, or "" when none exist. Used for number generation.
		LastInvoiceNumber(ctx context.Context, ownerID string) (string, error)
	}

	// GoalStore persists the per-owner monthly goal. Updates overwrite.
	GoalStore interface {
		GetGoal(ctx context.Context, ownerID string) (float64, error)
		SetGoal(ctx context.Context, ownerID string, goal float64) error
	}

	// Store is the full ledger accessor. Atomically runs the reconciler's
	// multi-write sequences: fn sees a Store whose writes all commit or all
	// roll back together.
	Store interface {
		TransactionStore
		InvoiceStore
		GoalStore
		Atomically(ctx context.Context, fn func(Store) error) error
	}
)

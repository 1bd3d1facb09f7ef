// Package storage implements the ledger store on SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finovate/internal/core"
	"finovate/internal/ledger"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width UTC so string comparison in SQL matches
// chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000"

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same query code
// serves plain calls and Atomically blocks.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

// Repository is the SQLite-backed ledger store.
type Repository struct {
	queries
	sqlDB *sql.DB
}

var _ ledger.Store = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{queries: queries{db: db}, sqlDB: db}, nil
}

func (r *Repository) Close() error {
	if r.sqlDB != nil {
		return r.sqlDB.Close()
	}
	return nil
}

// Atomically runs fn inside a database transaction.
func (r *Repository) Atomically(ctx context.Context, fn func(ledger.Store) error) error {
	tx, err := r.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&txStore{queries{db: tx}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore is the view of the store handed to an Atomically block. Nested
// Atomically calls join the surrounding transaction.
type txStore struct {
	queries
}

var _ ledger.Store = (*txStore)(nil)

func (t *txStore) Atomically(_ context.Context, fn func(ledger.Store) error) error {
	return fn(t)
}

const transactionColumns = `id, owner_id, kind, description, category, amount,
	occurred_at, source_invoice_id, created_at, updated_at`

func (q queries) FindTransactions(ctx context.Context, ownerID string, f ledger.TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = ?`
	args := []any{ownerID}
	if !f.DateFrom.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, fmtTime(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		query += ` AND occurred_at <= ?`
		args = append(args, fmtTime(f.DateTo))
	}
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(f.Kind))
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.SourceInvoiceID != "" {
		query += ` AND source_invoice_id = ?`
		args = append(args, f.SourceInvoiceID)
	}
	query += ` ORDER BY occurred_at DESC, created_at DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(ctx, rows)
}

func (q queries) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND owner_id = ?`,
		id, ownerID)
	tx, err := scanTransaction(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return tx, err
}

func (q queries) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.OwnerID, string(tx.Kind), tx.Description, tx.Category,
		tx.Amount.String(), fmtTime(tx.OccurredAt), tx.SourceInvoiceID,
		fmtTime(tx.CreatedAt), fmtTime(tx.UpdatedAt))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

func (q queries) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions
		 SET kind = ?, description = ?, category = ?, amount = ?,
		     occurred_at = ?, source_invoice_id = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		string(tx.Kind), tx.Description, tx.Category, tx.Amount.String(),
		fmtTime(tx.OccurredAt), tx.SourceInvoiceID, fmtTime(tx.UpdatedAt),
		tx.ID, tx.OwnerID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := mustAffect(res, "transaction "+tx.ID); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (q queries) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return mustAffect(res, "transaction "+id)
}

func (q queries) RecentTransactions(ctx context.Context, ownerID string, limit int) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE owner_id = ? ORDER BY created_at DESC LIMIT ?`,
		ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(ctx, rows)
}

const invoiceColumns = `id, owner_id, invoice_number, client_name, client_email,
	client_address, items, subtotal, tax_amount, total_amount, status,
	issue_date, due_date, paid_date, notes, bank_account_id, created_at, updated_at`

func (q queries) FindInvoices(ctx context.Context, ownerID string, f ledger.InvoiceFilter) ([]core.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE owner_id = ?`
	args := []any{ownerID}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if !f.DateFrom.IsZero() {
		query += ` AND issue_date >= ?`
		args = append(args, fmtTime(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		query += ` AND issue_date <= ?`
		args = append(args, fmtTime(f.DateTo))
	}
	query += ` ORDER BY issue_date DESC, created_at DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()
	return scanInvoices(ctx, rows)
}

func (q queries) GetInvoice(ctx context.Context, ownerID, id string) (core.Invoice, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ? AND owner_id = ?`,
		id, ownerID)
	inv, err := scanInvoice(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, core.ErrNotFound)
	}
	return inv, err
}

func (q queries) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	items, err := encodeItems(inv.Items)
	if err != nil {
		return core.Invoice{}, err
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO invoices (`+invoiceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.OwnerID, inv.InvoiceNumber, inv.ClientName, inv.ClientEmail,
		inv.ClientAddress, items, inv.Subtotal.String(), inv.TaxAmount.String(),
		inv.TotalAmount.String(), string(inv.Status), fmtTime(inv.IssueDate),
		fmtNullTime(inv.DueDate), fmtNullTime(inv.PaidDate), inv.Notes,
		inv.BankAccountID, fmtTime(inv.CreatedAt), fmtTime(inv.UpdatedAt))
	if err != nil {
		if isDuplicateNumber(err) {
			return core.Invoice{}, fmt.Errorf("invoice number %s: %w", inv.InvoiceNumber, core.ErrDuplicateInvoiceNumber)
		}
		return core.Invoice{}, fmt.Errorf("insert invoice: %w", err)
	}
	return inv, nil
}

func (q queries) UpdateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	items, err := encodeItems(inv.Items)
	if err != nil {
		return core.Invoice{}, err
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE invoices
		 SET invoice_number = ?, client_name = ?, client_email = ?,
		     client_address = ?, items = ?, subtotal = ?, tax_amount = ?,
		     total_amount = ?, status = ?, issue_date = ?, due_date = ?,
		     paid_date = ?, notes = ?, bank_account_id = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		inv.InvoiceNumber, inv.ClientName, inv.ClientEmail, inv.ClientAddress,
		items, inv.Subtotal.String(), inv.TaxAmount.String(),
		inv.TotalAmount.String(), string(inv.Status), fmtTime(inv.IssueDate),
		fmtNullTime(inv.DueDate), fmtNullTime(inv.PaidDate), inv.Notes,
		inv.BankAccountID, fmtTime(inv.UpdatedAt),
		inv.ID, inv.OwnerID)
	if err != nil {
		if isDuplicateNumber(err) {
			return core.Invoice{}, fmt.Errorf("invoice number %s: %w", inv.InvoiceNumber, core.ErrDuplicateInvoiceNumber)
		}
		return core.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}
	if err := mustAffect(res, "invoice "+inv.ID); err != nil {
		return core.Invoice{}, err
	}
	return inv, nil
}

func (q queries) DeleteInvoice(ctx context.Context, ownerID, id string) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM invoices WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return mustAffect(res, "invoice "+id)
}

func (q queries) RecentInvoices(ctx context.Context, ownerID string, limit int) ([]core.Invoice, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE owner_id = ? ORDER BY created_at DESC LIMIT ?`,
		ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent invoices: %w", err)
	}
	defer rows.Close()
	return scanInvoices(ctx, rows)
}

func (q queries) LastInvoiceNumber(ctx context.Context, ownerID string) (string, error) {
	var number string
	err := q.db.QueryRowContext(ctx,
		`SELECT invoice_number FROM invoices
		 WHERE owner_id = ? ORDER BY created_at DESC LIMIT 1`,
		ownerID).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last invoice number: %w", err)
	}
	return number, nil
}

func (q queries) GetGoal(ctx context.Context, ownerID string) (float64, error) {
	var goal float64
	err := q.db.QueryRowContext(ctx,
		`SELECT monthly_goal FROM goals WHERE owner_id = ?`, ownerID).Scan(&goal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query goal: %w", err)
	}
	return goal, nil
}

func (q queries) SetGoal(ctx context.Context, ownerID string, goal float64) error {
	if err := core.ValidateGoal(goal); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO goals (owner_id, monthly_goal, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET
		     monthly_goal = excluded.monthly_goal,
		     updated_at = excluded.updated_at`,
		ownerID, goal, fmtTime(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert goal: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(ctx context.Context, row rowScanner) (core.Transaction, error) {
	var (
		tx                               core.Transaction
		kind, amount                     string
		occurredAt, createdAt, updatedAt string
	)
	err := row.Scan(&tx.ID, &tx.OwnerID, &kind, &tx.Description, &tx.Category,
		&amount, &occurredAt, &tx.SourceInvoiceID, &createdAt, &updatedAt)
	if err != nil {
		return core.Transaction{}, err
	}

	// Stored rows are read leniently: a bad kind or amount is logged and
	// neutralized, never allowed to fail a whole listing.
	k, ok := core.NormalizeKindLenient(kind)
	if !ok {
		slog.WarnContext(ctx, "Unrecognized transaction kind in store",
			"transaction_id", tx.ID, "kind", kind)
	}
	tx.Kind = k
	tx.Amount = parseStoredAmount(ctx, "transaction", tx.ID, amount)

	if tx.OccurredAt, err = parseTime(occurredAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse occurred_at: %w", err)
	}
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at: %w", err)
	}
	if tx.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return tx, nil
}

func scanTransactions(ctx context.Context, rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(ctx, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanInvoice(ctx context.Context, row rowScanner) (core.Invoice, error) {
	var (
		inv                        core.Invoice
		items                      sql.NullString
		subtotal, taxAmount, total string
		status, issueDate          string
		dueDate, paidDate          sql.NullString
		createdAt, updatedAt       string
	)
	err := row.Scan(&inv.ID, &inv.OwnerID, &inv.InvoiceNumber, &inv.ClientName,
		&inv.ClientEmail, &inv.ClientAddress, &items, &subtotal, &taxAmount,
		&total, &status, &issueDate, &dueDate, &paidDate, &inv.Notes,
		&inv.BankAccountID, &createdAt, &updatedAt)
	if err != nil {
		return core.Invoice{}, err
	}

	inv.Status = core.InvoiceStatus(status)
	inv.Subtotal = parseStoredAmount(ctx, "invoice", inv.ID, subtotal)
	inv.TaxAmount = parseStoredAmount(ctx, "invoice", inv.ID, taxAmount)
	inv.TotalAmount = parseStoredAmount(ctx, "invoice", inv.ID, total)

	if items.Valid {
		if err := json.Unmarshal([]byte(items.String), &inv.Items); err != nil {
			return core.Invoice{}, fmt.Errorf("decode invoice items: %w", err)
		}
		if inv.Items == nil {
			inv.Items = []core.InvoiceItem{}
		}
	}

	if inv.IssueDate, err = parseTime(issueDate); err != nil {
		return core.Invoice{}, fmt.Errorf("parse issue_date: %w", err)
	}
	if inv.DueDate, err = parseNullTime(dueDate); err != nil {
		return core.Invoice{}, fmt.Errorf("parse due_date: %w", err)
	}
	if inv.PaidDate, err = parseNullTime(paidDate); err != nil {
		return core.Invoice{}, fmt.Errorf("parse paid_date: %w", err)
	}
	if inv.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Invoice{}, fmt.Errorf("parse created_at: %w", err)
	}
	if inv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Invoice{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return inv, nil
}

func scanInvoices(ctx context.Context, rows *sql.Rows) ([]core.Invoice, error) {
	var out []core.Invoice
	for rows.Next() {
		inv, err := scanInvoice(ctx, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func parseStoredAmount(ctx context.Context, entity, id, raw string) decimal.Decimal {
	d, ok := core.ParseAmountLenient(raw)
	if !ok {
		slog.WarnContext(ctx, "Malformed stored amount treated as zero",
			"entity", entity, "id", id, "amount", raw)
	}
	return d
}

func encodeItems(items []core.InvoiceItem) (sql.NullString, error) {
	if items == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode invoice items: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// isDuplicateNumber recognizes a violation of the per-owner unique index
// on invoice numbers. The driver exposes constraint failures only as
// message text.
func isDuplicateNumber(err error) bool {
	return err != nil && strings.Contains(err.Error(),
		"UNIQUE constraint failed: invoices.owner_id, invoices.invoice_number")
}

func mustAffect(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fmtNullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func parseNullTime(s sql.NullString) (time.Time, error) {
	if !s.Valid {
		return time.Time{}, nil
	}
	return parseTime(s.String)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finovate/internal/amqp"
	"finovate/internal/core"
	"finovate/internal/ledger"
)

// ErrReconciliation surfaces when the paid-status transition could not be
// applied atomically even after a retry. The ledger is left unchanged.
var ErrReconciliation = errors.New("payment reconciliation failed")

// InvoiceItemInput is one line of an itemized invoice request.
type InvoiceItemInput struct {
	Name     string
	Quantity string
	Rate     string
	Amount   string // optional, derived from quantity*rate when empty
}

// InvoiceInput carries the caller-supplied fields of an invoice. Exactly
// one of Items and Amount must be set.
type InvoiceInput struct {
	InvoiceNumber string
	ClientName    string
	ClientEmail   string
	ClientAddress string
	Items         []InvoiceItemInput
	Amount        string
	TaxAmount     string
	IssueDate     time.Time
	DueDate       time.Time
	Notes         string
	BankAccountID string
}

// InvoiceStats is the per-status rollup of an owner's invoices.
type InvoiceStats struct {
	Total     int
	Pending   int
	Paid      int
	Overdue   int
	Cancelled int
	// AmountOutstanding sums pending and overdue invoices, AmountPaid the
	// paid ones. Cancelled invoices count in neither.
	AmountOutstanding decimal.Decimal
	AmountPaid        decimal.Decimal
}

// InvoiceService orchestrates invoice writes and keeps the ledger
// consistent with invoice payment status: marking an invoice paid creates
// exactly one linked credit transaction, unmarking removes it.
type InvoiceService struct {
	store      ledger.Store
	amqpClient *amqp.Client
	now        func() time.Time
}

func NewInvoiceService(store ledger.Store, amqpClient *amqp.Client) *InvoiceService {
	return &InvoiceService{
		store:      store,
		amqpClient: amqpClient,
		now:        time.Now,
	}
}

func (s *InvoiceService) List(ctx context.Context, ownerID string, f ledger.InvoiceFilter) ([]core.Invoice, error) {
	return s.store.FindInvoices(ctx, ownerID, f)
}

func (s *InvoiceService) Get(ctx context.Context, ownerID, id string) (core.Invoice, error) {
	return s.store.GetInvoice(ctx, ownerID, id)
}

// Create validates and saves a new invoice in pending status. When the
// caller supplies no invoice number one is generated from the owner's last.
func (s *InvoiceService) Create(ctx context.Context, ownerID string, in InvoiceInput) (core.Invoice, error) {
	inv, err := s.build(ownerID, in)
	if err != nil {
		return core.Invoice{}, err
	}

	if inv.InvoiceNumber == "" {
		last, err := s.store.LastInvoiceNumber(ctx, ownerID)
		if err != nil {
			return core.Invoice{}, fmt.Errorf("last invoice number: %w", err)
		}
		inv.InvoiceNumber = nextInvoiceNumber(last)
	}

	saved, err := s.store.CreateInvoice(ctx, inv)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("save invoice: %w", err)
	}
	return saved, nil
}

// Update replaces the caller-editable fields of an existing invoice.
// Status and paid date are untouched; those move through MarkPaid and
// MarkUnpaid only.
func (s *InvoiceService) Update(ctx context.Context, ownerID, id string, in InvoiceInput) (core.Invoice, error) {
	existing, err := s.store.GetInvoice(ctx, ownerID, id)
	if err != nil {
		return core.Invoice{}, err
	}

	updated, err := s.build(ownerID, in)
	if err != nil {
		return core.Invoice{}, err
	}
	updated.ID = existing.ID
	updated.Status = existing.Status
	updated.PaidDate = existing.PaidDate
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()
	if updated.InvoiceNumber == "" {
		updated.InvoiceNumber = existing.InvoiceNumber
	}

	out, err := s.store.UpdateInvoice(ctx, updated)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}
	return out, nil
}

// Delete removes an invoice together with any payment transaction linked
// to it, so a deleted paid invoice does not leave income behind.
func (s *InvoiceService) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.Atomically(ctx, func(st ledger.Store) error {
		if err := s.deletePayments(ctx, st, ownerID, id); err != nil {
			return err
		}
		if err := st.DeleteInvoice(ctx, ownerID, id); err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		return nil
	})
}

// Duplicate copies an invoice into a fresh pending one with a new number.
func (s *InvoiceService) Duplicate(ctx context.Context, ownerID, id string) (core.Invoice, error) {
	src, err := s.store.GetInvoice(ctx, ownerID, id)
	if err != nil {
		return core.Invoice{}, err
	}

	last, err := s.store.LastInvoiceNumber(ctx, ownerID)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("last invoice number: %w", err)
	}

	now := s.now()
	dup := src
	dup.ID = uuid.NewString()
	dup.InvoiceNumber = nextInvoiceNumber(last)
	dup.Status = core.StatusPending
	dup.PaidDate = time.Time{}
	dup.IssueDate = now
	dup.CreatedAt = now
	dup.UpdatedAt = now

	saved, err := s.store.CreateInvoice(ctx, dup)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("save invoice: %w", err)
	}
	return saved, nil
}

// Stats rolls the owner's invoices up by status.
func (s *InvoiceService) Stats(ctx context.Context, ownerID string) (InvoiceStats, error) {
	invs, err := s.store.FindInvoices(ctx, ownerID, ledger.InvoiceFilter{})
	if err != nil {
		return InvoiceStats{}, fmt.Errorf("load invoices: %w", err)
	}

	var st InvoiceStats
	st.Total = len(invs)
	for _, inv := range invs {
		switch inv.Status {
		case core.StatusPending:
			st.Pending++
			st.AmountOutstanding = st.AmountOutstanding.Add(inv.TotalAmount)
		case core.StatusPaid:
			st.Paid++
			st.AmountPaid = st.AmountPaid.Add(inv.TotalAmount)
		case core.StatusOverdue:
			st.Overdue++
			st.AmountOutstanding = st.AmountOutstanding.Add(inv.TotalAmount)
		case core.StatusCancelled:
			st.Cancelled++
		}
	}
	return st, nil
}

// MarkPaid transitions an invoice to paid and records the matching income
// as a single credit transaction linked by SourceInvoiceID. Marking an
// already-paid invoice is a no-op: repeated calls never double income.
// Both writes happen atomically; on failure the transition is retried once
// before surfacing ErrReconciliation with the ledger unchanged.
func (s *InvoiceService) MarkPaid(ctx context.Context, ownerID, id string, paidDate time.Time) (core.Invoice, error) {
	if paidDate.IsZero() {
		paidDate = s.now()
	}

	var out core.Invoice
	apply := func(st ledger.Store) error {
		inv, err := st.GetInvoice(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if inv.Status == core.StatusPaid {
			out = inv
			return nil
		}

		inv.Status = core.StatusPaid
		inv.PaidDate = paidDate
		inv.UpdatedAt = s.now()
		inv, err = st.UpdateInvoice(ctx, inv)
		if err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		now := s.now()
		_, err = st.CreateTransaction(ctx, core.Transaction{
			ID:              uuid.NewString(),
			OwnerID:         ownerID,
			Kind:            core.KindCredit,
			Description:     core.PaymentDescription(inv.InvoiceNumber),
			Category:        core.PaymentCategory,
			Amount:          inv.TotalAmount,
			OccurredAt:      paidDate,
			SourceInvoiceID: inv.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return fmt.Errorf("record payment: %w", err)
		}
		out = inv
		return nil
	}

	if err := s.reconcile(ctx, "mark paid", id, apply); err != nil {
		return core.Invoice{}, err
	}
	s.publishInvoice(ctx, amqp.EventInvoicePaid, out)
	return out, nil
}

// MarkUnpaid reverts a paid invoice to pending and deletes the payment
// transaction(s) linked to it, restoring the pre-payment balance. Calling
// it on a never-paid invoice just returns it unchanged.
func (s *InvoiceService) MarkUnpaid(ctx context.Context, ownerID, id string) (core.Invoice, error) {
	var out core.Invoice
	apply := func(st ledger.Store) error {
		inv, err := st.GetInvoice(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if inv.Status != core.StatusPaid {
			out = inv
			return nil
		}

		if err := s.deletePayments(ctx, st, ownerID, inv.ID); err != nil {
			return err
		}

		inv.Status = core.StatusPending
		inv.PaidDate = time.Time{}
		inv.UpdatedAt = s.now()
		inv, err = st.UpdateInvoice(ctx, inv)
		if err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		out = inv
		return nil
	}

	if err := s.reconcile(ctx, "mark unpaid", id, apply); err != nil {
		return core.Invoice{}, err
	}
	s.publishInvoice(ctx, amqp.EventInvoiceUnpaid, out)
	return out, nil
}

func (s *InvoiceService) reconcile(ctx context.Context, op, id string, apply func(ledger.Store) error) error {
	err := s.store.Atomically(ctx, apply)
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrNotFound) {
		return err
	}

	slog.WarnContext(ctx, "Reconciliation attempt failed, retrying",
		"op", op, "invoice_id", id, "error", err)
	if err = s.store.Atomically(ctx, apply); err == nil {
		return nil
	}
	if errors.Is(err, core.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s invoice %s: %w: %w", op, id, ErrReconciliation, err)
}

func (s *InvoiceService) deletePayments(ctx context.Context, st ledger.Store, ownerID, invoiceID string) error {
	payments, err := st.FindTransactions(ctx, ownerID, ledger.TransactionFilter{SourceInvoiceID: invoiceID})
	if err != nil {
		return fmt.Errorf("find payment transactions: %w", err)
	}
	for _, p := range payments {
		if err := st.DeleteTransaction(ctx, ownerID, p.ID); err != nil {
			return fmt.Errorf("delete payment transaction: %w", err)
		}
	}
	return nil
}

func (s *InvoiceService) build(ownerID string, in InvoiceInput) (core.Invoice, error) {
	var errs core.FieldErrors

	now := s.now()
	inv := core.Invoice{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		InvoiceNumber: in.InvoiceNumber,
		ClientName:    in.ClientName,
		ClientEmail:   in.ClientEmail,
		ClientAddress: in.ClientAddress,
		Status:        core.StatusPending,
		IssueDate:     in.IssueDate,
		DueDate:       in.DueDate,
		Notes:         in.Notes,
		BankAccountID: in.BankAccountID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if inv.IssueDate.IsZero() {
		inv.IssueDate = now
	}

	if in.TaxAmount != "" {
		tax, err := decimal.NewFromString(in.TaxAmount)
		if err != nil || tax.IsNegative() {
			errs = errs.Add("taxAmount", core.ErrInvalidAmount)
		} else {
			inv.TaxAmount = tax
		}
	}

	switch {
	case len(in.Items) > 0 && in.Amount != "":
		errs = errs.Add("items", core.ErrInvoiceShape)
	case len(in.Items) > 0:
		inv.Items = make([]core.InvoiceItem, 0, len(in.Items))
		for i, it := range in.Items {
			item := core.InvoiceItem{Name: it.Name}
			qty, err := core.ParseAmount(it.Quantity)
			if err != nil {
				errs = errs.Add(fmt.Sprintf("items[%d].quantity", i), err)
			}
			rate, err := core.ParseAmount(it.Rate)
			if err != nil {
				errs = errs.Add(fmt.Sprintf("items[%d].rate", i), err)
			}
			item.Quantity = qty
			item.Rate = rate
			if it.Amount != "" {
				amt, err := core.ParseAmount(it.Amount)
				if err != nil {
					errs = errs.Add(fmt.Sprintf("items[%d].amount", i), err)
				}
				item.LineAmount = amt
			}
			inv.Items = append(inv.Items, item)
		}
	case in.Amount != "":
		amt, err := core.ParseAmount(in.Amount)
		if err != nil {
			errs = errs.Add("amount", err)
		}
		inv.TotalAmount = amt
	default:
		errs = errs.Add("amount", core.ErrInvoiceShape)
	}

	if err := errs.OrNil(); err != nil {
		return core.Invoice{}, err
	}

	inv.ComputeTotals()
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	return inv, nil
}

func (s *InvoiceService) publishInvoice(ctx context.Context, event string, inv core.Invoice) {
	if s.amqpClient == nil {
		return
	}
	e := amqp.NewLedgerEvent(event, inv.OwnerID, inv.ID, inv.TotalAmount.String())
	if err := s.amqpClient.PublishLedgerEvent(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", event, "invoice_id", inv.ID, "error", err)
	}
}

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// nextInvoiceNumber increments the numeric suffix of the previous number,
// keeping at least four digits: "" -> INV-0001, INV-0007 -> INV-0008.
// A previous number without digits restarts the sequence.
func nextInvoiceNumber(last string) string {
	m := trailingDigits.FindString(last)
	if m == "" {
		return "INV-0001"
	}
	var n int
	fmt.Sscanf(m, "%d", &n)
	width := len(m)
	if width < 4 {
		width = 4
	}
	return fmt.Sprintf("INV-%0*d", width, n+1)
}

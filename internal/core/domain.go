package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindCredit Kind = "CREDIT"
	KindDebit  Kind = "DEBIT"
)

const (
	StatusPending   InvoiceStatus = "PENDING"
	StatusPaid      InvoiceStatus = "PAID"
	StatusOverdue   InvoiceStatus = "OVERDUE"
	StatusCancelled InvoiceStatus = "CANCELLED"
)

// UncategorizedLabel is the reporting bucket for transactions without a category.
const UncategorizedLabel = "Uncategorized"

const (
	// PaymentCategory tags the credit transaction the reconciler creates for a paid invoice.
	PaymentCategory = "Invoice Payment"

	// MaxMonthlyGoal is the uniform ceiling for monthly goal values.
	MaxMonthlyGoal = 10_000_000
)

type (
	// Kind is the canonical two-value money direction. The sign of a
	// transaction is carried here, never by the amount.
	Kind string

	InvoiceStatus string

	// Transaction is a single ledger entry. Amount is always strictly positive.
	Transaction struct {
		ID          string
		OwnerID     string
		Kind        Kind
		Description string
		Category    string // empty means uncategorized
		Amount      decimal.Decimal
		OccurredAt  time.Time
		// SourceInvoiceID links a payment transaction to the invoice that
		// produced it. Empty for ordinary transactions.
		SourceInvoiceID string
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	// InvoiceItem is one line of an itemized invoice.
	InvoiceItem struct {
		Name       string
		Quantity   decimal.Decimal
		Rate       decimal.Decimal
		LineAmount decimal.Decimal
	}

	// Invoice carries either an item list or a bare amount, never both.
	// Items == nil means the simplified single-amount shape.
	Invoice struct {
		ID            string
		OwnerID       string
		InvoiceNumber string
		ClientName    string
		ClientEmail   string
		ClientAddress string
		Items         []InvoiceItem
		Subtotal      decimal.Decimal
		TaxAmount     decimal.Decimal
		TotalAmount   decimal.Decimal
		Status        InvoiceStatus
		IssueDate     time.Time
		DueDate       time.Time // zero when unset
		PaidDate      time.Time // non-zero iff Status == StatusPaid
		Notes         string
		BankAccountID string
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

var (
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidAmount    = errors.New("amount must be a positive decimal")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyClientName  = errors.New("empty client name")
	ErrInvalidStatus    = errors.New("invalid invoice status")
	ErrInvoiceShape     = errors.New("either items or amount must be provided")
	// ErrDuplicateInvoiceNumber: invoice numbers are unique per owner.
	ErrDuplicateInvoiceNumber = errors.New("invoice number already in use")
	ErrInvalidGoal      = errors.New("goal must be a finite number between 0 and 10,000,000")
	ErrNotFound         = errors.New("not found")
)

// NormalizeKind maps raw transaction-type tokens to the canonical enum.
// It accepts the canonical uppercase tokens and the legacy lowercase
// spellings written before the naming convention changed. Anything else
// fails with ErrInvalidKind; writes must reject it, reads must log and
// skip instead (see NormalizeKindLenient).
func NormalizeKind(raw string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CREDIT", "INCOME":
		return KindCredit, nil
	case "DEBIT", "EXPENSE":
		return KindDebit, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
}

// NormalizeKindLenient is the read-boundary variant: historical rows must
// never fail a report. The boolean reports whether the token was recognized.
func NormalizeKindLenient(raw string) (Kind, bool) {
	k, err := NormalizeKind(raw)
	return k, err == nil
}

func (k Kind) Valid() bool {
	return k == KindCredit || k == KindDebit
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

func (t Transaction) Validate() error {
	var fields FieldErrors
	if !t.Kind.Valid() {
		fields = fields.Add("kind", ErrInvalidKind)
	}
	if strings.TrimSpace(t.Description) == "" {
		fields = fields.Add("description", ErrEmptyDescription)
	}
	if len(t.Description) > 500 {
		fields = fields.Add("description", errors.New("description too long (max 500 characters)"))
	}
	if !t.Amount.IsPositive() {
		fields = fields.Add("amount", ErrInvalidAmount)
	}
	if t.OccurredAt.IsZero() {
		fields = fields.Add("occurredAt", errors.New("date cannot be zero"))
	}
	return fields.OrNil()
}

// Itemized reports whether the invoice uses the line-item shape.
func (inv Invoice) Itemized() bool {
	return inv.Items != nil
}

func (inv Invoice) Validate() error {
	var fields FieldErrors
	if strings.TrimSpace(inv.ClientName) == "" {
		fields = fields.Add("clientName", ErrEmptyClientName)
	}
	if !inv.Status.Valid() {
		fields = fields.Add("status", ErrInvalidStatus)
	}
	if inv.Itemized() {
		if len(inv.Items) == 0 {
			fields = fields.Add("items", ErrInvoiceShape)
		}
		for i, it := range inv.Items {
			if strings.TrimSpace(it.Name) == "" {
				fields = fields.Add(fmt.Sprintf("items[%d].name", i), errors.New("empty item name"))
			}
			if !it.Quantity.IsPositive() {
				fields = fields.Add(fmt.Sprintf("items[%d].quantity", i), errors.New("quantity must be positive"))
			}
			if !it.Rate.IsPositive() {
				fields = fields.Add(fmt.Sprintf("items[%d].rate", i), errors.New("rate must be positive"))
			}
		}
	} else if !inv.TotalAmount.IsPositive() {
		fields = fields.Add("amount", ErrInvoiceShape)
	}
	if inv.IssueDate.IsZero() {
		fields = fields.Add("issueDate", errors.New("issue date cannot be zero"))
	}
	if inv.Status == StatusPaid && inv.PaidDate.IsZero() {
		fields = fields.Add("paidDate", errors.New("paid invoice requires a paid date"))
	}
	if inv.Status != StatusPaid && !inv.PaidDate.IsZero() {
		fields = fields.Add("paidDate", errors.New("paid date only valid for paid invoices"))
	}
	return fields.OrNil()
}

// ComputeTotals derives line amounts, subtotal and totalAmount in place.
// Line amounts default to quantity*rate when not supplied. Totals are
// always derived, never trusted from input.
func (inv *Invoice) ComputeTotals() {
	if inv.Itemized() {
		subtotal := decimal.Zero
		for i := range inv.Items {
			if inv.Items[i].LineAmount.IsZero() {
				inv.Items[i].LineAmount = inv.Items[i].Quantity.Mul(inv.Items[i].Rate)
			}
			subtotal = subtotal.Add(inv.Items[i].LineAmount)
		}
		inv.Subtotal = subtotal
		inv.TotalAmount = subtotal.Add(inv.TaxAmount)
		return
	}
	// simple invoice: TotalAmount arrives holding the bare amount
	inv.Subtotal = inv.TotalAmount
	if !inv.TaxAmount.IsZero() {
		inv.TotalAmount = inv.Subtotal.Add(inv.TaxAmount)
	}
}

// PaymentDescription is the display convention for reconciler-created
// transactions. Reconciliation matches on SourceInvoiceID, not on this text.
func PaymentDescription(invoiceNumber string) string {
	return "Payment received for invoice " + invoiceNumber
}

// ValidateGoal checks a monthly goal value against the uniform bounds.
func ValidateGoal(goal float64) error {
	if goal != goal || goal < 0 || goal > MaxMonthlyGoal {
		return ErrInvalidGoal
	}
	return nil
}

package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"CREDIT", KindCredit, true},
		{"DEBIT", KindDebit, true},
		{"credit", KindCredit, true}, // legacy lowercase
		{"debit", KindDebit, true},
		{"income", KindCredit, true},
		{"expense", KindDebit, true},
		{" Credit ", KindCredit, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeKind(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
		} else {
			if !errors.Is(err, ErrInvalidKind) {
				t.Fatalf("%q expected ErrInvalidKind, got %v", tc.in, err)
			}
		}
	}
}

func TestNormalizeKindFixedPoint(t *testing.T) {
	// Canonical tokens are fixed points; legacy synonyms land on the same value.
	for _, k := range []Kind{KindCredit, KindDebit} {
		got, err := NormalizeKind(string(k))
		if err != nil || got != k {
			t.Fatalf("expected %s to normalize to itself, got %s (err=%v)", k, got, err)
		}
	}
	legacy, _ := NormalizeKind("credit")
	canonical, _ := NormalizeKind("CREDIT")
	if legacy != canonical {
		t.Fatalf("legacy and canonical spellings diverge: %s vs %s", legacy, canonical)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Kind:        KindDebit,
		Description: "groceries",
		Amount:      decimal.NewFromInt(42),
		OccurredAt:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Kind: "transfer", Description: "a", Amount: decimal.NewFromInt(1), OccurredAt: good.OccurredAt},
		{Kind: KindDebit, Description: "", Amount: decimal.NewFromInt(1), OccurredAt: good.OccurredAt},
		{Kind: KindDebit, Description: "a", Amount: decimal.Zero, OccurredAt: good.OccurredAt},
		{Kind: KindDebit, Description: "a", Amount: decimal.NewFromInt(-1), OccurredAt: good.OccurredAt},
		{Kind: KindDebit, Description: "a", Amount: decimal.NewFromInt(1)},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestInvoiceComputeTotals(t *testing.T) {
	t.Run("itemized", func(t *testing.T) {
		inv := Invoice{
			Items: []InvoiceItem{
				{Name: "design", Quantity: decimal.NewFromInt(10), Rate: decimal.NewFromInt(100)},
				{Name: "hosting", Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(50), LineAmount: decimal.NewFromInt(60)},
			},
			TaxAmount: decimal.NewFromInt(40),
		}
		inv.ComputeTotals()
		if !inv.Items[0].LineAmount.Equal(decimal.NewFromInt(1000)) {
			t.Fatalf("line amount should default to quantity*rate, got %s", inv.Items[0].LineAmount)
		}
		if !inv.Items[1].LineAmount.Equal(decimal.NewFromInt(60)) {
			t.Fatalf("supplied line amount should be kept, got %s", inv.Items[1].LineAmount)
		}
		if !inv.Subtotal.Equal(decimal.NewFromInt(1060)) {
			t.Fatalf("subtotal expected 1060, got %s", inv.Subtotal)
		}
		if !inv.TotalAmount.Equal(decimal.NewFromInt(1100)) {
			t.Fatalf("total expected 1100, got %s", inv.TotalAmount)
		}
	})

	t.Run("simple", func(t *testing.T) {
		inv := Invoice{TotalAmount: decimal.NewFromInt(500)}
		inv.ComputeTotals()
		if !inv.Subtotal.Equal(decimal.NewFromInt(500)) || !inv.TotalAmount.Equal(decimal.NewFromInt(500)) {
			t.Fatalf("simple invoice totals wrong: subtotal=%s total=%s", inv.Subtotal, inv.TotalAmount)
		}
	})
}

func TestInvoiceValidate(t *testing.T) {
	issue := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	good := Invoice{
		ClientName:  "Acme",
		Status:      StatusPending,
		TotalAmount: decimal.NewFromInt(100),
		IssueDate:   issue,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	paid := good
	paid.Status = StatusPaid
	if err := paid.Validate(); err == nil {
		t.Fatalf("paid invoice without paid date should fail")
	}
	paid.PaidDate = issue
	if err := paid.Validate(); err != nil {
		t.Fatalf("paid invoice with paid date should pass, got %v", err)
	}

	pendingWithPaidDate := good
	pendingWithPaidDate.PaidDate = issue
	if err := pendingWithPaidDate.Validate(); err == nil {
		t.Fatalf("pending invoice with paid date should fail")
	}

	shapeless := Invoice{ClientName: "Acme", Status: StatusPending, IssueDate: issue}
	if err := shapeless.Validate(); err == nil {
		t.Fatalf("invoice with neither items nor amount should fail")
	}
}

func TestValidateGoal(t *testing.T) {
	cases := []struct {
		goal float64
		ok   bool
	}{
		{0, true},
		{5000, true},
		{MaxMonthlyGoal, true},
		{-1, false},
		{MaxMonthlyGoal + 1, false},
	}
	for _, tc := range cases {
		err := ValidateGoal(tc.goal)
		if tc.ok && err != nil {
			t.Fatalf("goal %v expected ok, got %v", tc.goal, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidGoal) {
			t.Fatalf("goal %v expected ErrInvalidGoal, got %v", tc.goal, err)
		}
	}
}

package reports

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finovate/internal/core"
	"finovate/internal/period"
)

func tx(kind core.Kind, amount int64, date string, category string) core.Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return core.Transaction{
		ID:          date + "/" + string(kind),
		Kind:        kind,
		Description: "test",
		Category:    category,
		Amount:      decimal.NewFromInt(amount),
		OccurredAt:  d,
	}
}

func TestTotalBalance(t *testing.T) {
	txs := []core.Transaction{
		tx(core.KindCredit, 5000, "2024-01-15", ""),
		tx(core.KindDebit, 150, "2024-01-16", ""),
		tx(core.KindDebit, 60, "2024-02-01", ""),
	}
	if got := TotalBalance(txs); !got.Equal(decimal.NewFromInt(4790)) {
		t.Fatalf("expected 4790, got %s", got)
	}
}

func TestTotalBalanceOrderIndependent(t *testing.T) {
	txs := []core.Transaction{
		tx(core.KindCredit, 100, "2024-01-01", ""),
		tx(core.KindDebit, 30, "2024-01-02", ""),
		tx(core.KindCredit, 7, "2024-02-01", ""),
		tx(core.KindDebit, 12, "2024-03-05", ""),
	}
	want := TotalBalance(txs)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := append([]core.Transaction(nil), txs...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := TotalBalance(shuffled); !got.Equal(want) {
			t.Fatalf("shuffle %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestTotalBalanceSkipsUnrecognizedKind(t *testing.T) {
	txs := []core.Transaction{
		tx(core.KindCredit, 100, "2024-01-01", ""),
		tx(core.Kind("TRANSFER"), 999, "2024-01-02", ""),
	}
	if got := TotalBalance(txs); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unrecognized kind should be skipped, got %s", got)
	}
}

func TestTotalBalanceLegacyLowercase(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Kind("credit"), 50, "2024-01-01", ""),
		tx(core.Kind("debit"), 20, "2024-01-02", ""),
	}
	if got := TotalBalance(txs); !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("legacy spellings must aggregate, got %s", got)
	}
}

func TestIncomeExpenseSeries(t *testing.T) {
	txs := []core.Transaction{
		tx(core.KindCredit, 5000, "2024-01-15", ""),
		tx(core.KindDebit, 150, "2024-01-16", ""),
		tx(core.KindDebit, 60, "2024-02-01", ""),
	}
	w := period.Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	got := IncomeExpenseSeries(txs, w)
	if len(got) != 2 {
		t.Fatalf("expected 2 months, got %d", len(got))
	}
	if got[0].Month != "2024-01" || !got[0].Income.Equal(decimal.NewFromInt(5000)) || !got[0].Expenses.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("2024-01 wrong: %+v", got[0])
	}
	if got[1].Month != "2024-02" || !got[1].Income.IsZero() || !got[1].Expenses.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("2024-02 wrong: %+v", got[1])
	}
}

func TestProfitSeriesGapFilling(t *testing.T) {
	// only month 3 of a 6-month window has transactions
	txs := []core.Transaction{
		tx(core.KindCredit, 900, "2024-03-10", ""),
		tx(core.KindDebit, 400, "2024-03-20", ""),
	}
	w := period.Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	got := ProfitSeries(txs, w)
	if len(got) != 6 {
		t.Fatalf("expected exactly 6 entries, got %d", len(got))
	}
	for i, p := range got {
		if p.Month == "2024-03" {
			if !p.Income.Equal(decimal.NewFromInt(900)) || !p.Expenses.Equal(decimal.NewFromInt(400)) || !p.Profit.Equal(decimal.NewFromInt(500)) {
				t.Fatalf("2024-03 wrong: %+v", p)
			}
			continue
		}
		if !p.Income.IsZero() || !p.Expenses.IsZero() || !p.Profit.IsZero() {
			t.Fatalf("entry %d (%s) should be zero-valued: %+v", i, p.Month, p)
		}
	}
	if got[0].Month != "2024-01" || got[5].Month != "2024-06" {
		t.Fatalf("series should span 2024-01..2024-06, got %s..%s", got[0].Month, got[5].Month)
	}
}

func TestCategoryExpenses(t *testing.T) {
	txs := []core.Transaction{
		tx(core.KindDebit, 300, "2024-05-01", "Rent"),
		tx(core.KindDebit, 100, "2024-05-02", "Food"),
		tx(core.KindDebit, 50, "2024-05-03", "Food"),
		tx(core.KindDebit, 50, "2024-05-04", ""),
		tx(core.KindCredit, 1000, "2024-05-05", "Salary"), // credits excluded
	}
	w := period.Window{
		Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	got := CategoryExpenses(txs, w)
	if len(got) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(got))
	}
	if got[0].Category != "Rent" || !got[0].Amount.Equal(decimal.NewFromInt(300)) || got[0].Count != 1 || got[0].Percentage != 60 {
		t.Fatalf("Rent group wrong: %+v", got[0])
	}
	if got[1].Category != "Food" || got[1].Count != 2 || got[1].Percentage != 30 {
		t.Fatalf("Food group wrong: %+v", got[1])
	}
	if got[2].Category != core.UncategorizedLabel || got[2].Percentage != 10 {
		t.Fatalf("missing category should bucket as %s: %+v", core.UncategorizedLabel, got[2])
	}
}

func TestCategoryExpensesIdempotent(t *testing.T) {
	txs := []core.Transaction{
		tx(core.KindDebit, 70, "2024-05-01", "A"),
		tx(core.KindDebit, 30, "2024-05-02", "B"),
	}
	w := period.Window{
		Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	first := CategoryExpenses(txs, w)
	second := CategoryExpenses(txs, w)
	if len(first) != len(second) {
		t.Fatalf("repeated runs diverge in length")
	}
	for i := range first {
		if first[i] != second[i] {
			// decimal.Decimal is comparable only via Equal
			if first[i].Category != second[i].Category || !first[i].Amount.Equal(second[i].Amount) ||
				first[i].Count != second[i].Count || first[i].Percentage != second[i].Percentage {
				t.Fatalf("repeated runs diverge at %d: %+v vs %+v", i, first[i], second[i])
			}
		}
	}
}

func TestCategoryExpensesTieOrder(t *testing.T) {
	// equal amounts keep first-seen order
	txs := []core.Transaction{
		tx(core.KindDebit, 50, "2024-05-01", "First"),
		tx(core.KindDebit, 50, "2024-05-02", "Second"),
	}
	w := period.Window{
		Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	got := CategoryExpenses(txs, w)
	if got[0].Category != "First" || got[1].Category != "Second" {
		t.Fatalf("tie should keep insertion order, got %s then %s", got[0].Category, got[1].Category)
	}
}

func TestTotalInvoiceAmountAllStatuses(t *testing.T) {
	invoices := []core.Invoice{
		{TotalAmount: decimal.NewFromInt(100), Status: core.StatusPending},
		{TotalAmount: decimal.NewFromInt(200), Status: core.StatusPaid},
		{TotalAmount: decimal.NewFromInt(50), Status: core.StatusCancelled},
	}
	if got := TotalInvoiceAmount(invoices); !got.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("all invoices count regardless of status, got %s", got)
	}
}

func TestGoalProgress(t *testing.T) {
	if _, ok := GoalProgress(decimal.NewFromInt(500), 0); ok {
		t.Fatalf("zero goal must yield no ratio")
	}
	raw, ok := GoalProgress(decimal.NewFromInt(1500), 1000)
	if !ok || raw != 1.5 {
		t.Fatalf("expected raw 1.5, got %v (ok=%v)", raw, ok)
	}
	if got := ClampProgress(raw); got != 1 {
		t.Fatalf("display ratio should clamp to 1, got %v", got)
	}
	if got := ClampProgress(0.25); got != 0.25 {
		t.Fatalf("in-range ratio should pass through, got %v", got)
	}
}

func TestMonthlyTotals(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		tx(core.KindCredit, 800, "2024-06-05", ""),
		tx(core.KindDebit, 300, "2024-06-10", ""),
		tx(core.KindCredit, 999, "2024-05-30", ""), // previous month
	}
	income, expenses := MonthlyTotals(txs, period.CurrentMonth(now))
	if !income.Equal(decimal.NewFromInt(800)) || !expenses.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected 800/300, got %s/%s", income, expenses)
	}
}

// Package reports implements dashboard aggregation: balances, monthly
// income/expense/profit series and category breakdowns derived from the
// raw transaction/invoice ledger.
//
// Every function in this file is pure given a snapshot of records.
// Aggregation is best-effort by design: a malformed row degrades to zero
// or is skipped with a warning log, it never fails the report.
package reports

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finovate/internal/core"
	"finovate/internal/period"
)

type (
	// MonthlyPoint is one month of an income/expense series.
	MonthlyPoint struct {
		Month    string // YYYY-MM
		Income   decimal.Decimal
		Expenses decimal.Decimal
	}

	// ProfitPoint extends MonthlyPoint with the derived profit figure.
	ProfitPoint struct {
		Month    string
		Income   decimal.Decimal
		Expenses decimal.Decimal
		Profit   decimal.Decimal
	}

	// CategoryExpense is one bucket of a category breakdown.
	CategoryExpense struct {
		Category   string
		Amount     decimal.Decimal
		Count      int
		Percentage int
	}
)

// splitKind canonicalizes a record's kind at the read boundary. Historical
// rows with unrecognized spellings are skipped from type-split aggregates,
// never an error.
func splitKind(tx core.Transaction) (core.Kind, bool) {
	k, ok := core.NormalizeKindLenient(string(tx.Kind))
	if !ok {
		slog.Warn("Skipping transaction with unrecognized kind",
			"transaction_id", tx.ID, "kind", string(tx.Kind))
	}
	return k, ok
}

// TotalBalance is Σ credits − Σ debits over all transactions for the
// owner, unbounded by period. Order-independent.
func TotalBalance(txs []core.Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range txs {
		kind, ok := splitKind(tx)
		if !ok {
			continue
		}
		if kind == core.KindCredit {
			balance = balance.Add(tx.Amount)
		} else {
			balance = balance.Sub(tx.Amount)
		}
	}
	return balance
}

// MonthlyTotals returns the credit and debit sums for transactions inside
// the window (normally the current calendar month).
func MonthlyTotals(txs []core.Transaction, w period.Window) (income, expenses decimal.Decimal) {
	income, expenses = decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if !w.Contains(tx.OccurredAt) {
			continue
		}
		kind, ok := splitKind(tx)
		if !ok {
			continue
		}
		if kind == core.KindCredit {
			income = income.Add(tx.Amount)
		} else {
			expenses = expenses.Add(tx.Amount)
		}
	}
	return income, expenses
}

// TotalInvoiceAmount sums totalAmount over ALL invoices regardless of
// status. This is the one policy applied everywhere; the paid-only
// variant was deliberately not adopted.
func TotalInvoiceAmount(invoices []core.Invoice) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.TotalAmount)
	}
	return total
}

// CategoryExpenses groups debit transactions inside the window by
// category and computes each group's share of the total. Percentages use
// ordinary rounding and are computed independently, so they are not
// guaranteed to sum to exactly 100 — that slack is accepted, not
// corrected. Sorted descending by amount; ties keep first-seen order.
func CategoryExpenses(txs []core.Transaction, w period.Window) []CategoryExpense {
	type group struct {
		amount decimal.Decimal
		count  int
	}
	groups := make(map[string]*group)
	var order []string

	for _, tx := range txs {
		kind, ok := splitKind(tx)
		if !ok || kind != core.KindDebit {
			continue
		}
		if !w.Contains(tx.OccurredAt) {
			continue
		}
		category := tx.Category
		if category == "" {
			category = core.UncategorizedLabel
		}
		g, exists := groups[category]
		if !exists {
			g = &group{amount: decimal.Zero}
			groups[category] = g
			order = append(order, category)
		}
		g.amount = g.amount.Add(tx.Amount)
		g.count++
	}

	total := decimal.Zero
	for _, g := range groups {
		total = total.Add(g.amount)
	}

	out := make([]CategoryExpense, 0, len(order))
	for _, category := range order {
		g := groups[category]
		pct := 0
		if total.IsPositive() {
			pct = int(g.amount.Mul(decimal.NewFromInt(100)).Div(total).Round(0).IntPart())
		}
		out = append(out, CategoryExpense{
			Category:   category,
			Amount:     g.amount,
			Count:      g.count,
			Percentage: pct,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

// monthKey derives the calendar-month bucket from a transaction date.
func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// IncomeExpenseSeries groups transactions inside the window by calendar
// month, emitting one entry per month that has at least one transaction,
// sorted ascending by month.
func IncomeExpenseSeries(txs []core.Transaction, w period.Window) []MonthlyPoint {
	months := make(map[string]*MonthlyPoint)
	for _, tx := range txs {
		if !w.Contains(tx.OccurredAt) {
			continue
		}
		kind, ok := splitKind(tx)
		if !ok {
			continue
		}
		key := monthKey(tx.OccurredAt)
		p, exists := months[key]
		if !exists {
			p = &MonthlyPoint{Month: key, Income: decimal.Zero, Expenses: decimal.Zero}
			months[key] = p
		}
		if kind == core.KindCredit {
			p.Income = p.Income.Add(tx.Amount)
		} else {
			p.Expenses = p.Expenses.Add(tx.Amount)
		}
	}

	out := make([]MonthlyPoint, 0, len(months))
	for _, p := range months {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// ProfitSeries is the stricter gap-filled variant used for chart x-axes:
// every month from the window's start to its end inclusive gets an entry,
// zero-valued when no transactions exist.
func ProfitSeries(txs []core.Transaction, w period.Window) []ProfitPoint {
	byMonth := make(map[string]MonthlyPoint)
	for _, p := range IncomeExpenseSeries(txs, w) {
		byMonth[p.Month] = p
	}

	var out []ProfitPoint
	for cur := period.StartOfMonth(w.Start); !cur.After(w.End); cur = cur.AddDate(0, 1, 0) {
		key := monthKey(cur)
		point := ProfitPoint{
			Month:    key,
			Income:   decimal.Zero,
			Expenses: decimal.Zero,
			Profit:   decimal.Zero,
		}
		if p, ok := byMonth[key]; ok {
			point.Income = p.Income
			point.Expenses = p.Expenses
			point.Profit = p.Income.Sub(p.Expenses)
		}
		out = append(out, point)
	}
	return out
}

// GoalProgress is monthlyIncome/goal. The raw ratio is reported untouched
// for analytics; Clamped caps it to [0, 1] for display. A zero goal yields
// ok=false — no ratio, not a division by zero.
func GoalProgress(monthlyIncome decimal.Decimal, goal float64) (raw float64, ok bool) {
	if goal <= 0 {
		return 0, false
	}
	return monthlyIncome.InexactFloat64() / goal, true
}

// ClampProgress bounds a raw progress ratio to [0, 1] for display.
func ClampProgress(raw float64) float64 {
	if raw < 0 {
		return 0
	}
	if raw > 1 {
		return 1
	}
	return raw
}

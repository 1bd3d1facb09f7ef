package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finovate/internal/core"
	"finovate/internal/ledger"
	"finovate/internal/period"
)

const recentLimit = 5

// Summary is the aggregated dashboard payload: a pure function of the
// owner's ledger plus the current instant. Report requests are
// all-or-nothing — a partial dashboard is worse than a failed one.
type Summary struct {
	TotalBalance       decimal.Decimal
	TotalInvoiceAmount decimal.Decimal
	MonthlyIncome      decimal.Decimal
	MonthlyExpenses    decimal.Decimal
	MonthlyProfit      decimal.Decimal
	MonthlyGoal        float64
	GoalProgress       float64
	GoalProgressSet    bool
	CategoryExpenses   []CategoryExpense
	IncomeExpenseData  []MonthlyPoint
	RecentTransactions []core.Transaction
	RecentInvoices     []core.Invoice
}

// Service runs report queries against the ledger. Aggregation itself is
// synchronous and in-memory; the store calls are the only suspension
// points, and the independent summary sub-fetches run concurrently.
type Service struct {
	store ledger.Store
	now   func() time.Time
}

func NewService(store ledger.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Summary assembles the full dashboard for one owner.
func (s *Service) Summary(ctx context.Context, ownerID string) (Summary, error) {
	now := s.now()

	var (
		transactions []core.Transaction
		invoices     []core.Invoice
		recentTxs    []core.Transaction
		recentInvs   []core.Invoice
		goal         float64
	)

	// Independent read-only sub-fetches; concurrency is an optimization,
	// not a correctness requirement.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		transactions, err = s.store.FindTransactions(gctx, ownerID, ledger.TransactionFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		invoices, err = s.store.FindInvoices(gctx, ownerID, ledger.InvoiceFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		recentTxs, err = s.store.RecentTransactions(gctx, ownerID, recentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		recentInvs, err = s.store.RecentInvoices(gctx, ownerID, recentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		goal, err = s.store.GetGoal(gctx, ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("fetch dashboard data: %w", err)
	}

	month := period.CurrentMonth(now)
	income, expenses := MonthlyTotals(transactions, month)

	yearToDate := period.Window{Start: period.StartOfMonth(now.AddDate(0, -int(now.Month())+1, 0)), End: now}

	summary := Summary{
		TotalBalance:       TotalBalance(transactions),
		TotalInvoiceAmount: TotalInvoiceAmount(invoices),
		MonthlyIncome:      income,
		MonthlyExpenses:    expenses,
		MonthlyProfit:      income.Sub(expenses),
		MonthlyGoal:        goal,
		CategoryExpenses:   CategoryExpenses(transactions, month),
		IncomeExpenseData:  IncomeExpenseSeries(transactions, yearToDate),
		RecentTransactions: recentTxs,
		RecentInvoices:     recentInvs,
	}
	if raw, ok := GoalProgress(income, goal); ok {
		summary.GoalProgress = raw
		summary.GoalProgressSet = true
	}
	return summary, nil
}

// IncomeExpense returns the per-month income/expense series for a
// trailing-months period spec (default 12, clamped to [1, 60]).
func (s *Service) IncomeExpense(ctx context.Context, ownerID, periodSpec string) ([]MonthlyPoint, error) {
	w := period.ForSeries(periodSpec, s.now())
	txs, err := s.store.FindTransactions(ctx, ownerID, ledger.TransactionFilter{DateFrom: w.Start})
	if err != nil {
		return nil, fmt.Errorf("fetch transactions for income/expense series: %w", err)
	}
	return IncomeExpenseSeries(txs, w), nil
}

// CategoryBreakdown returns the debit-by-category breakdown for a days or
// named-bucket period spec (default 30 days, clamped to [1, 365]).
func (s *Service) CategoryBreakdown(ctx context.Context, ownerID, periodSpec string) ([]CategoryExpense, error) {
	w := period.ForCategories(periodSpec, s.now())
	txs, err := s.store.FindTransactions(ctx, ownerID, ledger.TransactionFilter{DateFrom: w.Start})
	if err != nil {
		return nil, fmt.Errorf("fetch transactions for category breakdown: %w", err)
	}
	return CategoryExpenses(txs, w), nil
}

// YearlyProfit returns the gap-filled profit series for a trailing-months
// spec (default 12, clamped to [1, 24]). Every month in the range gets an
// entry, zero-valued when empty.
func (s *Service) YearlyProfit(ctx context.Context, ownerID, monthsSpec string) ([]ProfitPoint, error) {
	w := period.ForProfit(monthsSpec, s.now())
	txs, err := s.store.FindTransactions(ctx, ownerID, ledger.TransactionFilter{DateFrom: w.Start})
	if err != nil {
		return nil, fmt.Errorf("fetch transactions for profit series: %w", err)
	}
	return ProfitSeries(txs, w), nil
}

// Goal returns the owner's monthly goal, zero when unset.
func (s *Service) Goal(ctx context.Context, ownerID string) (float64, error) {
	goal, err := s.store.GetGoal(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("get goal: %w", err)
	}
	return goal, nil
}

// SetGoal validates and overwrites the owner's monthly goal.
func (s *Service) SetGoal(ctx context.Context, ownerID string, goal float64) error {
	if err := core.ValidateGoal(goal); err != nil {
		return err
	}
	if err := s.store.SetGoal(ctx, ownerID, goal); err != nil {
		return fmt.Errorf("set goal: %w", err)
	}
	return nil
}

package http

import (
	"time"

	"finovate/internal/core"
	"finovate/internal/reports"
	"finovate/internal/services"
)

// Response DTOs. Amounts cross the wire as JSON numbers; precision beyond
// float64 is not a concern at the display boundary.

type transactionResponse struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	Description     string  `json:"description"`
	Category        string  `json:"category,omitempty"`
	Amount          float64 `json:"amount"`
	Date            string  `json:"date"`
	SourceInvoiceID string  `json:"sourceInvoiceId,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

type invoiceItemResponse struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Rate     float64 `json:"rate"`
	Amount   float64 `json:"amount"`
}

type invoiceResponse struct {
	ID            string                `json:"id"`
	InvoiceNumber string                `json:"invoiceNumber"`
	ClientName    string                `json:"clientName"`
	ClientEmail   string                `json:"clientEmail,omitempty"`
	ClientAddress string                `json:"clientAddress,omitempty"`
	Items         []invoiceItemResponse `json:"items,omitempty"`
	Subtotal      float64               `json:"subtotal"`
	TaxAmount     float64               `json:"taxAmount"`
	TotalAmount   float64               `json:"totalAmount"`
	Status        string                `json:"status"`
	IssueDate     string                `json:"issueDate"`
	DueDate       string                `json:"dueDate,omitempty"`
	PaidDate      string                `json:"paidDate,omitempty"`
	Notes         string                `json:"notes,omitempty"`
	BankAccountID string                `json:"bankAccountId,omitempty"`
	CreatedAt     string                `json:"createdAt"`
	UpdatedAt     string                `json:"updatedAt"`
}

type monthlyPointResponse struct {
	Month    string  `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

type profitPointResponse struct {
	Month    string  `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Profit   float64 `json:"profit"`
}

type categoryExpenseResponse struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Count      int     `json:"count"`
	Percentage int     `json:"percentage"`
}

type summaryResponse struct {
	TotalBalance       float64                   `json:"totalBalance"`
	TotalInvoiceAmount float64                   `json:"totalInvoiceAmount"`
	MonthlyIncome      float64                   `json:"monthlyIncome"`
	MonthlyExpenses    float64                   `json:"monthlyExpenses"`
	MonthlyProfit      float64                   `json:"monthlyProfit"`
	MonthlyGoal        float64                   `json:"monthlyGoal"`
	GoalProgress       *float64                  `json:"goalProgress,omitempty"`
	CategoryExpenses   []categoryExpenseResponse `json:"categoryExpenses"`
	IncomeExpenseData  []monthlyPointResponse    `json:"incomeExpenseData"`
	RecentTransactions []transactionResponse     `json:"recentTransactions"`
	RecentInvoices     []invoiceResponse         `json:"recentInvoices"`
}

type categorySummaryResponse struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Total    float64 `json:"total"`
}

type invoiceStatsResponse struct {
	Total             int     `json:"total"`
	Pending           int     `json:"pending"`
	Paid              int     `json:"paid"`
	Overdue           int     `json:"overdue"`
	Cancelled         int     `json:"cancelled"`
	AmountOutstanding float64 `json:"amountOutstanding"`
	AmountPaid        float64 `json:"amountPaid"`
}

type goalResponse struct {
	Goal float64 `json:"goal"`
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:              tx.ID,
		Type:            string(tx.Kind),
		Description:     tx.Description,
		Category:        tx.Category,
		Amount:          tx.Amount.InexactFloat64(),
		Date:            fmtDate(tx.OccurredAt),
		SourceInvoiceID: tx.SourceInvoiceID,
		CreatedAt:       fmtDate(tx.CreatedAt),
		UpdatedAt:       fmtDate(tx.UpdatedAt),
	}
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	return out
}

func toInvoiceResponse(inv core.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientName:    inv.ClientName,
		ClientEmail:   inv.ClientEmail,
		ClientAddress: inv.ClientAddress,
		Subtotal:      inv.Subtotal.InexactFloat64(),
		TaxAmount:     inv.TaxAmount.InexactFloat64(),
		TotalAmount:   inv.TotalAmount.InexactFloat64(),
		Status:        string(inv.Status),
		IssueDate:     fmtDate(inv.IssueDate),
		DueDate:       fmtDate(inv.DueDate),
		PaidDate:      fmtDate(inv.PaidDate),
		Notes:         inv.Notes,
		BankAccountID: inv.BankAccountID,
		CreatedAt:     fmtDate(inv.CreatedAt),
		UpdatedAt:     fmtDate(inv.UpdatedAt),
	}
	for _, it := range inv.Items {
		resp.Items = append(resp.Items, invoiceItemResponse{
			Name:     it.Name,
			Quantity: it.Quantity.InexactFloat64(),
			Rate:     it.Rate.InexactFloat64(),
			Amount:   it.LineAmount.InexactFloat64(),
		})
	}
	return resp
}

func toInvoiceResponses(invs []core.Invoice) []invoiceResponse {
	out := make([]invoiceResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvoiceResponse(inv))
	}
	return out
}

func toMonthlyPointResponses(points []reports.MonthlyPoint) []monthlyPointResponse {
	out := make([]monthlyPointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, monthlyPointResponse{
			Month:    p.Month,
			Income:   p.Income.InexactFloat64(),
			Expenses: p.Expenses.InexactFloat64(),
		})
	}
	return out
}

func toProfitPointResponses(points []reports.ProfitPoint) []profitPointResponse {
	out := make([]profitPointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, profitPointResponse{
			Month:    p.Month,
			Income:   p.Income.InexactFloat64(),
			Expenses: p.Expenses.InexactFloat64(),
			Profit:   p.Profit.InexactFloat64(),
		})
	}
	return out
}

func toCategoryExpenseResponses(rows []reports.CategoryExpense) []categoryExpenseResponse {
	out := make([]categoryExpenseResponse, 0, len(rows))
	for _, c := range rows {
		out = append(out, categoryExpenseResponse{
			Category:   c.Category,
			Amount:     c.Amount.InexactFloat64(),
			Count:      c.Count,
			Percentage: c.Percentage,
		})
	}
	return out
}

func toSummaryResponse(sum reports.Summary) summaryResponse {
	resp := summaryResponse{
		TotalBalance:       sum.TotalBalance.InexactFloat64(),
		TotalInvoiceAmount: sum.TotalInvoiceAmount.InexactFloat64(),
		MonthlyIncome:      sum.MonthlyIncome.InexactFloat64(),
		MonthlyExpenses:    sum.MonthlyExpenses.InexactFloat64(),
		MonthlyProfit:      sum.MonthlyProfit.InexactFloat64(),
		MonthlyGoal:        sum.MonthlyGoal,
		CategoryExpenses:   toCategoryExpenseResponses(sum.CategoryExpenses),
		IncomeExpenseData:  toMonthlyPointResponses(sum.IncomeExpenseData),
		RecentTransactions: toTransactionResponses(sum.RecentTransactions),
		RecentInvoices:     toInvoiceResponses(sum.RecentInvoices),
	}
	if sum.GoalProgressSet {
		progress := reports.ClampProgress(sum.GoalProgress)
		resp.GoalProgress = &progress
	}
	return resp
}

func toCategorySummaryResponses(rows []services.CategorySummary) []categorySummaryResponse {
	out := make([]categorySummaryResponse, 0, len(rows))
	for _, c := range rows {
		out = append(out, categorySummaryResponse{
			Category: c.Category,
			Count:    c.Count,
			Total:    c.Total.InexactFloat64(),
		})
	}
	return out
}

func toInvoiceStatsResponse(st services.InvoiceStats) invoiceStatsResponse {
	return invoiceStatsResponse{
		Total:             st.Total,
		Pending:           st.Pending,
		Paid:              st.Paid,
		Overdue:           st.Overdue,
		Cancelled:         st.Cancelled,
		AmountOutstanding: st.AmountOutstanding.InexactFloat64(),
		AmountPaid:        st.AmountPaid.InexactFloat64(),
	}
}

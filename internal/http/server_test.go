package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finovate/internal/ledger/memory"
	"finovate/internal/reports"
	"finovate/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.New()
	srv := NewServer("127.0.0.1:0",
		services.NewTransactionService(store, nil),
		services.NewInvoiceService(store, nil),
		reports.NewService(store),
		Options{SummaryCacheTTL: time.Minute})
	t.Cleanup(func() {
		srv.sweeper.Stop()
		srv.rateLimiter.stop()
	})
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"type":        "CREDIT",
		"description": "salary",
		"category":    "Work",
		"amount":      5000,
		"date":        "2024-03-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	var created transactionResponse
	decodeBody(t, rec, &created)
	if created.ID == "" || created.Type != "CREDIT" || created.Amount != 5000 {
		t.Fatalf("created = %+v", created)
	}

	// string amounts are accepted too
	rec = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"type":        "expense",
		"description": "groceries",
		"amount":      "150.25",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create string amount: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var list []transactionResponse
	decodeBody(t, rec, &list)
	if len(list) != 2 {
		t.Fatalf("list = %d rows, want 2", len(list))
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions?type=DEBIT", nil)
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0].Description != "groceries" {
		t.Fatalf("filtered list = %+v", list)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"type":        "transfer",
		"description": "",
		"amount":      -5,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if len(resp.Fields) == 0 {
		t.Fatalf("expected field errors, got %+v", resp)
	}
}

func TestTransactionNotFound(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/transactions/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestOwnerScoping(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString(
		`{"type":"CREDIT","description":"salary","amount":100}`))
	req.Header.Set("X-Owner-ID", "alice")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d", rec.Code)
	}

	// default owner sees nothing
	rec2 := doJSON(t, srv, http.MethodGet, "/api/transactions", nil)
	var list []transactionResponse
	decodeBody(t, rec2, &list)
	if len(list) != 0 {
		t.Fatalf("cross-owner leak: %+v", list)
	}
}

func TestInvoicePaymentLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/invoices", map[string]any{
		"clientName": "Acme",
		"items": []map[string]any{
			{"name": "Design", "quantity": 10, "rate": 100},
		},
		"taxAmount": 100,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create invoice: status %d, body %s", rec.Code, rec.Body.String())
	}
	var inv invoiceResponse
	decodeBody(t, rec, &inv)
	if inv.TotalAmount != 1100 || inv.Status != "PENDING" || inv.InvoiceNumber != "INV-0001" {
		t.Fatalf("invoice = %+v", inv)
	}

	rec = doJSON(t, srv, http.MethodPatch, "/api/invoices/"+inv.ID+"/paid", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark paid: status %d, body %s", rec.Code, rec.Body.String())
	}
	var paid invoiceResponse
	decodeBody(t, rec, &paid)
	if paid.Status != "PAID" || paid.PaidDate == "" {
		t.Fatalf("paid invoice = %+v", paid)
	}

	var summary summaryResponse
	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard/summary", nil)
	decodeBody(t, rec, &summary)
	if summary.TotalBalance != 1100 {
		t.Fatalf("balance after payment = %v, want 1100", summary.TotalBalance)
	}
	if summary.TotalInvoiceAmount != 1100 {
		t.Fatalf("total invoice amount = %v, want 1100", summary.TotalInvoiceAmount)
	}

	rec = doJSON(t, srv, http.MethodPatch, "/api/invoices/"+inv.ID+"/unpaid", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark unpaid: status %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard/summary", nil)
	decodeBody(t, rec, &summary)
	if summary.TotalBalance != 0 {
		t.Fatalf("balance after unpaid = %v, want 0", summary.TotalBalance)
	}
}

func TestMarkPaidBodyHandling(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/invoices", map[string]any{
		"clientName": "Acme", "amount": 300,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d", rec.Code)
	}
	var inv invoiceResponse
	decodeBody(t, rec, &inv)

	// A malformed body is a client error, not an implicit "paid now".
	req := httptest.NewRequest(http.MethodPatch, "/api/invoices/"+inv.ID+"/paid",
		bytes.NewBufferString(`{"paidDate":`))
	req.Header.Set("Content-Type", "application/json")
	malformed := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(malformed, req)
	if malformed.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status %d, want 400", malformed.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/invoices/"+inv.ID, nil)
	decodeBody(t, rec, &inv)
	if inv.Status != "PENDING" {
		t.Fatalf("invoice paid despite malformed body: %+v", inv)
	}

	// An empty body still means "paid now".
	rec = doJSON(t, srv, http.MethodPatch, "/api/invoices/"+inv.ID+"/paid", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty body: status %d, body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &inv)
	if inv.Status != "PAID" {
		t.Fatalf("invoice = %+v, want PAID", inv)
	}
}

func TestDuplicateInvoiceNumberRejected(t *testing.T) {
	srv := newTestServer(t)

	create := map[string]any{
		"invoiceNumber": "INV-0042",
		"clientName":    "Acme",
		"amount":        300,
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/invoices", create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, http.MethodPost, "/api/invoices", create)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate number: status %d, want 400", rec.Code)
	}
}

func TestSummaryGoalProgressClamped(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/api/dashboard/goal", map[string]any{"goal": 100})
	if rec.Code != http.StatusOK {
		t.Fatalf("set goal: status %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"type":        "CREDIT",
		"description": "big retainer",
		"amount":      5000,
		"date":        time.Now().UTC().Format("2006-01-02"),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}

	var summary summaryResponse
	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard/summary", nil)
	decodeBody(t, rec, &summary)
	if summary.GoalProgress == nil {
		t.Fatal("goal progress missing")
	}
	if *summary.GoalProgress != 1 {
		t.Fatalf("goal progress = %v, want capped at 1", *summary.GoalProgress)
	}
}

func TestSummaryCacheInvalidation(t *testing.T) {
	srv := newTestServer(t)

	var summary summaryResponse
	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard/summary", nil)
	decodeBody(t, rec, &summary)
	if summary.TotalBalance != 0 {
		t.Fatalf("initial balance = %v", summary.TotalBalance)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"type": "CREDIT", "description": "x", "amount": 42,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard/summary", nil)
	decodeBody(t, rec, &summary)
	if summary.TotalBalance != 42 {
		t.Fatalf("balance after write = %v, want 42 (stale cache?)", summary.TotalBalance)
	}
}

func TestGoalEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/api/dashboard/goal", map[string]any{"goal": 5000})
	if rec.Code != http.StatusOK {
		t.Fatalf("set goal: status %d, body %s", rec.Code, rec.Body.String())
	}

	var resp goalResponse
	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard/goal", nil)
	decodeBody(t, rec, &resp)
	if resp.Goal != 5000 {
		t.Fatalf("goal = %v, want 5000", resp.Goal)
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/dashboard/goal", map[string]any{"goal": 20_000_000})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("over-ceiling goal: status %d, want 400", rec.Code)
	}
}

func TestYearlyProfitGapFill(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard/yearly-profit?months=6", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var points []profitPointResponse
	decodeBody(t, rec, &points)
	if len(points) != 6 {
		t.Fatalf("points = %d, want 6 gap-filled months", len(points))
	}
	for _, p := range points {
		if p.Income != 0 || p.Expenses != 0 || p.Profit != 0 {
			t.Fatalf("expected zero-valued month, got %+v", p)
		}
	}
}

func TestBatchCreateTransactions(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions/batch", []map[string]any{
		{"type": "CREDIT", "description": "a", "amount": 10},
		{"type": "DEBIT", "description": "b", "amount": 4},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("batch: status %d, body %s", rec.Code, rec.Body.String())
	}
	var list []transactionResponse
	decodeBody(t, rec, &list)
	if len(list) != 2 {
		t.Fatalf("batch returned %d rows", len(list))
	}

	var summary summaryResponse
	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard/summary", nil)
	decodeBody(t, rec, &summary)
	if summary.TotalBalance != 6 {
		t.Fatalf("balance = %v, want 6", summary.TotalBalance)
	}
}

func TestInvoiceStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/invoices", map[string]any{
		"clientName": "Acme", "amount": 300,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d", rec.Code)
	}

	var stats invoiceStatsResponse
	rec = doJSON(t, srv, http.MethodGet, "/api/invoices/stats", nil)
	decodeBody(t, rec, &stats)
	if stats.Total != 1 || stats.Pending != 1 || stats.AmountOutstanding != 300 {
		t.Fatalf("stats = %+v", stats)
	}
}

package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"finovate/internal/core"
	"finovate/internal/ledger"
	"finovate/internal/services"
)

type invoiceItemRequest struct {
	Name     string     `json:"name"`
	Quantity flexString `json:"quantity"`
	Rate     flexString `json:"rate"`
	Amount   flexString `json:"amount"`
}

type invoiceRequest struct {
	InvoiceNumber string               `json:"invoiceNumber"`
	ClientName    string               `json:"clientName"`
	ClientEmail   string               `json:"clientEmail"`
	ClientAddress string               `json:"clientAddress"`
	Items         []invoiceItemRequest `json:"items"`
	Amount        flexString           `json:"amount"`
	TaxAmount     flexString           `json:"taxAmount"`
	IssueDate     string               `json:"issueDate"`
	DueDate       string               `json:"dueDate"`
	Notes         string               `json:"notes"`
	BankAccountID string               `json:"bankAccountId"`
}

func (req invoiceRequest) toInput() (services.InvoiceInput, error) {
	in := services.InvoiceInput{
		InvoiceNumber: req.InvoiceNumber,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientAddress: req.ClientAddress,
		Amount:        string(req.Amount),
		TaxAmount:     string(req.TaxAmount),
		Notes:         req.Notes,
		BankAccountID: req.BankAccountID,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, services.InvoiceItemInput{
			Name:     it.Name,
			Quantity: string(it.Quantity),
			Rate:     string(it.Rate),
			Amount:   string(it.Amount),
		})
	}
	if req.IssueDate != "" {
		issued, err := parseDate(req.IssueDate)
		if err != nil {
			return services.InvoiceInput{}, core.FieldErrors{}.Add("issueDate", err)
		}
		in.IssueDate = issued
	}
	if req.DueDate != "" {
		due, err := parseDate(req.DueDate)
		if err != nil {
			return services.InvoiceInput{}, core.FieldErrors{}.Add("dueDate", err)
		}
		in.DueDate = due
	}
	return in, nil
}

func invoiceFilter(r *http.Request) ledger.InvoiceFilter {
	q := r.URL.Query()
	var f ledger.InvoiceFilter
	if v := q.Get("status"); v != "" {
		status := core.InvoiceStatus(v)
		if status.Valid() {
			f.Status = status
		}
	}
	if v := q.Get("dateFrom"); v != "" {
		if t, err := parseDate(v); err == nil {
			f.DateFrom = t
		}
	}
	if v := q.Get("dateTo"); v != "" {
		if t, err := parseDate(v); err == nil {
			if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			f.DateTo = t
		}
	}
	return f
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invs, err := s.invoices.List(r.Context(), ownerID(r), invoiceFilter(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponses(invs))
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invoices.Get(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	inv, err := s.invoices.Create(r.Context(), owner, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	inv, err := s.invoices.Update(r.Context(), owner, r.PathValue("id"), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	if err := s.invoices.Delete(r.Context(), owner, r.PathValue("id")); err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkInvoicePaid(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	// Optional body: {"paidDate": "..."}; an empty body means "paid now",
	// but a malformed one is still a client error.
	var req struct {
		PaidDate string `json:"paidDate"`
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	var paidDate time.Time
	if req.PaidDate != "" {
		parsed, err := parseDate(req.PaidDate)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid paidDate")
			return
		}
		paidDate = parsed
	}

	inv, err := s.invoices.MarkPaid(r.Context(), owner, r.PathValue("id"), paidDate)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (s *Server) handleMarkInvoiceUnpaid(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	inv, err := s.invoices.MarkUnpaid(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (s *Server) handleDuplicateInvoice(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	inv, err := s.invoices.Duplicate(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

func (s *Server) handleInvoiceStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.invoices.Stats(r.Context(), ownerID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceStatsResponse(st))
}

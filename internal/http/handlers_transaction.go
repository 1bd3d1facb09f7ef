package http

import (
	"net/http"
	"time"

	"finovate/internal/core"
	"finovate/internal/ledger"
	"finovate/internal/services"
)

// transactionRequest is the write payload. Type and amount stay raw
// strings here; the service layer owns normalization and validation.
type transactionRequest struct {
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Amount      flexString `json:"amount"`
	Date        string     `json:"date"`
}

func (req transactionRequest) toInput() (services.TransactionInput, error) {
	in := services.TransactionInput{
		Kind:        req.Type,
		Description: req.Description,
		Category:    req.Category,
		Amount:      string(req.Amount),
	}
	if req.Date != "" {
		occurred, err := parseDate(req.Date)
		if err != nil {
			return services.TransactionInput{}, core.FieldErrors{}.Add("date", err)
		}
		in.OccurredAt = occurred
	}
	return in, nil
}

// transactionFilter reads list filters off the query string. Bad values
// are ignored rather than rejected; a filter narrows, never fails.
func transactionFilter(r *http.Request) ledger.TransactionFilter {
	q := r.URL.Query()
	var f ledger.TransactionFilter
	if v := q.Get("type"); v != "" {
		if kind, ok := core.NormalizeKindLenient(v); ok {
			f.Kind = kind
		}
	}
	f.Category = q.Get("category")
	if v := q.Get("dateFrom"); v != "" {
		if t, err := parseDate(v); err == nil {
			f.DateFrom = t
		}
	}
	if v := q.Get("dateTo"); v != "" {
		if t, err := parseDate(v); err == nil {
			// Bare dates mean "through the end of that day"
			if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			f.DateTo = t
		}
	}
	return f
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.transactions.List(r.Context(), ownerID(r), transactionFilter(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.transactions.Get(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	tx, err := s.transactions.Create(r.Context(), owner, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleCreateTransactionBatch(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	var reqs []transactionRequest
	if err := decodeJSON(r, &reqs); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(reqs) == 0 {
		writeError(w, r, http.StatusBadRequest, "empty batch")
		return
	}

	ins := make([]services.TransactionInput, 0, len(reqs))
	for _, req := range reqs {
		in, err := req.toInput()
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		ins = append(ins, in)
	}

	txs, err := s.transactions.CreateBatch(r.Context(), owner, ins)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusCreated, toTransactionResponses(txs))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	tx, err := s.transactions.Update(r.Context(), owner, r.PathValue("id"), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	if err := s.transactions.Delete(r.Context(), owner, r.PathValue("id")); err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransactionCategories(w http.ResponseWriter, r *http.Request) {
	rows, err := s.transactions.Categories(r.Context(), ownerID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategorySummaryResponses(rows))
}

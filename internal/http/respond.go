package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"finovate/internal/core"
	"finovate/internal/services"
)

// errorResponse is the uniform error body. Fields is present only for
// validation failures.
type errorResponse struct {
	Error  string       `json:"error"`
	Fields []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, _ *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// respondServiceError maps domain errors onto HTTP statuses: validation
// failures surface per-field detail, unknown ids give 404, reconciliation
// failures and everything else give 500 without leaking internals.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fields core.FieldErrors
	if errors.As(err, &fields) {
		resp := errorResponse{Error: "validation failed"}
		for _, f := range fields {
			resp.Fields = append(resp.Fields, fieldError{Field: f.Field, Message: f.Message()})
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyClientName),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrInvoiceShape),
		errors.Is(err, core.ErrDuplicateInvoiceNumber),
		errors.Is(err, core.ErrInvalidGoal):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrReconciliation):
		slog.ErrorContext(r.Context(), "Reconciliation failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, services.ErrReconciliation.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a request body, rejecting unknown fields so typos in
// client payloads fail loudly instead of being silently dropped.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// flexString accepts both JSON numbers and strings, keeping the raw token
// for the strict domain parsers. Upstream clients send amounts both ways.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var unquoted string
		if err := json.Unmarshal(b, &unquoted); err != nil {
			return err
		}
		*f = flexString(unquoted)
		return nil
	}
	*f = flexString(s)
	return nil
}

// parseDate accepts RFC 3339 timestamps and bare YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

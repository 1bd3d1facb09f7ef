// Package http exposes the ledger and dashboard aggregation over a JSON
// REST API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"finovate/internal/cache"
	"finovate/internal/log"
	"finovate/internal/reports"
	"finovate/internal/services"
)

// handlerTimeout bounds every request so a stuck store call cannot pin a
// connection forever.
const handlerTimeout = 7 * time.Second

// defaultOwnerID is used when the client sends no X-Owner-ID header
// (single-user deployments).
const defaultOwnerID = "default"

// Options tunes server behavior; zero values fall back to defaults.
type Options struct {
	SummaryCacheTTL    time.Duration
	RateLimitPerMinute int
}

type Server struct {
	http.Server

	transactions *services.TransactionService
	invoices     *services.InvoiceService
	reports      *reports.Service

	rateLimiter  *rateLimiter
	summaryCache *cache.TTLCache[summaryResponse]
	sweeper      *cache.Sweeper

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, ts *services.TransactionService, is *services.InvoiceService, rs *reports.Service, opts Options) *Server {
	if opts.SummaryCacheTTL == 0 {
		opts.SummaryCacheTTL = 30 * time.Second
	}
	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = 300
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		transactions: ts,
		invoices:     is,
		reports:      rs,
		rateLimiter:  newRateLimiter(opts.RateLimitPerMinute),
		summaryCache: cache.NewTTLCache[summaryResponse](100, opts.SummaryCacheTTL),
	}
	s.sweeper = cache.NewSweeper(s.summaryCache)
	s.sweeper.Start(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/dashboard/summary", s.withAPIDefaults(s.handleDashboardSummary))
	mux.HandleFunc("GET /api/dashboard/income-expense", s.withAPIDefaults(s.handleIncomeExpense))
	mux.HandleFunc("GET /api/dashboard/category-expenses", s.withAPIDefaults(s.handleCategoryExpenses))
	mux.HandleFunc("GET /api/dashboard/yearly-profit", s.withAPIDefaults(s.handleYearlyProfit))
	mux.HandleFunc("GET /api/dashboard/goal", s.withAPIDefaults(s.handleGetGoal))
	mux.HandleFunc("PUT /api/dashboard/goal", s.withAPIDefaults(s.handleSetGoal))

	mux.HandleFunc("GET /api/transactions", s.withAPIDefaults(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withAPIDefaults(s.handleCreateTransaction))
	mux.HandleFunc("POST /api/transactions/batch", s.withAPIDefaults(s.handleCreateTransactionBatch))
	mux.HandleFunc("GET /api/transactions/categories", s.withAPIDefaults(s.handleTransactionCategories))
	mux.HandleFunc("GET /api/transactions/{id}", s.withAPIDefaults(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withAPIDefaults(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withAPIDefaults(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/invoices", s.withAPIDefaults(s.handleListInvoices))
	mux.HandleFunc("POST /api/invoices", s.withAPIDefaults(s.handleCreateInvoice))
	mux.HandleFunc("GET /api/invoices/stats", s.withAPIDefaults(s.handleInvoiceStats))
	mux.HandleFunc("GET /api/invoices/{id}", s.withAPIDefaults(s.handleGetInvoice))
	mux.HandleFunc("PUT /api/invoices/{id}", s.withAPIDefaults(s.handleUpdateInvoice))
	mux.HandleFunc("DELETE /api/invoices/{id}", s.withAPIDefaults(s.handleDeleteInvoice))
	mux.HandleFunc("PATCH /api/invoices/{id}/paid", s.withAPIDefaults(s.handleMarkInvoicePaid))
	mux.HandleFunc("PATCH /api/invoices/{id}/unpaid", s.withAPIDefaults(s.handleMarkInvoiceUnpaid))
	mux.HandleFunc("POST /api/invoices/{id}/duplicate", s.withAPIDefaults(s.handleDuplicateInvoice))

	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.sweeper.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ownerID scopes every request to one owner's data. The header is trusted
// here; authentication lives in the gateway in front of this service.
func ownerID(r *http.Request) string {
	if id := r.Header.Get("X-Owner-ID"); id != "" {
		return id
	}
	return defaultOwnerID
}

// invalidateOwner drops all cached dashboard views for an owner after a
// write, so the next summary reflects the new ledger state.
func (s *Server) invalidateOwner(owner string) {
	s.summaryCache.DeletePrefix(owner + ":")
}

// withAPIDefaults applies the shared request pipeline: timeout, security
// headers, request id, rate limiting on writes, and request logging.
func (s *Server) withAPIDefaults(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		requestID := generateRequestID()
		ctx = context.WithValue(ctx, requestIDKey, requestID)
		r = r.WithContext(ctx)

		clientIP := extractClientIP(r)

		slog.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP,
			log.FieldOwnerID, ownerID(r))

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type contextKey string

const requestIDKey contextKey = "request_id"

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Package worker runs the ledger audit consumer: it drains the AMQP
// queue of ledger events and writes a structured audit trail.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"finovate/internal/amqp"
	"finovate/internal/log"
)

// AuditWorker consumes ledger events and records them. It also keeps
// in-process counters so operators can see event volume at shutdown.
type AuditWorker struct {
	client *amqp.Client

	mu     sync.Mutex
	counts map[string]int
}

func NewAuditWorker(client *amqp.Client) *AuditWorker {
	return &AuditWorker{
		client: client,
		counts: make(map[string]int),
	}
}

// Run consumes events until ctx is cancelled. A handler error requeues
// the event, so the audit trail never silently drops a message.
func (w *AuditWorker) Run(ctx context.Context) error {
	return w.client.ConsumeLedgerEvents(ctx, func(event *amqp.LedgerEvent) error {
		return w.record(ctx, event)
	})
}

func (w *AuditWorker) record(ctx context.Context, event *amqp.LedgerEvent) error {
	w.mu.Lock()
	w.counts[event.Event]++
	w.mu.Unlock()

	slog.InfoContext(ctx, "Ledger event",
		log.FieldEvent, event.Event,
		log.FieldOwnerID, event.OwnerID,
		log.FieldEntityID, event.EntityID,
		log.FieldAmount, event.Amount,
		"occurred_at", event.Timestamp.Format(time.RFC3339))
	return nil
}

// Stats returns a copy of the per-event counters.
func (w *AuditWorker) Stats() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(map[string]int, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}

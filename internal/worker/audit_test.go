package worker

import (
	"context"
	"testing"

	"finovate/internal/amqp"
)

func TestRecordCountsEvents(t *testing.T) {
	w := NewAuditWorker(nil)
	ctx := context.Background()

	events := []string{
		amqp.EventTransactionCreated,
		amqp.EventTransactionCreated,
		amqp.EventInvoicePaid,
	}
	for _, e := range events {
		if err := w.record(ctx, amqp.NewLedgerEvent(e, "owner-1", "id-1", "10")); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	stats := w.Stats()
	if stats[amqp.EventTransactionCreated] != 2 {
		t.Fatalf("created count = %d, want 2", stats[amqp.EventTransactionCreated])
	}
	if stats[amqp.EventInvoicePaid] != 1 {
		t.Fatalf("paid count = %d, want 1", stats[amqp.EventInvoicePaid])
	}
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finovate/internal/core"
	"finovate/internal/ledger"
)

func testTransaction(id, ownerID string) core.Transaction {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	return core.Transaction{
		ID:          id,
		OwnerID:     ownerID,
		Kind:        core.KindCredit,
		Description: "salary",
		Amount:      decimal.NewFromInt(10),
		OccurredAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func testInvoice(id, ownerID, number string) core.Invoice {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	return core.Invoice{
		ID:            id,
		OwnerID:       ownerID,
		InvoiceNumber: number,
		ClientName:    "Acme",
		Subtotal:      decimal.NewFromInt(100),
		TotalAmount:   decimal.NewFromInt(100),
		Status:        core.StatusPending,
		IssueDate:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestAtomicallyRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Atomically(ctx, func(st ledger.Store) error {
		if _, err := st.CreateTransaction(ctx, testTransaction("tx-1", "owner-1")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, err := s.GetTransaction(ctx, "owner-1", "tx-1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("rolled-back row still visible: %v", err)
	}
}

func TestAtomicallyRollbackKeepsConcurrentWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	inBlock := make(chan struct{})
	release := make(chan struct{})
	blockDone := make(chan error, 1)

	go func() {
		blockDone <- s.Atomically(ctx, func(st ledger.Store) error {
			if _, err := st.CreateTransaction(ctx, testTransaction("doomed", "owner-a")); err != nil {
				return err
			}
			close(inBlock)
			<-release
			return errors.New("boom")
		})
	}()

	// A write from another caller while the block is in flight. It must
	// either land before the snapshot or after the restore, never between.
	<-inBlock
	createDone := make(chan error, 1)
	go func() {
		_, err := s.CreateTransaction(ctx, testTransaction("bystander", "owner-b"))
		createDone <- err
	}()

	close(release)
	if err := <-blockDone; err == nil {
		t.Fatal("block should have failed")
	}
	if err := <-createDone; err != nil {
		t.Fatalf("concurrent create: %v", err)
	}

	if _, err := s.GetTransaction(ctx, "owner-b", "bystander"); err != nil {
		t.Fatalf("concurrent committed write lost to rollback: %v", err)
	}
	if _, err := s.GetTransaction(ctx, "owner-a", "doomed"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("block write survived rollback: %v", err)
	}
}

func TestAtomicallyNestedJoinsBlock(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Atomically(ctx, func(st ledger.Store) error {
		return st.Atomically(ctx, func(inner ledger.Store) error {
			_, err := inner.CreateTransaction(ctx, testTransaction("tx-1", "owner-1"))
			return err
		})
	})
	if err != nil {
		t.Fatalf("nested atomically: %v", err)
	}
	if _, err := s.GetTransaction(ctx, "owner-1", "tx-1"); err != nil {
		t.Fatalf("committed row missing: %v", err)
	}
}

func TestInvoiceNumberUniquePerOwner(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.CreateInvoice(ctx, testInvoice("inv-1", "owner-1", "INV-0042")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateInvoice(ctx, testInvoice("inv-2", "owner-1", "INV-0042")); !errors.Is(err, core.ErrDuplicateInvoiceNumber) {
		t.Fatalf("duplicate number: err = %v, want ErrDuplicateInvoiceNumber", err)
	}
	// Same number under another owner is fine.
	if _, err := s.CreateInvoice(ctx, testInvoice("inv-3", "owner-2", "INV-0042")); err != nil {
		t.Fatalf("other owner: %v", err)
	}
}

func TestUpdateInvoiceNumberCollision(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.CreateInvoice(ctx, testInvoice("inv-1", "owner-1", "INV-0001")); err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := s.CreateInvoice(ctx, testInvoice("inv-2", "owner-1", "INV-0002"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	second.InvoiceNumber = "INV-0001"
	if _, err := s.UpdateInvoice(ctx, second); !errors.Is(err, core.ErrDuplicateInvoiceNumber) {
		t.Fatalf("colliding update: err = %v, want ErrDuplicateInvoiceNumber", err)
	}

	// Updating without changing the number is not a collision.
	second.InvoiceNumber = "INV-0002"
	second.Notes = "updated"
	if _, err := s.UpdateInvoice(ctx, second); err != nil {
		t.Fatalf("self update: %v", err)
	}
}

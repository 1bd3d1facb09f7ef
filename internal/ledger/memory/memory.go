// Package memory provides the in-memory ledger store used by tests and the
// default development backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"finovate/internal/core"
	"finovate/internal/ledger"
)

type Store struct {
	mu sync.Mutex
	// txMu isolates Atomically blocks: a block holds the write side while
	// plain mutating calls hold the read side, so no outside write can land
	// between a block's snapshot and a possible restore. This also
	// serializes concurrent reconciler calls on the same invoice.
	txMu sync.RWMutex

	transactions map[string]core.Transaction // by id
	invoices     map[string]core.Invoice     // by id
	goals        map[string]float64          // by owner id
	seq          int
}

func New() *Store {
	return &Store{
		transactions: make(map[string]core.Transaction),
		invoices:     make(map[string]core.Invoice),
		goals:        make(map[string]float64),
	}
}

var _ ledger.Store = (*Store)(nil)

func (s *Store) FindTransactions(_ context.Context, ownerID string, f ledger.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, tx := range s.transactions {
		if tx.OwnerID != ownerID {
			continue
		}
		if !f.DateFrom.IsZero() && tx.OccurredAt.Before(f.DateFrom) {
			continue
		}
		if !f.DateTo.IsZero() && tx.OccurredAt.After(f.DateTo) {
			continue
		}
		if f.Kind != "" && tx.Kind != f.Kind {
			continue
		}
		if f.Category != "" && tx.Category != f.Category {
			continue
		}
		if f.SourceInvoiceID != "" && tx.SourceInvoiceID != f.SourceInvoiceID {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, ownerID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return tx, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.txMu.RLock()
	defer s.txMu.RUnlock()
	return s.createTransaction(tx)
}

func (s *Store) createTransaction(tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		s.seq++
		tx.ID = fmt.Sprintf("mem:%d", s.seq)
	}
	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.txMu.RLock()
	defer s.txMu.RUnlock()
	return s.updateTransaction(tx)
}

func (s *Store) updateTransaction(tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[tx.ID]
	if !ok || existing.OwnerID != tx.OwnerID {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, core.ErrNotFound)
	}
	tx.CreatedAt = existing.CreatedAt
	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, id string) error {
	s.txMu.RLock()
	defer s.txMu.RUnlock()
	return s.deleteTransaction(ownerID, id)
}

func (s *Store) deleteTransaction(ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) RecentTransactions(ctx context.Context, ownerID string, limit int) ([]core.Transaction, error) {
	all, err := s.FindTransactions(ctx, ownerID, ledger.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) FindInvoices(_ context.Context, ownerID string, f ledger.InvoiceFilter) ([]core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Invoice
	for _, inv := range s.invoices {
		if inv.OwnerID != ownerID {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		if !f.DateFrom.IsZero() && inv.IssueDate.Before(f.DateFrom) {
			continue
		}
		if !f.DateTo.IsZero() && inv.IssueDate.After(f.DateTo) {
			continue
		}
		out = append(out, cloneInvoice(inv))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.After(out[j].IssueDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetInvoice(_ context.Context, ownerID, id string) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, core.ErrNotFound)
	}
	return cloneInvoice(inv), nil
}

func (s *Store) CreateInvoice(_ context.Context, inv core.Invoice) (core.Invoice, error) {
	s.txMu.RLock()
	defer s.txMu.RUnlock()
	return s.createInvoice(inv)
}

func (s *Store) createInvoice(inv core.Invoice) (core.Invoice, error) {
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.numberTaken(inv.OwnerID, inv.InvoiceNumber, inv.ID) {
		return core.Invoice{}, fmt.Errorf("invoice number %s: %w", inv.InvoiceNumber, core.ErrDuplicateInvoiceNumber)
	}
	if inv.ID == "" {
		s.seq++
		inv.ID = fmt.Sprintf("mem:%d", s.seq)
	}
	s.invoices[inv.ID] = cloneInvoice(inv)
	return inv, nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv core.Invoice) (core.Invoice, error) {
	s.txMu.RLock()
	defer s.txMu.RUnlock()
	return s.updateInvoice(inv)
}

func (s *Store) updateInvoice(inv core.Invoice) (core.Invoice, error) {
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.invoices[inv.ID]
	if !ok || existing.OwnerID != inv.OwnerID {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", inv.ID, core.ErrNotFound)
	}
	if s.numberTaken(inv.OwnerID, inv.InvoiceNumber, inv.ID) {
		return core.Invoice{}, fmt.Errorf("invoice number %s: %w", inv.InvoiceNumber, core.ErrDuplicateInvoiceNumber)
	}
	inv.CreatedAt = existing.CreatedAt
	s.invoices[inv.ID] = cloneInvoice(inv)
	return inv, nil
}

// numberTaken reports whether another invoice of the owner already carries
// the number. Callers hold mu.
func (s *Store) numberTaken(ownerID, number, excludeID string) bool {
	if number == "" {
		return false
	}
	for _, other := range s.invoices {
		if other.OwnerID == ownerID && other.InvoiceNumber == number && other.ID != excludeID {
			return true
		}
	}
	return false
}

func (s *Store) DeleteInvoice(_ context.Context, ownerID, id string) error {
	s.txMu.RLock()
	defer s.txMu.RUnlock()
	return s.deleteInvoice(ownerID, id)
}

// deleteInvoice removes the invoice row only; cascading to payment
// transactions is the reconciler's job, inside Atomically.
func (s *Store) deleteInvoice(ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return fmt.Errorf("invoice %s: %w", id, core.ErrNotFound)
	}
	delete(s.invoices, id)
	return nil
}

func (s *Store) RecentInvoices(ctx context.Context, ownerID string, limit int) ([]core.Invoice, error) {
	all, err := s.FindInvoices(ctx, ownerID, ledger.InvoiceFilter{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) LastInvoiceNumber(_ context.Context, ownerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var last core.Invoice
	for _, inv := range s.invoices {
		if inv.OwnerID != ownerID {
			continue
		}
		if last.ID == "" || inv.CreatedAt.After(last.CreatedAt) {
			last = inv
		}
	}
	return last.InvoiceNumber, nil
}

func (s *Store) GetGoal(_ context.Context, ownerID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goals[ownerID], nil
}

func (s *Store) SetGoal(_ context.Context, ownerID string, goal float64) error {
	s.txMu.RLock()
	defer s.txMu.RUnlock()
	return s.setGoal(ownerID, goal)
}

func (s *Store) setGoal(ownerID string, goal float64) error {
	if err := core.ValidateGoal(goal); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[ownerID] = goal
	return nil
}

// Atomically runs fn all-or-nothing: a snapshot is taken up front and
// restored if fn fails, so a failure partway through a multi-write never
// leaves a dangling state. The block excludes all other writes for its
// duration, so a restore can never wipe out a concurrent committed write.
func (s *Store) Atomically(_ context.Context, fn func(ledger.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(blockStore{s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

// blockStore is the view handed to an Atomically block. Its writes skip
// the txMu read side the block already excludes; nested blocks join the
// surrounding one.
type blockStore struct {
	*Store
}

var _ ledger.Store = blockStore{}

func (b blockStore) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	return b.createTransaction(tx)
}

func (b blockStore) UpdateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	return b.updateTransaction(tx)
}

func (b blockStore) DeleteTransaction(_ context.Context, ownerID, id string) error {
	return b.deleteTransaction(ownerID, id)
}

func (b blockStore) CreateInvoice(_ context.Context, inv core.Invoice) (core.Invoice, error) {
	return b.createInvoice(inv)
}

func (b blockStore) UpdateInvoice(_ context.Context, inv core.Invoice) (core.Invoice, error) {
	return b.updateInvoice(inv)
}

func (b blockStore) DeleteInvoice(_ context.Context, ownerID, id string) error {
	return b.deleteInvoice(ownerID, id)
}

func (b blockStore) SetGoal(_ context.Context, ownerID string, goal float64) error {
	return b.setGoal(ownerID, goal)
}

func (b blockStore) Atomically(_ context.Context, fn func(ledger.Store) error) error {
	return fn(b)
}

type state struct {
	transactions map[string]core.Transaction
	invoices     map[string]core.Invoice
	goals        map[string]float64
	seq          int
}

func (s *Store) snapshot() state {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := state{
		transactions: make(map[string]core.Transaction, len(s.transactions)),
		invoices:     make(map[string]core.Invoice, len(s.invoices)),
		goals:        make(map[string]float64, len(s.goals)),
		seq:          s.seq,
	}
	for id, tx := range s.transactions {
		st.transactions[id] = tx
	}
	for id, inv := range s.invoices {
		st.invoices[id] = cloneInvoice(inv)
	}
	for owner, g := range s.goals {
		st.goals[owner] = g
	}
	return st
}

func (s *Store) restore(st state) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions = st.transactions
	s.invoices = st.invoices
	s.goals = st.goals
	s.seq = st.seq
}

func cloneInvoice(inv core.Invoice) core.Invoice {
	if inv.Items != nil {
		items := make([]core.InvoiceItem, len(inv.Items))
		copy(items, inv.Items)
		inv.Items = items
	}
	return inv
}

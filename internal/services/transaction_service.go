package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finovate/internal/amqp"
	"finovate/internal/core"
	"finovate/internal/ledger"
)

// TransactionInput carries the caller-supplied fields of a transaction.
// Kind and Amount arrive as raw strings and go through the strict
// normalizers: writes reject what reads would merely skip.
type TransactionInput struct {
	Kind        string
	Description string
	Category    string
	Amount      string
	OccurredAt  time.Time
}

// CategorySummary is one row of the per-category rollup.
type CategorySummary struct {
	Category string
	Count    int
	Total    decimal.Decimal
}

// TransactionService orchestrates transaction writes against the ledger
// store and publishes audit events over AMQP.
type TransactionService struct {
	store      ledger.Store
	amqpClient *amqp.Client
	now        func() time.Time
}

func NewTransactionService(store ledger.Store, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		store:      store,
		amqpClient: amqpClient,
		now:        time.Now,
	}
}

func (s *TransactionService) List(ctx context.Context, ownerID string, f ledger.TransactionFilter) ([]core.Transaction, error) {
	return s.store.FindTransactions(ctx, ownerID, f)
}

func (s *TransactionService) Get(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, ownerID, id)
}

// Create validates and saves a new transaction, then publishes an audit
// event. The event is best-effort: a publish failure never fails the write.
func (s *TransactionService) Create(ctx context.Context, ownerID string, in TransactionInput) (core.Transaction, error) {
	tx, err := s.build(ownerID, in)
	if err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, amqp.EventTransactionCreated, saved)
	return saved, nil
}

// CreateBatch saves all inputs or none of them. Validation runs up front so
// a malformed row is reported before anything is written.
func (s *TransactionService) CreateBatch(ctx context.Context, ownerID string, ins []TransactionInput) ([]core.Transaction, error) {
	txs := make([]core.Transaction, 0, len(ins))
	for i, in := range ins {
		tx, err := s.build(ownerID, in)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}

	saved := make([]core.Transaction, 0, len(txs))
	err := s.store.Atomically(ctx, func(st ledger.Store) error {
		for _, tx := range txs {
			out, err := st.CreateTransaction(ctx, tx)
			if err != nil {
				return fmt.Errorf("save transaction: %w", err)
			}
			saved = append(saved, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, tx := range saved {
		s.publish(ctx, amqp.EventTransactionCreated, tx)
	}
	return saved, nil
}

// Update replaces the caller-editable fields of an existing transaction.
func (s *TransactionService) Update(ctx context.Context, ownerID, id string, in TransactionInput) (core.Transaction, error) {
	existing, err := s.store.GetTransaction(ctx, ownerID, id)
	if err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.build(ownerID, in)
	if err != nil {
		return core.Transaction{}, err
	}
	updated.ID = existing.ID
	updated.SourceInvoiceID = existing.SourceInvoiceID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()

	out, err := s.store.UpdateTransaction(ctx, updated)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return out, nil
}

func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) error {
	tx, err := s.store.GetTransaction(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, amqp.EventTransactionDeleted, tx)
	return nil
}

// Categories rolls all transactions up by category, highest total first.
// Uncategorized entries are grouped under the shared label.
func (s *TransactionService) Categories(ctx context.Context, ownerID string) ([]CategorySummary, error) {
	txs, err := s.store.FindTransactions(ctx, ownerID, ledger.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	index := make(map[string]int)
	var out []CategorySummary
	for _, tx := range txs {
		cat := tx.Category
		if cat == "" {
			cat = core.UncategorizedLabel
		}
		i, ok := index[cat]
		if !ok {
			i = len(out)
			index[cat] = i
			out = append(out, CategorySummary{Category: cat})
		}
		out[i].Count++
		out[i].Total = out[i].Total.Add(tx.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total)
	})
	return out, nil
}

func (s *TransactionService) build(ownerID string, in TransactionInput) (core.Transaction, error) {
	var errs core.FieldErrors

	kind, err := core.NormalizeKind(in.Kind)
	if err != nil {
		errs = errs.Add("type", err)
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		errs = errs.Add("amount", err)
	}
	if in.Description == "" {
		errs = errs.Add("description", core.ErrEmptyDescription)
	}
	if err := errs.OrNil(); err != nil {
		return core.Transaction{}, err
	}

	now := s.now()
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	tx := core.Transaction{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Kind:        kind,
		Description: in.Description,
		Category:    in.Category,
		Amount:      amount,
		OccurredAt:  occurredAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (s *TransactionService) publish(ctx context.Context, event string, tx core.Transaction) {
	if s.amqpClient == nil {
		return
	}
	e := amqp.NewLedgerEvent(event, tx.OwnerID, tx.ID, tx.Amount.String())
	if err := s.amqpClient.PublishLedgerEvent(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", event, "transaction_id", tx.ID, "error", err)
	}
}

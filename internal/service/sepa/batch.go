// Package sepa builds direct-debit collection batches over the members'
// active mandates.
package sepa

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verenigingen/backend/internal/domain"
	"github.com/verenigingen/backend/internal/logging"
)

type batchRepo interface {
	ListCollectables(ctx context.Context) ([]domain.CollectableInvoice, error)
	CreateBatch(ctx context.Context, tx *sql.Tx, b *domain.DirectDebitBatch) error
	CreateItem(ctx context.Context, tx *sql.Tx, item *domain.DirectDebitBatchItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DirectDebitBatch, error)
	List(ctx context.Context, limit, offset int) ([]domain.DirectDebitBatch, int, error)
	MarkSubmitted(ctx context.Context, id uuid.UUID, at time.Time) error
}

type Service struct {
	batches batchRepo
	db      *sql.DB
}

func NewService(batches batchRepo, db *sql.DB) *Service {
	return &Service{batches: batches, db: db}
}

// CreateBatch drafts a collection run over every eligible open invoice.
// Sequence type is FRST for the first collection under a mandate, RCUR
// afterwards; within one batch only the first item of a fresh mandate is
// FRST. The batch and its items are written in one transaction.
func (s *Service) CreateBatch(ctx context.Context, batchDate time.Time) (*domain.DirectDebitBatch, error) {
	collectables, err := s.batches.ListCollectables(ctx)
	if err != nil {
		return nil, fmt.Errorf("CreateBatch: %w", err)
	}
	if len(collectables) == 0 {
		return nil, fmt.Errorf("CreateBatch: %w", domain.ErrNothingToCollect)
	}

	now := time.Now().UTC()
	batch := &domain.DirectDebitBatch{
		ID:          uuid.New(),
		BatchDate:   batchDate,
		Status:      domain.BatchStatusDraft,
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
	}

	collected := make(map[uuid.UUID]bool, len(collectables))
	for _, c := range collectables {
		seq := domain.SequenceTypeRecurring
		if c.FirstCollection && !collected[c.MandateID] {
			seq = domain.SequenceTypeFirst
		}
		collected[c.MandateID] = true

		batch.Items = append(batch.Items, domain.DirectDebitBatchItem{
			ID:           uuid.New(),
			BatchID:      batch.ID,
			InvoiceID:    c.InvoiceID,
			MandateID:    c.MandateID,
			MemberID:     c.MemberID,
			Amount:       c.Amount,
			SequenceType: seq,
			CreatedAt:    now,
		})
		batch.TotalAmount = batch.TotalAmount.Add(c.Amount)
	}
	batch.EntryCount = len(batch.Items)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateBatch: begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.batches.CreateBatch(ctx, tx, batch); err != nil {
		return nil, fmt.Errorf("CreateBatch: %w", err)
	}
	for i := range batch.Items {
		if err := s.batches.CreateItem(ctx, tx, &batch.Items[i]); err != nil {
			return nil, fmt.Errorf("CreateBatch: item %s: %w", batch.Items[i].InvoiceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreateBatch: commit: %w", err)
	}

	logging.FromContext(ctx).Info("direct debit batch drafted",
		"batch_id", batch.ID,
		"entry_count", batch.EntryCount,
		"total_amount", batch.TotalAmount,
	)
	return batch, nil
}

// SubmitBatch freezes a draft batch for handoff to the bank.
func (s *Service) SubmitBatch(ctx context.Context, id uuid.UUID) (*domain.DirectDebitBatch, error) {
	if _, err := s.batches.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("SubmitBatch: %w", err)
	}
	if err := s.batches.MarkSubmitted(ctx, id, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("SubmitBatch: %w", err)
	}

	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("SubmitBatch: %w", err)
	}
	logging.FromContext(ctx).Info("direct debit batch submitted", "batch_id", id)
	return batch, nil
}

func (s *Service) GetBatch(ctx context.Context, id uuid.UUID) (*domain.DirectDebitBatch, error) {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetBatch: %w", err)
	}
	return batch, nil
}

func (s *Service) ListBatches(ctx context.Context, limit, offset int) ([]domain.DirectDebitBatch, int, error) {
	batches, total, err := s.batches.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListBatches: %w", err)
	}
	return batches, total, nil
}

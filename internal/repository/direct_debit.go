package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verenigingen/backend/internal/domain"
)

const batchColumns = `id, batch_date, status, total_amount, entry_count,
	submitted_at, created_at`

const batchItemColumns = `id, batch_id, invoice_id, mandate_id, member_id,
	amount, sequence_type, created_at`

type DirectDebitRepository struct {
	db *sql.DB
}

func NewDirectDebitRepository(db *sql.DB) *DirectDebitRepository {
	return &DirectDebitRepository{db: db}
}

func (r *DirectDebitRepository) CreateBatch(ctx context.Context, tx *sql.Tx, b *domain.DirectDebitBatch) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO dd_batches (
			id, batch_date, status, total_amount, entry_count, submitted_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.BatchDate, b.Status, b.TotalAmount, b.EntryCount, b.SubmittedAt, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("CreateBatch: %w", err)
	}
	return nil
}

func (r *DirectDebitRepository) CreateItem(ctx context.Context, tx *sql.Tx, item *domain.DirectDebitBatchItem) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO dd_batch_items (
			id, batch_id, invoice_id, mandate_id, member_id,
			amount, sequence_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.BatchID, item.InvoiceID, item.MandateID, item.MemberID,
		item.Amount, item.SequenceType, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("CreateItem: %w", err)
	}
	return nil
}

func (r *DirectDebitRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DirectDebitBatch, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM dd_batches WHERE id = $1`, id,
	)
	b, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	if err := r.loadItems(ctx, b); err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return b, nil
}

func (r *DirectDebitRepository) List(ctx context.Context, limit, offset int) ([]domain.DirectDebitBatch, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM dd_batches`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("List: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM dd_batches
		ORDER BY batch_date DESC, created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var batches []domain.DirectDebitBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("List: scan: %w", err)
		}
		batches = append(batches, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("List: rows: %w", err)
	}
	return batches, total, nil
}

func (r *DirectDebitRepository) MarkSubmitted(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dd_batches SET status = $1, submitted_at = $2
		WHERE id = $3 AND status = $4`,
		domain.BatchStatusSubmitted, at, id, domain.BatchStatusDraft,
	)
	if err != nil {
		return fmt.Errorf("MarkSubmitted: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkSubmitted: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkSubmitted: %w", domain.ErrBatchNotDraft)
	}
	return nil
}

// ListCollectables finds open sales invoices of direct-debit members with an
// active mandate that have not been placed in a batch yet. FirstCollection
// marks mandates that have never been collected under, oldest invoice first.
func (r *DirectDebitRepository) ListCollectables(ctx context.Context) ([]domain.CollectableInvoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.id, i.external_number, m.id, sm.id, sm.mandate_ref, sm.iban, sm.bic,
			i.outstanding,
			NOT EXISTS (
				SELECT 1 FROM dd_batch_items pi WHERE pi.mandate_id = sm.id
			) AS first_collection
		FROM invoices i
		JOIN members m ON m.relation_id = i.relation_id
		JOIN sepa_mandates sm ON sm.member_id = m.id AND sm.status = $1
		WHERE i.kind = $2 AND i.status = $3 AND i.outstanding > 0
			AND m.payment_method = $4
			AND NOT EXISTS (
				SELECT 1 FROM dd_batch_items bi WHERE bi.invoice_id = i.id
			)
		ORDER BY i.posting_date, i.created_at`,
		domain.MandateStatusActive, domain.InvoiceKindSales,
		domain.InvoiceStatusSubmitted, domain.PaymentMethodDirectDebit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListCollectables: %w", err)
	}
	defer rows.Close()

	var collectables []domain.CollectableInvoice
	for rows.Next() {
		var c domain.CollectableInvoice
		err := rows.Scan(
			&c.InvoiceID, &c.InvoiceNumber, &c.MemberID, &c.MandateID,
			&c.MandateRef, &c.IBAN, &c.BIC, &c.Amount, &c.FirstCollection,
		)
		if err != nil {
			return nil, fmt.Errorf("ListCollectables: scan: %w", err)
		}
		collectables = append(collectables, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCollectables: rows: %w", err)
	}
	return collectables, nil
}

func (r *DirectDebitRepository) loadItems(ctx context.Context, b *domain.DirectDebitBatch) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+batchItemColumns+` FROM dd_batch_items
		WHERE batch_id = $1 ORDER BY created_at`, b.ID,
	)
	if err != nil {
		return fmt.Errorf("loadItems: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.DirectDebitBatchItem
		err := rows.Scan(
			&item.ID, &item.BatchID, &item.InvoiceID, &item.MandateID, &item.MemberID,
			&item.Amount, &item.SequenceType, &item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("loadItems: scan: %w", err)
		}
		b.Items = append(b.Items, item)
	}
	return rows.Err()
}

func scanBatch(s scanner) (*domain.DirectDebitBatch, error) {
	var b domain.DirectDebitBatch
	err := s.Scan(
		&b.ID, &b.BatchDate, &b.Status, &b.TotalAmount, &b.EntryCount,
		&b.SubmittedAt, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

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

const paymentEntryColumns = `id, mutation_id, mutation_type, direction, party_type,
	relation_id, bank_account, party_account, amount, unallocated, reference,
	remarks, posting_date, status, created_at, cancelled_at`

const allocationColumns = `id, entry_id, invoice_id, grand_total, outstanding,
	allocated, created_at`

type PaymentEntryRepository struct {
	db *sql.DB
}

func NewPaymentEntryRepository(db *sql.DB) *PaymentEntryRepository {
	return &PaymentEntryRepository{db: db}
}

func (r *PaymentEntryRepository) Create(ctx context.Context, tx *sql.Tx, e *domain.PaymentEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payment_entries (
			id, mutation_id, mutation_type, direction, party_type,
			relation_id, bank_account, party_account, amount, unallocated,
			reference, remarks, posting_date, status, created_at, cancelled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID, e.MutationID, e.MutationType, e.Direction, e.PartyType,
		e.RelationID, e.BankAccount, e.PartyAccount, e.Amount, e.Unallocated,
		e.Reference, e.Remarks, e.PostingDate, e.Status, e.CreatedAt, e.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	for i := range e.Allocations {
		a := &e.Allocations[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO payment_allocations (
				id, entry_id, invoice_id, grand_total, outstanding, allocated, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.ID, a.EntryID, a.InvoiceID, a.GrandTotal, a.Outstanding, a.Allocated, a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("Create: allocation: %w", err)
		}
	}
	return nil
}

func (r *PaymentEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentEntryColumns+` FROM payment_entries WHERE id = $1`, id,
	)
	e, err := scanPaymentEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}

	if err := r.loadAllocations(ctx, e); err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return e, nil
}

func (r *PaymentEntryRepository) GetByMutationID(ctx context.Context, mutationID int64) (*domain.PaymentEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentEntryColumns+` FROM payment_entries WHERE mutation_id = $1`, mutationID,
	)
	e, err := scanPaymentEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByMutationID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByMutationID: %w", err)
	}

	if err := r.loadAllocations(ctx, e); err != nil {
		return nil, fmt.Errorf("GetByMutationID: %w", err)
	}
	return e, nil
}

func (r *PaymentEntryRepository) List(ctx context.Context, limit, offset int) ([]domain.PaymentEntry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payment_entries`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("List: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentEntryColumns+` FROM payment_entries
		ORDER BY posting_date DESC, mutation_id DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var entries []domain.PaymentEntry
	for rows.Next() {
		e, err := scanPaymentEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("List: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("List: rows: %w", err)
	}
	return entries, total, nil
}

func (r *PaymentEntryRepository) MarkCancelled(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE payment_entries SET status = $1, cancelled_at = $2
		WHERE id = $3 AND status = $4`,
		domain.PaymentEntryStatusCancelled, at, id, domain.PaymentEntryStatusSubmitted,
	)
	if err != nil {
		return fmt.Errorf("MarkCancelled: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkCancelled: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkCancelled: %w", domain.ErrEntryCancelled)
	}
	return nil
}

func (r *PaymentEntryRepository) loadAllocations(ctx context.Context, e *domain.PaymentEntry) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+allocationColumns+` FROM payment_allocations
		WHERE entry_id = $1 ORDER BY created_at, id`, e.ID,
	)
	if err != nil {
		return fmt.Errorf("loadAllocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.PaymentAllocation
		err := rows.Scan(&a.ID, &a.EntryID, &a.InvoiceID, &a.GrandTotal, &a.Outstanding, &a.Allocated, &a.CreatedAt)
		if err != nil {
			return fmt.Errorf("loadAllocations: scan: %w", err)
		}
		e.Allocations = append(e.Allocations, a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loadAllocations: rows: %w", err)
	}
	return nil
}

func scanPaymentEntry(s scanner) (*domain.PaymentEntry, error) {
	var e domain.PaymentEntry
	err := s.Scan(
		&e.ID, &e.MutationID, &e.MutationType, &e.Direction, &e.PartyType,
		&e.RelationID, &e.BankAccount, &e.PartyAccount, &e.Amount, &e.Unallocated,
		&e.Reference, &e.Remarks, &e.PostingDate, &e.Status, &e.CreatedAt, &e.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

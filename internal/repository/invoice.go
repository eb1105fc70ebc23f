package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verenigingen/backend/internal/domain"
)

const invoiceColumns = `id, kind, external_number, relation_id, party_account,
	grand_total, outstanding, posting_date, status, created_at`

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invoices (
			id, kind, external_number, relation_id, party_account,
			grand_total, outstanding, posting_date, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inv.ID, inv.Kind, inv.ExternalNumber, inv.RelationID, inv.PartyAccount,
		inv.GrandTotal, inv.Outstanding, inv.PostingDate, inv.Status, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return inv, nil
}

// FindOpenByNumber matches one invoice reference against open invoices for
// the party: first by external bookkeeping number, then by internal id.
// Only submitted invoices with a positive outstanding amount qualify.
func (r *InvoiceRepository) FindOpenByNumber(ctx context.Context, kind domain.InvoiceKind, relationID, number string) ([]domain.Invoice, error) {
	invoices, err := r.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		WHERE kind = $1 AND relation_id = $2 AND external_number = $3
		  AND status = $4 AND outstanding > 0
		ORDER BY posting_date`,
		kind, relationID, number, domain.InvoiceStatusSubmitted,
	)
	if err != nil {
		return nil, fmt.Errorf("FindOpenByNumber: %w", err)
	}
	if len(invoices) > 0 {
		return invoices, nil
	}

	id, err := uuid.Parse(number)
	if err != nil {
		return nil, nil
	}
	invoices, err = r.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		WHERE kind = $1 AND relation_id = $2 AND id = $3
		  AND status = $4 AND outstanding > 0`,
		kind, relationID, id, domain.InvoiceStatusSubmitted,
	)
	if err != nil {
		return nil, fmt.Errorf("FindOpenByNumber: %w", err)
	}
	return invoices, nil
}

// AdjustOutstanding applies a signed delta to the invoice's outstanding
// amount inside the caller's transaction, marking the invoice paid when the
// balance reaches zero.
func (r *InvoiceRepository) AdjustOutstanding(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE invoices
		SET outstanding = outstanding + $1,
		    status = CASE WHEN outstanding + $1 <= 0 THEN $2 ELSE $3 END
		WHERE id = $4`,
		delta, domain.InvoiceStatusPaid, domain.InvoiceStatusSubmitted, id,
	)
	if err != nil {
		return fmt.Errorf("AdjustOutstanding: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("AdjustOutstanding: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("AdjustOutstanding: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *InvoiceRepository) queryInvoices(ctx context.Context, query string, args ...any) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return invoices, nil
}

func scanInvoice(s scanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := s.Scan(
		&inv.ID, &inv.Kind, &inv.ExternalNumber, &inv.RelationID, &inv.PartyAccount,
		&inv.GrandTotal, &inv.Outstanding, &inv.PostingDate, &inv.Status, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

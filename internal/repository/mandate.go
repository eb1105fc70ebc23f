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

const mandateColumns = `id, mandate_ref, member_id, iban, bic, account_holder,
	sign_date, status, cancelled_at, cancellation_reason, created_at`

type MandateRepository struct {
	db *sql.DB
}

func NewMandateRepository(db *sql.DB) *MandateRepository {
	return &MandateRepository{db: db}
}

func (r *MandateRepository) Create(ctx context.Context, tx *sql.Tx, m *domain.SEPAMandate) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sepa_mandates (
			id, mandate_ref, member_id, iban, bic, account_holder,
			sign_date, status, cancelled_at, cancellation_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.MandateRef, m.MemberID, m.IBAN, m.BIC, m.AccountHolder,
		m.SignDate, m.Status, m.CancelledAt, m.CancellationReason, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrMandateExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *MandateRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SEPAMandate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+mandateColumns+` FROM sepa_mandates WHERE id = $1`, id,
	)
	m, err := scanMandate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return m, nil
}

func (r *MandateRepository) ListActiveByMember(ctx context.Context, memberID uuid.UUID) ([]domain.SEPAMandate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+mandateColumns+` FROM sepa_mandates
		WHERE member_id = $1 AND status = $2 ORDER BY sign_date`,
		memberID, domain.MandateStatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("ListActiveByMember: %w", err)
	}
	defer rows.Close()

	var mandates []domain.SEPAMandate
	for rows.Next() {
		m, err := scanMandate(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActiveByMember: scan: %w", err)
		}
		mandates = append(mandates, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListActiveByMember: rows: %w", err)
	}
	return mandates, nil
}

func (r *MandateRepository) Cancel(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE sepa_mandates SET status = $1, cancelled_at = $2, cancellation_reason = $3
		WHERE id = $4 AND status = $5`,
		domain.MandateStatusCancelled, at, reason, id, domain.MandateStatusActive,
	)
	if err != nil {
		return fmt.Errorf("Cancel: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Cancel: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Cancel: %w", domain.ErrMandateInactive)
	}
	return nil
}

func scanMandate(s scanner) (*domain.SEPAMandate, error) {
	var m domain.SEPAMandate
	err := s.Scan(
		&m.ID, &m.MandateRef, &m.MemberID, &m.IBAN, &m.BIC, &m.AccountHolder,
		&m.SignDate, &m.Status, &m.CancelledAt, &m.CancellationReason, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

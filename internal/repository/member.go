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

const memberColumns = `id, email, full_name, relation_id, iban, bic,
	account_holder, payment_method, status, created_at, updated_at`

type MemberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Create(ctx context.Context, m *domain.Member) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (
			id, email, full_name, relation_id, iban, bic,
			account_holder, payment_method, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.Email, m.FullName, m.RelationID, m.IBAN, m.BIC,
		m.AccountHolder, m.PaymentMethod, m.Status, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrMemberExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *MemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1`, id,
	)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return m, nil
}

func (r *MemberRepository) GetByRelationID(ctx context.Context, relationID string) (*domain.Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE relation_id = $1`, relationID,
	)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByRelationID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByRelationID: %w", err)
	}
	return m, nil
}

func (r *MemberRepository) List(ctx context.Context, limit, offset int) ([]domain.Member, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("List: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("List: scan: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("List: rows: %w", err)
	}
	return members, total, nil
}

func (r *MemberRepository) UpdateBankDetails(ctx context.Context, tx *sql.Tx, id uuid.UUID, iban, bic, accountHolder *string, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE members SET iban = $1, bic = $2, account_holder = $3, updated_at = $4
		WHERE id = $5`,
		iban, bic, accountHolder, at, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateBankDetails: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBankDetails: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateBankDetails: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *MemberRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.MemberStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE members SET status = $1, updated_at = $2 WHERE id = $3`,
		status, at, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func scanMember(s scanner) (*domain.Member, error) {
	var m domain.Member
	err := s.Scan(
		&m.ID, &m.Email, &m.FullName, &m.RelationID, &m.IBAN, &m.BIC,
		&m.AccountHolder, &m.PaymentMethod, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

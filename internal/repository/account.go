package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/verenigingen/backend/internal/domain"
)

const accountColumns = `code, name, account_type, is_group, disabled, created_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByCode(ctx context.Context, code string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE code = $1`, code,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByCode: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByCode: %w", err)
	}
	return a, nil
}

// GetAnyActiveBank returns the first enabled non-group bank account, ordered
// by code so the result is stable.
func (r *AccountRepository) GetAnyActiveBank(ctx context.Context) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		WHERE account_type = $1 AND is_group = false AND disabled = false
		ORDER BY code LIMIT 1`, domain.AccountTypeBank,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetAnyActiveBank: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetAnyActiveBank: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (code, name, account_type, is_group, disabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.Code, a.Name, a.AccountType, a.IsGroup, a.Disabled, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(&a.Code, &a.Name, &a.AccountType, &a.IsGroup, &a.Disabled, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/verenigingen/backend/internal/domain"
)

const ledgerMappingColumns = `ledger_id, ledger_code, ledger_name, account_code, created_at`

type LedgerMappingRepository struct {
	db *sql.DB
}

func NewLedgerMappingRepository(db *sql.DB) *LedgerMappingRepository {
	return &LedgerMappingRepository{db: db}
}

func (r *LedgerMappingRepository) GetByLedgerID(ctx context.Context, ledgerID int64) (*domain.LedgerMapping, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ledgerMappingColumns+` FROM ledger_mappings WHERE ledger_id = $1`, ledgerID,
	)
	m, err := scanLedgerMapping(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByLedgerID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByLedgerID: %w", err)
	}
	return m, nil
}

func (r *LedgerMappingRepository) List(ctx context.Context) ([]domain.LedgerMapping, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerMappingColumns+` FROM ledger_mappings ORDER BY ledger_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var mappings []domain.LedgerMapping
	for rows.Next() {
		m, err := scanLedgerMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		mappings = append(mappings, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return mappings, nil
}

// Upsert keeps mapping import idempotent; re-running setup overwrites the
// target account for an already known ledger id.
func (r *LedgerMappingRepository) Upsert(ctx context.Context, m *domain.LedgerMapping) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_mappings (ledger_id, ledger_code, ledger_name, account_code, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ledger_id) DO UPDATE
		SET ledger_code = EXCLUDED.ledger_code,
		    ledger_name = EXCLUDED.ledger_name,
		    account_code = EXCLUDED.account_code`,
		m.LedgerID, m.LedgerCode, m.LedgerName, m.AccountCode, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func scanLedgerMapping(s scanner) (*domain.LedgerMapping, error) {
	var m domain.LedgerMapping
	err := s.Scan(&m.LedgerID, &m.LedgerCode, &m.LedgerName, &m.AccountCode, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

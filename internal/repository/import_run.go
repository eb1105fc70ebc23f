package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/verenigingen/backend/internal/domain"
)

const importRunColumns = `id, status, from_mutation_id, to_mutation_id,
	created, skipped, failed, error, started_at, completed_at`

type ImportRunRepository struct {
	db *sql.DB
}

func NewImportRunRepository(db *sql.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

func (r *ImportRunRepository) Create(ctx context.Context, run *domain.ImportRun) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO import_runs (
			id, status, from_mutation_id, to_mutation_id,
			created, skipped, failed, error, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.Status, run.FromMutationID, run.ToMutationID,
		run.Created, run.Skipped, run.Failed, run.Error, run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ImportRunRepository) Update(ctx context.Context, run *domain.ImportRun) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE import_runs SET status = $1, to_mutation_id = $2, created = $3,
		 skipped = $4, failed = $5, error = $6, completed_at = $7
		WHERE id = $8`,
		run.Status, run.ToMutationID, run.Created,
		run.Skipped, run.Failed, run.Error, run.CompletedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Update: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *ImportRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ImportRun, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+importRunColumns+` FROM import_runs WHERE id = $1`, id,
	)
	run, err := scanImportRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return run, nil
}

func (r *ImportRunRepository) GetLatest(ctx context.Context) (*domain.ImportRun, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+importRunColumns+` FROM import_runs ORDER BY started_at DESC LIMIT 1`,
	)
	run, err := scanImportRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetLatest: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetLatest: %w", err)
	}
	return run, nil
}

func (r *ImportRunRepository) HasRunning(ctx context.Context) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM import_runs WHERE status = $1`, domain.ImportRunStatusRunning,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("HasRunning: %w", err)
	}
	return count > 0, nil
}

// LastImportedMutationID is the high-water mark for incremental imports.
func (r *ImportRunRepository) LastImportedMutationID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(to_mutation_id) FROM import_runs WHERE status = $1`,
		domain.ImportRunStatusCompleted,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("LastImportedMutationID: %w", err)
	}
	return id.Int64, nil
}

func scanImportRun(s scanner) (*domain.ImportRun, error) {
	var run domain.ImportRun
	err := s.Scan(
		&run.ID, &run.Status, &run.FromMutationID, &run.ToMutationID,
		&run.Created, &run.Skipped, &run.Failed, &run.Error, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

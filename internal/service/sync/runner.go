package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verenigingen/backend/internal/boekhouden"
	"github.com/verenigingen/backend/internal/domain"
	"github.com/verenigingen/backend/internal/logging"
)

const fetchBatchSize = 500

type mutationSource interface {
	ListMutations(ctx context.Context, params boekhouden.ListMutationsParams) ([]domain.Mutation, error)
}

type importRunRepo interface {
	Create(ctx context.Context, run *domain.ImportRun) error
	Update(ctx context.Context, run *domain.ImportRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ImportRun, error)
	GetLatest(ctx context.Context) (*domain.ImportRun, error)
	HasRunning(ctx context.Context) (bool, error)
	LastImportedMutationID(ctx context.Context) (int64, error)
}

type mutationProcessor interface {
	ProcessMutation(ctx context.Context, m domain.Mutation) (*domain.PaymentEntry, bool, error)
}

// Runner pulls payment mutations from the bookkeeping feed and turns them
// into payment entries. One run at a time; a run picks up after the highest
// mutation id the previous completed run reached.
type Runner struct {
	source   mutationSource
	runs     importRunRepo
	payments mutationProcessor
	interval time.Duration
}

func NewRunner(source mutationSource, runs importRunRepo, payments mutationProcessor, interval time.Duration) *Runner {
	return &Runner{
		source:   source,
		runs:     runs,
		payments: payments,
		interval: interval,
	}
}

// Start polls the feed until the context is cancelled. Failed sweeps are
// logged and retried on the next tick.
func (r *Runner) Start(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("mutation import runner started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("mutation import runner stopped")
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				log.Error("scheduled import failed", "error", err)
			}
		}
	}
}

// Run performs one sweep and returns the completed run record.
func (r *Runner) Run(ctx context.Context) (*domain.ImportRun, error) {
	log := logging.FromContext(ctx)

	running, err := r.runs.HasRunning(ctx)
	if err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}
	if running {
		return nil, fmt.Errorf("Run: %w", domain.ErrImportRunning)
	}

	sinceID, err := r.runs.LastImportedMutationID(ctx)
	if err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	run := &domain.ImportRun{
		ID:             uuid.New(),
		Status:         domain.ImportRunStatusRunning,
		FromMutationID: sinceID,
		ToMutationID:   sinceID,
		StartedAt:      time.Now().UTC(),
	}
	if err := r.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	if err := r.sweep(ctx, run); err != nil {
		msg := err.Error()
		run.Status = domain.ImportRunStatusFailed
		run.Error = &msg
		now := time.Now().UTC()
		run.CompletedAt = &now
		if uerr := r.runs.Update(ctx, run); uerr != nil {
			log.Error("could not record failed run", "run_id", run.ID, "error", uerr)
		}
		return run, fmt.Errorf("Run: %w", err)
	}

	run.Status = domain.ImportRunStatusCompleted
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err := r.runs.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	log.Info("import run completed",
		"run_id", run.ID,
		"from", run.FromMutationID,
		"to", run.ToMutationID,
		"created", run.Created,
		"skipped", run.Skipped,
		"failed", run.Failed,
	)
	return run, nil
}

// sweep pages through the feed from the run's starting point. A mutation
// that cannot be processed is counted and skipped; the sweep keeps going so
// one bad record never blocks the feed.
func (r *Runner) sweep(ctx context.Context, run *domain.ImportRun) error {
	log := logging.FromContext(ctx)

	for {
		mutations, err := r.source.ListMutations(ctx, boekhouden.ListMutationsParams{
			SinceID: run.ToMutationID,
			Types:   []int{domain.MutationTypeCustomerPayment, domain.MutationTypeSupplierPayment},
			Limit:   fetchBatchSize,
		})
		if err != nil {
			return fmt.Errorf("list mutations: %w", err)
		}
		if len(mutations) == 0 {
			return nil
		}

		for _, m := range mutations {
			_, created, err := r.payments.ProcessMutation(ctx, m)
			switch {
			case err != nil:
				run.Failed++
				log.Error("mutation import failed", "mutation_id", m.ID, "error", err)
			case created:
				run.Created++
			default:
				run.Skipped++
			}

			if m.ID > run.ToMutationID {
				run.ToMutationID = m.ID
			}
		}

		// Persist progress between pages so an aborted sweep resumes
		// close to where it stopped.
		if err := r.runs.Update(ctx, run); err != nil {
			return fmt.Errorf("update run: %w", err)
		}

		if len(mutations) < fetchBatchSize {
			return nil
		}
	}
}

// Status returns the run by id, or the most recent run when id is nil.
func (r *Runner) Status(ctx context.Context, id *uuid.UUID) (*domain.ImportRun, error) {
	if id != nil {
		run, err := r.runs.GetByID(ctx, *id)
		if err != nil {
			return nil, fmt.Errorf("Status: %w", err)
		}
		return run, nil
	}
	run, err := r.runs.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("Status: %w", err)
	}
	return run, nil
}

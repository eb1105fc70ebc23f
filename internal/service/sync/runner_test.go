package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verenigingen/backend/internal/boekhouden"
	"github.com/verenigingen/backend/internal/domain"
)

type fakeSource struct {
	mutations []domain.Mutation
	calls     []boekhouden.ListMutationsParams
	err       error
}

func (f *fakeSource) ListMutations(_ context.Context, params boekhouden.ListMutationsParams) ([]domain.Mutation, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Mutation
	for _, m := range f.mutations {
		if m.ID <= params.SinceID {
			continue
		}
		out = append(out, m)
		if params.Limit > 0 && len(out) == params.Limit {
			break
		}
	}
	return out, nil
}

type fakeRunRepo struct {
	runs    map[uuid.UUID]*domain.ImportRun
	lastID  int64
	running bool
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: make(map[uuid.UUID]*domain.ImportRun)}
}

func (f *fakeRunRepo) Create(_ context.Context, run *domain.ImportRun) error {
	cp := *run
	f.runs[run.ID] = &cp
	return nil
}

func (f *fakeRunRepo) Update(_ context.Context, run *domain.ImportRun) error {
	cp := *run
	f.runs[run.ID] = &cp
	return nil
}

func (f *fakeRunRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.ImportRun, error) {
	if run, ok := f.runs[id]; ok {
		return run, nil
	}
	return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
}

func (f *fakeRunRepo) GetLatest(_ context.Context) (*domain.ImportRun, error) {
	var latest *domain.ImportRun
	for _, run := range f.runs {
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("GetLatest: %w", domain.ErrNotFound)
	}
	return latest, nil
}

func (f *fakeRunRepo) HasRunning(_ context.Context) (bool, error) {
	return f.running, nil
}

func (f *fakeRunRepo) LastImportedMutationID(_ context.Context) (int64, error) {
	return f.lastID, nil
}

type fakeProcessor struct {
	failIDs map[int64]bool
	skipIDs map[int64]bool
	seen    []int64
}

func (f *fakeProcessor) ProcessMutation(_ context.Context, m domain.Mutation) (*domain.PaymentEntry, bool, error) {
	f.seen = append(f.seen, m.ID)
	if f.failIDs[m.ID] {
		return nil, false, errors.New("boom")
	}
	if f.skipIDs[m.ID] {
		return nil, false, nil
	}
	return &domain.PaymentEntry{ID: uuid.New(), MutationID: m.ID}, true, nil
}

func paymentMutation(id int64) domain.Mutation {
	return domain.Mutation{
		ID:         id,
		Type:       domain.MutationTypeCustomerPayment,
		Date:       time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.RequireFromString("25.00"),
		RelationID: "REL-001",
	}
}

func TestRun_ImportsNewMutations(t *testing.T) {
	source := &fakeSource{mutations: []domain.Mutation{
		paymentMutation(101), paymentMutation(102), paymentMutation(103),
	}}
	runs := newFakeRunRepo()
	proc := &fakeProcessor{}
	runner := NewRunner(source, runs, proc, time.Minute)

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ImportRunStatusCompleted, run.Status)
	assert.Equal(t, 3, run.Created)
	assert.Equal(t, 0, run.Skipped)
	assert.Equal(t, 0, run.Failed)
	assert.Equal(t, int64(103), run.ToMutationID)
	assert.Equal(t, []int64{101, 102, 103}, proc.seen)
	require.NotEmpty(t, source.calls)
	assert.Equal(t, []int{3, 4}, source.calls[0].Types)
}

func TestRun_ResumesAfterLastImportedID(t *testing.T) {
	source := &fakeSource{mutations: []domain.Mutation{
		paymentMutation(101), paymentMutation(102), paymentMutation(103),
	}}
	runs := newFakeRunRepo()
	runs.lastID = 102
	proc := &fakeProcessor{}
	runner := NewRunner(source, runs, proc, time.Minute)

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{103}, proc.seen)
	assert.Equal(t, int64(102), run.FromMutationID)
	assert.Equal(t, int64(103), run.ToMutationID)
}

func TestRun_CountsFailedAndSkipped(t *testing.T) {
	source := &fakeSource{mutations: []domain.Mutation{
		paymentMutation(1), paymentMutation(2), paymentMutation(3),
	}}
	runs := newFakeRunRepo()
	proc := &fakeProcessor{
		failIDs: map[int64]bool{2: true},
		skipIDs: map[int64]bool{3: true},
	}
	runner := NewRunner(source, runs, proc, time.Minute)

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ImportRunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Created)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, int64(3), run.ToMutationID, "failed mutations still advance the cursor")
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	runs := newFakeRunRepo()
	runs.running = true
	runner := NewRunner(&fakeSource{}, runs, &fakeProcessor{}, time.Minute)

	_, err := runner.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrImportRunning)
}

func TestRun_FeedErrorMarksRunFailed(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	runs := newFakeRunRepo()
	runner := NewRunner(source, runs, &fakeProcessor{}, time.Minute)

	run, err := runner.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, domain.ImportRunStatusFailed, run.Status)
	require.NotNil(t, run.Error)
	assert.Contains(t, *run.Error, "connection refused")
}

func TestRun_EmptyFeed(t *testing.T) {
	runs := newFakeRunRepo()
	runner := NewRunner(&fakeSource{}, runs, &fakeProcessor{}, time.Minute)

	run, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ImportRunStatusCompleted, run.Status)
	assert.Zero(t, run.Created)
}

func TestStatus(t *testing.T) {
	runs := newFakeRunRepo()
	runner := NewRunner(&fakeSource{}, runs, &fakeProcessor{}, time.Minute)
	ctx := context.Background()

	first, err := runner.Run(ctx)
	require.NoError(t, err)

	got, err := runner.Status(ctx, &first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	latest, err := runner.Status(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)

	unknown := uuid.New()
	_, err = runner.Status(ctx, &unknown)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

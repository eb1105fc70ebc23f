package mandate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verenigingen/backend/internal/domain"
	"github.com/verenigingen/backend/internal/repository"
	"github.com/verenigingen/backend/internal/testutil"
)

func setupMandateTest(t *testing.T) (*Service, *sql.DB, uuid.UUID) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	svc := NewService(repository.NewMandateRepository(db), repository.NewMemberRepository(db), db)
	memberID := testutil.SeedMember(t, db, "REL-042")
	return svc, db, memberID
}

func getMember(t *testing.T, db *sql.DB, id uuid.UUID) *domain.Member {
	t.Helper()

	m, err := repository.NewMemberRepository(db).GetByID(context.Background(), id)
	require.NoError(t, err)
	return m
}

func TestCreateMandate(t *testing.T) {
	svc, db, memberID := setupMandateTest(t)
	signDate := time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)

	m, err := svc.CreateMandate(context.Background(), CreateMandateInput{
		MemberID: memberID,
		IBAN:     "nl91 abna 0417 1643 00",
		SignDate: signDate,
	})
	require.NoError(t, err)

	assert.Equal(t, "NL91ABNA0417164300", m.IBAN)
	require.NotNil(t, m.BIC)
	assert.Equal(t, "ABNANL2A", *m.BIC, "BIC should be derived from the bank code")
	assert.Equal(t, "Member REL-042", m.AccountHolder, "holder defaults to the member name")
	assert.Equal(t, domain.MandateStatusActive, m.Status)
	assert.Contains(t, m.MandateRef, "REL-042")
	assert.Contains(t, m.MandateRef, "20250214")

	member := getMember(t, db, memberID)
	require.NotNil(t, member.IBAN)
	assert.Equal(t, "NL91ABNA0417164300", *member.IBAN)
}

func TestCreateMandate_ExplicitBICKept(t *testing.T) {
	svc, _, memberID := setupMandateTest(t)

	m, err := svc.CreateMandate(context.Background(), CreateMandateInput{
		MemberID:      memberID,
		IBAN:          "NL91ABNA0417164300",
		BIC:           "ABNANL2AXXX",
		AccountHolder: "A. de Vries",
		SignDate:      time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, "ABNANL2AXXX", *m.BIC)
	assert.Equal(t, "A. de Vries", m.AccountHolder)
}

func TestCreateMandate_InvalidIBAN(t *testing.T) {
	svc, _, memberID := setupMandateTest(t)

	_, err := svc.CreateMandate(context.Background(), CreateMandateInput{
		MemberID: memberID,
		IBAN:     "NL91ABNA0417164301",
		SignDate: time.Now().UTC(),
	})
	require.ErrorIs(t, err, domain.ErrInvalidIBAN)
}

func TestCreateMandate_NewIBANCancelsOldMandate(t *testing.T) {
	svc, db, memberID := setupMandateTest(t)
	ctx := context.Background()

	first, err := svc.CreateMandate(ctx, CreateMandateInput{
		MemberID: memberID,
		IBAN:     "NL91ABNA0417164300",
		SignDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	second, err := svc.CreateMandate(ctx, CreateMandateInput{
		MemberID: memberID,
		IBAN:     "NL39RABO0300065264",
		SignDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	old, err := repository.NewMandateRepository(db).GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MandateStatusCancelled, old.Status)
	require.NotNil(t, old.CancellationReason)
	assert.Contains(t, *old.CancellationReason, "NL39 RABO")

	active, err := svc.ListActive(ctx, memberID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	member := getMember(t, db, memberID)
	require.NotNil(t, member.IBAN)
	assert.Equal(t, "NL39RABO0300065264", *member.IBAN)
}

func TestCreateMandate_DuplicateIBANRejected(t *testing.T) {
	svc, _, memberID := setupMandateTest(t)
	ctx := context.Background()

	_, err := svc.CreateMandate(ctx, CreateMandateInput{
		MemberID: memberID,
		IBAN:     "NL91ABNA0417164300",
		SignDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = svc.CreateMandate(ctx, CreateMandateInput{
		MemberID: memberID,
		IBAN:     "nl91abna0417164300",
		SignDate: time.Now().UTC(),
	})
	require.ErrorIs(t, err, domain.ErrMandateExists)
}

func TestCreateMandate_RejectedDuplicateLeavesOtherMandatesIntact(t *testing.T) {
	svc, db, memberID := setupMandateTest(t)
	ctx := context.Background()

	// Two active mandates on different IBANs, as drift can leave behind.
	oldID := testutil.SeedMandate(t, db, memberID, "M-OLD", "NL91ABNA0417164300")
	testutil.SeedMandate(t, db, memberID, "M-CUR", "NL39RABO0300065264")

	_, err := svc.CreateMandate(ctx, CreateMandateInput{
		MemberID: memberID,
		IBAN:     "NL39RABO0300065264",
		SignDate: time.Now().UTC(),
	})
	require.ErrorIs(t, err, domain.ErrMandateExists)

	// A rejected create must not have cancelled anything on the way.
	old, err := repository.NewMandateRepository(db).GetByID(ctx, oldID)
	require.NoError(t, err)
	assert.Equal(t, domain.MandateStatusActive, old.Status)

	active, err := svc.ListActive(ctx, memberID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestDeactivateOnIBANChange(t *testing.T) {
	svc, db, memberID := setupMandateTest(t)
	ctx := context.Background()

	m, err := svc.CreateMandate(ctx, CreateMandateInput{
		MemberID: memberID,
		IBAN:     "NL91ABNA0417164300",
		SignDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	cancelled, err := svc.DeactivateOnIBANChange(ctx, memberID, "NL39 RABO 0300 0652 64")
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, m.ID, cancelled[0].ID)

	got, err := repository.NewMandateRepository(db).GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MandateStatusCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)
	assert.Contains(t, *got.CancellationReason, "Bank account changed")

	member := getMember(t, db, memberID)
	require.NotNil(t, member.IBAN)
	assert.Equal(t, "NL39RABO0300065264", *member.IBAN)
	require.NotNil(t, member.BIC)
	assert.Equal(t, "RABONL2U", *member.BIC)

	// Same IBAN again: nothing left to cancel.
	cancelled, err = svc.DeactivateOnIBANChange(ctx, memberID, "NL39RABO0300065264")
	require.NoError(t, err)
	assert.Empty(t, cancelled)
}

func TestDeactivateOnIBANChange_InvalidIBAN(t *testing.T) {
	svc, _, memberID := setupMandateTest(t)

	_, err := svc.DeactivateOnIBANChange(context.Background(), memberID, "NL00BANK")
	require.ErrorIs(t, err, domain.ErrInvalidIBAN)
}

func TestCancelMandate(t *testing.T) {
	svc, db, memberID := setupMandateTest(t)
	ctx := context.Background()

	m, err := svc.CreateMandate(ctx, CreateMandateInput{
		MemberID: memberID,
		IBAN:     "NL91ABNA0417164300",
		SignDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.CancelMandate(ctx, m.ID, "Lidmaatschap opgezegd"))

	got, err := repository.NewMandateRepository(db).GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MandateStatusCancelled, got.Status)

	err = svc.CancelMandate(ctx, m.ID, "again")
	require.ErrorIs(t, err, domain.ErrMandateInactive)
}

func TestCancelMandate_Unknown(t *testing.T) {
	svc, _, _ := setupMandateTest(t)

	err := svc.CancelMandate(context.Background(), uuid.New(), "whatever")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

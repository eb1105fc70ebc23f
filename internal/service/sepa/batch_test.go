package sepa

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verenigingen/backend/internal/domain"
	"github.com/verenigingen/backend/internal/repository"
	"github.com/verenigingen/backend/internal/testutil"
)

func setupBatchTest(t *testing.T) (*Service, *sql.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	svc := NewService(repository.NewDirectDebitRepository(db), db)
	return svc, db
}

// seedDirectDebitMember creates an active member who pays by direct debit
// and holds an active mandate.
func seedDirectDebitMember(t *testing.T, db *sql.DB, relationID, mandateRef, iban string) (uuid.UUID, uuid.UUID) {
	t.Helper()

	memberID := testutil.SeedMember(t, db, relationID)
	_, err := db.Exec(
		`UPDATE members SET payment_method = $1 WHERE id = $2`,
		domain.PaymentMethodDirectDebit, memberID,
	)
	require.NoError(t, err)
	mandateID := testutil.SeedMandate(t, db, memberID, mandateRef, iban)
	return memberID, mandateID
}

func TestCreateBatch(t *testing.T) {
	svc, db := setupBatchTest(t)
	ctx := context.Background()

	memberID, mandateID := seedDirectDebitMember(t, db, "REL-100", "M-100", "NL91ABNA0417164300")
	inv1 := testutil.SeedInvoice(t, db, domain.InvoiceKindSales, "SI-2025-001", "REL-100",
		decimal.RequireFromString("50.00"), time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	inv2 := testutil.SeedInvoice(t, db, domain.InvoiceKindSales, "SI-2025-002", "REL-100",
		decimal.RequireFromString("35.00"), time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC))

	batchDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	batch, err := svc.CreateBatch(ctx, batchDate)
	require.NoError(t, err)

	assert.Equal(t, domain.BatchStatusDraft, batch.Status)
	assert.Equal(t, 2, batch.EntryCount)
	assert.True(t, batch.TotalAmount.Equal(decimal.RequireFromString("85.00")))
	require.Len(t, batch.Items, 2)

	// Items come out in posting-date order; only the first collection
	// under the mandate is FRST.
	assert.Equal(t, inv1, batch.Items[0].InvoiceID)
	assert.Equal(t, domain.SequenceTypeFirst, batch.Items[0].SequenceType)
	assert.Equal(t, inv2, batch.Items[1].InvoiceID)
	assert.Equal(t, domain.SequenceTypeRecurring, batch.Items[1].SequenceType)
	for _, item := range batch.Items {
		assert.Equal(t, mandateID, item.MandateID)
		assert.Equal(t, memberID, item.MemberID)
	}

	stored, err := svc.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.EntryCount)
	assert.True(t, stored.BatchDate.Equal(batchDate))
	require.Len(t, stored.Items, 2)
}

func TestCreateBatch_SkipsNonDirectDebitMembers(t *testing.T) {
	svc, db := setupBatchTest(t)
	ctx := context.Background()

	// Pays by bank transfer, so the open invoice is not collectable.
	memberID := testutil.SeedMember(t, db, "REL-101")
	testutil.SeedMandate(t, db, memberID, "M-101", "NL39RABO0300065264")
	testutil.SeedInvoice(t, db, domain.InvoiceKindSales, "SI-2025-010", "REL-101",
		decimal.RequireFromString("25.00"), time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))

	_, err := svc.CreateBatch(ctx, time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrNothingToCollect)
}

func TestCreateBatch_InvoiceCollectedOnce(t *testing.T) {
	svc, db := setupBatchTest(t)
	ctx := context.Background()

	seedDirectDebitMember(t, db, "REL-102", "M-102", "NL91ABNA0417164300")
	testutil.SeedInvoice(t, db, domain.InvoiceKindSales, "SI-2025-020", "REL-102",
		decimal.RequireFromString("40.00"), time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC))

	first, err := svc.CreateBatch(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, first.EntryCount)

	// The invoice already sits in a batch, so a second run finds nothing.
	_, err = svc.CreateBatch(ctx, time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrNothingToCollect)
}

func TestCreateBatch_RecurringAfterFirstBatch(t *testing.T) {
	svc, db := setupBatchTest(t)
	ctx := context.Background()

	seedDirectDebitMember(t, db, "REL-103", "M-103", "NL56INGB0001234567")
	testutil.SeedInvoice(t, db, domain.InvoiceKindSales, "SI-2025-030", "REL-103",
		decimal.RequireFromString("30.00"), time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC))

	first, err := svc.CreateBatch(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	assert.Equal(t, domain.SequenceTypeFirst, first.Items[0].SequenceType)

	testutil.SeedInvoice(t, db, domain.InvoiceKindSales, "SI-2025-031", "REL-103",
		decimal.RequireFromString("30.00"), time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC))

	second, err := svc.CreateBatch(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, domain.SequenceTypeRecurring, second.Items[0].SequenceType)
}

func TestSubmitBatch(t *testing.T) {
	svc, db := setupBatchTest(t)
	ctx := context.Background()

	seedDirectDebitMember(t, db, "REL-104", "M-104", "NL91ABNA0417164300")
	testutil.SeedInvoice(t, db, domain.InvoiceKindSales, "SI-2025-040", "REL-104",
		decimal.RequireFromString("60.00"), time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC))

	batch, err := svc.CreateBatch(ctx, time.Now().UTC())
	require.NoError(t, err)

	submitted, err := svc.SubmitBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)

	_, err = svc.SubmitBatch(ctx, batch.ID)
	assert.ErrorIs(t, err, domain.ErrBatchNotDraft)
}

func TestSubmitBatch_Unknown(t *testing.T) {
	svc, _ := setupBatchTest(t)

	_, err := svc.SubmitBatch(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListBatches(t *testing.T) {
	svc, db := setupBatchTest(t)
	ctx := context.Background()

	batches, total, err := svc.ListBatches(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, batches)

	seedDirectDebitMember(t, db, "REL-105", "M-105", "NL39RABO0300065264")
	testutil.SeedInvoice(t, db, domain.InvoiceKindSales, "SI-2025-050", "REL-105",
		decimal.RequireFromString("20.00"), time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC))
	created, err := svc.CreateBatch(ctx, time.Now().UTC())
	require.NoError(t, err)

	batches, total, err = svc.ListBatches(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, batches, 1)
	assert.Equal(t, created.ID, batches[0].ID)
}

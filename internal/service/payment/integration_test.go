package payment

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

func setupPaymentTest(t *testing.T) (*Handler, *sql.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	testutil.SeedAccounts(t, db)
	testutil.SeedLedgerMapping(t, db, 13, "10440", "Triodos rekening")

	resolver := NewAccountResolver(
		repository.NewLedgerMappingRepository(db),
		repository.NewAccountRepository(db),
		Defaults{
			BankAccount:       "10440",
			CashAccount:       "10000",
			ReceivableAccount: "13900",
			PayableAccount:    "44000",
		},
		[][2]string{{"paypal", "10470"}},
	)
	h := NewHandler(
		repository.NewPaymentEntryRepository(db),
		repository.NewInvoiceRepository(db),
		resolver,
		db,
	)
	return h, db
}

func invoiceOutstanding(t *testing.T, db *sql.DB, id uuid.UUID) (decimal.Decimal, string) {
	t.Helper()
	var outstanding decimal.Decimal
	var status string
	err := db.QueryRow(`SELECT outstanding, status FROM invoices WHERE id = $1`, id).
		Scan(&outstanding, &status)
	require.NoError(t, err)
	return outstanding, status
}

func TestProcessMutation_TwoInvoicesSettled(t *testing.T) {
	h, db := setupPaymentTest(t)
	ctx := context.Background()

	posting := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	inv1 := testutil.SeedInvoice(t, db, domain.InvoiceKindSales, "MEM-2025-0102", "REL-002",
		decimal.RequireFromString("60.50"), posting)
	inv2 := testutil.SeedInvoice(t, db, domain.InvoiceKindSales, "MEM-2025-0103", "REL-002",
		decimal.RequireFromString("61.29"), posting.AddDate(0, 1, 0))

	entry, created, err := h.ProcessMutation(ctx, domain.Mutation{
		ID:            7002,
		Type:          domain.MutationTypeCustomerPayment,
		Date:          time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString("121.79"),
		LedgerID:      13,
		RelationID:    "REL-002",
		InvoiceNumber: "MEM-2025-0102,MEM-2025-0103",
		Rows: []domain.MutationRow{
			{LedgerID: 21, Amount: decimal.RequireFromString("60.50")},
			{LedgerID: 21, Amount: decimal.RequireFromString("61.29")},
		},
	})
	require.NoError(t, err)
	require.True(t, created)

	assert.Equal(t, "10440", entry.BankAccount)
	assert.Equal(t, domain.DirectionReceive, entry.Direction)
	assert.True(t, entry.Amount.Equal(decimal.RequireFromString("121.79")))
	assert.True(t, entry.Unallocated.IsZero())
	require.Len(t, entry.Allocations, 2)
	assert.Equal(t, inv1, entry.Allocations[0].InvoiceID)
	assert.True(t, entry.Allocations[0].Allocated.Equal(decimal.RequireFromString("60.50")))
	assert.Equal(t, inv2, entry.Allocations[1].InvoiceID)
	assert.True(t, entry.Allocations[1].Allocated.Equal(decimal.RequireFromString("61.29")))

	for _, id := range []uuid.UUID{inv1, inv2} {
		outstanding, status := invoiceOutstanding(t, db, id)
		assert.True(t, outstanding.IsZero())
		assert.Equal(t, "paid", status)
	}
}

func TestProcessMutation_DuplicateReturnsExisting(t *testing.T) {
	h, db := setupPaymentTest(t)
	ctx := context.Background()

	testutil.SeedInvoice(t, db, domain.InvoiceKindSales, "MEM-2025-0200", "REL-001",
		decimal.RequireFromString("25.00"), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	m := domain.Mutation{
		ID:            8001,
		Type:          domain.MutationTypeCustomerPayment,
		Date:          time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString("25.00"),
		LedgerID:      13,
		RelationID:    "REL-001",
		InvoiceNumber: "MEM-2025-0200",
	}

	first, created, err := h.ProcessMutation(ctx, m)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := h.ProcessMutation(ctx, m)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestProcessMutation_PartialPayment(t *testing.T) {
	h, db := setupPaymentTest(t)
	ctx := context.Background()

	inv := testutil.SeedInvoice(t, db, domain.InvoiceKindSales, "MEM-2025-0300", "REL-005",
		decimal.RequireFromString("100.00"), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	entry, created, err := h.ProcessMutation(ctx, domain.Mutation{
		ID:            8002,
		Type:          domain.MutationTypeCustomerPayment,
		Date:          time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString("40.00"),
		LedgerID:      13,
		RelationID:    "REL-005",
		InvoiceNumber: "MEM-2025-0300",
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Len(t, entry.Allocations, 1)
	assert.True(t, entry.Allocations[0].Allocated.Equal(decimal.RequireFromString("40.00")))

	outstanding, status := invoiceOutstanding(t, db, inv)
	assert.True(t, outstanding.Equal(decimal.RequireFromString("60.00")))
	assert.Equal(t, "submitted", status)
}

func TestProcessMutation_SupplierPayment(t *testing.T) {
	h, db := setupPaymentTest(t)
	ctx := context.Background()

	inv := testutil.SeedInvoice(t, db, domain.InvoiceKindPurchase, "ZAAL-88", "SUP-010",
		decimal.RequireFromString("250.00"), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	entry, created, err := h.ProcessMutation(ctx, domain.Mutation{
		ID:            8003,
		Type:          domain.MutationTypeSupplierPayment,
		Date:          time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString("250.00"),
		LedgerID:      13,
		RelationID:    "SUP-010",
		InvoiceNumber: "ZAAL-88",
		Rows:          []domain.MutationRow{{LedgerID: 44, Amount: decimal.RequireFromString("-250.00")}},
	})
	require.NoError(t, err)
	require.True(t, created)

	assert.Equal(t, domain.DirectionPay, entry.Direction)
	assert.Equal(t, domain.PartyTypeSupplier, entry.PartyType)
	assert.True(t, entry.Amount.Equal(decimal.RequireFromString("250.00")), "row amounts are read as absolute values")

	outstanding, _ := invoiceOutstanding(t, db, inv)
	assert.True(t, outstanding.IsZero())
}

func TestProcessMutation_NoInvoiceReference(t *testing.T) {
	h, _ := setupPaymentTest(t)

	entry, created, err := h.ProcessMutation(context.Background(), domain.Mutation{
		ID:         8004,
		Type:       domain.MutationTypeCustomerPayment,
		Date:       time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.RequireFromString("15.00"),
		LedgerID:   13,
		RelationID: "REL-003",
	})
	require.NoError(t, err)
	require.True(t, created)

	assert.Empty(t, entry.Allocations)
	assert.True(t, entry.Unallocated.Equal(decimal.RequireFromString("15.00")))
	assert.Equal(t, "EB-8004", entry.Reference)
}

func TestProcessMutation_MissingRelation(t *testing.T) {
	h, _ := setupPaymentTest(t)

	_, _, err := h.ProcessMutation(context.Background(), domain.Mutation{
		ID:     8005,
		Type:   domain.MutationTypeCustomerPayment,
		Date:   time.Now().UTC(),
		Amount: decimal.RequireFromString("10.00"),
	})
	require.ErrorIs(t, err, domain.ErrRelationNotFound)
}

func TestProcessMutation_NonPaymentType(t *testing.T) {
	h, _ := setupPaymentTest(t)

	_, _, err := h.ProcessMutation(context.Background(), domain.Mutation{
		ID:     8006,
		Type:   domain.MutationTypeJournalEntry,
		Date:   time.Now().UTC(),
		Amount: decimal.RequireFromString("10.00"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidMutationType)
}

func TestCancelEntry_RestoresOutstanding(t *testing.T) {
	h, db := setupPaymentTest(t)
	ctx := context.Background()

	inv := testutil.SeedInvoice(t, db, domain.InvoiceKindSales, "MEM-2025-0400", "REL-007",
		decimal.RequireFromString("80.00"), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	entry, _, err := h.ProcessMutation(ctx, domain.Mutation{
		ID:            8007,
		Type:          domain.MutationTypeCustomerPayment,
		Date:          time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString("80.00"),
		LedgerID:      13,
		RelationID:    "REL-007",
		InvoiceNumber: "MEM-2025-0400",
	})
	require.NoError(t, err)

	outstanding, status := invoiceOutstanding(t, db, inv)
	require.True(t, outstanding.IsZero())
	require.Equal(t, "paid", status)

	require.NoError(t, h.CancelEntry(ctx, entry.ID))

	outstanding, status = invoiceOutstanding(t, db, inv)
	assert.True(t, outstanding.Equal(decimal.RequireFromString("80.00")))
	assert.Equal(t, "submitted", status)

	cancelled, err := repository.NewPaymentEntryRepository(db).GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentEntryStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	err = h.CancelEntry(ctx, entry.ID)
	require.ErrorIs(t, err, domain.ErrEntryCancelled)
}

package payment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func openInvoices(outstandings ...string) []OpenInvoice {
	invoices := make([]OpenInvoice, len(outstandings))
	for i, o := range outstandings {
		invoices[i] = OpenInvoice{
			ID:          uuid.New(),
			GrandTotal:  dec(o),
			Outstanding: dec(o),
		}
	}
	return invoices
}

func decs(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = dec(v)
	}
	return out
}

func TestAllocate_ExactTwoInvoices(t *testing.T) {
	invoices := openInvoices("60.50", "61.29")

	allocs, remainder := Allocate(dec("121.79"), nil, invoices)

	require.Len(t, allocs, 2)
	assert.True(t, allocs[0].Allocated.Equal(dec("60.50")))
	assert.True(t, allocs[1].Allocated.Equal(dec("61.29")))
	assert.True(t, remainder.IsZero(), "remainder = %s", remainder)
}

func TestAllocate_NoInvoices(t *testing.T) {
	allocs, remainder := Allocate(dec("50.00"), nil, nil)

	assert.Empty(t, allocs)
	assert.True(t, remainder.Equal(dec("50.00")))
}

func TestAllocate_PartialCoversFirstOnly(t *testing.T) {
	invoices := openInvoices("40.00", "40.00", "40.00")

	allocs, remainder := Allocate(dec("60.00"), nil, invoices)

	require.Len(t, allocs, 2)
	assert.True(t, allocs[0].Allocated.Equal(dec("40.00")))
	assert.True(t, allocs[1].Allocated.Equal(dec("20.00")))
	assert.True(t, remainder.IsZero())
}

func TestAllocate_OverpaymentLeavesRemainder(t *testing.T) {
	invoices := openInvoices("30.00")

	allocs, remainder := Allocate(dec("100.00"), nil, invoices)

	require.Len(t, allocs, 1)
	assert.True(t, allocs[0].Allocated.Equal(dec("30.00")))
	assert.True(t, remainder.Equal(dec("70.00")))
}

func TestAllocate_OneToOneMapping(t *testing.T) {
	invoices := openInvoices("100.00", "200.00")
	rows := decs("80.00", "150.00")

	allocs, remainder := Allocate(dec("230.00"), rows, invoices)

	require.Len(t, allocs, 2)
	assert.Equal(t, invoices[0].ID, allocs[0].InvoiceID)
	assert.True(t, allocs[0].Allocated.Equal(dec("80.00")))
	assert.Equal(t, invoices[1].ID, allocs[1].InvoiceID)
	assert.True(t, allocs[1].Allocated.Equal(dec("150.00")))
	assert.True(t, remainder.IsZero())
}

func TestAllocate_OneToOneCappedByOutstanding(t *testing.T) {
	invoices := openInvoices("50.00", "50.00")
	rows := decs("80.00", "30.00")

	allocs, remainder := Allocate(dec("110.00"), rows, invoices)

	require.Len(t, allocs, 2)
	assert.True(t, allocs[0].Allocated.Equal(dec("50.00")))
	assert.True(t, allocs[1].Allocated.Equal(dec("30.00")))
	assert.True(t, remainder.Equal(dec("30.00")))
}

func TestAllocate_SingleRowUsesFIFO(t *testing.T) {
	// A single row with a single invoice is FIFO, not 1:1.
	invoices := openInvoices("75.00")
	rows := decs("50.00")

	allocs, remainder := Allocate(dec("50.00"), rows, invoices)

	require.Len(t, allocs, 1)
	assert.True(t, allocs[0].Allocated.Equal(dec("50.00")))
	assert.True(t, remainder.IsZero())
}

func TestAllocate_RowCountMismatchFallsBackToFIFO(t *testing.T) {
	invoices := openInvoices("60.00", "60.00", "60.00")
	rows := decs("90.00", "30.00")

	allocs, remainder := Allocate(dec("120.00"), rows, invoices)

	require.Len(t, allocs, 2)
	assert.True(t, allocs[0].Allocated.Equal(dec("60.00")))
	assert.True(t, allocs[1].Allocated.Equal(dec("60.00")))
	assert.True(t, remainder.IsZero())
}

func TestAllocate_SkipsSettledInvoices(t *testing.T) {
	invoices := openInvoices("40.00", "0.00", "40.00")

	allocs, remainder := Allocate(dec("80.00"), nil, invoices)

	require.Len(t, allocs, 2)
	assert.Equal(t, invoices[0].ID, allocs[0].InvoiceID)
	assert.Equal(t, invoices[2].ID, allocs[1].InvoiceID)
	assert.True(t, remainder.IsZero())
}

func TestAllocate_RowTotalNeverExceedsAmount(t *testing.T) {
	// Rows that sum past the payment amount are capped.
	invoices := openInvoices("100.00")
	rows := decs("70.00", "70.00")

	allocs, remainder := Allocate(dec("100.00"), rows, invoices)

	require.Len(t, allocs, 1)
	assert.True(t, allocs[0].Allocated.Equal(dec("100.00")))
	assert.True(t, remainder.IsZero())
}

// The three allocator guarantees, checked over a grid of amounts and
// balance lists.
func TestAllocate_Invariants(t *testing.T) {
	amounts := []string{"0.01", "10.00", "121.79", "999.99", "5000.00"}
	balanceSets := [][]string{
		{"60.50", "61.29"},
		{"0.00"},
		{"10.00", "20.00", "30.00", "40.00"},
		{"5000.00"},
		{"0.01", "0.01", "0.01"},
	}

	for _, amt := range amounts {
		for _, balances := range balanceSets {
			amount := dec(amt)
			invoices := openInvoices(balances...)

			allocs, remainder := Allocate(amount, nil, invoices)

			sum := decimal.Zero
			lastIdx := -1
			for _, a := range allocs {
				sum = sum.Add(a.Allocated)

				idx := -1
				for i, inv := range invoices {
					if inv.ID == a.InvoiceID {
						idx = i
						break
					}
				}
				require.GreaterOrEqual(t, idx, 0)
				assert.Greater(t, idx, lastIdx, "allocations must follow invoice order")
				lastIdx = idx

				assert.True(t, a.Allocated.LessThanOrEqual(invoices[idx].Outstanding),
					"allocation %s exceeds outstanding %s", a.Allocated, invoices[idx].Outstanding)
			}

			assert.True(t, sum.LessThanOrEqual(amount),
				"amount=%s balances=%v: allocated %s exceeds amount", amt, balances, sum)
			assert.True(t, sum.Add(remainder).Equal(amount),
				"amount=%s balances=%v: allocated %s + remainder %s != amount", amt, balances, sum, remainder)
		}
	}
}

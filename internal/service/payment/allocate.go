package payment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenInvoice is the allocator's view of an invoice: identity plus balances.
type OpenInvoice struct {
	ID          uuid.UUID
	GrandTotal  decimal.Decimal
	Outstanding decimal.Decimal
}

// Allocation is one slice of the payment amount assigned to an invoice.
type Allocation struct {
	InvoiceID   uuid.UUID
	GrandTotal  decimal.Decimal
	Outstanding decimal.Decimal
	Allocated   decimal.Decimal
}

// Allocate distributes a payment across open invoices.
//
// When the mutation rows map one-to-one onto the invoices (and there is more
// than one), each row amount is allocated to its invoice, capped at the
// invoice's outstanding balance. Otherwise allocation is first-in-first-out
// in invoice order: min(remaining, outstanding) per invoice until the amount
// is exhausted.
//
// Guarantees, for any input: the sum of allocations never exceeds amount,
// no allocation exceeds its invoice's outstanding balance, and allocations
// follow invoice order. Invoices with a non-positive outstanding balance are
// skipped. The returned remainder is the unallocated part of amount.
func Allocate(amount decimal.Decimal, rowAmounts []decimal.Decimal, invoices []OpenInvoice) ([]Allocation, decimal.Decimal) {
	if len(invoices) == 0 {
		return nil, amount
	}

	if len(rowAmounts) == len(invoices) && len(invoices) > 1 {
		return allocateOneToOne(amount, rowAmounts, invoices)
	}

	total := amount
	if len(rowAmounts) > 0 {
		total = decimal.Zero
		for _, a := range rowAmounts {
			total = total.Add(a.Abs())
		}
		if total.GreaterThan(amount) {
			total = amount
		}
	}
	return allocateFIFO(amount, total, invoices)
}

func allocateOneToOne(amount decimal.Decimal, rowAmounts []decimal.Decimal, invoices []OpenInvoice) ([]Allocation, decimal.Decimal) {
	var allocs []Allocation
	allocated := decimal.Zero

	for i, inv := range invoices {
		if inv.Outstanding.Sign() <= 0 {
			continue
		}
		a := decimal.Min(rowAmounts[i].Abs(), inv.Outstanding)
		if a.Sign() <= 0 {
			continue
		}
		// Never allocate past the payment amount even if rows disagree
		// with the top-level total.
		if left := amount.Sub(allocated); a.GreaterThan(left) {
			a = left
		}
		if a.Sign() <= 0 {
			break
		}
		allocs = append(allocs, Allocation{
			InvoiceID:   inv.ID,
			GrandTotal:  inv.GrandTotal,
			Outstanding: inv.Outstanding,
			Allocated:   a,
		})
		allocated = allocated.Add(a)
	}

	return allocs, amount.Sub(allocated)
}

func allocateFIFO(amount, total decimal.Decimal, invoices []OpenInvoice) ([]Allocation, decimal.Decimal) {
	var allocs []Allocation
	remaining := total

	for _, inv := range invoices {
		if remaining.Sign() <= 0 {
			break
		}
		if inv.Outstanding.Sign() <= 0 {
			continue
		}
		a := decimal.Min(remaining, inv.Outstanding)
		allocs = append(allocs, Allocation{
			InvoiceID:   inv.ID,
			GrandTotal:  inv.GrandTotal,
			Outstanding: inv.Outstanding,
			Allocated:   a,
		})
		remaining = remaining.Sub(a)
	}

	return allocs, amount.Sub(total.Sub(remaining))
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mutation type codes used by the bookkeeping platform. Only customer and
// supplier payments are processed into payment entries.
const (
	MutationTypeInvoiceReceived = 1
	MutationTypeInvoiceSent     = 2
	MutationTypeCustomerPayment = 3
	MutationTypeSupplierPayment = 4
	MutationTypeMoneyReceived   = 5
	MutationTypeMoneySpent      = 6
	MutationTypeJournalEntry    = 7
)

// MutationRow is one line of a mutation. For payment mutations the rows are
// the source of truth for the amount; the row ledger points at the
// receivable/payable side of the booking.
type MutationRow struct {
	LedgerID    int64           `json:"ledgerId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Mutation is an external bookkeeping transaction record. Immutable input;
// the import never writes mutations back.
type Mutation struct {
	ID            int64           `json:"id"`
	Type          int             `json:"type"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	LedgerID      int64           `json:"ledgerId"`
	RelationID    string          `json:"relationId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Description   string          `json:"description"`
	Rows          []MutationRow   `json:"rows"`
}

func (m Mutation) IsPayment() bool {
	return m.Type == MutationTypeCustomerPayment || m.Type == MutationTypeSupplierPayment
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceKind string

const (
	InvoiceKindSales    InvoiceKind = "sales"
	InvoiceKindPurchase InvoiceKind = "purchase"
)

type InvoiceStatus string

const (
	InvoiceStatusSubmitted InvoiceStatus = "submitted"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is an open receivable (sales) or payable (purchase) document.
// ExternalNumber is the bookkeeping platform's invoice number, used to match
// incoming payment mutations back to local invoices.
type Invoice struct {
	ID             uuid.UUID
	Kind           InvoiceKind
	ExternalNumber *string
	RelationID     string
	PartyAccount   string // receivable/payable account the invoice posts to
	GrandTotal     decimal.Decimal
	Outstanding    decimal.Decimal
	PostingDate    time.Time
	Status         InvoiceStatus
	CreatedAt      time.Time
}

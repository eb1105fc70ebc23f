package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BatchStatus string

const (
	BatchStatusDraft     BatchStatus = "draft"
	BatchStatusSubmitted BatchStatus = "submitted"
)

// SequenceType is the SEPA pain.008 sequence marker: FRST for the first
// collection under a mandate, RCUR for every one after it.
type SequenceType string

const (
	SequenceTypeFirst     SequenceType = "FRST"
	SequenceTypeRecurring SequenceType = "RCUR"
)

// DirectDebitBatch groups due invoices of members with an active SEPA
// mandate into one collection run. A draft batch can still be discarded;
// submission freezes it.
type DirectDebitBatch struct {
	ID          uuid.UUID
	BatchDate   time.Time
	Status      BatchStatus
	TotalAmount decimal.Decimal
	EntryCount  int
	SubmittedAt *time.Time
	CreatedAt   time.Time
	Items       []DirectDebitBatchItem
}

type DirectDebitBatchItem struct {
	ID           uuid.UUID
	BatchID      uuid.UUID
	InvoiceID    uuid.UUID
	MandateID    uuid.UUID
	MemberID     uuid.UUID
	Amount       decimal.Decimal
	SequenceType SequenceType
	CreatedAt    time.Time
}

// CollectableInvoice is one open sales invoice eligible for direct debit:
// the member pays by direct debit, holds an active mandate, and the invoice
// has not been placed in a batch yet.
type CollectableInvoice struct {
	InvoiceID       uuid.UUID
	InvoiceNumber   *string
	MemberID        uuid.UUID
	MandateID       uuid.UUID
	MandateRef      string
	IBAN            string
	BIC             *string
	Amount          decimal.Decimal
	FirstCollection bool
}

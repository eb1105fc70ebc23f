package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentDirection string

const (
	DirectionReceive PaymentDirection = "receive" // customer payment, money in
	DirectionPay     PaymentDirection = "pay"     // supplier payment, money out
)

type PartyType string

const (
	PartyTypeCustomer PartyType = "customer"
	PartyTypeSupplier PartyType = "supplier"
)

type PaymentEntryStatus string

const (
	PaymentEntryStatusSubmitted PaymentEntryStatus = "submitted"
	PaymentEntryStatusCancelled PaymentEntryStatus = "cancelled"
)

// PaymentEntry is the local record created for one payment mutation.
// Created once per mutation; cancellation restores the allocated invoices'
// outstanding amounts, the entry itself is never edited in place.
type PaymentEntry struct {
	ID           uuid.UUID
	MutationID   int64
	MutationType int
	Direction    PaymentDirection
	PartyType    PartyType
	RelationID   string
	BankAccount  string // resolved bank/cash account code
	PartyAccount string // resolved receivable/payable account code
	Amount       decimal.Decimal
	Unallocated  decimal.Decimal
	Reference    string
	Remarks      string
	PostingDate  time.Time
	Status       PaymentEntryStatus
	Allocations  []PaymentAllocation
	CreatedAt    time.Time
	CancelledAt  *time.Time
}

// PaymentAllocation ties part of a payment entry's amount to one invoice.
type PaymentAllocation struct {
	ID          uuid.UUID
	EntryID     uuid.UUID
	InvoiceID   uuid.UUID
	GrandTotal  decimal.Decimal
	Outstanding decimal.Decimal // invoice outstanding at allocation time
	Allocated   decimal.Decimal
	CreatedAt   time.Time
}

func (d PaymentDirection) PartyType() PartyType {
	if d == DirectionReceive {
		return PartyTypeCustomer
	}
	return PartyTypeSupplier
}

func (d PaymentDirection) InvoiceKind() InvoiceKind {
	if d == DirectionReceive {
		return InvoiceKindSales
	}
	return InvoiceKindPurchase
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

type MemberStatus string

const (
	MemberStatusActive     MemberStatus = "active"
	MemberStatusSuspended  MemberStatus = "suspended"
	MemberStatusTerminated MemberStatus = "terminated"
)

type PaymentMethod string

const (
	PaymentMethodDirectDebit  PaymentMethod = "sepa_direct_debit"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

type Member struct {
	ID            uuid.UUID
	Email         string
	FullName      string
	RelationID    *string // external bookkeeping relation id, set once linked
	IBAN          *string
	BIC           *string
	AccountHolder *string
	PaymentMethod PaymentMethod
	Status        MemberStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

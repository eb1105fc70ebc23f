package domain

import (
	"time"

	"github.com/google/uuid"
)

type MandateStatus string

const (
	MandateStatusActive    MandateStatus = "active"
	MandateStatusSuspended MandateStatus = "suspended"
	MandateStatusCancelled MandateStatus = "cancelled"
)

// SEPAMandate authorises direct debit collection from a member's bank
// account. A member can carry several mandates over time but at most one
// active mandate per IBAN.
type SEPAMandate struct {
	ID                 uuid.UUID
	MandateRef         string // the reference printed on the mandate form
	MemberID           uuid.UUID
	IBAN               string
	BIC                *string
	AccountHolder      string
	SignDate           time.Time
	Status             MandateStatus
	CancelledAt        *time.Time
	CancellationReason *string
	CreatedAt          time.Time
}

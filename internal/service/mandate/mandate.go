package mandate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verenigingen/backend/internal/domain"
	"github.com/verenigingen/backend/internal/iban"
	"github.com/verenigingen/backend/internal/logging"
)

type mandateRepo interface {
	Create(ctx context.Context, tx *sql.Tx, m *domain.SEPAMandate) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SEPAMandate, error)
	ListActiveByMember(ctx context.Context, memberID uuid.UUID) ([]domain.SEPAMandate, error)
	Cancel(ctx context.Context, tx *sql.Tx, id uuid.UUID, reason string, at time.Time) error
}

type memberRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	UpdateBankDetails(ctx context.Context, tx *sql.Tx, id uuid.UUID, iban, bic, accountHolder *string, at time.Time) error
}

// Service manages SEPA direct-debit mandates. Creating a mandate for a new
// IBAN cancels the member's mandates on the old one, so at most one mandate
// per IBAN stays active. Cancellations, the new mandate and the member's
// bank details move together in one transaction.
type Service struct {
	mandates mandateRepo
	members  memberRepo
	db       *sql.DB
}

func NewService(mandates mandateRepo, members memberRepo, db *sql.DB) *Service {
	return &Service{mandates: mandates, members: members, db: db}
}

type CreateMandateInput struct {
	MemberID      uuid.UUID
	IBAN          string
	BIC           string
	AccountHolder string
	SignDate      time.Time
}

// CreateMandate validates the IBAN, derives the BIC when absent, cancels
// mandates on other IBANs and records the member's new bank details.
func (s *Service) CreateMandate(ctx context.Context, in CreateMandateInput) (*domain.SEPAMandate, error) {
	log := logging.FromContext(ctx)

	member, err := s.members.GetByID(ctx, in.MemberID)
	if err != nil {
		return nil, fmt.Errorf("CreateMandate: %w", err)
	}

	normalized, err := iban.Validate(in.IBAN)
	if err != nil {
		return nil, fmt.Errorf("CreateMandate: %w", err)
	}

	bic := in.BIC
	if bic == "" {
		bic = iban.DeriveBIC(normalized)
	}

	holder := in.AccountHolder
	if holder == "" {
		holder = member.FullName
	}

	active, err := s.mandates.ListActiveByMember(ctx, in.MemberID)
	if err != nil {
		return nil, fmt.Errorf("CreateMandate: %w", err)
	}
	for _, m := range active {
		if m.IBAN == normalized {
			return nil, fmt.Errorf("CreateMandate: iban already covered: %w", domain.ErrMandateExists)
		}
	}

	now := time.Now().UTC()
	mandate := &domain.SEPAMandate{
		ID:            uuid.New(),
		MandateRef:    newMandateRef(member, in.SignDate),
		MemberID:      in.MemberID,
		IBAN:          normalized,
		AccountHolder: holder,
		SignDate:      in.SignDate,
		Status:        domain.MandateStatusActive,
		CreatedAt:     now,
	}
	if bic != "" {
		mandate.BIC = &bic
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateMandate: begin: %w", err)
	}
	defer tx.Rollback()

	reason := fmt.Sprintf("Replaced by mandate for %s", iban.Format(normalized))
	for _, m := range active {
		if err := s.mandates.Cancel(ctx, tx, m.ID, reason, now); err != nil {
			return nil, fmt.Errorf("CreateMandate: cancel %s: %w", m.MandateRef, err)
		}
		log.Info("cancelled mandate on old iban",
			"member_id", in.MemberID,
			"mandate_ref", m.MandateRef,
		)
	}

	if err := s.mandates.Create(ctx, tx, mandate); err != nil {
		return nil, fmt.Errorf("CreateMandate: %w", err)
	}
	if err := s.members.UpdateBankDetails(ctx, tx, in.MemberID, &normalized, mandate.BIC, &holder, now); err != nil {
		return nil, fmt.Errorf("CreateMandate: update member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreateMandate: commit: %w", err)
	}

	log.Info("mandate created",
		"member_id", in.MemberID,
		"mandate_ref", mandate.MandateRef,
	)
	return mandate, nil
}

// DeactivateOnIBANChange records a member's new bank account without signing
// a mandate: active mandates on any other IBAN are cancelled and the member
// row is updated, atomically. Returns the mandates that were cancelled.
func (s *Service) DeactivateOnIBANChange(ctx context.Context, memberID uuid.UUID, newIBAN string) ([]domain.SEPAMandate, error) {
	if _, err := s.members.GetByID(ctx, memberID); err != nil {
		return nil, fmt.Errorf("DeactivateOnIBANChange: %w", err)
	}

	normalized, err := iban.Validate(newIBAN)
	if err != nil {
		return nil, fmt.Errorf("DeactivateOnIBANChange: %w", err)
	}

	active, err := s.mandates.ListActiveByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("DeactivateOnIBANChange: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("DeactivateOnIBANChange: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	reason := fmt.Sprintf("Bank account changed to %s", iban.Format(normalized))
	var cancelled []domain.SEPAMandate
	for _, m := range active {
		if m.IBAN == normalized {
			continue
		}
		if err := s.mandates.Cancel(ctx, tx, m.ID, reason, now); err != nil {
			return nil, fmt.Errorf("DeactivateOnIBANChange: cancel %s: %w", m.MandateRef, err)
		}
		m.Status = domain.MandateStatusCancelled
		m.CancelledAt = &now
		m.CancellationReason = &reason
		cancelled = append(cancelled, m)
	}

	var bicPtr *string
	if bic := iban.DeriveBIC(normalized); bic != "" {
		bicPtr = &bic
	}
	if err := s.members.UpdateBankDetails(ctx, tx, memberID, &normalized, bicPtr, nil, now); err != nil {
		return nil, fmt.Errorf("DeactivateOnIBANChange: update member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("DeactivateOnIBANChange: commit: %w", err)
	}

	logging.FromContext(ctx).Info("member iban changed",
		"member_id", memberID,
		"cancelled_mandates", len(cancelled),
	)
	return cancelled, nil
}

// CancelMandate ends an active mandate with the given reason.
func (s *Service) CancelMandate(ctx context.Context, id uuid.UUID, reason string) error {
	if _, err := s.mandates.GetByID(ctx, id); err != nil {
		return fmt.Errorf("CancelMandate: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CancelMandate: begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.mandates.Cancel(ctx, tx, id, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("CancelMandate: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("CancelMandate: commit: %w", err)
	}
	return nil
}

// ListActive returns the member's active mandates.
func (s *Service) ListActive(ctx context.Context, memberID uuid.UUID) ([]domain.SEPAMandate, error) {
	mandates, err := s.mandates.ListActiveByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	return mandates, nil
}

// newMandateRef builds a readable mandate reference: relation id (or member
// id prefix) plus the sign date and a short random suffix.
func newMandateRef(member *domain.Member, signDate time.Time) string {
	subject := member.ID.String()[:8]
	if member.RelationID != nil && *member.RelationID != "" {
		subject = *member.RelationID
	}
	return fmt.Sprintf("M-%s-%s-%s", subject, signDate.Format("20060102"), uuid.NewString()[:6])
}

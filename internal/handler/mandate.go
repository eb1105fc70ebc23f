package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/verenigingen/backend/internal/domain"
	"github.com/verenigingen/backend/internal/service/mandate"
)

type mandateService interface {
	CreateMandate(ctx context.Context, in mandate.CreateMandateInput) (*domain.SEPAMandate, error)
	DeactivateOnIBANChange(ctx context.Context, memberID uuid.UUID, newIBAN string) ([]domain.SEPAMandate, error)
	CancelMandate(ctx context.Context, id uuid.UUID, reason string) error
	ListActive(ctx context.Context, memberID uuid.UUID) ([]domain.SEPAMandate, error)
}

type MandateHandler struct {
	mandates mandateService
}

func NewMandateHandler(mandates mandateService) *MandateHandler {
	return &MandateHandler{mandates: mandates}
}

type createMandateRequest struct {
	MemberID      string `json:"member_id"`
	IBAN          string `json:"iban"`
	BIC           string `json:"bic"`
	AccountHolder string `json:"account_holder"`
	SignDate      string `json:"sign_date"` // YYYY-MM-DD
}

func (r createMandateRequest) Validate() []FieldError {
	var errs []FieldError
	if r.MemberID == "" {
		errs = append(errs, FieldError{Field: "member_id", Message: "required"})
	} else if _, err := uuid.Parse(r.MemberID); err != nil {
		errs = append(errs, FieldError{Field: "member_id", Message: "must be a uuid"})
	}
	if r.IBAN == "" {
		errs = append(errs, FieldError{Field: "iban", Message: "required"})
	}
	if r.SignDate != "" {
		if _, err := time.Parse("2006-01-02", r.SignDate); err != nil {
			errs = append(errs, FieldError{Field: "sign_date", Message: "must be YYYY-MM-DD"})
		}
	}
	return errs
}

type mandateDTO struct {
	ID                 uuid.UUID  `json:"id"`
	MandateRef         string     `json:"mandate_ref"`
	MemberID           uuid.UUID  `json:"member_id"`
	IBAN               string     `json:"iban"`
	BIC                *string    `json:"bic"`
	AccountHolder      string     `json:"account_holder"`
	SignDate           time.Time  `json:"sign_date"`
	Status             string     `json:"status"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
}

func toMandateDTO(m *domain.SEPAMandate) mandateDTO {
	return mandateDTO{
		ID:                 m.ID,
		MandateRef:         m.MandateRef,
		MemberID:           m.MemberID,
		IBAN:               m.IBAN,
		BIC:                m.BIC,
		AccountHolder:      m.AccountHolder,
		SignDate:           m.SignDate,
		Status:             string(m.Status),
		CancelledAt:        m.CancelledAt,
		CancellationReason: m.CancellationReason,
	}
}

func (h *MandateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMandateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	signDate := time.Now().UTC()
	if req.SignDate != "" {
		signDate, _ = time.Parse("2006-01-02", req.SignDate)
	}

	m, err := h.mandates.CreateMandate(r.Context(), mandate.CreateMandateInput{
		MemberID:      uuid.MustParse(req.MemberID),
		IBAN:          req.IBAN,
		BIC:           req.BIC,
		AccountHolder: req.AccountHolder,
		SignDate:      signDate,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toMandateDTO(m))
}

type cancelMandateRequest struct {
	Reason string `json:"reason"`
}

func (h *MandateHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req cancelMandateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Reason == "" {
		RespondValidationError(w, []FieldError{{Field: "reason", Message: "required"}})
		return
	}

	if err := h.mandates.CancelMandate(r.Context(), id, req.Reason); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type updateBankDetailsRequest struct {
	IBAN string `json:"iban"`
}

// UpdateBankDetails changes a member's bank account outside of mandate
// creation. Active mandates on the old IBAN are cancelled and returned so
// the caller can tell the member a new mandate needs signing.
func (h *MandateHandler) UpdateBankDetails(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req updateBankDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.IBAN == "" {
		RespondValidationError(w, []FieldError{{Field: "iban", Message: "required"}})
		return
	}

	cancelled, err := h.mandates.DeactivateOnIBANChange(r.Context(), memberID, req.IBAN)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]mandateDTO, 0, len(cancelled))
	for i := range cancelled {
		items = append(items, toMandateDTO(&cancelled[i]))
	}
	RespondSuccess(w, http.StatusOK, map[string]any{"cancelled_mandates": items})
}

func (h *MandateHandler) ListForMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	mandates, err := h.mandates.ListActive(r.Context(), memberID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]mandateDTO, 0, len(mandates))
	for i := range mandates {
		items = append(items, toMandateDTO(&mandates[i]))
	}
	RespondSuccess(w, http.StatusOK, map[string]any{"items": items})
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/verenigingen/backend/internal/domain"
)

type memberRepo interface {
	Create(ctx context.Context, m *domain.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	List(ctx context.Context, limit, offset int) ([]domain.Member, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.MemberStatus, at time.Time) error
}

type MemberHandler struct {
	members memberRepo
}

func NewMemberHandler(members memberRepo) *MemberHandler {
	return &MemberHandler{members: members}
}

type createMemberRequest struct {
	Email         string  `json:"email"`
	FullName      string  `json:"full_name"`
	RelationID    *string `json:"relation_id"`
	PaymentMethod string  `json:"payment_method"`
}

func (r createMemberRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "required"})
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		errs = append(errs, FieldError{Field: "email", Message: "invalid email address"})
	}
	if r.FullName == "" {
		errs = append(errs, FieldError{Field: "full_name", Message: "required"})
	}
	switch domain.PaymentMethod(r.PaymentMethod) {
	case domain.PaymentMethodDirectDebit, domain.PaymentMethodBankTransfer:
	default:
		errs = append(errs, FieldError{Field: "payment_method", Message: "must be sepa_direct_debit or bank_transfer"})
	}
	return errs
}

type memberDTO struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	RelationID    *string   `json:"relation_id"`
	IBAN          *string   `json:"iban"`
	BIC           *string   `json:"bic"`
	AccountHolder *string   `json:"account_holder"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func toMemberDTO(m *domain.Member) memberDTO {
	return memberDTO{
		ID:            m.ID,
		Email:         m.Email,
		FullName:      m.FullName,
		RelationID:    m.RelationID,
		IBAN:          m.IBAN,
		BIC:           m.BIC,
		AccountHolder: m.AccountHolder,
		PaymentMethod: string(m.PaymentMethod),
		Status:        string(m.Status),
		CreatedAt:     m.CreatedAt,
	}
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	now := time.Now().UTC()
	member := &domain.Member{
		ID:            uuid.New(),
		Email:         req.Email,
		FullName:      req.FullName,
		RelationID:    req.RelationID,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Status:        domain.MemberStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.members.Create(r.Context(), member); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toMemberDTO(member))
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	member, err := h.members.GetByID(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toMemberDTO(member))
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	members, total, err := h.members.List(r.Context(), limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]memberDTO, 0, len(members))
	for i := range members {
		items = append(items, toMemberDTO(&members[i]))
	}
	RespondSuccess(w, http.StatusOK, map[string]any{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

type updateMemberStatusRequest struct {
	Status string `json:"status"`
}

func (h *MemberHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req updateMemberStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	status := domain.MemberStatus(req.Status)
	switch status {
	case domain.MemberStatusActive, domain.MemberStatusSuspended, domain.MemberStatusTerminated:
	default:
		RespondValidationError(w, []FieldError{{Field: "status", Message: "must be active, suspended or terminated"}})
		return
	}

	if err := h.members.UpdateStatus(r.Context(), id, status, time.Now().UTC()); err != nil {
		RespondDomainError(w, err)
		return
	}

	member, err := h.members.GetByID(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toMemberDTO(member))
}

func paginationParams(r *http.Request) (limit, offset int) {
	limit, offset = 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

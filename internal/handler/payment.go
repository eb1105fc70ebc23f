package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verenigingen/backend/internal/domain"
)

type paymentEntryRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentEntry, error)
	List(ctx context.Context, limit, offset int) ([]domain.PaymentEntry, int, error)
}

type paymentService interface {
	CancelEntry(ctx context.Context, id uuid.UUID) error
}

type PaymentHandler struct {
	entries  paymentEntryRepo
	payments paymentService
}

func NewPaymentHandler(entries paymentEntryRepo, payments paymentService) *PaymentHandler {
	return &PaymentHandler{entries: entries, payments: payments}
}

type allocationDTO struct {
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Allocated   decimal.Decimal `json:"allocated"`
}

type paymentEntryDTO struct {
	ID           uuid.UUID       `json:"id"`
	MutationID   int64           `json:"mutation_id"`
	Direction    string          `json:"direction"`
	PartyType    string          `json:"party_type"`
	RelationID   string          `json:"relation_id"`
	BankAccount  string          `json:"bank_account"`
	PartyAccount string          `json:"party_account"`
	Amount       decimal.Decimal `json:"amount"`
	Unallocated  decimal.Decimal `json:"unallocated"`
	Reference    string          `json:"reference"`
	PostingDate  time.Time       `json:"posting_date"`
	Status       string          `json:"status"`
	Allocations  []allocationDTO `json:"allocations"`
	CancelledAt  *time.Time      `json:"cancelled_at,omitempty"`
}

func toPaymentEntryDTO(e *domain.PaymentEntry) paymentEntryDTO {
	allocations := make([]allocationDTO, 0, len(e.Allocations))
	for _, a := range e.Allocations {
		allocations = append(allocations, allocationDTO{
			InvoiceID:   a.InvoiceID,
			GrandTotal:  a.GrandTotal,
			Outstanding: a.Outstanding,
			Allocated:   a.Allocated,
		})
	}
	return paymentEntryDTO{
		ID:           e.ID,
		MutationID:   e.MutationID,
		Direction:    string(e.Direction),
		PartyType:    string(e.PartyType),
		RelationID:   e.RelationID,
		BankAccount:  e.BankAccount,
		PartyAccount: e.PartyAccount,
		Amount:       e.Amount,
		Unallocated:  e.Unallocated,
		Reference:    e.Reference,
		PostingDate:  e.PostingDate,
		Status:       string(e.Status),
		Allocations:  allocations,
		CancelledAt:  e.CancelledAt,
	}
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	entry, err := h.entries.GetByID(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toPaymentEntryDTO(entry))
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	entries, total, err := h.entries.List(r.Context(), limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]paymentEntryDTO, 0, len(entries))
	for i := range entries {
		items = append(items, toPaymentEntryDTO(&entries[i]))
	}
	RespondSuccess(w, http.StatusOK, map[string]any{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.payments.CancelEntry(r.Context(), id); err != nil {
		RespondDomainError(w, err)
		return
	}

	entry, err := h.entries.GetByID(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toPaymentEntryDTO(entry))
}

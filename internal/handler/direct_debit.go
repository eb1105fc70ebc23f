package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verenigingen/backend/internal/domain"
)

type batchService interface {
	CreateBatch(ctx context.Context, batchDate time.Time) (*domain.DirectDebitBatch, error)
	SubmitBatch(ctx context.Context, id uuid.UUID) (*domain.DirectDebitBatch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*domain.DirectDebitBatch, error)
	ListBatches(ctx context.Context, limit, offset int) ([]domain.DirectDebitBatch, int, error)
}

type DirectDebitHandler struct {
	batches batchService
}

func NewDirectDebitHandler(batches batchService) *DirectDebitHandler {
	return &DirectDebitHandler{batches: batches}
}

type batchItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	MandateID    uuid.UUID       `json:"mandate_id"`
	MemberID     uuid.UUID       `json:"member_id"`
	Amount       decimal.Decimal `json:"amount"`
	SequenceType string          `json:"sequence_type"`
}

type batchDTO struct {
	ID          uuid.UUID       `json:"id"`
	BatchDate   time.Time       `json:"batch_date"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	EntryCount  int             `json:"entry_count"`
	SubmittedAt *time.Time      `json:"submitted_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []batchItemDTO  `json:"items,omitempty"`
}

func toBatchDTO(b *domain.DirectDebitBatch) batchDTO {
	dto := batchDTO{
		ID:          b.ID,
		BatchDate:   b.BatchDate,
		Status:      string(b.Status),
		TotalAmount: b.TotalAmount,
		EntryCount:  b.EntryCount,
		SubmittedAt: b.SubmittedAt,
		CreatedAt:   b.CreatedAt,
	}
	for _, item := range b.Items {
		dto.Items = append(dto.Items, batchItemDTO{
			ID:           item.ID,
			InvoiceID:    item.InvoiceID,
			MandateID:    item.MandateID,
			MemberID:     item.MemberID,
			Amount:       item.Amount,
			SequenceType: string(item.SequenceType),
		})
	}
	return dto
}

type createBatchRequest struct {
	BatchDate string `json:"batch_date"` // YYYY-MM-DD, defaults to today
}

func (h *DirectDebitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	batchDate := time.Now().UTC().Truncate(24 * time.Hour)
	if req.BatchDate != "" {
		var err error
		batchDate, err = time.Parse("2006-01-02", req.BatchDate)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "batch_date", Message: "must be YYYY-MM-DD"}})
			return
		}
	}

	batch, err := h.batches.CreateBatch(r.Context(), batchDate)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toBatchDTO(batch))
}

func (h *DirectDebitHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	batch, err := h.batches.SubmitBatch(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toBatchDTO(batch))
}

func (h *DirectDebitHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	batch, err := h.batches.GetBatch(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toBatchDTO(batch))
}

func (h *DirectDebitHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	batches, total, err := h.batches.ListBatches(r.Context(), limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]batchDTO, 0, len(batches))
	for i := range batches {
		items = append(items, toBatchDTO(&batches[i]))
	}
	RespondSuccess(w, http.StatusOK, map[string]any{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

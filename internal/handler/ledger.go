package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/verenigingen/backend/internal/domain"
)

type ledgerMappingRepo interface {
	List(ctx context.Context) ([]domain.LedgerMapping, error)
	Upsert(ctx context.Context, m *domain.LedgerMapping) error
}

type accountReader interface {
	GetByCode(ctx context.Context, code string) (*domain.Account, error)
}

type LedgerHandler struct {
	mappings ledgerMappingRepo
	accounts accountReader
}

func NewLedgerHandler(mappings ledgerMappingRepo, accounts accountReader) *LedgerHandler {
	return &LedgerHandler{mappings: mappings, accounts: accounts}
}

type ledgerMappingDTO struct {
	LedgerID    int64  `json:"ledger_id"`
	LedgerCode  string `json:"ledger_code"`
	LedgerName  string `json:"ledger_name"`
	AccountCode string `json:"account_code"`
}

func (h *LedgerHandler) ListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.mappings.List(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]ledgerMappingDTO, 0, len(mappings))
	for _, m := range mappings {
		items = append(items, ledgerMappingDTO{
			LedgerID:    m.LedgerID,
			LedgerCode:  m.LedgerCode,
			LedgerName:  m.LedgerName,
			AccountCode: m.AccountCode,
		})
	}
	RespondSuccess(w, http.StatusOK, map[string]any{"items": items})
}

type upsertMappingRequest struct {
	LedgerID    int64  `json:"ledger_id"`
	LedgerCode  string `json:"ledger_code"`
	LedgerName  string `json:"ledger_name"`
	AccountCode string `json:"account_code"`
}

func (r upsertMappingRequest) Validate() []FieldError {
	var errs []FieldError
	if r.LedgerID == 0 {
		errs = append(errs, FieldError{Field: "ledger_id", Message: "required"})
	}
	if r.AccountCode == "" {
		errs = append(errs, FieldError{Field: "account_code", Message: "required"})
	}
	return errs
}

// UpsertMapping links a bookkeeping ledger to a local account. The account
// must exist; mappings to unknown accounts would silently break bank
// account resolution during import.
func (h *LedgerHandler) UpsertMapping(w http.ResponseWriter, r *http.Request) {
	var req upsertMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if _, err := h.accounts.GetByCode(r.Context(), req.AccountCode); err != nil {
		RespondDomainError(w, err)
		return
	}

	mapping := &domain.LedgerMapping{
		LedgerID:    req.LedgerID,
		LedgerCode:  req.LedgerCode,
		LedgerName:  req.LedgerName,
		AccountCode: req.AccountCode,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.mappings.Upsert(r.Context(), mapping); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, ledgerMappingDTO{
		LedgerID:    mapping.LedgerID,
		LedgerCode:  mapping.LedgerCode,
		LedgerName:  mapping.LedgerName,
		AccountCode: mapping.AccountCode,
	})
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/verenigingen/backend/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrChapterNotFound),
		errors.Is(err, domain.ErrVolunteerNotFound),
		errors.Is(err, domain.ErrRelationNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrInvalidIBAN):
		appErr = ErrInvalidIBAN
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrDuplicateMutation):
		appErr = ErrDuplicateMutation
	case errors.Is(err, domain.ErrMemberExists):
		appErr = ErrMemberExists
	case errors.Is(err, domain.ErrMandateExists):
		appErr = ErrMandateExists
	case errors.Is(err, domain.ErrMandateInactive):
		appErr = ErrMandateInactive
	case errors.Is(err, domain.ErrEntryCancelled):
		appErr = ErrEntryCancelled
	case errors.Is(err, domain.ErrRoleOccupied):
		appErr = ErrRoleOccupied
	case errors.Is(err, domain.ErrNotBoardMember):
		appErr = ErrNotBoardMember
	case errors.Is(err, domain.ErrImportRunning):
		appErr = ErrImportRunning
	case errors.Is(err, domain.ErrNothingToCollect):
		appErr = ErrNothingToCollect
	case errors.Is(err, domain.ErrBatchNotDraft):
		appErr = ErrBatchNotDraft
	case errors.Is(err, domain.ErrNoBankAccount),
		errors.Is(err, domain.ErrNoPartyAccount),
		errors.Is(err, domain.ErrAccountNotFound):
		appErr = ErrNoBankAccount
	case errors.Is(err, domain.ErrSessionExpired):
		appErr = ErrUpstreamAuth
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidMutationType):
		appErr = ErrInvalidRequest
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}

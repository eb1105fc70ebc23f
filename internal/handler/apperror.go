package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidIBAN       = &AppError{http.StatusBadRequest, "INVALID_IBAN", "IBAN failed validation"}
	ErrInvalidAmount     = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrDuplicateMutation = &AppError{http.StatusConflict, "DUPLICATE_MUTATION", "Mutation was already imported"}
	ErrMemberExists      = &AppError{http.StatusConflict, "MEMBER_ALREADY_EXISTS", "A member with this email or relation already exists"}
	ErrMandateExists     = &AppError{http.StatusConflict, "MANDATE_ALREADY_EXISTS", "An active mandate already covers this IBAN"}
	ErrMandateInactive   = &AppError{http.StatusUnprocessableEntity, "MANDATE_NOT_ACTIVE", "Mandate is not active"}
	ErrEntryCancelled    = &AppError{http.StatusUnprocessableEntity, "ENTRY_CANCELLED", "Payment entry was already cancelled"}
	ErrRoleOccupied      = &AppError{http.StatusConflict, "ROLE_OCCUPIED", "Volunteer already holds this role"}
	ErrNotBoardMember    = &AppError{http.StatusUnprocessableEntity, "NOT_BOARD_MEMBER", "Volunteer has no active board seat in this chapter"}
	ErrImportRunning     = &AppError{http.StatusConflict, "IMPORT_ALREADY_RUNNING", "A mutation import is already in progress"}
	ErrNoBankAccount     = &AppError{http.StatusUnprocessableEntity, "NO_BANK_ACCOUNT", "No bank or cash account could be resolved"}
	ErrNothingToCollect  = &AppError{http.StatusUnprocessableEntity, "NOTHING_TO_COLLECT", "No invoices are eligible for direct debit collection"}
	ErrBatchNotDraft     = &AppError{http.StatusUnprocessableEntity, "BATCH_NOT_DRAFT", "Direct debit batch was already submitted"}
	ErrUpstreamAuth      = &AppError{http.StatusBadGateway, "BOOKKEEPING_AUTH_FAILED", "Bookkeeping service rejected our session"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)

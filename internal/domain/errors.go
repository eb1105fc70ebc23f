package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidMutationType = errors.New("mutation type not supported for payment processing")
	ErrDuplicateMutation   = errors.New("payment entry already exists for mutation")
	ErrRelationNotFound    = errors.New("no party known for relation")
	ErrAccountNotFound     = errors.New("account not found")
	ErrNoBankAccount       = errors.New("no bank or cash account could be resolved")
	ErrNoPartyAccount      = errors.New("no receivable or payable account could be resolved")
	ErrEntryCancelled      = errors.New("payment entry already cancelled")
	ErrInvalidIBAN         = errors.New("invalid IBAN")
	ErrMandateExists       = errors.New("active mandate already exists for this IBAN")
	ErrMandateInactive     = errors.New("mandate is not active")
	ErrMemberExists        = errors.New("member already exists for this email")
	ErrNotBoardMember      = errors.New("volunteer is not an active board member")
	ErrRoleOccupied        = errors.New("role is already held by another board member")
	ErrVolunteerNotFound   = errors.New("volunteer not found")
	ErrChapterNotFound     = errors.New("chapter not found")
	ErrImportRunning       = errors.New("an import run is already in progress")
	ErrNothingToCollect    = errors.New("no invoices eligible for direct debit collection")
	ErrBatchNotDraft       = errors.New("direct debit batch is no longer a draft")
	ErrSessionExpired      = errors.New("bookkeeping session token expired")
)

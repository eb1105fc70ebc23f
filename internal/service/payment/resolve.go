package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/verenigingen/backend/internal/domain"
	"github.com/verenigingen/backend/internal/logging"
)

// Defaults holds the fallback account codes used when no ledger mapping or
// description pattern resolves.
type Defaults struct {
	BankAccount       string
	CashAccount       string
	ReceivableAccount string
	PayableAccount    string
}

// AccountResolver maps external ledger ids to local bank/cash accounts.
//
// Resolution priority: the ledger mapping (when it points at a bank or cash
// account), then description pattern matching, then direction defaults.
// Results are cached per (ledger id, direction); the import is synchronous
// so the cache is not locked.
type AccountResolver struct {
	mappings ledgerMappingRepo
	accounts accountRepo
	defaults Defaults
	patterns [][2]string // ordered (substring, account code) pairs
	cache    map[string]string
}

func NewAccountResolver(mappings ledgerMappingRepo, accounts accountRepo, defaults Defaults, patterns [][2]string) *AccountResolver {
	return &AccountResolver{
		mappings: mappings,
		accounts: accounts,
		defaults: defaults,
		patterns: patterns,
		cache:    make(map[string]string),
	}
}

// BankAccount resolves the bank/cash side of a payment mutation.
func (r *AccountResolver) BankAccount(ctx context.Context, ledgerID int64, direction domain.PaymentDirection, description string) (string, error) {
	log := logging.FromContext(ctx)

	if ledgerID == 0 {
		log.Warn("payment mutation has no ledger id, using defaults")
		return r.defaultBankAccount(ctx, direction)
	}

	cacheKey := fmt.Sprintf("%d:%s", ledgerID, direction)
	if code, ok := r.cache[cacheKey]; ok {
		return code, nil
	}

	if code := r.fromMapping(ctx, ledgerID); code != "" {
		r.cache[cacheKey] = code
		return code, nil
	}

	if code := r.fromDescription(ctx, description); code != "" {
		log.Info("bank account resolved via description pattern", "ledger_id", ledgerID, "account", code)
		r.cache[cacheKey] = code
		return code, nil
	}

	code, err := r.defaultBankAccount(ctx, direction)
	if err != nil {
		return "", err
	}
	log.Info("bank account fell back to default", "ledger_id", ledgerID, "account", code)
	r.cache[cacheKey] = code
	return code, nil
}

func (r *AccountResolver) fromMapping(ctx context.Context, ledgerID int64) string {
	log := logging.FromContext(ctx)

	mapping, err := r.mappings.GetByLedgerID(ctx, ledgerID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error("ledger mapping lookup failed", "ledger_id", ledgerID, "error", err)
		}
		return ""
	}

	acct, err := r.accounts.GetByCode(ctx, mapping.AccountCode)
	if err != nil {
		log.Warn("mapped account missing", "ledger_id", ledgerID, "account", mapping.AccountCode)
		return ""
	}

	if !acct.AccountType.IsBankOrCash() {
		log.Warn("ledger maps to a non-bank account",
			"ledger_id", ledgerID,
			"account", acct.Code,
			"account_type", acct.AccountType,
		)
		return ""
	}

	log.Debug("bank account resolved via ledger mapping",
		"ledger_id", ledgerID,
		"ledger_name", mapping.LedgerName,
		"account", acct.Code,
	)
	return acct.Code
}

func (r *AccountResolver) fromDescription(ctx context.Context, description string) string {
	if description == "" {
		return ""
	}

	lower := strings.ToLower(description)
	for _, p := range r.patterns {
		if !strings.Contains(lower, p[0]) {
			continue
		}
		acct, err := r.accounts.GetByCode(ctx, p[1])
		if err != nil || acct.Disabled {
			continue
		}
		return acct.Code
	}
	return ""
}

func (r *AccountResolver) defaultBankAccount(ctx context.Context, direction domain.PaymentDirection) (string, error) {
	// Member payments land on the primary bank account when it is usable.
	if direction == domain.DirectionReceive {
		if acct, err := r.accounts.GetByCode(ctx, r.defaults.BankAccount); err == nil && !acct.Disabled {
			return acct.Code, nil
		}
	}

	if acct, err := r.accounts.GetAnyActiveBank(ctx); err == nil {
		return acct.Code, nil
	}

	if acct, err := r.accounts.GetByCode(ctx, r.defaults.CashAccount); err == nil {
		return acct.Code, nil
	}

	return "", fmt.Errorf("defaultBankAccount: %w", domain.ErrNoBankAccount)
}

// PartyAccount resolves the receivable/payable side of the entry.
// Priority: the first mutation row's ledger mapping, the matched invoices'
// recorded party account, then the configured company default.
func (r *AccountResolver) PartyAccount(ctx context.Context, rows []domain.MutationRow, invoices []domain.Invoice, direction domain.PaymentDirection) (string, error) {
	log := logging.FromContext(ctx)

	if len(rows) > 0 && rows[0].LedgerID != 0 {
		mapping, err := r.mappings.GetByLedgerID(ctx, rows[0].LedgerID)
		if err == nil {
			log.Debug("party account resolved via row ledger", "ledger_id", rows[0].LedgerID, "account", mapping.AccountCode)
			return mapping.AccountCode, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("PartyAccount: %w", err)
		}
		log.Warn("no mapping for row ledger", "ledger_id", rows[0].LedgerID)
	}

	for _, inv := range invoices {
		if inv.PartyAccount != "" {
			log.Debug("party account taken from invoice", "invoice_id", inv.ID, "account", inv.PartyAccount)
			return inv.PartyAccount, nil
		}
	}

	code := r.defaults.ReceivableAccount
	if direction == domain.DirectionPay {
		code = r.defaults.PayableAccount
	}
	if code == "" {
		return "", fmt.Errorf("PartyAccount: %w", domain.ErrNoPartyAccount)
	}
	return code, nil
}

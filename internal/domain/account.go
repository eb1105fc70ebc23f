package domain

import "time"

type AccountType string

const (
	AccountTypeBank       AccountType = "bank"
	AccountTypeCash       AccountType = "cash"
	AccountTypeReceivable AccountType = "receivable"
	AccountTypePayable    AccountType = "payable"
	AccountTypeIncome     AccountType = "income"
	AccountTypeExpense    AccountType = "expense"
	AccountTypeEquity     AccountType = "equity"
)

// Account is a local chart-of-accounts entry. Code is the human-facing
// account number ("10440"), unique per company.
type Account struct {
	Code        string
	Name        string
	AccountType AccountType
	IsGroup     bool
	Disabled    bool
	CreatedAt   time.Time
}

func (t AccountType) IsBankOrCash() bool {
	return t == AccountTypeBank || t == AccountTypeCash
}

// LedgerMapping links an external bookkeeping ledger id to a local account.
// Created during setup or chart-of-accounts import, read-only afterwards.
type LedgerMapping struct {
	LedgerID    int64
	LedgerCode  string
	LedgerName  string
	AccountCode string
	CreatedAt   time.Time
}

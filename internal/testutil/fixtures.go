package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/verenigingen/backend/internal/domain"
)

var StaffUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Standard chart-of-accounts slice used across tests. Codes follow the
// Dutch RGS-style numbering the ledger mappings point at.
var StandardAccounts = []domain.Account{
	{Code: "10000", Name: "Kas", AccountType: domain.AccountTypeCash},
	{Code: "10440", Name: "Triodos", AccountType: domain.AccountTypeBank},
	{Code: "10470", Name: "PayPal", AccountType: domain.AccountTypeBank},
	{Code: "13900", Name: "Te ontvangen contributies", AccountType: domain.AccountTypeReceivable},
	{Code: "44000", Name: "Crediteuren", AccountType: domain.AccountTypePayable},
	{Code: "80000", Name: "Contributie opbrengsten", AccountType: domain.AccountTypeIncome},
}

func SeedStaffUser(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		StaffUserID, "staff@vereniging.test", "Staff", string(hash), "active", time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("seed staff user: %v", err)
	}
	return StaffUserID
}

func SeedAccounts(t *testing.T, db *sql.DB) {
	t.Helper()

	for _, a := range StandardAccounts {
		_, err := db.Exec(
			`INSERT INTO accounts (code, name, account_type, is_group, disabled, created_at)
			 VALUES ($1, $2, $3, false, false, $4)
			 ON CONFLICT (code) DO NOTHING`,
			a.Code, a.Name, a.AccountType, time.Now().UTC(),
		)
		if err != nil {
			t.Fatalf("seed account %s: %v", a.Code, err)
		}
	}
}

func SeedLedgerMapping(t *testing.T, db *sql.DB, ledgerID int64, accountCode, ledgerName string) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO ledger_mappings (ledger_id, ledger_code, ledger_name, account_code, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (ledger_id) DO UPDATE SET account_code = EXCLUDED.account_code`,
		ledgerID, accountCode, ledgerName, accountCode, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("seed ledger mapping %d: %v", ledgerID, err)
	}
}

func SeedMember(t *testing.T, db *sql.DB, relationID string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO members (
			id, email, full_name, relation_id, iban, bic,
			account_holder, payment_method, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, NULL, NULL, NULL, $5, $6, $7, $7)`,
		id, relationID+"@vereniging.test", "Member "+relationID, relationID,
		domain.PaymentMethodBankTransfer, domain.MemberStatusActive, now,
	)
	if err != nil {
		t.Fatalf("seed member %s: %v", relationID, err)
	}
	return id
}

// SeedMandate inserts an active mandate row directly, bypassing the mandate
// service's replacement logic.
func SeedMandate(t *testing.T, db *sql.DB, memberID uuid.UUID, ref, iban string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO sepa_mandates (
			id, mandate_ref, member_id, iban, bic, account_holder,
			sign_date, status, created_at
		) VALUES ($1, $2, $3, $4, NULL, $5, $6, $7, $8)`,
		id, ref, memberID, iban, "Holder "+ref, now, domain.MandateStatusActive, now,
	)
	if err != nil {
		t.Fatalf("seed mandate %s: %v", ref, err)
	}
	return id
}

func SeedInvoice(t *testing.T, db *sql.DB, kind domain.InvoiceKind, number, relationID string, outstanding decimal.Decimal, postingDate time.Time) uuid.UUID {
	t.Helper()

	partyAccount := "13900"
	if kind == domain.InvoiceKindPurchase {
		partyAccount = "44000"
	}

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO invoices (
			id, kind, external_number, relation_id, party_account,
			grand_total, outstanding, posting_date, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $6, $7, $8, $9)`,
		id, kind, number, relationID, partyAccount,
		outstanding, postingDate, domain.InvoiceStatusSubmitted, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("seed invoice %s: %v", number, err)
	}
	return id
}

func SeedChapter(t *testing.T, db *sql.DB, name string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO chapters (id, name, region, published, created_at)
		 VALUES ($1, $2, $3, true, $4)`,
		id, name, "Noord-Holland", time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("seed chapter %s: %v", name, err)
	}
	return id
}

func SeedVolunteer(t *testing.T, db *sql.DB, memberID uuid.UUID, name string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO volunteers (id, member_id, name, email, active, created_at)
		 VALUES ($1, $2, $3, $4, true, $5)`,
		id, memberID, name, name+"@vereniging.test", time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("seed volunteer %s: %v", name, err)
	}
	return id
}

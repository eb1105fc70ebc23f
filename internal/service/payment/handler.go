// Package payment turns external bookkeeping payment mutations into local
// payment entries with invoice allocations.
package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verenigingen/backend/internal/domain"
	"github.com/verenigingen/backend/internal/logging"
)

// Amounts from the platform are rounded to cents; row totals and the
// top-level amount may disagree by up to this much before we warn.
var amountTolerance = decimal.NewFromFloat(0.01)

type entryRepo interface {
	Create(ctx context.Context, tx *sql.Tx, e *domain.PaymentEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentEntry, error)
	GetByMutationID(ctx context.Context, mutationID int64) (*domain.PaymentEntry, error)
	MarkCancelled(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error
}

type invoiceRepo interface {
	FindOpenByNumber(ctx context.Context, kind domain.InvoiceKind, relationID, number string) ([]domain.Invoice, error)
	AdjustOutstanding(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta decimal.Decimal) error
}

type ledgerMappingRepo interface {
	GetByLedgerID(ctx context.Context, ledgerID int64) (*domain.LedgerMapping, error)
}

type accountRepo interface {
	GetByCode(ctx context.Context, code string) (*domain.Account, error)
	GetAnyActiveBank(ctx context.Context) (*domain.Account, error)
}

// Handler processes payment mutations (types 3 and 4). One handler instance
// serves one import run; the embedded resolver cache lives as long as the
// handler.
type Handler struct {
	entries  entryRepo
	invoices invoiceRepo
	resolver *AccountResolver
	db       *sql.DB
}

func NewHandler(entries entryRepo, invoices invoiceRepo, resolver *AccountResolver, db *sql.DB) *Handler {
	return &Handler{
		entries:  entries,
		invoices: invoices,
		resolver: resolver,
		db:       db,
	}
}

// ProcessMutation creates a payment entry for the mutation, allocating the
// amount to open invoices. A mutation that was already imported returns the
// existing entry with created=false. Zero and negative amounts are skipped,
// not errors: both return (nil, false, nil).
func (h *Handler) ProcessMutation(ctx context.Context, m domain.Mutation) (*domain.PaymentEntry, bool, error) {
	log := logging.FromContext(ctx)

	if !m.IsPayment() {
		return nil, false, fmt.Errorf("ProcessMutation: type %d: %w", m.Type, domain.ErrInvalidMutationType)
	}

	existing, err := h.entries.GetByMutationID(ctx, m.ID)
	if err == nil {
		log.Info("payment entry already exists for mutation",
			"mutation_id", m.ID,
			"entry_id", existing.ID,
		)
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("ProcessMutation: duplicate check: %w", err)
	}

	if m.RelationID == "" {
		return nil, false, fmt.Errorf("ProcessMutation: mutation %d: %w", m.ID, domain.ErrRelationNotFound)
	}

	direction := domain.DirectionReceive
	if m.Type == domain.MutationTypeSupplierPayment {
		direction = domain.DirectionPay
	}

	invoiceNumbers := ParseInvoiceNumbers(m.InvoiceNumber)
	log.Debug("parsed invoice references", "mutation_id", m.ID, "count", len(invoiceNumbers))

	amount := mutationAmount(ctx, m)
	if amount.Sign() <= 0 {
		log.Warn("skipping mutation with non-positive amount", "mutation_id", m.ID, "amount", amount)
		return nil, false, nil
	}

	bankAccount, err := h.resolver.BankAccount(ctx, m.LedgerID, direction, m.Description)
	if err != nil {
		return nil, false, fmt.Errorf("ProcessMutation: mutation %d: %w", m.ID, err)
	}

	invoices, err := h.findInvoices(ctx, direction.InvoiceKind(), m.RelationID, invoiceNumbers)
	if err != nil {
		return nil, false, fmt.Errorf("ProcessMutation: mutation %d: %w", m.ID, err)
	}
	if len(invoiceNumbers) > 0 && len(invoices) == 0 {
		log.Warn("no open invoices matched references",
			"mutation_id", m.ID,
			"references", invoiceNumbers,
		)
	}

	partyAccount, err := h.resolver.PartyAccount(ctx, m.Rows, invoices, direction)
	if err != nil {
		return nil, false, fmt.Errorf("ProcessMutation: mutation %d: %w", m.ID, err)
	}

	entry := buildEntry(m, direction, amount, bankAccount, partyAccount)

	rowAmounts := make([]decimal.Decimal, len(m.Rows))
	for i, row := range m.Rows {
		rowAmounts[i] = row.Amount.Abs()
	}

	open := make([]OpenInvoice, len(invoices))
	for i, inv := range invoices {
		open[i] = OpenInvoice{ID: inv.ID, GrandTotal: inv.GrandTotal, Outstanding: inv.Outstanding}
	}

	allocs, remainder := Allocate(amount, rowAmounts, open)
	if remainder.Sign() > 0 && len(invoices) > 0 {
		log.Warn("payment not fully allocated",
			"mutation_id", m.ID,
			"unallocated", remainder,
		)
	}

	now := time.Now().UTC()
	entry.Unallocated = remainder
	for _, a := range allocs {
		entry.Allocations = append(entry.Allocations, domain.PaymentAllocation{
			ID:          uuid.New(),
			EntryID:     entry.ID,
			InvoiceID:   a.InvoiceID,
			GrandTotal:  a.GrandTotal,
			Outstanding: a.Outstanding,
			Allocated:   a.Allocated,
			CreatedAt:   now,
		})
	}

	if err := h.persist(ctx, entry); err != nil {
		return nil, false, fmt.Errorf("ProcessMutation: mutation %d: %w", m.ID, err)
	}

	log.Info("payment entry created",
		"mutation_id", m.ID,
		"entry_id", entry.ID,
		"direction", entry.Direction,
		"amount", entry.Amount,
		"allocations", len(entry.Allocations),
		"unallocated", entry.Unallocated,
	)
	return entry, true, nil
}

// CancelEntry cancels a submitted entry and restores the outstanding amounts
// of the invoices it was allocated against. Entries are never edited; this
// is the only post-creation transition.
func (h *Handler) CancelEntry(ctx context.Context, id uuid.UUID) error {
	entry, err := h.entries.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("CancelEntry: %w", err)
	}
	if entry.Status != domain.PaymentEntryStatusSubmitted {
		return fmt.Errorf("CancelEntry: %w", domain.ErrEntryCancelled)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CancelEntry: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := h.entries.MarkCancelled(ctx, tx, entry.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("CancelEntry: %w", err)
	}

	for _, a := range entry.Allocations {
		if err := h.invoices.AdjustOutstanding(ctx, tx, a.InvoiceID, a.Allocated); err != nil {
			return fmt.Errorf("CancelEntry: restore invoice: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("CancelEntry: commit: %w", err)
	}

	logging.FromContext(ctx).Info("payment entry cancelled",
		"entry_id", entry.ID,
		"mutation_id", entry.MutationID,
		"restored_invoices", len(entry.Allocations),
	)
	return nil
}

func (h *Handler) persist(ctx context.Context, entry *domain.PaymentEntry) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := h.entries.Create(ctx, tx, entry); err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	for _, a := range entry.Allocations {
		if err := h.invoices.AdjustOutstanding(ctx, tx, a.InvoiceID, a.Allocated.Neg()); err != nil {
			return fmt.Errorf("persist: invoice %s: %w", a.InvoiceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist: commit: %w", err)
	}
	return nil
}

// findInvoices matches each reference against open invoices, deduplicates,
// and orders the merged set by posting date for FIFO allocation.
func (h *Handler) findInvoices(ctx context.Context, kind domain.InvoiceKind, relationID string, numbers []string) ([]domain.Invoice, error) {
	seen := make(map[uuid.UUID]bool)
	var invoices []domain.Invoice

	for _, number := range numbers {
		matches, err := h.invoices.FindOpenByNumber(ctx, kind, relationID, number)
		if err != nil {
			return nil, fmt.Errorf("findInvoices: %q: %w", number, err)
		}
		if len(matches) == 0 {
			logging.FromContext(ctx).Debug("no open invoice for reference", "reference", number)
		}
		for _, inv := range matches {
			if !seen[inv.ID] {
				seen[inv.ID] = true
				invoices = append(invoices, inv)
			}
		}
	}

	sort.SliceStable(invoices, func(i, j int) bool {
		return invoices[i].PostingDate.Before(invoices[j].PostingDate)
	})
	return invoices, nil
}

// mutationAmount prefers the rows as the source of truth, falling back to
// the top-level amount when a mutation carries no rows.
func mutationAmount(ctx context.Context, m domain.Mutation) decimal.Decimal {
	topLevel := m.Amount.Abs().Round(2)

	if len(m.Rows) == 0 {
		return topLevel
	}

	total := decimal.Zero
	for _, row := range m.Rows {
		total = total.Add(row.Amount.Abs().Round(2))
	}

	if topLevel.Sign() > 0 && topLevel.Sub(total).Abs().GreaterThan(amountTolerance) {
		logging.FromContext(ctx).Warn("mutation amount differs from row total",
			"mutation_id", m.ID,
			"top_level", topLevel,
			"row_total", total,
		)
	}
	return total
}

func buildEntry(m domain.Mutation, direction domain.PaymentDirection, amount decimal.Decimal, bankAccount, partyAccount string) *domain.PaymentEntry {
	now := time.Now().UTC()

	reference := m.InvoiceNumber
	if reference == "" {
		reference = fmt.Sprintf("EB-%d", m.ID)
	}

	return &domain.PaymentEntry{
		ID:           uuid.New(),
		MutationID:   m.ID,
		MutationType: m.Type,
		Direction:    direction,
		PartyType:    direction.PartyType(),
		RelationID:   m.RelationID,
		BankAccount:  bankAccount,
		PartyAccount: partyAccount,
		Amount:       amount,
		Unallocated:  amount,
		Reference:    reference,
		Remarks:      buildRemarks(m, direction, bankAccount),
		PostingDate:  m.Date,
		Status:       domain.PaymentEntryStatusSubmitted,
		CreatedAt:    now,
	}
}

// buildRemarks renders the audit block stored on the entry.
func buildRemarks(m domain.Mutation, direction domain.PaymentDirection, bankAccount string) string {
	kind := "Customer Payment"
	if direction == domain.DirectionPay {
		kind = "Supplier Payment"
	}

	lines := []string{
		fmt.Sprintf("Bookkeeping import - mutation %d", m.ID),
		"Type: " + kind,
		"Bank account: " + bankAccount,
		"Relation: " + m.RelationID,
	}
	if m.InvoiceNumber != "" {
		lines = append(lines, "Invoice(s): "+m.InvoiceNumber)
	}
	if m.Description != "" {
		lines = append(lines, "Description: "+m.Description)
	}
	if len(m.Rows) > 0 {
		lines = append(lines, fmt.Sprintf("Rows: %d", len(m.Rows)))
	}
	lines = append(lines, fmt.Sprintf("Ledger id: %d", m.LedgerID))

	return strings.Join(lines, "\n")
}

package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verenigingen/backend/internal/domain"
	"github.com/verenigingen/backend/internal/logging"
)

// Stand-in for the bookkeeping platform: session handshake, a fixed
// mutation feed and a small ledger list. Enough to run the API and the
// import end to end on a laptop.
func main() {
	logging.Init("mock-boekhouden", "info", os.Getenv("APP_ENV"))

	srv := &mockServer{
		accessToken: envOr("MOCK_ACCESS_TOKEN", "mock-token"),
		mutations:   seedMutations(),
		ledgers:     seedLedgers(),
		sessions:    make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /v1/session", srv.handleSession)
	mux.HandleFunc("GET /v1/mutation", srv.handleListMutations)
	mux.HandleFunc("GET /v1/mutation/{id}", srv.handleGetMutation)
	mux.HandleFunc("GET /v1/ledger", srv.handleListLedgers)

	addr := envOr("ADDR", ":8081")
	slog.Info("mock bookkeeping server started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

type mockServer struct {
	accessToken string
	mutations   []domain.Mutation
	ledgers     []ledger
	sessions    map[string]bool
}

type ledger struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (s *mockServer) handleSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"accessToken"`
		Source      string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.AccessToken != s.accessToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid access token"})
		return
	}

	token := uuid.NewString()
	s.sessions[token] = true
	slog.Info("session issued", "source", req.Source)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresIn": 3600,
	})
}

func (s *mockServer) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && s.sessions[token]
}

func (s *mockServer) handleListMutations(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session required"})
		return
	}

	q := r.URL.Query()
	sinceID, _ := strconv.ParseInt(q.Get("sinceId"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))

	var types map[int]bool
	if vals := q["type"]; len(vals) > 0 {
		types = make(map[int]bool)
		for _, v := range vals {
			if n, err := strconv.Atoi(v); err == nil {
				types[n] = true
			}
		}
	}

	var items []domain.Mutation
	for _, m := range s.mutations {
		if m.ID <= sinceID {
			continue
		}
		if types != nil && !types[m.Type] {
			continue
		}
		items = append(items, m)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *mockServer) handleGetMutation(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session required"})
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	for _, m := range s.mutations {
		if m.ID == id {
			writeJSON(w, http.StatusOK, m)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func (s *mockServer) handleListLedgers(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.ledgers})
}

func seedMutations() []domain.Mutation {
	day := func(d int) time.Time {
		return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC)
	}
	dec := decimal.RequireFromString

	return []domain.Mutation{
		{
			ID: 7001, Type: domain.MutationTypeCustomerPayment, Date: day(2),
			Amount: dec("60.50"), LedgerID: 13, RelationID: "REL-001",
			InvoiceNumber: "MEM-2025-0101", Description: "Contributie april",
			Rows: []domain.MutationRow{{LedgerID: 21, Amount: dec("60.50"), Description: "Contributie"}},
		},
		{
			ID: 7002, Type: domain.MutationTypeCustomerPayment, Date: day(5),
			Amount: dec("121.79"), LedgerID: 13, RelationID: "REL-002",
			InvoiceNumber: "MEM-2025-0102,MEM-2025-0103", Description: "Twee facturen ineens",
			Rows: []domain.MutationRow{
				{LedgerID: 21, Amount: dec("60.50")},
				{LedgerID: 21, Amount: dec("61.29")},
			},
		},
		{
			ID: 7003, Type: domain.MutationTypeSupplierPayment, Date: day(9),
			Amount: dec("250.00"), LedgerID: 13, RelationID: "SUP-010",
			InvoiceNumber: "ZAAL-88", Description: "Zaalhuur maart",
			Rows: []domain.MutationRow{{LedgerID: 44, Amount: dec("-250.00"), Description: "Zaalhuur"}},
		},
		{
			ID: 7004, Type: domain.MutationTypeCustomerPayment, Date: day(12),
			Amount: dec("15.00"), LedgerID: 0, RelationID: "REL-003",
			Description: "PayPal donatie zonder factuur",
			Rows:        []domain.MutationRow{{LedgerID: 21, Amount: dec("15.00")}},
		},
		{
			ID: 7005, Type: domain.MutationTypeJournalEntry, Date: day(15),
			Amount: dec("0.00"), LedgerID: 99, RelationID: "",
			Description: "Memoriaal, geen betaling",
		},
	}
}

func seedLedgers() []ledger {
	return []ledger{
		{ID: 13, Code: "10440", Description: "Triodos rekening", Category: "FIN"},
		{ID: 21, Code: "13900", Description: "Debiteuren contributie", Category: "DEB"},
		{ID: 44, Code: "44000", Description: "Crediteuren", Category: "CRED"},
		{ID: 99, Code: "99000", Description: "Memoriaal", Category: "MEM"},
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

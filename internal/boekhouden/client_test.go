package boekhouden

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verenigingen/backend/internal/domain"
)

func newTestServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	sessionCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/session", func(w http.ResponseWriter, r *http.Request) {
		sessionCalls++
		var req sessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.AccessToken != "api-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(sessionResponse{Token: "session-token", ExpiresIn: 3600})
	})
	mux.HandleFunc("GET /v1/mutation", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "session-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "500", r.URL.Query().Get("sinceId"))
		assert.ElementsMatch(t, []string{"3", "4"}, r.URL.Query()["type"])
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": 501, "type": 3, "amount": "121.79", "ledgerId": 13, "invoiceNumber": "INV-001,INV-002"},
				{"id": 502, "type": 4, "amount": "50.00", "ledgerId": 13},
			},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &sessionCalls
}

func TestListMutations(t *testing.T) {
	srv, sessionCalls := newTestServer(t)
	c := NewClient(srv.URL, "api-token")

	muts, err := c.ListMutations(context.Background(), ListMutationsParams{
		SinceID: 500,
		Types:   []int{3, 4},
	})
	require.NoError(t, err)
	require.Len(t, muts, 2)
	assert.Equal(t, int64(501), muts[0].ID)
	assert.Equal(t, "121.79", muts[0].Amount.StringFixed(2))
	assert.Equal(t, "INV-001,INV-002", muts[0].InvoiceNumber)

	// Second call reuses the cached session token.
	_, err = c.ListMutations(context.Background(), ListMutationsParams{SinceID: 500, Types: []int{3, 4}})
	require.NoError(t, err)
	assert.Equal(t, 1, *sessionCalls)
}

func TestListMutations_BadAPIToken(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, "wrong")

	_, err := c.ListMutations(context.Background(), ListMutationsParams{})
	require.Error(t, err)
}

func TestGetMutation_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/session", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sessionResponse{Token: "tok", ExpiresIn: 3600})
	})
	mux.HandleFunc("GET /v1/mutation/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "tok")
	_, err := c.GetMutation(context.Background(), 999)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

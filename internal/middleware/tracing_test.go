package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traceAndRecord(t *testing.T, inbound string) (string, string) {
	t.Helper()

	var ctxID string
	h := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	if inbound != "" {
		req.Header.Set(traceIDHeader, inbound)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return ctxID, rec.Header().Get(traceIDHeader)
}

func TestTracing_GeneratesRequestID(t *testing.T) {
	ctxID, header := traceAndRecord(t, "")

	require.NotEmpty(t, ctxID)
	assert.Equal(t, ctxID, header)
	_, err := uuid.Parse(ctxID)
	assert.NoError(t, err)
}

func TestTracing_KeepsValidInboundID(t *testing.T) {
	inbound := uuid.New().String()
	ctxID, header := traceAndRecord(t, inbound)

	assert.Equal(t, inbound, ctxID)
	assert.Equal(t, inbound, header)
}

func TestTracing_ReplacesMalformedInboundID(t *testing.T) {
	ctxID, header := traceAndRecord(t, "not-a-uuid")

	assert.NotEqual(t, "not-a-uuid", ctxID)
	assert.Equal(t, ctxID, header)
	_, err := uuid.Parse(ctxID)
	assert.NoError(t, err)
}

func TestTraceIDFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TraceIDFromContext(req.Context()))
}

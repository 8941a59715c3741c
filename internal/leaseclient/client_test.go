package leaseclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProperty_SendsTokenAndIdempotencyKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/properties", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))

		var body Property
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(1000), body.MonthlyRent)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"property_id":"prop-1"}`))
	}))
	defer server.Close()

	client := New(server.URL, "tok")
	id, err := client.ListProperty(context.Background(), Property{Address: "1 Main St", MonthlyRent: 1000, SecurityDeposit: 2000})
	require.NoError(t, err)
	assert.Equal(t, "prop-1", id)
}

func TestPost_DecodesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"rent already paid this period","class":"precondition"}`))
	}))
	defer server.Close()

	err := New(server.URL, "").PayRent(context.Background(), "agr-1", 1000)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "precondition", apiErr.Class)
	assert.Contains(t, apiErr.Error(), "rent already paid")
}

func TestGet_NonJSONErrorFallsBackToStatusText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL, "").Get(context.Background(), "/api/v1/ledger", nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, http.StatusText(http.StatusServiceUnavailable), apiErr.Message)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	body, err := New(server.URL, "", WithRetries(1)).Get(context.Background(), "/api/v1/ledger", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestStatement_PassesParty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/statements/pdf", r.URL.Path)
		assert.Equal(t, "landlord", r.URL.Query().Get("party"))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.3"))
	}))
	defer server.Close()

	data, err := New(server.URL, "tok").Statement(context.Background(), "pdf", "landlord")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.3"), data)
}

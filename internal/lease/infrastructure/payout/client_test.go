package payout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lease "lease-escrow/internal/lease/domain"
)

func TestTransfer_Accepted(t *testing.T) {
	var got transferRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transfers", r.URL.Path)
		assert.Equal(t, "Bearer rail-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, got.Reference, r.Header.Get("Idempotency-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/", "rail-token")
	require.NoError(t, err)

	err = client.Transfer(context.Background(), lease.LedgerEntry{
		ID: "led-1", Kind: lease.EntryRentRelease, Party: "landlord", AgreementID: 4, Amount: 970,
	})
	require.NoError(t, err)
	assert.Equal(t, "landlord", got.Payee)
	assert.Equal(t, int64(970), got.Amount)
	assert.Equal(t, "rent_release", got.Kind)
	assert.Equal(t, "agr-4", got.AgreementID)
	assert.Empty(t, got.PropertyID)
	assert.Equal(t, "led-1", got.Reference)
}

func TestTransfer_RejectedByStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status":"rejected","error":"account closed"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "")
	require.NoError(t, err)

	err = client.Transfer(context.Background(), lease.LedgerEntry{ID: "led-2", Kind: lease.EntryRefund, Party: "tenant", Amount: 2000})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Contains(t, err.Error(), "account closed")
}

func TestTransfer_UnexpectedBodyIsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "")
	require.NoError(t, err)

	err = client.Transfer(context.Background(), lease.LedgerEntry{ID: "led-3", Kind: lease.EntryRefund, Party: "tenant", Amount: 10})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestTransfer_AcceptedWithoutJSONContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "")
	require.NoError(t, err)

	err = client.Transfer(context.Background(), lease.LedgerEntry{ID: "led-4", Kind: lease.EntryRentRelease, Party: "landlord", Amount: 1000})
	require.NoError(t, err)
}

func TestTransfer_EmptySuccessBodyIsAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "")
	require.NoError(t, err)

	err = client.Transfer(context.Background(), lease.LedgerEntry{ID: "led-5", Kind: lease.EntryRefund, Party: "tenant", Amount: 5})
	require.NoError(t, err)
}

func TestTransfer_SameEntryKeepsReference(t *testing.T) {
	var keys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		if len(keys) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "")
	require.NoError(t, err)

	entry := lease.LedgerEntry{ID: "led-6", Kind: lease.EntryDepositReturn, Party: "tenant", Amount: 2000}
	assert.ErrorIs(t, client.Transfer(context.Background(), entry), ErrRejected)
	require.NoError(t, client.Transfer(context.Background(), entry))
	assert.Equal(t, []string{"led-6", "led-6"}, keys)
}

func TestTransfer_MissingReference(t *testing.T) {
	client, err := NewClient("http://rail.invalid", "")
	require.NoError(t, err)
	require.Error(t, client.Transfer(context.Background(), lease.LedgerEntry{Party: "tenant", Amount: 1}))
}

func TestNewClient_EmptyURL(t *testing.T) {
	_, err := NewClient("", "")
	require.Error(t, err)
}

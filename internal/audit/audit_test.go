package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lease-escrow/internal/auth"
)

func TestRepositoryLog_FillsDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	metadata := json.RawMessage(`{"payment":3000}`)
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(sqlmock.AnyArg(), "tenant-a", "member", "POST /api/v1/agreements", "agreement", "agr-1",
			[]byte(metadata), DigestJSON(metadata), "10.0.0.1", "curl", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewRepository(db)
	err = repo.Log(context.Background(), Entry{
		Actor:        "tenant-a",
		Role:         "member",
		Action:       "POST /api/v1/agreements",
		ResourceType: "agreement",
		ResourceID:   "agr-1",
		Metadata:     metadata,
		IP:           "10.0.0.1",
		UserAgent:    "curl",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListByResource(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "actor", "role", "action", "resource_type", "resource_id",
		"metadata", "payload_digest", "ip", "user_agent", "created_at",
	}).AddRow("audit-1", "operator", "operator", "POST /api/v1/admin/fee", "platform", "fee", nil, "", "", "", at)

	mock.ExpectQuery(`FROM audit_logs`).
		WithArgs("platform", "fee").
		WillReturnRows(rows)

	entries, err := NewRepository(db).ListByResource(context.Background(), "platform", "fee")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "operator", entries[0].Actor)
	assert.Nil(t, entries[0].Metadata)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryLog(t *testing.T) {
	log := NewMemoryLog()
	require.NoError(t, log.Log(context.Background(), Entry{Actor: "a", Metadata: json.RawMessage(`{}`)}))

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
	assert.Equal(t, DigestJSON([]byte(`{}`)), entries[0].PayloadDigest)
}

func TestClientIP_UsesRemoteAddrOnly(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	assert.Equal(t, "192.0.2.1", ClientIP(req), "forwarding headers are ignored without RealIP")
	assert.Empty(t, ClientIP(nil))
}

func TestFromRequest_BehindRealIP(t *testing.T) {
	var got Entry
	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Post("/api/v1/agreements/{agreementID}/rent", func(w http.ResponseWriter, r *http.Request) {
		got = FromRequest(r, "agreement", chi.URLParam(r, "agreementID"))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/agreements/agr-9/rent", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	req.Header.Set("User-Agent", "leasectl")
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.RoleMember, "tenant-a"))
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "tenant-a", got.Actor)
	assert.Equal(t, string(auth.RoleMember), got.Role)
	assert.Equal(t, "POST /api/v1/agreements/{agreementID}/rent", got.Action)
	assert.Equal(t, "agr-9", got.ResourceID)
	assert.Equal(t, "203.0.113.5", got.IP)
	assert.Equal(t, "leasectl", got.UserAgent)
}

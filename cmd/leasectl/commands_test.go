package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lease-escrow/internal/auth"
)

func TestTokenCmdIssuesParsableToken(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	cmd := tokenCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--subject", "landlord-1", "--role", "operator"})
	require.NoError(t, cmd.Execute())

	claims, err := auth.ParseJWT(strings.TrimSpace(out.String()), []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, "landlord-1", claims.Subject)
	assert.Equal(t, string(auth.RoleOperator), claims.Role)
}

func TestTokenCmdRejectsUnknownRole(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	cmd := tokenCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--subject", "x", "--role", "root"})
	assert.Error(t, cmd.Execute())
}

func TestLedgerCmdPrintsIndentedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tenant-1", r.URL.Query().Get("party"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"kind":"rent_payment","amount":1000}]`))
	}))
	defer server.Close()

	opts := &globalOptions{server: server.URL}
	cmd := ledgerCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--party", "tenant-1"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "\n  {")
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	assert.Len(t, entries, 1)
}

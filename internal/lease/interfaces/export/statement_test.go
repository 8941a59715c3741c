package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	lease "lease-escrow/internal/lease/domain"
)

func sampleStatement() Statement {
	at := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
	entries := []lease.LedgerEntry{
		{ID: "led-1", Kind: lease.EntryMoveIn, Direction: lease.DirectionIn, Party: "tenant", AgreementID: 1, Amount: 3000, At: at},
		{ID: "led-2", Kind: lease.EntryDepositReturn, Direction: lease.DirectionOut, Party: "tenant", AgreementID: 1, Amount: 2000, At: at.Add(time.Hour)},
	}
	return NewStatement("tenant", entries, at.Add(2*time.Hour))
}

func TestNewStatementTotals(t *testing.T) {
	stmt := sampleStatement()
	assert.Equal(t, int64(3000), stmt.PaidIn)
	assert.Equal(t, int64(2000), stmt.PaidOut)
	assert.Equal(t, int64(-1000), stmt.Net())
}

func TestRenderXLSX(t *testing.T) {
	data, contentType, err := Render(sampleStatement(), FormatXLSX)
	require.NoError(t, err)
	assert.NotEmpty(t, contentType)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	party, err := f.GetCellValue("summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "tenant", party)

	kind, err := f.GetCellValue("entries", "C3")
	require.NoError(t, err)
	assert.Equal(t, string(lease.EntryDepositReturn), kind)

	subject, err := f.GetCellValue("entries", "E2")
	require.NoError(t, err)
	assert.Equal(t, "agr-1", subject)
}

func TestRenderPDF(t *testing.T) {
	data, contentType, err := Render(sampleStatement(), FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestRenderUnsupportedFormat(t *testing.T) {
	_, _, err := Render(sampleStatement(), "csv")
	assert.ErrorIs(t, err, lease.ErrValidation)
}

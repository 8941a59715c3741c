package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	lease "lease-escrow/internal/lease/domain"
	"lease-escrow/internal/observability/metrics"
)

// Formats.
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// Statement is a party's ledger history with totals relative to custody.
type Statement struct {
	Party       lease.Identity
	GeneratedAt time.Time
	Entries     []lease.LedgerEntry
	// PaidIn is what the party paid into custody.
	PaidIn int64
	// PaidOut is what custody paid to the party.
	PaidOut int64
}

// NewStatement totals entries for party.
func NewStatement(party lease.Identity, entries []lease.LedgerEntry, now time.Time) Statement {
	stmt := Statement{Party: party, GeneratedAt: now, Entries: entries}
	for _, entry := range entries {
		switch entry.Direction {
		case lease.DirectionIn:
			stmt.PaidIn += entry.Amount
		case lease.DirectionOut:
			stmt.PaidOut += entry.Amount
		}
	}
	return stmt
}

// Net is the party's position: received minus paid.
func (s Statement) Net() int64 {
	return s.PaidOut - s.PaidIn
}

// Render renders the statement in format.
func Render(stmt Statement, format string) ([]byte, string, error) {
	start := time.Now()
	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case FormatPDF:
		data, err = BuildStatementPDF(stmt)
		contentType = "application/pdf"
	case FormatXLSX:
		data, err = BuildStatementXLSX(stmt)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, "", fmt.Errorf("%w: unsupported statement format %q", lease.ErrValidation, format)
	}
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveStatementExport(format, result, time.Since(start))
	return data, contentType, err
}

func subject(entry lease.LedgerEntry) string {
	if entry.AgreementID != 0 {
		return entry.AgreementID.String()
	}
	if entry.PropertyID != 0 {
		return entry.PropertyID.String()
	}
	return "-"
}

// BuildStatementPDF renders a minimal PDF for a statement.
func BuildStatementPDF(stmt Statement) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Lease Ledger Statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Party: %s", stmt.Party))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", stmt.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Paid in: %d", stmt.PaidIn))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Received: %d", stmt.PaidOut))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Net: %d", stmt.Net()))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 6, "Time", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Kind", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Dir", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Subject", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, entry := range stmt.Entries {
		pdf.CellFormat(45, 6, entry.At.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, string(entry.Kind), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, string(entry.Direction), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, subject(entry), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%d", entry.Amount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildStatementXLSX renders a summary sheet and an entries sheet.
func BuildStatementXLSX(stmt Statement) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	summarySheet := "summary"
	entriesSheet := "entries"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(entriesSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Lease Ledger Statement")
	_ = f.SetCellValue(summarySheet, "A3", "Party")
	_ = f.SetCellValue(summarySheet, "B3", string(stmt.Party))
	_ = f.SetCellValue(summarySheet, "A4", "Generated")
	_ = f.SetCellValue(summarySheet, "B4", stmt.GeneratedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A5", "Paid in")
	_ = f.SetCellValue(summarySheet, "B5", stmt.PaidIn)
	_ = f.SetCellValue(summarySheet, "A6", "Received")
	_ = f.SetCellValue(summarySheet, "B6", stmt.PaidOut)
	_ = f.SetCellValue(summarySheet, "A7", "Net")
	_ = f.SetCellValue(summarySheet, "B7", stmt.Net())

	headers := []string{"ID", "Time", "Kind", "Direction", "Subject", "Amount"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(entriesSheet, cell, header)
	}
	for i, entry := range stmt.Entries {
		row := i + 2
		_ = f.SetCellValue(entriesSheet, fmt.Sprintf("A%d", row), entry.ID)
		_ = f.SetCellValue(entriesSheet, fmt.Sprintf("B%d", row), entry.At.Format(time.RFC3339))
		_ = f.SetCellValue(entriesSheet, fmt.Sprintf("C%d", row), string(entry.Kind))
		_ = f.SetCellValue(entriesSheet, fmt.Sprintf("D%d", row), string(entry.Direction))
		_ = f.SetCellValue(entriesSheet, fmt.Sprintf("E%d", row), subject(entry))
		_ = f.SetCellValue(entriesSheet, fmt.Sprintf("F%d", row), entry.Amount)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

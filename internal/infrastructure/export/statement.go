// Package export renders ledger statements as downloadable documents.
// Renderers only read the Statement; they never recompute balances.
package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Format identifies a statement document type
type Format string

const (
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

const dateLayout = "2006-01-02"

// ParseFormat converts a query value to a Format; empty means JSON
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatPDF, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported statement format %q", raw)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// FileName returns the attachment name for a rendered statement
func (f Format) FileName(stmt *ledger.Statement) string {
	id := unsafeFileChars.ReplaceAllString(string(stmt.Entity.ID), "_")
	return fmt.Sprintf("statement_%s_%s.%s", id, stmt.RangeEnd.Format("20060102"), f)
}

// Render renders a statement in a binary format. PDF options are ignored for XLSX.
func Render(stmt *ledger.Statement, format Format, opts ...PDFOption) ([]byte, error) {
	switch format {
	case FormatPDF:
		return StatementPDF(stmt, opts...)
	case FormatXLSX:
		return StatementXLSX(stmt)
	default:
		return nil, fmt.Errorf("format %q is not a document format", format)
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func rangeLabel(stmt *ledger.Statement) string {
	if stmt.RangeStart == nil {
		return "up to " + stmt.RangeEnd.Format(dateLayout)
	}
	return stmt.RangeStart.Format(dateLayout) + " to " + stmt.RangeEnd.Format(dateLayout)
}

// PDFOption configures PDF rendering
type PDFOption func(*pdfOptions)

type pdfOptions struct {
	fontDir  string
	fontFile string
}

// WithUTF8Font embeds a TrueType font so names outside Latin-1 render correctly
func WithUTF8Font(dir, file string) PDFOption {
	return func(o *pdfOptions) {
		o.fontDir = dir
		o.fontFile = file
	}
}

// StatementPDF renders a one-entity statement as an A4 PDF
func StatementPDF(stmt *ledger.Statement, opts ...PDFOption) ([]byte, error) {
	o := &pdfOptions{}
	for _, opt := range opts {
		opt(o)
	}

	pdf := gofpdf.New("P", "mm", "A4", o.fontDir)
	family := "Arial"
	text := pdf.UnicodeTranslatorFromDescriptor("")
	if o.fontFile != "" {
		family = "ledger"
		pdf.AddUTF8Font(family, "", o.fontFile)
		pdf.AddUTF8Font(family, "B", o.fontFile)
		text = func(s string) string { return s }
	}

	pdf.SetFont(family, "B", 14)
	pdf.AddPage()
	pdf.Cell(0, 8, "Customer Statement")
	pdf.Ln(10)

	pdf.SetFont(family, "", 10)
	pdf.Cell(0, 6, text("Customer: "+stmt.Entity.Name))
	pdf.Ln(5)
	if stmt.Entity.Phone != "" {
		pdf.Cell(0, 6, text("Phone: "+stmt.Entity.Phone))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, "Period: "+rangeLabel(stmt))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Opening balance: "+money(stmt.OpeningBalance))
	pdf.Ln(8)

	pdf.SetFont(family, "B", 9)
	pdf.CellFormat(24, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(62, 6, "Description", "1", 0, "C", false, 0, "")
	pdf.CellFormat(32, 6, "Debit", "1", 0, "C", false, 0, "")
	pdf.CellFormat(32, 6, "Credit", "1", 0, "C", false, 0, "")
	pdf.CellFormat(36, 6, "Balance", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont(family, "", 9)
	for _, line := range stmt.Lines {
		debit, credit := "", ""
		if line.Kind == ledger.LineKindOrder {
			debit = money(line.Debit)
		} else {
			credit = money(line.Credit)
		}
		pdf.CellFormat(24, 6, line.Date.Format(dateLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(62, 6, text(line.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(32, 6, debit, "1", 0, "R", false, 0, "")
		pdf.CellFormat(32, 6, credit, "1", 0, "R", false, 0, "")
		pdf.CellFormat(36, 6, money(line.RunningBalance), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont(family, "B", 9)
	pdf.CellFormat(86, 6, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(32, 6, money(stmt.DebitTotal), "1", 0, "R", false, 0, "")
	pdf.CellFormat(32, 6, money(stmt.CreditTotal), "1", 0, "R", false, 0, "")
	pdf.CellFormat(36, 6, money(stmt.ClosingBalance), "1", 0, "R", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont(family, "", 10)
	pdf.Cell(0, 6, "Closing balance: "+money(stmt.ClosingBalance))
	pdf.Ln(5)
	if !stmt.TrailingNet.IsZero() {
		pdf.Cell(0, 6, "Activity after period end: "+money(stmt.TrailingNet))
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render statement pdf: %w", err)
	}
	return buf.Bytes(), nil
}

const (
	summarySheet = "summary"
	linesSheet   = "lines"
)

// StatementXLSX renders a statement as a workbook with a summary and a lines sheet
func StatementXLSX(stmt *ledger.Statement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(linesSheet); err != nil {
		return nil, fmt.Errorf("failed to create lines sheet: %w", err)
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("failed to create money style: %w", err)
	}

	rangeStart := ""
	if stmt.RangeStart != nil {
		rangeStart = stmt.RangeStart.Format(dateLayout)
	}
	summary := [][]interface{}{
		{"Customer Statement"},
		{},
		{"Entity ID", string(stmt.Entity.ID)},
		{"Customer", stmt.Entity.Name},
		{"Phone", stmt.Entity.Phone},
		{"Range start", rangeStart},
		{"Range end", stmt.RangeEnd.Format(dateLayout)},
		{"Opening balance", stmt.OpeningBalance.InexactFloat64()},
		{"Debit total", stmt.DebitTotal.InexactFloat64()},
		{"Credit total", stmt.CreditTotal.InexactFloat64()},
		{"Closing balance", stmt.ClosingBalance.InexactFloat64()},
		{"Activity after range", stmt.TrailingNet.InexactFloat64()},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "B8", "B12", moneyStyle); err != nil {
		return nil, fmt.Errorf("failed to style summary: %w", err)
	}

	header := []interface{}{"Date", "Kind", "Record", "Description", "Debit", "Credit", "Balance"}
	if err := f.SetSheetRow(linesSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, line := range stmt.Lines {
		row := []interface{}{
			line.Date.Format(dateLayout),
			string(line.Kind),
			line.RecordID,
			line.Description,
			line.Debit.InexactFloat64(),
			line.Credit.InexactFloat64(),
			line.RunningBalance.InexactFloat64(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(linesSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write line %d: %w", i+1, err)
		}
	}
	if n := len(stmt.Lines); n > 0 {
		last, _ := excelize.CoordinatesToCellName(7, n+1)
		if err := f.SetCellStyle(linesSheet, "E2", last, moneyStyle); err != nil {
			return nil, fmt.Errorf("failed to style lines: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render statement xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

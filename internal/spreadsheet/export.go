// Package spreadsheet turns entity lists into xlsx/csv/pdf downloads and
// parses uploaded xlsx/csv sheets into header-keyed records.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
)

const (
	FormatExcel = "xlsx"
	FormatCSV   = "csv"
	FormatPDF   = "pdf"
)

const (
	mimeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeCSV   = "text/csv"
	mimePDF   = "application/pdf"
)

// Table is a rendered list: one header row plus string cells.
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]string
}

// File is an export ready to be sent.
type File struct {
	Data        []byte
	Filename    string
	ContentType string
}

// NormalizeFormat maps the accepted spellings onto a format constant.
// Empty means xlsx.
func NormalizeFormat(format string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "xlsx", "excel":
		return FormatExcel, true
	case "csv":
		return FormatCSV, true
	case "pdf":
		return FormatPDF, true
	}
	return "", false
}

// Export renders t as `<entity>_export_<YYYY-MM-DD>.<ext>`. A table without
// rows returns apperr.ErrNoData instead of an empty file.
func Export(entity, format string, t Table, now time.Time) (File, error) {
	if len(t.Rows) == 0 {
		return File{}, apperr.ErrNoData
	}
	f, ok := NormalizeFormat(format)
	if !ok {
		return File{}, fmt.Errorf("unsupported export format: %s", format)
	}
	if t.Sheet == "" {
		t.Sheet = entity
	}
	name := fmt.Sprintf("%s_export_%s.%s", entity, now.Format("2006-01-02"), f)

	var (
		data []byte
		err  error
		mime string
	)
	switch f {
	case FormatExcel:
		data, err = writeExcel(t)
		mime = mimeExcel
	case FormatCSV:
		data, err = writeCSV(t)
		mime = mimeCSV
	case FormatPDF:
		data, err = writePDF(t)
		mime = mimePDF
	}
	if err != nil {
		return File{}, fmt.Errorf("export %s as %s: %w", entity, f, err)
	}
	return File{Data: data, Filename: name, ContentType: mime}, nil
}

func writeExcel(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Sheet)
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, err
		}
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
		widths[i] = utf8.RuneCountInString(h)
	}

	for r, row := range t.Rows {
		for i, v := range row {
			if i >= len(widths) {
				break
			}
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
			if n := utf8.RuneCountInString(v); n > widths[i] {
				widths[i] = n
			}
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(t.Headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return nil, err
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, columnWidth(w)); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// columnWidth pads the longest cell and caps very long text columns.
func columnWidth(chars int) float64 {
	w := float64(chars) + 2
	if w < 8 {
		w = 8
	}
	if w > 60 {
		w = 60
	}
	return w
}

// sheetName keeps names within excel's 31 char limit and strips the
// characters it forbids.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, name)
	if name == "" {
		return "Sheet1"
	}
	if utf8.RuneCountInString(name) > 31 {
		name = string([]rune(name)[:31])
	}
	return name
}

func writeCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Headers); err != nil {
		return nil, err
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePDF(t Table) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, t.Sheet+" export")
	pdf.Ln(10)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := (pageWidth - left - right) / float64(len(t.Headers))
	maxChars := int(width / 1.8)

	header := func() {
		pdf.SetFont("Arial", "B", 8)
		for _, h := range t.Headers {
			pdf.CellFormat(width, 7, clip(h, maxChars), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 7)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	for _, row := range t.Rows {
		if pdf.GetY()+6 > pageHeight-10 {
			pdf.AddPage()
			header()
		}
		for i := range t.Headers {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			pdf.CellFormat(width, 6, clip(v, maxChars), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clip(s string, n int) string {
	if n < 4 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

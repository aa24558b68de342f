package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/uniresearch/research-portal-backend/internal/validation"
)

var ErrLegacyExcel = errors.New(".xls files are not supported, save the sheet as .xlsx or .csv")

// Record is one data row keyed by normalized header. Row is the 1-based
// sheet row so errors point at what the user sees.
type Record struct {
	Row    int
	Values map[string]string
}

// Get returns the first non-empty value among the aliases.
func (r Record) Get(aliases ...string) string {
	for _, a := range aliases {
		if v := strings.TrimSpace(r.Values[NormalizeHeader(a)]); v != "" {
			return v
		}
	}
	return ""
}

// NormalizeHeader lower-cases and drops spaces, underscores and dashes so
// "Project ID", "project_id" and "project-id" match.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '.':
			return -1
		}
		return r
	}, h)
}

// ReadRecords parses the first sheet of an xlsx or a csv file. Blank rows
// are skipped.
func ReadRecords(filename string, r io.Reader) ([]Record, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		rows, err = readExcel(r)
	case ".csv":
		rows, err = readCSV(r)
	case ".xls":
		return nil, validation.FieldErrors{"file": ErrLegacyExcel.Error()}
	default:
		return nil, validation.FieldErrors{"file": "only .xlsx and .csv files can be imported"}
	}
	if err != nil {
		return nil, validation.FieldErrors{"file": "could not read spreadsheet: " + err.Error()}
	}
	if len(rows) == 0 {
		return nil, validation.FieldErrors{"file": "spreadsheet has no header row"}
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = NormalizeHeader(strings.TrimPrefix(h, "\ufeff"))
	}

	out := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec := Record{Row: i + 2, Values: make(map[string]string, len(headers))}
		blank := true
		for c, v := range row {
			if c >= len(headers) || headers[c] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v != "" {
				blank = false
			}
			rec.Values[headers[c]] = v
		}
		if !blank {
			out = append(out, rec)
		}
	}
	return out, nil
}

func readExcel(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

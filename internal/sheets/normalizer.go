// Package sheets turns uploaded spreadsheet files into ordered row records.
package sheets

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/isdelr/sheetcharts-be/internal/models"
)

var (
	// ErrNoFile is returned when no file content was supplied.
	ErrNoFile = errors.New("no file uploaded")

	// ErrUnparsable is returned when the content is not a readable workbook
	// or the workbook has no sheets.
	ErrUnparsable = errors.New("unparsable workbook")
)

// Table is the normalized content of the first sheet of a workbook.
type Table struct {
	Columns []string     // Header cells in sheet order, deduplicated
	Rows    []models.Row // One record per non-empty data row
}

// Normalize parses data according to the extension of filename: OOXML
// workbooks (.xlsx, .xlsm, .xltx, .xltm) and .csv. Legacy .xls and
// OpenDocument .ods files are rejected with ErrUnparsable. Only the first
// sheet of a workbook is read.
func Normalize(filename string, data []byte) (Table, error) {
	if len(data) == 0 {
		return Table{}, ErrNoFile
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(bytes.NewReader(data))
	case ".xlsx", ".xlsm", ".xltx", ".xltm", "":
		return readWorkbook(bytes.NewReader(data))
	default:
		return Table{}, fmt.Errorf("%w: unsupported file type %q", ErrUnparsable, filepath.Ext(filename))
	}
}

// buildTable maps a header and data rows of raw cells onto records. Blank
// header cells drop their column and duplicated headers get a _N suffix.
func buildTable(header []string, rows int, cell func(row, col int) (models.Cell, bool)) Table {
	type column struct {
		index int
		name  string
	}

	seen := make(map[string]int)
	var cols []column
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "_" + strconv.Itoa(n)
		} else {
			seen[name] = 1
		}
		cols = append(cols, column{index: i, name: name})
	}

	t := Table{Columns: make([]string, 0, len(cols)), Rows: []models.Row{}}
	for _, c := range cols {
		t.Columns = append(t.Columns, c.name)
	}

	for r := 0; r < rows; r++ {
		rec := models.Row{}
		for _, c := range cols {
			if v, ok := cell(r, c.index); ok {
				rec[c.name] = v
			}
		}
		if len(rec) == 0 {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t
}

// coerceText types a plain text value the way a spreadsheet would on import.
func coerceText(s string) (models.Cell, bool) {
	if s == "" {
		return models.Cell{}, false
	}
	trimmed := strings.TrimSpace(s)
	if f, ok := parseDecimal(trimmed); ok {
		return models.NumberCell(f), true
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return models.BoolCell(true), true
	case "false":
		return models.BoolCell(false), true
	}
	return models.StringCell(s), true
}

// parseDecimal accepts plain finite decimal numbers only. Spellings such as
// NaN, inf or 0x1p-2 that strconv also understands stay text.
func parseDecimal(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true
		case r == '.' || r == '-' || r == '+' || r == 'e' || r == 'E':
		default:
			return 0, false
		}
	}
	if !digits {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

package sheets

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/xuri/excelize/v2"
)

func readWorkbook(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("%w: workbook has no sheets", ErrUnparsable)
	}
	sheet := sheets[0]

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	if len(raw) == 0 {
		return Table{Columns: []string{}, Rows: []models.Row{}}, nil
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	body := raw[1:]
	return buildTable(raw[0], len(body), func(row, col int) (models.Cell, bool) {
		if col >= len(body[row]) || body[row][col] == "" {
			return models.Cell{}, false
		}
		// +2: one for the header, one for 1-based coordinates.
		name, err := excelize.CoordinatesToCellName(col+1, row+2)
		if err != nil {
			return coerceText(body[row][col])
		}
		return typedCell(f, sheet, name, body[row][col], date1904), true
	}), nil
}

// typedCell uses the cell's type tag, and for numbers its number format, to
// pick the native value.
func typedCell(f *excelize.File, sheet, name, raw string, date1904 bool) models.Cell {
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		typ = excelize.CellTypeUnset
	}

	switch typ {
	case excelize.CellTypeBool:
		switch strings.ToUpper(raw) {
		case "1", "TRUE":
			return models.BoolCell(true)
		default:
			return models.BoolCell(false)
		}
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return models.StringCell(raw)
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return models.DateCell(t)
		}
		if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
			return models.DateCell(t)
		}
		return models.StringCell(raw)
	case excelize.CellTypeFormula:
		// Cached string result of a formula.
		return models.StringCell(raw)
	}

	n, ok := parseDecimal(raw)
	if !ok {
		return models.StringCell(raw)
	}
	if isDateFormatted(f, sheet, name) {
		if t, err := excelize.ExcelDateToTime(n, date1904); err == nil {
			return models.DateCell(t)
		}
	}
	return models.NumberCell(n)
}

// Built-in number formats that render as dates or times.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

var (
	quotedOrBracketed = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)
	dateTokens        = regexp.MustCompile(`[ymdhs]`)
)

func isDateFormatted(f *excelize.File, sheet, name string) bool {
	styleID, err := f.GetCellStyle(sheet, name)
	if err != nil || styleID == 0 {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	return builtinDateFormats[style.NumFmt]
}

// isDateFormatCode reports whether a custom number format code formats dates.
func isDateFormatCode(code string) bool {
	code = strings.ToLower(code)
	if code == "" || code == "general" {
		return false
	}
	// Only the positive section decides.
	if i := strings.Index(code, ";"); i >= 0 {
		code = code[:i]
	}
	code = quotedOrBracketed.ReplaceAllString(code, "")
	return dateTokens.MatchString(code)
}

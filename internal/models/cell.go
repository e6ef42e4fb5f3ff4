package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// CellKind tags the value held by a Cell.
type CellKind int

const (
	CellNull CellKind = iota
	CellString
	CellNumber
	CellBool
	CellDate
)

// Cell is one spreadsheet value. On the wire dates travel as RFC3339 strings
// and read back as plain strings; the stored form keeps the kind.
type Cell struct {
	Kind CellKind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
}

// Row maps a column header to the cell found under it. Columns whose cell
// was empty in the source are absent.
type Row map[string]Cell

func StringCell(s string) Cell  { return Cell{Kind: CellString, Str: s} }
func NumberCell(f float64) Cell { return Cell{Kind: CellNumber, Num: f} }
func BoolCell(b bool) Cell      { return Cell{Kind: CellBool, Bool: b} }
func DateCell(t time.Time) Cell { return Cell{Kind: CellDate, Time: t.UTC()} }
func NullCell() Cell            { return Cell{} }
func (c Cell) IsNull() bool     { return c.Kind == CellNull }

// Float returns the numeric reading of the cell. Numeric strings are parsed;
// anything else that is not a number reads as ok=false.
func (c Cell) Float() (float64, bool) {
	switch c.Kind {
	case CellNumber:
		return c.Num, true
	case CellString:
		f, err := strconv.ParseFloat(c.Str, 64)
		if err != nil || !finite(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Text renders the cell as a label.
func (c Cell) Text() string {
	switch c.Kind {
	case CellString:
		return c.Str
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case CellBool:
		return strconv.FormatBool(c.Bool)
	case CellDate:
		return c.Time.Format(time.RFC3339)
	}
	return ""
}

// Truthy follows the falsy rules the web client applies to labels:
// empty string, zero, false and null are all falsy.
func (c Cell) Truthy() bool {
	switch c.Kind {
	case CellString:
		return c.Str != ""
	case CellNumber:
		return c.Num != 0
	case CellBool:
		return c.Bool
	case CellDate:
		return true
	}
	return false
}

func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellString:
		return json.Marshal(c.Str)
	case CellNumber:
		if !finite(c.Num) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(c.Num, 'f', -1, 64)), nil
	case CellBool:
		return json.Marshal(c.Bool)
	case CellDate:
		return json.Marshal(c.Time.Format(time.RFC3339Nano))
	}
	return []byte("null"), nil
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = NullCell()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = StringCell(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*c = BoolCell(b)
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil || !finite(f) {
			return fmt.Errorf("cell: unsupported value %s", data)
		}
		*c = NumberCell(f)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Kind tags of the stored cell form.
const (
	tagString = "s"
	tagNumber = "n"
	tagBool   = "b"
	tagDate   = "d"
)

// storedCell is a cell as kept in data_json: {"t":"d","v":"2024-01-31T00:00:00Z"}.
type storedCell struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v,omitempty"`
}

func (c Cell) stored() (storedCell, error) {
	var tag string
	switch c.Kind {
	case CellString:
		tag = tagString
	case CellNumber:
		if !finite(c.Num) {
			return storedCell{}, nil
		}
		tag = tagNumber
	case CellBool:
		tag = tagBool
	case CellDate:
		tag = tagDate
	default:
		return storedCell{}, nil
	}
	v, err := c.MarshalJSON()
	if err != nil {
		return storedCell{}, err
	}
	return storedCell{T: tag, V: v}, nil
}

func (sc storedCell) cell() (Cell, error) {
	switch sc.T {
	case "":
		return NullCell(), nil
	case tagString:
		var s string
		if err := json.Unmarshal(sc.V, &s); err != nil {
			return Cell{}, err
		}
		return StringCell(s), nil
	case tagNumber:
		var f float64
		if err := json.Unmarshal(sc.V, &f); err != nil {
			return Cell{}, err
		}
		return NumberCell(f), nil
	case tagBool:
		var b bool
		if err := json.Unmarshal(sc.V, &b); err != nil {
			return Cell{}, err
		}
		return BoolCell(b), nil
	case tagDate:
		var s string
		if err := json.Unmarshal(sc.V, &s); err != nil {
			return Cell{}, err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Cell{}, err
		}
		return DateCell(t), nil
	}
	return Cell{}, fmt.Errorf("cell: unknown kind tag %q", sc.T)
}

// EncodeRows renders rows in the stored form.
func EncodeRows(rows []Row) ([]byte, error) {
	out := make([]map[string]storedCell, len(rows))
	for i, row := range rows {
		m := make(map[string]storedCell, len(row))
		for name, c := range row {
			sc, err := c.stored()
			if err != nil {
				return nil, err
			}
			m[name] = sc
		}
		out[i] = m
	}
	return json.Marshal(out)
}

// DecodeRows reads rows written by EncodeRows.
func DecodeRows(data []byte) ([]Row, error) {
	var in []map[string]storedCell
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	rows := make([]Row, len(in))
	for i, m := range in {
		row := make(Row, len(m))
		for name, sc := range m {
			c, err := sc.cell()
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			row[name] = c
		}
		rows[i] = row
	}
	return rows, nil
}

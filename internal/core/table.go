package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ColumnType is the inferred type of a table column, fixed at parse time.
type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnNumeric
)

func (t ColumnType) String() string {
	if t == ColumnNumeric {
		return "numeric"
	}
	return "text"
}

// ValueKind discriminates the payload of a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumber
	KindText
)

// Value is a single typed cell: a number, a text string, or null.
type Value struct {
	Kind   ValueKind
	Number float64
	Text   string
}

// Null returns the null Value.
func Null() Value { return Value{Kind: KindNull} }

// NumberValue returns a numeric Value.
func NumberValue(f float64) Value { return Value{Kind: KindNumber, Number: f} }

// TextValue returns a text Value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// MarshalJSON renders the value as a JSON number, string, or null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return []byte(strconv.FormatFloat(v.Number, 'g', -1, 64)), nil
	case KindText:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

// Row maps column names to typed cell values.
type Row map[string]Value

// Table is the canonical in-memory form of an uploaded tabular file.
// It is immutable once built: column names are unique and ordered, and
// each column's type is fixed.
type Table struct {
	Columns []string
	Types   []ColumnType // parallel to Columns
	Rows    []Row
}

// Type returns the inferred type of the named column.
func (t *Table) Type(name string) (ColumnType, bool) {
	for i, col := range t.Columns {
		if col == name {
			return t.Types[i], true
		}
	}
	return ColumnText, false
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Type(name)
	return ok
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumericValues returns the non-null values of a numeric column, in row
// order. For text or unknown columns it returns nil.
func (t *Table) NumericValues(name string) []float64 {
	typ, ok := t.Type(name)
	if !ok || typ != ColumnNumeric {
		return nil
	}

	out := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		v := row[name]
		if v.Kind == KindNumber {
			out = append(out, v.Number)
		}
	}
	return out
}

// Preview returns the first n rows without copying or consuming the table.
func (t *Table) Preview(n int) []Row {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// buildTable constructs a typed Table from a raw header and string records.
// Column types are inferred here, once: a column is numeric iff it has at
// least one non-null value and every non-null value parses as a number.
// Mixed and all-null columns are text.
func buildTable(header []string, records [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, ErrNoDataRows
	}

	columns := normalizeColumns(header)
	types := make([]ColumnType, len(columns))

	for i := range columns {
		numeric := true
		seen := false
		for _, rec := range records {
			if i >= len(rec) {
				continue // ragged row, treated as null
			}
			cell := strings.TrimSpace(rec[i])
			if cell == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric = false
				break
			}
		}
		if numeric && seen {
			types[i] = ColumnNumeric
		} else {
			types[i] = ColumnText
		}
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, len(columns))
		for i, col := range columns {
			var cell string
			if i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			switch {
			case cell == "":
				row[col] = Null()
			case types[i] == ColumnNumeric:
				f, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					// Unreachable given inference above, but never silently coerce.
					row[col] = TextValue(cell)
				} else {
					row[col] = NumberValue(f)
				}
			default:
				row[col] = TextValue(cell)
			}
		}
		rows = append(rows, row)
	}

	return &Table{Columns: columns, Types: types, Rows: rows}, nil
}

// normalizeColumns cleans header names and makes blanks and duplicates
// deterministic and unique: blank names become column_N, repeated names get
// a _2, _3, ... suffix. A suffixed name can itself collide with a literal
// header (A,A,A_2), so the suffix is bumped until the name is unused.
func normalizeColumns(header []string) []string {
	cleaned := make([]string, 0, len(header))
	taken := make(map[string]bool, len(header))

	for i, col := range header {
		base := strings.TrimSpace(col)
		if base == "" {
			base = fmt.Sprintf("column_%d", i+1)
		}
		name := base
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		taken[name] = true
		cleaned = append(cleaned, name)
	}

	return cleaned
}

/*
Package dataset provides the in-memory table every other package works on.

PURPOSE:
  This package contains the domain-agnostic tabular substrate for the
  people-analytics pipeline. Sheets imports, Metabase query results, CSV
  files and computed metric tables all share one shape: an ordered list
  of named columns plus rows of string cells.

KEY CONCEPTS IN THIS FILE (dataset.go):
  - Dataset: ordered header + rows, schema-tolerant by column name
  - Select:  column subset/reorder (export ordering)
  - Concat:  row-wise concatenation of identically-shaped tables

DESIGN PRINCIPLES:
  1. Cells are strings: that is what spreadsheets and query APIs hand us.
     Typed interpretation (dates, decimals) happens at the point of use.
  2. Column order is part of the schema: downstream sheets are consumed
     by dashboards that address columns by position.
  3. No hidden state: every transformation returns a value derived only
     from its inputs.

USAGE:
  ds := dataset.New([]string{"Data", "Tabela", "Company"})
  _ = ds.Append([]string{"31/01/2025", "Atv", "Acme"})
  sub, _ := ds.Select("Company", "Data")

SEE ALSO:
  - errors.go: error taxonomy (missing column, bad date, schema mismatch)
  - dates.go:  day-first date parsing
  - csv.go:    CSV codec
*/
package dataset

import (
	"fmt"
)

// =============================================================================
// DATASET - Ordered named columns + rows of string cells
// =============================================================================

type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New creates an empty dataset with the given column set.
func New(columns []string) *Dataset {
	d := &Dataset{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range d.columns {
		d.index[c] = i
	}
	return d
}

// FromRows builds a dataset from raw rows where the first row is the header.
// This is the spreadsheet convention: get-all-values, then promote row one.
// Short data rows are padded with empty cells; long rows are an error.
func FromRows(rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset: no header row: %w", ErrSchemaMismatch)
	}
	d := New(rows[0])
	for i, row := range rows[1:] {
		if len(row) > len(d.columns) {
			return nil, &SchemaError{
				Detail: fmt.Sprintf("row %d has %d cells, header has %d", i+1, len(row), len(d.columns)),
			}
		}
		padded := make([]string, len(d.columns))
		copy(padded, row)
		d.rows = append(d.rows, padded)
	}
	return d, nil
}

// Columns returns the column names in order. The slice is a copy.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// ColumnIndex returns the position of a column, or -1 if absent.
func (d *Dataset) ColumnIndex(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether the dataset carries a column with this name.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Require returns a MissingColumnError for the first absent column.
func (d *Dataset) Require(names ...string) error {
	for _, n := range names {
		if !d.HasColumn(n) {
			return &MissingColumnError{Column: n}
		}
	}
	return nil
}

// Len returns the number of data rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Append adds one row. The row must match the column count exactly.
func (d *Dataset) Append(row []string) error {
	if len(row) != len(d.columns) {
		return &SchemaError{
			Detail: fmt.Sprintf("row has %d cells, dataset has %d columns", len(row), len(d.columns)),
		}
	}
	d.rows = append(d.rows, append([]string(nil), row...))
	return nil
}

// Cell returns the value at (row, column name). Empty string if out of range
// or the column is unknown; callers that care use Require first.
func (d *Dataset) Cell(row int, column string) string {
	if row < 0 || row >= len(d.rows) {
		return ""
	}
	i, ok := d.index[column]
	if !ok {
		return ""
	}
	return d.rows[row][i]
}

// Row returns a copy of one data row.
func (d *Dataset) Row(i int) []string {
	if i < 0 || i >= len(d.rows) {
		return nil
	}
	return append([]string(nil), d.rows[i]...)
}

// Rows returns copies of all data rows, header excluded.
func (d *Dataset) Rows() [][]string {
	out := make([][]string, len(d.rows))
	for i := range d.rows {
		out[i] = append([]string(nil), d.rows[i]...)
	}
	return out
}

// SetCell overwrites the value at (row, column name).
func (d *Dataset) SetCell(row int, column, value string) error {
	if row < 0 || row >= len(d.rows) {
		return &SchemaError{Detail: fmt.Sprintf("row %d out of range", row)}
	}
	i, ok := d.index[column]
	if !ok {
		return &MissingColumnError{Column: column}
	}
	d.rows[row][i] = value
	return nil
}

// =============================================================================
// RESHAPING
// =============================================================================

// Select returns a new dataset restricted to the named columns, in the
// given order. This backs the export "order" option: reorder and drop in
// one step. Unknown names are an error.
func (d *Dataset) Select(columns ...string) (*Dataset, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		j, ok := d.index[c]
		if !ok {
			return nil, &MissingColumnError{Column: c}
		}
		idx[i] = j
	}
	out := New(columns)
	for _, row := range d.rows {
		selected := make([]string, len(idx))
		for i, j := range idx {
			selected[i] = row[j]
		}
		out.rows = append(out.rows, selected)
	}
	return out, nil
}

// Concat appends the rows of every dataset in order. All inputs must share
// an identical column list (same names, same order); row order within each
// input is preserved and nothing is deduplicated.
func Concat(datasets ...*Dataset) (*Dataset, error) {
	if len(datasets) == 0 {
		return nil, fmt.Errorf("dataset: concat of nothing: %w", ErrSchemaMismatch)
	}
	first := datasets[0]
	out := New(first.columns)
	for n, ds := range datasets {
		if len(ds.columns) != len(first.columns) {
			return nil, &SchemaError{
				Detail: fmt.Sprintf("concat input %d has %d columns, expected %d", n, len(ds.columns), len(first.columns)),
			}
		}
		for i, c := range ds.columns {
			if first.columns[i] != c {
				return nil, &SchemaError{
					Detail: fmt.Sprintf("concat input %d column %d is %q, expected %q", n, i, c, first.columns[i]),
				}
			}
		}
		for _, row := range ds.rows {
			out.rows = append(out.rows, append([]string(nil), row...))
		}
	}
	return out, nil
}

// HeaderAndRows returns the header row followed by all data rows, the shape
// spreadsheet writes expect.
func (d *Dataset) HeaderAndRows() [][]string {
	out := make([][]string, 0, len(d.rows)+1)
	out = append(out, d.Columns())
	out = append(out, d.Rows()...)
	return out
}

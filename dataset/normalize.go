/*
normalize.go - Cleanup for sheets pulled from Google Sheets

PURPOSE:
  Hand-maintained sheets arrive with lookup-error placeholders (#N/A,
  #N/D) and Brazilian-locale numbers (1.234,56). Normalize repairs both
  so the rest of the pipeline can parse cells with strconv and
  ParseDayFirst without per-call-site fixups.

RULES:
  1. Placeholder cells become empty cells.
  2. A column whose non-empty cells all look numeric ([0-9.,] only) has
     thousands dots stripped and the decimal comma swapped to a dot.
  3. Date columns already in dd/mm/yyyy are left untouched; that is the
     canonical cell format.

Columns that mix text with numbers are left alone. The check is per
column, not per cell, so a free-text column containing "1,5" somewhere
is never mangled.
*/
package dataset

import (
	"regexp"
	"strings"
)

// DefaultPlaceholders are the cell values treated as empty on import.
// #N/A and #N/D are the English and Portuguese sheet lookup errors.
var DefaultPlaceholders = []string{"", "#N/A", "#N/D"}

var numericCellPattern = regexp.MustCompile(`^[\d.,]+$`)

// Normalize cleans a freshly imported dataset in place and returns it.
// Placeholders collapse to empty cells, then every all-numeric column is
// rewritten from 1.234,56 form to 1234.56 form.
func (d *Dataset) Normalize(placeholders ...string) *Dataset {
	if len(placeholders) == 0 {
		placeholders = DefaultPlaceholders
	}
	blank := make(map[string]bool, len(placeholders))
	for _, p := range placeholders {
		blank[p] = true
	}

	for _, rows := range d.rows {
		for i, cell := range rows {
			if blank[strings.TrimSpace(cell)] {
				rows[i] = ""
			}
		}
	}

	for col := range d.columns {
		if d.columnIsNumeric(col) {
			for _, row := range d.rows {
				row[col] = normalizeNumber(row[col])
			}
		}
	}
	return d
}

// columnIsNumeric reports whether every non-empty cell of the column
// contains only digits, dots and commas. An all-empty column does not
// count as numeric.
func (d *Dataset) columnIsNumeric(col int) bool {
	seen := false
	for _, row := range d.rows {
		cell := row[col]
		if cell == "" {
			continue
		}
		if !numericCellPattern.MatchString(cell) {
			return false
		}
		seen = true
	}
	return seen
}

// normalizeNumber turns 1.234,56 into 1234.56. In a numeric column the
// dot is always a thousands separator and the comma always the decimal
// mark; the sheets feeding this pipeline are decimal-comma locale.
func normalizeNumber(cell string) string {
	if cell == "" {
		return cell
	}
	cell = strings.ReplaceAll(cell, ".", "")
	cell = strings.ReplaceAll(cell, ",", ".")
	return cell
}

package dataset

import (
	"strings"
	"time"
)

// DayFirstLayout is the canonical cell format for dates in every sheet
// this pipeline touches: day first, four-digit year.
const DayFirstLayout = "02/01/2006"

// dayFirstLayouts are tried in order. Sheets hand-entered by analysts use
// dd/mm/yyyy with or without zero padding; BI exports use ISO forms.
var dayFirstLayouts = []string{
	DayFirstLayout,
	"2/1/2006",
	"2006-01-02",
	time.RFC3339,
}

// ParseDayFirst parses a date cell, day before month. Surrounding
// whitespace is ignored. The zero time plus false means no parse.
func ParseDayFirst(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDayFirst renders a time as a dd/mm/yyyy cell.
func FormatDayFirst(t time.Time) string {
	return t.Format(DayFirstLayout)
}

// ParseDateColumn parses every cell of a date column, returning the parsed
// times in row order. The first unparseable cell aborts with a
// DateFormatError naming the row, so a bad sheet fails loudly instead of
// producing a metrics table with silent holes.
func (d *Dataset) ParseDateColumn(column string) ([]time.Time, error) {
	if err := d.Require(column); err != nil {
		return nil, err
	}
	out := make([]time.Time, d.Len())
	for i := 0; i < d.Len(); i++ {
		raw := d.Cell(i, column)
		t, ok := ParseDayFirst(raw)
		if !ok {
			return nil, &DateFormatError{Column: column, Row: i, Value: raw}
		}
		out[i] = t
	}
	return out, nil
}

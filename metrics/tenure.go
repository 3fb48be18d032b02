/*
tenure.go - Median tenure for active and exited populations

PURPOSE:
  Turns the same headcount snapshot into a tenure dataset: per reference
  date and perimeter, the median months of tenure among people still
  active and among people who left. HR reads the two medians side by
  side to see whether leavers are the long-tenured or the recently
  arrived.

CALCULATION:
  1. Drop entrant rows (headcount type = Entry). New hires stay: they
     are part of the active population here, unlike in turnover.
  2. Classify every remaining row as active (status Active or NewHire)
     or exited (anything else).
  3. Bucket by (reference date, grouping value) and take the median of
     the tenure column per class. Cells that do not parse as numbers
     are ignored, like blanks. A class with no values yields an empty
     cell, not a zero; zero months is real data.

SEE ALSO:
  - turnover.go: exit counts over the same bucketing
*/
package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/people-analytics/dataset"
)

// =============================================================================
// TENURE - Single perimeter
// =============================================================================

type tenureBucket struct {
	date   time.Time
	group  string
	active []decimal.Decimal
	exited []decimal.Decimal
}

// Tenure computes the median-tenure table for one grouping column. Rows
// whose grouping cell is empty are skipped; an unparseable date in any
// row that survives the entrant filter aborts with a DateFormatError.
func Tenure(ds *dataset.Dataset, group string, opts Options) (*dataset.Dataset, error) {
	opts = opts.withDefaults()
	if err := ds.Require(opts.DateColumn, opts.StatusColumn, opts.HCTypeColumn, opts.TenureColumn, group); err != nil {
		return nil, err
	}

	byKey := make(map[string]*tenureBucket)
	var buckets []*tenureBucket

	for i := 0; i < ds.Len(); i++ {
		if ds.Cell(i, opts.HCTypeColumn) == opts.Codes.Entry {
			continue
		}
		raw := ds.Cell(i, opts.DateColumn)
		date, ok := dataset.ParseDayFirst(raw)
		if !ok {
			return nil, &dataset.DateFormatError{Column: opts.DateColumn, Row: i, Value: raw}
		}
		value := ds.Cell(i, group)
		if value == "" {
			continue
		}

		key := dataset.FormatDayFirst(date) + "\x00" + value
		b, exists := byKey[key]
		if !exists {
			b = &tenureBucket{date: date, group: value}
			byKey[key] = b
			buckets = append(buckets, b)
		}

		months, err := decimal.NewFromString(ds.Cell(i, opts.TenureColumn))
		if err != nil {
			continue
		}
		status := ds.Cell(i, opts.StatusColumn)
		if status == opts.Codes.Active || status == opts.Codes.NewHire {
			b.active = append(b.active, months)
		} else {
			b.exited = append(b.exited, months)
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		if !buckets[i].date.Equal(buckets[j].date) {
			return buckets[i].date.Before(buckets[j].date)
		}
		return buckets[i].group < buckets[j].group
	})

	out := dataset.New(DefaultTenureColumns)
	for _, b := range buckets {
		row := []string{
			b.group + strconv.Itoa(b.date.Year()) + strconv.Itoa(int(b.date.Month())),
			strconv.Itoa(b.date.Year()),
			strconv.Itoa(int(b.date.Month())),
			dataset.FormatDayFirst(b.date),
			b.group,
			median(b.active),
			median(b.exited),
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}

	if !sameColumns(opts.TenureColumns, DefaultTenureColumns) {
		return out.Select(opts.TenureColumns...)
	}
	return out, nil
}

// TenureTable fans Tenure out over a list of grouping columns and
// concatenates the results in grouping order. A nil groups list falls
// back to the options' grouping list.
func TenureTable(ds *dataset.Dataset, groups []string, opts Options) (*dataset.Dataset, error) {
	opts = opts.withDefaults()
	if len(groups) == 0 {
		groups = opts.Groupings
	}
	parts := make([]*dataset.Dataset, 0, len(groups))
	for _, group := range groups {
		part, err := Tenure(ds, group, opts)
		if err != nil {
			return nil, fmt.Errorf("tenure for %q: %w", group, err)
		}
		parts = append(parts, part)
	}
	return dataset.Concat(parts...)
}

// =============================================================================
// MEDIAN
// =============================================================================

// median returns the middle value, or the mean of the two middles for an
// even count. An empty slice renders as an empty cell so dashboards can
// tell "no population" apart from "median of zero months".
func median(values []decimal.Decimal) string {
	if len(values) == 0 {
		return ""
	}
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid].String()
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2)).String()
}

/*
turnover.go - Exit counts, turnover rates and year-to-date accumulation

PURPOSE:
  Turns a headcount snapshot table into the monthly turnover dataset for
  one organizational perimeter: how many people were active, how many
  left and why, and what share of the reference headcount that is, month
  by month with year-to-date running totals.

CALCULATION:
  1. Drop entrant rows (headcount type = Entry) and new-hire status rows.
  2. Bucket the remainder by (reference date, grouping value), counting
     occurrences of each status code. Statuses outside the vocabulary
     count nowhere.
  3. Per bucket:
       Resc_Total     = Inv + Vol
       Resc_Total+Red = Resc_Total + Red
       HC_Ref         = Resc_Total+Red + Atv
       TO_x           = x / HC_Ref, 4 decimals, 0 when HC_Ref is 0
  4. Year-to-date: running sums of the five exit counts and the five
     monthly rates, partitioned by (year, grouping value), accumulated
     in chronological order and resetting each January.

The composite Key (Perimetro + year + month) is carried for dashboard
joins. It is not unique across grouping levels that share values;
consumers filter by perimeter before joining.

SEE ALSO:
  - tenure.go: the same bucketing applied to median tenure
  - types.go:  Options and the output schema
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
// TURNOVER - Single perimeter
// =============================================================================

type exitCounts struct {
	date   time.Time
	group  string
	active int64
	inv    int64
	red    int64
	vol    int64
}

// Turnover computes the monthly turnover table for one grouping column.
// Rows whose grouping cell is empty are skipped; an unparseable date in
// any surviving row aborts with a DateFormatError naming the row.
func Turnover(ds *dataset.Dataset, group string, opts Options) (*dataset.Dataset, error) {
	opts = opts.withDefaults()
	if err := ds.Require(opts.DateColumn, opts.StatusColumn, opts.HCTypeColumn, group); err != nil {
		return nil, err
	}

	buckets, err := countExits(ds, group, opts)
	if err != nil {
		return nil, err
	}

	out := dataset.New(DefaultTurnoverColumns)
	ytd := newYTDAccumulator()
	for _, b := range buckets {
		rescTotal := b.inv + b.vol
		rescTotalRed := rescTotal + b.red
		hcRef := rescTotalRed + b.active

		toInv := rate(b.inv, hcRef)
		toVol := rate(b.vol, hcRef)
		toTotal := rate(rescTotal, hcRef)
		toRed := rate(b.red, hcRef)
		toTotalRed := rate(rescTotalRed, hcRef)

		y := ytd.add(b.date.Year(), b.group, ytdDelta{
			inv: b.inv, red: b.red, vol: b.vol, total: rescTotal, totalRed: rescTotalRed,
			toInv: toInv, toRed: toRed, toVol: toVol, toTotal: toTotal, toTotalRed: toTotalRed,
		})

		row := []string{
			b.group + strconv.Itoa(b.date.Year()) + strconv.Itoa(int(b.date.Month())),
			strconv.Itoa(b.date.Year()),
			strconv.Itoa(int(b.date.Month())),
			dataset.FormatDayFirst(b.date),
			b.group,
			strconv.FormatInt(b.active, 10),
			strconv.FormatInt(b.inv, 10),
			strconv.FormatInt(b.red, 10),
			strconv.FormatInt(b.vol, 10),
			strconv.FormatInt(rescTotal, 10),
			strconv.FormatInt(rescTotalRed, 10),
			strconv.FormatInt(hcRef, 10),
			toInv.String(),
			toVol.String(),
			toTotal.String(),
			toRed.String(),
			toTotalRed.String(),
			strconv.FormatInt(y.inv, 10),
			strconv.FormatInt(y.red, 10),
			strconv.FormatInt(y.vol, 10),
			strconv.FormatInt(y.total, 10),
			strconv.FormatInt(y.totalRed, 10),
			y.toInv.Round(4).String(),
			y.toVol.Round(4).String(),
			y.toTotal.Round(4).String(),
			y.toRed.Round(4).String(),
			y.toTotalRed.Round(4).String(),
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}

	if !sameColumns(opts.TurnoverColumns, DefaultTurnoverColumns) {
		return out.Select(opts.TurnoverColumns...)
	}
	return out, nil
}

// TurnoverTable fans Turnover out over a list of grouping columns and
// concatenates the results in grouping order. A nil groups list falls
// back to the options' grouping list. Perimeter values from different
// levels share one column; rows carry no record of which grouping
// produced them.
func TurnoverTable(ds *dataset.Dataset, groups []string, opts Options) (*dataset.Dataset, error) {
	opts = opts.withDefaults()
	if len(groups) == 0 {
		groups = opts.Groupings
	}
	parts := make([]*dataset.Dataset, 0, len(groups))
	for _, group := range groups {
		part, err := Turnover(ds, group, opts)
		if err != nil {
			return nil, fmt.Errorf("turnover for %q: %w", group, err)
		}
		parts = append(parts, part)
	}
	return dataset.Concat(parts...)
}

// =============================================================================
// BUCKETING
// =============================================================================

// countExits filters and buckets the snapshot by (day, grouping value),
// returning buckets sorted chronologically with ties broken by grouping
// value. Dates are validated on every row that survives the filter, so
// a malformed cell fails the run whether or not its bucket matters.
func countExits(ds *dataset.Dataset, group string, opts Options) ([]*exitCounts, error) {
	byKey := make(map[string]*exitCounts)
	var buckets []*exitCounts

	for i := 0; i < ds.Len(); i++ {
		if ds.Cell(i, opts.HCTypeColumn) == opts.Codes.Entry {
			continue
		}
		status := ds.Cell(i, opts.StatusColumn)
		if status == opts.Codes.NewHire {
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
			b = &exitCounts{date: date, group: value}
			byKey[key] = b
			buckets = append(buckets, b)
		}
		switch status {
		case opts.Codes.Active:
			b.active++
		case opts.Codes.Involuntary:
			b.inv++
		case opts.Codes.Reduction:
			b.red++
		case opts.Codes.Voluntary:
			b.vol++
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		if !buckets[i].date.Equal(buckets[j].date) {
			return buckets[i].date.Before(buckets[j].date)
		}
		return buckets[i].group < buckets[j].group
	})
	return buckets, nil
}

// =============================================================================
// RATES AND YEAR-TO-DATE
// =============================================================================

// rate divides count by headcount at 4 decimals. A zero denominator
// yields exactly 0; an empty perimeter is reported as no turnover, not
// as an error.
func rate(count, headcount int64) decimal.Decimal {
	if headcount == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(count).Div(decimal.NewFromInt(headcount)).Round(4)
}

type ytdDelta struct {
	inv, red, vol, total, totalRed int64

	toInv, toRed, toVol, toTotal, toTotalRed decimal.Decimal
}

type ytdState struct {
	inv, red, vol, total, totalRed int64

	toInv, toRed, toVol, toTotal, toTotalRed decimal.Decimal
}

type ytdAccumulator struct {
	byPartition map[string]*ytdState
}

func newYTDAccumulator() *ytdAccumulator {
	return &ytdAccumulator{byPartition: make(map[string]*ytdState)}
}

// add folds one month into the (year, grouping value) partition and
// returns the running state. Partitions reset implicitly at year
// boundaries because the year is part of the partition key.
func (a *ytdAccumulator) add(year int, group string, d ytdDelta) ytdState {
	key := strconv.Itoa(year) + "\x00" + group
	s, ok := a.byPartition[key]
	if !ok {
		s = &ytdState{}
		a.byPartition[key] = s
	}
	s.inv += d.inv
	s.red += d.red
	s.vol += d.vol
	s.total += d.total
	s.totalRed += d.totalRed
	s.toInv = s.toInv.Add(d.toInv)
	s.toRed = s.toRed.Add(d.toRed)
	s.toVol = s.toVol.Add(d.toVol)
	s.toTotal = s.toTotal.Add(d.toTotal)
	s.toTotalRed = s.toTotalRed.Add(d.toTotalRed)
	return *s
}

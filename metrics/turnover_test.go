package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/people-analytics/dataset"
	"github.com/warp/people-analytics/metrics"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// snapshot builds a headcount table with the production column roles.
// Row shape: Data, Tabela (status), Tipo_HC, Company, Tenure.
func snapshot(t *testing.T, rows ...[]string) *dataset.Dataset {
	t.Helper()
	all := append([][]string{{"Data", "Tabela", "Tipo_HC", "Company", "Tenure"}}, rows...)
	ds, err := dataset.FromRows(all)
	require.NoError(t, err)
	return ds
}

func person(date, status, hcType, company string) []string {
	return []string{date, status, hcType, company, ""}
}

// cell finds the output row for (date, perimeter) and reads one column.
func cell(t *testing.T, ds *dataset.Dataset, date, perimeter, column string) string {
	t.Helper()
	for i := 0; i < ds.Len(); i++ {
		if ds.Cell(i, "Data") == date && ds.Cell(i, "Perimetro") == perimeter {
			return ds.Cell(i, column)
		}
	}
	t.Fatalf("no row for date %s perimeter %s", date, perimeter)
	return ""
}

// =============================================================================
// CORE CALCULATION TESTS
// =============================================================================

func TestTurnover_ActivePlusVoluntaryExit(t *testing.T) {
	// GIVEN: One reference month with one active person and one voluntary exit
	// WHEN: Computing turnover by Company
	// THEN: HC_Ref counts both, voluntary rate is exactly one half

	ds := snapshot(t,
		person("31/01/2025", "Atv", "CLT", "Acme"),
		person("31/01/2025", "Vol", "CLT", "Acme"),
	)

	out, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())

	assert.Equal(t, "Acme20251", cell(t, out, "31/01/2025", "Acme", "Key"))
	assert.Equal(t, "2025", cell(t, out, "31/01/2025", "Acme", "Ano"))
	assert.Equal(t, "1", cell(t, out, "31/01/2025", "Acme", "Mes"))
	assert.Equal(t, "1", cell(t, out, "31/01/2025", "Acme", "Atv"))
	assert.Equal(t, "1", cell(t, out, "31/01/2025", "Acme", "Resc_Vol"))
	assert.Equal(t, "0", cell(t, out, "31/01/2025", "Acme", "Resc_Inv"))
	assert.Equal(t, "1", cell(t, out, "31/01/2025", "Acme", "Resc_Total"))
	assert.Equal(t, "1", cell(t, out, "31/01/2025", "Acme", "Resc_Total+Red"))
	assert.Equal(t, "2", cell(t, out, "31/01/2025", "Acme", "HC_Ref"))
	assert.Equal(t, "0.5", cell(t, out, "31/01/2025", "Acme", "TO_Vol"))
	assert.Equal(t, "0.5", cell(t, out, "31/01/2025", "Acme", "TO_Total"))
	assert.Equal(t, "0", cell(t, out, "31/01/2025", "Acme", "TO_Inv"))
}

func TestTurnover_OutputSchemaFixed(t *testing.T) {
	ds := snapshot(t, person("31/01/2025", "Atv", "CLT", "Acme"))

	out, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)

	assert.Equal(t, metrics.DefaultTurnoverColumns, out.Columns())
}

func TestTurnover_EntrantsAndNewHiresExcluded(t *testing.T) {
	// GIVEN: A month containing entrant rows and new-hire status rows
	// WHEN: Computing turnover
	// THEN: Neither contributes to any count, including HC_Ref

	ds := snapshot(t,
		person("31/01/2025", "Atv", "CLT", "Acme"),
		person("31/01/2025", "Vol", "CLT", "Acme"),
		person("31/01/2025", "Atv", "Entrada", "Acme"),
		person("31/01/2025", "New", "CLT", "Acme"),
	)

	out, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)

	assert.Equal(t, "1", cell(t, out, "31/01/2025", "Acme", "Atv"))
	assert.Equal(t, "2", cell(t, out, "31/01/2025", "Acme", "HC_Ref"))
}

func TestTurnover_UnknownStatusCountsNowhere(t *testing.T) {
	// GIVEN: A row with a status outside the vocabulary
	// WHEN: Computing turnover
	// THEN: It neither adds to a bucket count nor inflates HC_Ref

	ds := snapshot(t,
		person("31/01/2025", "Atv", "CLT", "Acme"),
		person("31/01/2025", "Aposentado", "CLT", "Acme"),
	)

	out, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)

	assert.Equal(t, "1", cell(t, out, "31/01/2025", "Acme", "Atv"))
	assert.Equal(t, "1", cell(t, out, "31/01/2025", "Acme", "HC_Ref"))
	assert.Equal(t, "0", cell(t, out, "31/01/2025", "Acme", "Resc_Total"))
}

func TestTurnover_ZeroHeadcountRateIsZero(t *testing.T) {
	// GIVEN: A bucket whose only rows carry unknown statuses
	// WHEN: Computing turnover
	// THEN: HC_Ref is 0 and every rate is exactly 0, not an error

	ds := snapshot(t, person("31/01/2025", "Aposentado", "CLT", "Acme"))

	out, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)

	assert.Equal(t, "0", cell(t, out, "31/01/2025", "Acme", "HC_Ref"))
	assert.Equal(t, "0", cell(t, out, "31/01/2025", "Acme", "TO_Total"))
	assert.Equal(t, "0", cell(t, out, "31/01/2025", "Acme", "TO_Vol"))
}

func TestTurnover_RatesRoundedToFourDecimals(t *testing.T) {
	// 1 exit over 3 heads: 0.3333, not a longer expansion.
	ds := snapshot(t,
		person("31/01/2025", "Atv", "CLT", "Acme"),
		person("31/01/2025", "Atv", "CLT", "Acme"),
		person("31/01/2025", "Vol", "CLT", "Acme"),
	)

	out, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)

	assert.Equal(t, "0.3333", cell(t, out, "31/01/2025", "Acme", "TO_Vol"))
}

// =============================================================================
// YEAR-TO-DATE TESTS
// =============================================================================

func TestTurnover_YTDAccumulatesWithinYear(t *testing.T) {
	// GIVEN: Two months of the same year for one perimeter
	// WHEN: Computing turnover
	// THEN: February's YTD columns carry January plus February

	ds := snapshot(t,
		person("31/01/2025", "Atv", "CLT", "Acme"),
		person("31/01/2025", "Vol", "CLT", "Acme"),
		person("28/02/2025", "Atv", "CLT", "Acme"),
		person("28/02/2025", "Atv", "CLT", "Acme"),
		person("28/02/2025", "Atv", "CLT", "Acme"),
		person("28/02/2025", "Vol", "CLT", "Acme"),
	)

	out, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)

	assert.Equal(t, "0.5", cell(t, out, "31/01/2025", "Acme", "TO_Vol"))
	assert.Equal(t, "0.25", cell(t, out, "28/02/2025", "Acme", "TO_Vol"))
	assert.Equal(t, "2", cell(t, out, "28/02/2025", "Acme", "Resc_Vol_YTD"))
	assert.Equal(t, "0.75", cell(t, out, "28/02/2025", "Acme", "TO_Vol_YTD"))
	assert.Equal(t, "0.75", cell(t, out, "28/02/2025", "Acme", "TO_Total_YTD"))
}

func TestTurnover_YTDResetsAtYearBoundary(t *testing.T) {
	// GIVEN: December and the following January for one perimeter
	// WHEN: Computing turnover
	// THEN: January's YTD starts over instead of carrying December

	ds := snapshot(t,
		person("31/12/2025", "Atv", "CLT", "Acme"),
		person("31/12/2025", "Vol", "CLT", "Acme"),
		person("31/01/2026", "Atv", "CLT", "Acme"),
		person("31/01/2026", "Vol", "CLT", "Acme"),
	)

	out, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)

	assert.Equal(t, "1", cell(t, out, "31/12/2025", "Acme", "Resc_Vol_YTD"))
	assert.Equal(t, "1", cell(t, out, "31/01/2026", "Acme", "Resc_Vol_YTD"))
	assert.Equal(t, "0.5", cell(t, out, "31/01/2026", "Acme", "TO_Vol_YTD"))
}

func TestTurnover_YTDPartitionedByPerimeter(t *testing.T) {
	// Two companies in the same months accumulate independently.
	ds := snapshot(t,
		person("31/01/2025", "Vol", "CLT", "Acme"),
		person("31/01/2025", "Atv", "CLT", "Acme"),
		person("28/02/2025", "Vol", "CLT", "Acme"),
		person("28/02/2025", "Atv", "CLT", "Acme"),
		person("28/02/2025", "Vol", "CLT", "Globex"),
		person("28/02/2025", "Atv", "CLT", "Globex"),
	)

	out, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)

	assert.Equal(t, "2", cell(t, out, "28/02/2025", "Acme", "Resc_Vol_YTD"))
	assert.Equal(t, "1", cell(t, out, "28/02/2025", "Globex", "Resc_Vol_YTD"))
}

func TestTurnover_RowsSortedChronologically(t *testing.T) {
	// GIVEN: Input rows in shuffled date order
	// WHEN: Computing turnover
	// THEN: Output rows come out oldest first, so YTD reads top down

	ds := snapshot(t,
		person("31/03/2025", "Vol", "CLT", "Acme"),
		person("31/01/2025", "Vol", "CLT", "Acme"),
		person("28/02/2025", "Vol", "CLT", "Acme"),
	)

	out, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())

	assert.Equal(t, "31/01/2025", out.Cell(0, "Data"))
	assert.Equal(t, "28/02/2025", out.Cell(1, "Data"))
	assert.Equal(t, "31/03/2025", out.Cell(2, "Data"))
	assert.Equal(t, "3", out.Cell(2, "Resc_Vol_YTD"), "YTD must accumulate in date order, not input order")
}

// =============================================================================
// EDGE CASES AND ERRORS
// =============================================================================

func TestTurnover_EmptyInputEmptyTable(t *testing.T) {
	// GIVEN: A table with the right columns and zero rows
	// WHEN: Computing turnover
	// THEN: Empty result with the full output schema, no error

	ds := dataset.New([]string{"Data", "Tabela", "Tipo_HC", "Company"})

	out, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, out.Len())
	assert.Equal(t, metrics.DefaultTurnoverColumns, out.Columns())
}

func TestTurnover_MissingColumnRejected(t *testing.T) {
	ds, err := dataset.FromRows([][]string{{"Data", "Tabela", "Company"}})
	require.NoError(t, err)

	_, err = metrics.Turnover(ds, "Company", metrics.Options{})

	var missing *dataset.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Tipo_HC", missing.Column)
	assert.True(t, dataset.IsDataError(err))
}

func TestTurnover_BadDateNamesOffendingRow(t *testing.T) {
	// GIVEN: A malformed date on a row that survives filtering
	// WHEN: Computing turnover
	// THEN: The run fails naming column, row and value

	ds := snapshot(t,
		person("31/01/2025", "Atv", "CLT", "Acme"),
		person("junk", "Vol", "CLT", "Acme"),
	)

	_, err := metrics.Turnover(ds, "Company", metrics.Options{})

	var bad *dataset.DateFormatError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, "Data", bad.Column)
	assert.Equal(t, 1, bad.Row)
	assert.Equal(t, "junk", bad.Value)
}

func TestTurnover_BadDateOnFilteredRowIgnored(t *testing.T) {
	// Entrant rows are dropped before date validation; garbage there is harmless.
	ds := snapshot(t,
		person("31/01/2025", "Atv", "CLT", "Acme"),
		person("junk", "Atv", "Entrada", "Acme"),
	)

	out, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Len())
}

func TestTurnover_EmptyGroupCellSkipped(t *testing.T) {
	// A row without a value for the grouping belongs to no perimeter.
	ds := snapshot(t,
		person("31/01/2025", "Atv", "CLT", "Acme"),
		person("31/01/2025", "Vol", "CLT", ""),
	)

	out, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)

	require.Equal(t, 1, out.Len())
	assert.Equal(t, "0", cell(t, out, "31/01/2025", "Acme", "Resc_Vol"))
}

func TestTurnover_CustomVocabularyAndColumns(t *testing.T) {
	// GIVEN: A sheet with translated status codes and column names
	// WHEN: Computing with overridden options
	// THEN: The same math applies under the new vocabulary

	ds, err := dataset.FromRows([][]string{
		{"RefDate", "Status", "Kind", "Org"},
		{"31/01/2025", "active", "staff", "Acme"},
		{"31/01/2025", "quit", "staff", "Acme"},
	})
	require.NoError(t, err)

	opts := metrics.Options{
		StatusColumn: "Status",
		HCTypeColumn: "Kind",
		DateColumn:   "RefDate",
		Codes: metrics.Codes{
			Active:      "active",
			Involuntary: "fired",
			Reduction:   "restructured",
			Voluntary:   "quit",
			NewHire:     "joined",
			Entry:       "entry",
		},
	}
	out, err := metrics.Turnover(ds, "Org", opts)
	require.NoError(t, err)

	assert.Equal(t, "2", cell(t, out, "31/01/2025", "Acme", "HC_Ref"))
	assert.Equal(t, "0.5", cell(t, out, "31/01/2025", "Acme", "TO_Vol"))
}

func TestTurnover_CustomOutputColumns(t *testing.T) {
	ds := snapshot(t, person("31/01/2025", "Atv", "CLT", "Acme"))

	out, err := metrics.Turnover(ds, "Company", metrics.Options{
		TurnoverColumns: []string{"Data", "Perimetro", "HC_Ref"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Data", "Perimetro", "HC_Ref"}, out.Columns())
	assert.Equal(t, []string{"31/01/2025", "Acme", "1"}, out.Row(0))
}

// =============================================================================
// FAN-OUT TESTS
// =============================================================================

func TestTurnoverTable_RowCountIsSumOfParts(t *testing.T) {
	// GIVEN: A snapshot carrying two grouping columns
	// WHEN: Building the consolidated table
	// THEN: Row count is the sum of the per-group tables, grouping order kept

	ds, err := dataset.FromRows([][]string{
		{"Data", "Tabela", "Tipo_HC", "Company", "VP"},
		{"31/01/2025", "Atv", "CLT", "Acme", "Sales"},
		{"31/01/2025", "Vol", "CLT", "Acme", "Ops"},
	})
	require.NoError(t, err)

	byCompany, err := metrics.Turnover(ds, "Company", metrics.Options{})
	require.NoError(t, err)
	byVP, err := metrics.Turnover(ds, "VP", metrics.Options{})
	require.NoError(t, err)

	table, err := metrics.TurnoverTable(ds, []string{"Company", "VP"}, metrics.Options{})
	require.NoError(t, err)

	assert.Equal(t, byCompany.Len()+byVP.Len(), table.Len())
	assert.Equal(t, "Acme", table.Cell(0, "Perimetro"), "company rows first")
}

func TestTurnoverTable_PerimetersShareOneNamespace(t *testing.T) {
	// Two grouping levels with the same cell value produce identical keys.
	// The table records nothing about which level a row came from.
	ds, err := dataset.FromRows([][]string{
		{"Data", "Tabela", "Tipo_HC", "Company", "VP"},
		{"31/01/2025", "Atv", "CLT", "Acme", "Acme"},
	})
	require.NoError(t, err)

	table, err := metrics.TurnoverTable(ds, []string{"Company", "VP"}, metrics.Options{})
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	assert.Equal(t, table.Cell(0, "Key"), table.Cell(1, "Key"))
}

func TestTurnoverTable_DefaultGroupingsFromOptions(t *testing.T) {
	ds, err := dataset.FromRows([][]string{
		{"Data", "Tabela", "Tipo_HC", "Org"},
		{"31/01/2025", "Atv", "CLT", "Acme"},
	})
	require.NoError(t, err)

	table, err := metrics.TurnoverTable(ds, nil, metrics.Options{Groupings: []string{"Org"}})
	require.NoError(t, err)

	assert.Equal(t, 1, table.Len())
}

func TestTurnoverTable_MissingGroupingFailsWhole(t *testing.T) {
	ds := snapshot(t, person("31/01/2025", "Atv", "CLT", "Acme"))

	_, err := metrics.TurnoverTable(ds, []string{"Company", "EXCO"}, metrics.Options{})

	var missing *dataset.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "EXCO", missing.Column)
}

/*
Package metrics computes workforce turnover and tenure tables.

PURPOSE:
  This is the analytical core of the people-analytics pipeline. It takes a
  monthly headcount snapshot table (one row per person per reference date)
  and produces the turnover and tenure datasets the downstream dashboards
  consume, one row per (reference date, organizational perimeter).

KEY CONCEPTS IN THIS FILE (types.go):
  - Codes:    the status vocabulary (Atv/Inv/Red/Vol/New) and the Entrada
              entrant sentinel, overridable per deployment
  - Options:  column roles, vocabulary, grouping list and output schemas,
              with the production defaults filled in where left zero
  - Output schemas: the fixed column orders the dashboards address by
              position

DESIGN PRINCIPLES:
  1. Pure functions over datasets: no caching, no incremental state, every
     call recomputes from the input table.
  2. Nothing hidden: every column name, status code and grouping the math
     depends on is visible in Options and replaceable by the caller.
  3. Decimal math end to end: rates and medians use shopspring/decimal so
     4-decimal rounding is exact, never float-drifted.

SEE ALSO:
  - turnover.go: exit counts, rates and year-to-date accumulation
  - tenure.go:   median tenure for active and exited populations
*/
package metrics

// =============================================================================
// STATUS VOCABULARY
// =============================================================================

// Codes names the cell values that drive classification. The Portuguese
// defaults are the production vocabulary; deployments with translated
// sheets override them through Options.
type Codes struct {
	Active      string // still employed at the reference date
	Involuntary string // employer-initiated exit
	Reduction   string // exit from a restructuring program
	Voluntary   string // employee-initiated exit
	NewHire     string // joined during the reference month
	Entry       string // headcount-type sentinel for entrant rows, excluded everywhere
}

// DefaultCodes is the production status vocabulary.
var DefaultCodes = Codes{
	Active:      "Atv",
	Involuntary: "Inv",
	Reduction:   "Red",
	Voluntary:   "Vol",
	NewHire:     "New",
	Entry:       "Entrada",
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options selects the input column roles, the status vocabulary, the
// fan-out grouping list and the output schemas. The zero value means
// "production defaults"; any field left zero is filled by withDefaults.
type Options struct {
	StatusColumn    string   // employment status cell, default "Tabela"
	HCTypeColumn    string   // headcount type cell, default "Tipo_HC"
	DateColumn      string   // reference date cell, default "Data"
	TenureColumn    string   // tenure in months cell, default "Tenure"
	Codes           Codes    // status vocabulary, default DefaultCodes
	Groupings       []string // fan-out grouping columns, default DefaultGroupings
	TurnoverColumns []string // turnover output schema, default DefaultTurnoverColumns
	TenureColumns   []string // tenure output schema, default DefaultTenureColumns
}

// DefaultOptions returns the production configuration in full.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.StatusColumn == "" {
		o.StatusColumn = "Tabela"
	}
	if o.HCTypeColumn == "" {
		o.HCTypeColumn = "Tipo_HC"
	}
	if o.DateColumn == "" {
		o.DateColumn = "Data"
	}
	if o.TenureColumn == "" {
		o.TenureColumn = "Tenure"
	}
	if o.Codes == (Codes{}) {
		o.Codes = DefaultCodes
	}
	if len(o.Groupings) == 0 {
		o.Groupings = DefaultGroupings
	}
	if len(o.TurnoverColumns) == 0 {
		o.TurnoverColumns = DefaultTurnoverColumns
	}
	if len(o.TenureColumns) == 0 {
		o.TenureColumns = DefaultTenureColumns
	}
	return o
}

// =============================================================================
// PRODUCTION DEFAULTS
// =============================================================================

// DefaultGroupings are the organizational levels every metric table is
// produced for, from whole company down to cost-center groups.
var DefaultGroupings = []string{
	"Company",
	"EXCO",
	"VP",
	"Diretoria",
	"CC_Desc",
	"BP_Ger",
	"BP_Coord",
	"Grupo CC 1",
	"Grupo CC 2",
	"Grupo CC 3",
}

// DefaultTurnoverColumns is the turnover output schema. The dashboards
// address these by position; order is part of the contract.
var DefaultTurnoverColumns = []string{
	"Key",
	"Ano",
	"Mes",
	"Data",
	"Perimetro",
	"Atv",
	"Resc_Inv",
	"Resc_Red",
	"Resc_Vol",
	"Resc_Total",
	"Resc_Total+Red",
	"HC_Ref",
	"TO_Inv",
	"TO_Vol",
	"TO_Total",
	"TO_Red",
	"TO_Total+Red",
	"Resc_Inv_YTD",
	"Resc_Red_YTD",
	"Resc_Vol_YTD",
	"Resc_Total_YTD",
	"Resc_Total+Red_YTD",
	"TO_Inv_YTD",
	"TO_Vol_YTD",
	"TO_Total_YTD",
	"TO_Red_YTD",
	"TO_Total+Red_YTD",
}

// DefaultTenureColumns is the tenure output schema.
var DefaultTenureColumns = []string{
	"Key",
	"Ano",
	"Mes",
	"Data",
	"Perimetro",
	"Meses_Mediana_Atv",
	"Meses_Mediana_Resc",
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

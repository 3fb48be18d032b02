/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Metrics:
    MetricsRequest, OptionsDTO, CodesDTO, TableDTO

  Journal:
    RunDTO, ExportResultDTO

  Misc:
    HealthDTO, ErrorResponse

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - metrics/types.go: Options the OptionsDTO maps onto
*/
package api

import (
	"github.com/warp/people-analytics/metrics"
)

// =============================================================================
// METRIC COMPUTATION TYPES
// =============================================================================

// MetricsRequest is the body of the turnover and tenure endpoints.
// Rows carry the snapshot table with the header as the first row, the
// shape a sheet or CSV hands over.
type MetricsRequest struct {
	Rows      [][]string  `json:"rows"`
	Groupings []string    `json:"groupings,omitempty"`
	Options   *OptionsDTO `json:"options,omitempty"`
}

// OptionsDTO overrides the metric configuration per request. Empty
// fields keep the defaults.
type OptionsDTO struct {
	StatusColumn    string    `json:"status_column,omitempty"`
	HCTypeColumn    string    `json:"hc_type_column,omitempty"`
	DateColumn      string    `json:"date_column,omitempty"`
	TenureColumn    string    `json:"tenure_column,omitempty"`
	Codes           *CodesDTO `json:"codes,omitempty"`
	TurnoverColumns []string  `json:"turnover_columns,omitempty"`
	TenureColumns   []string  `json:"tenure_columns,omitempty"`
}

// CodesDTO overrides the status vocabulary.
type CodesDTO struct {
	Active      string `json:"active,omitempty"`
	Involuntary string `json:"involuntary,omitempty"`
	Reduction   string `json:"reduction,omitempty"`
	Voluntary   string `json:"voluntary,omitempty"`
	NewHire     string `json:"new_hire,omitempty"`
	Entry       string `json:"entry,omitempty"`
}

// options converts the request overrides into metric options.
func (r *MetricsRequest) options() metrics.Options {
	opts := metrics.DefaultOptions()
	if len(r.Groupings) > 0 {
		opts.Groupings = r.Groupings
	}
	o := r.Options
	if o == nil {
		return opts
	}
	if o.StatusColumn != "" {
		opts.StatusColumn = o.StatusColumn
	}
	if o.HCTypeColumn != "" {
		opts.HCTypeColumn = o.HCTypeColumn
	}
	if o.DateColumn != "" {
		opts.DateColumn = o.DateColumn
	}
	if o.TenureColumn != "" {
		opts.TenureColumn = o.TenureColumn
	}
	if c := o.Codes; c != nil {
		if c.Active != "" {
			opts.Codes.Active = c.Active
		}
		if c.Involuntary != "" {
			opts.Codes.Involuntary = c.Involuntary
		}
		if c.Reduction != "" {
			opts.Codes.Reduction = c.Reduction
		}
		if c.Voluntary != "" {
			opts.Codes.Voluntary = c.Voluntary
		}
		if c.NewHire != "" {
			opts.Codes.NewHire = c.NewHire
		}
		if c.Entry != "" {
			opts.Codes.Entry = c.Entry
		}
	}
	if len(o.TurnoverColumns) > 0 {
		opts.TurnoverColumns = o.TurnoverColumns
	}
	if len(o.TenureColumns) > 0 {
		opts.TenureColumns = o.TenureColumns
	}
	return opts
}

// TableDTO is a computed metric table.
type TableDTO struct {
	Columns  []string   `json:"columns"`
	Rows     [][]string `json:"rows"`
	RowCount int        `json:"row_count"`
}

// =============================================================================
// JOURNAL TYPES
// =============================================================================

// RunDTO represents a pipeline run in API responses.
type RunDTO struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Status       string `json:"status"`
	InputRows    int    `json:"input_rows"`
	TurnoverRows int    `json:"turnover_rows"`
	TenureRows   int    `json:"tenure_rows"`
	Error        string `json:"error,omitempty"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
}

// ExportResultDTO represents one destination outcome in API responses.
type ExportResultDTO struct {
	ID            string `json:"id"`
	Table         string `json:"table"`
	SpreadsheetID string `json:"spreadsheet_id"`
	Tab           string `json:"tab"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// =============================================================================
// MISC TYPES
// =============================================================================

// HealthDTO is the health check response.
type HealthDTO struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

/*
Package sheets moves datasets in and out of Google Sheets.

PURPOSE:
  The pipeline's inputs are hand-maintained spreadsheet tabs and its
  outputs are the dashboard tabs BI tools read. This package wraps the
  Sheets API for exactly those two motions: read a whole tab with its
  first row as header, and fan a computed table out to a list of
  destination tabs.

EXPORT POLICY:
  Destinations are independent. Each gets a clear of the configured
  range followed by a write anchored there with USER_ENTERED input, so
  the sheet parses dates and numbers the way a typing user would. A
  failed clear or write is logged and recorded in that destination's
  result; the remaining destinations still run. One bad dashboard never
  blocks the others.

SEE ALSO:
  - credentials: produces the token source behind the API service
  - dataset:     the table shape read and written here
*/
package sheets

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/warp/people-analytics/dataset"
)

// valueInputUserEntered makes the sheet interpret written cells as if
// typed: dd/mm/yyyy strings become dates, numeric strings numbers.
const valueInputUserEntered = "USER_ENTERED"

// DefaultRange anchors exports at the top-left corner.
const DefaultRange = "A1"

// =============================================================================
// CLIENT
// =============================================================================

// Client reads and writes spreadsheet tabs through one API service.
type Client struct {
	service *sheetsapi.Service
}

// New wraps an already-built Sheets service.
func New(service *sheetsapi.Service) *Client {
	return &Client{service: service}
}

// NewFromTokenSource builds the service from an OAuth token source, the
// production path.
func NewFromTokenSource(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	service, err := sheetsapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("build sheets service: %w", err)
	}
	return New(service), nil
}

// =============================================================================
// READ
// =============================================================================

// ReadOptions tunes a tab import.
type ReadOptions struct {
	// Normalize applies dataset.Normalize to the imported table:
	// placeholder cells blanked, pt-BR numbers canonicalized.
	Normalize bool
}

// Read imports a whole tab as a dataset, first row as header.
func (c *Client) Read(ctx context.Context, spreadsheetID, tab string, opts ReadOptions) (*dataset.Dataset, error) {
	start := time.Now()

	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, A1Range(tab, "")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s tab %s: %w", spreadsheetID, tab, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cellText(cell)
		}
		rows[i] = cells
	}

	ds, err := dataset.FromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("tab %s: %w", tab, err)
	}
	if opts.Normalize {
		ds.Normalize()
	}

	log.Printf("[Sheets] imported %s!%s: %d rows in %.2fs", spreadsheetID, tab, ds.Len(), time.Since(start).Seconds())
	return ds, nil
}

// =============================================================================
// EXPORT
// =============================================================================

// Destination names one target tab.
type Destination struct {
	SpreadsheetID string
	Tab           string
}

// ExportOptions tunes an export fan-out.
type ExportOptions struct {
	// Range is cleared and anchors the write, default DefaultRange.
	Range string
	// Order reorders or trims columns before writing.
	Order []string
}

// ExportResult records the outcome for one destination.
type ExportResult struct {
	Destination Destination
	Err         error
}

// Export writes the dataset, header first, to every destination in
// order. Per-destination failures are recorded and skipped over; only a
// bad Order column list fails the whole call, since no destination
// could succeed.
func (c *Client) Export(ctx context.Context, ds *dataset.Dataset, destinations []Destination, opts ExportOptions) ([]ExportResult, error) {
	start := time.Now()
	if opts.Range == "" {
		opts.Range = DefaultRange
	}
	if len(opts.Order) > 0 {
		selected, err := ds.Select(opts.Order...)
		if err != nil {
			return nil, fmt.Errorf("export column order: %w", err)
		}
		ds = selected
	}

	values := toValues(ds)
	results := make([]ExportResult, 0, len(destinations))
	exported := 0
	for _, dest := range destinations {
		err := c.exportOne(ctx, dest, values, opts.Range)
		if err != nil {
			log.Printf("[Sheets] export to %s!%s failed: %v", dest.SpreadsheetID, dest.Tab, err)
		} else {
			exported++
		}
		results = append(results, ExportResult{Destination: dest, Err: err})
	}

	log.Printf("[Sheets] exported %d/%d destination(s) in %.2fs", exported, len(destinations), time.Since(start).Seconds())
	return results, nil
}

// exportOne clears then writes. A failed clear still attempts the
// write; the write error wins when both fail, since it means no data
// landed at all.
func (c *Client) exportOne(ctx context.Context, dest Destination, values [][]interface{}, valueRange string) error {
	rng := A1Range(dest.Tab, valueRange)

	_, clearErr := c.service.Spreadsheets.Values.
		Clear(dest.SpreadsheetID, rng, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).Do()
	if clearErr != nil {
		clearErr = fmt.Errorf("clear %s: %w", rng, clearErr)
		log.Printf("[Sheets] %s!%s: %v", dest.SpreadsheetID, dest.Tab, clearErr)
	}

	_, updateErr := c.service.Spreadsheets.Values.
		Update(dest.SpreadsheetID, rng, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption(valueInputUserEntered).
		Context(ctx).Do()
	if updateErr != nil {
		return fmt.Errorf("update %s: %w", rng, updateErr)
	}
	return clearErr
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

// A1Range renders "'Tab'!Range" with tab-name quoting, or just the
// quoted tab when the range is empty (the whole-tab form).
func A1Range(tab, valueRange string) string {
	quoted := "'" + escapeTab(tab) + "'"
	if valueRange == "" {
		return quoted
	}
	return quoted + "!" + valueRange
}

func escapeTab(tab string) string {
	out := make([]rune, 0, len(tab))
	for _, r := range tab {
		if r == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// toValues shapes a dataset for the API: header row first, cells as-is.
func toValues(ds *dataset.Dataset) [][]interface{} {
	rows := ds.HeaderAndRows()
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}
	return values
}

// cellText renders one read cell. The API serves formatted values, so
// these are nearly always strings already.
func cellText(cell interface{}) string {
	switch v := cell.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

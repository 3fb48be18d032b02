package sheets_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/warp/people-analytics/dataset"
	"github.com/warp/people-analytics/sheets"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type updateCall struct {
	spreadsheetID string
	valueRange    string
	inputOption   string
	values        [][]interface{}
}

// fakeSheets emulates the three Values endpoints the client touches.
type fakeSheets struct {
	mu          sync.Mutex
	readValues  [][]interface{}
	readPaths   []string
	clearCalls  []string
	updateCalls []updateCall
	failClear   map[string]bool
	failUpdate  map[string]bool
}

func (f *fakeSheets) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		rest := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
		parts := strings.SplitN(rest, "/values/", 2)
		if len(parts) != 2 {
			http.NotFound(w, r)
			return
		}
		spreadsheetID, valueRange := parts[0], parts[1]

		switch {
		case r.Method == http.MethodGet:
			f.readPaths = append(f.readPaths, valueRange)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"range":          valueRange,
				"majorDimension": "ROWS",
				"values":         f.readValues,
			})
		case strings.HasSuffix(valueRange, ":clear"):
			if f.failClear[spreadsheetID] {
				http.Error(w, "clear refused", http.StatusForbidden)
				return
			}
			f.clearCalls = append(f.clearCalls, spreadsheetID+"|"+strings.TrimSuffix(valueRange, ":clear"))
			json.NewEncoder(w).Encode(map[string]string{"clearedRange": valueRange})
		case r.Method == http.MethodPut:
			if f.failUpdate[spreadsheetID] {
				http.Error(w, "update refused", http.StatusForbidden)
				return
			}
			var body struct {
				Values [][]interface{} `json:"values"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.updateCalls = append(f.updateCalls, updateCall{
				spreadsheetID: spreadsheetID,
				valueRange:    valueRange,
				inputOption:   r.URL.Query().Get("valueInputOption"),
				values:        body.Values,
			})
			json.NewEncoder(w).Encode(map[string]int{"updatedCells": len(body.Values)})
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestClient(t *testing.T, fake *fakeSheets) *sheets.Client {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	service, err := sheetsapi.NewService(context.Background(),
		option.WithEndpoint(server.URL),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return sheets.New(service)
}

func metricsTable(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRows([][]string{
		{"Data", "Perimetro", "HC_Ref"},
		{"31/01/2025", "Acme", "2"},
	})
	require.NoError(t, err)
	return ds
}

// =============================================================================
// READ TESTS
// =============================================================================

func TestRead_FirstRowBecomesHeader(t *testing.T) {
	// GIVEN: A tab whose first row is the column header
	// WHEN: Reading it
	// THEN: Header and rows land in a dataset, tab name quoted in the range

	fake := &fakeSheets{readValues: [][]interface{}{
		{"Data", "Tabela"},
		{"31/01/2025", "Atv"},
	}}
	client := newTestClient(t, fake)

	ds, err := client.Read(context.Background(), "sheet-1", "Headcount", sheets.ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Data", "Tabela"}, ds.Columns())
	assert.Equal(t, 1, ds.Len())
	require.Len(t, fake.readPaths, 1)
	assert.Contains(t, fake.readPaths[0], "'Headcount'")
}

func TestRead_EmptyTabRejected(t *testing.T) {
	fake := &fakeSheets{readValues: [][]interface{}{}}
	client := newTestClient(t, fake)

	_, err := client.Read(context.Background(), "sheet-1", "Empty", sheets.ReadOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrSchemaMismatch)
}

func TestRead_NormalizeOption(t *testing.T) {
	fake := &fakeSheets{readValues: [][]interface{}{
		{"Company", "Salario"},
		{"#N/D", "1.234,56"},
	}}
	client := newTestClient(t, fake)

	ds, err := client.Read(context.Background(), "sheet-1", "Headcount", sheets.ReadOptions{Normalize: true})
	require.NoError(t, err)

	assert.Equal(t, "", ds.Cell(0, "Company"))
	assert.Equal(t, "1234.56", ds.Cell(0, "Salario"))
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func TestExport_ClearsThenWritesUserEntered(t *testing.T) {
	// GIVEN: One destination tab
	// WHEN: Exporting a table
	// THEN: The range is cleared, then written header-first as USER_ENTERED

	fake := &fakeSheets{}
	client := newTestClient(t, fake)

	results, err := client.Export(context.Background(), metricsTable(t),
		[]sheets.Destination{{SpreadsheetID: "dash-1", Tab: "Turnover"}},
		sheets.ExportOptions{})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)

	require.Len(t, fake.clearCalls, 1)
	assert.Contains(t, fake.clearCalls[0], "'Turnover'!A1")

	require.Len(t, fake.updateCalls, 1)
	call := fake.updateCalls[0]
	assert.Equal(t, "USER_ENTERED", call.inputOption)
	require.Len(t, call.values, 2, "header plus one data row")
	assert.Equal(t, "Data", call.values[0][0])
	assert.Equal(t, "31/01/2025", call.values[1][0])
}

func TestExport_FailedDestinationDoesNotBlockOthers(t *testing.T) {
	// GIVEN: Two destinations where the first refuses writes
	// WHEN: Exporting
	// THEN: The first result records the error, the second still lands

	fake := &fakeSheets{failUpdate: map[string]bool{"bad-dash": true}}
	client := newTestClient(t, fake)

	results, err := client.Export(context.Background(), metricsTable(t),
		[]sheets.Destination{
			{SpreadsheetID: "bad-dash", Tab: "Turnover"},
			{SpreadsheetID: "good-dash", Tab: "Turnover"},
		},
		sheets.ExportOptions{})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)

	require.Len(t, fake.updateCalls, 1)
	assert.Equal(t, "good-dash", fake.updateCalls[0].spreadsheetID)
}

func TestExport_FailedClearStillWrites(t *testing.T) {
	// A refused clear is recorded but the write is still attempted;
	// stale trailing rows beat no data at all.
	fake := &fakeSheets{failClear: map[string]bool{"dash-1": true}}
	client := newTestClient(t, fake)

	results, err := client.Export(context.Background(), metricsTable(t),
		[]sheets.Destination{{SpreadsheetID: "dash-1", Tab: "Turnover"}},
		sheets.ExportOptions{})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Error(t, results[0].Err, "clear failure is surfaced")
	require.Len(t, fake.updateCalls, 1, "write still attempted")
}

func TestExport_ColumnOrderApplied(t *testing.T) {
	fake := &fakeSheets{}
	client := newTestClient(t, fake)

	_, err := client.Export(context.Background(), metricsTable(t),
		[]sheets.Destination{{SpreadsheetID: "dash-1", Tab: "Turnover"}},
		sheets.ExportOptions{Order: []string{"Perimetro", "HC_Ref"}})
	require.NoError(t, err)

	require.Len(t, fake.updateCalls, 1)
	assert.Equal(t, []interface{}{"Perimetro", "HC_Ref"}, fake.updateCalls[0].values[0])
}

func TestExport_UnknownOrderColumnFailsWholeCall(t *testing.T) {
	fake := &fakeSheets{}
	client := newTestClient(t, fake)

	_, err := client.Export(context.Background(), metricsTable(t),
		[]sheets.Destination{{SpreadsheetID: "dash-1", Tab: "Turnover"}},
		sheets.ExportOptions{Order: []string{"Salary"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrColumnMissing)
	assert.Empty(t, fake.updateCalls, "no destination attempted")
}

func TestExport_CustomRange(t *testing.T) {
	fake := &fakeSheets{}
	client := newTestClient(t, fake)

	_, err := client.Export(context.Background(), metricsTable(t),
		[]sheets.Destination{{SpreadsheetID: "dash-1", Tab: "Turnover"}},
		sheets.ExportOptions{Range: "A1:AA10000"})
	require.NoError(t, err)

	require.Len(t, fake.clearCalls, 1)
	assert.Contains(t, fake.clearCalls[0], "'Turnover'!A1:AA10000")
}

// =============================================================================
// RANGE HELPER TESTS
// =============================================================================

func TestA1Range(t *testing.T) {
	assert.Equal(t, "'Turnover'!A1", sheets.A1Range("Turnover", "A1"))
	assert.Equal(t, "'Turnover'", sheets.A1Range("Turnover", ""))
	assert.Equal(t, "'it''s here'!B2", sheets.A1Range("it's here", "B2"), "embedded quotes doubled")
}

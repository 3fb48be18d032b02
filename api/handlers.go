/*
handlers.go - HTTP API handlers for the people-analytics service

PURPOSE:
  Exposes the metric aggregator and the run journal via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Metrics:
    POST   /api/metrics/turnover   Compute the turnover table
    POST   /api/metrics/tenure     Compute the tenure table

  Runs:
    GET    /api/runs               Recent pipeline runs
    GET    /api/runs/{id}          One run
    GET    /api/runs/{id}/exports  A run's export outcomes

  Misc:
    GET    /api/health             Liveness probe

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Run journal access

  The metric endpoints are pure computation: the snapshot table arrives
  in the request body and the metric table goes back in the response.
  Nothing is persisted; the journal records batch pipeline runs only.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (metrics, journal)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, unparseable dates, missing columns
  - 404: Unknown run
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/people-analytics/dataset"
	"github.com/warp/people-analytics/metrics"
	"github.com/warp/people-analytics/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// DefaultRunsLimit caps /api/runs when no limit is given.
const DefaultRunsLimit = 50

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
}

// NewHandler creates a new handler with the given journal store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{Store: store}
}

// =============================================================================
// METRIC HANDLERS
// =============================================================================

// ComputeTurnover computes the turnover table for a posted snapshot.
// POST /api/metrics/turnover
func (h *Handler) ComputeTurnover(w http.ResponseWriter, r *http.Request) {
	req, ds, ok := h.decodeSnapshot(w, r)
	if !ok {
		return
	}

	table, err := metrics.TurnoverTable(ds, nil, req.options())
	if err != nil {
		if dataset.IsDataError(err) {
			writeError(w, http.StatusBadRequest, "Invalid snapshot data", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to compute turnover", err)
		return
	}

	writeJSON(w, http.StatusOK, TableDTO{
		Columns:  table.Columns(),
		Rows:     table.Rows(),
		RowCount: table.Len(),
	})
}

// ComputeTenure computes the tenure table for a posted snapshot.
// POST /api/metrics/tenure
func (h *Handler) ComputeTenure(w http.ResponseWriter, r *http.Request) {
	req, ds, ok := h.decodeSnapshot(w, r)
	if !ok {
		return
	}

	table, err := metrics.TenureTable(ds, nil, req.options())
	if err != nil {
		if dataset.IsDataError(err) {
			writeError(w, http.StatusBadRequest, "Invalid snapshot data", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to compute tenure", err)
		return
	}

	writeJSON(w, http.StatusOK, TableDTO{
		Columns:  table.Columns(),
		Rows:     table.Rows(),
		RowCount: table.Len(),
	})
}

// decodeSnapshot parses the shared request shape of both metric
// endpoints. On failure the response has already been written.
func (h *Handler) decodeSnapshot(w http.ResponseWriter, r *http.Request) (*MetricsRequest, *dataset.Dataset, bool) {
	var req MetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, nil, false
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "Request must include rows with a header row", nil)
		return nil, nil, false
	}

	ds, err := dataset.FromRows(req.Rows)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid snapshot data", err)
		return nil, nil, false
	}
	return &req, ds, true
}

// =============================================================================
// RUN JOURNAL HANDLERS
// =============================================================================

// ListRuns returns recent pipeline runs, newest first.
// GET /api/runs?limit=N
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns a single run.
// GET /api/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Run not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toRunDTO(*run))
}

// ListRunExports returns a run's export outcomes.
// GET /api/runs/{id}/exports
func (h *Handler) ListRunExports(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	run, err := h.Store.GetRun(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Run not found", nil)
		return
	}

	results, err := h.Store.ListExportResults(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list export results", err)
		return
	}

	dtos := make([]ExportResultDTO, len(results))
	for i, res := range results {
		dtos[i] = ExportResultDTO{
			ID:            res.ID,
			Table:         res.Table,
			SpreadsheetID: res.SpreadsheetID,
			Tab:           res.Tab,
			Status:        res.Status,
			Error:         res.Error,
			CreatedAt:     res.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health reports service liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthDTO{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func toRunDTO(run sqlite.Run) RunDTO {
	dto := RunDTO{
		ID:           run.ID,
		Source:       run.Source,
		Status:       run.Status,
		InputRows:    run.InputRows,
		TurnoverRows: run.TurnoverRows,
		TenureRows:   run.TenureRows,
		Error:        run.Error,
		StartedAt:    run.StartedAt.Format(time.RFC3339),
	}
	if run.FinishedAt != nil {
		dto.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	return dto
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

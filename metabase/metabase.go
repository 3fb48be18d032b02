/*
Package metabase imports saved question results from a Metabase server.

PURPOSE:
  The headcount snapshots behind the turnover and tenure tables live in a
  Metabase saved question (a "card"). This package logs in, runs the card
  and maps the result into a dataset, preserving the column order the
  card defines.

FLOW (two synchronous round-trips, no retries):
  1. POST /api/session with username/password -> session id
  2. POST /api/card/{id}/query with X-Metabase-Session -> columns + rows

The session id lives for the duration of one Query call. Nothing is
cached between calls; credentials go in through Config, never through
package state.

SEE ALSO:
  - dataset: the table shape query results are mapped into
*/
package metabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/warp/people-analytics/dataset"
)

// =============================================================================
// CLIENT
// =============================================================================

// Config carries the connection settings. Password arrives from the
// caller (the config layer resolves it from the environment); it is
// never read from ambient process state here.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client is a Metabase API client. Safe for concurrent use.
type Client struct {
	config Config
	client *http.Client
}

// New creates a client. Card queries can be slow on large snapshots, so
// the default timeout is generous.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// =============================================================================
// QUERY
// =============================================================================

type sessionRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	ID string `json:"id"`
}

// queryResponse keeps row cells untyped; cells mix strings, numbers,
// booleans and nulls.
type queryResponse struct {
	Data struct {
		Cols []struct {
			Name        string `json:"name"`
			DisplayName string `json:"display_name"`
		} `json:"cols"`
		Rows [][]interface{} `json:"rows"`
	} `json:"data"`
	Error string `json:"error"`
}

// Query runs a saved question and returns its result table. Column order
// follows the card definition; display names become dataset columns.
func (c *Client) Query(ctx context.Context, cardID int) (*dataset.Dataset, error) {
	start := time.Now()

	session, err := c.login(ctx)
	if err != nil {
		return nil, fmt.Errorf("metabase login: %w", err)
	}

	url := fmt.Sprintf("%s/api/card/%d/query", c.config.BaseURL, cardID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Metabase-Session", session)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metabase query: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read query response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metabase card %d returned %d: %s", cardID, resp.StatusCode, snippet(body))
	}

	var payload queryResponse
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse query response: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("metabase card %d failed: %s", cardID, payload.Error)
	}

	columns := make([]string, len(payload.Data.Cols))
	for i, col := range payload.Data.Cols {
		if col.DisplayName != "" {
			columns[i] = col.DisplayName
		} else {
			columns[i] = col.Name
		}
	}

	ds := dataset.New(columns)
	for _, row := range payload.Data.Rows {
		cells := make([]string, len(columns))
		for i := range columns {
			if i < len(row) {
				cells[i] = cellString(row[i])
			}
		}
		if err := ds.Append(cells); err != nil {
			return nil, fmt.Errorf("map query row: %w", err)
		}
	}

	log.Printf("[Metabase] card %d imported: %d rows, %d columns in %.2fs",
		cardID, ds.Len(), len(columns), time.Since(start).Seconds())
	return ds, nil
}

// login opens a session and returns its id.
func (c *Client) login(ctx context.Context) (string, error) {
	reqBody, err := json.Marshal(sessionRequest{
		Username: c.config.Username,
		Password: c.config.Password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/api/session", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read session response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("session returned %d: %s", resp.StatusCode, snippet(body))
	}

	var session sessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return "", fmt.Errorf("parse session response: %w", err)
	}
	if session.ID == "" {
		return "", fmt.Errorf("session response carried no id")
	}
	return session.ID, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// cellString renders one query cell. Numbers keep their exact decimal
// text (UseNumber above), nulls become empty cells.
func cellString(v interface{}) string {
	switch cell := v.(type) {
	case nil:
		return ""
	case string:
		return cell
	case json.Number:
		return cell.String()
	case bool:
		if cell {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", cell)
	}
}

func snippet(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

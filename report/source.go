/*
source.go - Snapshot source selection

PURPOSE:
  Adapts the three supported inputs (Metabase card, Sheets tab, CSV
  file) to one Fetch interface the pipeline consumes. Which one runs
  is a config decision, not a code path.

SEE ALSO:
  - config/config.go: SourceConfig the constructors consume
  - report.go:        Pipeline.Run calling Fetch
*/
package report

import (
	"context"
	"fmt"

	"github.com/warp/people-analytics/config"
	"github.com/warp/people-analytics/dataset"
	"github.com/warp/people-analytics/metabase"
	"github.com/warp/people-analytics/sheets"
)

// Source produces the snapshot table a pipeline run works on.
type Source interface {
	Fetch(ctx context.Context) (*dataset.Dataset, error)
}

// NewSource builds the source selected by the config section. The
// sheets client is only required for sheet-backed sources and may be
// nil otherwise.
func NewSource(cfg config.SourceConfig, sheetsClient *sheets.Client) (Source, error) {
	switch cfg.Kind {
	case config.SourceMetabase:
		return &metabaseSource{
			client: metabase.New(cfg.Metabase.ClientConfig()),
			card:   cfg.Metabase.Card,
		}, nil
	case config.SourceSheets:
		if sheetsClient == nil {
			return nil, fmt.Errorf("sheets source needs an authorized sheets client")
		}
		return &sheetSource{
			client:        sheetsClient,
			spreadsheetID: cfg.Sheets.SpreadsheetID,
			tab:           cfg.Sheets.Tab,
			normalize:     cfg.Sheets.Normalize,
		}, nil
	case config.SourceCSV:
		return &csvSource{
			path:      cfg.CSV.Path,
			normalize: cfg.CSV.Normalize,
		}, nil
	}
	return nil, fmt.Errorf("no source configured (source.kind is %q)", cfg.Kind)
}

type metabaseSource struct {
	client *metabase.Client
	card   int
}

func (s *metabaseSource) Fetch(ctx context.Context) (*dataset.Dataset, error) {
	return s.client.Query(ctx, s.card)
}

type sheetSource struct {
	client        *sheets.Client
	spreadsheetID string
	tab           string
	normalize     bool
}

func (s *sheetSource) Fetch(ctx context.Context) (*dataset.Dataset, error) {
	return s.client.Read(ctx, s.spreadsheetID, s.tab, sheets.ReadOptions{Normalize: s.normalize})
}

type csvSource struct {
	path      string
	normalize bool
}

func (s *csvSource) Fetch(ctx context.Context) (*dataset.Dataset, error) {
	ds, err := dataset.ReadCSVFile(s.path)
	if err != nil {
		return nil, err
	}
	if s.normalize {
		ds = ds.Normalize()
	}
	return ds, nil
}

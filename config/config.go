/*
Package config loads the pipeline configuration from YAML.

PURPOSE:
  One file describes a whole reporting run: where the headcount data
  comes from (Metabase card, Sheets tab, or CSV), how the metric
  vocabulary deviates from the defaults, which spreadsheets receive
  the turnover and tenure tables, which heatmaps to render, and where
  the run journal lives.

SECRETS:
  Secrets never appear in the file. The Metabase password is named by
  password_env and resolved from the environment at use time; Google
  credentials are file paths the operator provisions.

SEE ALSO:
  - config.example.yaml: annotated example at the repository root
  - cmd/report:          consumes every section
  - cmd/server:          consumes the journal section
*/
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/people-analytics/heatmap"
	"github.com/warp/people-analytics/metabase"
	"github.com/warp/people-analytics/metrics"
	"github.com/warp/people-analytics/sheets"
)

// Source kinds.
const (
	SourceMetabase = "metabase"
	SourceSheets   = "sheets"
	SourceCSV      = "csv"
)

// Default values for optional settings.
const (
	DefaultJournalPath = "./data/people-analytics.db"
	DefaultExportRange = "A1"
)

// Config is the full pipeline configuration.
type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Export      ExportConfig      `yaml:"export"`
	Heatmaps    HeatmapConfig     `yaml:"heatmaps"`
	Journal     JournalConfig     `yaml:"journal"`
}

// SourceConfig selects and configures the headcount data source.
type SourceConfig struct {
	// Kind is one of: metabase | sheets | csv.
	Kind string `yaml:"kind"`

	Metabase MetabaseSource `yaml:"metabase"`
	Sheets   SheetsSource   `yaml:"sheets"`
	CSV      CSVSource      `yaml:"csv"`
}

// Describe returns a short label for the selected source, used as the
// run journal's source field.
func (s SourceConfig) Describe() string {
	switch s.Kind {
	case SourceMetabase:
		return fmt.Sprintf("metabase:card=%d", s.Metabase.Card)
	case SourceSheets:
		return fmt.Sprintf("sheets:%s", s.Sheets.Tab)
	case SourceCSV:
		return fmt.Sprintf("csv:%s", s.CSV.Path)
	}
	return s.Kind
}

// MetabaseSource configures the Metabase card import.
type MetabaseSource struct {
	// URL is the Metabase base URL, e.g. https://metabase.example.com.
	URL string `yaml:"url"`

	// Username is the Metabase account email.
	Username string `yaml:"username"`

	// PasswordEnv is the name of the environment variable that holds
	// the Metabase password.
	PasswordEnv string `yaml:"password_env"`

	// Card is the saved question ID to run.
	Card int `yaml:"card"`

	// Timeout bounds the whole card query. Defaults to the client's
	// built-in timeout if zero.
	Timeout time.Duration `yaml:"timeout"`
}

// Password returns the Metabase password resolved from the environment.
func (m MetabaseSource) Password() string {
	if m.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(m.PasswordEnv)
}

// ClientConfig converts the source settings into a Metabase client
// configuration with the password resolved.
func (m MetabaseSource) ClientConfig() metabase.Config {
	return metabase.Config{
		BaseURL:  m.URL,
		Username: m.Username,
		Password: m.Password(),
		Timeout:  m.Timeout,
	}
}

// SheetsSource configures the spreadsheet import.
type SheetsSource struct {
	// SpreadsheetID is the Google Sheets document ID.
	SpreadsheetID string `yaml:"spreadsheet_id"`

	// Tab is the worksheet title to read.
	Tab string `yaml:"tab"`

	// Normalize applies placeholder cleanup and decimal-comma
	// conversion to the imported values. Default: true.
	Normalize bool `yaml:"normalize"`
}

// CSVSource configures the file import, mostly used for local runs.
type CSVSource struct {
	// Path is the CSV file to read.
	Path string `yaml:"path"`

	// Normalize applies the same cleanup as for sheet imports.
	// Default: false; CSV extracts are usually already clean.
	Normalize bool `yaml:"normalize"`
}

// CredentialsConfig locates the Google OAuth material.
type CredentialsConfig struct {
	// ClientSecret is the path to the OAuth client secret JSON
	// downloaded from the Google Cloud console.
	ClientSecret string `yaml:"client_secret"`

	// Token is the path where the authorized user token is cached.
	// Created by the authorize command, refreshed automatically.
	Token string `yaml:"token"`
}

// MetricsConfig overrides the metric vocabulary and output schemas.
// Empty fields keep the defaults.
type MetricsConfig struct {
	// StatusColumn holds the status code (default "Tabela").
	StatusColumn string `yaml:"status_column"`

	// HCTypeColumn holds the headcount movement type (default "Tipo_HC").
	HCTypeColumn string `yaml:"hc_type_column"`

	// DateColumn holds the day-first snapshot date (default "Data").
	DateColumn string `yaml:"date_column"`

	// TenureColumn holds tenure in months (default "Tenure").
	TenureColumn string `yaml:"tenure_column"`

	Codes CodesConfig `yaml:"codes"`

	// Groupings are the dimension columns to aggregate by.
	Groupings []string `yaml:"groupings"`

	// TurnoverColumns and TenureColumns reorder or trim the output
	// schemas. Empty keeps the full default column lists.
	TurnoverColumns []string `yaml:"turnover_columns"`
	TenureColumns   []string `yaml:"tenure_columns"`
}

// CodesConfig overrides the status and movement vocabulary.
type CodesConfig struct {
	Active      string `yaml:"active"`
	Involuntary string `yaml:"involuntary"`
	Reduction   string `yaml:"reduction"`
	Voluntary   string `yaml:"voluntary"`
	NewHire     string `yaml:"new_hire"`
	Entry       string `yaml:"entry"`
}

// Options converts the overrides into metric options, keeping the
// defaults wherever the config is silent.
func (m MetricsConfig) Options() metrics.Options {
	opts := metrics.DefaultOptions()
	if m.StatusColumn != "" {
		opts.StatusColumn = m.StatusColumn
	}
	if m.HCTypeColumn != "" {
		opts.HCTypeColumn = m.HCTypeColumn
	}
	if m.DateColumn != "" {
		opts.DateColumn = m.DateColumn
	}
	if m.TenureColumn != "" {
		opts.TenureColumn = m.TenureColumn
	}
	if m.Codes.Active != "" {
		opts.Codes.Active = m.Codes.Active
	}
	if m.Codes.Involuntary != "" {
		opts.Codes.Involuntary = m.Codes.Involuntary
	}
	if m.Codes.Reduction != "" {
		opts.Codes.Reduction = m.Codes.Reduction
	}
	if m.Codes.Voluntary != "" {
		opts.Codes.Voluntary = m.Codes.Voluntary
	}
	if m.Codes.NewHire != "" {
		opts.Codes.NewHire = m.Codes.NewHire
	}
	if m.Codes.Entry != "" {
		opts.Codes.Entry = m.Codes.Entry
	}
	if len(m.Groupings) > 0 {
		opts.Groupings = m.Groupings
	}
	if len(m.TurnoverColumns) > 0 {
		opts.TurnoverColumns = m.TurnoverColumns
	}
	if len(m.TenureColumns) > 0 {
		opts.TenureColumns = m.TenureColumns
	}
	return opts
}

// ExportConfig describes where the metric tables are published.
type ExportConfig struct {
	// Range is the A1 anchor cleared and written on every tab
	// (default "A1").
	Range string `yaml:"range"`

	Turnover TableExportConfig `yaml:"turnover"`
	Tenure   TableExportConfig `yaml:"tenure"`
}

// TableExportConfig lists the destinations for one metric table.
type TableExportConfig struct {
	Destinations []DestinationConfig `yaml:"destinations"`

	// Order reorders or trims the exported columns. Empty exports the
	// table as computed.
	Order []string `yaml:"order"`
}

// SheetDestinations converts the destination list for the sheets client.
func (t TableExportConfig) SheetDestinations() []sheets.Destination {
	out := make([]sheets.Destination, 0, len(t.Destinations))
	for _, d := range t.Destinations {
		out = append(out, sheets.Destination{
			SpreadsheetID: d.SpreadsheetID,
			Tab:           d.Tab,
		})
	}
	return out
}

// DestinationConfig is one spreadsheet tab.
type DestinationConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id"`
	Tab           string `yaml:"tab"`
}

// HeatmapConfig describes the survey heatmaps to render after a run.
type HeatmapConfig struct {
	// Source optionally names a separate survey table to render from.
	// When empty, heatmaps use the main source dataset.
	Source SourceConfig `yaml:"source"`

	// OutputDir receives the PNG files (default current directory).
	OutputDir string `yaml:"output_dir"`

	// RowColumn, TopicColumn and ValueColumn override the survey
	// schema (defaults "Lider", "Topico", "indice").
	RowColumn   string `yaml:"row_column"`
	TopicColumn string `yaml:"topic_column"`
	ValueColumn string `yaml:"value_column"`

	Plots []HeatmapPlot `yaml:"plots"`
}

// HeatmapPlot selects one slice to render: the rows whose group column
// equals the filter value.
type HeatmapPlot struct {
	Group  string `yaml:"group"`
	Filter string `yaml:"filter"`
}

// Options converts the overrides into heatmap options.
func (h HeatmapConfig) Options() heatmap.Options {
	return heatmap.Options{
		RowColumn:   h.RowColumn,
		TopicColumn: h.TopicColumn,
		ValueColumn: h.ValueColumn,
		OutputDir:   h.OutputDir,
	}
}

// JournalConfig locates the run journal database.
type JournalConfig struct {
	// Path is the SQLite database file (default ./data/people-analytics.db).
	Path string `yaml:"path"`
}

// Load reads and parses the config file at path. Missing fields are
// filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Source: SourceConfig{
			Sheets: SheetsSource{Normalize: true},
		},
		Export: ExportConfig{
			Range: DefaultExportRange,
		},
		Heatmaps: HeatmapConfig{
			Source: SourceConfig{
				Sheets: SheetsSource{Normalize: true},
			},
		},
		Journal: JournalConfig{
			Path: DefaultJournalPath,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if err := validateSource("source", cfg.Source); err != nil {
		return err
	}
	if err := validateSource("heatmaps.source", cfg.Heatmaps.Source); err != nil {
		return err
	}

	for _, table := range []struct {
		name string
		cfg  TableExportConfig
	}{
		{"export.turnover", cfg.Export.Turnover},
		{"export.tenure", cfg.Export.Tenure},
	} {
		for i, d := range table.cfg.Destinations {
			if d.SpreadsheetID == "" || d.Tab == "" {
				return fmt.Errorf("%s.destinations[%d] needs spreadsheet_id and tab", table.name, i)
			}
		}
	}

	for i, p := range cfg.Heatmaps.Plots {
		if p.Group == "" || p.Filter == "" {
			return fmt.Errorf("heatmaps.plots[%d] needs group and filter", i)
		}
	}

	if cfg.NeedsSheetsAccess() {
		if cfg.Credentials.ClientSecret == "" || cfg.Credentials.Token == "" {
			return fmt.Errorf("credentials.client_secret and credentials.token are required when reading or writing sheets")
		}
	}

	if cfg.Journal.Path == "" {
		return fmt.Errorf("journal.path must not be empty")
	}

	return nil
}

// validateSource checks one source section. An empty kind is allowed;
// commands that need a source reject it at startup.
func validateSource(prefix string, src SourceConfig) error {
	switch src.Kind {
	case SourceMetabase:
		m := src.Metabase
		if m.URL == "" || m.Username == "" || m.PasswordEnv == "" {
			return fmt.Errorf("%s.metabase needs url, username and password_env", prefix)
		}
		if m.Card <= 0 {
			return fmt.Errorf("%s.metabase.card %d must be a positive question ID", prefix, m.Card)
		}
	case SourceSheets:
		s := src.Sheets
		if s.SpreadsheetID == "" || s.Tab == "" {
			return fmt.Errorf("%s.sheets needs spreadsheet_id and tab", prefix)
		}
	case SourceCSV:
		if src.CSV.Path == "" {
			return fmt.Errorf("%s.csv.path is required", prefix)
		}
	case "":
	default:
		return fmt.Errorf("%s.kind %q unknown: want metabase|sheets|csv", prefix, src.Kind)
	}
	return nil
}

// NeedsSheetsAccess reports whether the run touches the Sheets API,
// either to read a source tab or to write export destinations.
func (c *Config) NeedsSheetsAccess() bool {
	if c.Source.Kind == SourceSheets || c.Heatmaps.Source.Kind == SourceSheets {
		return true
	}
	return len(c.Export.Turnover.Destinations) > 0 || len(c.Export.Tenure.Destinations) > 0
}

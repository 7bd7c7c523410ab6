// Package models holds the shared record shapes described in spec §3:
// discovery provenance, domain configuration, pipeline context, resolution
// results, foreign-key rules, load results, and rejection records. They are
// plain structs passed by value or pointer between components — no
// behavior lives here beyond small accessors.
package models

import "time"

// VersionStrategy selects how Discovery picks a version folder.
type VersionStrategy string

const (
	VersionHighestNumber  VersionStrategy = "highest_number"
	VersionLatestModified VersionStrategy = "latest_modified"
	VersionManual         VersionStrategy = "manual"
)

// VersionFallback controls what happens when version selection is ambiguous.
type VersionFallback string

const (
	FallbackError             VersionFallback = "error"
	FallbackUseLatestModified VersionFallback = "use_latest_modified"
)

// SheetSelectorKind distinguishes a by-name from a by-index sheet selector.
type SheetSelectorKind string

const (
	SheetByName  SheetSelectorKind = "name"
	SheetByIndex SheetSelectorKind = "index"
)

// SheetSelector names or indexes the worksheet Discovery should read.
type SheetSelector struct {
	Kind  SheetSelectorKind
	Name  string
	Index int
}

// VersionedPath is the resolved input location plus the strategy that chose
// it. Produced once by Discovery and consumed once per run.
type VersionedPath struct {
	AbsolutePath string
	VersionTag   string // empty when no version folder was selected
	StrategyUsed VersionStrategy
}

// DiscoveryResult is immutable after construction: a loaded frame plus full
// provenance for the run summary and audit trail.
type DiscoveryResult struct {
	Frame        *Frame
	FilePath     string
	VersionTag   string
	SheetOrTable string
	RowCount     int
	DurationMS   int64
}

// OutputConfig names the destination table for a domain's Gold frame.
type OutputConfig struct {
	Table      string
	SchemaName string
	PK         []string
}

// DomainConfig is validated at startup and immutable thereafter.
type DomainConfig struct {
	Name                     string
	BasePathTemplate         string
	IncludePatterns          []string
	ExcludePatterns          []string
	SheetSelector            SheetSelector
	VersionStrategy          VersionStrategy
	VersionFallback          VersionFallback
	Output                   OutputConfig
	CompositeDeleteKeyColumns []string
	RequiresBackfill         bool
	SupportsEnrichment       bool

	// GoldNotNullColumns and GoldMonetaryColumns feed validation.GoldSchema
	// (spec §4.4 Gold frame schema): the former must be non-null on every
	// row, the latter must be non-negative. Unset on a domain that has
	// none of either.
	GoldNotNullColumns  []string
	GoldMonetaryColumns []string
}

// TableName is a convenience accessor used throughout the loader/backfill
// packages where only the table matters.
func (d DomainConfig) TableName() string { return d.Output.Table }

// PrimaryKeyColumns is a convenience accessor mirroring spec §3's
// primary_key_columns field.
func (d DomainConfig) PrimaryKeyColumns() []string { return d.Output.PK }

// Frame is a minimal in-memory columnar/row-oriented table: an ordered list
// of column names plus an ordered list of rows, each row a map keyed by
// column name. It stands in for whatever dataframe type a production Go
// port would choose (e.g. a slice of structs or a third-party dataframe);
// the pipeline and validation layers only depend on this interface-free
// shape so steps can be unit tested without a real file or database.
type Frame struct {
	Columns []string
	Rows    []Row
}

// Row is one record, keyed by normalized column name.
type Row map[string]any

// Clone performs the shallow-copy-of-frame/deep-copy-of-row semantics
// spec §4.5 requires: the returned Frame shares no Row map with the
// original, but scalar values inside each Row are not recursively copied
// (none of the domains here nest mutable structures in a cell).
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	cols := make([]string, len(f.Columns))
	copy(cols, f.Columns)
	rows := make([]Row, len(f.Rows))
	for i, r := range f.Rows {
		nr := make(Row, len(r))
		for k, v := range r {
			nr[k] = v
		}
		rows[i] = nr
	}
	return &Frame{Columns: cols, Rows: rows}
}

// NewFrame builds a Frame from column names and rows. cols is used as
// given; Columns is not derived from the rows when cols is nil.
func NewFrame(cols []string, rows []Row) *Frame {
	return &Frame{Columns: cols, Rows: rows}
}

// RunStatus is the terminal status of one orchestrator run.
type RunStatus string

const (
	RunSucceeded            RunStatus = "succeeded"
	RunSucceededWithWarnings RunStatus = "succeeded_with_hook_failures"
	RunFailed                RunStatus = "failed"
)

// StepMetric records one pipeline step's execution statistics.
type StepMetric struct {
	StepName     string
	StepIndex    int
	DurationMS   int64
	InputRows    int
	OutputRows   int
	RejectedRows int
	Retries      int
	Skipped      bool
}

// PipelineContext is threaded through every pipeline step.
type PipelineContext struct {
	RunID       string
	Domain      string
	Period      string
	StartedAt   time.Time
	StepMetrics []StepMetric
}

// HookResult records one post-ETL hook's outcome.
type HookResult struct {
	HookName   string `json:"hook_name"`
	OK         bool   `json:"ok"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// RunSummary is the persisted per-run JSON artifact (spec §6).
type RunSummary struct {
	RunID            string         `json:"run_id"`
	Domain           string         `json:"domain"`
	Period           string         `json:"period"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       time.Time      `json:"finished_at"`
	Status           RunStatus      `json:"status"`
	RowsDiscovered   int            `json:"rows_discovered"`
	RowsBronzePassed int            `json:"rows_bronze_passed"`
	RowsGoldPassed   int            `json:"rows_gold_passed"`
	RowsRejected     int            `json:"rows_rejected"`
	LoadResult       *LoadResult    `json:"load_result,omitempty"`
	ResolverCounters map[string]int `json:"resolver_counters,omitempty"`
	HookResults      []HookResult   `json:"hook_results,omitempty"`
	ExitCode         int            `json:"exit_code"`

	// Rejections and UnknownCompanies back the rejected-rows and
	// unknown-companies CSV exports (spec §6); they are not part of the
	// persisted JSON summary itself, which records only counts.
	Rejections       []RejectionRecord `json:"-"`
	UnknownCompanies []Row             `json:"-"`
}

package config

// Default thresholds and batch sizes referenced across the pipeline,
// enrichment, and loader packages (spec §3/§4.4/§4.8), collected here so a
// single file documents every magic number the rest of the module reads.
const (
	// DefaultNonNullRatioThreshold is the minimum fraction of non-null
	// values a required Bronze column must have before the frame is
	// rejected outright (spec §4.4).
	DefaultNonNullRatioThreshold = 0.90

	// DefaultBronzeFailureThreshold is the maximum fraction of row-level
	// invalid rows a Bronze frame may carry before the run aborts as a
	// likely systemic issue; below it, invalid rows are collected and the
	// run proceeds (spec §4.4/§8: "11% bad rows aborts; 9% collects and
	// proceeds").
	DefaultBronzeFailureThreshold = 0.10

	// DefaultLoadBatchSize is the number of rows per batched insert/
	// upsert/delete_insert statement (spec §4.8).
	DefaultLoadBatchSize = 1000

	// DefaultColumnDropWarnThreshold is the number of dropped input
	// columns (present in the frame, absent from the target table) beyond
	// which a dropped-column warning is logged rather than silently
	// applied (spec §4.8).
	DefaultColumnDropWarnThreshold = 5

	// DefaultEQCTimeoutSeconds bounds a single EQC API call (spec §4.6
	// Layer 4).
	DefaultEQCTimeoutSeconds = 5

	// DefaultEQCConcurrency is the bounded number of in-flight EQC calls
	// per run (spec §4.6 Layer 4 / §5 Concurrency).
	DefaultEQCConcurrency = 4

	// MinYear and MaxYear bound the four-digit years accepted by the
	// shared date parser; two-digit Chinese years are expanded with
	// TwoDigitYearPivot instead and are not range-checked (spec §4.4).
	MinYear = 2000
	MaxYear = 2030

	// TwoDigitYearPivot is the boundary used to map a two-digit year to a
	// century: values < pivot map to 2000+yy, values >= pivot map to
	// 1900+yy (spec §4.4 Chinese date formats).
	TwoDigitYearPivot = 50
)

// DefaultRetryAttempts maps each retry tier to its maximum attempt count
// (spec §4.5 retry classification table).
var DefaultRetryAttempts = map[string]int{
	"database": 5,
	"network":  3,
	"http_429_503": 3,
	"http_5xx": 2,
}

package models

// AggregationType enumerates how a backfill_column collapses multiple
// candidate rows into one parent-row value (spec §3/§4.7).
type AggregationType string

const (
	AggFirst          AggregationType = "first"
	AggMaxBy          AggregationType = "max_by"
	AggConcatDistinct AggregationType = "concat_distinct"
)

// Aggregation configures a backfill column's collapsing behavior.
type Aggregation struct {
	Type        AggregationType
	OrderColumn string
	Separator   string
	Sort        bool
}

// BackfillColumn projects one column of the candidate rows into the parent
// table row being inserted.
type BackfillColumn struct {
	Source      string
	Target      string
	Optional    bool
	Aggregation *Aggregation // nil means "take the raw source value"
}

// FKMode enumerates foreign-key upsert modes. Only insert_missing is
// specified (spec §3); kept as an enum so a future mode does not require
// restructuring callers.
type FKMode string

const FKModeInsertMissing FKMode = "insert_missing"

// ForeignKeyRule describes one reference-table backfill rule.
type ForeignKeyRule struct {
	Name             string
	SourceColumn     string
	TargetTable      string
	TargetKey        string
	TargetSchema     string
	Mode             FKMode
	DependsOn        []string
	SkipBlankValues  bool
	BackfillColumns  []BackfillColumn
}

// BackfillRuleReport is returned per rule after FK backfill executes it.
type BackfillRuleReport struct {
	RuleName  string
	Considered int
	Inserted  int
}

// LoadMode enumerates the warehouse loader's write modes (spec §4.8).
type LoadMode string

const (
	LoadAppend       LoadMode = "append"
	LoadUpsert       LoadMode = "upsert"
	LoadDeleteInsert LoadMode = "delete_insert"
)

// LoadResult is returned by the warehouse loader after a write.
type LoadResult struct {
	RowsInserted    int
	RowsUpdated     int
	RowsSkipped     int
	DurationMS      int64
	BatchesExecuted int
}

// RejectionRecord is one row's rejection detail, written to the rejected-
// rows CSV export (spec §4.4).
type RejectionRecord struct {
	RowSnapshot   Row
	ErrorType     string
	ErrorField    string
	ErrorMessage  string
	PipelineStage string
}

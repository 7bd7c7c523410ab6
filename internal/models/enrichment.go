package models

import "time"

// ResolutionSource tags which enrichment layer produced a ResolutionResult.
type ResolutionSource string

const (
	SourceYAML    ResolutionSource = "yaml"
	SourceDBCache ResolutionSource = "db_cache"
	SourceExisting ResolutionSource = "existing"
	SourceEQCAPI  ResolutionSource = "eqc_api"
	SourceTempID  ResolutionSource = "temp_id"
)

// LookupType enumerates the enrichment_index key kinds (spec §3/§6).
type LookupType string

const (
	LookupPlanCode     LookupType = "plan_code"
	LookupAccountName  LookupType = "account_name"
	LookupAccountNumber LookupType = "account_number"
	LookupCustomerName LookupType = "customer_name"
	LookupPlanCustomer LookupType = "plan_customer"
)

// ResolutionRequest carries whatever identifying fields a row has; at least
// one must be non-empty.
type ResolutionRequest struct {
	PlanCode      string
	CustomerName  string
	AccountName   string
	AccountNumber string
	// ExistingCompanyID is set when the input row already carries a
	// company_id value (Layer 3).
	ExistingCompanyID string
}

// HasAnyField reports whether the request carries at least one identifying
// field, as spec §3 requires.
func (r ResolutionRequest) HasAnyField() bool {
	return r.PlanCode != "" || r.CustomerName != "" || r.AccountName != "" || r.AccountNumber != ""
}

// NormalizedName picks the best available name for temp-ID hashing /
// enrichment_requests keying, preferring customer name, then account name.
func (r ResolutionRequest) NormalizedName() string {
	if r.CustomerName != "" {
		return r.CustomerName
	}
	return r.AccountName
}

// ResolutionResult is the outcome of resolving one row's company identity.
type ResolutionResult struct {
	CompanyID  string
	Source     ResolutionSource
	MatchType  string
	Confidence float64
	NeedsReview bool
}

// EnrichmentIndexRow is the warehouse-side cache entry (spec §3/§6).
type EnrichmentIndexRow struct {
	LookupKey  string           `db:"lookup_key"`
	LookupType LookupType       `db:"lookup_type"`
	CompanyID  string           `db:"company_id"`
	Confidence float64          `db:"confidence"`
	Source     ResolutionSource `db:"source"`
	HitCount   int64            `db:"hit_count"`
	LastHitAt  time.Time        `db:"last_hit_at"`
}

// RequestStatus enumerates enrichment_requests.status transitions.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestProcessing RequestStatus = "processing"
	RequestDone       RequestStatus = "done"
	RequestFailed     RequestStatus = "failed"
)

// EnrichmentRequestRow is the warehouse-side async resolution queue entry.
type EnrichmentRequestRow struct {
	ID                 int64
	RawName            string
	NormalizedName     string
	TempID             string
	Status             RequestStatus
	Attempts           int
	LastError          string
	ResolvedCompanyID  string
}

// ResolverCounters are the observable per-run counters spec §4.6 names.
type ResolverCounters struct {
	CacheHits        int
	YAMLHits         int
	ExistingHits     int
	APICalls         int
	APIBudgetUsed    int
	APIFailures      int
	TempIDsGenerated int
	QueuedNew        int
	QueueDepthAfter  int
}

// AsMap renders the counters as a string-keyed map for the run summary and
// structured logging, where the fixed struct shape is less convenient than
// a map.
func (c ResolverCounters) AsMap() map[string]int {
	return map[string]int{
		"cache_hits":         c.CacheHits,
		"yaml_hits":          c.YAMLHits,
		"existing_hits":      c.ExistingHits,
		"api_calls":          c.APICalls,
		"api_budget_used":    c.APIBudgetUsed,
		"api_failures":       c.APIFailures,
		"temp_ids_generated": c.TempIDsGenerated,
		"queued_new":         c.QueuedNew,
		"queue_depth_after":  c.QueueDepthAfter,
	}
}

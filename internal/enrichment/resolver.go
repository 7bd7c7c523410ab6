// Package enrichment implements the company-identity resolver: a strict
// priority chain of five lookup layers run in order until one produces a
// company_id (spec §4.6). Earlier layers are free (YAML config, warehouse
// cache, existing column); layer 4 spends a per-run external-API budget;
// layer 5 never fails, minting a stable temporary ID instead.
package enrichment

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/linsuisheng034/workdatahub/internal/config"
	"github.com/linsuisheng034/workdatahub/internal/models"
)

// WarehouseCache is Layer 2: the persisted enrichment_index lookup. Kept as
// an interface so the resolver can be unit tested without a database; the
// real implementation lives in internal/store/postgres.
type WarehouseCache interface {
	Lookup(ctx context.Context, lookupKey string, lookupType models.LookupType) (models.EnrichmentIndexRow, bool, error)
	RecordHit(ctx context.Context, lookupKey string, lookupType models.LookupType) error
	Upsert(ctx context.Context, row models.EnrichmentIndexRow) error
}

// RequestQueue is where Layer 5's minted temp IDs are recorded for later
// asynchronous human/EQC resolution, backed by internal/store/postgres in
// production.
type RequestQueue interface {
	Enqueue(ctx context.Context, row models.EnrichmentRequestRow) (queued bool, err error)
}

// Resolver runs the five-layer lookup chain for one run, accumulating
// ResolverCounters as it goes.
type Resolver struct {
	mapping      config.CompanyMapping
	cache        WarehouseCache
	localCache   *localCache
	eqcClient    EQCClient
	eqcConf      config.EQCConfidence
	queue        RequestQueue
	salt         string
	budget       int
	concurrency  int
	forceLayer5  bool

	mu       sync.Mutex
	counters models.ResolverCounters
	spentAPI int
}

// Options configures a Resolver. A nil EQCClient disables Layer 4 (every
// miss proceeds straight to Layer 5); a nil Queue makes Layer 5 mint temp
// IDs without enqueueing them; a nil Cache skips the warehouse lookup of
// Layer 2. Budget caps the Layer 4 calls per run; zero allows none.
type Options struct {
	Mapping     config.CompanyMapping
	Cache       WarehouseCache
	EQCClient   EQCClient
	EQCConf     config.EQCConfidence
	Queue       RequestQueue
	Salt        string
	Budget      int
	Concurrency int
	LocalCacheTTL time.Duration

	// ForceLayer5 skips Layers 1-4 entirely, minting a temp ID for every
	// request regardless of an available exact match (spec §6: the CLI's
	// --no-enrichment flag "forces Layer 5 only").
	ForceLayer5 bool
}

// NewResolver builds a Resolver from Options, defaulting Concurrency and
// LocalCacheTTL when unset.
func NewResolver(opts Options) *Resolver {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = config.DefaultEQCConcurrency
	}
	ttl := opts.LocalCacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Resolver{
		mapping:     opts.Mapping,
		cache:       opts.Cache,
		localCache:  newLocalCache(ttl),
		eqcClient:   opts.EQCClient,
		eqcConf:     opts.EQCConf,
		queue:       opts.Queue,
		salt:        opts.Salt,
		budget:      opts.Budget,
		concurrency: concurrency,
		forceLayer5: opts.ForceLayer5,
	}
}

// Counters returns a snapshot of the accumulated per-run counters.
func (r *Resolver) Counters() models.ResolverCounters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters
}

// ResolveAll resolves every request concurrently, bounded by r.concurrency,
// preserving the 1:1 index correspondence between requests and results
// (spec §5 concurrency: "enrichment calls may run concurrently provided row
// order in the output is preserved").
func (r *Resolver) ResolveAll(ctx context.Context, requests []models.ResolutionRequest) ([]models.ResolutionResult, error) {
	results := make([]models.ResolutionResult, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			res, err := r.Resolve(gctx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Resolve runs the five-layer chain for one request (spec §4.6). When
// forceLayer5 is set, Layers 1-4 are skipped entirely.
func (r *Resolver) Resolve(ctx context.Context, req models.ResolutionRequest) (models.ResolutionResult, error) {
	if r.forceLayer5 {
		return r.resolveLayer5(ctx, req)
	}

	// Layer 1: YAML exact-match config.
	if id, ok := r.mapping.Lookup(req); ok {
		r.bump(func(c *models.ResolverCounters) { c.YAMLHits++ })
		return models.ResolutionResult{CompanyID: id, Source: models.SourceYAML, Confidence: 1.0}, nil
	}

	// Layer 2: warehouse cache, fronted by a local TTL cache to avoid
	// repeat round trips for the same key within one run. Candidates are
	// tried in spec §4.6's documented priority order (plan_code,
	// account_name, account_number, customer_name, plan_customer); a hit
	// whose confidence falls below MinConfidenceForCache is treated as a
	// miss and the chain falls through to the next candidate, then to
	// Layer 3/4/5, rather than being accepted as-is.
	candidates := lookupCandidates(req)
	minConfidence := r.eqcConf.MinConfidenceForCache
	for _, cand := range candidates {
		if row, ok := r.localCache.get(cand.key, cand.lookupType); ok {
			if row.Confidence >= minConfidence {
				r.bump(func(c *models.ResolverCounters) { c.CacheHits++ })
				return models.ResolutionResult{CompanyID: row.CompanyID, Source: models.SourceDBCache, Confidence: row.Confidence}, nil
			}
			continue
		}
		if r.cache == nil {
			continue
		}
		row, ok, err := r.cache.Lookup(ctx, cand.key, cand.lookupType)
		if err != nil || !ok {
			continue
		}
		r.localCache.set(cand.key, cand.lookupType, row)
		if row.Confidence >= minConfidence {
			r.bump(func(c *models.ResolverCounters) { c.CacheHits++ })
			go func(key string, lookupType models.LookupType) {
				_ = r.cache.RecordHit(context.WithoutCancel(ctx), key, lookupType)
			}(cand.key, cand.lookupType)
			return models.ResolutionResult{CompanyID: row.CompanyID, Source: models.SourceDBCache, Confidence: row.Confidence}, nil
		}
	}
	key, lookupType := "", models.LookupType("")
	if len(candidates) > 0 {
		key, lookupType = candidates[0].key, candidates[0].lookupType
	}

	// Layer 3: the row already carries a company_id.
	if req.ExistingCompanyID != "" {
		r.bump(func(c *models.ResolverCounters) { c.ExistingHits++ })
		return models.ResolutionResult{CompanyID: req.ExistingCompanyID, Source: models.SourceExisting, Confidence: 1.0}, nil
	}

	name := req.NormalizedName()

	// Layer 4: external EQC API, bounded by the per-run budget.
	if r.eqcClient != nil && name != "" && r.withinBudget() {
		r.bump(func(c *models.ResolverCounters) { c.APICalls++ })
		match, found, err := r.eqcClient.Lookup(ctx, name)
		r.spendBudget()
		if err != nil {
			r.bump(func(c *models.ResolverCounters) { c.APIFailures++ })
		} else if found {
			confidence := r.eqcConf.ConfidenceFor(match.MatchType)
			result := models.ResolutionResult{CompanyID: match.CompanyID, Source: models.SourceEQCAPI, MatchType: match.MatchType, Confidence: confidence}
			if confidence >= r.eqcConf.MinConfidenceForCache && key != "" && r.cache != nil {
				row := models.EnrichmentIndexRow{LookupKey: key, LookupType: lookupType, CompanyID: match.CompanyID, Confidence: confidence, Source: models.SourceEQCAPI}
				_ = r.cache.Upsert(ctx, row)
				r.localCache.set(key, lookupType, row)
			}
			return result, nil
		}
	}

	return r.resolveLayer5(ctx, req)
}

// resolveLayer5 mints a deterministic temp ID and enqueues it for later
// resolution; it never fails (spec §4.6 Layer 5).
func (r *Resolver) resolveLayer5(ctx context.Context, req models.ResolutionRequest) (models.ResolutionResult, error) {
	name := req.NormalizedName()
	tempID := GenerateTempID(r.salt, name)
	r.bump(func(c *models.ResolverCounters) { c.TempIDsGenerated++ })
	if r.queue != nil && name != "" {
		queued, err := r.queue.Enqueue(ctx, models.EnrichmentRequestRow{
			RawName:        name,
			NormalizedName: name,
			TempID:         tempID,
			Status:         models.RequestPending,
		})
		if err == nil && queued {
			r.bump(func(c *models.ResolverCounters) { c.QueuedNew++ })
		}
	}
	return models.ResolutionResult{CompanyID: tempID, Source: models.SourceTempID, Confidence: 0, NeedsReview: true}, nil
}

func (r *Resolver) bump(fn func(c *models.ResolverCounters)) {
	r.mu.Lock()
	fn(&r.counters)
	r.mu.Unlock()
}

func (r *Resolver) withinBudget() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spentAPI < r.budget
}

func (r *Resolver) spendBudget() {
	r.mu.Lock()
	r.spentAPI++
	r.counters.APIBudgetUsed = r.spentAPI
	r.mu.Unlock()
}

// lookupCandidate is one (key, lookup_type) pair Layer 2 may try.
type lookupCandidate struct {
	key        string
	lookupType models.LookupType
}

// lookupCandidates returns every key a request can be looked up by, in
// spec §4.6's documented priority order: plan_code, account_name,
// account_number, customer_name, plan_customer. Unlike picking a single
// lookup type by field presence, this tries each populated field in turn
// so a plan_code hit is never skipped in favor of a lower-priority
// plan_customer combination just because both fields happen to be set.
func lookupCandidates(req models.ResolutionRequest) []lookupCandidate {
	var out []lookupCandidate
	if req.PlanCode != "" {
		out = append(out, lookupCandidate{req.PlanCode, models.LookupPlanCode})
	}
	if req.AccountName != "" {
		out = append(out, lookupCandidate{req.AccountName, models.LookupAccountName})
	}
	if req.AccountNumber != "" {
		out = append(out, lookupCandidate{req.AccountNumber, models.LookupAccountNumber})
	}
	if req.CustomerName != "" {
		out = append(out, lookupCandidate{req.CustomerName, models.LookupCustomerName})
	}
	if req.PlanCode != "" && req.CustomerName != "" {
		out = append(out, lookupCandidate{req.PlanCode + "|" + req.CustomerName, models.LookupPlanCustomer})
	}
	return out
}

package enrichment

import (
	"context"
	"testing"

	"github.com/linsuisheng034/workdatahub/internal/config"
	"github.com/linsuisheng034/workdatahub/internal/models"
)

type fakeCache struct {
	rows map[string]models.EnrichmentIndexRow
}

func newFakeCache() *fakeCache { return &fakeCache{rows: map[string]models.EnrichmentIndexRow{}} }

func (f *fakeCache) Lookup(_ context.Context, key string, lt models.LookupType) (models.EnrichmentIndexRow, bool, error) {
	row, ok := f.rows[cacheKey(key, lt)]
	return row, ok, nil
}
func (f *fakeCache) RecordHit(context.Context, string, models.LookupType) error { return nil }
func (f *fakeCache) Upsert(_ context.Context, row models.EnrichmentIndexRow) error {
	f.rows[cacheKey(row.LookupKey, row.LookupType)] = row
	return nil
}

func TestResolveLayerPriorityYAMLBeforeCache(t *testing.T) {
	cache := newFakeCache()
	cache.rows[cacheKey("P1", models.LookupPlanCode)] = models.EnrichmentIndexRow{CompanyID: "FROM_CACHE"}

	r := NewResolver(Options{
		Mapping: config.CompanyMapping{PlanCode: map[string]string{"P1": "FROM_YAML"}},
		Cache:   cache,
		Salt:    "salt",
	})

	res, err := r.Resolve(context.Background(), models.ResolutionRequest{PlanCode: "P1"})
	if err != nil {
		t.Fatal(err)
	}
	if res.CompanyID != "FROM_YAML" || res.Source != models.SourceYAML {
		t.Fatalf("expected YAML layer to win, got %+v", res)
	}
}

func TestResolveFallsBackToCacheThenExistingThenTempID(t *testing.T) {
	cache := newFakeCache()
	cache.rows[cacheKey("P2", models.LookupPlanCode)] = models.EnrichmentIndexRow{CompanyID: "FROM_CACHE", Confidence: 0.9}

	r := NewResolver(Options{Cache: cache, Salt: "salt"})

	res, err := r.Resolve(context.Background(), models.ResolutionRequest{PlanCode: "P2"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != models.SourceDBCache {
		t.Fatalf("expected cache hit, got %+v", res)
	}

	res, err = r.Resolve(context.Background(), models.ResolutionRequest{PlanCode: "P3", ExistingCompanyID: "EXIST1"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != models.SourceExisting || res.CompanyID != "EXIST1" {
		t.Fatalf("expected existing-column layer, got %+v", res)
	}

	res, err = r.Resolve(context.Background(), models.ResolutionRequest{CustomerName: "Unknown Co"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != models.SourceTempID || !IsTempID(res.CompanyID) {
		t.Fatalf("expected temp id fallback, got %+v", res)
	}
}

func TestResolveSkipsLowConfidenceCacheHitAndFallsThrough(t *testing.T) {
	cache := newFakeCache()
	cache.rows[cacheKey("P4", models.LookupPlanCode)] = models.EnrichmentIndexRow{CompanyID: "STALE", Confidence: 0.3}

	r := NewResolver(Options{
		Cache:   cache,
		EQCConf: config.EQCConfidence{MinConfidenceForCache: 0.60},
		Salt:    "salt",
	})

	res, err := r.Resolve(context.Background(), models.ResolutionRequest{PlanCode: "P4", ExistingCompanyID: "EXIST4"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != models.SourceExisting || res.CompanyID != "EXIST4" {
		t.Fatalf("expected low-confidence cache hit to be skipped in favor of existing-column layer, got %+v", res)
	}
}

func TestResolveTriesPlanCodeBeforePlanCustomerCombination(t *testing.T) {
	cache := newFakeCache()
	cache.rows[cacheKey("P5", models.LookupPlanCode)] = models.EnrichmentIndexRow{CompanyID: "FROM_PLAN_CODE", Confidence: 1.0}
	cache.rows[cacheKey("P5|Acme", models.LookupPlanCustomer)] = models.EnrichmentIndexRow{CompanyID: "FROM_PLAN_CUSTOMER", Confidence: 1.0}

	r := NewResolver(Options{Cache: cache, Salt: "salt"})

	res, err := r.Resolve(context.Background(), models.ResolutionRequest{PlanCode: "P5", CustomerName: "Acme"})
	if err != nil {
		t.Fatal(err)
	}
	if res.CompanyID != "FROM_PLAN_CODE" {
		t.Fatalf("expected plan_code to be tried before the lower-priority plan_customer combination, got %+v", res)
	}
}

func TestResolveAllPreservesOrder(t *testing.T) {
	r := NewResolver(Options{Salt: "salt", Concurrency: 2})
	requests := []models.ResolutionRequest{
		{CustomerName: "Alpha"},
		{CustomerName: "Beta"},
		{CustomerName: "Gamma"},
	}
	results, err := r.ResolveAll(context.Background(), requests)
	if err != nil {
		t.Fatal(err)
	}
	for i, req := range requests {
		want := GenerateTempID("salt", req.CustomerName)
		if results[i].CompanyID != want {
			t.Fatalf("result[%d] = %q, want %q (order not preserved)", i, results[i].CompanyID, want)
		}
	}
}

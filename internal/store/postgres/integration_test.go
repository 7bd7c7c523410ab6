package postgres_test

import (
	"context"
	"testing"

	"github.com/linsuisheng034/workdatahub/internal/models"
	"github.com/linsuisheng034/workdatahub/internal/store/postgres"
	"github.com/linsuisheng034/workdatahub/internal/testutil"
)

// TestBatchInsertAndIntrospectColumnsAgainstRealPostgres exercises the
// batched-write helpers against an actual database rather than a fake,
// skipping when testutil.DSNEnvVar isn't set (spec §4.8's batched-insert
// and column-introspection contract underpins both the loader and
// fkbackfill, so this is the one place that contract gets a real round
// trip instead of only table-driven unit coverage).
func TestBatchInsertAndIntrospectColumnsAgainstRealPostgres(t *testing.T) {
	db, teardown := testutil.OpenTestDB(t)
	defer teardown()

	ctx := context.Background()
	const table = "wdh_test_batch_insert"
	if _, err := db.ExecContext(ctx, "CREATE TEMP TABLE "+table+" (company_id text, plan_code text)"); err != nil {
		t.Fatalf("create temp table: %v", err)
	}

	rows := []models.Row{
		{"company_id": "C1", "plan_code": "P1"},
		{"company_id": "C2", "plan_code": "P2"},
	}
	n, err := postgres.BatchInsert(ctx, db, "", table, []string{"company_id", "plan_code"}, rows, 1000, "")
	if err != nil {
		t.Fatalf("batch insert: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows inserted, got %d", n)
	}

	var count int
	if err := db.GetContext(ctx, &count, "SELECT count(*) FROM "+table); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows present, got %d", count)
	}

	deleted, err := postgres.DeleteByKeys(ctx, db, "", table, []string{"company_id"}, []models.Row{{"company_id": "C1"}})
	if err != nil {
		t.Fatalf("delete by keys: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 row deleted, got %d", deleted)
	}
}

// TestEnrichmentIndexStoreRoundTripAgainstRealPostgres exercises
// EnrichmentIndexStore's upsert/lookup/hit-accounting cycle against a real
// enrichment_index table, created locally so the test doesn't depend on
// external schema provisioning (spec §4.6 Layer 2).
func TestEnrichmentIndexStoreRoundTripAgainstRealPostgres(t *testing.T) {
	db, teardown := testutil.OpenTestDB(t)
	defer teardown()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `
		CREATE TEMP TABLE enrichment_index (
			lookup_key text,
			lookup_type text,
			company_id text,
			confidence double precision,
			source text,
			hit_count bigint DEFAULT 0,
			last_hit_at timestamptz,
			PRIMARY KEY (lookup_key, lookup_type)
		)
	`); err != nil {
		t.Fatalf("create temp table: %v", err)
	}

	store := postgres.NewEnrichmentIndexStore(db)
	row := models.EnrichmentIndexRow{
		LookupKey: "P001", LookupType: models.LookupPlanCode, CompanyID: "C100",
		Confidence: 0.95, Source: models.SourceYAML,
	}
	if err := store.Upsert(ctx, row); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := store.Lookup(ctx, "P001", models.LookupPlanCode)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit after upsert")
	}
	if got.CompanyID != "C100" {
		t.Fatalf("expected company_id C100, got %q", got.CompanyID)
	}

	if err := store.RecordHit(ctx, "P001", models.LookupPlanCode); err != nil {
		t.Fatalf("record hit: %v", err)
	}
	got, _, err = store.Lookup(ctx, "P001", models.LookupPlanCode)
	if err != nil {
		t.Fatalf("lookup after hit: %v", err)
	}
	if got.HitCount != 2 {
		t.Fatalf("expected hit_count 2 after upsert+record, got %d", got.HitCount)
	}
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/linsuisheng034/workdatahub/internal/models"
)

// EnrichmentIndexStore implements enrichment.WarehouseCache against the
// enrichment_index table, unique on (lookup_key, lookup_type) (spec §4.6
// Layer 2 / §6 schema).
type EnrichmentIndexStore struct {
	db Querier
}

// NewEnrichmentIndexStore builds a store bound to db, which may be the pool
// itself or an open transaction.
func NewEnrichmentIndexStore(db Querier) *EnrichmentIndexStore {
	return &EnrichmentIndexStore{db: db}
}

func (s *EnrichmentIndexStore) Lookup(ctx context.Context, lookupKey string, lookupType models.LookupType) (models.EnrichmentIndexRow, bool, error) {
	var row models.EnrichmentIndexRow
	err := sqlx.GetContext(ctx, s.db, &row, `
		SELECT lookup_key, lookup_type, company_id, confidence, source, hit_count, last_hit_at
		FROM enrichment_index
		WHERE lookup_key = $1 AND lookup_type = $2
	`, lookupKey, lookupType)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EnrichmentIndexRow{}, false, nil
	}
	if err != nil {
		return models.EnrichmentIndexRow{}, false, err
	}
	return row, true, nil
}

// RecordHit increments hit_count and refreshes last_hit_at for one cache
// row. It runs synchronously; the resolver calls it on a separate goroutine
// so hit accounting does not hold up resolution.
func (s *EnrichmentIndexStore) RecordHit(ctx context.Context, lookupKey string, lookupType models.LookupType) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE enrichment_index
		SET hit_count = hit_count + 1, last_hit_at = $3
		WHERE lookup_key = $1 AND lookup_type = $2
	`, lookupKey, lookupType, time.Now().UTC())
	return err
}

// Upsert inserts or refreshes a cache row for (lookup_key, lookup_type).
func (s *EnrichmentIndexStore) Upsert(ctx context.Context, row models.EnrichmentIndexRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enrichment_index (lookup_key, lookup_type, company_id, confidence, source, hit_count, last_hit_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (lookup_key, lookup_type) DO UPDATE
		SET company_id = EXCLUDED.company_id,
		    confidence = EXCLUDED.confidence,
		    source = EXCLUDED.source,
		    hit_count = enrichment_index.hit_count + 1,
		    last_hit_at = EXCLUDED.last_hit_at
	`, row.LookupKey, row.LookupType, row.CompanyID, row.Confidence, row.Source, time.Now().UTC())
	return err
}

// EnrichmentRequestStore implements enrichment.RequestQueue against the
// enrichment_requests table, which carries a partial unique index on
// normalized_name so the same unresolved company is never queued twice
// (spec §4.6 Layer 5).
type EnrichmentRequestStore struct {
	db Querier
}

func NewEnrichmentRequestStore(db Querier) *EnrichmentRequestStore {
	return &EnrichmentRequestStore{db: db}
}

// Enqueue inserts row if normalized_name isn't already queued, relying on
// the partial unique index plus ON CONFLICT DO NOTHING to make the
// operation idempotent without a separate existence check.
func (s *EnrichmentRequestStore) Enqueue(ctx context.Context, row models.EnrichmentRequestRow) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO enrichment_requests (raw_name, normalized_name, temp_id, status, attempts)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (normalized_name) WHERE status IN ('pending', 'processing') DO NOTHING
	`, row.RawName, row.NormalizedName, row.TempID, models.RequestPending)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

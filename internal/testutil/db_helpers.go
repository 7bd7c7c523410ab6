// Package testutil provides opt-in helpers for tests that want to exercise
// the store/postgres layer against a real database rather than a fake.
// Schema migration is explicitly out of scope for this project (SPEC_FULL.md
// names `golang-migrate/migrate` as a dropped dependency since "database
// migration authoring is an explicit spec Non-goal"), so these helpers
// assume the target database's schema already exists and only connect,
// verify reachability, and skip the test otherwise.
package testutil

import (
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// DSNEnvVar is the environment variable integration tests read the test
// warehouse's connection string from.
const DSNEnvVar = "WDH_TEST_POSTGRES_DSN"

// OpenTestDB connects to the DSN named by DSNEnvVar and returns the pool
// plus a teardown func. It calls t.Skip, not t.Fatal, when the variable is
// unset or the database is unreachable, so `go test ./...` stays green in
// environments with no warehouse available.
func OpenTestDB(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()

	dsn := os.Getenv(DSNEnvVar)
	if dsn == "" {
		t.Skipf("%s not set, skipping postgres integration test", DSNEnvVar)
		return nil, func() {}
	}

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		t.Skipf("could not connect to %s: %v", DSNEnvVar, err)
		return nil, func() {}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("could not ping test database: %v", err)
		return nil, func() {}
	}

	return db, func() { db.Close() }
}

// Package postgres is the sole component that issues SQL against the
// warehouse: connection pooling, transaction management, enrichment-index
// persistence, and the generic batched write helpers the loader and
// fkbackfill packages build on (spec §4.8/§4.9).
package postgres

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Querier is the subset of *sqlx.DB / *sqlx.Tx every store method needs,
// adapted from the teacher's store.Querier so callers can be handed either
// a live connection or an open transaction interchangeably. sqlx.ExtContext
// is already implemented by both.
type Querier = sqlx.ExtContext

// Store wraps a *sqlx.DB connection pool plus the transaction helper every
// write-side component (loader, fkbackfill) shares.
type Store struct {
	DB *sqlx.DB
}

// Open connects to dsn through pgx/v5's database/sql driver, then wraps
// the connection in sqlx, matching the teacher's sqlx.DB-centric store
// layer. The pool allows at most 10 open connections and keeps up to 2 of
// them idle.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to warehouse: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	return &Store{DB: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.DB.Close() }

// TransactionManager runs a function inside a single SQL transaction,
// rolling back on error or panic and committing otherwise — adapted from
// the teacher's internal/utils.TransactionManager, generalized from a
// store.Querier parameter to *sqlx.Tx so the fkbackfill and loader
// packages can issue arbitrary sqlx calls within the transaction.
type TransactionManager struct {
	db *sqlx.DB
}

// NewTransactionManager builds a TransactionManager bound to db.
func NewTransactionManager(db *sqlx.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// WithTransaction begins a transaction, invokes fn, and commits or rolls
// back depending on the outcome, logging each step the way the teacher's
// WithTransaction does (spec §4.7/§4.8: each FK rule and the whole loader
// write both run inside exactly one transaction).
func (tm *TransactionManager) WithTransaction(ctx context.Context, operationName string, fn func(*sqlx.Tx) error) (err error) {
	tx, beginErr := tm.db.BeginTxx(ctx, nil)
	if beginErr != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", operationName, beginErr)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Printf("panic recovered during %s, rolling back: %v", operationName, p)
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			log.Printf("error occurred for %s, rolling back: %v", operationName, err)
			_ = tx.Rollback()
		} else if commitErr := tx.Commit(); commitErr != nil {
			log.Printf("error committing transaction for %s: %v", operationName, commitErr)
			err = commitErr
		}
	}()

	err = fn(tx)
	return err
}

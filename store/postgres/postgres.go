// Package postgres opens the PostgreSQL backend. Same tables as SQLite,
// with numbered placeholders and native column types.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/warp/task-economy/store/sqlstore"
)

const schema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		pool TEXT NOT NULL,
		effective_at TEXT NOT NULL,
		delta_value TEXT NOT NULL,
		delta_unit TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		reference_id TEXT,
		reason TEXT,
		idempotency_key TEXT UNIQUE,
		metadata_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_entity_date
		ON transactions(entity_id, effective_at, created_at);

	CREATE TABLE IF NOT EXISTS documents (
		entity_id TEXT NOT NULL,
		doc_key TEXT NOT NULL,
		doc_value BYTEA NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (entity_id, doc_key)
	);
`

// uniqueViolation is SQLSTATE 23505.
const uniqueViolation = pq.ErrorCode("23505")

var Dialect = sqlstore.Dialect{
	Name:              "postgres",
	Schema:            schema,
	Numbered:          true,
	IsUniqueViolation: isUniqueViolation,
}

// Connect opens the database, checks it answers, and migrates it.
func Connect(connString string) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	store, err := sqlstore.Open(db, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

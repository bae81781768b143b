/*
Package sqlstore implements generic.TxRepository on database/sql.

PURPOSE:
  One implementation of the ledger and the document sections, shared by
  the SQLite and PostgreSQL backends. A Dialect supplies what differs:
  schema DDL, placeholder style and unique-violation detection.

KEY TABLES:
  transactions: Append-only ledger. idempotency_key is UNIQUE.
  documents:    One row per (entity_id, doc_key); doc_value is the JSON section.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on transactions
  - Corrections via reversal transactions only

CONCURRENCY:
  A sync.RWMutex serializes writers inside the process. WithTx holds the
  write lock for the whole unit of work, and every query issued through
  the handed-out Repository goes to the open *sql.Tx, never back to the
  pool.

SEE ALSO:
  - store/sqlite: SQLite dialect (default backend)
  - store/postgres: PostgreSQL dialect
  - generic/store.go: Interface definitions
*/
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/warp/task-economy/generic"
)

// Dialect captures the differences between SQL backends.
type Dialect struct {
	Name string

	// Schema is executed once on open. It must be idempotent.
	Schema string

	// Numbered switches "?" placeholders to "$1, $2, ...".
	Numbered bool

	// IsUniqueViolation classifies driver errors.
	IsUniqueViolation func(error) bool
}

func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store implements generic.TxRepository.
type Store struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.RWMutex
}

var _ generic.TxRepository = (*Store)(nil)

// Open wraps an open database and migrates it.
func Open(db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if _, err := db.Exec(dialect.Schema); err != nil {
		return nil, fmt.Errorf("failed to migrate %s database: %w", dialect.Name, err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Reset clears all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"transactions", "documents"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTION STORE (generic.Store interface)
// =============================================================================

const selectTransactions = `
	SELECT id, entity_id, pool, effective_at, delta_value, delta_unit,
	       tx_type, reference_id, reason, idempotency_key, metadata_json, created_at
	FROM transactions`

func (s *Store) Append(ctx context.Context, tx generic.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendTx(ctx, s.db, tx)
}

func (s *Store) appendTx(ctx context.Context, q querier, tx generic.Transaction) error {
	metadataJSON, err := json.Marshal(tx.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := s.dialect.rebind(`
		INSERT INTO transactions
		(id, entity_id, pool, effective_at, delta_value, delta_unit,
		 tx_type, reference_id, reason, idempotency_key, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = q.ExecContext(ctx, query,
		string(tx.ID),
		string(tx.EntityID),
		string(tx.Pool),
		tx.EffectiveAt.String(),
		tx.Delta.Value.String(),
		string(tx.Delta.Unit),
		string(tx.Type),
		tx.ReferenceID,
		tx.Reason,
		nullString(tx.IdempotencyKey),
		string(metadataJSON),
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// AppendBatch adds multiple transactions atomically.
func (s *Store) AppendBatch(ctx context.Context, txs []generic.Transaction) error {
	if err := checkBatchKeys(txs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, tx := range txs {
		if err := s.appendTx(ctx, sqlTx, tx); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func checkBatchKeys(txs []generic.Transaction) error {
	seen := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if tx.IdempotencyKey == "" {
			continue
		}
		if seen[tx.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		seen[tx.IdempotencyKey] = true
	}
	return nil
}

// Load returns all transactions for an entity, oldest effective date first.
func (s *Store) Load(ctx context.Context, entityID generic.EntityID) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(ctx, s.db, entityID)
}

func (s *Store) load(ctx context.Context, q querier, entityID generic.EntityID) ([]generic.Transaction, error) {
	query := s.dialect.rebind(selectTransactions + `
		WHERE entity_id = ?
		ORDER BY effective_at ASC, created_at ASC`)
	return queryTransactions(ctx, q, query, string(entityID))
}

func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists(ctx, s.db, idempotencyKey)
}

func (s *Store) exists(ctx context.Context, q querier, idempotencyKey string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		s.dialect.rebind("SELECT COUNT(*) FROM transactions WHERE idempotency_key = ?"),
		idempotencyKey,
	).Scan(&count)
	return count > 0, err
}

func queryTransactions(ctx context.Context, q querier, query string, args ...any) ([]generic.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []generic.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (generic.Transaction, error) {
	var (
		tx                                          generic.Transaction
		id, entityID, pool, effectiveAt             string
		deltaValue, deltaUnit, txType               string
		referenceID, reason, idempotencyKey, metaJS sql.NullString
		createdAt                                   string
	)

	err := rows.Scan(
		&id, &entityID, &pool, &effectiveAt, &deltaValue, &deltaUnit,
		&txType, &referenceID, &reason, &idempotencyKey, &metaJS, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	d, err := generic.ParseDate(effectiveAt)
	if err != nil {
		return tx, fmt.Errorf("transaction %s: %w", id, err)
	}
	tx.ID = generic.TransactionID(id)
	tx.EntityID = generic.EntityID(entityID)
	tx.Pool = generic.Pool(pool)
	tx.EffectiveAt = d
	tx.Delta = generic.Amount{Value: generic.MustParseDecimal(deltaValue), Unit: generic.Unit(deltaUnit)}
	tx.Type = generic.TransactionType(txType)
	tx.ReferenceID = referenceID.String
	tx.Reason = reason.String
	tx.IdempotencyKey = idempotencyKey.String
	tx.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	if metaJS.Valid && metaJS.String != "" && metaJS.String != "null" {
		if err := json.Unmarshal([]byte(metaJS.String), &tx.Metadata); err != nil {
			return tx, fmt.Errorf("transaction %s metadata: %w", id, err)
		}
	}
	return tx, nil
}

// =============================================================================
// DOCUMENT STORE (generic.DocumentStore interface)
// =============================================================================

func (s *Store) GetDocument(ctx context.Context, entityID generic.EntityID, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getDocument(ctx, s.db, entityID, key)
}

func (s *Store) getDocument(ctx context.Context, q querier, entityID generic.EntityID, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx,
		s.dialect.rebind("SELECT doc_value FROM documents WHERE entity_id = ? AND doc_key = ?"),
		string(entityID), key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s/%s: %w", entityID, key, err)
	}
	return value, nil
}

func (s *Store) PutDocument(ctx context.Context, entityID generic.EntityID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putDocument(ctx, s.db, entityID, key, value)
}

func (s *Store) putDocument(ctx context.Context, q querier, entityID generic.EntityID, key string, value []byte) error {
	query := s.dialect.rebind(`
		INSERT INTO documents (entity_id, doc_key, doc_value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (entity_id, doc_key)
		DO UPDATE SET doc_value = excluded.doc_value, updated_at = excluded.updated_at
	`)
	_, err := q.ExecContext(ctx, query, string(entityID), key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to write document %s/%s: %w", entityID, key, err)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, entityID generic.EntityID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteDocument(ctx, s.db, entityID, key)
}

func (s *Store) deleteDocument(ctx context.Context, q querier, entityID generic.EntityID, key string) error {
	_, err := q.ExecContext(ctx,
		s.dialect.rebind("DELETE FROM documents WHERE entity_id = ? AND doc_key = ?"),
		string(entityID), key)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", entityID, key, err)
	}
	return nil
}

func (s *Store) ListEntities(ctx context.Context) ([]generic.EntityID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEntities(ctx, s.db)
}

func (s *Store) listEntities(ctx context.Context, q querier) ([]generic.EntityID, error) {
	rows, err := q.QueryContext(ctx, "SELECT DISTINCT entity_id FROM documents ORDER BY entity_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var out []generic.EntityID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, generic.EntityID(id))
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONAL REPOSITORY (generic.TxRepository interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(generic.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every call to the open transaction. It must not call
// the parent's exported methods: WithTx already holds the lock.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) Append(ctx context.Context, tx generic.Transaction) error {
	return ts.parent.appendTx(ctx, ts.tx, tx)
}

func (ts *txStore) AppendBatch(ctx context.Context, txs []generic.Transaction) error {
	if err := checkBatchKeys(txs); err != nil {
		return err
	}
	for _, tx := range txs {
		if err := ts.parent.appendTx(ctx, ts.tx, tx); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) Load(ctx context.Context, entityID generic.EntityID) ([]generic.Transaction, error) {
	return ts.parent.load(ctx, ts.tx, entityID)
}

func (ts *txStore) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	return ts.parent.exists(ctx, ts.tx, idempotencyKey)
}

func (ts *txStore) GetDocument(ctx context.Context, entityID generic.EntityID, key string) ([]byte, error) {
	return ts.parent.getDocument(ctx, ts.tx, entityID, key)
}

func (ts *txStore) PutDocument(ctx context.Context, entityID generic.EntityID, key string, value []byte) error {
	return ts.parent.putDocument(ctx, ts.tx, entityID, key, value)
}

func (ts *txStore) DeleteDocument(ctx context.Context, entityID generic.EntityID, key string) error {
	return ts.parent.deleteDocument(ctx, ts.tx, entityID, key)
}

func (ts *txStore) ListEntities(ctx context.Context) ([]generic.EntityID, error) {
	return ts.parent.listEntities(ctx, ts.tx)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

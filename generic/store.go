/*
store.go - Persistence interface for the ledger and state documents

PURPOSE:
  Defines the interface between the economy logic and the database.
  Two kinds of data are persisted:
    - Transactions: the append-only currency ledger (Character counters)
    - Documents:    opaque JSON sections of a user's state (task buckets,
                    recurring templates, guard sets, settings, ...)
  Different implementations can use SQLite, PostgreSQL, or in-memory storage.

KEY INTERFACES:
  Store:         Transaction persistence (append, load, exists)
  DocumentStore: Keyed state sections per entity (get, put, delete)
  Repository:    Both of the above
  TxRepository:  Repository with atomic multi-write transactions

APPEND-ONLY CONTRACT:
  The Store interface enforces append-only semantics for transactions:
  - Append(): Single transaction write
  - AppendBatch(): Atomic multi-transaction write
  - NO Update() or Delete() methods exist
  Documents, by contrast, are overwritten wholesale on every save.

IDEMPOTENCY:
  Every guarded write includes an idempotency key. If the key already
  exists, the write is rejected with ErrDuplicateIdempotencyKey.

ATOMIC WRITES:
  WithTx() ensures all-or-nothing semantics across documents AND ledger.
  Settling a day's lost bets writes the mutated task documents, the
  settlement guard and the loss transaction in one commit; either all of
  them land or none do.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:     SQLite
  - store/postgres/postgres.go: PostgreSQL
  - generic/store/memory.go:    In-memory for testing

SEE ALSO:
  - ledger.go: Higher-level interface using Store
  - mission/state.go: Maps state sections onto documents
*/
package generic

import "context"

// =============================================================================
// STORE - Interface for transaction persistence (append-only)
// =============================================================================

// Store handles persistence of transactions.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
// Corrections are made via reversal transactions.
type Store interface {
	// Append persists a transaction. Returns error if idempotency key exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch persists multiple transactions atomically.
	// Either all succeed or none do.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Load returns all transactions for the entity, ordered by EffectiveAt.
	Load(ctx context.Context, entityID EntityID) ([]Transaction, error)

	// Exists checks if idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// DOCUMENT STORE - Keyed state sections
// =============================================================================

// DocumentStore is the durable key-value side of persistence. Values are
// opaque bytes (JSON in practice); the store never interprets them.
type DocumentStore interface {
	// GetDocument returns ErrDocumentNotFound when the key is absent.
	GetDocument(ctx context.Context, entityID EntityID, key string) ([]byte, error)

	// PutDocument inserts or replaces the value.
	PutDocument(ctx context.Context, entityID EntityID, key string, value []byte) error

	// DeleteDocument is a no-op for missing keys.
	DeleteDocument(ctx context.Context, entityID EntityID, key string) error

	// ListEntities returns every entity that owns at least one document.
	ListEntities(ctx context.Context) ([]EntityID, error)
}

// Repository is everything a mutating economy operation touches.
type Repository interface {
	Store
	DocumentStore
}

// =============================================================================
// TRANSACTIONAL REPOSITORY - For atomic operations across multiple writes
// =============================================================================

// TxRepository wraps Repository with transaction support.
type TxRepository interface {
	Repository

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// Package store provides Repository implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/task-economy/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	transactions map[generic.EntityID][]generic.Transaction
	idempotency  map[string]bool
	documents    map[docKey][]byte
}

type docKey struct {
	EntityID generic.EntityID
	Key      string
}

func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[generic.EntityID][]generic.Transaction),
		idempotency:  make(map[string]bool),
		documents:    make(map[docKey][]byte),
	}
}

// Append adds a single transaction. Append-only.
func (m *Memory) Append(_ context.Context, tx generic.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(tx)
}

// AppendBatch adds multiple transactions atomically.
func (m *Memory) AppendBatch(_ context.Context, txs []generic.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendBatchLocked(txs)
}

func (m *Memory) appendBatchLocked(txs []generic.Transaction) error {
	// Check all idempotency keys first (atomic check)
	seen := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if tx.IdempotencyKey == "" {
			continue
		}
		if m.idempotency[tx.IdempotencyKey] || seen[tx.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		seen[tx.IdempotencyKey] = true
	}

	for _, tx := range txs {
		if err := m.appendLocked(tx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) appendLocked(tx generic.Transaction) error {
	if tx.IdempotencyKey != "" && m.idempotency[tx.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}

	txs := m.transactions[tx.EntityID]

	// Keep EffectiveAt order; equal dates keep insertion order.
	i := sort.Search(len(txs), func(i int) bool {
		return txs[i].EffectiveAt.After(tx.EffectiveAt)
	})

	txs = append(txs, generic.Transaction{})
	copy(txs[i+1:], txs[i:])
	txs[i] = tx
	m.transactions[tx.EntityID] = txs

	if tx.IdempotencyKey != "" {
		m.idempotency[tx.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) Load(_ context.Context, entityID generic.EntityID) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadLocked(entityID), nil
}

func (m *Memory) loadLocked(entityID generic.EntityID) []generic.Transaction {
	result := make([]generic.Transaction, len(m.transactions[entityID]))
	copy(result, m.transactions[entityID])
	return result
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func (m *Memory) GetDocument(_ context.Context, entityID generic.EntityID, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(entityID, key)
}

func (m *Memory) getLocked(entityID generic.EntityID, key string) ([]byte, error) {
	v, ok := m.documents[docKey{EntityID: entityID, Key: key}]
	if !ok {
		return nil, generic.ErrDocumentNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) PutDocument(_ context.Context, entityID generic.EntityID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[docKey{EntityID: entityID, Key: key}] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) DeleteDocument(_ context.Context, entityID generic.EntityID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, docKey{EntityID: entityID, Key: key})
	return nil
}

func (m *Memory) ListEntities(_ context.Context) ([]generic.EntityID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entitiesLocked(), nil
}

// Reset clears all data (for demo scenarios).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = make(map[generic.EntityID][]generic.Transaction)
	m.idempotency = make(map[string]bool)
	m.documents = make(map[docKey][]byte)
	return nil
}

func (m *Memory) entitiesLocked() []generic.EntityID {
	seen := make(map[generic.EntityID]bool)
	for k := range m.documents {
		seen[k.EntityID] = true
	}
	ids := make([]generic.EntityID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(generic.Repository) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	txsCopy := make(map[generic.EntityID][]generic.Transaction, len(tm.transactions))
	for k, v := range tm.transactions {
		txsCopy[k] = append([]generic.Transaction{}, v...)
	}
	idempCopy := make(map[string]bool, len(tm.idempotency))
	for k, v := range tm.idempotency {
		idempCopy[k] = v
	}
	docsCopy := make(map[docKey][]byte, len(tm.documents))
	for k, v := range tm.documents {
		docsCopy[k] = v
	}
	return memorySnapshot{transactions: txsCopy, idempotency: idempCopy, documents: docsCopy}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.transactions = s.transactions
	tm.idempotency = s.idempotency
	tm.documents = s.documents
}

type memorySnapshot struct {
	transactions map[generic.EntityID][]generic.Transaction
	idempotency  map[string]bool
	documents    map[docKey][]byte
}

// txMemoryView runs with the parent's write lock already held.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) Append(_ context.Context, tx generic.Transaction) error {
	return tv.parent.appendLocked(tx)
}

func (tv *txMemoryView) AppendBatch(_ context.Context, txs []generic.Transaction) error {
	return tv.parent.appendBatchLocked(txs)
}

func (tv *txMemoryView) Load(_ context.Context, entityID generic.EntityID) ([]generic.Transaction, error) {
	return tv.parent.loadLocked(entityID), nil
}

func (tv *txMemoryView) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	return tv.parent.idempotency[idempotencyKey], nil
}

func (tv *txMemoryView) GetDocument(_ context.Context, entityID generic.EntityID, key string) ([]byte, error) {
	return tv.parent.getLocked(entityID, key)
}

func (tv *txMemoryView) PutDocument(_ context.Context, entityID generic.EntityID, key string, value []byte) error {
	tv.parent.documents[docKey{EntityID: entityID, Key: key}] = append([]byte(nil), value...)
	return nil
}

func (tv *txMemoryView) DeleteDocument(_ context.Context, entityID generic.EntityID, key string) error {
	delete(tv.parent.documents, docKey{EntityID: entityID, Key: key})
	return nil
}

func (tv *txMemoryView) ListEntities(_ context.Context) ([]generic.EntityID, error) {
	return tv.parent.entitiesLocked(), nil
}

/*
ledger.go - Append-only currency log

PURPOSE:
  The Ledger is the immutable source of truth for the Character counters.
  Every bonus credit, bet payout, purchase and settled loss is recorded
  here. `spent` and `bonuses` are always computed by replaying
  transactions; there is no separate counter field that can drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, transactions cannot be modified
  3. AUDITABLE: Every counter change is traceable with full context
  4. IDEMPOTENT: Same idempotency key = same transaction (no duplicates)

CORRECTIONS:
  If a payout must be undone (a won mission is marked incomplete again),
  the original is not edited. Instead:
  1. Create a Reversal transaction on the same pool with the opposite sign
  2. Both original and reversal remain in the ledger
  3. Net effect is correction, but history is preserved

EXAMPLE FLOW:
  1. Account funded:          bonuses +5
  2. Bet won (stake 10, 2x):  bonuses +30
  3. Mission un-completed:    bonuses -30 (reversal)
  4. Reward purchased:        spent   +3

  Character: bonuses 5, spent 3

SEE ALSO:
  - store.go: Low-level persistence interface
  - balance.go: Character fold
*/
package generic

import "context"

// =============================================================================
// LEDGER - Append-only transaction log
// =============================================================================

// Ledger is the source of truth for all counter changes.
//
// Corrections are made via reversal transactions, not edits.
type Ledger interface {
	// Append adds a transaction. Fails if idempotency key exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch adds multiple transactions atomically.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Transactions returns all transactions for the entity, chronologically.
	Transactions(ctx context.Context, entityID EntityID) ([]Transaction, error)

	// Character folds the entity's transactions into its counters.
	Character(ctx context.Context, entityID EntityID) (Character, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store Store
}

func NewLedger(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Append(ctx context.Context, tx Transaction) error {
	if tx.IdempotencyKey != "" {
		exists, err := l.Store.Exists(ctx, tx.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.Append(ctx, tx)
}

func (l *DefaultLedger) AppendBatch(ctx context.Context, txs []Transaction) error {
	seen := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if tx.IdempotencyKey == "" {
			continue
		}
		if seen[tx.IdempotencyKey] {
			return ErrDuplicateIdempotencyKey
		}
		seen[tx.IdempotencyKey] = true
		exists, err := l.Store.Exists(ctx, tx.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.AppendBatch(ctx, txs)
}

func (l *DefaultLedger) Transactions(ctx context.Context, entityID EntityID) ([]Transaction, error) {
	return l.Store.Load(ctx, entityID)
}

func (l *DefaultLedger) Character(ctx context.Context, entityID EntityID) (Character, error) {
	txs, err := l.Store.Load(ctx, entityID)
	if err != nil {
		return Character{}, err
	}
	return FoldCharacter(txs), nil
}

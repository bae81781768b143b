/*
Package generic provides the domain-agnostic core of the task economy.

PURPOSE:
  This package holds the primitives every economy component shares:
  currency amounts, civil dates, the append-only currency ledger, the
  Character counters folded from it, and the persistence interfaces.
  Nothing in here knows what a mission, a wager or a side quest is.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A currency quantity backed by decimal.Decimal
  - Pool: Which Character counter a transaction moves (bonuses or spent)
  - Transaction: An immutable ledger entry recording a counter change
  - Entity/Transaction IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified, only reversed
  2. Precision: Uses decimal.Decimal to avoid floating-point drift
  3. Type Safety: Strong typing for IDs prevents mixing users and transactions
  4. Auditability: Every transaction has reason, reference, and idempotency key

USAGE:
  tx := generic.Transaction{
      EntityID: "user-123",
      Pool:     generic.PoolBonuses,
      Delta:    generic.NewAmount(1, generic.UnitCredits),
      Type:     generic.TxDailyBonus,
  }

SEE ALSO:
  - balance.go: Character and balance derivation from transactions
  - ledger.go: Transaction persistence interface
  - time.go: Civil dates used as ledger and document keys
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Currency quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitCredits Unit = "credits"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromDecimal(value decimal.Decimal, unit Unit) Amount {
	return Amount{Value: value, Unit: unit}
}

func Credits(value decimal.Decimal) Amount {
	return Amount{Value: value, Unit: UnitCredits}
}

func ZeroCredits() Amount {
	return Amount{Value: decimal.Zero, Unit: UnitCredits}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) String() string               { return a.Value.StringFixed(2) + " " + string(a.Unit) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntityID string
type TransactionID string

// =============================================================================
// TRANSACTION - Atomic change to a Character counter
// =============================================================================

// Pool names the Character counter a transaction moves. Balances are never
// stored; they are folded from the pools (see balance.go).
type Pool string

const (
	PoolBonuses Pool = "bonuses"
	PoolSpent   Pool = "spent"
)

type TransactionType string

const (
	TxFunding         TransactionType = "funding"          // New account starting credit
	TxSideQuest       TransactionType = "side_quest"       // Side quest completion reward
	TxBetPayout       TransactionType = "bet_payout"       // Stake plus winnings on a won wager
	TxDailyBonus      TransactionType = "daily_bonus"      // Daily grind completion bonus
	TxObjectiveReward TransactionType = "objective_reward" // Objective completed
	TxBetLoss         TransactionType = "bet_loss"         // End-of-day settlement of lost wagers
	TxPurchase        TransactionType = "purchase"         // Reward shop purchase
	TxObjectiveChange TransactionType = "objective_change" // Cost of changing an objective
	TxReversal        TransactionType = "reversal"         // Undo a previous transaction
)

type Transaction struct {
	ID             TransactionID
	EntityID       EntityID
	Pool           Pool
	EffectiveAt    Date
	Delta          Amount
	Type           TransactionType
	ReferenceID    string
	Reason         string
	IdempotencyKey string
	Metadata       map[string]string
	CreatedAt      time.Time
}

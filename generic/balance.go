/*
balance.go - Character counters and balance derivation

PURPOSE:
  Computes what a user owns from two sources:
    - Task earnings: derived by the mission package from completed work
    - Character:     `bonuses` and `spent`, folded from the ledger

BALANCE FORMULA:
  TotalEarnings = TaskEarnings + Bonuses
  Current       = TotalEarnings - Spent

  Neither value is ever stored. Both are recomputed on every read so they
  cannot go stale after a mutation.

EXAMPLE:
  Task earnings 12.40, bonuses 6.00 (funding 5 + daily grind 1), spent 3.00

  TotalEarnings = 18.40
  Current       = 15.40

SEE ALSO:
  - ledger.go: Source of Character transactions
  - mission/aggregate.go: Source of TaskEarnings
*/
package generic

import "github.com/shopspring/decimal"

// =============================================================================
// CHARACTER - Cumulative counters
// =============================================================================

// Character holds the cumulative counters. Both only ever grow, except
// through reversal transactions.
type Character struct {
	Bonuses Amount
	Spent   Amount
}

// FoldCharacter replays transactions into counters. Transactions with an
// unknown pool are ignored rather than failing the fold.
func FoldCharacter(txs []Transaction) Character {
	c := Character{Bonuses: ZeroCredits(), Spent: ZeroCredits()}
	for _, tx := range txs {
		switch tx.Pool {
		case PoolBonuses:
			c.Bonuses = c.Bonuses.Add(tx.Delta)
		case PoolSpent:
			c.Spent = c.Spent.Add(tx.Delta)
		}
	}
	return c
}

// IsPristine reports whether nothing has ever moved either counter.
func (c Character) IsPristine() bool {
	return c.Bonuses.IsZero() && c.Spent.IsZero()
}

// =============================================================================
// BALANCE - Derived view
// =============================================================================

type Balance struct {
	TaskEarnings  Amount
	Bonuses       Amount
	Spent         Amount
	TotalEarnings Amount
	Current       Amount
}

// NewBalance derives the balance from task earnings and the counters.
func NewBalance(taskEarnings decimal.Decimal, c Character) Balance {
	earned := Credits(taskEarnings)
	total := earned.Add(c.Bonuses)
	return Balance{
		TaskEarnings:  earned,
		Bonuses:       c.Bonuses,
		Spent:         c.Spent,
		TotalEarnings: total,
		Current:       total.Sub(c.Spent),
	}
}

// CanAfford reports whether Current covers the amount.
func (b Balance) CanAfford(amount Amount) bool {
	return !amount.GreaterThan(b.Current)
}

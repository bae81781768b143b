/*
Package rewards implements the reward shop: the user-defined catalog of
things currency can buy, and the purchase records that spend it.

PURPOSE:
  Missions and bonuses earn currency; the shop is where it leaves. A
  purchase never touches task earnings. It appends a `spent` transaction
  to the ledger and records what was bought.

KEY RULES:
  1. Costs are positive decimals
  2. A purchase is allowed only if current balance >= cost
  3. The purchase record copies name and cost, so later catalog edits or
     deletions never rewrite history

EXAMPLE FLOW:
  1. User adds "Movie night" costing 3.00
  2. Balance is 4.20 → purchase allowed
  3. Ledger: spent +3.00 (TxPurchase, reference = purchase ID)
  4. Balance: 1.20; second purchase rejected with InsufficientBalanceError

SEE ALSO:
  - shop.go: Catalog operations and purchase validation
  - mission/service.go: Runs purchases inside a repository transaction
*/
package rewards

import (
	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/generic"
)

// Reward is a catalog entry.
type Reward struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Cost decimal.Decimal `json:"cost"`
}

// Purchase is an immutable record of a bought reward.
type Purchase struct {
	ID           string          `json:"id"`
	RewardID     string          `json:"rewardId"`
	Name         string          `json:"name"`
	Cost         decimal.Decimal `json:"cost"`
	PurchaseDate generic.Date    `json:"purchaseDate"`
}

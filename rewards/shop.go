package rewards

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/generic"
)

var (
	ErrNotFound    = errors.New("reward not found")
	ErrInvalidName = errors.New("reward name is required")
)

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is an ordered list of rewards.
type Catalog []Reward

// NewReward validates and creates a catalog entry.
func NewReward(name string, cost decimal.Decimal) (Reward, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Reward{}, ErrInvalidName
	}
	if !cost.IsPositive() {
		return Reward{}, fmt.Errorf("reward cost %s: %w", cost.String(), generic.ErrInvalidAmount)
	}
	return Reward{ID: uuid.NewString(), Name: name, Cost: cost}, nil
}

func (c Catalog) Find(id string) (Reward, bool) {
	for _, r := range c {
		if r.ID == id {
			return r, true
		}
	}
	return Reward{}, false
}

// Without returns the catalog minus id, and whether id was present.
func (c Catalog) Without(id string) (Catalog, bool) {
	out := make(Catalog, 0, len(c))
	found := false
	for _, r := range c {
		if r.ID == id {
			found = true
			continue
		}
		out = append(out, r)
	}
	return out, found
}

// =============================================================================
// PURCHASE
// =============================================================================

// Buy validates the purchase against the balance and returns the record
// plus the ledger transaction that pays for it. Nothing is persisted here.
func Buy(entityID generic.EntityID, reward Reward, balance generic.Balance, on generic.Date) (Purchase, generic.Transaction, error) {
	cost := generic.Credits(reward.Cost)
	if err := generic.RequireFunds(entityID, balance.Current, cost); err != nil {
		return Purchase{}, generic.Transaction{}, fmt.Errorf("purchase %q: %w", reward.Name, err)
	}

	p := Purchase{
		ID:           uuid.NewString(),
		RewardID:     reward.ID,
		Name:         reward.Name,
		Cost:         reward.Cost,
		PurchaseDate: on,
	}
	tx := generic.Transaction{
		ID:          generic.TransactionID(uuid.NewString()),
		EntityID:    entityID,
		Pool:        generic.PoolSpent,
		EffectiveAt: on,
		Delta:       cost,
		Type:        generic.TxPurchase,
		ReferenceID: p.ID,
		Reason:      "purchased " + reward.Name,
		CreatedAt:   time.Now().UTC(),
	}
	return p, tx, nil
}

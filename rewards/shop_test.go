package rewards_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/task-economy/generic"
	"github.com/warp/task-economy/rewards"
)

func balanceOf(v string) generic.Balance {
	return generic.NewBalance(decimal.RequireFromString(v), generic.Character{
		Bonuses: generic.ZeroCredits(),
		Spent:   generic.ZeroCredits(),
	})
}

func TestNewReward_Validation(t *testing.T) {
	_, err := rewards.NewReward("  ", decimal.NewFromInt(3))
	assert.ErrorIs(t, err, rewards.ErrInvalidName)

	_, err = rewards.NewReward("Movie night", decimal.Zero)
	assert.ErrorIs(t, err, generic.ErrInvalidAmount)

	r, err := rewards.NewReward(" Movie night ", decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.Equal(t, "Movie night", r.Name)
	assert.NotEmpty(t, r.ID)
}

func TestBuy_AllowedWhenBalanceCoversCost(t *testing.T) {
	// GIVEN: Balance 4.20 and a reward costing 3
	r, err := rewards.NewReward("Movie night", decimal.NewFromInt(3))
	require.NoError(t, err)
	on := generic.NewDate(2024, time.January, 5)

	// WHEN: Buying it
	p, tx, err := rewards.Buy("user-1", r, balanceOf("4.20"), on)

	// THEN: The purchase copies the catalog entry and charges `spent`
	require.NoError(t, err)
	assert.Equal(t, r.ID, p.RewardID)
	assert.Equal(t, "Movie night", p.Name)
	assert.Equal(t, on, p.PurchaseDate)
	assert.Equal(t, generic.PoolSpent, tx.Pool)
	assert.Equal(t, generic.TxPurchase, tx.Type)
	assert.Equal(t, p.ID, tx.ReferenceID)
	assert.True(t, tx.Delta.Value.Equal(decimal.NewFromInt(3)))
}

func TestBuy_ExactBalanceIsEnough(t *testing.T) {
	r, err := rewards.NewReward("Coffee", decimal.RequireFromString("2.50"))
	require.NoError(t, err)

	_, _, err = rewards.Buy("user-1", r, balanceOf("2.50"), generic.NewDate(2024, time.January, 5))
	assert.NoError(t, err)
}

func TestBuy_RejectedWhenShort(t *testing.T) {
	r, err := rewards.NewReward("Concert", decimal.NewFromInt(50))
	require.NoError(t, err)

	_, _, err = rewards.Buy("user-1", r, balanceOf("10"), generic.NewDate(2024, time.January, 5))

	var ibe *generic.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.Equal(t, "40.00", ibe.Shortfall().Value.StringFixed(2))
}

func TestCatalog_FindAndWithout(t *testing.T) {
	a, _ := rewards.NewReward("A", decimal.NewFromInt(1))
	b, _ := rewards.NewReward("B", decimal.NewFromInt(2))
	c := rewards.Catalog{a, b}

	found, ok := c.Find(b.ID)
	assert.True(t, ok)
	assert.Equal(t, "B", found.Name)

	rest, removed := c.Without(a.ID)
	assert.True(t, removed)
	assert.Len(t, rest, 1)

	_, removed = rest.Without("missing")
	assert.False(t, removed)
}

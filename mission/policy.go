package mission

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ECONOMY POLICY
// =============================================================================

// Policy holds every tunable number of the economy. DefaultPolicy returns
// the production values; factory.ParsePolicy builds one from a file.
type Policy struct {
	BaseRewards   map[Difficulty]decimal.Decimal
	PerMinuteRate decimal.Decimal
	StreakStep    decimal.Decimal

	// Alignment is rated 1..AlignmentScale; a missing rating counts as
	// NeutralAlignment.
	NeutralAlignment int
	AlignmentScale   int

	// StreakLookbackDays caps the backward streak scan.
	StreakLookbackDays int

	DailyGrindBonus           decimal.Decimal
	ObjectiveCompletionReward decimal.Decimal
	ObjectiveChangeCost       decimal.Decimal
	FundingBonus              decimal.Decimal
	DefaultDailyGoal          decimal.Decimal

	Odds OddsBounds
}

// OddsBounds constrains betting multipliers.
type OddsBounds struct {
	Min      decimal.Decimal
	Max      decimal.Decimal
	Fallback decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		BaseRewards: map[Difficulty]decimal.Decimal{
			Easy:   decimal.RequireFromString("0.05"),
			Medium: decimal.RequireFromString("0.15"),
			Hard:   decimal.RequireFromString("0.25"),
			Savage: decimal.RequireFromString("0.50"),
		},
		PerMinuteRate:             decimal.RequireFromString("0.002"),
		StreakStep:                decimal.RequireFromString("0.005"),
		NeutralAlignment:          3,
		AlignmentScale:            5,
		StreakLookbackDays:        3650,
		DailyGrindBonus:           decimal.NewFromInt(1),
		ObjectiveCompletionReward: decimal.NewFromInt(25),
		ObjectiveChangeCost:       decimal.NewFromInt(10),
		FundingBonus:              decimal.NewFromInt(5),
		DefaultDailyGoal:          decimal.NewFromInt(1),
		Odds: OddsBounds{
			Min:      decimal.RequireFromString("1.5"),
			Max:      decimal.NewFromInt(5),
			Fallback: decimal.NewFromInt(2),
		},
	}
}

// Clamp forces a quoted multiplier into bounds. Non-positive quotes are
// treated as "no quote" and yield the fallback.
func (o OddsBounds) Clamp(m decimal.Decimal) decimal.Decimal {
	if !m.IsPositive() {
		return o.Fallback
	}
	if m.LessThan(o.Min) {
		return o.Min
	}
	if m.GreaterThan(o.Max) {
		return o.Max
	}
	return m
}

// StreakMultiplier is 1 + streak * StreakStep.
func (p Policy) StreakMultiplier(streak int) decimal.Decimal {
	return decimal.NewFromInt(1).Add(p.StreakStep.Mul(decimal.NewFromInt(int64(streak))))
}

// Base returns the difficulty reward; unknown difficulties earn nothing.
func (p Policy) Base(d Difficulty) decimal.Decimal {
	if v, ok := p.BaseRewards[d]; ok {
		return v
	}
	return decimal.Zero
}

package mission

import "github.com/shopspring/decimal"

// =============================================================================
// REWARD CALCULATOR
// =============================================================================

// Reward computes
//
//	(base[difficulty] + actualTime * perMinuteRate) * streakMultiplier * alignment / scale
//
// It does not filter: an incomplete instance simply contributes no time.
// A missing difficulty degrades to a zero base instead of failing.
func (p Policy) Reward(inst Instance, streakMultiplier decimal.Decimal) decimal.Decimal {
	minutes := 0
	if inst.Completed && inst.ActualTime != nil && *inst.ActualTime > 0 {
		minutes = *inst.ActualTime
	}

	raw := p.Base(inst.Difficulty).Add(p.PerMinuteRate.Mul(decimal.NewFromInt(int64(minutes))))

	return raw.
		Mul(streakMultiplier).
		Mul(decimal.NewFromInt(int64(p.alignment(inst.GoalAlignment)))).
		Div(decimal.NewFromInt(int64(p.scale())))
}

func (p Policy) alignment(rating *int) int {
	if rating == nil || *rating <= 0 {
		return p.NeutralAlignment
	}
	if *rating > p.scale() {
		return p.scale()
	}
	return *rating
}

func (p Policy) scale() int {
	if p.AlignmentScale <= 0 {
		return 5
	}
	return p.AlignmentScale
}

// ClampActualTime keeps the permissive behaviour for bad time entries:
// anything below one minute is recorded as one minute.
func ClampActualTime(minutes int) int {
	if minutes < 1 {
		return 1
	}
	return minutes
}

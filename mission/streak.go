package mission

import (
	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/generic"
)

// =============================================================================
// STREAK TRACKER
// =============================================================================

// ComputeStreak counts consecutive days whose earnings met dailyGoal,
// ending today or, when today hasn't qualified yet, yesterday.
//
// earnings must be computed with a streak multiplier of 1; feeding
// multiplied earnings back in would make the streak depend on itself.
func ComputeStreak(earnings map[generic.Date]decimal.Decimal, dailyGoal decimal.Decimal, today generic.Date, maxDays int) int {
	if !dailyGoal.IsPositive() {
		return 0
	}

	qualifying := make(map[generic.Date]bool)
	for d, e := range earnings {
		if e.GreaterThanOrEqual(dailyGoal) {
			qualifying[d] = true
		}
	}
	if len(qualifying) == 0 {
		return 0
	}

	cursor := today
	if !qualifying[cursor] {
		cursor = cursor.AddDays(-1)
	}

	streak := 0
	for i := 0; i < maxDays; i++ {
		if !qualifying[cursor] {
			break
		}
		streak++
		cursor = cursor.AddDays(-1)
	}
	return streak
}

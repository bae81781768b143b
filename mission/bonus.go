package mission

import "github.com/warp/task-economy/generic"

// =============================================================================
// DAILY COMPLETION BONUS MONITOR
// =============================================================================

// DailyGrindSatisfied reports whether d is a fully conquered day:
//   - at least one non side-quest mission exists on d and all are completed
//   - at least one side quest exists and every one met its quota on d
func DailyGrindSatisfied(s *State, d generic.Date) bool {
	missions := 0
	for _, inst := range s.InstancesForDate(d) {
		if inst.Category == SideQuestCategory {
			continue
		}
		if !inst.Completed {
			return false
		}
		missions++
	}
	if missions == 0 || len(s.SideQuests) == 0 {
		return false
	}
	for _, q := range s.SideQuests {
		if !q.QuotaMet(d) {
			return false
		}
	}
	return true
}

// AwardDailyGrind marks d in the guard set when the day is satisfied and
// not yet awarded. The caller credits the returned amount in the same
// write that persists the guard.
func (p Policy) AwardDailyGrind(s *State, d generic.Date) (Notification, bool) {
	if s.AwardedDailyGrind[d] || !DailyGrindSatisfied(s, d) {
		return Notification{}, false
	}
	if s.AwardedDailyGrind == nil {
		s.AwardedDailyGrind = make(map[generic.Date]bool)
	}
	s.AwardedDailyGrind[d] = true
	s.touch(SectionAwardedDailyGrind)
	return Notification{Title: TitleDailyGrind, Amount: p.DailyGrindBonus}, true
}

// Idempotency keys are unique across all users, so each one carries the
// entity id.

// DailyGrindKey is the ledger idempotency key of d's award.
func DailyGrindKey(entityID generic.EntityID, d generic.Date) string {
	return "daily-grind:" + string(entityID) + ":" + d.String()
}

// BetSettlementKey is the ledger idempotency key of d's settlement charge.
func BetSettlementKey(entityID generic.EntityID, d generic.Date) string {
	return "bet-settlement:" + string(entityID) + ":" + d.String()
}

// FundingKey is the ledger idempotency key of the account funding bonus.
func FundingKey(entityID generic.EntityID) string {
	return "funding:" + string(entityID)
}

package mission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/task-economy/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(s string) generic.Date { return generic.MustParseDate(s) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(v int) *int { return &v }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func doneTask(id, category string, d generic.Date, diff Difficulty, minutes int) Task {
	return Task{
		ID:         id,
		Category:   category,
		Difficulty: diff,
		Date:       d,
		Completed:  true,
		ActualTime: intPtr(minutes),
	}
}

// =============================================================================
// RECURRENCE
// =============================================================================

func TestIsActive_WeeklyFollowsStartWeekday(t *testing.T) {
	// GIVEN: A weekly template starting Monday 2024-01-01
	rt := RecurringTask{ID: "gym", Rule: Weekly, StartDate: day("2024-01-01")}

	// THEN: Only Mondays on or after the start are active
	assert.True(t, IsActive(rt, day("2024-01-01")))
	assert.True(t, IsActive(rt, day("2024-01-08")))
	assert.False(t, IsActive(rt, day("2024-01-09")))
	assert.False(t, IsActive(rt, day("2023-12-25")), "before start is never active")
}

func TestIsActive_Rules(t *testing.T) {
	start := day("2024-01-01") // Monday
	saturday := day("2024-01-06")
	wednesday := day("2024-01-03")

	tests := []struct {
		rule RecurrenceRule
		on   generic.Date
		want bool
	}{
		{Daily, saturday, true},
		{Daily, wednesday, true},
		{Weekdays, wednesday, true},
		{Weekdays, saturday, false},
		{Weekends, saturday, true},
		{Weekends, wednesday, false},
		{RecurrenceRule("Fortnightly"), wednesday, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.rule)+"/"+tt.on.String(), func(t *testing.T) {
			rt := RecurringTask{Rule: tt.rule, StartDate: start}
			assert.Equal(t, tt.want, IsActive(rt, tt.on))
		})
	}
}

func TestInstanceID_RoundTrip(t *testing.T) {
	id := InstanceID("b7e1_c0de", day("2024-03-05"))
	assert.Equal(t, "b7e1_c0de_2024-03-05", id)

	tmpl, d, ok := SplitInstanceID(id)
	require.True(t, ok)
	assert.Equal(t, "b7e1_c0de", tmpl)
	assert.Equal(t, day("2024-03-05"), d)

	_, _, ok = SplitInstanceID("plain-task-id")
	assert.False(t, ok)
}

func TestMaterialize_AppliesCompletionEntry(t *testing.T) {
	// GIVEN: A daily template with a completion and a time override on Jan 2
	won := true
	rt := RecurringTask{
		ID:          "read",
		Difficulty:  Easy,
		Rule:        Daily,
		Time:        "07:00",
		StartDate:   day("2024-01-01"),
		Completions: map[generic.Date]Completion{
			day("2024-01-02"): {
				Completed:  true,
				ActualTime: intPtr(20),
				Time:       "09:30",
				Wager:      Wager{BetPlaced: true, BetAmount: dec("1"), BetMultiplier: dec("2"), BetWon: &won},
			},
		},
	}

	// WHEN: Projecting onto the completed day and a blank day
	done := Materialize(rt, day("2024-01-02"))
	blank := Materialize(rt, day("2024-01-03"))

	// THEN: Only the completed day carries completion data
	assert.Equal(t, "read_2024-01-02", done.ID)
	assert.True(t, done.Completed)
	assert.Equal(t, 20, *done.ActualTime)
	assert.Equal(t, "09:30", done.Time)
	assert.Equal(t, Won, done.Status())

	assert.False(t, blank.Completed)
	assert.Nil(t, blank.ActualTime)
	assert.Equal(t, "07:00", blank.Time)
	assert.Equal(t, NoBet, blank.Status())
}

func TestInstancesForDate_SingletonsThenRecurring(t *testing.T) {
	s := NewState("user-1", DefaultPolicy())
	d := day("2024-01-06") // Saturday
	s.Tasks[d] = []Task{{ID: "t1", Date: d}}
	s.Recurring = []RecurringTask{
		{ID: "weekend", Rule: Weekends, StartDate: day("2024-01-01")},
		{ID: "weekday", Rule: Weekdays, StartDate: day("2024-01-01")},
	}

	got := s.InstancesForDate(d)

	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "weekend_2024-01-06", got[1].ID)
	assert.True(t, got[1].IsRecurring())
}

// =============================================================================
// REWARD
// =============================================================================

func TestReward_Formula(t *testing.T) {
	// GIVEN: Hard=10, 0.05/min, full alignment, 30 minutes
	p := DefaultPolicy()
	p.BaseRewards[Hard] = dec("10")
	p.PerMinuteRate = dec("0.05")
	inst := Instance{Difficulty: Hard, Completed: true, ActualTime: intPtr(30), GoalAlignment: intPtr(5)}

	// THEN: (10 + 1.5) * 1 * 5/5
	assertDec(t, "11.5", p.Reward(inst, dec("1")))
}

func TestReward_NeutralAlignmentWhenMissing(t *testing.T) {
	p := DefaultPolicy()
	inst := Instance{Difficulty: Medium, Completed: true, ActualTime: intPtr(60)}

	// (0.15 + 0.12) * 3/5
	assertDec(t, "0.162", p.Reward(inst, dec("1")))
}

func TestReward_UnknownDifficultyEarnsOnlyTime(t *testing.T) {
	p := DefaultPolicy()
	inst := Instance{Difficulty: "Legendary", Completed: true, ActualTime: intPtr(10), GoalAlignment: intPtr(5)}

	assertDec(t, "0.02", p.Reward(inst, dec("1")))
}

func TestReward_NonDecreasingInTimeAndAlignment(t *testing.T) {
	p := DefaultPolicy()
	streak := dec("1.2")
	reward := func(actual, alignment *int) decimal.Decimal {
		return p.Reward(Instance{Difficulty: Medium, Completed: true, ActualTime: actual, GoalAlignment: alignment}, streak)
	}

	t.Run("actual time", func(t *testing.T) {
		// GIVEN: Alignment fixed at 4
		sweep := []*int{nil, intPtr(-5), intPtr(0), intPtr(1), intPtr(30), intPtr(120)}

		// THEN: More minutes never earn less
		prev := reward(sweep[0], intPtr(4))
		for _, minutes := range sweep[1:] {
			got := reward(minutes, intPtr(4))
			assert.True(t, got.GreaterThanOrEqual(prev), "%d minutes: %s < %s", *minutes, got, prev)
			prev = got
		}

		// AND: Zero and negative entries count as no time
		assertDec(t, reward(nil, intPtr(4)).String(), reward(intPtr(-5), intPtr(4)))
		assertDec(t, reward(nil, intPtr(4)).String(), reward(intPtr(0), intPtr(4)))
	})

	t.Run("alignment", func(t *testing.T) {
		// GIVEN: 30 minutes, ratings 1..5 then out of range
		sweep := []*int{intPtr(1), intPtr(2), intPtr(3), intPtr(4), intPtr(5), intPtr(9), intPtr(100)}

		// THEN: A higher rating never earns less
		prev := reward(intPtr(30), sweep[0])
		for _, rating := range sweep[1:] {
			got := reward(intPtr(30), rating)
			assert.True(t, got.GreaterThanOrEqual(prev), "alignment %d: %s < %s", *rating, got, prev)
			prev = got
		}

		// AND: Out of range ratings clamp to the scale, missing ones are neutral
		assertDec(t, reward(intPtr(30), intPtr(5)).String(), reward(intPtr(30), intPtr(9)))
		assertDec(t, reward(intPtr(30), intPtr(3)).String(), reward(intPtr(30), nil))
		assertDec(t, reward(intPtr(30), intPtr(3)).String(), reward(intPtr(30), intPtr(0)))
	})
}

func TestClampActualTime(t *testing.T) {
	assert.Equal(t, 1, ClampActualTime(0))
	assert.Equal(t, 1, ClampActualTime(-15))
	assert.Equal(t, 45, ClampActualTime(45))
}

// =============================================================================
// STREAK
// =============================================================================

func TestComputeStreak(t *testing.T) {
	today := day("2024-01-10")
	goal := dec("1")

	tests := []struct {
		name     string
		earnings map[generic.Date]decimal.Decimal
		goal     decimal.Decimal
		want     int
	}{
		{
			name:     "today not yet qualified counts from yesterday",
			earnings: map[generic.Date]decimal.Decimal{day("2024-01-08"): dec("1"), day("2024-01-09"): dec("2")},
			goal:     goal,
			want:     2,
		},
		{
			name: "today qualified",
			earnings: map[generic.Date]decimal.Decimal{
				day("2024-01-08"): dec("1"), day("2024-01-09"): dec("1"), day("2024-01-10"): dec("1.5"),
			},
			goal: goal,
			want: 3,
		},
		{
			name:     "gap breaks the streak",
			earnings: map[generic.Date]decimal.Decimal{day("2024-01-07"): dec("5"), day("2024-01-09"): dec("1")},
			goal:     goal,
			want:     1,
		},
		{
			name:     "below goal",
			earnings: map[generic.Date]decimal.Decimal{day("2024-01-09"): dec("0.99")},
			goal:     goal,
			want:     0,
		},
		{
			name:     "zero goal disables streaks",
			earnings: map[generic.Date]decimal.Decimal{day("2024-01-09"): dec("3")},
			goal:     decimal.Zero,
			want:     0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStreak(tt.earnings, tt.goal, today, 3650))
		})
	}
}

func TestComputeStreak_LookbackCap(t *testing.T) {
	earnings := map[generic.Date]decimal.Decimal{}
	today := day("2024-01-10")
	for i := 0; i < 10; i++ {
		earnings[today.AddDays(-i)] = dec("1")
	}
	assert.Equal(t, 4, ComputeStreak(earnings, dec("1"), today, 4))
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestAggregate_TwoPass(t *testing.T) {
	// GIVEN: Goal 0.2 and one aligned Hard task (25 min) on Jan 9 and Jan 10
	p := DefaultPolicy()
	s := NewState("user-1", p)
	s.Settings.DailyGoal = dec("0.2")
	s.Objectives = []Objective{
		{ID: "o1", Description: "Run a marathon", Label: "Fitness"},
		{ID: "o2", Description: "Done already", Completed: true},
	}
	for _, d := range []generic.Date{day("2024-01-09"), day("2024-01-10")} {
		task := doneTask("t-"+d.String(), "Fitness", d, Hard, 25)
		task.GoalAlignment = intPtr(5)
		task.AlignedGoalID = "o1"
		s.Tasks[d] = []Task{task}
	}
	stale := doneTask("t-stale", "Admin", day("2024-01-09"), Easy, 0)
	stale.AlignedGoalID = "o2"
	s.Tasks[day("2024-01-09")] = append(s.Tasks[day("2024-01-09")], stale)

	// WHEN: Aggregating on Jan 10
	scores := p.Aggregate(s, day("2024-01-10"))

	// THEN: Pass 1 (0.30 per day) gives a 2-day streak
	assert.Equal(t, 2, scores.Streak)
	assertDec(t, "1.01", scores.StreakMultiplier)

	// AND: Pass 2 applies the multiplier to every reward
	require.Len(t, scores.Daily, 2)
	assertDec(t, "0.303", scores.Daily[1].Earnings)
	assert.Equal(t, day("2024-01-10"), scores.Daily[1].Date)

	// AND: Completed objectives are left out of objective scores
	require.Len(t, scores.Objectives, 1)
	assert.Equal(t, "o1", scores.Objectives[0].ObjectiveID)
	assertDec(t, "0.606", scores.Objectives[0].Earnings)
	assert.Equal(t, 2, scores.Objectives[0].TasksCompleted)

	require.Len(t, scores.Categories, 2)
	assert.Equal(t, "Admin", scores.Categories[0].Category)
}

func TestAggregate_RecurringCompletionsWithoutRangeScan(t *testing.T) {
	// GIVEN: A daily template started years ago with one completion
	p := DefaultPolicy()
	s := NewState("user-1", p)
	s.Recurring = []RecurringTask{{
		ID:         "stretch",
		Category:   "Health",
		Difficulty: Easy,
		Rule:       Daily,
		StartDate:  day("2015-01-01"),
		Completions: map[generic.Date]Completion{
			day("2024-01-05"): {Completed: true, ActualTime: intPtr(10)},
			day("2024-01-06"): {Time: "08:00"},
		},
	}}

	scores := p.Aggregate(s, day("2024-01-10"))

	require.Len(t, scores.Daily, 1)
	assert.Equal(t, day("2024-01-05"), scores.Daily[0].Date)
	// (0.05 + 0.02) * 3/5
	assertDec(t, "0.042", scores.TaskEarnings)
}

// =============================================================================
// WAGERS
// =============================================================================

func TestPlaceBet_Validation(t *testing.T) {
	p := DefaultPolicy()
	balance := generic.NewBalance(dec("10"), generic.Character{Bonuses: generic.ZeroCredits(), Spent: generic.ZeroCredits()})

	_, err := p.PlaceBet(BetSlip{Stake: decimal.Zero, Multiplier: dec("2")}, balance)
	assert.ErrorIs(t, err, generic.ErrInvalidAmount)

	_, err = p.PlaceBet(BetSlip{Stake: dec("10.01"), Multiplier: dec("2")}, balance)
	assert.ErrorIs(t, err, generic.ErrInsufficientBalance)

	w, err := p.PlaceBet(BetSlip{Stake: dec("10"), Multiplier: dec("9")}, balance)
	require.NoError(t, err)
	assert.Equal(t, Placed, w.Status())
	assertDec(t, "5", w.BetMultiplier, "multiplier clamped to max")

	w, err = p.PlaceBet(BetSlip{Stake: dec("1")}, balance)
	require.NoError(t, err)
	assertDec(t, "2", w.BetMultiplier, "missing quote uses fallback")
}

func TestWager_WinAndReopen(t *testing.T) {
	w := Wager{BetPlaced: true, BetAmount: dec("10"), BetMultiplier: dec("2")}

	payout, ok := w.win()
	require.True(t, ok)
	assertDec(t, "30", payout)
	assert.Equal(t, Won, w.Status())

	_, ok = w.win()
	assert.False(t, ok, "second win pays nothing")

	reversed, ok := w.reopen()
	require.True(t, ok)
	assertDec(t, "30", reversed)
	assert.Equal(t, Placed, w.Status())
}

func TestSettleLostBets(t *testing.T) {
	// GIVEN: Unresolved bets yesterday (single + recurring) and today
	today := day("2024-01-10")
	yesterday := today.AddDays(-1)
	placed := Wager{BetPlaced: true, BetAmount: dec("10"), BetMultiplier: dec("2")}

	s := NewState("user-1", DefaultPolicy())
	s.Tasks[yesterday] = []Task{{ID: "old", Date: yesterday, Wager: placed}}
	s.Tasks[today] = []Task{{ID: "now", Date: today, Wager: placed}}
	s.Recurring = []RecurringTask{{
		ID:        "r",
		Rule:      Daily,
		StartDate: day("2024-01-01"),
		Completions: map[generic.Date]Completion{
			yesterday: {Wager: Wager{BetPlaced: true, BetAmount: dec("2.5"), BetMultiplier: dec("2")}},
		},
	}}

	// WHEN: Sweeping
	res := SettleLostBets(s, today)

	// THEN: Past bets are lost, today's bet is untouched
	assert.True(t, res.Ran)
	assertDec(t, "12.5", res.TotalLost)
	assert.Equal(t, []string{"old", "r_2024-01-09"}, res.Lost)
	assert.Equal(t, Lost, s.Tasks[yesterday][0].Status())
	assert.Equal(t, Placed, s.Tasks[today][0].Status())
	assert.Equal(t, Lost, s.Recurring[0].Completions[yesterday].Status())
	assert.Equal(t, today, s.LastBetSettlement)

	// AND: A second sweep the same day does nothing
	again := SettleLostBets(s, today)
	assert.False(t, again.Ran)
	assert.True(t, again.TotalLost.IsZero())
}

func TestSettleLostBets_CompletedAndWonAreSkipped(t *testing.T) {
	today := day("2024-01-10")
	yesterday := today.AddDays(-1)
	won := true

	s := NewState("user-1", DefaultPolicy())
	s.Tasks[yesterday] = []Task{
		{ID: "won", Completed: true, Wager: Wager{BetPlaced: true, BetAmount: dec("3"), BetWon: &won}},
		{ID: "nobet"},
	}

	res := SettleLostBets(s, today)

	assert.True(t, res.Ran)
	assert.True(t, res.TotalLost.IsZero())
	assert.Empty(t, res.Lost)
	assert.Equal(t, today, s.LastBetSettlement, "guard advances even with nothing to settle")
}

// =============================================================================
// DAILY GRIND
// =============================================================================

func TestDailyGrindSatisfied(t *testing.T) {
	d := day("2024-01-10")
	p := DefaultPolicy()

	s := NewState("user-1", p)
	s.Tasks[d] = []Task{doneTask("t1", "Work", d, Easy, 5)}
	assert.False(t, DailyGrindSatisfied(s, d), "no side quests")

	s.SideQuests = []SideQuest{{ID: "q", DailyGoal: 2, Completions: map[generic.Date]int{d: 1}}}
	assert.False(t, DailyGrindSatisfied(s, d), "quota not met")

	s.SideQuests[0].Completions[d] = 2
	assert.True(t, DailyGrindSatisfied(s, d))

	s.Tasks[d] = append(s.Tasks[d], Task{ID: "t2", Category: "Work"})
	assert.False(t, DailyGrindSatisfied(s, d), "open mission")

	s.Tasks[d][1].Category = SideQuestCategory
	assert.True(t, DailyGrindSatisfied(s, d), "side quest category is ignored")
}

func TestAwardDailyGrind_OncePerDate(t *testing.T) {
	d := day("2024-01-10")
	p := DefaultPolicy()
	s := NewState("user-1", p)
	s.Tasks[d] = []Task{doneTask("t1", "Work", d, Easy, 5)}
	s.SideQuests = []SideQuest{{ID: "q", Completions: map[generic.Date]int{d: 1}}}

	n, ok := p.AwardDailyGrind(s, d)
	require.True(t, ok)
	assert.Equal(t, TitleDailyGrind, n.Title)
	assertDec(t, "1", n.Amount)
	assert.Contains(t, s.Touched(), SectionAwardedDailyGrind)

	_, ok = p.AwardDailyGrind(s, d)
	assert.False(t, ok)
}

func TestSideQuest_Quota(t *testing.T) {
	d := day("2024-01-10")
	unlimited := SideQuest{Completions: map[generic.Date]int{d: 1}}
	assert.Equal(t, 1, unlimited.Quota())
	assert.True(t, unlimited.QuotaMet(d))

	three := SideQuest{DailyGoal: 3, Completions: map[generic.Date]int{d: 2}}
	assert.False(t, three.QuotaMet(d))
	assert.False(t, three.QuotaMet(d.AddDays(1)))
}

func TestOddsBounds_Clamp(t *testing.T) {
	o := DefaultPolicy().Odds
	assertDec(t, "1.5", o.Clamp(dec("1.1")))
	assertDec(t, "5", o.Clamp(dec("12")))
	assertDec(t, "3.2", o.Clamp(dec("3.2")))
	assertDec(t, "2", o.Clamp(dec("-1")))
}

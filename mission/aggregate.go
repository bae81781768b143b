/*
aggregate.go - Aggregation Engine

PURPOSE:
  Folds every completed instance (singletons and recurring completions)
  into per-day, per-category and per-objective totals, and derives the
  streak that modulates them.

TWO-PASS PIPELINE:
  Pass 1: reward every completed instance with multiplier 1 and sum per
          day. These unmultiplied totals decide which days met the goal.
  Streak: ComputeStreak over the pass 1 totals.
  Pass 2: reward every completed instance again with
          1 + streak * StreakStep and fold into the three score lists.

  The display scores and the streak therefore never feed each other.

SOURCES:
  Only stored facts are visited: each date bucket of singletons and each
  recurring template's completion map. There is no date range scan, so a
  template that has been running for years costs only its completions.

PURITY:
  Aggregate reads State and returns fresh values. It is recomputed on
  every read and never cached across mutations.

SEE ALSO:
  - reward.go: Per-instance reward
  - streak.go: Streak discovery
  - recurrence.go: CompletedInstances
*/
package mission

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/generic"
)

// Scores is everything the dashboard displays.
type Scores struct {
	Streak           int              `json:"streak"`
	StreakMultiplier decimal.Decimal  `json:"streakMultiplier"`
	TaskEarnings     decimal.Decimal  `json:"taskEarnings"`
	Daily            []DailyScore     `json:"dailyScores"`
	Categories       []CategoryScore  `json:"categoryScores"`
	Objectives       []ObjectiveScore `json:"objectiveScores"`
}

// Aggregate runs the two-pass pipeline over s as of today.
func (p Policy) Aggregate(s *State, today generic.Date) Scores {
	completed := s.CompletedInstances()

	// Pass 1
	base := p.EarningsByDate(completed, decimal.NewFromInt(1))
	streak := ComputeStreak(base, s.Settings.DailyGoal, today, p.StreakLookbackDays)
	multiplier := p.StreakMultiplier(streak)

	// Pass 2
	daily := make(map[generic.Date]*DailyScore)
	categories := make(map[string]*CategoryScore)
	objectives := make(map[string]*ObjectiveScore)
	active := s.activeObjectives()
	total := decimal.Zero

	for _, inst := range completed {
		r := p.Reward(inst, multiplier)
		total = total.Add(r)

		ds, ok := daily[inst.Date]
		if !ok {
			ds = &DailyScore{Date: inst.Date, Earnings: decimal.Zero, Grade: s.Diary[inst.Date].Grade}
			daily[inst.Date] = ds
		}
		ds.Earnings = ds.Earnings.Add(r)
		ds.TasksCompleted++

		cs, ok := categories[inst.Category]
		if !ok {
			cs = &CategoryScore{Category: inst.Category, Earnings: decimal.Zero}
			categories[inst.Category] = cs
		}
		cs.Earnings = cs.Earnings.Add(r)
		cs.TasksCompleted++

		obj, ok := active[inst.AlignedGoalID]
		if inst.AlignedGoalID == "" || !ok {
			continue
		}
		os, ok := objectives[obj.ID]
		if !ok {
			os = &ObjectiveScore{ObjectiveID: obj.ID, Description: obj.Description, Label: obj.Label, Earnings: decimal.Zero}
			objectives[obj.ID] = os
		}
		os.Earnings = os.Earnings.Add(r)
		os.TasksCompleted++
	}

	return Scores{
		Streak:           streak,
		StreakMultiplier: multiplier,
		TaskEarnings:     total,
		Daily:            sortedDaily(daily),
		Categories:       sortedCategories(categories),
		Objectives:       sortedObjectives(objectives),
	}
}

// EarningsByDate sums rewards per day at a fixed multiplier.
func (p Policy) EarningsByDate(completed []Instance, multiplier decimal.Decimal) map[generic.Date]decimal.Decimal {
	out := make(map[generic.Date]decimal.Decimal)
	for _, inst := range completed {
		out[inst.Date] = out[inst.Date].Add(p.Reward(inst, multiplier))
	}
	return out
}

func (s *State) activeObjectives() map[string]Objective {
	out := make(map[string]Objective)
	for _, o := range s.Objectives {
		if !o.Completed {
			out[o.ID] = o
		}
	}
	return out
}

func sortedDaily(m map[generic.Date]*DailyScore) []DailyScore {
	out := make([]DailyScore, 0, len(m))
	for _, v := range m {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func sortedCategories(m map[string]*CategoryScore) []CategoryScore {
	out := make([]CategoryScore, 0, len(m))
	for _, v := range m {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

func sortedObjectives(m map[string]*ObjectiveScore) []ObjectiveScore {
	out := make([]ObjectiveScore, 0, len(m))
	for _, v := range m {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectiveID < out[j].ObjectiveID })
	return out
}

/*
types.go - Domain types for missions, recurring missions and scores

PURPOSE:
  Defines what a user works on and what the engine derives from it:
    - Task:          a single mission owned by one date bucket
    - RecurringTask: a template plus a sparse date -> Completion map
    - Instance:      a point-in-time mission for one date (never persisted)
    - SideQuest:     a repeatable quota item outside the calendar
    - Objective:     a long-term goal that tasks can align with
    - DailyScore / CategoryScore / ObjectiveScore: derived totals

RECURRING REPRESENTATION:
  A recurring mission is an aggregate root with an associative side table
  keyed by date. Nothing is stored for a date until something happens on
  it (completion, wager, time override). Instances are projected on
  demand by recurrence.go.

JSON:
  Field names follow the persisted document format (camelCase), so the
  same structs are used for storage and for the HTTP layer.

SEE ALSO:
  - recurrence.go: Instance materialization
  - wager.go: Wager state machine
  - state.go: Aggregate root holding all of these
*/
package mission

import (
	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/generic"
)

// =============================================================================
// ENUMS
// =============================================================================

type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
	Savage Difficulty = "Savage"
)

// Difficulties lists the known difficulties in ascending order.
var Difficulties = []Difficulty{Easy, Medium, Hard, Savage}

func (d Difficulty) Valid() bool {
	for _, known := range Difficulties {
		if d == known {
			return true
		}
	}
	return false
}

type RecurrenceRule string

const (
	Daily    RecurrenceRule = "Daily"
	Weekly   RecurrenceRule = "Weekly"
	Weekdays RecurrenceRule = "Weekdays"
	Weekends RecurrenceRule = "Weekends"

	// NoRecurrence marks a draft that commits as a single Task.
	NoRecurrence RecurrenceRule = "None"
)

func (r RecurrenceRule) Valid() bool {
	switch r {
	case Daily, Weekly, Weekdays, Weekends:
		return true
	}
	return false
}

// SideQuestCategory is excluded from the daily grind mission set.
const SideQuestCategory = "Side Quest"

// =============================================================================
// TASK - Single mission in a date bucket
// =============================================================================

type Task struct {
	ID            string       `json:"id"`
	Description   string       `json:"description"`
	Category      string       `json:"category"`
	Difficulty    Difficulty   `json:"difficulty"`
	Date          generic.Date `json:"date"`
	EstimatedTime int          `json:"estimatedTime"`
	Completed     bool         `json:"completed"`
	ActualTime    *int         `json:"actualTime"`
	Time          string       `json:"time,omitempty"`
	GoalAlignment *int         `json:"goalAlignment,omitempty"`
	AlignedGoalID string       `json:"alignedGoalId,omitempty"`
	Justification string       `json:"justification,omitempty"`
	Story         string       `json:"story,omitempty"`
	Wager
}

// =============================================================================
// RECURRING TASK - Template + sparse completion map
// =============================================================================

type RecurringTask struct {
	ID            string                        `json:"id"`
	Description   string                        `json:"description"`
	Category      string                        `json:"category"`
	Difficulty    Difficulty                    `json:"difficulty"`
	EstimatedTime int                           `json:"estimatedTime"`
	Time          string                        `json:"time,omitempty"`
	GoalAlignment *int                          `json:"goalAlignment,omitempty"`
	AlignedGoalID string                        `json:"alignedGoalId,omitempty"`
	Justification string                        `json:"justification,omitempty"`
	Story         string                        `json:"story,omitempty"`
	Rule          RecurrenceRule                `json:"recurrenceRule"`
	StartDate     generic.Date                  `json:"startDate"`
	Completions   map[generic.Date]Completion   `json:"completions"`
}

// Completion is the per-date record of a recurring mission.
type Completion struct {
	Completed  bool   `json:"completed"`
	ActualTime *int   `json:"actualTime"`
	Time       string `json:"time,omitempty"`
	Wager
}

// isEmpty reports whether the entry carries nothing worth keeping.
func (c Completion) isEmpty() bool {
	return !c.Completed && c.Time == "" && !c.BetPlaced
}

// =============================================================================
// INSTANCE - Materialized mission for one date
// =============================================================================

// Instance is a mission as it stands on a specific date. Singletons and
// recurring projections share this shape so downstream code never needs
// to know which one it holds.
type Instance struct {
	ID                string       `json:"id"`
	RecurringMasterID string       `json:"recurringMasterId,omitempty"`
	Date              generic.Date `json:"date"`
	Description       string       `json:"description"`
	Category          string       `json:"category"`
	Difficulty        Difficulty   `json:"difficulty"`
	EstimatedTime     int          `json:"estimatedTime"`
	Completed         bool         `json:"completed"`
	ActualTime        *int         `json:"actualTime"`
	Time              string       `json:"time,omitempty"`
	GoalAlignment     *int         `json:"goalAlignment,omitempty"`
	AlignedGoalID     string       `json:"alignedGoalId,omitempty"`
	Wager
}

// IsRecurring reports whether the instance is a projection of a template.
func (i Instance) IsRecurring() bool {
	return i.RecurringMasterID != ""
}

// Instance views a singleton task as an instance on its own date.
func (t Task) Instance() Instance {
	return Instance{
		ID:            t.ID,
		Date:          t.Date,
		Description:   t.Description,
		Category:      t.Category,
		Difficulty:    t.Difficulty,
		EstimatedTime: t.EstimatedTime,
		Completed:     t.Completed,
		ActualTime:    t.ActualTime,
		Time:          t.Time,
		GoalAlignment: t.GoalAlignment,
		AlignedGoalID: t.AlignedGoalID,
		Wager:         t.Wager,
	}
}

// =============================================================================
// SIDE QUEST / OBJECTIVE / DIARY
// =============================================================================

type SideQuest struct {
	ID          string               `json:"id"`
	Description string               `json:"description"`
	Difficulty  Difficulty           `json:"difficulty"`
	DailyGoal   int                  `json:"dailyGoal"` // 0 = unlimited
	Completions map[generic.Date]int `json:"completions"`
}

// Quota is the count needed for the quest to count as done on a day.
func (q SideQuest) Quota() int {
	if q.DailyGoal > 0 {
		return q.DailyGoal
	}
	return 1
}

// QuotaMet reports whether the quest reached its quota on d.
func (q SideQuest) QuotaMet(d generic.Date) bool {
	return q.Completions[d] >= q.Quota()
}

type Objective struct {
	ID              string       `json:"id"`
	Description     string       `json:"description"`
	Label           string       `json:"label,omitempty"`
	TargetDate      generic.Date `json:"targetDate"`
	Completed       bool         `json:"completed"`
	CompletionDate  generic.Date `json:"completionDate,omitempty"`
	CompletionProof string       `json:"completionProof,omitempty"`
}

type DiaryEntry struct {
	Date       generic.Date `json:"date"`
	Reflection string       `json:"reflection,omitempty"`
	Feedback   string       `json:"feedback,omitempty"`
	Grade      string       `json:"grade,omitempty"`
}

// =============================================================================
// SCORES - Derived, never stored
// =============================================================================

type DailyScore struct {
	Date           generic.Date    `json:"date"`
	Earnings       decimal.Decimal `json:"earnings"`
	TasksCompleted int             `json:"tasksCompleted"`
	Grade          string          `json:"grade,omitempty"`
}

type CategoryScore struct {
	Category       string          `json:"category"`
	Earnings       decimal.Decimal `json:"earnings"`
	TasksCompleted int             `json:"tasksCompleted"`
}

type ObjectiveScore struct {
	ObjectiveID    string          `json:"goalId"`
	Description    string          `json:"goalDescription"`
	Label          string          `json:"goalLabel,omitempty"`
	Earnings       decimal.Decimal `json:"earnings"`
	TasksCompleted int             `json:"tasksCompleted"`
}

// =============================================================================
// NOTIFICATIONS - One-shot payloads for the UI
// =============================================================================

type Notification struct {
	Title  string          `json:"title"`
	Amount decimal.Decimal `json:"amount"`
}

const (
	TitleBetWon          = "Bet Won!"
	TitleDailyGrind      = "Daily Grind Conquered!"
	TitleObjectiveReward = "Objective Conquered!"
	TitleBetsSettled     = "Bets Settled"
	TitleAccountFunded   = "Account Funded"
)

/*
state.go - Aggregate root for one user's economy

PURPOSE:
  State is the explicit aggregate every operation reads and mutates.
  It replaces ad-hoc global counters: templates, completion maps, guard
  sets and settings all live here and travel through each operation.

PERSISTENCE:
  Each field maps to one document in generic.DocumentStore:

    tasks                      date -> []Task
    recurring_tasks            []RecurringTask
    side_quests                []SideQuest
    objectives                 []Objective
    settings                   {dailyGoal, userCategories}
    diary                      date -> DiaryEntry
    reward_catalog             []rewards.Reward
    purchases                  []rewards.Purchase
    awarded_daily_grind_bonus  date -> true
    last_bet_settlement_date   "YYYY-MM-DD"

  LoadState reads all sections. Save writes back only the sections an
  operation touched, inside the same repository transaction as the
  operation's ledger entries.

CHARACTER:
  `spent` and `bonuses` are NOT part of State. They are folded from the
  ledger (generic.FoldCharacter) so a guard and its counter change can be
  committed together without a read-modify-write on a counter document.

SEE ALSO:
  - service.go: Load → mutate → Save cycle
  - generic/store.go: DocumentStore
*/
package mission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/generic"
	"github.com/warp/task-economy/rewards"
)

type Section string

const (
	SectionTasks             Section = "tasks"
	SectionRecurring         Section = "recurring_tasks"
	SectionSideQuests        Section = "side_quests"
	SectionObjectives        Section = "objectives"
	SectionSettings          Section = "settings"
	SectionDiary             Section = "diary"
	SectionRewardCatalog     Section = "reward_catalog"
	SectionPurchases         Section = "purchases"
	SectionAwardedDailyGrind Section = "awarded_daily_grind_bonus"
	SectionLastBetSettlement Section = "last_bet_settlement_date"
)

// Sections in persistence order.
var Sections = []Section{
	SectionTasks,
	SectionRecurring,
	SectionSideQuests,
	SectionObjectives,
	SectionSettings,
	SectionDiary,
	SectionRewardCatalog,
	SectionPurchases,
	SectionAwardedDailyGrind,
	SectionLastBetSettlement,
}

type Settings struct {
	DailyGoal  decimal.Decimal `json:"dailyGoal"`
	Categories []string        `json:"userCategories"`
}

type State struct {
	EntityID          generic.EntityID
	Tasks             map[generic.Date][]Task
	Recurring         []RecurringTask
	SideQuests        []SideQuest
	Objectives        []Objective
	Settings          Settings
	Diary             map[generic.Date]DiaryEntry
	Rewards           rewards.Catalog
	Purchases         []rewards.Purchase
	AwardedDailyGrind map[generic.Date]bool
	LastBetSettlement generic.Date

	found   bool
	touched map[Section]bool
}

// NewState returns an empty state with policy defaults.
func NewState(entityID generic.EntityID, p Policy) *State {
	return &State{
		EntityID:          entityID,
		Tasks:             make(map[generic.Date][]Task),
		Diary:             make(map[generic.Date]DiaryEntry),
		AwardedDailyGrind: make(map[generic.Date]bool),
		Settings:          Settings{DailyGoal: p.DefaultDailyGoal},
		touched:           make(map[Section]bool),
	}
}

// LoadState reads every section. Missing sections keep their defaults.
func LoadState(ctx context.Context, docs generic.DocumentStore, entityID generic.EntityID, p Policy) (*State, error) {
	s := NewState(entityID, p)
	for _, sec := range Sections {
		raw, err := docs.GetDocument(ctx, entityID, string(sec))
		if errors.Is(err, generic.ErrDocumentNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s for %s: %w", sec, entityID, err)
		}
		if err := json.Unmarshal(raw, s.field(sec)); err != nil {
			return nil, fmt.Errorf("decode %s for %s: %w", sec, entityID, err)
		}
		s.found = true
	}
	s.normalize()
	return s, nil
}

// Save writes the touched sections and clears the touched set.
func (s *State) Save(ctx context.Context, docs generic.DocumentStore) error {
	for _, sec := range Sections {
		if !s.touched[sec] {
			continue
		}
		raw, err := json.Marshal(s.field(sec))
		if err != nil {
			return fmt.Errorf("encode %s for %s: %w", sec, s.EntityID, err)
		}
		if err := docs.PutDocument(ctx, s.EntityID, string(sec), raw); err != nil {
			return fmt.Errorf("save %s for %s: %w", sec, s.EntityID, err)
		}
	}
	s.touched = make(map[Section]bool)
	s.found = true
	return nil
}

// Exists reports whether any section was ever persisted for the entity.
func (s *State) Exists() bool { return s.found }

// Touched lists the sections waiting to be saved.
func (s *State) Touched() []Section {
	var out []Section
	for _, sec := range Sections {
		if s.touched[sec] {
			out = append(out, sec)
		}
	}
	return out
}

func (s *State) touch(sec Section) {
	if s.touched == nil {
		s.touched = make(map[Section]bool)
	}
	s.touched[sec] = true
}

func (s *State) field(sec Section) any {
	switch sec {
	case SectionTasks:
		return &s.Tasks
	case SectionRecurring:
		return &s.Recurring
	case SectionSideQuests:
		return &s.SideQuests
	case SectionObjectives:
		return &s.Objectives
	case SectionSettings:
		return &s.Settings
	case SectionDiary:
		return &s.Diary
	case SectionRewardCatalog:
		return &s.Rewards
	case SectionPurchases:
		return &s.Purchases
	case SectionAwardedDailyGrind:
		return &s.AwardedDailyGrind
	case SectionLastBetSettlement:
		return &s.LastBetSettlement
	}
	panic("mission: unknown section " + string(sec))
}

// normalize repairs nil maps left by "null" documents.
func (s *State) normalize() {
	if s.Tasks == nil {
		s.Tasks = make(map[generic.Date][]Task)
	}
	if s.Diary == nil {
		s.Diary = make(map[generic.Date]DiaryEntry)
	}
	if s.AwardedDailyGrind == nil {
		s.AwardedDailyGrind = make(map[generic.Date]bool)
	}
	for i := range s.Recurring {
		if s.Recurring[i].Completions == nil {
			s.Recurring[i].Completions = make(map[generic.Date]Completion)
		}
	}
	for i := range s.SideQuests {
		if s.SideQuests[i].Completions == nil {
			s.SideQuests[i].Completions = make(map[generic.Date]int)
		}
	}
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (s *State) findTask(id string) (generic.Date, int, bool) {
	for d, bucket := range s.Tasks {
		for i := range bucket {
			if bucket[i].ID == id {
				return d, i, true
			}
		}
	}
	return generic.Date{}, -1, false
}

func (s *State) findRecurring(id string) (*RecurringTask, bool) {
	for i := range s.Recurring {
		if s.Recurring[i].ID == id {
			return &s.Recurring[i], true
		}
	}
	return nil, false
}

func (s *State) findSideQuest(id string) (*SideQuest, bool) {
	for i := range s.SideQuests {
		if s.SideQuests[i].ID == id {
			return &s.SideQuests[i], true
		}
	}
	return nil, false
}

func (s *State) findObjective(id string) (*Objective, bool) {
	for i := range s.Objectives {
		if s.Objectives[i].ID == id {
			return &s.Objectives[i], true
		}
	}
	return nil, false
}

// removeTask drops the task from its bucket and deletes emptied buckets.
func (s *State) removeTask(d generic.Date, i int) Task {
	bucket := s.Tasks[d]
	t := bucket[i]
	bucket = append(bucket[:i:i], bucket[i+1:]...)
	if len(bucket) == 0 {
		delete(s.Tasks, d)
	} else {
		s.Tasks[d] = bucket
	}
	s.touch(SectionTasks)
	return t
}

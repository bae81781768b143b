package mission

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/warp/task-economy/generic"
)

// =============================================================================
// COMMIT
// =============================================================================

// TaskDraft is a mission the user is about to commit. Rule decides
// whether it becomes a single Task or a RecurringTask starting on Date.
type TaskDraft struct {
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	Difficulty    Difficulty     `json:"difficulty"`
	Date          generic.Date   `json:"date"`
	EstimatedTime int            `json:"estimatedTime"`
	Time          string         `json:"time,omitempty"`
	Justification string         `json:"justification,omitempty"`
	Story         string         `json:"story,omitempty"`
	Rule          RecurrenceRule `json:"recurrenceRule,omitempty"`
	Bet           *BetSlip       `json:"bet,omitempty"`
}

func (d TaskDraft) validate() error {
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("description is required: %w", ErrInvalidTask)
	}
	if !d.Difficulty.Valid() {
		return fmt.Errorf("difficulty %q: %w", d.Difficulty, ErrInvalidTask)
	}
	if d.Date.IsZero() {
		return fmt.Errorf("date is required: %w", ErrInvalidTask)
	}
	if d.EstimatedTime < 0 {
		return fmt.Errorf("estimated time %d: %w", d.EstimatedTime, ErrInvalidTask)
	}
	if d.recurring() && !d.Rule.Valid() {
		return fmt.Errorf("recurrence rule %q: %w", d.Rule, ErrInvalidTask)
	}
	return nil
}

func (d TaskDraft) recurring() bool {
	return d.Rule != "" && d.Rule != NoRecurrence
}

// Committed is what CommitTask created. Exactly one of Task and Recurring
// is set.
type Committed struct {
	Task      *Task          `json:"task,omitempty"`
	Recurring *RecurringTask `json:"recurring,omitempty"`
}

// CommitTask stores a new mission. A task whose category matches an
// active objective label is aligned with it at full strength. A bet slip
// is validated against the current balance; for a recurring mission the
// wager is attached to the start date's instance, which must be an active
// date of the rule.
func (s *Service) CommitTask(ctx context.Context, entityID generic.EntityID, draft TaskDraft) (Committed, error) {
	if err := draft.validate(); err != nil {
		return Committed{}, err
	}

	var out Committed
	_, err := s.update(ctx, entityID, func(w *work) error {
		st := w.state

		var wager Wager
		if draft.Bet != nil {
			placed, err := w.policy.PlaceBet(*draft.Bet, w.balance())
			if err != nil {
				return err
			}
			wager = placed
		}

		alignment, goalID := w.policy.alignFor(st, draft.Category)
		st.rememberCategory(draft.Category)

		if draft.recurring() {
			if wager.BetPlaced && !IsActive(RecurringTask{Rule: draft.Rule, StartDate: draft.Date}, draft.Date) {
				return fmt.Errorf("bet on %s: %w", draft.Date, ErrNotActiveOnDate)
			}
			rt := RecurringTask{
				ID:            uuid.NewString(),
				Description:   strings.TrimSpace(draft.Description),
				Category:      draft.Category,
				Difficulty:    draft.Difficulty,
				EstimatedTime: draft.EstimatedTime,
				Time:          draft.Time,
				GoalAlignment: &alignment,
				AlignedGoalID: goalID,
				Justification: draft.Justification,
				Story:         draft.Story,
				Rule:          draft.Rule,
				StartDate:     draft.Date,
				Completions:   make(map[generic.Date]Completion),
			}
			if wager.BetPlaced {
				rt.Completions[draft.Date] = Completion{Wager: wager}
			}
			st.Recurring = append(st.Recurring, rt)
			st.touch(SectionRecurring)
			out.Recurring = &rt
			return nil
		}

		t := Task{
			ID:            uuid.NewString(),
			Description:   strings.TrimSpace(draft.Description),
			Category:      draft.Category,
			Difficulty:    draft.Difficulty,
			Date:          draft.Date,
			EstimatedTime: draft.EstimatedTime,
			Time:          draft.Time,
			GoalAlignment: &alignment,
			AlignedGoalID: goalID,
			Justification: draft.Justification,
			Story:         draft.Story,
			Wager:         wager,
		}
		st.Tasks[draft.Date] = append(st.Tasks[draft.Date], t)
		st.touch(SectionTasks)
		out.Task = &t
		return nil
	})
	if err != nil {
		return Committed{}, err
	}
	return out, nil
}

// alignFor matches the category against active objective labels,
// ignoring case. No match means neutral alignment.
func (p Policy) alignFor(s *State, category string) (int, string) {
	c := strings.TrimSpace(category)
	if c != "" {
		for _, o := range s.Objectives {
			if !o.Completed && o.Label != "" && strings.EqualFold(o.Label, c) {
				return p.scale(), o.ID
			}
		}
	}
	return p.NeutralAlignment, ""
}

func (s *State) rememberCategory(category string) {
	c := strings.TrimSpace(category)
	if c == "" {
		return
	}
	for _, known := range s.Settings.Categories {
		if strings.EqualFold(known, c) {
			return
		}
	}
	s.Settings.Categories = append(s.Settings.Categories, c)
	s.touch(SectionSettings)
}

// =============================================================================
// EDIT
// =============================================================================

// TaskPatch lists editable fields. Nil means unchanged.
type TaskPatch struct {
	Description   *string       `json:"description,omitempty"`
	Category      *string       `json:"category,omitempty"`
	Difficulty    *Difficulty   `json:"difficulty,omitempty"`
	Date          *generic.Date `json:"date,omitempty"`
	EstimatedTime *int          `json:"estimatedTime,omitempty"`
	Time          *string       `json:"time,omitempty"`
	GoalAlignment *int          `json:"goalAlignment,omitempty"`
	AlignedGoalID *string       `json:"alignedGoalId,omitempty"`
	Justification *string       `json:"justification,omitempty"`
	Story         *string       `json:"story,omitempty"`
}

func (p TaskPatch) validate() error {
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return fmt.Errorf("description is required: %w", ErrInvalidTask)
	}
	if p.Difficulty != nil && !p.Difficulty.Valid() {
		return fmt.Errorf("difficulty %q: %w", *p.Difficulty, ErrInvalidTask)
	}
	if p.Date != nil && p.Date.IsZero() {
		return fmt.Errorf("date is required: %w", ErrInvalidTask)
	}
	if p.EstimatedTime != nil && *p.EstimatedTime < 0 {
		return fmt.Errorf("estimated time %d: %w", *p.EstimatedTime, ErrInvalidTask)
	}
	return nil
}

// checkAlignment bounds an explicit rating by the policy's alignment scale.
func (p Policy) checkAlignment(rating *int) error {
	if rating != nil && (*rating < 1 || *rating > p.scale()) {
		return fmt.Errorf("goal alignment %d outside 1..%d: %w", *rating, p.scale(), ErrInvalidTask)
	}
	return nil
}

// UpdateTask edits a single task. Changing its date moves it between
// buckets; an emptied bucket is removed.
func (s *Service) UpdateTask(ctx context.Context, entityID generic.EntityID, id string, patch TaskPatch) (Task, error) {
	if err := patch.validate(); err != nil {
		return Task{}, err
	}

	var out Task
	_, err := s.update(ctx, entityID, func(w *work) error {
		if err := w.policy.checkAlignment(patch.GoalAlignment); err != nil {
			return err
		}
		st := w.state
		d, i, ok := st.findTask(id)
		if !ok {
			return fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
		}
		t := st.Tasks[d][i]

		if patch.Description != nil {
			t.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Category != nil {
			t.Category = *patch.Category
			st.rememberCategory(t.Category)
		}
		if patch.Difficulty != nil {
			t.Difficulty = *patch.Difficulty
		}
		if patch.EstimatedTime != nil {
			t.EstimatedTime = *patch.EstimatedTime
		}
		if patch.Time != nil {
			t.Time = *patch.Time
		}
		if patch.GoalAlignment != nil {
			v := *patch.GoalAlignment
			t.GoalAlignment = &v
		}
		if patch.AlignedGoalID != nil {
			t.AlignedGoalID = *patch.AlignedGoalID
		}
		if patch.Justification != nil {
			t.Justification = *patch.Justification
		}
		if patch.Story != nil {
			t.Story = *patch.Story
		}

		if patch.Date != nil && *patch.Date != d {
			st.removeTask(d, i)
			t.Date = *patch.Date
			st.Tasks[t.Date] = append(st.Tasks[t.Date], t)
		} else {
			st.Tasks[d][i] = t
		}
		st.touch(SectionTasks)
		out = t
		return nil
	})
	return out, err
}

// RecurringPatch lists editable template fields. Nil means unchanged.
type RecurringPatch struct {
	Description   *string         `json:"description,omitempty"`
	Category      *string         `json:"category,omitempty"`
	Difficulty    *Difficulty     `json:"difficulty,omitempty"`
	EstimatedTime *int            `json:"estimatedTime,omitempty"`
	Time          *string         `json:"time,omitempty"`
	GoalAlignment *int            `json:"goalAlignment,omitempty"`
	AlignedGoalID *string         `json:"alignedGoalId,omitempty"`
	Justification *string         `json:"justification,omitempty"`
	Story         *string         `json:"story,omitempty"`
	Rule          *RecurrenceRule `json:"recurrenceRule,omitempty"`
	StartDate     *generic.Date   `json:"startDate,omitempty"`
}

func (p RecurringPatch) validate() error {
	common := TaskPatch{
		Description:   p.Description,
		Difficulty:    p.Difficulty,
		EstimatedTime: p.EstimatedTime,
		GoalAlignment: p.GoalAlignment,
	}
	if err := common.validate(); err != nil {
		return err
	}
	if p.Rule != nil && !p.Rule.Valid() {
		return fmt.Errorf("recurrence rule %q: %w", *p.Rule, ErrInvalidTask)
	}
	if p.StartDate != nil && p.StartDate.IsZero() {
		return fmt.Errorf("start date is required: %w", ErrInvalidTask)
	}
	return nil
}

// UpdateRecurringTask edits a template. Edits apply to every projection,
// past and future. Neither the start date nor the rule may change so that
// an existing completion entry falls on an inactive date.
func (s *Service) UpdateRecurringTask(ctx context.Context, entityID generic.EntityID, id string, patch RecurringPatch) (RecurringTask, error) {
	if err := patch.validate(); err != nil {
		return RecurringTask{}, err
	}

	var out RecurringTask
	_, err := s.update(ctx, entityID, func(w *work) error {
		if err := w.policy.checkAlignment(patch.GoalAlignment); err != nil {
			return err
		}
		st := w.state
		rt, ok := st.findRecurring(id)
		if !ok {
			return fmt.Errorf("recurring task %s: %w", id, ErrTemplateNotFound)
		}

		if patch.StartDate != nil {
			for d := range rt.Completions {
				if d.Before(*patch.StartDate) {
					return fmt.Errorf("completion on %s: %w", d, ErrBeforeStartDate)
				}
			}
			rt.StartDate = *patch.StartDate
		}
		if patch.Description != nil {
			rt.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Category != nil {
			rt.Category = *patch.Category
			st.rememberCategory(rt.Category)
		}
		if patch.Difficulty != nil {
			rt.Difficulty = *patch.Difficulty
		}
		if patch.EstimatedTime != nil {
			rt.EstimatedTime = *patch.EstimatedTime
		}
		if patch.Time != nil {
			rt.Time = *patch.Time
		}
		if patch.GoalAlignment != nil {
			v := *patch.GoalAlignment
			rt.GoalAlignment = &v
		}
		if patch.AlignedGoalID != nil {
			rt.AlignedGoalID = *patch.AlignedGoalID
		}
		if patch.Justification != nil {
			rt.Justification = *patch.Justification
		}
		if patch.Story != nil {
			rt.Story = *patch.Story
		}
		if patch.Rule != nil {
			rt.Rule = *patch.Rule
		}
		if patch.Rule != nil || patch.StartDate != nil {
			for d := range rt.Completions {
				if !IsActive(*rt, d) {
					return fmt.Errorf("completion on %s: %w", d, ErrNotActiveOnDate)
				}
			}
		}
		st.touch(SectionRecurring)
		out = *rt
		return nil
	})
	return out, err
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteTask removes a single task, or, given a recurring instance ID or a
// template ID, the whole template with its completion history.
func (s *Service) DeleteTask(ctx context.Context, entityID generic.EntityID, id string) error {
	_, err := s.update(ctx, entityID, func(w *work) error {
		st := w.state
		if d, i, ok := st.findTask(id); ok {
			st.removeTask(d, i)
			return nil
		}
		templateID := id
		if tid, _, ok := SplitInstanceID(id); ok {
			templateID = tid
		}
		if !st.deleteRecurring(templateID) {
			return fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
		}
		return nil
	})
	return err
}

func (s *Service) DeleteRecurringTask(ctx context.Context, entityID generic.EntityID, id string) error {
	_, err := s.update(ctx, entityID, func(w *work) error {
		if !w.state.deleteRecurring(id) {
			return fmt.Errorf("recurring task %s: %w", id, ErrTemplateNotFound)
		}
		return nil
	})
	return err
}

func (s *State) deleteRecurring(id string) bool {
	for i := range s.Recurring {
		if s.Recurring[i].ID == id {
			s.Recurring = append(s.Recurring[:i:i], s.Recurring[i+1:]...)
			s.touch(SectionRecurring)
			return true
		}
	}
	return false
}

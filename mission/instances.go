package mission

import (
	"context"
	"fmt"

	"github.com/warp/task-economy/generic"
)

// =============================================================================
// INSTANCE SLOTS
// =============================================================================

// slot addresses one instance on one date: either a task in its bucket or
// a template's completion entry.
type slot struct {
	date generic.Date
	task *Task
	rt   *RecurringTask
}

// locate resolves id on d. Recurring IDs must name d and an active date of
// the template.
func (s *State) locate(d generic.Date, id string) (slot, error) {
	bucket := s.Tasks[d]
	for i := range bucket {
		if bucket[i].ID == id {
			return slot{date: d, task: &bucket[i]}, nil
		}
	}

	templateID, on, ok := SplitInstanceID(id)
	if !ok || on != d {
		return slot{}, fmt.Errorf("instance %s on %s: %w", id, d, ErrTaskNotFound)
	}
	rt, ok := s.findRecurring(templateID)
	if !ok {
		return slot{}, fmt.Errorf("instance %s: %w", id, ErrTemplateNotFound)
	}
	if d.Before(rt.StartDate) {
		return slot{}, fmt.Errorf("instance %s: %w", id, ErrBeforeStartDate)
	}
	if !IsActive(*rt, d) {
		return slot{}, fmt.Errorf("instance %s: %w", id, ErrNotActiveOnDate)
	}
	return slot{date: d, rt: rt}, nil
}

func (sl slot) instance() Instance {
	if sl.task != nil {
		return sl.task.Instance()
	}
	return Materialize(*sl.rt, sl.date)
}

// completion returns a copy of the template entry, empty if absent.
func (sl slot) completion() Completion {
	return sl.rt.Completions[sl.date]
}

// store writes c back, pruning entries that carry nothing.
func (sl slot) store(s *State, c Completion) {
	if sl.rt.Completions == nil {
		sl.rt.Completions = make(map[generic.Date]Completion)
	}
	if c.isEmpty() {
		delete(sl.rt.Completions, sl.date)
	} else {
		sl.rt.Completions[sl.date] = c
	}
	s.touch(SectionRecurring)
}

// =============================================================================
// COMPLETION
// =============================================================================

// Outcome is the instance after an operation plus any notifications.
type Outcome struct {
	Instance      Instance       `json:"instance"`
	Notifications []Notification `json:"notifications"`
}

// CompleteInstance marks the instance done with actualTime minutes. A
// Placed wager is won and paid to `bonuses`; a Lost wager stays lost.
// The daily grind bonus for the instance's date is checked in the same
// commit. Completing an already completed instance only updates its time.
func (s *Service) CompleteInstance(ctx context.Context, entityID generic.EntityID, d generic.Date, id string, actualTime int) (Outcome, error) {
	minutes := ClampActualTime(actualTime)

	var out Outcome
	w, err := s.update(ctx, entityID, func(w *work) error {
		st := w.state
		sl, err := st.locate(d, id)
		if err != nil {
			return err
		}

		var wager Wager
		won := false
		if sl.task != nil {
			sl.task.Completed = true
			sl.task.ActualTime = &minutes
			_, won = sl.task.win()
			wager = sl.task.Wager
			st.touch(SectionTasks)
		} else {
			c := sl.completion()
			c.Completed = true
			c.ActualTime = &minutes
			_, won = c.win()
			wager = c.Wager
			sl.store(st, c)
		}

		if won {
			w.entry(generic.PoolBonuses, generic.TxBetPayout, wager.Payout(), id, "bet won", "")
			w.notify(Notification{Title: TitleBetWon, Amount: wager.Winnings()})
		}
		w.awardDailyGrind(d)
		w.publish = append(w.publish, d)
		out.Instance = sl.instance()
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	out.Notifications = w.notes
	return out, nil
}

// UncompleteInstance reopens the instance. A won wager goes back to
// Placed and its payout is reversed. The daily grind award, once given,
// is never revoked.
func (s *Service) UncompleteInstance(ctx context.Context, entityID generic.EntityID, d generic.Date, id string) (Outcome, error) {
	var out Outcome
	_, err := s.update(ctx, entityID, func(w *work) error {
		st := w.state
		sl, err := st.locate(d, id)
		if err != nil {
			return err
		}

		var wager *Wager
		var c Completion
		if sl.task != nil {
			sl.task.Completed = false
			sl.task.ActualTime = nil
			wager = &sl.task.Wager
			st.touch(SectionTasks)
		} else {
			c = sl.completion()
			c.Completed = false
			c.ActualTime = nil
			wager = &c.Wager
		}

		if payout, ok := wager.reopen(); ok {
			w.entry(generic.PoolBonuses, generic.TxReversal, payout.Neg(), id, "bet payout reversed", "")
		}
		if sl.rt != nil {
			sl.store(st, c)
		}
		w.publish = append(w.publish, d)
		out.Instance = sl.instance()
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// SetInstanceTime overrides the scheduled time of day. For recurring
// instances only this date's entry changes. An empty value clears it.
func (s *Service) SetInstanceTime(ctx context.Context, entityID generic.EntityID, d generic.Date, id, timeOfDay string) (Instance, error) {
	var out Instance
	_, err := s.update(ctx, entityID, func(w *work) error {
		st := w.state
		sl, err := st.locate(d, id)
		if err != nil {
			return err
		}
		if sl.task != nil {
			sl.task.Time = timeOfDay
			st.touch(SectionTasks)
		} else {
			c := sl.completion()
			c.Time = timeOfDay
			sl.store(st, c)
		}
		out = sl.instance()
		return nil
	})
	return out, err
}

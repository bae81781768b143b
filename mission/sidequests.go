package mission

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/warp/task-economy/generic"
)

// SideQuestDraft creates or replaces a side quest's definition.
type SideQuestDraft struct {
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty"`
	DailyGoal   int        `json:"dailyGoal"`
}

func (d SideQuestDraft) validate() error {
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("description is required: %w", ErrInvalidTask)
	}
	if !d.Difficulty.Valid() {
		return fmt.Errorf("difficulty %q: %w", d.Difficulty, ErrInvalidTask)
	}
	if d.DailyGoal < 0 {
		return fmt.Errorf("daily goal %d: %w", d.DailyGoal, ErrInvalidTask)
	}
	return nil
}

func (s *Service) AddSideQuest(ctx context.Context, entityID generic.EntityID, draft SideQuestDraft) (SideQuest, error) {
	if err := draft.validate(); err != nil {
		return SideQuest{}, err
	}
	q := SideQuest{
		ID:          uuid.NewString(),
		Description: strings.TrimSpace(draft.Description),
		Difficulty:  draft.Difficulty,
		DailyGoal:   draft.DailyGoal,
		Completions: make(map[generic.Date]int),
	}
	_, err := s.update(ctx, entityID, func(w *work) error {
		w.state.SideQuests = append(w.state.SideQuests, q)
		w.state.touch(SectionSideQuests)
		return nil
	})
	if err != nil {
		return SideQuest{}, err
	}
	return q, nil
}

// UpdateSideQuest replaces the definition and keeps the completion counts.
func (s *Service) UpdateSideQuest(ctx context.Context, entityID generic.EntityID, id string, draft SideQuestDraft) (SideQuest, error) {
	if err := draft.validate(); err != nil {
		return SideQuest{}, err
	}
	var out SideQuest
	_, err := s.update(ctx, entityID, func(w *work) error {
		q, ok := w.state.findSideQuest(id)
		if !ok {
			return fmt.Errorf("side quest %s: %w", id, ErrSideQuestNotFound)
		}
		q.Description = strings.TrimSpace(draft.Description)
		q.Difficulty = draft.Difficulty
		q.DailyGoal = draft.DailyGoal
		w.state.touch(SectionSideQuests)
		out = *q
		return nil
	})
	return out, err
}

func (s *Service) DeleteSideQuest(ctx context.Context, entityID generic.EntityID, id string) error {
	_, err := s.update(ctx, entityID, func(w *work) error {
		st := w.state
		for i := range st.SideQuests {
			if st.SideQuests[i].ID == id {
				st.SideQuests = append(st.SideQuests[:i:i], st.SideQuests[i+1:]...)
				st.touch(SectionSideQuests)
				return nil
			}
		}
		return fmt.Errorf("side quest %s: %w", id, ErrSideQuestNotFound)
	})
	return err
}

// SideQuestOutcome is a side quest after a completion.
type SideQuestOutcome struct {
	SideQuest     SideQuest      `json:"sideQuest"`
	Notifications []Notification `json:"notifications"`
}

// CompleteSideQuest counts one completion today and credits the quest's
// base reward to `bonuses`. A quest with a daily goal refuses completions
// once today's count reaches it. Today's daily grind is checked after.
func (s *Service) CompleteSideQuest(ctx context.Context, entityID generic.EntityID, id string) (SideQuestOutcome, error) {
	var out SideQuestOutcome
	w, err := s.update(ctx, entityID, func(w *work) error {
		q, ok := w.state.findSideQuest(id)
		if !ok {
			return fmt.Errorf("side quest %s: %w", id, ErrSideQuestNotFound)
		}
		if q.Completions == nil {
			q.Completions = make(map[generic.Date]int)
		}
		if q.DailyGoal > 0 && q.Completions[w.today] >= q.DailyGoal {
			return fmt.Errorf("side quest %s: %w", id, ErrQuotaReached)
		}
		q.Completions[w.today]++
		w.state.touch(SectionSideQuests)

		w.entry(generic.PoolBonuses, generic.TxSideQuest, w.policy.Base(q.Difficulty), q.ID, q.Description, "")
		out.SideQuest = *q

		w.awardDailyGrind(w.today)
		return nil
	})
	if err != nil {
		return SideQuestOutcome{}, err
	}
	out.Notifications = w.notes
	return out, nil
}

package mission

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/warp/task-economy/generic"
)

// ObjectiveDraft creates an objective. Label links future tasks by category.
type ObjectiveDraft struct {
	Description string       `json:"description"`
	Label       string       `json:"label,omitempty"`
	TargetDate  generic.Date `json:"targetDate"`
}

func (s *Service) AddObjective(ctx context.Context, entityID generic.EntityID, draft ObjectiveDraft) (Objective, error) {
	if strings.TrimSpace(draft.Description) == "" {
		return Objective{}, fmt.Errorf("description is required: %w", ErrInvalidTask)
	}
	o := Objective{
		ID:          uuid.NewString(),
		Description: strings.TrimSpace(draft.Description),
		Label:       strings.TrimSpace(draft.Label),
		TargetDate:  draft.TargetDate,
	}
	_, err := s.update(ctx, entityID, func(w *work) error {
		w.state.Objectives = append(w.state.Objectives, o)
		w.state.touch(SectionObjectives)
		return nil
	})
	if err != nil {
		return Objective{}, err
	}
	return o, nil
}

// ObjectiveOutcome is an objective after a reward-bearing change.
type ObjectiveOutcome struct {
	Objective     Objective      `json:"objective"`
	Notifications []Notification `json:"notifications"`
}

// CompleteObjective closes the objective and credits the completion
// reward. Completed objectives drop out of the objective scores.
func (s *Service) CompleteObjective(ctx context.Context, entityID generic.EntityID, id, proof string) (ObjectiveOutcome, error) {
	var out ObjectiveOutcome
	w, err := s.update(ctx, entityID, func(w *work) error {
		o, ok := w.state.findObjective(id)
		if !ok {
			return fmt.Errorf("objective %s: %w", id, ErrObjectiveNotFound)
		}
		if o.Completed {
			return fmt.Errorf("objective %s: %w", id, ErrObjectiveCompleted)
		}
		o.Completed = true
		o.CompletionDate = w.today
		o.CompletionProof = proof
		w.state.touch(SectionObjectives)

		reward := w.policy.ObjectiveCompletionReward
		w.entry(generic.PoolBonuses, generic.TxObjectiveReward, reward, o.ID, "objective conquered: "+o.Description, "")
		w.notify(Notification{Title: TitleObjectiveReward, Amount: reward})
		out.Objective = *o
		return nil
	})
	if err != nil {
		return ObjectiveOutcome{}, err
	}
	out.Notifications = w.notes
	return out, nil
}

// ObjectiveChange rewrites an active objective. Empty fields keep their
// current value.
type ObjectiveChange struct {
	Description string        `json:"description,omitempty"`
	Label       *string       `json:"label,omitempty"`
	TargetDate  *generic.Date `json:"targetDate,omitempty"`
}

// ChangeObjective charges the change cost to `spent`. The balance must
// cover it.
func (s *Service) ChangeObjective(ctx context.Context, entityID generic.EntityID, id string, change ObjectiveChange) (Objective, error) {
	var out Objective
	_, err := s.update(ctx, entityID, func(w *work) error {
		o, ok := w.state.findObjective(id)
		if !ok {
			return fmt.Errorf("objective %s: %w", id, ErrObjectiveNotFound)
		}
		if o.Completed {
			return fmt.Errorf("objective %s: %w", id, ErrObjectiveCompleted)
		}

		cost := w.policy.ObjectiveChangeCost
		if err := generic.RequireFunds(w.state.EntityID, w.balance().Current, generic.Credits(cost)); err != nil {
			return fmt.Errorf("change objective %s: %w", id, err)
		}

		if d := strings.TrimSpace(change.Description); d != "" {
			o.Description = d
		}
		if change.Label != nil {
			o.Label = strings.TrimSpace(*change.Label)
		}
		if change.TargetDate != nil {
			o.TargetDate = *change.TargetDate
		}
		w.state.touch(SectionObjectives)
		w.entry(generic.PoolSpent, generic.TxObjectiveChange, cost, o.ID, "objective changed", "")
		out = *o
		return nil
	})
	return out, err
}

func (s *Service) DeleteObjective(ctx context.Context, entityID generic.EntityID, id string) error {
	_, err := s.update(ctx, entityID, func(w *work) error {
		st := w.state
		for i := range st.Objectives {
			if st.Objectives[i].ID == id {
				st.Objectives = append(st.Objectives[:i:i], st.Objectives[i+1:]...)
				st.touch(SectionObjectives)
				return nil
			}
		}
		return fmt.Errorf("objective %s: %w", id, ErrObjectiveNotFound)
	})
	return err
}

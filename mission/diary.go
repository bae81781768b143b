package mission

import (
	"context"

	"github.com/warp/task-economy/generic"
)

// DiaryPatch edits a day's entry. Nil means unchanged.
type DiaryPatch struct {
	Reflection *string `json:"reflection,omitempty"`
	Feedback   *string `json:"feedback,omitempty"`
	Grade      *string `json:"grade,omitempty"`
}

// SetDiaryEntry merges the patch into d's entry. An entry left with no
// content is removed.
func (s *Service) SetDiaryEntry(ctx context.Context, entityID generic.EntityID, d generic.Date, patch DiaryPatch) (DiaryEntry, error) {
	var out DiaryEntry
	_, err := s.update(ctx, entityID, func(w *work) error {
		e := w.state.Diary[d]
		e.Date = d
		if patch.Reflection != nil {
			e.Reflection = *patch.Reflection
		}
		if patch.Feedback != nil {
			e.Feedback = *patch.Feedback
		}
		if patch.Grade != nil {
			e.Grade = *patch.Grade
		}
		if e.Reflection == "" && e.Feedback == "" && e.Grade == "" {
			delete(w.state.Diary, d)
		} else {
			w.state.Diary[d] = e
		}
		w.state.touch(SectionDiary)
		out = e
		return nil
	})
	return out, err
}

func (s *Service) Diary(ctx context.Context, entityID generic.EntityID, d generic.Date) (DiaryEntry, error) {
	st, err := s.Snapshot(ctx, entityID)
	if err != nil {
		return DiaryEntry{}, err
	}
	e, ok := st.Diary[d]
	if !ok {
		e.Date = d
	}
	return e, nil
}

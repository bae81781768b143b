package mission

import (
	"sort"
	"strings"
	"time"

	"github.com/warp/task-economy/generic"
)

// =============================================================================
// RECURRENCE RESOLVER
// =============================================================================

// IsActive reports whether the template produces an instance on d.
// Dates before the start date are never active, whatever the rule.
func IsActive(rt RecurringTask, d generic.Date) bool {
	if d.Before(rt.StartDate) {
		return false
	}
	switch rt.Rule {
	case Daily:
		return true
	case Weekly:
		return d.Weekday() == rt.StartDate.Weekday()
	case Weekdays:
		return d.Weekday() >= time.Monday && d.Weekday() <= time.Friday
	case Weekends:
		return d.IsWeekend()
	default:
		return false
	}
}

// InstanceID is the composite key of a recurring projection.
func InstanceID(templateID string, d generic.Date) string {
	return templateID + "_" + d.String()
}

// SplitInstanceID undoes InstanceID. ok is false for singleton IDs.
func SplitInstanceID(id string) (templateID string, d generic.Date, ok bool) {
	i := strings.LastIndex(id, "_")
	if i <= 0 || i == len(id)-1 {
		return "", generic.Date{}, false
	}
	parsed, err := generic.ParseDate(id[i+1:])
	if err != nil {
		return "", generic.Date{}, false
	}
	return id[:i], parsed, true
}

// Materialize projects the template onto d. It does not check IsActive, so
// it works for any date, including ones with no completion entry.
func Materialize(rt RecurringTask, d generic.Date) Instance {
	c, ok := rt.Completions[d]

	inst := Instance{
		ID:                InstanceID(rt.ID, d),
		RecurringMasterID: rt.ID,
		Date:              d,
		Description:       rt.Description,
		Category:          rt.Category,
		Difficulty:        rt.Difficulty,
		EstimatedTime:     rt.EstimatedTime,
		Time:              rt.Time,
		GoalAlignment:     rt.GoalAlignment,
		AlignedGoalID:     rt.AlignedGoalID,
	}
	if !ok {
		return inst
	}

	inst.Completed = c.Completed
	if c.Completed {
		inst.ActualTime = c.ActualTime
	}
	if c.Time != "" {
		inst.Time = c.Time
	}
	inst.Wager = c.Wager
	return inst
}

// InstancesForDate returns the singleton tasks in d's bucket followed by
// every active recurring projection, in template order.
func (s *State) InstancesForDate(d generic.Date) []Instance {
	var out []Instance
	for _, t := range s.Tasks[d] {
		out = append(out, t.Instance())
	}
	for _, rt := range s.Recurring {
		if IsActive(rt, d) {
			out = append(out, Materialize(rt, d))
		}
	}
	return out
}

// CompletedInstances walks every date bucket and every completion map
// (never a date range) and returns the completed instances sorted by date.
func (s *State) CompletedInstances() []Instance {
	var out []Instance
	for d, bucket := range s.Tasks {
		for _, t := range bucket {
			if t.Completed {
				inst := t.Instance()
				inst.Date = d
				out = append(out, inst)
			}
		}
	}
	for _, rt := range s.Recurring {
		for d, c := range rt.Completions {
			if c.Completed {
				out = append(out, Materialize(rt, d))
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

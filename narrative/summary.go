package narrative

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/generic"
	"github.com/warp/task-economy/mission"
)

// maxSimilar caps the history sent with an odds request.
const maxSimilar = 5

// MissionSummary is one completed mission as the service sees it.
type MissionSummary struct {
	Description   string             `json:"description"`
	Category      string             `json:"category"`
	Difficulty    mission.Difficulty `json:"difficulty"`
	EstimatedTime int                `json:"estimatedTime"`
	ActualTime    int                `json:"actualTime"`
}

// DaySummary is the read-only picture of one day.
type DaySummary struct {
	Date       generic.Date     `json:"date"`
	Reflection string           `json:"reflection,omitempty"`
	Missions   []MissionSummary `json:"missions"`
	Earnings   decimal.Decimal  `json:"earnings"`
	Streak     int              `json:"streak"`
	Objectives []string         `json:"objectives"`
}

// OddsRequest describes a draft mission to be priced.
type OddsRequest struct {
	Description      string             `json:"description"`
	Category         string             `json:"category"`
	Difficulty       mission.Difficulty `json:"difficulty"`
	EstimatedTime    int                `json:"estimatedTime"`
	ActiveObjectives []string           `json:"activeObjectives"`
	SimilarHistory   []string           `json:"similarHistory"`
}

// SummarizeDay builds d's summary from a state snapshot. It never mutates st.
func SummarizeDay(p mission.Policy, st *mission.State, d, today generic.Date) DaySummary {
	scores := p.Aggregate(st, today)
	out := DaySummary{
		Date:       d,
		Reflection: st.Diary[d].Reflection,
		Earnings:   decimal.Zero,
		Streak:     scores.Streak,
		Objectives: activeObjectives(st),
	}
	for _, ds := range scores.Daily {
		if ds.Date == d {
			out.Earnings = ds.Earnings
		}
	}
	for _, inst := range st.InstancesForDate(d) {
		if !inst.Completed {
			continue
		}
		m := MissionSummary{
			Description:   inst.Description,
			Category:      inst.Category,
			Difficulty:    inst.Difficulty,
			EstimatedTime: inst.EstimatedTime,
		}
		if inst.ActualTime != nil {
			m.ActualTime = *inst.ActualTime
		}
		out.Missions = append(out.Missions, m)
	}
	return out
}

// OddsRequestFor prices a draft against the user's objectives and up to
// five completed missions whose description shares the draft's opening.
func OddsRequestFor(st *mission.State, draft mission.TaskDraft) OddsRequest {
	req := OddsRequest{
		Description:      draft.Description,
		Category:         draft.Category,
		Difficulty:       draft.Difficulty,
		EstimatedTime:    draft.EstimatedTime,
		ActiveObjectives: activeObjectives(st),
	}

	prefix := strings.ToLower(strings.TrimSpace(draft.Description))
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	if prefix == "" {
		return req
	}
	for _, inst := range st.CompletedInstances() {
		if len(req.SimilarHistory) == maxSimilar {
			break
		}
		if strings.Contains(strings.ToLower(inst.Description), prefix) {
			req.SimilarHistory = append(req.SimilarHistory, inst.Description)
		}
	}
	return req
}

func activeObjectives(st *mission.State) []string {
	var out []string
	for _, o := range st.Objectives {
		if !o.Completed {
			out = append(out, o.Description)
		}
	}
	return out
}

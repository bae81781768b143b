package narrative

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/mission"
)

const fallbackRationale = "No signal from the bookie. Standard odds apply."

// Quote is a multiplier offer for a draft mission.
type Quote struct {
	Multiplier decimal.Decimal `json:"multiplier"`
	Rationale  string          `json:"rationale"`
	Fallback   bool            `json:"fallback"`
}

// OddsQuoter asks the service for a multiplier and always answers: any
// failure yields the policy fallback, and every quote is clamped.
type OddsQuoter struct {
	Client *Client
	Bounds mission.OddsBounds
	Logger *slog.Logger
}

func NewOddsQuoter(client *Client, bounds mission.OddsBounds, logger *slog.Logger) *OddsQuoter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OddsQuoter{Client: client, Bounds: bounds, Logger: logger}
}

func (q *OddsQuoter) Quote(ctx context.Context, st *mission.State, draft mission.TaskDraft) Quote {
	resp, err := q.Client.Odds(ctx, OddsRequestFor(st, draft))
	if err != nil {
		if !errors.Is(err, ErrNotConfigured) {
			q.Logger.Warn("odds quote failed, using fallback", "entity", st.EntityID, "error", err)
		}
		return Quote{Multiplier: q.Bounds.Fallback, Rationale: fallbackRationale, Fallback: true}
	}
	return Quote{
		Multiplier: q.Bounds.Clamp(decimal.NewFromFloat(resp.Multiplier)),
		Rationale:  resp.Rationale,
	}
}

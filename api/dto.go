/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication where they differ
  from the engine's own types. Mission drafts and patches (TaskDraft,
  TaskPatch, SideQuestDraft, ...) already carry the wire field names and
  are decoded directly.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

CURRENCY:
  Amounts are shopspring decimals and serialize as JSON strings ("1.05")
  so no precision is lost on the way to the client.

SEE ALSO:
  - handlers.go: Uses these types
  - mission/: Drafts, patches and derived scores
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/generic"
	"github.com/warp/task-economy/mission"
)

// =============================================================================
// USERS / BALANCE
// =============================================================================

type UserDTO struct {
	ID string `json:"id"`
}

type CreateUserRequest struct {
	ID string `json:"id,omitempty"`
}

type CreateUserResponse struct {
	User          UserDTO                `json:"user"`
	Notifications []mission.Notification `json:"notifications"`
}

// BalanceDTO is the derived balance: task earnings + bonuses - spent.
type BalanceDTO struct {
	TaskEarnings  decimal.Decimal `json:"taskEarnings"`
	Bonuses       decimal.Decimal `json:"bonuses"`
	Spent         decimal.Decimal `json:"spent"`
	TotalEarnings decimal.Decimal `json:"totalEarnings"`
	Current       decimal.Decimal `json:"current"`
}

func toBalanceDTO(b generic.Balance) BalanceDTO {
	return BalanceDTO{
		TaskEarnings:  b.TaskEarnings.Value,
		Bonuses:       b.Bonuses.Value,
		Spent:         b.Spent.Value,
		TotalEarnings: b.TotalEarnings.Value,
		Current:       b.Current.Value,
	}
}

// DashboardDTO is everything the main screen shows, recomputed per read.
type DashboardDTO struct {
	UserID           string                   `json:"userId"`
	Today            generic.Date             `json:"today"`
	DailyGoal        decimal.Decimal          `json:"dailyGoal"`
	Streak           int                      `json:"streak"`
	StreakMultiplier decimal.Decimal          `json:"streakMultiplier"`
	Balance          BalanceDTO               `json:"balance"`
	DailyScores      []mission.DailyScore     `json:"dailyScores"`
	CategoryScores   []mission.CategoryScore  `json:"categoryScores"`
	ObjectiveScores  []mission.ObjectiveScore `json:"objectiveScores"`
}

func toDashboardDTO(entityID generic.EntityID, d mission.Dashboard) DashboardDTO {
	return DashboardDTO{
		UserID:           string(entityID),
		Today:            d.Today,
		DailyGoal:        d.DailyGoal,
		Streak:           d.Streak,
		StreakMultiplier: d.StreakMultiplier,
		Balance:          toBalanceDTO(d.Balance),
		DailyScores:      nonNil(d.Daily),
		CategoryScores:   nonNil(d.Categories),
		ObjectiveScores:  nonNil(d.Objectives),
	}
}

// TransactionDTO represents a ledger entry in API responses.
type TransactionDTO struct {
	ID          string          `json:"id"`
	Pool        string          `json:"pool"`
	EffectiveAt generic.Date    `json:"effectiveAt"`
	Delta       decimal.Decimal `json:"delta"`
	Type        string          `json:"type"`
	ReferenceID string          `json:"referenceId,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	CreatedAt   string          `json:"createdAt"`
}

func toTransactionDTOs(txs []generic.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		out[i] = TransactionDTO{
			ID:          string(tx.ID),
			Pool:        string(tx.Pool),
			EffectiveAt: tx.EffectiveAt,
			Delta:       tx.Delta.Value,
			Type:        string(tx.Type),
			ReferenceID: tx.ReferenceID,
			Reason:      tx.Reason,
			CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
		}
	}
	return out
}

// =============================================================================
// MISSIONS
// =============================================================================

type DayDTO struct {
	Date      generic.Date       `json:"date"`
	Instances []mission.Instance `json:"instances"`
}

type CompleteInstanceRequest struct {
	ActualTime int `json:"actualTime"`
}

type SetTimeRequest struct {
	Time string `json:"time"`
}

type DailyGoalRequest struct {
	DailyGoal decimal.Decimal `json:"dailyGoal"`
}

type SettlementResponse struct {
	Settlement    mission.Settlement     `json:"settlement"`
	Notifications []mission.Notification `json:"notifications"`
}

// =============================================================================
// OBJECTIVES / SHOP
// =============================================================================

type CompleteObjectiveRequest struct {
	Proof string `json:"proof"`
}

type AddRewardRequest struct {
	Name string          `json:"name"`
	Cost decimal.Decimal `json:"cost"`
}

// =============================================================================
// SCENARIOS / ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	UserID      string `json:"user_id"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// nonNil keeps empty lists as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

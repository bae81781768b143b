/*
handlers.go - HTTP API handlers for the task economy

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response and JSON
  serialization, and delegates every rule to mission.Service. Handlers
  never compute currency themselves.

ENDPOINTS:
  Users:
    GET    /api/users                         List users
    POST   /api/users                         Create and fund a user

  Per user (/api/users/{userID}):
    GET    /dashboard                         Balance, streak, scores
    GET    /transactions                      Ledger history
    GET    /days/{date}                       Materialized instances
    POST   /tasks                             Commit a task (optional bet)
    POST   /odds                              Quote a multiplier
    POST   /settlement                        Run the lost-bet sweep
    ...    see server.go for the full table

ERROR HANDLING:
  Errors are returned as ErrorResponse with appropriate HTTP status:
  - 400: Validation errors, invalid input, insufficient balance
  - 404: Resource not found
  - 409: Conflict (quota reached, already completed, duplicate key)
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The user ID in the path is trusted.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/task-economy/factory"
	"github.com/warp/task-economy/generic"
	"github.com/warp/task-economy/mission"
	"github.com/warp/task-economy/narrative"
	"github.com/warp/task-economy/rewards"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter wipes the backing store. Only demo scenarios use it.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *mission.Service
	Odds    *narrative.OddsQuoter
	Store   Resetter

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. A nil quoter always answers the fallback.
func NewHandler(svc *mission.Service, odds *narrative.OddsQuoter, store Resetter) *Handler {
	if odds == nil {
		odds = narrative.NewOddsQuoter(nil, svc.Policy.Odds, nil)
	}
	return &Handler{Service: svc, Odds: odds, Store: store}
}

// =============================================================================
// USERS
// =============================================================================

// ListUsers returns every user with stored state.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.Users(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = UserDTO{ID: string(u)}
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateUser registers a user, funding a brand new account.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decode(w, r, &req) {
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	notes, err := h.Service.Register(r.Context(), generic.EntityID(id))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateUserResponse{
		User:          UserDTO{ID: id},
		Notifications: nonNil(notes),
	})
}

// =============================================================================
// OVERVIEW
// =============================================================================

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	d, err := h.Service.Dashboard(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(user, d))
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Service.Transactions(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	d, ok := dateParam(w, r)
	if !ok {
		return
	}
	instances, err := h.Service.Day(r.Context(), userID(r), d)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DayDTO{Date: d, Instances: nonNil(instances)})
}

// GetPolicy returns the economy policy in effect.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, factory.Document(h.Service.Policy))
}

// =============================================================================
// TASKS
// =============================================================================

// CommitTask stores a new task or recurring template, with an optional bet.
func (h *Handler) CommitTask(w http.ResponseWriter, r *http.Request) {
	var draft mission.TaskDraft
	if !decode(w, r, &draft) {
		return
	}
	if draft.Date.IsZero() {
		draft.Date = h.Service.Today()
	}
	c, err := h.Service.CommitTask(r.Context(), userID(r), draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch mission.TaskPatch
	if !decode(w, r, &patch) {
		return
	}
	t, err := h.Service.UpdateTask(r.Context(), userID(r), chi.URLParam(r, "taskID"), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteTask(r.Context(), userID(r), chi.URLParam(r, "taskID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateRecurringTask(w http.ResponseWriter, r *http.Request) {
	var patch mission.RecurringPatch
	if !decode(w, r, &patch) {
		return
	}
	rt, err := h.Service.UpdateRecurringTask(r.Context(), userID(r), chi.URLParam(r, "templateID"), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

func (h *Handler) DeleteRecurringTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteRecurringTask(r.Context(), userID(r), chi.URLParam(r, "templateID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// INSTANCES
// =============================================================================

// CompleteInstance marks one dated instance completed. A placed wager is
// won in the same write.
func (h *Handler) CompleteInstance(w http.ResponseWriter, r *http.Request) {
	d, ok := dateParam(w, r)
	if !ok {
		return
	}
	var req CompleteInstanceRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.Service.CompleteInstance(r.Context(), userID(r), d, chi.URLParam(r, "instanceID"), req.ActualTime)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out.Notifications = nonNil(out.Notifications)
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) UncompleteInstance(w http.ResponseWriter, r *http.Request) {
	d, ok := dateParam(w, r)
	if !ok {
		return
	}
	out, err := h.Service.UncompleteInstance(r.Context(), userID(r), d, chi.URLParam(r, "instanceID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out.Notifications = nonNil(out.Notifications)
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) SetInstanceTime(w http.ResponseWriter, r *http.Request) {
	d, ok := dateParam(w, r)
	if !ok {
		return
	}
	var req SetTimeRequest
	if !decode(w, r, &req) {
		return
	}
	inst, err := h.Service.SetInstanceTime(r.Context(), userID(r), d, chi.URLParam(r, "instanceID"), req.Time)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// =============================================================================
// WAGERING / GOALS
// =============================================================================

// QuoteOdds proposes a multiplier for a draft. It never fails on the
// text service; the fallback is returned instead.
func (h *Handler) QuoteOdds(w http.ResponseWriter, r *http.Request) {
	var draft mission.TaskDraft
	if !decode(w, r, &draft) {
		return
	}
	st, err := h.Service.Snapshot(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Odds.Quote(r.Context(), st, draft))
}

func (h *Handler) SettleBets(w http.ResponseWriter, r *http.Request) {
	res, notes, err := h.Service.SettleBets(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	res.Lost = nonNil(res.Lost)
	writeJSON(w, http.StatusOK, SettlementResponse{Settlement: res, Notifications: nonNil(notes)})
}

func (h *Handler) SetDailyGoal(w http.ResponseWriter, r *http.Request) {
	var req DailyGoalRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Service.SetDailyGoal(r.Context(), userID(r), req.DailyGoal); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// =============================================================================
// SIDE QUESTS
// =============================================================================

func (h *Handler) ListSideQuests(w http.ResponseWriter, r *http.Request) {
	st, err := h.Service.Snapshot(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(st.SideQuests))
}

func (h *Handler) AddSideQuest(w http.ResponseWriter, r *http.Request) {
	var draft mission.SideQuestDraft
	if !decode(w, r, &draft) {
		return
	}
	q, err := h.Service.AddSideQuest(r.Context(), userID(r), draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *Handler) UpdateSideQuest(w http.ResponseWriter, r *http.Request) {
	var draft mission.SideQuestDraft
	if !decode(w, r, &draft) {
		return
	}
	q, err := h.Service.UpdateSideQuest(r.Context(), userID(r), chi.URLParam(r, "questID"), draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) DeleteSideQuest(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteSideQuest(r.Context(), userID(r), chi.URLParam(r, "questID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CompleteSideQuest(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.CompleteSideQuest(r.Context(), userID(r), chi.URLParam(r, "questID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out.Notifications = nonNil(out.Notifications)
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// OBJECTIVES
// =============================================================================

func (h *Handler) ListObjectives(w http.ResponseWriter, r *http.Request) {
	st, err := h.Service.Snapshot(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(st.Objectives))
}

func (h *Handler) AddObjective(w http.ResponseWriter, r *http.Request) {
	var draft mission.ObjectiveDraft
	if !decode(w, r, &draft) {
		return
	}
	o, err := h.Service.AddObjective(r.Context(), userID(r), draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) CompleteObjective(w http.ResponseWriter, r *http.Request) {
	var req CompleteObjectiveRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.Service.CompleteObjective(r.Context(), userID(r), chi.URLParam(r, "objectiveID"), req.Proof)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out.Notifications = nonNil(out.Notifications)
	writeJSON(w, http.StatusOK, out)
}

// ChangeObjective edits an active objective for a fee.
func (h *Handler) ChangeObjective(w http.ResponseWriter, r *http.Request) {
	var change mission.ObjectiveChange
	if !decode(w, r, &change) {
		return
	}
	o, err := h.Service.ChangeObjective(r.Context(), userID(r), chi.URLParam(r, "objectiveID"), change)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) DeleteObjective(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteObjective(r.Context(), userID(r), chi.URLParam(r, "objectiveID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REWARD SHOP
// =============================================================================

func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	st, err := h.Service.Snapshot(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil([]rewards.Reward(st.Rewards)))
}

func (h *Handler) AddReward(w http.ResponseWriter, r *http.Request) {
	var req AddRewardRequest
	if !decode(w, r, &req) {
		return
	}
	rw, err := h.Service.AddReward(r.Context(), userID(r), req.Name, req.Cost)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rw)
}

func (h *Handler) DeleteReward(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteReward(r.Context(), userID(r), chi.URLParam(r, "rewardID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PurchaseReward(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.PurchaseReward(r.Context(), userID(r), chi.URLParam(r, "rewardID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	st, err := h.Service.Snapshot(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(st.Purchases))
}

// =============================================================================
// DIARY
// =============================================================================

func (h *Handler) GetDiaryEntry(w http.ResponseWriter, r *http.Request) {
	d, ok := dateParam(w, r)
	if !ok {
		return
	}
	e, err := h.Service.Diary(r.Context(), userID(r), d)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) SetDiaryEntry(w http.ResponseWriter, r *http.Request) {
	d, ok := dateParam(w, r)
	if !ok {
		return
	}
	var patch mission.DiaryPatch
	if !decode(w, r, &patch) {
		return
	}
	e, err := h.Service.SetDiaryEntry(r.Context(), userID(r), d, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// =============================================================================
// HELPERS
// =============================================================================

func userID(r *http.Request) generic.EntityID {
	return generic.EntityID(chi.URLParam(r, "userID"))
}

func dateParam(w http.ResponseWriter, r *http.Request) (generic.Date, bool) {
	d, err := generic.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "Invalid date, expected YYYY-MM-DD", err)
		return generic.Date{}, false
	}
	return d, true
}

// decode reads a JSON body. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", err)
		return false
	}
	return true
}

// writeServiceError maps engine errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var short *generic.InsufficientBalanceError
	switch {
	case errors.As(err, &short):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "insufficient_balance",
			Details: map[string]string{
				"available": short.Available.Value.StringFixed(2),
				"requested": short.Requested.Value.StringFixed(2),
				"shortfall": short.Shortfall().Value.StringFixed(2),
			},
		})
	case mission.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case generic.IsConflict(err),
		errors.Is(err, mission.ErrQuotaReached),
		errors.Is(err, mission.ErrObjectiveCompleted):
		writeError(w, http.StatusConflict, "conflict", err.Error(), nil)
	case mission.IsClientError(err), errors.Is(err, rewards.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal", "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

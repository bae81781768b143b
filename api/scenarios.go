/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for demos. Every scenario is built through mission.Service, so
	the ledger it leaves behind is exactly what real use would produce.

AVAILABLE SCENARIOS:

	fresh-start:  Funded account, a stocked reward shop, nothing done yet
	streak-week:  A daily habit completed every day of the past week
	high-roller:  Won, lost and open wagers side by side

HOW SCENARIOS WORK:
 1. Reset store (clear all data)
 2. Register the demo user (funding bonus)
 3. Commit missions, quests, objectives relative to today
 4. Complete some of them

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "streak-week"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add it to the loaders map

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler and error mapping
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/generic"
	"github.com/warp/task-economy/mission"
)

// DemoUser owns every scenario's data.
const DemoUser generic.EntityID = "demo"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-start",
		Name:        "Fresh Start",
		Description: "Funded account with a stocked reward shop and one mission for today",
		UserID:      string(DemoUser),
	},
	{
		ID:          "streak-week",
		Name:        "Streak Week",
		Description: "Daily habit kept for a week, side quests and an objective in progress",
		UserID:      string(DemoUser),
	},
	{
		ID:          "high-roller",
		Name:        "High Roller",
		Description: "A won bet, a settled loss and an open wager on today",
		UserID:      string(DemoUser),
	},
}

func (h *Handler) loaders() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"fresh-start": h.loadFreshStartScenario,
		"streak-week": h.loadStreakWeekScenario,
		"high-roller": h.loadHighRollerScenario,
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Description: "Currently loaded scenario"})
}

// LoadScenario wipes the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}
	load, ok := h.loaders()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_scenario", "Unknown scenario", nil)
		return
	}
	if h.Store == nil {
		writeError(w, http.StatusInternalServerError, "internal", "Store does not support reset", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to reset store", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadFreshStartScenario: registration bonus only, plus things to buy.
func (h *Handler) loadFreshStartScenario(ctx context.Context) error {
	svc := h.Service
	if _, err := svc.Register(ctx, DemoUser); err != nil {
		return err
	}

	shop := []struct {
		name string
		cost string
	}{
		{"Coffee out", "2.50"},
		{"Movie night", "8"},
		{"New book", "15"},
	}
	for _, item := range shop {
		if _, err := svc.AddReward(ctx, DemoUser, item.name, decimal.RequireFromString(item.cost)); err != nil {
			return fmt.Errorf("reward %s: %w", item.name, err)
		}
	}

	_, err := svc.CommitTask(ctx, DemoUser, mission.TaskDraft{
		Description:   "Plan the week",
		Category:      "Admin",
		Difficulty:    mission.Easy,
		Date:          svc.Today(),
		EstimatedTime: 20,
		Time:          "09:00",
	})
	return err
}

// loadStreakWeekScenario: a daily recurring run completed on each of the
// last seven days. The daily goal is lowered so that every day counts.
func (h *Handler) loadStreakWeekScenario(ctx context.Context) error {
	svc := h.Service
	today := svc.Today()
	week := generic.TrailingDays(today, 7)
	start := week.Start

	if _, err := svc.Register(ctx, DemoUser); err != nil {
		return err
	}
	if err := svc.SetDailyGoal(ctx, DemoUser, decimal.RequireFromString("0.1")); err != nil {
		return err
	}
	if _, err := svc.AddObjective(ctx, DemoUser, mission.ObjectiveDraft{
		Description: "Run a half marathon",
		Label:       "Fitness",
		TargetDate:  today.AddDays(60),
	}); err != nil {
		return err
	}

	c, err := svc.CommitTask(ctx, DemoUser, mission.TaskDraft{
		Description:   "Morning run",
		Category:      "Fitness",
		Difficulty:    mission.Medium,
		Date:          start,
		EstimatedTime: 30,
		Time:          "07:00",
		Rule:          mission.Daily,
	})
	if err != nil {
		return err
	}
	for _, d := range week.Days() {
		if _, err := svc.CompleteInstance(ctx, DemoUser, d, mission.InstanceID(c.Recurring.ID, d), 30+d.Day()%10); err != nil {
			return fmt.Errorf("complete run on %s: %w", d, err)
		}
	}

	quest, err := svc.AddSideQuest(ctx, DemoUser, mission.SideQuestDraft{
		Description: "Drink a glass of water",
		Difficulty:  mission.Easy,
		DailyGoal:   3,
	})
	if err != nil {
		return err
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.CompleteSideQuest(ctx, DemoUser, quest.ID); err != nil {
			return err
		}
	}

	reflection := "Seven days in a row. Legs are sore but it is getting easier."
	_, err = svc.SetDiaryEntry(ctx, DemoUser, today.AddDays(-1), mission.DiaryPatch{Reflection: &reflection})
	return err
}

// loadHighRollerScenario: a bet won two days ago, a bet left open
// yesterday that the settlement sweep turns into a loss, and an open bet
// on today.
func (h *Handler) loadHighRollerScenario(ctx context.Context) error {
	svc := h.Service
	today := svc.Today()

	if _, err := svc.Register(ctx, DemoUser); err != nil {
		return err
	}

	bets := []struct {
		desc     string
		date     generic.Date
		stake    string
		mult     string
		complete bool
	}{
		{"Finish the quarterly report", today.AddDays(-2), "1", "3", true},
		{"Clean the garage", today.AddDays(-1), "1", "2", false},
		{"Ship the side project", today, "2", "2.5", false},
	}
	for _, b := range bets {
		c, err := svc.CommitTask(ctx, DemoUser, mission.TaskDraft{
			Description:   b.desc,
			Category:      "Work",
			Difficulty:    mission.Hard,
			Date:          b.date,
			EstimatedTime: 90,
			Bet: &mission.BetSlip{
				Stake:      decimal.RequireFromString(b.stake),
				Multiplier: decimal.RequireFromString(b.mult),
			},
		})
		if err != nil {
			return fmt.Errorf("bet %q: %w", b.desc, err)
		}
		if b.complete {
			if _, err := svc.CompleteInstance(ctx, DemoUser, b.date, c.Task.ID, 120); err != nil {
				return err
			}
		}
	}

	_, _, err := svc.SettleBets(ctx, DemoUser)
	return err
}
